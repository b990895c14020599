package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/tourbooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is the part of *pgxpool.Pool the booking repository uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ DB = (*pgxpool.Pool)(nil)

type BookingRepository interface {
	CreatePending(ctx context.Context, booking *domain.Booking) error
	GetByID(ctx context.Context, id string) (*domain.Booking, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Booking, error)
	UpdateStatus(ctx context.Context, id string, change StatusChange) (*domain.Booking, error)
	SetPaymentURL(ctx context.Context, id, url string) error
	ExpirePendingBefore(ctx context.Context, deadline time.Time) ([]domain.Booking, error)
}

// StatusChange is a compare-and-set on the status pair of a booking. The
// update only applies while the row still holds the From values.
type StatusChange struct {
	FromStatus  domain.BookingStatus
	FromPayment domain.PaymentStatus
	ToStatus    domain.BookingStatus
	ToPayment   domain.PaymentStatus
}

type PGBookingRepository struct {
	db DB
}

func NewBookingRepository(db DB) BookingRepository {
	return &PGBookingRepository{db: db}
}

const bookingColumns = `id, user_id, booking_type, destination_id, hotel_id, check_in, check_out, guests, rooms,
	total_amount, currency, status, payment_status, payment_url, contact_name, contact_email, contact_phone,
	notes, expires_at, created_at, updated_at`

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	if err := row.Scan(&b.ID, &b.UserID, &b.BookingType, &b.DestinationID, &b.HotelID, &b.CheckIn, &b.CheckOut,
		&b.Guests, &b.Rooms, &b.TotalAmount, &b.Currency, &b.Status, &b.PaymentStatus, &b.PaymentURL,
		&b.ContactName, &b.ContactEmail, &b.ContactPhone, &b.Notes, &b.ExpiresAt, &b.CreatedAt, &b.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBookingNotFound
		}
		return nil, err
	}
	return &b, nil
}

// CreatePending inserts the booking as pending/pending. booking.ID must be set by the caller.
func (r *PGBookingRepository) CreatePending(ctx context.Context, booking *domain.Booking) error {
	booking.Status = domain.BookingStatusPending
	booking.PaymentStatus = domain.PaymentStatusPending

	return r.db.QueryRow(ctx, `INSERT INTO bookings (id, user_id, booking_type, destination_id, hotel_id, check_in, check_out,
		guests, rooms, total_amount, currency, status, payment_status, contact_name, contact_email, contact_phone, notes, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING id, created_at, updated_at`,
		booking.ID, booking.UserID, booking.BookingType, booking.DestinationID, booking.HotelID, booking.CheckIn, booking.CheckOut,
		booking.Guests, booking.Rooms, booking.TotalAmount, booking.Currency, booking.Status, booking.PaymentStatus,
		booking.ContactName, booking.ContactEmail, booking.ContactPhone, booking.Notes, booking.ExpiresAt).
		Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt)
}

func (r *PGBookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	return scanBooking(r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id=$1`, id))
}

func (r *PGBookingRepository) ListByUser(ctx context.Context, userID string) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := make([]domain.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

// UpdateStatus applies change. A row that no longer holds the From values
// yields domain.ErrInvalidTransition.
func (r *PGBookingRepository) UpdateStatus(ctx context.Context, id string, change StatusChange) (*domain.Booking, error) {
	b, err := scanBooking(r.db.QueryRow(ctx, `UPDATE bookings SET status=$1, payment_status=$2, updated_at=now()
		WHERE id=$3 AND status=$4 AND payment_status=$5 RETURNING `+bookingColumns,
		change.ToStatus, change.ToPayment, id, change.FromStatus, change.FromPayment))
	if errors.Is(err, domain.ErrBookingNotFound) {
		return nil, fmt.Errorf("%w: booking %s is no longer %s/%s", domain.ErrInvalidTransition, id, change.FromStatus, change.FromPayment)
	}
	return b, err
}

func (r *PGBookingRepository) SetPaymentURL(ctx context.Context, id, url string) error {
	cmd, err := r.db.Exec(ctx, `UPDATE bookings SET payment_url=$1, updated_at=now() WHERE id=$2`, url, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrBookingNotFound
	}
	return nil
}

// ExpirePendingBefore cancels unpaid pending bookings past their deadline,
// including those whose last payment attempt failed.
func (r *PGBookingRepository) ExpirePendingBefore(ctx context.Context, deadline time.Time) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `UPDATE bookings SET status=$1, payment_status=$2, updated_at=now()
		WHERE status=$3 AND payment_status IN ($4, $5) AND expires_at <= $6 RETURNING `+bookingColumns,
		domain.BookingStatusCancelled, domain.PaymentStatusExpired, domain.BookingStatusPending,
		domain.PaymentStatusPending, domain.PaymentStatusFailed, deadline)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expired []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		expired = append(expired, *b)
	}
	return expired, rows.Err()
}

var _ BookingRepository = (*PGBookingRepository)(nil)
