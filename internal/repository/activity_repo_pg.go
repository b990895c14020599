package repository

import (
	"context"
	"encoding/json"

	"github.com/Domenick1991/tourbooking/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ActivityLogRepository interface {
	Record(ctx context.Context, entry domain.ActivityLog) error
}

type PGActivityLogRepository struct {
	db *pgxpool.Pool
}

func NewActivityLogRepository(db *pgxpool.Pool) ActivityLogRepository {
	return &PGActivityLogRepository{db: db}
}

func (r *PGActivityLogRepository) Record(ctx context.Context, entry domain.ActivityLog) error {
	details, err := json.Marshal(entry.Details)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO activity_logs (user_id, action, entity_type, entity_id, details) VALUES ($1, $2, $3, $4, $5)`,
		entry.UserID, entry.Action, entry.EntityType, entry.EntityID, details)
	return err
}

var _ ActivityLogRepository = (*PGActivityLogRepository)(nil)
