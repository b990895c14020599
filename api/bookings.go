package api

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/Domenick1991/tourbooking/internal/auth"
	"github.com/Domenick1991/tourbooking/internal/domain"
	"github.com/Domenick1991/tourbooking/internal/service/booking"
	"github.com/gin-gonic/gin"
)

// CallbackTokenHeader carries the shared secret of the payment provider.
const CallbackTokenHeader = "X-Callback-Token"

type BookingHandler struct {
	service booking.BookingUseCase
}

type bookingResponse struct {
	ID            string  `json:"id"`
	BookingType   string  `json:"booking_type"`
	ItemID        string  `json:"item_id"`
	CheckIn       string  `json:"check_in"`
	CheckOut      string  `json:"check_out"`
	Guests        int     `json:"guests"`
	Rooms         int     `json:"rooms"`
	TotalAmount   int64   `json:"total_amount"`
	Currency      string  `json:"currency"`
	Status        string  `json:"status"`
	PaymentStatus string  `json:"payment_status"`
	PaymentURL    *string `json:"payment_url,omitempty"`
	ContactName   string  `json:"contact_name"`
	ContactEmail  string  `json:"contact_email"`
	Notes         string  `json:"notes,omitempty"`
	ExpiresAt     string  `json:"expires_at"`
	CreatedAt     string  `json:"created_at"`
}

func toBookingResponse(b *domain.Booking) bookingResponse {
	resp := bookingResponse{
		ID:            b.ID,
		BookingType:   string(b.BookingType),
		ItemID:        b.ItemID(),
		CheckIn:       b.CheckIn.Format(domain.DateLayout),
		CheckOut:      b.CheckOut.Format(domain.DateLayout),
		Guests:        b.Guests,
		Rooms:         b.Rooms,
		TotalAmount:   b.TotalAmount,
		Currency:      b.Currency,
		Status:        string(b.Status),
		PaymentStatus: string(b.PaymentStatus),
		ContactName:   b.ContactName,
		ContactEmail:  b.ContactEmail,
		Notes:         b.Notes,
		ExpiresAt:     b.ExpiresAt.Format(time.RFC3339),
		CreatedAt:     b.CreatedAt.Format(time.RFC3339),
	}
	if b.PaymentURL != "" {
		resp.PaymentURL = &b.PaymentURL
	}
	return resp
}

func NewBookingHandler(service booking.BookingUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

// Register mounts the signed-in user's booking routes.
func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.Use(auth.RequireUser())
	router.GET("", h.list)
	router.GET("/:id", h.get)
	router.POST("/:id/payment", h.retryPayment)
}

func (h *BookingHandler) list(c *gin.Context) {
	u := auth.UserFrom(c)
	bookings, err := h.service.ListForUser(c.Request.Context(), u.ID)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := make([]bookingResponse, 0, len(bookings))
	for i := range bookings {
		resp = append(resp, toBookingResponse(&bookings[i]))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *BookingHandler) get(c *gin.Context) {
	u := auth.UserFrom(c)
	b, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if b.UserID != u.ID && u.Role != auth.RoleAdmin {
		writeError(c, domain.ErrForbidden)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(b))
}

func (h *BookingHandler) retryPayment(c *gin.Context) {
	url, err := h.service.RetryPayment(c.Request.Context(), customerFrom(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"redirect_url": url})
}

type AdminHandler struct {
	service booking.BookingUseCase
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func NewAdminHandler(service booking.BookingUseCase) *AdminHandler {
	return &AdminHandler{service: service}
}

func (h *AdminHandler) Register(router *gin.RouterGroup) {
	router.Use(auth.RequireAdmin())
	router.PUT("/bookings/:id/status", h.updateStatus)
}

func (h *AdminHandler) updateStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	status, ok := domain.ParseBookingStatus(req.Status)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status " + req.Status})
		return
	}

	b, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), status)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(b))
}

type WebhookHandler struct {
	service booking.BookingUseCase
	token   string
}

func NewWebhookHandler(service booking.BookingUseCase, token string) *WebhookHandler {
	return &WebhookHandler{service: service, token: token}
}

func (h *WebhookHandler) Register(router *gin.RouterGroup) {
	router.POST("/webhook", h.callback)
}

func (h *WebhookHandler) callback(c *gin.Context) {
	got := c.GetHeader(CallbackTokenHeader)
	if h.token == "" || subtle.ConstantTimeCompare([]byte(got), []byte(h.token)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid callback token"})
		return
	}

	var cb booking.PaymentCallback
	if err := c.ShouldBindJSON(&cb); err != nil || cb.BookingID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bookingId and status are required"})
		return
	}

	b, err := h.service.HandlePaymentCallback(c.Request.Context(), cb)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": b.ID, "status": b.Status, "payment_status": b.PaymentStatus})
}
