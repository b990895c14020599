package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Domenick1991/tourbooking/internal/auth"
	"github.com/Domenick1991/tourbooking/internal/catalog"
	"github.com/Domenick1991/tourbooking/internal/domain"
	"github.com/Domenick1991/tourbooking/internal/draft"
	"github.com/Domenick1991/tourbooking/internal/pricing"
	"github.com/Domenick1991/tourbooking/internal/service/booking"
	"github.com/gin-gonic/gin"
)

// SessionHeader identifies the client whose drafts are read and written.
const SessionHeader = "X-Draft-Session"

var errNoSession = errors.New("missing " + SessionHeader + " header")

// DraftStores returns the draft store of one client session.
type DraftStores func(session string) draft.Store

type FlowHandler struct {
	items      catalog.ItemLoader
	drafts     DraftStores
	service    booking.BookingUseCase
	calculator pricing.Calculator
	flow       draft.Flow
	now        func() time.Time
}

type FlowHandlerOption func(*FlowHandler)

func WithFlow(flow draft.Flow) FlowHandlerOption {
	return func(h *FlowHandler) { h.flow = flow }
}

func WithClock(now func() time.Time) FlowHandlerOption {
	return func(h *FlowHandler) { h.now = now }
}

func NewFlowHandler(items catalog.ItemLoader, drafts DraftStores, service booking.BookingUseCase, calculator pricing.Calculator, opts ...FlowHandlerOption) *FlowHandler {
	h := &FlowHandler{
		items:      items,
		drafts:     drafts,
		service:    service,
		calculator: calculator,
		flow:       draft.HostedCheckoutFlow,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *FlowHandler) Register(router *gin.RouterGroup) {
	router.GET("/entry", h.entry)
	router.PATCH("/drafts/:itemId/booking", h.patchBooking)
	router.PATCH("/drafts/:itemId/payment", h.patchPayment)
	router.POST("/drafts/:itemId/advance", h.advance)
	router.POST("/drafts/:itemId/back", h.back)
	router.GET("/quote", h.quote)
	router.POST("/confirm", h.confirm)
	router.POST("/submit", h.submit)
}

type formResponse struct {
	ItemID   string                `json:"item_id"`
	Step     domain.WizardStep     `json:"step"`
	StepName string                `json:"step_name"`
	Flow     []string              `json:"flow"`
	Booking  domain.BookingDraft   `json:"booking"`
	Payment  domain.PaymentDetails `json:"payment"`
}

type entryResponse struct {
	Item     *domain.BookableItem `json:"item"`
	Form     formResponse         `json:"form"`
	Restored bool                 `json:"restored"`
}

type fieldRequest struct {
	Field string `json:"field" binding:"required"`
	Value string `json:"value"`
}

type itemRequest struct {
	Item string `json:"item" binding:"required"`
	Type string `json:"type" binding:"required"`
}

type quoteLine struct {
	Amount    int64  `json:"amount"`
	Formatted string `json:"formatted"`
}

type quoteResponse struct {
	Currency   string    `json:"currency"`
	UnitPrice  quoteLine `json:"unit_price"`
	Quantity   int       `json:"quantity"`
	Nights     int       `json:"nights,omitempty"`
	Subtotal   quoteLine `json:"subtotal"`
	Tax        quoteLine `json:"tax"`
	ServiceFee quoteLine `json:"service_fee"`
	Total      quoteLine `json:"total"`
}

type submissionResponse struct {
	*booking.Submission
	Breakdown *quoteResponse `json:"breakdown,omitempty"`
}

func toFormResponse(f *draft.FormState) formResponse {
	steps := make([]string, 0, len(f.Flow()))
	for _, s := range f.Flow() {
		steps = append(steps, s.String())
	}
	return formResponse{
		ItemID:   f.ItemID,
		Step:     f.Step,
		StepName: f.Step.String(),
		Flow:     steps,
		Booking:  f.Booking,
		Payment:  f.Payment,
	}
}

func toQuoteResponse(q pricing.Quote) *quoteResponse {
	line := func(v int64) quoteLine {
		return quoteLine{Amount: v, Formatted: pricing.Format(v, q.Currency)}
	}
	return &quoteResponse{
		Currency:   q.Currency,
		UnitPrice:  line(q.UnitPrice),
		Quantity:   q.Quantity,
		Nights:     q.Nights,
		Subtotal:   line(q.Subtotal),
		Tax:        line(q.Tax),
		ServiceFee: line(q.ServiceFee),
		Total:      line(q.Total),
	}
}

// session picks the draft scope: the explicit header, else the signed-in user.
func (h *FlowHandler) session(c *gin.Context) (string, bool) {
	if s := c.GetHeader(SessionHeader); s != "" {
		return s, true
	}
	if u := auth.UserFrom(c); u != nil {
		return "user-" + u.ID, true
	}
	return "", false
}

func (h *FlowHandler) restore(c *gin.Context, itemID string, prefill draft.Prefill) (*draft.FormState, bool, bool) {
	session, ok := h.session(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": errNoSession.Error()})
		return nil, false, false
	}
	form, restored, err := draft.Restore(c.Request.Context(), h.drafts(session), itemID, prefill,
		draft.WithFlow(h.flow), draft.WithClock(h.now))
	if err != nil {
		writeError(c, err)
		return nil, false, false
	}
	return form, restored, true
}

func (h *FlowHandler) loadItem(c *gin.Context, id, typ string) (*domain.BookableItem, bool) {
	if id == "" {
		writeError(c, domain.ErrItemNotFound)
		return nil, false
	}
	itemType, ok := domain.ParseItemType(typ)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type must be destination or hotel"})
		return nil, false
	}
	item, err := h.items.Load(c.Request.Context(), itemType, id)
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	return item, true
}

func (h *FlowHandler) entry(c *gin.Context) {
	item, ok := h.loadItem(c, c.Query("item"), c.Query("type"))
	if !ok {
		return
	}

	prefill := draft.Prefill{CheckIn: c.Query("checkIn"), CheckOut: c.Query("checkOut")}
	if g, err := strconv.Atoi(c.Query("guests")); err == nil && g > 0 {
		prefill.Guests = g
	}

	form, restored, ok := h.restore(c, item.ID, prefill)
	if !ok {
		return
	}
	// A prefilled form replaces whatever draft the session held.
	if !restored && prefill != (draft.Prefill{}) {
		if err := form.Persist(c.Request.Context()); err != nil {
			writeError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, entryResponse{Item: item, Form: toFormResponse(form), Restored: restored})
}

func (h *FlowHandler) patchBooking(c *gin.Context) {
	h.patch(c, (*draft.FormState).SetBookingField)
}

func (h *FlowHandler) patchPayment(c *gin.Context) {
	h.patch(c, (*draft.FormState).SetPaymentField)
}

func (h *FlowHandler) patch(c *gin.Context, set func(*draft.FormState, string, string) error) {
	var req fieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	form, _, ok := h.restore(c, c.Param("itemId"), draft.Prefill{})
	if !ok {
		return
	}
	if err := set(form, req.Field, req.Value); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := form.Persist(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toFormResponse(form))
}

func (h *FlowHandler) advance(c *gin.Context) {
	form, _, ok := h.restore(c, c.Param("itemId"), draft.Prefill{})
	if !ok {
		return
	}
	if errs := form.Advance(); len(errs) > 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": errs, "form": toFormResponse(form)})
		return
	}
	if err := form.Persist(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toFormResponse(form))
}

func (h *FlowHandler) back(c *gin.Context) {
	form, _, ok := h.restore(c, c.Param("itemId"), draft.Prefill{})
	if !ok {
		return
	}
	form.Back()
	if err := form.Persist(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toFormResponse(form))
}

func (h *FlowHandler) quote(c *gin.Context) {
	item, ok := h.loadItem(c, c.Query("item"), c.Query("type"))
	if !ok {
		return
	}
	form, _, ok := h.restore(c, item.ID, draft.Prefill{})
	if !ok {
		return
	}
	q, err := h.calculator.Quote(*item, form.Booking)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, toQuoteResponse(q))
}

func (h *FlowHandler) confirm(c *gin.Context) {
	in, ok := h.submitInput(c)
	if !ok {
		return
	}
	sub, err := h.service.Confirm(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}
	resp := submissionResponse{Submission: sub}
	if sub.Quote != nil {
		resp.Breakdown = toQuoteResponse(*sub.Quote)
	}
	c.JSON(http.StatusOK, resp)
}

func (h *FlowHandler) submit(c *gin.Context) {
	in, ok := h.submitInput(c)
	if !ok {
		return
	}
	sub, err := h.service.Submit(c.Request.Context(), in)
	status := http.StatusCreated
	if err != nil {
		status = statusFor(err)
		if status == http.StatusInternalServerError {
			_ = c.Error(err)
		}
	}
	c.JSON(status, submissionResponse{Submission: sub})
}

func (h *FlowHandler) submitInput(c *gin.Context) (booking.SubmitInput, bool) {
	var req itemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return booking.SubmitInput{}, false
	}
	item, ok := h.loadItem(c, req.Item, req.Type)
	if !ok {
		return booking.SubmitInput{}, false
	}
	form, _, ok := h.restore(c, item.ID, draft.Prefill{})
	if !ok {
		return booking.SubmitInput{}, false
	}
	return booking.SubmitInput{Customer: customerFrom(c), Item: *item, Form: form}, true
}

func customerFrom(c *gin.Context) *booking.Customer {
	u := auth.UserFrom(c)
	if u == nil {
		return nil
	}
	return &booking.Customer{ID: u.ID, Email: u.Email, Name: u.Name}
}
