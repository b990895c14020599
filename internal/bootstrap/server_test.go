package bootstrap

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Domenick1991/tourbooking/api"
	"github.com/Domenick1991/tourbooking/config"
	"github.com/Domenick1991/tourbooking/internal/auth"
	"github.com/Domenick1991/tourbooking/internal/draft"
	"github.com/Domenick1991/tourbooking/internal/pricing"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRouter(cfg *config.Config) *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := logrus.New()
	log.SetOutput(io.Discard)

	memory := draft.NewMemoryStore()
	h := Handlers{
		Flow:     api.NewFlowHandler(nil, func(string) draft.Store { return memory }, nil, pricing.NewCalculator(1100, 500, "IDR")),
		Bookings: api.NewBookingHandler(nil),
		Admin:    api.NewAdminHandler(nil),
		Webhook:  api.NewWebhookHandler(nil, "token"),
	}
	return NewRouter(cfg, h, auth.NewVerifier("secret"), log)
}

func TestNewRouter_Health(t *testing.T) {
	router := testRouter(&config.Config{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestNewRouter_CORSPreflight(t *testing.T) {
	cfg := &config.Config{HTTP: config.HTTPConfig{AllowedOrigins: []string{"https://tour.example"}}}
	router := testRouter(cfg)

	req := httptest.NewRequest(http.MethodOptions, "/api/booking/entry", nil)
	req.Header.Set("Origin", "https://tour.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	req.Header.Set("Access-Control-Request-Headers", api.SessionHeader)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "https://tour.example", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestNewRouter_ProtectedRoutes(t *testing.T) {
	router := testRouter(&config.Config{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/bookings", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/api/admin/bookings/b-1/status", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestNewRouter_DocsOnlyWhenConfigured(t *testing.T) {
	w := httptest.NewRecorder()
	testRouter(&config.Config{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/docs/index.html", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	cfg := &config.Config{HTTP: config.HTTPConfig{SwaggerDir: t.TempDir()}}
	w = httptest.NewRecorder()
	testRouter(cfg).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/docs/index.html", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRun_StopsOnCancel(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	cfg := &config.Config{HTTP: config.HTTPConfig{Address: "127.0.0.1:0"}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, cfg, http.NotFoundHandler(), log) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
