package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Domenick1991/tourbooking/api"
	"github.com/Domenick1991/tourbooking/config"
	"github.com/Domenick1991/tourbooking/internal/auth"
	"github.com/Domenick1991/tourbooking/internal/logger"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	httpSwagger "github.com/swaggo/http-swagger"
)

const swaggerDocURL = "/swagger/tourbooking.swagger.json"

// Handlers groups the HTTP handlers mounted by NewRouter.
type Handlers struct {
	Flow     *api.FlowHandler
	Bookings *api.BookingHandler
	Admin    *api.AdminHandler
	Webhook  *api.WebhookHandler
}

// NewRouter assembles the gin engine: CORS, request logging, optional user
// context, the api routes and, when configured, the swagger UI.
func NewRouter(cfg *config.Config, h Handlers, verifier *auth.Verifier, log logrus.FieldLogger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), logger.Middleware(log))

	corsCfg := cors.DefaultConfig()
	if len(cfg.HTTP.AllowedOrigins) > 0 {
		corsCfg.AllowOrigins = cfg.HTTP.AllowedOrigins
	} else {
		corsCfg.AllowAllOrigins = true
	}
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization", api.SessionHeader)
	router.Use(cors.New(corsCfg))

	router.Use(verifier.Middleware())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	h.Flow.Register(router.Group("/api/booking"))
	h.Bookings.Register(router.Group("/api/bookings"))
	h.Admin.Register(router.Group("/api/admin"))
	h.Webhook.Register(router.Group("/api/payment"))

	if cfg.HTTP.SwaggerDir != "" {
		router.Static("/swagger", cfg.HTTP.SwaggerDir)
		router.GET("/docs/*any", gin.WrapH(httpSwagger.Handler(httpSwagger.URL(swaggerDocURL))))
	}

	return router
}

// Run serves the router and blocks until context is canceled or the server fails.
func Run(ctx context.Context, cfg *config.Config, router http.Handler, log logrus.FieldLogger) error {
	srv := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{"addr": cfg.HTTP.Address}).Info("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	}
}
