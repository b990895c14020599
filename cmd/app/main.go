package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Domenick1991/tourbooking/api"
	"github.com/Domenick1991/tourbooking/config"
	"github.com/Domenick1991/tourbooking/internal/auth"
	"github.com/Domenick1991/tourbooking/internal/bootstrap"
	"github.com/Domenick1991/tourbooking/internal/cache"
	"github.com/Domenick1991/tourbooking/internal/catalog"
	"github.com/Domenick1991/tourbooking/internal/draft"
	"github.com/Domenick1991/tourbooking/internal/kafka"
	"github.com/Domenick1991/tourbooking/internal/logger"
	"github.com/Domenick1991/tourbooking/internal/payment"
	"github.com/Domenick1991/tourbooking/internal/pricing"
	"github.com/Domenick1991/tourbooking/internal/repository"
	"github.com/Domenick1991/tourbooking/internal/service/booking"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		logrus.Fatalf("load config: %v", err)
	}

	log, closer := logger.New(cfg.Log)
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	redisCache := cache.NewRedisCache(cfg.Redis, cfg.Booking.DraftTTL())
	producer := kafka.NewProducer(cfg.Kafka.Brokers, log)
	defer producer.Close()
	if err := producer.CheckConnection(ctx); err != nil {
		log.Warnf("kafka unavailable, events will be dropped: %v", err)
	}

	items := catalog.NewLoader(repository.NewItemRepository(pool), redisCache, cfg.Booking.ItemCacheTTL(), log,
		catalog.WithCurrency(cfg.Booking.Currency))
	calculator := pricing.NewCalculator(cfg.Booking.TaxRateBP, cfg.Booking.ServiceFeeRateBP, cfg.Booking.Currency)
	gateway := payment.NewClient(cfg.Payment.BaseURL, cfg.Payment.Timeout(), cfg.Payment.MaxRetries, log)

	bookingService := booking.NewBookingService(
		repository.NewBookingRepository(pool),
		gateway,
		producer,
		calculator,
		cfg.Kafka.BookingEventsTopic,
		cfg.Booking.PendingTTL(),
		log,
		booking.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
		booking.WithActivityLog(repository.NewActivityLogRepository(pool)),
	)

	flow := draft.HostedCheckoutFlow
	if cfg.Booking.PaymentMode == config.PaymentModeCardForm {
		flow = draft.CardFormFlow
	}
	drafts := func(session string) draft.Store { return redisCache.Drafts(session) }

	handlers := bootstrap.Handlers{
		Flow:     api.NewFlowHandler(items, drafts, bookingService, calculator, api.WithFlow(flow)),
		Bookings: api.NewBookingHandler(bookingService),
		Admin:    api.NewAdminHandler(bookingService),
		Webhook:  api.NewWebhookHandler(bookingService, cfg.Payment.CallbackToken),
	}
	router := bootstrap.NewRouter(cfg, handlers, auth.NewVerifier(cfg.Auth.JWTSecret), log)

	if err := bootstrap.Run(ctx, cfg, router, log); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
