package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/tourbooking/config"
	"github.com/Domenick1991/tourbooking/internal/email"
	"github.com/Domenick1991/tourbooking/internal/kafka"
	"github.com/Domenick1991/tourbooking/internal/logger"
	"github.com/Domenick1991/tourbooking/internal/payment"
	"github.com/Domenick1991/tourbooking/internal/pricing"
	"github.com/Domenick1991/tourbooking/internal/repository"
	"github.com/Domenick1991/tourbooking/internal/service/booking"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

const publishRetries = 3

// retryingProducer retries publishes; the worker is not on a request path.
type retryingProducer struct {
	*kafka.Producer
}

func (p retryingProducer) Publish(ctx context.Context, topic, key string, value interface{}) error {
	return p.PublishWithRetry(ctx, topic, key, value, publishRetries)
}

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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	producer := kafka.NewProducer(cfg.Kafka.Brokers, log)
	defer producer.Close()

	bookingService := booking.NewBookingService(
		repository.NewBookingRepository(pool),
		payment.NewClient(cfg.Payment.BaseURL, cfg.Payment.Timeout(), cfg.Payment.MaxRetries, log),
		retryingProducer{producer},
		pricing.NewCalculator(cfg.Booking.TaxRateBP, cfg.Booking.ServiceFeeRateBP, cfg.Booking.Currency),
		cfg.Kafka.BookingEventsTopic,
		cfg.Booking.PendingTTL(),
		log,
		booking.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
	)

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic)
	defer consumer.Close()

	emailSender := email.NewSender(log)

	go func() {
		if err := consumer.Consume(ctx, kafka.BookingEventHandler(log, emailSender.Send)); err != nil && ctx.Err() == nil {
			log.Errorf("consumer stopped: %v", err)
		}
	}()

	expireTicker := time.NewTicker(time.Duration(cfg.Worker.ExpirationSweepMinutes) * time.Minute)
	defer expireTicker.Stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-expireTicker.C:
			expired, err := bookingService.ExpirePendingBookings(ctx)
			if err != nil {
				log.Errorf("expire bookings error: %v", err)
				continue
			}
			if len(expired) > 0 {
				log.WithFields(logrus.Fields{"count": len(expired)}).Info("expired pending bookings")
			}
		case s := <-sig:
			log.Infof("received signal %v, shutting down", s)
			return
		}
	}
}
