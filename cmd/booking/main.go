package main

import (
	"context"
	"time"

	bookinghandler "courtside/internal/booking/handler"
	bookingrepo "courtside/internal/booking/repository"
	bookingservice "courtside/internal/booking/service"
	bookingvalidator "courtside/internal/booking/validator"
	catalogrepo "courtside/internal/catalog/repository"
	catalogservice "courtside/internal/catalog/service"
	catalogvalidator "courtside/internal/catalog/validator"
	"courtside/internal/notification"
	"courtside/internal/payment"
	"courtside/internal/pricing"
	"courtside/pkg/app"
	"courtside/pkg/clock"
	"courtside/pkg/config"
	"courtside/pkg/kafka"
	kafka_config "courtside/pkg/kafka/config"

	"github.com/joho/godotenv"
)

const ServiceName = "booking"

func main() {
	_ = godotenv.Load()

	cfg := config.Load(ServiceName)
	cfg.SetMongo()

	cfg.Log.Info("Starting Booking service")
	finalizer, leases, leaseRepo := initServices(cfg)

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go sweepExpiredClaims(sweepCtx, leaseRepo, cfg)

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(bookinghandler.NewBookingHandler(finalizer, leases, cfg.Log))
	serverApp.Run()
}

// sweepExpiredClaims garbage-collects lapsed slot claims. Correctness
// never depends on this: every read filters on expiry. It only keeps
// the collection small between TTL-index passes.
func sweepExpiredClaims(ctx context.Context, leaseRepo bookingrepo.LeaseRepository, cfg *config.Config) {
	ticker := time.NewTicker(cfg.LeaseTTL)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := leaseRepo.PurgeExpired(ctx, time.Now().UTC())
			if err != nil {
				cfg.Log.Warn("Expired claim sweep failed", "error", err)
				continue
			}
			if deleted > 0 {
				cfg.Log.Debug("Swept expired slot claims", "deleted", deleted)
			}
		}
	}
}

func initServices(cfg *config.Config) (bookingservice.FinalizerService, bookingservice.LeaseService, bookingrepo.LeaseRepository) {
	clk := clock.Real()

	catalog := catalogservice.NewCatalogService(
		catalogrepo.NewMongoCourtRepository(cfg),
		catalogrepo.NewMongoRuleRepository(cfg),
		catalogrepo.NewMongoHolidayRepository(cfg),
		catalogvalidator.NewCatalogValidator(cfg.Log),
		cfg,
	)
	source := pricing.NewCachedSource(catalog, cfg.RuleCacheTTL)
	quoteResolver := pricing.NewResolver(source, cfg.Currency, cfg.Log)
	// Finalization prices against the uncached catalog: the charged
	// amount must reflect the live rule set, not rules cached at hold
	// time.
	finalizeResolver := pricing.NewResolver(catalog, cfg.Currency, cfg.Log)

	leaseRepo := bookingrepo.NewMongoLeaseRepository(cfg)
	bookingRepo := bookingrepo.NewMongoBookingRepository(cfg)

	leases := bookingservice.NewLeaseService(leaseRepo, bookingRepo, source, clk, cfg)
	finalizer := bookingservice.NewFinalizerService(
		bookingRepo,
		leaseRepo,
		leases,
		quoteResolver,
		finalizeResolver,
		payment.NewHTTPCharger(cfg.PaymentURL, cfg.PaymentTimeout, cfg.Log),
		initDispatcher(cfg),
		bookingvalidator.NewBookingValidator(cfg.Log),
		clk,
		cfg,
	)

	cfg.Log.Info("Booking service initialized", "database", cfg.MongoDatabaseName)
	return finalizer, leases, leaseRepo
}

func initDispatcher(cfg *config.Config) notification.Dispatcher {
	if len(cfg.KafkaBrokers) == 0 {
		cfg.Log.Warn("No Kafka brokers configured; booking events will not be published")
		return notification.NewNopDispatcher()
	}

	producer, err := kafka.NewProducer(kafka_config.FromBrokers(cfg.KafkaBrokers), cfg.KafkaTopic, cfg.KafkaDLQTopic)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}

	cfg.Log.Info("Kafka dispatcher initialized", "topic", cfg.KafkaTopic, "brokers", len(cfg.KafkaBrokers))
	return notification.NewKafkaDispatcher(producer, cfg.Log)
}
