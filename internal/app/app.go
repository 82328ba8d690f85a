// Package app wires configuration into the storage, services and task executors shared by
// every binary.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/3lprints/storefront/internal/auth"
	"github.com/3lprints/storefront/internal/checkout"
	"github.com/3lprints/storefront/internal/config"
	"github.com/3lprints/storefront/internal/customization"
	"github.com/3lprints/storefront/internal/database"
	"github.com/3lprints/storefront/internal/email"
	"github.com/3lprints/storefront/internal/models"
	"github.com/3lprints/storefront/internal/ordernumber"
	"github.com/3lprints/storefront/internal/outbox"
	"github.com/3lprints/storefront/internal/razorpay"
	"github.com/3lprints/storefront/internal/repository"
)

// App holds the long-lived dependencies.
type App struct {
	Config *config.Config
	Log    *zap.Logger

	DB    *database.DB
	Repos *repository.Repositories

	Checkout      *checkout.Service
	Customization *customization.Service
	Auth          *auth.Service

	// Tasks executes phase-2 outbox tasks in this process.
	Tasks *outbox.Mux
}

// New opens the database, optionally migrates it and builds every service.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	// 1. --- Database ---
	pool, err := database.OpenDB(ctx, cfg.Database.Driver, cfg.Database.DSN, log)
	if err != nil {
		return nil, err
	}
	db := database.New(pool, log)
	if cfg.Database.AutoMigrate {
		ran, err := db.Migrate(ctx)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		log.Info("Migrations applied", zap.Strings("versions", ran))
	}
	repos := repository.New(db)

	// 2. --- Payment Gateway ---
	gw := razorpay.NewClient(cfg.Razorpay.BaseURL, cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret)
	intents := razorpay.NewIntentService(gw, log, cfg.Razorpay.Timeout, cfg.Razorpay.MaxAttempts, cfg.Razorpay.Backoff)

	// 3. --- Services ---
	numbers := ordernumber.New(cfg.Orders.Prefix, ordernumber.NewDBSequence(db), repos.Orders, log)
	customizations := customization.NewService(repos, log)
	notifier := email.NewNotifier(func(ctx context.Context, id string) (*models.Order, error) {
		return repos.Orders.GetByID(ctx, nil, id)
	}, email.LogSender{Log: log}, log)

	tasks := outbox.NewMux()
	tasks.Handle(models.TaskMaterializeCustomization, customizations.HandleTask)
	tasks.Handle(models.TaskOrderConfirmationEmail, notifier.HandleTask)

	return &App{
		Config:        cfg,
		Log:           log,
		DB:            db,
		Repos:         repos,
		Checkout:      checkout.NewService(repos, numbers, intents, cfg.Razorpay.KeySecret, log),
		Customization: customizations,
		Auth:          auth.NewService(repos.Users, cfg.Auth.SessionSecret, cfg.Auth.SessionTTL, log),
		Tasks:         tasks,
	}, nil
}

// Relay builds the outbox relay. With Kafka configured tasks are published for cmd/worker;
// otherwise they run in-process. The returned close func releases the publisher.
func (a *App) Relay() (*outbox.Relay, func() error) {
	cfg := a.Config
	var exec outbox.Executor = a.Tasks
	closeFn := func() error { return nil }
	if cfg.KafkaEnabled() {
		pub := outbox.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		exec, closeFn = pub, pub.Close
		a.Log.Info("Outbox tasks will be published to Kafka", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}
	relay := outbox.NewRelay(a.Repos.Outbox, exec, a.Log, cfg.Outbox.Interval, cfg.Outbox.BatchSize, cfg.Outbox.MaxAttempts)
	return relay, closeFn
}

func (a *App) Close() error {
	return a.DB.Close()
}
