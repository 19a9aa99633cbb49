package cmd

import (
	"context"
	"fmt"
	"time"

	"noblechain/config"
	"noblechain/events"
	"noblechain/market"
	"noblechain/metrics"
	"noblechain/server"
	"noblechain/service"

	log "github.com/sirupsen/logrus"
)

// Run initializes and starts the application
func Run(ctx context.Context) error {
	cfg := config.Get()
	configureLogging(cfg)

	log.WithFields(log.Fields{
		"environment": cfg.Environment,
		"storage":     cfg.StorageBackend,
		"eventSink":   cfg.EventSink,
	}).Info("Starting NobleChain wallet service")

	eventBus := events.NewBus()

	uowFactory, closeStorage, err := openStorage(ctx, cfg, eventBus)
	if err != nil {
		return err
	}
	defer closeStorage()

	closeSink, err := attachEventSink(ctx, cfg, eventBus)
	if err != nil {
		return err
	}
	defer closeSink()

	feed := market.NewFeed(eventBus)

	// Services
	identityService := service.NewIdentityService(uowFactory, cfg.BcryptCost)
	pinService := service.NewPinService(uowFactory, cfg.BcryptCost)
	var walletOpts []service.WalletOption
	if cfg.RequireTransferPin {
		walletOpts = append(walletOpts, service.WithTransferPin(pinService))
	}
	walletService := service.NewWalletService(uowFactory, feed, walletOpts...)
	notificationService := service.NewNotificationService(uowFactory)

	service.SubscribeNotifications(eventBus, notificationService)
	metrics.Subscribe(eventBus)
	log.Info("Services initialized successfully")

	if cfg.SeedDemoUsers > 0 {
		created, err := service.SeedDemoData(ctx, uowFactory, cfg.SeedDemoUsers)
		if err != nil {
			return fmt.Errorf("failed to seed demo data: %w", err)
		}
		log.WithField("created", created).Info("Demo data seeded")
	}

	if err := feed.Start(cfg.MarketTickInterval); err != nil {
		return fmt.Errorf("failed to start market feed: %w", err)
	}

	srv := server.New(server.Services{
		Identity:      identityService,
		Pins:          pinService,
		Wallets:       walletService,
		Transactions:  service.NewTransactionService(uowFactory),
		Notifications: notificationService,
		Support:       service.NewSupportService(uowFactory),
		Market:        feed,
	})
	serveErr := srv.Run(ctx, cfg.HTTPAddr)

	log.Info("Shutting down...")
	if err := feed.Stop(); err != nil {
		log.WithError(err).Error("Error stopping market feed")
	}

	// Let in-flight event handlers finish before the sinks and storage close
	done := make(chan struct{})
	go func() {
		eventBus.Wait()
		close(done)
	}()
	select {
	case <-done:
		log.Info("Shutdown completed")
	case <-time.After(10 * time.Second):
		log.Warn("Shutdown timeout exceeded waiting for event handlers")
	}

	return serveErr
}

// configureLogging applies the configured level, with JSON output in production
func configureLogging(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("level", cfg.LogLevel).Warn("Unknown log level, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Environment == "production" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}
