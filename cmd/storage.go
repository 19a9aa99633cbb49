package cmd

import (
	"context"
	"fmt"

	"noblechain/config"
	"noblechain/database"
	"noblechain/events"
	"noblechain/infrastructure"
	"noblechain/kvstore"
	"noblechain/repository"
	"noblechain/repository/kvrepo"
	"noblechain/service"

	log "github.com/sirupsen/logrus"
)

// openStorage builds the unit of work factory for the configured backend.
// The returned func releases the backend's connections.
func openStorage(ctx context.Context, cfg *config.Config, bus *events.Bus) (service.UnitOfWorkFactory, func(), error) {
	switch cfg.StorageBackend {
	case config.StoragePostgres:
		databaseURL := cfg.GetDatabaseURL()
		log.Info("Running database migrations...")
		if err := database.MigrateUp(databaseURL); err != nil {
			return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}

		db, err := database.NewConnection(ctx, databaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		log.Info("Database connection established successfully")
		return repository.NewUnitOfWorkFactory(db, bus), db.Close, nil

	case config.StorageRedis:
		store, err := kvstore.NewRedisStore(cfg.RedisAddrs, cfg.RedisPassword, cfg.RedisNamespace)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create redis store: %w", err)
		}
		if err := store.Ping(ctx); err != nil {
			store.Close()
			return nil, nil, fmt.Errorf("failed to reach redis: %w", err)
		}
		log.WithField("addrs", cfg.RedisAddrs).Info("Redis store connected")
		return kvrepo.NewUnitOfWorkFactory(store, bus), closeLogged("redis store", store.Close), nil

	default:
		log.Warn("Using in-memory storage; data is lost on restart")
		store := kvstore.NewMemoryStore()
		return kvrepo.NewUnitOfWorkFactory(store, bus), closeLogged("memory store", store.Close), nil
	}
}

// attachEventSink forwards committed events to the configured message bus
func attachEventSink(ctx context.Context, cfg *config.Config, bus *events.Bus) (func(), error) {
	mapper := infrastructure.NewEventSubjectMapper()

	switch cfg.EventSink {
	case config.EventSinkNATS:
		client := infrastructure.NewNATSClient(cfg.NATSServers)
		if err := client.Connect(ctx); err != nil {
			return nil, err
		}
		if err := client.EnsureEventStream(mapper.GetAllSubjects()); err != nil {
			client.Close()
			return nil, err
		}
		infrastructure.NewEventForwarder(client, mapper).Attach(bus)
		return closeLogged("nats client", client.Close), nil

	case config.EventSinkKafka:
		publisher := infrastructure.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		infrastructure.NewEventForwarder(publisher, mapper).Attach(bus)
		log.WithFields(log.Fields{
			"brokers": cfg.KafkaBrokers,
			"topic":   cfg.KafkaTopic,
		}).Info("Forwarding events to Kafka")
		return closeLogged("kafka publisher", publisher.Close), nil

	default:
		return func() {}, nil
	}
}

func closeLogged(name string, closeFn func() error) func() {
	return func() {
		if err := closeFn(); err != nil {
			log.WithFields(log.Fields{
				"resource": name,
				"error":    err,
			}).Error("Error closing resource")
		}
	}
}
