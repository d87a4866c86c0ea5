package backend

import (
	"context"
	"fmt"

	"coinkeeper/internal/amqp"
	"coinkeeper/internal/log"
	"coinkeeper/internal/services"
	"coinkeeper/internal/storage"
	"coinkeeper/internal/storage/memory"
	"coinkeeper/internal/storage/postgres"
	"coinkeeper/internal/storage/sqlite"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	store, err := f.createStore(ctx, config)
	if err != nil {
		return nil, err
	}

	// AMQP is optional; the ledger keeps working without events.
	var (
		client    *amqp.Client
		publisher services.EventPublisher
	)
	if config.AMQPURL != "" {
		client, err = amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without events", log.FieldError, err)
			client = nil
		} else {
			publisher = client
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	ledger := services.NewLedgerService(store, publisher, f.logger)

	f.logger.Info("Initialized backend",
		"type", config.Type.String(),
		"amqp_enabled", client != nil)

	return &BackendResult{
		Store:     store,
		Ledger:    ledger,
		Publisher: client,
		Cleanup:   ledger.Close,
	}, nil
}

func (f *DefaultFactory) createStore(ctx context.Context, config Config) (storage.Store, error) {
	switch config.Type {
	case SQLiteBackend:
		repo, err := sqlite.New(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite store", "db_path", config.SQLiteDBPath)
		return repo, nil
	case PostgresBackend:
		repo, err := postgres.New(ctx, config.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres repository: %w", err)
		}
		return repo, nil
	case MemoryBackend:
		f.logger.Warn("Using in-memory store, data is lost on exit")
		return memory.NewSeeded(), nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}
