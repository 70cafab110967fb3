package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"ledgerbridge/internal/amqp"
	"ledgerbridge/internal/storage"
	"ledgerbridge/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var store Backend
	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
		store = repo
	case MemoryBackend:
		f.logger.Warn("Initialized memory backend, state is lost on restart")
		store = memory.New()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	if err := store.Ping(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("backend not reachable: %w", err)
	}

	result := &BackendResult{Backend: store}

	// AMQP is optional; without it sync cycles run inline.
	if config.AMQPURL != "" {
		broker, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, running sync inline", "error", err)
		} else {
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
			result.Broker = broker
		}
	}

	result.Cleanup = func() error {
		var errs []error
		if result.Broker != nil {
			errs = append(errs, result.Broker.Close())
		}
		errs = append(errs, store.Close())
		return errors.Join(errs...)
	}
	return result, nil
}
