package backend

import (
	"context"
	"errors"
	"fmt"

	"fincontrol/internal/amqp"
	"fincontrol/internal/kv/memory"
	kvredis "fincontrol/internal/kv/redis"
	"fincontrol/internal/kv/sqlite"
	"fincontrol/internal/log"
)

// amqpConnectAttempts bounds startup retries against the broker.
const amqpConnectAttempts = 3

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// Create opens the configured store and, when enabled, the change event
// publisher. A broker that cannot be reached is logged and skipped; the
// ledger works without it.
func (f *DefaultFactory) Create(ctx context.Context, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var res *Result
	var err error
	switch cfg.Type {
	case SQLite:
		res, err = f.createSQLite(cfg)
	case Redis:
		res, err = f.createRedis(ctx, cfg)
	case Memory:
		res, err = f.createMemory(cfg)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", cfg.Type)
	}
	if err != nil {
		return nil, err
	}

	if cfg.AMQPURL != "" {
		client, err := amqp.Connect(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey, amqpConnectAttempts, f.logger)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without change events", log.FieldError, err)
		} else {
			f.logger.Info("Initialized AMQP client",
				"exchange", cfg.AMQPExchange,
				"routing_key", cfg.AMQPRoutingKey)
			res.Notifier = client
			res.Cleanup = chain(client.Close, res.Cleanup)
		}
	}

	return res, nil
}

func (f *DefaultFactory) createSQLite(cfg Config) (*Result, error) {
	store, err := sqlite.Open(cfg.SQLiteDBPath, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
	}
	f.logger.Info("Initialized SQLite backend", "db_path", cfg.SQLiteDBPath)
	return &Result{Store: store, Cleanup: store.Close}, nil
}

func (f *DefaultFactory) createRedis(ctx context.Context, cfg Config) (*Result, error) {
	client, err := kvredis.Connect(ctx, cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Redis store: %w", err)
	}
	f.logger.Info("Initialized Redis backend", "key_prefix", cfg.RedisKeyPrefix)
	return &Result{
		Store:   kvredis.New(client, cfg.RedisKeyPrefix, f.logger),
		Cleanup: client.Close,
	}, nil
}

func (f *DefaultFactory) createMemory(cfg Config) (*Result, error) {
	if cfg.SeedDirectory == "" {
		f.logger.Info("Initialized memory backend")
		return &Result{Store: memory.New(f.logger)}, nil
	}
	f.logger.Info("Initialized memory backend", "seed_directory", cfg.SeedDirectory)
	return &Result{Store: memory.NewFromFiles(cfg.SeedDirectory, f.logger)}, nil
}

// chain runs every non-nil cleanup in order and joins their errors.
func chain(fns ...CleanupFunc) CleanupFunc {
	return func() error {
		var errs []error
		for _, fn := range fns {
			if fn == nil {
				continue
			}
			if err := fn(); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
}
