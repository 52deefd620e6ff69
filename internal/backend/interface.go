package backend

import (
	"context"

	"fincontrol/internal/kv"
	"fincontrol/internal/ledger"
)

// CleanupFunc releases resources held by a backend.
type CleanupFunc func() error

// Result is everything the application needs from the storage layer.
type Result struct {
	Store kv.Store
	// Notifier is nil when change events are disabled.
	Notifier ledger.Notifier
	Cleanup  CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	Create(ctx context.Context, cfg Config) (*Result, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type Type

	// Memory specific
	SeedDirectory string

	// SQLite specific
	SQLiteDBPath string

	// Redis specific
	RedisURL       string
	RedisKeyPrefix string

	// Change events (optional for every type)
	AMQPURL        string
	AMQPExchange   string
	AMQPRoutingKey string
}

// Type names a kv.Store implementation.
type Type string

const (
	SQLite Type = "sqlite"
	Redis  Type = "redis"
	Memory Type = "memory"
)

// String implements fmt.Stringer
func (t Type) String() string {
	return string(t)
}

// IsValid returns true if the backend type is valid
func (t Type) IsValid() bool {
	switch t {
	case SQLite, Redis, Memory:
		return true
	default:
		return false
	}
}
