package backend

import (
	"fmt"

	"fincontrol/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	t := Type(appConfig.DataBackend)
	if !t.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type:           t,
		SeedDirectory:  appConfig.MemorySeedDir,
		SQLiteDBPath:   appConfig.SQLiteDBPath,
		RedisURL:       appConfig.RedisURL,
		RedisKeyPrefix: appConfig.RedisKeyPrefix,
		AMQPURL:        appConfig.AMQPURL,
		AMQPExchange:   appConfig.AMQPExchange,
		AMQPRoutingKey: appConfig.AMQPRoutingKey,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLite:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case Redis:
		if c.RedisURL == "" {
			return fmt.Errorf("Redis URL is required for redis backend")
		}
	case Memory:
		// Seed directory is optional.
	}

	if c.AMQPURL != "" && (c.AMQPExchange == "" || c.AMQPRoutingKey == "") {
		return fmt.Errorf("AMQP exchange and routing key are required when AMQP is enabled")
	}
	return nil
}

// Types returns all valid backend types
func Types() []Type {
	return []Type{SQLite, Redis, Memory}
}
