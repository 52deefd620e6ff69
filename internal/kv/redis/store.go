// Package redis is a kv.Store backend that keeps each key as a Redis string
// under a namespace prefix.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"fincontrol/internal/kv"
	"fincontrol/internal/log"
)

const scanBatch = 100

type Store struct {
	client goredis.UniversalClient
	prefix string
	logger *log.Logger
}

// New wraps an existing client. prefix namespaces every key, so Clear only
// touches keys this store owns.
func New(client goredis.UniversalClient, prefix string, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Discard()
	}
	return &Store{
		client: client,
		prefix: prefix,
		logger: logger.WithComponent(log.ComponentKV).With(log.FieldBackend, "redis"),
	}
}

// Connect parses a redis:// or rediss:// URL and checks the server answers.
func Connect(ctx context.Context, url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := goredis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (s *Store) key(k string) string {
	return s.prefix + k
}

func (s *Store) Get(ctx context.Context, key string) (json.RawMessage, bool) {
	val, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false
	}
	if err != nil {
		s.fail(ctx, log.OpGet, key, err)
		return nil, false
	}
	if !json.Valid(val) {
		s.fail(ctx, log.OpGet, key, errors.New("stored value is not valid JSON"))
		return nil, false
	}
	return json.RawMessage(val), true
}

func (s *Store) Set(ctx context.Context, key string, value any) bool {
	b, err := json.Marshal(value)
	if err != nil {
		s.fail(ctx, log.OpSet, key, err)
		return false
	}
	if err := s.client.Set(ctx, s.key(key), b, 0).Err(); err != nil {
		s.fail(ctx, log.OpSet, key, err)
		return false
	}
	return true
}

// SetMany implements kv.Batcher with a MULTI/EXEC transaction.
func (s *Store) SetMany(ctx context.Context, values map[string]any) bool {
	encoded, err := kv.Encode(values)
	if err != nil {
		s.fail(ctx, log.OpSet, "", err)
		return false
	}
	_, err = s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		for k, b := range encoded {
			pipe.Set(ctx, s.key(k), b, 0)
		}
		return nil
	})
	if err != nil {
		s.fail(ctx, log.OpSet, "", err)
		return false
	}
	return true
}

func (s *Store) Remove(ctx context.Context, key string) bool {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		s.fail(ctx, log.OpRemove, key, err)
		return false
	}
	return true
}

func (s *Store) Clear(ctx context.Context) bool {
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.prefix+"*", scanBatch).Result()
		if err != nil {
			s.fail(ctx, log.OpClear, "", err)
			return false
		}
		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				s.fail(ctx, log.OpClear, "", err)
				return false
			}
		}
		cursor = next
		if cursor == 0 {
			return true
		}
	}
}

func (s *Store) fail(ctx context.Context, op, key string, err error) {
	s.logger.ErrorContext(ctx, "Redis key-value operation failed",
		log.FieldOperation, op,
		log.FieldKey, key,
		log.FieldError, err)
}
