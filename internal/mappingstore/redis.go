package mappingstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/north-cloud/search-admin/infrastructure/retry"
	"github.com/jonesrussell/north-cloud/search-admin/internal/domain"
)

// RedisBackend keeps the document as a JSON string under one key. Updates
// use WATCH/MULTI and are retried when another writer wins the race.
type RedisBackend struct {
	client *redis.Client
	key    string
	retry  retry.Config
}

// NewRedisBackend returns a backend for key. maxAttempts bounds the
// optimistic transaction retries.
func NewRedisBackend(client *redis.Client, key string, maxAttempts int) *RedisBackend {
	return &RedisBackend{
		client: client,
		key:    key,
		retry: retry.Config{
			MaxAttempts:  maxAttempts,
			InitialDelay: 5 * time.Millisecond,
			MaxDelay:     200 * time.Millisecond,
			Multiplier:   2.0,
			IsRetryable: func(err error) bool {
				return errors.Is(err, redis.TxFailedErr)
			},
		},
	}
}

func (b *RedisBackend) Load(ctx context.Context) (domain.MappingDocument, error) {
	raw, err := b.client.Get(ctx, b.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.MappingDocument{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", b.key, err)
	}
	return decodeDocument(raw)
}

func (b *RedisBackend) Update(
	ctx context.Context,
	mutate func(domain.MappingDocument) (domain.MappingDocument, error),
) error {
	return retry.Retry(ctx, b.retry, func() error {
		return b.client.Watch(ctx, func(tx *redis.Tx) error {
			raw, err := tx.Get(ctx, b.key).Bytes()
			if err != nil && !errors.Is(err, redis.Nil) {
				return fmt.Errorf("get %s: %w", b.key, err)
			}

			doc, err := decodeDocument(raw)
			if err != nil {
				return err
			}

			next, err := mutate(doc)
			if err != nil {
				return err
			}

			encoded, err := encodeDocument(next)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, b.key, encoded, 0)
				return nil
			})
			return err
		}, b.key)
	})
}

func (b *RedisBackend) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}
