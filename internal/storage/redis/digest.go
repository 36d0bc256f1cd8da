// Package redis keeps the fetch digest in Redis so several sessions on one host share change detection
package redis

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/go-redis/redis/v8"
	"github.com/robotomize/kawase/internal/storage"
)

const DefaultKey = "kawase:last_fetch_digest"

var _ storage.DigestStore = (*DigestStore)(nil)

type DigestStore struct {
	client *goredis.Client
	key    string
}

// NewDigestStore uses DefaultKey when key is empty
func NewDigestStore(client *goredis.Client, key string) *DigestStore {
	if key == "" {
		key = DefaultKey
	}

	return &DigestStore{client: client, key: key}
}

// LastFetchDigest returns an empty digest when nothing was stored yet
func (s *DigestStore) LastFetchDigest(ctx context.Context) (string, error) {
	val, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", nil
	}

	if err != nil {
		return "", fmt.Errorf("redis get %s: %w", s.key, err)
	}

	return val, nil
}

func (s *DigestStore) SetLastFetchDigest(ctx context.Context, digest string) error {
	if err := s.client.Set(ctx, s.key, digest, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.key, err)
	}

	return nil
}
