package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the credential under a single key whose TTL matches the
// credential lifetime, so an expired token disappears on its own.
type RedisStore struct {
	client *redis.Client
	key    string
	now    func() time.Time
}

func NewRedisStore(client *redis.Client, key string) *RedisStore {
	return &RedisStore{
		client: client,
		key:    key,
		now:    time.Now,
	}
}

func (r *RedisStore) Get(ctx context.Context) (Credential, error) {
	data, err := r.client.Get(ctx, credentialKey(r.key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Credential{}, ErrNoCredential
	}
	if err != nil {
		return Credential{}, fmt.Errorf("redis get failed: %w", err)
	}

	var cred Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return Credential{}, fmt.Errorf("unmarshal credential failed: %w", err)
	}
	return cred, nil
}

func (r *RedisStore) Set(ctx context.Context, cred Credential) error {
	data, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("marshal credential failed: %w", err)
	}

	var ttl time.Duration
	if !cred.ExpiresAt.IsZero() {
		ttl = cred.ExpiresAt.Sub(r.now())
		if ttl <= 0 {
			return fmt.Errorf("credential already expired at %s", cred.ExpiresAt.Format(time.RFC3339))
		}
	}

	if err := r.client.Set(ctx, credentialKey(r.key), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisStore) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, credentialKey(r.key)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func credentialKey(key string) string {
	return fmt.Sprintf("gymcart:%s", key)
}
