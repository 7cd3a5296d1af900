package record

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each user record as a JSON string under prefix+storageID.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore constructs a store over an existing client.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(storageID string) string {
	return s.prefix + storageID
}

func (s *RedisStore) Get(ctx context.Context, storageID string) (User, error) {
	data, err := s.client.Get(ctx, s.key(storageID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("get storage record: %w", err)
	}

	var user User
	if err := json.Unmarshal(data, &user); err != nil {
		return User{}, fmt.Errorf("decode storage record: %w", err)
	}
	return user, nil
}

func (s *RedisStore) Create(ctx context.Context, user User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode storage record: %w", err)
	}

	created, err := s.client.SetNX(ctx, s.key(user.StorageID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("create storage record: %w", err)
	}
	if !created {
		return ErrAlreadyExists
	}
	return nil
}

func (s *RedisStore) Put(ctx context.Context, user User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode storage record: %w", err)
	}

	updated, err := s.client.SetXX(ctx, s.key(user.StorageID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("update storage record: %w", err)
	}
	if !updated {
		return ErrNotFound
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
