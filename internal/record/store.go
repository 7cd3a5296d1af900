package record

import "context"

// Store persists whole user records keyed by storage id. Every mutation is a
// full-record replace; implementations offer no partial updates.
type Store interface {
	Get(ctx context.Context, storageID string) (User, error)
	Create(ctx context.Context, user User) error
	Put(ctx context.Context, user User) error
	Ping(ctx context.Context) error
}
