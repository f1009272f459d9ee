package ports

import "context"

// Storage is the durable key-value backend behind the token store. Get
// returns an error wrapping domain.ErrKeyNotFound when the key is absent.
type Storage interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
}
