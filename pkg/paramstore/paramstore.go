// Package paramstore provides durable key-value storage for small
// configuration values such as the resolved memory resource id.
package paramstore

import (
	"context"
	"errors"
)

// ErrNotFound indicates the parameter does not exist in the backing store.
var ErrNotFound = errors.New("parameter not found")

// Client reads and writes parameters by path.
type Client interface {
	Get(ctx context.Context, name string) (string, error)
	Put(ctx context.Context, name, value string) error
}
