// Package registry records jobs in the durable jobs registry so that later
// requests, and later processes, can find them by identity.
//
// ARCHITECTURE: adapter over a pluggable byte store
// - Backend stores opaque encoded records keyed by job identity
// - Adapter encodes and decodes jobs, keeps resident jobs in memory, and
//   reconciles stored status against derived status on load
// - Each Adapter operation maps to exactly one Backend call; no retries
package registry

import (
	"context"

	"github.com/google/uuid"
)

// Backend names accepted by configuration.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Backend is the external jobs registry: a single logical store of encoded
// job records. Implementations make each call atomic on their own.
type Backend interface {
	// Put stores data under id, replacing any previous record.
	Put(ctx context.Context, id uuid.UUID, data []byte) error

	// Get returns the record stored under id, or an error wrapping
	// errors.ErrNotFound if there is none.
	Get(ctx context.Context, id uuid.UUID) ([]byte, error)

	// Remove deletes the record under id. Removing a missing record is not an error.
	Remove(ctx context.Context, id uuid.UUID) error

	// Keys lists the identities with a stored record.
	Keys(ctx context.Context) ([]uuid.UUID, error)

	// Name identifies the backend in logs.
	Name() string
}
