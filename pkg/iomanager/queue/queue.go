// Package queue implements the fabric's three bounded, typed queue variants
// (deque, SPSC ring, MPMC ring) behind one common interface, plus the
// registry that lazily instantiates them from a preconfigured catalog.
package queue

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrTimeout is returned by Push/Pop when the deadline elapses before
	// the operation could complete.
	ErrTimeout = errors.New("queue: timed out")
)

// Queue is the common, element-type-parameterized contract every variant
// implements. Elements are move-only on the hot path: Push takes the value
// by copy (Go has no move semantics) but callers must not retain aliases
// into a pushed struct's internal slices/pointers, matching the C++
// move-only discipline this is ported from.
type Queue[T any] interface {
	// GetCapacity returns the fixed capacity set at construction.
	GetCapacity() int

	// GetNumElements returns a *hint*: a racy, lock-free-or-briefly-locked
	// read of the current size, never guaranteed to still hold by the time
	// the caller acts on it.
	GetNumElements() int

	// CanPush is a hint; never hold a lock across this check in a hot path.
	CanPush() bool

	// CanPop is a hint.
	CanPop() bool

	// Push blocks until there is space or timeout elapses, returning
	// ErrTimeout in the latter case.
	Push(ctx context.Context, value T, timeout time.Duration) error

	// Pop blocks until an element is available or timeout elapses,
	// returning ErrTimeout in the latter case.
	Pop(ctx context.Context, timeout time.Duration) (T, error)

	// TryPush is the non-throwing form: it never returns an error, only
	// whether the push succeeded within timeout. It does not report why a
	// push failed.
	TryPush(ctx context.Context, value T, timeout time.Duration) bool

	// TryPop is the non-throwing form of Pop.
	TryPop(ctx context.Context, timeout time.Duration) (T, bool)
}
