// Package scoring contains the three retrieval models (bm25, langmodel,
// vsm) and the Holder that publishes their immutable indexes.
package scoring

import (
	"sync"
	"sync/atomic"

	apperrors "github.com/Adithya-Monish-Kumar-K/tri-model-search/pkg/errors"
)

// Holder publishes an immutable built value. Builds are serialized; readers
// never block and always see either the previous or the new value in full.
type Holder[T any] struct {
	mu         sync.Mutex
	current    atomic.Pointer[T]
	generation atomic.Uint64
}

// Rebuild runs build under the build lock and publishes its result. On
// error the previously published value stays in place.
func (h *Holder[T]) Rebuild(build func() (*T, error)) (*T, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	v, err := build()
	if err != nil {
		return nil, err
	}
	h.current.Store(v)
	h.generation.Add(1)
	return v, nil
}

// Load returns the published value or ErrIndexNotBuilt.
func (h *Holder[T]) Load() (*T, error) {
	v := h.current.Load()
	if v == nil {
		return nil, apperrors.ErrIndexNotBuilt
	}
	return v, nil
}

// Generation counts successful builds. It changes whenever the published
// value does.
func (h *Holder[T]) Generation() uint64 {
	return h.generation.Load()
}
