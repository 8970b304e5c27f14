package engine

import (
	"context"

	"github.com/tetratelabs/wazero/api"
)

// Caller is passed to host function bodies. It gives access to the store's
// host datum and to the exports of the calling instance, and may be used as
// the StoreContext of nested calls.
type Caller[T any] struct {
	ctx    context.Context
	store  *Store[T]
	module api.Module
}

// Data returns a copy of the host datum
func (c *Caller[T]) Data() T { return c.store.data }

// DataMut returns a pointer to the host datum
func (c *Caller[T]) DataMut() *T { return &c.store.data }

// Context returns the context of the running call. Nested calls made with it
// are recorded into the same trace as the outer call.
func (c *Caller[T]) Context() context.Context { return c.ctx }

// GetExport looks up an export of the calling instance. It returns nil when
// the function was called from Go rather than from a guest.
func (c *Caller[T]) GetExport(name string) Extern {
	return exportOf(c.store.core, c.module, name)
}

func (c *Caller[T]) state() *storeState { return c.store.core }
