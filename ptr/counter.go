package ptr

import (
	"fmt"
	"sync/atomic"
)

// Releaser is implemented by pointees that own something beyond their memory,
// e.g. a pooled buffer or a socket. Release is called exactly once, by the
// handle whose release drops the strong count to zero.
type Releaser interface {
	Release()
}

// counter is the control block shared by every handle to one pointee.
//
// weak counts the live Weak handles plus one implicit reference held by the
// strong group while strong > 0. The block is therefore dead only when weak
// reaches zero, and that decrement is the one that observes both counts at zero.
type counter[T any] struct {
	strong atomic.Int32
	weak   atomic.Int32
	ptr    atomic.Pointer[T]
}

func newCounter[T any](p *T) *counter[T] {
	c := &counter[T]{}
	c.strong.Store(1)
	c.weak.Store(1)
	c.ptr.Store(p)
	liveValues.Add(1)
	liveCounters.Add(1)
	return c
}

func (c *counter[T]) incStrong() {
	if n := c.strong.Add(1); n <= 1 {
		panic(fmt.Errorf("ptr: invalid strong count %d", n))
	}
}

// tryIncStrong increments strong only while the pointee is alive.
func (c *counter[T]) tryIncStrong() bool {
	for {
		n := c.strong.Load()
		if n <= 0 {
			return false
		}
		if c.strong.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// forceIncStrong increments strong unconditionally. Reviving a dead block
// re-takes the implicit weak reference; the pointee stays nil.
func (c *counter[T]) forceIncStrong() {
	if c.strong.Add(1) == 1 {
		c.weak.Add(1)
	}
}

func (c *counter[T]) decStrong() {
	n := c.strong.Add(-1)
	if n < 0 {
		panic(fmt.Errorf("ptr: invalid strong count %d", n))
	}
	if n > 0 {
		return
	}
	if p := c.ptr.Swap(nil); p != nil {
		liveValues.Add(-1)
		if r, ok := any(p).(Releaser); ok {
			r.Release()
		}
	}
	c.decWeak()
}

func (c *counter[T]) incWeak() {
	c.weak.Add(1)
}

func (c *counter[T]) decWeak() {
	n := c.weak.Add(-1)
	if n < 0 {
		panic(fmt.Errorf("ptr: invalid weak count %d", n))
	}
	if n == 0 {
		liveCounters.Add(-1)
	}
}

func (c *counter[T]) strongCount() int {
	return int(c.strong.Load())
}

// weakCount reports observers only, without the implicit strong-group reference.
func (c *counter[T]) weakCount() int {
	n := c.weak.Load()
	if c.strong.Load() > 0 {
		n--
	}
	return int(n)
}
