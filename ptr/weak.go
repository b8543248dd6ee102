package ptr

// Weak is a non-owning handle. It keeps the control block alive but never the
// value.
type Weak[T any] struct {
	c *counter[T]
	_ noCopy
}

// NewWeak returns a handle observing the value owned by s. An empty s yields
// an empty handle.
func NewWeak[T any](s *Shared[T]) *Weak[T] {
	w := &Weak[T]{c: s.c}
	if w.c != nil {
		w.c.incWeak()
	}
	return w
}

// Clone returns a new handle observing the same value as w.
func (w *Weak[T]) Clone() *Weak[T] {
	n := &Weak[T]{c: w.c}
	if n.c != nil {
		n.c.incWeak()
	}
	return n
}

// Assign stops observing the current value and observes other's instead.
func (w *Weak[T]) Assign(other *Weak[T]) {
	if w == other {
		return
	}
	w.adopt(other.c)
}

// AssignShared stops observing the current value and observes the one owned
// by s.
func (w *Weak[T]) AssignShared(s *Shared[T]) {
	w.adopt(s.c)
}

func (w *Weak[T]) adopt(c *counter[T]) {
	// take the new reference first so adopting the current block never frees it
	if c != nil {
		c.incWeak()
	}
	w.release()
	w.c = c
}

// Reset stops observing and leaves w empty. Switching to another value takes
// a Reset followed by Assign or AssignShared.
func (w *Weak[T]) Reset() {
	w.release()
}

// Release is Reset; it exists so a Weak can be dropped with defer like a Shared.
func (w *Weak[T]) Release() {
	w.release()
}

func (w *Weak[T]) release() {
	if w.c == nil {
		return
	}
	c := w.c
	w.c = nil
	c.decWeak()
}

// Lock returns a Shared owning the observed value, or an empty Shared if the
// value has already been dropped or w is empty.
func (w *Weak[T]) Lock() *Shared[T] {
	s := &Shared[T]{}
	if w.c != nil && w.c.tryIncStrong() {
		s.c = w.c
	}
	return s
}

// Expired reports whether w is empty or its value has been dropped.
func (w *Weak[T]) Expired() bool {
	return w.c == nil || w.c.strongCount() == 0
}

// UseCount returns the number of Weak handles observing the value, or 0 if w
// is empty. It is not a liveness signal; see Expired.
func (w *Weak[T]) UseCount() int {
	if w.c == nil {
		return 0
	}
	return w.c.weakCount()
}
