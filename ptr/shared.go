package ptr

// noCopy lets go vet's copylocks check flag handles copied by value.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Shared is a strong, owning handle.
type Shared[T any] struct {
	c *counter[T]
	_ noCopy
}

// NewShared takes ownership of p. A nil p yields an empty handle.
func NewShared[T any](p *T) *Shared[T] {
	s := &Shared[T]{}
	if p != nil {
		s.c = newCounter(p)
	}
	return s
}

// Make allocates a copy of v and owns it.
func Make[T any](v T) *Shared[T] {
	return NewShared(&v)
}

// SharedFromWeak promotes w without checking that its value is still alive:
// the strong count is incremented even if it had already dropped to zero.
// Such a handle holds no value and Get returns nil. Prefer Weak.Lock unless
// the caller independently knows the value is alive.
func SharedFromWeak[T any](w *Weak[T]) *Shared[T] {
	s := &Shared[T]{c: w.c}
	if s.c != nil {
		s.c.forceIncStrong()
	}
	return s
}

// Clone returns a new handle sharing ownership with s.
func (s *Shared[T]) Clone() *Shared[T] {
	n := &Shared[T]{c: s.c}
	if n.c != nil {
		n.c.incStrong()
	}
	return n
}

// Assign drops what s owns and shares ownership with other instead.
func (s *Shared[T]) Assign(other *Shared[T]) {
	if s == other || s.c == other.c {
		return
	}
	s.release()
	s.c = other.c
	if s.c != nil {
		s.c.incStrong()
	}
}

// Reset drops what s owns and, if p is not nil, takes ownership of p.
// Resetting to the value s already owns is a no-op.
func (s *Shared[T]) Reset(p *T) {
	if s.c != nil && p != nil && s.c.ptr.Load() == p {
		return
	}
	s.release()
	if p != nil {
		s.c = newCounter(p)
	}
}

// Release drops what s owns and leaves it empty. Releasing an empty handle
// is a no-op, so it is safe to defer.
func (s *Shared[T]) Release() {
	s.release()
}

func (s *Shared[T]) release() {
	if s.c == nil {
		return
	}
	c := s.c
	s.c = nil
	c.decStrong()
}

// Get returns the owned value. s must not be empty; Get panics otherwise.
func (s *Shared[T]) Get() *T {
	return s.c.ptr.Load()
}

// Value returns a copy of the owned value. s must not be empty.
func (s *Shared[T]) Value() T {
	return *s.Get()
}

// UseCount returns the number of Shared handles owning the value, or 0 if s
// is empty.
func (s *Shared[T]) UseCount() int {
	if s.c == nil {
		return 0
	}
	return s.c.strongCount()
}

// Empty reports whether s owns nothing.
func (s *Shared[T]) Empty() bool {
	return s.c == nil
}

// Weak returns a new Weak handle observing s.
func (s *Shared[T]) Weak() *Weak[T] {
	return NewWeak(s)
}
