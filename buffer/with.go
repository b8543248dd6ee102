package buffer

import "github.com/chenx-dust/sharedptr/ptr"

// WithBuffer pairs a value that points into a PackedBuffer with a handle
// keeping that buffer alive.
type WithBuffer[T any] struct {
	Thing  T
	Buffer *ptr.Shared[PackedBuffer]
}

func (wb *WithBuffer[T]) Release() {
	if wb.Buffer != nil {
		wb.Buffer.Release()
	}
}

// Share returns a copy of wb holding its own reference to the buffer.
func (wb *WithBuffer[T]) Share() WithBuffer[T] {
	return WithBuffer[T]{
		Thing:  wb.Thing,
		Buffer: wb.Buffer.Clone(),
	}
}
