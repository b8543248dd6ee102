package buffer

import (
	"sync"
	"sync/atomic"

	"github.com/chenx-dust/sharedptr/ptr"
)

const (
	BUFFER_SIZE = 65535
	OOB_SIZE    = 64
)

// PackedBuffer holds one or more packets laid out back to back. It is only
// ever handed around through a *ptr.Shared; the last owner returns it to the
// pool.
type PackedBuffer struct {
	Buffer     [BUFFER_SIZE]byte
	SubPackets []int
	TotalSize  int
}

var packedBufferPool = sync.Pool{
	New: func() interface{} {
		return &PackedBuffer{
			SubPackets: make([]int, 0),
		}
	},
}

// ActiveBuffers counts buffers taken from the pool and not yet returned.
var ActiveBuffers atomic.Int64

func NewPackedBuffer() *ptr.Shared[PackedBuffer] {
	buffer := packedBufferPool.Get().(*PackedBuffer)
	buffer.SubPackets = buffer.SubPackets[:0]
	buffer.TotalSize = 0
	ActiveBuffers.Add(1)
	return ptr.NewShared(buffer)
}

// Release is called by the owning handle when its use count drops to zero.
// Do not call it directly.
func (p *PackedBuffer) Release() {
	ActiveBuffers.Add(-1)
	packedBufferPool.Put(p)
}

// Append copies data in as a new sub-packet. It returns false if it does not fit.
func (p *PackedBuffer) Append(data []byte) bool {
	if p.TotalSize+len(data) > BUFFER_SIZE {
		return false
	}
	copy(p.Buffer[p.TotalSize:], data)
	p.SubPackets = append(p.SubPackets, len(data))
	p.TotalSize += len(data)
	return true
}

// Extend records a sub-packet of size bytes already written at the tail.
func (p *PackedBuffer) Extend(size int) {
	p.SubPackets = append(p.SubPackets, size)
	p.TotalSize += size
}

// Tail returns the unused space after the last sub-packet.
func (p *PackedBuffer) Tail() []byte {
	return p.Buffer[p.TotalSize:]
}

func (p *PackedBuffer) Bytes() []byte {
	return p.Buffer[:p.TotalSize]
}

// Packets returns the sub-packets as slices into the buffer; they are only
// valid while the caller still owns a handle to p.
func (p *PackedBuffer) Packets() [][]byte {
	packets := make([][]byte, 0, len(p.SubPackets))
	nowPtr := 0
	for _, size := range p.SubPackets {
		packets = append(packets, p.Buffer[nowPtr:nowPtr+size])
		nowPtr += size
	}
	return packets
}
