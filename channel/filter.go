package channel

import (
	"sync"
	"sync/atomic"
)

const idHalf = 0x8000

type idWindow struct {
	seen  [idHalf]bool
	dirty bool
}

// PacketFilter remembers recently seen packet IDs. The 16-bit ID space is
// split into two windows. Once IDs reach the second quarter of one window the
// other is wiped, so wrapped IDs are not taken for duplicates.
// The zero value is ready to use.
type PacketFilter struct {
	mu      sync.Mutex
	windows [2]idWindow
}

func NewPacketFilter() *PacketFilter {
	return &PacketFilter{}
}

// CheckDuplicatePacketID reports whether id was already seen, and marks it seen.
func (pf *PacketFilter) CheckDuplicatePacketID(id uint16) bool {
	half, off := id/idHalf, id%idHalf

	pf.mu.Lock()
	defer pf.mu.Unlock()
	cur := &pf.windows[half]
	dup := cur.seen[off]
	cur.seen[off] = true
	cur.dirty = true

	if off >= idHalf/2 {
		if other := &pf.windows[1-half]; other.dirty {
			*other = idWindow{}
		}
	}
	return dup
}

// NewPacketID hands out sequential IDs, wrapping at 16 bits.
func NewPacketID(idIncrement *atomic.Uint32) uint16 {
	return uint16(idIncrement.Add(1) - 1)
}
