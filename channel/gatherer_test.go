package channel

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chenx-dust/sharedptr/buffer"
	"github.com/chenx-dust/sharedptr/packet"
)

func batch(t *testing.T, ids ...uint16) buffer.WithBuffer[[]*packet.Packet] {
	b := buffer.NewPackedBuffer()
	packets := make([]*packet.Packet, 0, len(ids))
	for _, id := range ids {
		require.True(t, b.Get().Append([]byte{byte(id)}))
		packets = append(packets, &packet.Packet{Buffer: []byte{byte(id)}, PacketID: id})
	}
	return buffer.WithBuffer[[]*packet.Packet]{Thing: packets, Buffer: b}
}

func TestGathererDropsDuplicates(t *testing.T) {
	before := buffer.ActiveBuffers.Load()
	g := NewGatherer(4)

	g.Forward(batch(t, 1, 2))
	g.Forward(batch(t, 2, 3))
	g.Forward(batch(t, 1, 3))

	var ids []uint16
	for i := 0; i < 2; i++ {
		wb := <-g.GetOutChan()
		for _, p := range wb.Thing {
			ids = append(ids, p.PacketID)
		}
		wb.Release()
	}
	assert.Equal(t, []uint16{1, 2, 3}, ids)
	assert.Empty(t, g.GetOutChan())
	assert.Equal(t, before, buffer.ActiveBuffers.Load())
}

func TestGathererReleasesWhenFull(t *testing.T) {
	before := buffer.ActiveBuffers.Load()
	g := NewGatherer(1)
	g.Forward(batch(t, 10))
	g.Forward(batch(t, 11))

	wb := <-g.GetOutChan()
	assert.Equal(t, uint16(10), wb.Thing[0].PacketID)
	wb.Release()
	assert.Equal(t, before, buffer.ActiveBuffers.Load())
}

func TestGathererDrain(t *testing.T) {
	before := buffer.ActiveBuffers.Load()
	g := NewGatherer(4)
	g.Forward(batch(t, 20))
	g.Forward(batch(t, 21))
	require.Len(t, g.GetOutChan(), 2)
	require.Equal(t, before+2, buffer.ActiveBuffers.Load())

	g.Drain()
	assert.Empty(t, g.GetOutChan())
	assert.Equal(t, before, buffer.ActiveBuffers.Load())

	// draining an empty gatherer returns at once
	g.Drain()
}

func TestPacketFilter(t *testing.T) {
	pf := NewPacketFilter()
	assert.False(t, pf.CheckDuplicatePacketID(5))
	assert.True(t, pf.CheckDuplicatePacketID(5))

	// the first quarter of the high window leaves the low window alone
	assert.False(t, pf.CheckDuplicatePacketID(0x9000))
	assert.True(t, pf.CheckDuplicatePacketID(5))

	// the second quarter of the low window wipes the high window
	assert.False(t, pf.CheckDuplicatePacketID(0x4000))
	assert.False(t, pf.CheckDuplicatePacketID(0x9000))

	// and the second quarter of the high window wipes the low one
	assert.False(t, pf.CheckDuplicatePacketID(0xC000))
	assert.False(t, pf.CheckDuplicatePacketID(5))
	assert.False(t, pf.CheckDuplicatePacketID(0x4000))
}

func TestPacketFilterZeroValue(t *testing.T) {
	var pf PacketFilter
	for id := 0; id <= 0xffff; id += 0x1000 {
		assert.False(t, pf.CheckDuplicatePacketID(uint16(id)))
	}
	assert.True(t, pf.CheckDuplicatePacketID(0xf000))
}

func TestNewPacketIDWraps(t *testing.T) {
	var inc atomic.Uint32
	inc.Store(0xffff)
	assert.Equal(t, uint16(0xffff), NewPacketID(&inc))
	assert.Equal(t, uint16(0), NewPacketID(&inc))
}
