/* Gatherer is a MISO channel that drops duplicate packets. */
package channel

import (
	"github.com/chenx-dust/sharedptr/buffer"
	"github.com/chenx-dust/sharedptr/packet"
)

type Gatherer struct {
	gather  *PacketFilter
	chanOut chan buffer.WithBuffer[[]*packet.Packet]

	StatisticIn  *packet.PacketStatistic
	StatisticOut *packet.PacketStatistic
}

func NewGatherer(chanSize int) *Gatherer {
	return &Gatherer{
		gather:       NewPacketFilter(),
		chanOut:      make(chan buffer.WithBuffer[[]*packet.Packet], chanSize),
		StatisticIn:  packet.NewPacketStatistic(),
		StatisticOut: packet.NewPacketStatistic(),
	}
}

// GetOutChan yields batches whose buffer the receiver must release.
func (ch *Gatherer) GetOutChan() <-chan buffer.WithBuffer[[]*packet.Packet] {
	return ch.chanOut
}

// Forward takes ownership of newPackets.
func (ch *Gatherer) Forward(newPackets buffer.WithBuffer[[]*packet.Packet]) {
	inSize := 0
	outSize := 0
	fwdPackets := make([]*packet.Packet, 0, len(newPackets.Thing))
	for _, newPacket := range newPackets.Thing {
		inSize += len(newPacket.Buffer)
		if ch.gather.CheckDuplicatePacketID(newPacket.PacketID) {
			continue
		}
		outSize += len(newPacket.Buffer)
		fwdPackets = append(fwdPackets, newPacket)
	}
	ch.StatisticIn.CountPacket(uint32(inSize))
	if len(fwdPackets) == 0 {
		newPackets.Release()
		return
	}
	data := buffer.WithBuffer[[]*packet.Packet]{
		Thing:  fwdPackets,
		Buffer: newPackets.Buffer,
	}
	select {
	case ch.chanOut <- data:
		ch.StatisticOut.CountPacket(uint32(outSize))
	default:
		data.Release()
	}
}

// Drain releases every batch still queued on the output channel. Call it once
// the receiver has stopped.
func (ch *Gatherer) Drain() {
	for {
		select {
		case data := <-ch.chanOut:
			data.Release()
		default:
			return
		}
	}
}
