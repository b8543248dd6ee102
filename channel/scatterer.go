/* Scatterer is a SIMO channel. Every output gets its own reference to the same buffer. */
package channel

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/toolkits/pkg/logger"

	"github.com/chenx-dust/sharedptr/buffer"
	"github.com/chenx-dust/sharedptr/config"
	"github.com/chenx-dust/sharedptr/packet"
	"github.com/chenx-dust/sharedptr/ptr"
)

var ErrOutputNotFound = errors.New("channel not found")

type Scatterer struct {
	connMutex     sync.Mutex
	outChans      []chan<- *ptr.Shared[buffer.PackedBuffer]
	roundRobinIdx int
	mode          config.ScatterType

	StatisticIn  *packet.PacketStatistic
	StatisticOut *packet.PacketStatistic
}

func NewScatterer(mode config.ScatterType) (*Scatterer, error) {
	if mode == config.NotDefinedScatterType {
		return nil, errors.New("scatterer mode not defined")
	}
	logger.Infof("new scatterer with mode: %s", config.ScatterTypeToString(mode))
	return &Scatterer{
		outChans:     make([]chan<- *ptr.Shared[buffer.PackedBuffer], 0),
		mode:         mode,
		StatisticIn:  packet.NewPacketStatistic(),
		StatisticOut: packet.NewPacketStatistic(),
	}, nil
}

func (d *Scatterer) NewOutput(ch chan<- *ptr.Shared[buffer.PackedBuffer]) {
	d.connMutex.Lock()
	defer d.connMutex.Unlock()
	d.outChans = append(d.outChans, ch)
}

// RemoveOutput detaches ch. The caller keeps ownership of ch and of any
// handles still queued in it.
func (d *Scatterer) RemoveOutput(ch chan<- *ptr.Shared[buffer.PackedBuffer]) error {
	d.connMutex.Lock()
	defer d.connMutex.Unlock()
	for i := 0; i < len(d.outChans); i++ {
		if d.outChans[i] == ch {
			d.outChans[i] = d.outChans[len(d.outChans)-1]
			d.outChans = d.outChans[:len(d.outChans)-1]
			return nil
		}
	}
	return ErrOutputNotFound
}

func (d *Scatterer) Outputs() int {
	d.connMutex.Lock()
	defer d.connMutex.Unlock()
	return len(d.outChans)
}

// Scatter takes ownership of data. Outputs that are full drop their copy.
func (d *Scatterer) Scatter(data *ptr.Shared[buffer.PackedBuffer]) {
	defer data.Release()
	size := uint32(data.Get().TotalSize)
	d.StatisticIn.CountPacket(size)
	d.connMutex.Lock()
	defer d.connMutex.Unlock()
	if len(d.outChans) == 0 {
		return
	}
	switch d.mode {
	case config.RoundRobinScatterType:
		d.roundRobinIdx = (d.roundRobinIdx + 1) % len(d.outChans)
		d.send(d.outChans[d.roundRobinIdx], data, size)
	case config.ConcurrentScatterType:
		for _, outChan := range d.outChans {
			d.send(outChan, data, size)
		}
	}
}

func (d *Scatterer) send(outChan chan<- *ptr.Shared[buffer.PackedBuffer], data *ptr.Shared[buffer.PackedBuffer], size uint32) {
	sharingData := data.Clone()
	select {
	case outChan <- sharingData:
		d.StatisticOut.CountPacket(size)
	default:
		sharingData.Release()
	}
}
