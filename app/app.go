package app

import (
	"context"
	"net"
	"sync/atomic"
	"time"

	"github.com/toolkits/pkg/logger"

	"github.com/chenx-dust/sharedptr/buffer"
	"github.com/chenx-dust/sharedptr/channel"
	"github.com/chenx-dust/sharedptr/packet"
	"github.com/chenx-dust/sharedptr/ptr"
)

type App interface {
	Run() error
	Close() error
	Addr() net.Addr
}

// Pack wraps every sub-packet of src in a relay header and lays the results
// out in as few new buffers as needed. src is borrowed; the caller owns the
// returned handles.
func Pack(src *buffer.PackedBuffer, connID uint16, idIncrement *atomic.Uint32) []*ptr.Shared[buffer.PackedBuffer] {
	var out []*ptr.Shared[buffer.PackedBuffer]
	cur := buffer.NewPackedBuffer()
	for _, raw := range src.Packets() {
		newPacket := &packet.Packet{
			Buffer:   raw,
			ConnID:   connID,
			PacketID: channel.NewPacketID(idIncrement),
		}
		n, err := newPacket.PackTo(cur.Get().Tail())
		if err != nil && cur.Get().TotalSize > 0 {
			out = append(out, cur)
			cur = buffer.NewPackedBuffer()
			n, err = newPacket.PackTo(cur.Get().Tail())
		}
		if err != nil {
			logger.Warningf("dropping oversized packet: %d bytes", len(raw))
			continue
		}
		cur.Get().Extend(n)
	}
	if cur.Get().TotalSize > 0 {
		out = append(out, cur)
	} else {
		cur.Release()
	}
	return out
}

// ReportLoop logs the rate of each statistic every interval until ctx is done.
func ReportLoop(ctx context.Context, interval time.Duration, stats map[string]*packet.PacketStatistic) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		for name, stat := range stats {
			pkg, band := stat.GetAndReset()
			logger.Infof("%s: %d packets, %d bytes in %s, %.2f MB/s", name, pkg, band, interval, float64(band)/interval.Seconds()/1024/1024)
		}
		st := ptr.Stats()
		logger.Infof("active buffers: %d, live values: %d, live counters: %d", buffer.ActiveBuffers.Load(), st.LiveValues, st.LiveCounters)
	}
}
