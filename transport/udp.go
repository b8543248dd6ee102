package transport

import (
	"net"
	"unsafe"

	"github.com/pkg/errors"
	"github.com/toolkits/pkg/logger"
	"golang.org/x/sys/unix"

	"github.com/chenx-dust/sharedptr/buffer"
	"github.com/chenx-dust/sharedptr/packet"
	"github.com/chenx-dust/sharedptr/ptr"
)

var ErrTruncated = errors.New("packet truncated")

type cancelableContext interface {
	Done() <-chan struct{}
	Cancel()
}

func setUDPOption(conn *net.UDPConn, opt int) error {
	sysconn, err := conn.SyscallConn()
	if err != nil {
		return errors.Wrap(err, "getting syscall conn")
	}
	var sockErr error
	err = sysconn.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.IPPROTO_UDP, opt, 1)
	})
	if err != nil {
		return err
	}
	return sockErr
}

func EnableGRO(conn *net.UDPConn) error {
	err := setUDPOption(conn, unix.UDP_GRO)
	if err != nil {
		logger.Warningf("error enabling GRO: %v", err)
	}
	return err
}

func EnableGSO(conn *net.UDPConn) error {
	err := setUDPOption(conn, unix.UDP_SEGMENT)
	if err != nil {
		logger.Warningf("error enabling GSO: %v", err)
	}
	return err
}

// ReceiveUDPRawPackets reads one datagram, or one GRO batch, into a new
// buffer. On success the caller owns the returned handle.
func ReceiveUDPRawPackets(conn *net.UDPConn) (*ptr.Shared[buffer.PackedBuffer], *net.UDPAddr, error) {
	packedBuffer := buffer.NewPackedBuffer()
	pb := packedBuffer.Get()
	oob := make([]byte, buffer.OOB_SIZE)
	n, oobn, flags, udpAddr, err := conn.ReadMsgUDP(pb.Buffer[:], oob)
	if err != nil {
		packedBuffer.Release()
		return nil, nil, err
	}

	if flags&unix.MSG_TRUNC != 0 {
		logger.Warning("packet truncated, need increase buffer size")
		packedBuffer.Release()
		return nil, nil, ErrTruncated
	}

	packetSize := n
	if oobn > 0 {
		cmsgs, err := unix.ParseSocketControlMessage(oob[:oobn])
		if err != nil {
			packedBuffer.Release()
			return nil, nil, errors.Wrap(err, "parsing socket control message")
		}
		for _, cmsg := range cmsgs {
			if cmsg.Header.Level == unix.IPPROTO_UDP && cmsg.Header.Type == unix.UDP_GRO && len(cmsg.Data) >= 2 {
				packetSize = int(*(*uint16)(unsafe.Pointer(&cmsg.Data[0])))
				break
			}
		}
	}

	if n == 0 || packetSize <= 0 {
		pb.Extend(n)
	} else {
		// the last segment of a GRO batch may be shorter
		for nowPtr := 0; nowPtr < n; nowPtr += packetSize {
			pb.Extend(min(packetSize, n-nowPtr))
		}
	}
	return packedBuffer, udpAddr, nil
}

// ReceiveUDPPackets reads and unpacks relayed packets. The packets point into
// the returned buffer; malformed ones are skipped.
func ReceiveUDPPackets(conn *net.UDPConn) (buffer.WithBuffer[[]*packet.Packet], *net.UDPAddr, error) {
	rawPackets, udpAddr, err := ReceiveUDPRawPackets(conn)
	if err != nil {
		return buffer.WithBuffer[[]*packet.Packet]{}, nil, err
	}

	raws := rawPackets.Get().Packets()
	packets := make([]*packet.Packet, 0, len(raws))
	for _, raw := range raws {
		newPacket, parsed, err := packet.Unpack(raw)
		if err != nil {
			logger.Warningf("error unpacking packet from %s: %v", udpAddr, err)
			continue
		}
		if parsed != len(raw) {
			logger.Warningf("unpacking packet parsed %d, expected %d", parsed, len(raw))
		}
		packets = append(packets, newPacket)
	}
	return buffer.WithBuffer[[]*packet.Packet]{
		Thing:  packets,
		Buffer: rawPackets,
	}, udpAddr, nil
}

// SendUDPPackets writes every sub-packet of pBuffer. dstAddr must be nil for
// connected sockets. With gso set, equally sized sub-packets go out in a
// single segmented send. pBuffer is borrowed.
func SendUDPPackets(conn *net.UDPConn, dstAddr *net.UDPAddr, pBuffer *buffer.PackedBuffer, gso bool) error {
	if len(pBuffer.SubPackets) == 0 {
		return nil
	}
	sameSize := true
	for _, slice := range pBuffer.SubPackets {
		if slice != pBuffer.SubPackets[0] {
			sameSize = false
			break
		}
	}
	if gso && sameSize && len(pBuffer.SubPackets) > 1 {
		oob := make([]byte, unix.CmsgSpace(2))
		cmsgHdr := (*unix.Cmsghdr)(unsafe.Pointer(&oob[0]))
		cmsgHdr.Level = unix.IPPROTO_UDP
		cmsgHdr.Type = unix.UDP_SEGMENT
		cmsgHdr.SetLen(unix.CmsgLen(2))
		*(*uint16)(unsafe.Pointer(&oob[unix.CmsgSpace(0)])) = uint16(pBuffer.SubPackets[0])
		n, _, err := conn.WriteMsgUDP(pBuffer.Bytes(), oob, dstAddr)
		if err != nil {
			return errors.Wrap(err, "sending packet with GSO")
		}
		if n != pBuffer.TotalSize {
			return errors.Errorf("wrote %d bytes instead of %d", n, pBuffer.TotalSize)
		}
		return nil
	}

	for _, p := range pBuffer.Packets() {
		n, _, err := conn.WriteMsgUDP(p, nil, dstAddr)
		if err != nil {
			return errors.Wrap(err, "sending packet")
		}
		if n != len(p) {
			logger.Warningf("error writing to udp: wrote %d bytes instead of %d", n, len(p))
		}
	}
	return nil
}

// SendUDPLoop sends and releases every buffer received on inChan until ctx is
// done or a send fails. Buffers still queued when it returns stay in inChan.
func SendUDPLoop[T cancelableContext](ctx T, conn *net.UDPConn, dstAddr *net.UDPAddr, inChan <-chan *ptr.Shared[buffer.PackedBuffer], gso bool) {
	defer ctx.Cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case pBuffer, ok := <-inChan:
			if !ok {
				return
			}
			err := SendUDPPackets(conn, dstAddr, pBuffer.Get(), gso)
			pBuffer.Release()
			if err != nil {
				logger.Errorf("error sending packet: %v", err)
				return
			}
		}
	}
}

// DrainBuffers releases whatever is left in ch.
func DrainBuffers(ch <-chan *ptr.Shared[buffer.PackedBuffer]) {
	for {
		select {
		case pBuffer, ok := <-ch:
			if !ok {
				return
			}
			pBuffer.Release()
		default:
			return
		}
	}
}
