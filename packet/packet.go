package packet

import (
	"github.com/pkg/errors"
	"github.com/sigurn/crc8"
)

const (
	MAGIC_NUMBER = 0xa1
	HEADER_SIZE  = 8
)

var (
	ErrInvalidMagic    = errors.New("invalid magic number")
	ErrInvalidChecksum = errors.New("invalid checksum")
	ErrInvalidLength   = errors.New("invalid packet length")
	ErrShortBuffer     = errors.New("buffer too short")
)

var table = crc8.MakeTable(crc8.CRC8_MAXIM)

// Packet is a relayed datagram. After Unpack, Buffer aliases the input, so
// it lives as long as whoever owns that input.
type Packet struct {
	Buffer   []byte
	ConnID   uint16
	PacketID uint16
}

func (p *Packet) Pack() []byte {
	packed := make([]byte, HEADER_SIZE+len(p.Buffer))
	p.putHeader(packed)
	copy(packed[HEADER_SIZE:], p.Buffer)
	return packed
}

// PackTo writes the packed form of p into dst and returns its length.
func (p *Packet) PackTo(dst []byte) (int, error) {
	n := HEADER_SIZE + len(p.Buffer)
	if len(dst) < n {
		return 0, ErrShortBuffer
	}
	p.putHeader(dst)
	copy(dst[HEADER_SIZE:], p.Buffer)
	return n, nil
}

func (p *Packet) putHeader(dst []byte) {
	dst[0] = MAGIC_NUMBER
	dst[1] = byte(len(p.Buffer))
	dst[2] = byte(len(p.Buffer) >> 8)
	dst[3] = byte(p.ConnID)
	dst[4] = byte(p.ConnID >> 8)
	dst[5] = byte(p.PacketID)
	dst[6] = byte(p.PacketID >> 8)
	dst[7] = crc8.Checksum(dst[:HEADER_SIZE-1], table)
}

// Unpack parses the packet at the head of buffer and returns it with the
// number of bytes consumed.
func Unpack(buffer []byte) (packet *Packet, n int, err error) {
	if len(buffer) < HEADER_SIZE {
		return nil, 0, ErrShortBuffer
	}
	if buffer[0] != MAGIC_NUMBER {
		return nil, 0, ErrInvalidMagic
	}
	crc := crc8.Checksum(buffer[:HEADER_SIZE-1], table)
	if crc != buffer[HEADER_SIZE-1] {
		return nil, 0, ErrInvalidChecksum
	}
	length := int(buffer[1]) | int(buffer[2])<<8
	if length+HEADER_SIZE > len(buffer) {
		return nil, 0, errors.Wrapf(ErrInvalidLength, "header says %d, have %d", length, len(buffer)-HEADER_SIZE)
	}
	n = HEADER_SIZE + length
	packet = &Packet{
		Buffer:   buffer[HEADER_SIZE:n],
		ConnID:   uint16(buffer[3]) | uint16(buffer[4])<<8,
		PacketID: uint16(buffer[5]) | uint16(buffer[6])<<8,
	}
	return
}
