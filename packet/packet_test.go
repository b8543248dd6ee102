package packet

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackUnpack(t *testing.T) {
	p := &Packet{Buffer: []byte("payload"), ConnID: 0x1234, PacketID: 0xbeef}
	packed := p.Pack()
	require.Len(t, packed, HEADER_SIZE+7)
	assert.Equal(t, byte(MAGIC_NUMBER), packed[0])

	got, n, err := Unpack(packed)
	require.NoError(t, err)
	assert.Equal(t, len(packed), n)
	assert.Equal(t, p, got)
}

func TestPackToMatchesPack(t *testing.T) {
	p := &Packet{Buffer: []byte{1, 2, 3}, ConnID: 1, PacketID: 2}
	dst := make([]byte, 64)
	n, err := p.PackTo(dst)
	require.NoError(t, err)
	assert.Equal(t, p.Pack(), dst[:n])

	_, err = p.PackTo(make([]byte, HEADER_SIZE))
	assert.ErrorIs(t, err, ErrShortBuffer)
}

func TestUnpackConsecutive(t *testing.T) {
	a := (&Packet{Buffer: []byte("a"), PacketID: 1}).Pack()
	b := (&Packet{Buffer: []byte("bb"), PacketID: 2}).Pack()
	stream := append(append([]byte{}, a...), b...)

	first, n, err := Unpack(stream)
	require.NoError(t, err)
	assert.Equal(t, "a", string(first.Buffer))
	second, _, err := Unpack(stream[n:])
	require.NoError(t, err)
	assert.Equal(t, "bb", string(second.Buffer))
	assert.Equal(t, uint16(2), second.PacketID)
}

func TestUnpackErrors(t *testing.T) {
	good := (&Packet{Buffer: []byte("data")}).Pack()

	_, _, err := Unpack(good[:3])
	assert.ErrorIs(t, err, ErrShortBuffer)

	bad := append([]byte{}, good...)
	bad[0] = 0
	_, _, err = Unpack(bad)
	assert.ErrorIs(t, err, ErrInvalidMagic)

	bad = append([]byte{}, good...)
	bad[3] ^= 0xff
	_, _, err = Unpack(bad)
	assert.ErrorIs(t, err, ErrInvalidChecksum)

	_, _, err = Unpack(good[:len(good)-1])
	assert.Equal(t, ErrInvalidLength, errors.Cause(err))
}

func TestPacketStatistic(t *testing.T) {
	s := NewPacketStatistic()
	s.CountPacket(10)
	s.CountPacket(20)

	pkg, band := s.GetAndReset()
	assert.Equal(t, uint64(2), pkg)
	assert.Equal(t, uint64(30), band)

	pkg, band = s.GetAndReset()
	assert.Zero(t, pkg)
	assert.Zero(t, band)

	pkg, band = s.Total()
	assert.Equal(t, uint64(2), pkg)
	assert.Equal(t, uint64(30), band)
}
