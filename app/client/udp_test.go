package client

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chenx-dust/sharedptr/buffer"
	"github.com/chenx-dust/sharedptr/config"
	"github.com/chenx-dust/sharedptr/packet"
)

func newTestClient(t *testing.T, relayAddr string) *Client {
	cli, err := NewClient(&config.Config{
		Mode:       config.ClientMode,
		ListenAddr: "127.0.0.1:0",
		RelayServers: []config.RelayServer{
			{Address: relayAddr, Traffic: config.BothTrafficType},
		},
		ChannelSize:    8,
		ReconnectDelay: 10 * time.Millisecond,
		ScatterType:    config.ConcurrentScatterType,
	})
	require.NoError(t, err)
	require.NoError(t, cli.Listen())
	t.Cleanup(func() { cli.Close() })
	return cli
}

func (client *Client) currentSession(i int) *udpRelaySession {
	client.relayMutex.Lock()
	defer client.relayMutex.Unlock()
	return client.relays[i].session
}

func TestRelayReconnectsWithNewSession(t *testing.T) {
	relay, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer relay.Close()

	cli := newTestClient(t, relay.LocalAddr().String())
	first := cli.currentSession(0)
	first.Cancel()

	require.Eventually(t, func() bool {
		return cli.currentSession(0) != first
	}, 2*time.Second, 5*time.Millisecond)
	second := cli.currentSession(0)
	assert.Error(t, first.ctx.Err())
	assert.NoError(t, second.ctx.Err())
	assert.Eventually(t, func() bool {
		return cli.Scatterer().Outputs() == 1
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, cli.Close())
	assert.Error(t, second.ctx.Err())
}

func TestCloseReleasesQueuedBatches(t *testing.T) {
	relay, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer relay.Close()

	before := buffer.ActiveBuffers.Load()
	cli := newTestClient(t, relay.LocalAddr().String())
	for id := uint16(1); id <= 3; id++ {
		cli.Gatherer().Forward(buffer.WithBuffer[[]*packet.Packet]{
			Thing:  []*packet.Packet{{Buffer: []byte("queued"), PacketID: id}},
			Buffer: buffer.NewPackedBuffer(),
		})
	}
	require.Equal(t, before+3, buffer.ActiveBuffers.Load())

	require.NoError(t, cli.Close())
	assert.Equal(t, before, buffer.ActiveBuffers.Load())
}
