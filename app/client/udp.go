package client

import (
	"context"
	"net"
	"time"

	"github.com/toolkits/pkg/logger"

	"github.com/chenx-dust/sharedptr/buffer"
	"github.com/chenx-dust/sharedptr/config"
	"github.com/chenx-dust/sharedptr/ptr"
	"github.com/chenx-dust/sharedptr/transport"
)

type udpRelay struct {
	addr    *net.UDPAddr
	traffic config.TrafficType

	// guarded by Client.relayMutex; replaced on every reconnect
	session *udpRelaySession
}

// udpRelaySession is one connection attempt to a relay. Its fields never
// change, so goroutines serving it need no locking.
type udpRelaySession struct {
	ctx    context.Context
	cancel context.CancelFunc
	conn   *net.UDPConn
	ch     chan *ptr.Shared[buffer.PackedBuffer]
}

func (s *udpRelaySession) Done() <-chan struct{} {
	return s.ctx.Done()
}

func (s *udpRelaySession) Cancel() {
	s.cancel()
}

func (client *Client) newUDPRelay(server config.RelayServer) (*udpRelay, error) {
	addr, err := net.ResolveUDPAddr("udp", server.Address)
	if err != nil {
		return nil, err
	}
	relay := &udpRelay{addr: addr, traffic: server.Traffic}
	if err := client.connectUDPRelay(relay); err != nil {
		return nil, err
	}
	return relay, nil
}

func (client *Client) connectUDPRelay(relay *udpRelay) error {
	conn, err := net.DialUDP("udp", nil, relay.addr)
	if err != nil {
		return err
	}
	if client.cfg.EnableGRO {
		transport.EnableGRO(conn)
	}
	if client.cfg.EnableGSO {
		transport.EnableGSO(conn)
	}
	ctx, cancel := context.WithCancel(client.ctx)
	session := &udpRelaySession{
		ctx:    ctx,
		cancel: cancel,
		conn:   conn,
		ch:     make(chan *ptr.Shared[buffer.PackedBuffer], client.cfg.ChannelSize),
	}
	client.relayMutex.Lock()
	relay.session = session
	client.relayMutex.Unlock()
	logger.Infof("relay %s connected, traffic: %s", relay.addr, config.TrafficTypeToString(relay.traffic))

	if relay.traffic != config.DownTrafficType {
		client.scatterer.NewOutput(session.ch)
		go transport.SendUDPLoop(session, session.conn, nil, session.ch, client.cfg.EnableGSO)
	}
	if relay.traffic != config.UpTrafficType {
		go client.handleUDPRelayRecv(relay, session)
	}
	go client.handleUDPRelayCancel(relay, session)
	return nil
}

func (client *Client) handleUDPRelayCancel(relay *udpRelay, session *udpRelaySession) {
	<-session.ctx.Done()
	session.conn.Close()
	if relay.traffic != config.DownTrafficType {
		client.scatterer.RemoveOutput(session.ch)
	}
	transport.DrainBuffers(session.ch)

	for client.ctx.Err() == nil {
		select {
		case <-client.ctx.Done():
			return
		case <-time.After(client.cfg.ReconnectDelay):
		}
		err := client.connectUDPRelay(relay)
		if err == nil {
			return
		}
		logger.Warningf("failed to reconnect udp relay %s: %v", relay.addr, err)
	}
}

func (client *Client) handleUDPRelayRecv(relay *udpRelay, session *udpRelaySession) {
	for {
		packets, _, err := transport.ReceiveUDPPackets(session.conn)
		if err != nil {
			if session.ctx.Err() != nil {
				return
			}
			logger.Debugf("error receiving from relay %s: %v", relay.addr, err)
			continue
		}
		client.gatherer.Forward(packets)
	}
}
