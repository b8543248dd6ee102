package server

import (
	"net"

	"github.com/pkg/errors"
	"github.com/toolkits/pkg/logger"

	"github.com/chenx-dust/sharedptr/app"
	"github.com/chenx-dust/sharedptr/ptr"
	"github.com/chenx-dust/sharedptr/transport"
)

// forwardConn is the socket talking to the remote on behalf of one client
// connection. Closing it is tied to the last strong reference going away.
type forwardConn struct {
	connID uint16
	conn   *net.UDPConn
}

func (fc *forwardConn) Release() {
	fc.conn.Close()
}

// getForwardConn returns a reference the caller must release.
func (server *Server) getForwardConn(connID uint16) (*ptr.Shared[forwardConn], error) {
	server.forwardMutex.Lock()
	defer server.forwardMutex.Unlock()
	if fc, ok := server.forwardConns.Get(connID); ok {
		return fc.Clone(), nil
	}
	if server.ctx.Err() != nil {
		return nil, net.ErrClosed
	}

	conn, err := net.DialUDP("udp", nil, server.remoteAddr)
	if err != nil {
		return nil, err
	}
	if server.cfg.EnableGRO {
		transport.EnableGRO(conn)
	}
	fc := ptr.NewShared(&forwardConn{connID: connID, conn: conn})
	server.forwardConns.Add(connID, fc)
	go server.handleReverse(conn, connID, fc.Weak())
	return fc.Clone(), nil
}

func (server *Server) handleForward() {
	for {
		select {
		case <-server.ctx.Done():
			return
		case packets := <-server.gatherer.GetOutChan():
			for _, newPacket := range packets.Thing {
				fc, err := server.getForwardConn(newPacket.ConnID)
				if err != nil {
					logger.Warningf("error dialing remote for conn %d: %v", newPacket.ConnID, err)
					continue
				}
				_, err = fc.Get().conn.Write(newPacket.Buffer)
				fc.Release()
				if err != nil {
					logger.Warningf("error writing to udp: %v", err)
				}
			}
			packets.Release()
		}
	}
}

// handleReverse reads replies from the remote. It borrows conn and only
// observes the owning forwardConn, so once the last owner lets go the socket
// closes and the loop ends.
func (server *Server) handleReverse(conn *net.UDPConn, connID uint16, weak *ptr.Weak[forwardConn]) {
	defer weak.Release()
	for {
		rawPackets, _, err := transport.ReceiveUDPRawPackets(conn)
		if err != nil {
			if weak.Expired() || errors.Is(err, net.ErrClosed) {
				logger.Debugf("forward conn %d closed", connID)
				return
			}
			logger.Debugf("error receiving from remote: %v", err)
			continue
		}
		for _, packed := range app.Pack(rawPackets.Get(), connID, &server.idIncrement) {
			server.scatterer.Scatter(packed)
		}
		rawPackets.Release()
	}
}
