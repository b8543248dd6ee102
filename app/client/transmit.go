package client

import (
	"net"

	"github.com/pkg/errors"
	"github.com/toolkits/pkg/logger"

	"github.com/chenx-dust/sharedptr/app"
	"github.com/chenx-dust/sharedptr/packet"
	"github.com/chenx-dust/sharedptr/transport"
)

func (client *Client) connID(addr *net.UDPAddr) uint16 {
	key := addr.String()
	client.connMutex.RLock()
	connID, ok := client.connAddrIDMap[key]
	client.connMutex.RUnlock()
	if ok {
		return connID
	}

	client.connMutex.Lock()
	defer client.connMutex.Unlock()
	if connID, ok = client.connAddrIDMap[key]; ok {
		return connID
	}
	connID = uint16(client.connIncrement.Add(1) - 1)
	client.connIDAddrMap[connID] = addr
	client.connAddrIDMap[key] = connID
	logger.Infof("new connection from: %s", key)
	return connID
}

func (client *Client) handleForward() error {
	for {
		rawPackets, addr, err := transport.ReceiveUDPRawPackets(client.udpListener)
		if err != nil {
			if client.ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			logger.Warningf("error reading from udp conn: %v", err)
			continue
		}

		connID := client.connID(addr)
		for _, packed := range app.Pack(rawPackets.Get(), connID, &client.idIncrement) {
			client.scatterer.Scatter(packed)
		}
		rawPackets.Release()
	}
}

func (client *Client) reverseLoop() {
	for {
		select {
		case <-client.ctx.Done():
			return
		case packets := <-client.gatherer.GetOutChan():
			for _, newPacket := range packets.Thing {
				client.handleReverse(newPacket)
			}
			packets.Release()
		}
	}
}

func (client *Client) handleReverse(newPacket *packet.Packet) {
	client.connMutex.RLock()
	udpAddr, ok := client.connIDAddrMap[newPacket.ConnID]
	client.connMutex.RUnlock()
	if !ok {
		logger.Warningf("conn %d not found", newPacket.ConnID)
		return
	}
	n, err := client.udpListener.WriteToUDP(newPacket.Buffer, udpAddr)
	if err != nil {
		logger.Warningf("error writing to udp: %v", err)
	} else if n != len(newPacket.Buffer) {
		logger.Warningf("error writing to udp: wrote %d bytes instead of %d", n, len(newPacket.Buffer))
	}
}
