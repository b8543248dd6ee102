package server

import (
	"context"
	"net"
	"time"

	"github.com/toolkits/pkg/logger"

	"github.com/chenx-dust/sharedptr/buffer"
	"github.com/chenx-dust/sharedptr/ptr"
	"github.com/chenx-dust/sharedptr/transport"
)

// udpConnContext is one relay path back to a client.
type udpConnContext struct {
	ctx    context.Context
	cancel context.CancelFunc
	addr   *net.UDPAddr
	timer  *time.Timer
	conn   *net.UDPConn
	ch     chan *ptr.Shared[buffer.PackedBuffer]
}

func (ctx *udpConnContext) Done() <-chan struct{} {
	return ctx.ctx.Done()
}

func (ctx *udpConnContext) Cancel() {
	ctx.cancel()
}

func (server *Server) newUDPConnContext(addr *net.UDPAddr) *udpConnContext {
	ctx, cancel := context.WithCancel(server.ctx)
	newCtx := &udpConnContext{
		ctx:    ctx,
		cancel: cancel,
		addr:   addr,
		timer:  time.NewTimer(server.cfg.UDPTimeout),
		conn:   server.udpListener,
		ch:     make(chan *ptr.Shared[buffer.PackedBuffer], server.cfg.ChannelSize),
	}
	server.scatterer.NewOutput(newCtx.ch)
	go server.handleUDPConnContextCancel(newCtx)
	go server.handleUDPConnTimeout(newCtx)
	go transport.SendUDPLoop(newCtx, newCtx.conn, newCtx.addr, newCtx.ch, server.cfg.EnableGSO)
	server.sourceUDPAddrs[addr.String()] = newCtx
	return newCtx
}

func (server *Server) handleUDPConnContextCancel(ctx *udpConnContext) {
	<-ctx.ctx.Done()
	logger.Infof("closing udp connection: %s", ctx.addr)
	ctx.timer.Stop()
	server.scatterer.RemoveOutput(ctx.ch)
	transport.DrainBuffers(ctx.ch)
	server.sourceMutex.Lock()
	if server.sourceUDPAddrs[ctx.addr.String()] == ctx {
		delete(server.sourceUDPAddrs, ctx.addr.String())
	}
	server.sourceMutex.Unlock()
}

func (server *Server) handleUDPListener() error {
	for {
		packets, udpAddr, err := transport.ReceiveUDPPackets(server.udpListener)
		if err != nil {
			if server.ctx.Err() != nil {
				return nil
			}
			logger.Warningf("error receiving udp packets: %v", err)
			continue
		}

		server.handleUDPAddr(udpAddr)
		server.gatherer.Forward(packets)
	}
}

func (server *Server) handleUDPAddr(addr *net.UDPAddr) {
	server.sourceMutex.RLock()
	ctx, ok := server.sourceUDPAddrs[addr.String()]
	server.sourceMutex.RUnlock()
	if ok {
		ctx.timer.Reset(server.cfg.UDPTimeout)
		return
	}

	server.sourceMutex.Lock()
	defer server.sourceMutex.Unlock()
	if _, ok := server.sourceUDPAddrs[addr.String()]; ok {
		return
	}
	logger.Infof("new udp connection from %s", addr)
	server.newUDPConnContext(addr)
}

func (server *Server) handleUDPConnTimeout(ctx *udpConnContext) {
	select {
	case <-ctx.timer.C:
		ctx.cancel()
	case <-ctx.ctx.Done():
		return
	}
}
