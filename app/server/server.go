package server

import (
	"context"
	"net"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/toolkits/pkg/logger"

	"github.com/chenx-dust/sharedptr/app"
	"github.com/chenx-dust/sharedptr/channel"
	"github.com/chenx-dust/sharedptr/config"
	"github.com/chenx-dust/sharedptr/packet"
	"github.com/chenx-dust/sharedptr/ptr"
	"github.com/chenx-dust/sharedptr/transport"
)

type Server struct {
	cfg         *config.Config
	ctx         context.Context
	cancel      context.CancelFunc
	udpListener *net.UDPConn
	remoteAddr  *net.UDPAddr

	gatherer    *channel.Gatherer
	scatterer   *channel.Scatterer
	idIncrement atomic.Uint32

	sourceMutex    sync.RWMutex
	sourceUDPAddrs map[string]*udpConnContext

	// the cache owns one strong reference per conn; eviction drops it
	forwardMutex sync.Mutex
	forwardConns *lru.Cache[uint16, *ptr.Shared[forwardConn]]
}

func NewServer(cfg *config.Config) (*Server, error) {
	scatterer, err := channel.NewScatterer(cfg.ScatterType)
	if err != nil {
		return nil, err
	}
	forwardConns, err := lru.NewWithEvict(cfg.ForwardConnLimit, func(connID uint16, fc *ptr.Shared[forwardConn]) {
		logger.Infof("dropping forward conn %d", connID)
		fc.Release()
	})
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		cfg:            cfg,
		ctx:            ctx,
		cancel:         cancel,
		gatherer:       channel.NewGatherer(cfg.ChannelSize),
		scatterer:      scatterer,
		forwardConns:   forwardConns,
		sourceUDPAddrs: make(map[string]*udpConnContext),
	}, nil
}

func (server *Server) Listen() error {
	var err error
	server.remoteAddr, err = net.ResolveUDPAddr("udp", server.cfg.RemoteAddr)
	if err != nil {
		return err
	}
	udpAddr, err := net.ResolveUDPAddr("udp", server.cfg.ListenAddr)
	if err != nil {
		return err
	}
	server.udpListener, err = net.ListenUDP("udp", udpAddr)
	if err != nil {
		return err
	}
	if server.cfg.EnableGRO {
		transport.EnableGRO(server.udpListener)
	}
	if server.cfg.EnableGSO {
		transport.EnableGSO(server.udpListener)
	}
	logger.Infof("listening on %s", server.udpListener.LocalAddr())
	logger.Infof("forwarding to %s", server.remoteAddr)
	return nil
}

func (server *Server) Serve() error {
	go server.handleForward()
	if server.cfg.ReportInterval > 0 {
		go app.ReportLoop(server.ctx, server.cfg.ReportInterval, map[string]*packet.PacketStatistic{
			"scatter in":  server.scatterer.StatisticIn,
			"scatter out": server.scatterer.StatisticOut,
			"gather in":   server.gatherer.StatisticIn,
			"gather out":  server.gatherer.StatisticOut,
		})
	}
	return server.handleUDPListener()
}

func (server *Server) Run() error {
	logger.Info("running server")
	if err := server.Listen(); err != nil {
		return err
	}
	return server.Serve()
}

func (server *Server) Addr() net.Addr {
	return server.udpListener.LocalAddr()
}

func (server *Server) Close() error {
	server.cancel()
	server.sourceMutex.RLock()
	for _, ctx := range server.sourceUDPAddrs {
		ctx.Cancel()
	}
	server.sourceMutex.RUnlock()

	server.forwardMutex.Lock()
	server.forwardConns.Purge()
	server.forwardMutex.Unlock()
	server.gatherer.Drain()

	if server.udpListener != nil {
		return server.udpListener.Close()
	}
	return nil
}

func (server *Server) Scatterer() *channel.Scatterer {
	return server.scatterer
}

func (server *Server) Gatherer() *channel.Gatherer {
	return server.gatherer
}
