package client

import (
	"context"
	"net"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/toolkits/pkg/logger"

	"github.com/chenx-dust/sharedptr/app"
	"github.com/chenx-dust/sharedptr/channel"
	"github.com/chenx-dust/sharedptr/config"
	"github.com/chenx-dust/sharedptr/packet"
	"github.com/chenx-dust/sharedptr/transport"
)

type Client struct {
	cfg    *config.Config
	ctx    context.Context
	cancel context.CancelFunc

	gatherer    *channel.Gatherer
	scatterer   *channel.Scatterer
	idIncrement atomic.Uint32

	udpListener *net.UDPConn

	relayMutex sync.Mutex
	relays     []*udpRelay

	connMutex     sync.RWMutex
	connIncrement atomic.Uint32
	connIDAddrMap map[uint16]*net.UDPAddr
	connAddrIDMap map[string]uint16
}

func NewClient(cfg *config.Config) (*Client, error) {
	scatterer, err := channel.NewScatterer(cfg.ScatterType)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		cfg:           cfg,
		ctx:           ctx,
		cancel:        cancel,
		gatherer:      channel.NewGatherer(cfg.ChannelSize),
		scatterer:     scatterer,
		connIDAddrMap: make(map[uint16]*net.UDPAddr),
		connAddrIDMap: make(map[string]uint16),
	}, nil
}

// Listen binds the local socket and dials the relays.
func (client *Client) Listen() error {
	udpAddr, err := net.ResolveUDPAddr("udp", client.cfg.ListenAddr)
	if err != nil {
		return err
	}
	client.udpListener, err = net.ListenUDP("udp", udpAddr)
	if err != nil {
		return err
	}
	if client.cfg.EnableGRO {
		transport.EnableGRO(client.udpListener)
	}
	if client.cfg.EnableGSO {
		transport.EnableGSO(client.udpListener)
	}
	logger.Infof("listening on %s", client.udpListener.LocalAddr())

	for _, server := range client.cfg.RelayServers {
		relay, err := client.newUDPRelay(server)
		if err != nil {
			return errors.WithMessagef(err, "dialing relay %s", server.Address)
		}
		client.relayMutex.Lock()
		client.relays = append(client.relays, relay)
		client.relayMutex.Unlock()
	}
	return nil
}

// Serve forwards traffic until Close is called.
func (client *Client) Serve() error {
	go client.reverseLoop()
	if client.cfg.ReportInterval > 0 {
		go app.ReportLoop(client.ctx, client.cfg.ReportInterval, map[string]*packet.PacketStatistic{
			"scatter in":  client.scatterer.StatisticIn,
			"scatter out": client.scatterer.StatisticOut,
			"gather in":   client.gatherer.StatisticIn,
			"gather out":  client.gatherer.StatisticOut,
		})
	}
	return client.handleForward()
}

func (client *Client) Run() error {
	logger.Info("running client")
	if err := client.Listen(); err != nil {
		return err
	}
	return client.Serve()
}

func (client *Client) Addr() net.Addr {
	return client.udpListener.LocalAddr()
}

func (client *Client) Close() error {
	client.cancel()
	client.relayMutex.Lock()
	for _, relay := range client.relays {
		relay.session.Cancel()
	}
	client.relayMutex.Unlock()
	client.gatherer.Drain()
	if client.udpListener != nil {
		return client.udpListener.Close()
	}
	return nil
}

func (client *Client) Scatterer() *channel.Scatterer {
	return client.scatterer
}

func (client *Client) Gatherer() *channel.Gatherer {
	return client.gatherer
}
