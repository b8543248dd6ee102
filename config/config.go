package config

import "time"

type AppMode int
type ScatterType int
type TrafficType int

const (
	NotDefined AppMode = iota
	ClientMode
	ServerMode
)

const (
	NotDefinedScatterType ScatterType = iota
	RoundRobinScatterType
	ConcurrentScatterType
)

const (
	BothTrafficType TrafficType = iota
	UpTrafficType
	DownTrafficType
)

type Config struct {
	Mode             AppMode
	ListenAddr       string
	RemoteAddr       string        // not necessary in ClientMode
	RelayServers     []RelayServer // only used in ClientMode
	ChannelSize      int
	ReportInterval   time.Duration
	ReconnectDelay   time.Duration // only used in ClientMode
	UDPTimeout       time.Duration // only used in ServerMode
	ScatterType      ScatterType
	EnableGRO        bool
	EnableGSO        bool
	ForwardConnLimit int // only used in ServerMode
	MetricsAddr      string
	Log              LogConfig
}

type RelayServer struct {
	Address string
	Traffic TrafficType
}

type LogConfig struct {
	Dir        string
	Level      string
	Output     string
	KeepHours  uint
	RotateNum  int
	RotateSize uint64
}

func ModeToString(mode AppMode) string {
	switch mode {
	case ClientMode:
		return "client"
	case ServerMode:
		return "server"
	default:
		return "unknown"
	}
}

func ScatterTypeToString(scatterType ScatterType) string {
	switch scatterType {
	case RoundRobinScatterType:
		return "round-robin"
	case ConcurrentScatterType:
		return "concurrent"
	default:
		return "unknown"
	}
}

func TrafficTypeToString(trafficType TrafficType) string {
	switch trafficType {
	case BothTrafficType:
		return "both"
	case UpTrafficType:
		return "up"
	case DownTrafficType:
		return "down"
	default:
		return "unknown"
	}
}
