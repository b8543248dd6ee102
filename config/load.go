package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

// fileConfig is the on-disk layout shared by the JSON and TOML formats.
type fileConfig struct {
	Mode             string            `json:"mode" toml:"mode"`
	ListenAddr       string            `json:"listen_addr" toml:"listen_addr"`
	RemoteAddr       string            `json:"remote_addr,omitempty" toml:"remote_addr"`
	RelayServers     []fileRelayServer `json:"relay_servers,omitempty" toml:"relay_servers"`
	ChannelSize      *int              `json:"channel_size,omitempty" toml:"channel_size"`
	ReportInterval   *string           `json:"report_interval,omitempty" toml:"report_interval"`
	ReconnectDelay   *string           `json:"reconnect_delay,omitempty" toml:"reconnect_delay"`
	UDPTimeout       *string           `json:"udp_timeout,omitempty" toml:"udp_timeout"`
	ScatterType      *string           `json:"scatter_type,omitempty" toml:"scatter_type"`
	EnableGRO        bool              `json:"enable_gro,omitempty" toml:"enable_gro"`
	EnableGSO        bool              `json:"enable_gso,omitempty" toml:"enable_gso"`
	ForwardConnLimit *int              `json:"forward_conn_limit,omitempty" toml:"forward_conn_limit"`
	MetricsAddr      string            `json:"metrics_addr,omitempty" toml:"metrics_addr"`
	Log              *fileLogConfig    `json:"log,omitempty" toml:"log"`
}

type fileRelayServer struct {
	Addr    string  `json:"addr" toml:"addr"`
	Traffic *string `json:"traffic,omitempty" toml:"traffic"`
}

type fileLogConfig struct {
	Dir        string `json:"dir" toml:"dir"`
	Level      string `json:"level" toml:"level"`
	Output     string `json:"output" toml:"output"`
	KeepHours  uint   `json:"keep_hours" toml:"keep_hours"`
	RotateNum  int    `json:"rotate_num" toml:"rotate_num"`
	RotateSize uint64 `json:"rotate_size" toml:"rotate_size"`
}

const defaultChannelSize = 64
const defaultReportInterval = 0 * time.Second
const defaultReconnectDelay = 5 * time.Second
const defaultUDPTimeout = 10 * time.Minute
const defaultForwardConnLimit = 1024
const defaultLogLevel = "INFO"
const defaultLogOutput = "stderr"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// LoadFromFile reads a configuration file. Files ending in .toml are parsed
// as TOML, anything else as JSON.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading config file")
	}

	var fc fileConfig
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(string(data), &fc); err != nil {
			return nil, errors.Wrap(err, "parsing TOML")
		}
	} else if err := json.Unmarshal(data, &fc); err != nil {
		return nil, errors.Wrap(err, "parsing JSON")
	}

	return convertFileConfig(fc)
}

func convertFileConfig(fc fileConfig) (*Config, error) {
	var mode AppMode
	switch fc.Mode {
	case "client":
		mode = ClientMode
	case "server":
		mode = ServerMode
	default:
		return nil, errors.Errorf("invalid mode: %q", fc.Mode)
	}

	channelSize := defaultChannelSize
	if fc.ChannelSize != nil {
		channelSize = *fc.ChannelSize
	}
	if channelSize <= 0 {
		return nil, errors.Errorf("invalid channel size: %d", channelSize)
	}

	reportInterval, err := parseDuration(fc.ReportInterval, defaultReportInterval, "report interval")
	if err != nil {
		return nil, err
	}
	reconnectDelay, err := parseDuration(fc.ReconnectDelay, defaultReconnectDelay, "reconnect delay")
	if err != nil {
		return nil, err
	}
	udpTimeout, err := parseDuration(fc.UDPTimeout, defaultUDPTimeout, "udp timeout")
	if err != nil {
		return nil, err
	}

	forwardConnLimit := defaultForwardConnLimit
	if fc.ForwardConnLimit != nil {
		forwardConnLimit = *fc.ForwardConnLimit
	}

	scatterType := convertScatterType(fc.ScatterType)
	if scatterType == NotDefinedScatterType {
		return nil, errors.Errorf("invalid scatter type: %v", valueOr(fc.ScatterType, ""))
	}

	config := &Config{
		Mode:             mode,
		ListenAddr:       fc.ListenAddr,
		RemoteAddr:       fc.RemoteAddr,
		RelayServers:     convertRelayServers(fc.RelayServers),
		ChannelSize:      channelSize,
		ReportInterval:   reportInterval,
		ReconnectDelay:   reconnectDelay,
		UDPTimeout:       udpTimeout,
		ScatterType:      scatterType,
		EnableGRO:        fc.EnableGRO,
		EnableGSO:        fc.EnableGSO,
		ForwardConnLimit: forwardConnLimit,
		MetricsAddr:      fc.MetricsAddr,
		Log:              convertLogConfig(fc.Log),
	}

	if mode == ClientMode && len(config.RelayServers) == 0 {
		return nil, errors.New("client mode needs at least one relay server")
	}
	if mode == ServerMode && config.RemoteAddr == "" {
		return nil, errors.New("server mode needs remote_addr")
	}

	return config, nil
}

func parseDuration(s *string, def time.Duration, name string) (time.Duration, error) {
	if s == nil {
		return def, nil
	}
	d, err := time.ParseDuration(*s)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid %s", name)
	}
	return d, nil
}

func valueOr(s *string, def string) string {
	if s == nil {
		return def
	}
	return *s
}

func convertRelayServers(frs []fileRelayServer) []RelayServer {
	rs := make([]RelayServer, len(frs))
	for i, fr := range frs {
		rs[i] = RelayServer{
			Address: fr.Addr,
			Traffic: convertTrafficType(fr.Traffic),
		}
	}
	return rs
}

// convertScatterType defaults to concurrent, which sends every packet over
// every relay.
func convertScatterType(scatterType *string) ScatterType {
	if scatterType == nil {
		return ConcurrentScatterType
	}
	switch *scatterType {
	case "round-robin":
		return RoundRobinScatterType
	case "concurrent":
		return ConcurrentScatterType
	default:
		return NotDefinedScatterType
	}
}

func convertTrafficType(trafficType *string) TrafficType {
	if trafficType == nil {
		return BothTrafficType
	}
	switch *trafficType {
	case "up":
		return UpTrafficType
	case "down":
		return DownTrafficType
	default:
		return BothTrafficType
	}
}

func convertLogConfig(fl *fileLogConfig) LogConfig {
	lc := LogConfig{Level: defaultLogLevel, Output: defaultLogOutput}
	if fl == nil {
		return lc
	}
	lc.Dir = fl.Dir
	lc.KeepHours = fl.KeepHours
	lc.RotateNum = fl.RotateNum
	lc.RotateSize = fl.RotateSize
	if fl.Level != "" {
		lc.Level = fl.Level
	}
	if fl.Output != "" {
		lc.Output = fl.Output
	}
	return lc
}
