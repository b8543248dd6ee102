package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadJSONClient(t *testing.T) {
	path := writeFile(t, "client.json", `{
		"mode": "client",
		"listen_addr": "127.0.0.1:5000",
		"relay_servers": [
			{"addr": "10.0.0.1:6000"},
			{"addr": "10.0.0.2:6000", "traffic": "up"}
		],
		"scatter_type": "round-robin",
		"report_interval": "10s",
		"enable_gro": true
	}`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, ClientMode, cfg.Mode)
	assert.Equal(t, "127.0.0.1:5000", cfg.ListenAddr)
	assert.Equal(t, []RelayServer{
		{Address: "10.0.0.1:6000", Traffic: BothTrafficType},
		{Address: "10.0.0.2:6000", Traffic: UpTrafficType},
	}, cfg.RelayServers)
	assert.Equal(t, RoundRobinScatterType, cfg.ScatterType)
	assert.Equal(t, 10*time.Second, cfg.ReportInterval)
	assert.Equal(t, defaultReconnectDelay, cfg.ReconnectDelay)
	assert.Equal(t, defaultChannelSize, cfg.ChannelSize)
	assert.True(t, cfg.EnableGRO)
	assert.False(t, cfg.EnableGSO)
	assert.Equal(t, "stderr", cfg.Log.Output)
	assert.Equal(t, "INFO", cfg.Log.Level)
}

func TestLoadTOMLServer(t *testing.T) {
	path := writeFile(t, "server.toml", `
mode = "server"
listen_addr = ":6000"
remote_addr = "127.0.0.1:7000"
udp_timeout = "30s"
channel_size = 16
forward_conn_limit = 8
metrics_addr = ":9100"

[log]
level = "DEBUG"
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, ServerMode, cfg.Mode)
	assert.Equal(t, "127.0.0.1:7000", cfg.RemoteAddr)
	assert.Equal(t, 30*time.Second, cfg.UDPTimeout)
	assert.Equal(t, 16, cfg.ChannelSize)
	assert.Equal(t, 8, cfg.ForwardConnLimit)
	assert.Equal(t, ":9100", cfg.MetricsAddr)
	assert.Equal(t, ConcurrentScatterType, cfg.ScatterType)
	assert.Equal(t, "DEBUG", cfg.Log.Level)
	assert.Equal(t, "stderr", cfg.Log.Output)
}

func TestLoadErrors(t *testing.T) {
	cases := map[string]string{
		"mode":     `{"mode": "relay"}`,
		"duration": `{"mode": "server", "remote_addr": "x:1", "udp_timeout": "soon"}`,
		"scatter":  `{"mode": "client", "relay_servers": [{"addr": "x:1"}], "scatter_type": "random"}`,
		"relays":   `{"mode": "client"}`,
		"remote":   `{"mode": "server"}`,
		"channel":  `{"mode": "server", "remote_addr": "x:1", "channel_size": 0}`,
		"syntax":   `{"mode":`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadFromFile(writeFile(t, "c.json", content))
			assert.Error(t, err)
		})
	}

	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestToString(t *testing.T) {
	assert.Equal(t, "client", ModeToString(ClientMode))
	assert.Equal(t, "unknown", ModeToString(NotDefined))
	assert.Equal(t, "round-robin", ScatterTypeToString(RoundRobinScatterType))
	assert.Equal(t, "down", TrafficTypeToString(DownTrafficType))
}
