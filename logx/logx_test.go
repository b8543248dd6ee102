package logx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chenx-dust/sharedptr/config"
)

func TestInitStderr(t *testing.T) {
	closeFn, err := Init(config.LogConfig{Level: "DEBUG", Output: "stderr"})
	require.NoError(t, err)
	assert.NotNil(t, closeFn)
}

func TestInitRejectsBadOutput(t *testing.T) {
	_, err := Init(config.LogConfig{Level: "INFO", Output: "kafka"})
	assert.Error(t, err)

	_, err = Init(config.LogConfig{Level: "INFO", Output: "file", Dir: t.TempDir()})
	assert.Error(t, err)
}
