package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":3000", cfg.HTTPAddr)
	assert.True(t, cfg.Doudizhu.QuickJoinCreates)
	assert.True(t, cfg.Undercover.QuickJoinCreates)
	assert.False(t, cfg.Qigui523.QuickJoinCreates)
	assert.False(t, cfg.Bomberman.QuickJoinCreates)
	assert.Equal(t, 5*time.Second, cfg.Undercover.DisconnectGrace)
	assert.Equal(t, 6*time.Second, cfg.Bomberman.DyingTimeout)
	assert.Equal(t, 300*time.Millisecond, cfg.Bomberman.PushDelay)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := []byte(`
http_addr: ":8080"
log:
  level: debug
bomberman:
  push_delay: 250ms
  quick_join_creates: true
qigui523:
  quick_join_creates: true
`)
	require.NoError(t, os.WriteFile(path, body, 0o600))
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("QIGUI523_QUICK_JOIN_CREATES", "false")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 250*time.Millisecond, cfg.Bomberman.PushDelay)
	assert.True(t, cfg.Bomberman.QuickJoinCreates)
	assert.False(t, cfg.Qigui523.QuickJoinCreates)
	// untouched sections keep their defaults
	assert.Equal(t, 500*time.Millisecond, cfg.Bomberman.ExplosionTTL)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	cfg.WS.PongWait = cfg.WS.PingInterval
	cfg.Bomberman.BotTick = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pong_wait")
	assert.Contains(t, err.Error(), "bomberman")
}
