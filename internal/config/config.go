package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"` // console | json
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

type WSConfig struct {
	PingInterval time.Duration `yaml:"ping_interval"`
	PongWait     time.Duration `yaml:"pong_wait"`
	WriteWait    time.Duration `yaml:"write_wait"`
	ReadLimit    int64         `yaml:"read_limit"`
	SendBuffer   int           `yaml:"send_buffer"`
	RateLimit    float64       `yaml:"rate_limit"` // inbound messages per second
	RateBurst    int           `yaml:"rate_burst"`
}

type DoudizhuConfig struct {
	QuickJoinCreates bool `yaml:"quick_join_creates"`
	DefaultBaseScore int  `yaml:"default_base_score"`
}

type Qigui523Config struct {
	QuickJoinCreates bool `yaml:"quick_join_creates"`
}

type UndercoverConfig struct {
	QuickJoinCreates bool          `yaml:"quick_join_creates"`
	DisconnectGrace  time.Duration `yaml:"disconnect_grace"`
}

type BombermanConfig struct {
	QuickJoinCreates bool          `yaml:"quick_join_creates"`
	ExplosionTTL     time.Duration `yaml:"explosion_ttl"`
	ChainDelay       time.Duration `yaml:"chain_delay"`
	PushDelay        time.Duration `yaml:"push_delay"`
	DyingTimeout     time.Duration `yaml:"dying_timeout"`
	BotTick          time.Duration `yaml:"bot_tick"`
}

type Config struct {
	HTTPAddr   string           `yaml:"http_addr"`
	Log        LogConfig        `yaml:"log"`
	WS         WSConfig         `yaml:"ws"`
	Doudizhu   DoudizhuConfig   `yaml:"doudizhu"`
	Qigui523   Qigui523Config   `yaml:"qigui523"`
	Undercover UndercoverConfig `yaml:"undercover"`
	Bomberman  BombermanConfig  `yaml:"bomberman"`
}

func Default() Config {
	return Config{
		HTTPAddr: ":3000",
		Log: LogConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 7,
			Compress:   true,
		},
		WS: WSConfig{
			PingInterval: 25 * time.Second,
			PongWait:     60 * time.Second,
			WriteWait:    10 * time.Second,
			ReadLimit:    64 * 1024,
			SendBuffer:   256,
			RateLimit:    50,
			RateBurst:    100,
		},
		Doudizhu: DoudizhuConfig{
			QuickJoinCreates: true,
			DefaultBaseScore: 1,
		},
		Qigui523: Qigui523Config{},
		Undercover: UndercoverConfig{
			QuickJoinCreates: true,
			DisconnectGrace:  5 * time.Second,
		},
		Bomberman: BombermanConfig{
			ExplosionTTL: 500 * time.Millisecond,
			ChainDelay:   50 * time.Millisecond,
			PushDelay:    300 * time.Millisecond,
			DyingTimeout: 6 * time.Second,
			BotTick:      100 * time.Millisecond,
		},
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// Load builds the configuration from defaults, then the YAML file at path
// (skipped when path is empty), then environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.HTTPAddr = getenv("HTTP_ADDR", c.HTTPAddr)
	c.Log.Level = getenv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getenv("LOG_FORMAT", c.Log.Format)
	c.Log.File = getenv("LOG_FILE", c.Log.File)
	c.WS.RateLimit = getenvFloat("WS_RATE_LIMIT", c.WS.RateLimit)
	c.WS.RateBurst = getenvInt("WS_RATE_BURST", c.WS.RateBurst)
	c.WS.PingInterval = getenvDuration("WS_PING_INTERVAL", c.WS.PingInterval)
	c.WS.PongWait = getenvDuration("WS_PONG_WAIT", c.WS.PongWait)
	c.Doudizhu.QuickJoinCreates = getenvBool("DOUDIZHU_QUICK_JOIN_CREATES", c.Doudizhu.QuickJoinCreates)
	c.Qigui523.QuickJoinCreates = getenvBool("QIGUI523_QUICK_JOIN_CREATES", c.Qigui523.QuickJoinCreates)
	c.Undercover.QuickJoinCreates = getenvBool("UNDERCOVER_QUICK_JOIN_CREATES", c.Undercover.QuickJoinCreates)
	c.Undercover.DisconnectGrace = getenvDuration("UNDERCOVER_DISCONNECT_GRACE", c.Undercover.DisconnectGrace)
	c.Bomberman.QuickJoinCreates = getenvBool("BOMBERMAN_QUICK_JOIN_CREATES", c.Bomberman.QuickJoinCreates)
}

func (c Config) Validate() error {
	var errs []error
	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("http_addr is empty"))
	}
	if c.WS.PingInterval <= 0 || c.WS.PongWait <= c.WS.PingInterval {
		errs = append(errs, errors.New("ws.pong_wait must exceed a positive ws.ping_interval"))
	}
	if c.WS.WriteWait <= 0 {
		errs = append(errs, errors.New("ws.write_wait must be positive"))
	}
	if c.WS.RateLimit <= 0 || c.WS.RateBurst <= 0 {
		errs = append(errs, errors.New("ws.rate_limit and ws.rate_burst must be positive"))
	}
	if c.WS.SendBuffer <= 0 {
		errs = append(errs, errors.New("ws.send_buffer must be positive"))
	}
	if c.Doudizhu.DefaultBaseScore <= 0 {
		errs = append(errs, errors.New("doudizhu.default_base_score must be positive"))
	}
	if c.Undercover.DisconnectGrace < 0 {
		errs = append(errs, errors.New("undercover.disconnect_grace must not be negative"))
	}
	b := c.Bomberman
	if b.ExplosionTTL <= 0 || b.ChainDelay < 0 || b.PushDelay <= 0 || b.DyingTimeout <= 0 || b.BotTick <= 0 {
		errs = append(errs, errors.New("bomberman timings must be positive"))
	}
	return errors.Join(errs...)
}
