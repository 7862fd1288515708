// Package config loads bridge settings from defaults, an optional config
// file and BRIDGE_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	// Port the WebSocket server listens on. BRIDGE_PORT overrides it,
	// mirroring how the host plugin is configured in production.
	Port int

	// TickInterval is the cadence of the standalone runner's tick loop.
	// When the bridge is embedded, the host schedules ticks instead and
	// this value is ignored.
	TickInterval time.Duration

	// HistoryPath is the SQLite file for the execution audit log. Empty
	// disables history.
	HistoryPath string

	LogLevel  string
	LogFormat string
}

func Load() (Config, error) {
	v := viper.New()

	v.SetDefault("port", 3000)
	v.SetDefault("tick_interval", 20*time.Millisecond)
	v.SetDefault("history_path", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")

	v.SetEnvPrefix("BRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("bridge")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := Config{
		Port:         v.GetInt("port"),
		TickInterval: v.GetDuration("tick_interval"),
		HistoryPath:  v.GetString("history_path"),
		LogLevel:     v.GetString("log_level"),
		LogFormat:    v.GetString("log_format"),
	}
	if cfg.Port < 0 || cfg.Port > 65535 {
		return Config{}, fmt.Errorf("invalid port %d", cfg.Port)
	}
	if cfg.TickInterval <= 0 {
		return Config{}, fmt.Errorf("invalid tick interval %s", cfg.TickInterval)
	}
	return cfg, nil
}
