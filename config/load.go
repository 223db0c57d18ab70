package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// fileConfig mirrors the TOML layout. Durations are whole seconds in the
// file; they are converted on the way in.
type fileConfig struct {
	HTTP struct {
		URL           string `toml:"url"`
		Authorization string `toml:"authorization"`
		BaseTimeout   int    `toml:"base_timeout"`
		ModemTimeout  int    `toml:"modem_timeout"`
		PageSize      int    `toml:"page_size"`
	} `toml:"http"`

	WebSocket struct {
		URL                  string   `toml:"url"`
		Authorization        string   `toml:"authorization"`
		AutoReconnect        *bool    `toml:"auto_reconnect"`
		ReconnectInterval    int      `toml:"reconnect_interval"`
		MaxReconnectAttempts int      `toml:"max_reconnect_attempts"`
		PingInterval         int      `toml:"ping_interval"`
		PongTimeout          int      `toml:"pong_timeout"`
		Events               []string `toml:"events"`
	} `toml:"websocket"`

	TLS struct {
		Certificate string `toml:"certificate"`
	} `toml:"tls"`
}

// Load reads configuration from the TOML file at path (skipped when path is
// empty or missing) and applies environment variable overrides. Env vars
// always win. A .env file in the working directory is honored.
//
// Recognized variables: SMSGATE_HTTP_URL, SMSGATE_WS_URL, SMSGATE_AUTH,
// SMSGATE_CERT, SMSGATE_AUTO_RECONNECT, SMSGATE_PAGE_SIZE.
func Load(path string) (*ClientConfig, error) {
	_ = godotenv.Load()

	var fc fileConfig
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, &fc); err != nil {
				return nil, err
			}
		}
	}

	cfg := &ClientConfig{}

	if fc.HTTP.URL != "" {
		h := NewHTTP(fc.HTTP.URL)
		h.Authorization = fc.HTTP.Authorization
		if fc.HTTP.BaseTimeout > 0 {
			h.BaseTimeout = time.Duration(fc.HTTP.BaseTimeout) * time.Second
		}
		if fc.HTTP.ModemTimeout > 0 {
			h.ModemTimeout = time.Duration(fc.HTTP.ModemTimeout) * time.Second
		}
		if fc.HTTP.PageSize > 0 {
			h.PageSize = fc.HTTP.PageSize
		}
		cfg.HTTP = h
	}

	if fc.WebSocket.URL != "" {
		w := NewWebSocket(fc.WebSocket.URL)
		w.Authorization = fc.WebSocket.Authorization
		if fc.WebSocket.AutoReconnect != nil {
			w.AutoReconnect = *fc.WebSocket.AutoReconnect
		}
		if fc.WebSocket.ReconnectInterval > 0 {
			w.ReconnectInterval = time.Duration(fc.WebSocket.ReconnectInterval) * time.Second
		}
		if fc.WebSocket.MaxReconnectAttempts > 0 {
			w.MaxReconnectAttempts = fc.WebSocket.MaxReconnectAttempts
		}
		if fc.WebSocket.PingInterval > 0 {
			w.PingInterval = time.Duration(fc.WebSocket.PingInterval) * time.Second
		}
		if fc.WebSocket.PongTimeout > 0 {
			w.PongTimeout = time.Duration(fc.WebSocket.PongTimeout) * time.Second
		}
		w.Events = fc.WebSocket.Events
		cfg.WebSocket = w
	}

	if fc.TLS.Certificate != "" {
		cfg.TLS = &TLSConfig{Certificate: expandHome(fc.TLS.Certificate)}
	}

	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *ClientConfig) {
	if v := os.Getenv("SMSGATE_HTTP_URL"); v != "" {
		if cfg.HTTP == nil {
			cfg.HTTP = NewHTTP(v)
		} else {
			cfg.HTTP.URL = v
		}
	}
	if v := os.Getenv("SMSGATE_WS_URL"); v != "" {
		if cfg.WebSocket == nil {
			cfg.WebSocket = NewWebSocket(v)
		} else {
			cfg.WebSocket.URL = v
		}
	}
	if v := os.Getenv("SMSGATE_AUTH"); v != "" {
		cfg.WithAuth(v)
	}
	if v := os.Getenv("SMSGATE_CERT"); v != "" {
		cfg.TLS = &TLSConfig{Certificate: expandHome(v)}
	}
	if v := os.Getenv("SMSGATE_AUTO_RECONNECT"); v != "" && cfg.WebSocket != nil {
		cfg.WebSocket.AutoReconnect = v == "true" || v == "1"
	}
	if v := os.Getenv("SMSGATE_PAGE_SIZE"); v != "" && cfg.HTTP != nil {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HTTP.PageSize = n
		}
	}
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home := os.Getenv("HOME"); home != "" {
			return home + path[1:]
		}
	}
	return path
}
