// Package config loads client settings from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/omochice/toy-tictactoe-client/internal/transport"
	"go.uber.org/zap"
)

// Transport driver names.
const (
	TransportWS      = "ws"
	TransportGobwas  = "gobwas"
	TransportGorilla = "gorilla"
	TransportNATS    = "nats"
	TransportTCP     = "tcp"
)

var ErrInvalid = errors.New("invalid configuration")

// Config holds every setting of the terminal client.
type Config struct {
	ServerURL string
	Transport string
	Codec     string

	// ReconnectAttempts of 0 means retry forever.
	ReconnectAttempts int
	ReconnectDelay    time.Duration
	DialTimeout       time.Duration

	ConsulAddrs   string
	ConsulService string
	NATSURL       string

	StatusAddr string
	Debug      bool
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		ServerURL:         "ws://localhost:5000/ws",
		Transport:         TransportWS,
		Codec:             "json",
		ReconnectAttempts: transport.DefaultReconnectAttempts,
		ReconnectDelay:    transport.DefaultReconnectDelay,
		DialTimeout:       transport.DefaultDialTimeout,
		ConsulService:     "tictactoe",
		NATSURL:           "nats://127.0.0.1:4222",
	}
}

// Load reads .env files (a missing file only logs a warning) and then the
// process environment.
func Load(logger *zap.Logger, files ...string) (Config, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := godotenv.Load(files...); err != nil {
		logger.Warn("no .env file loaded", zap.Error(err))
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv, keeping defaults for unset keys.
func FromEnv(getenv func(string) string) (Config, error) {
	c := Default()
	var err error

	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	str("SERVER_URL", &c.ServerURL)
	str("TRANSPORT", &c.Transport)
	str("CODEC", &c.Codec)
	str("CONSUL_ADDRS", &c.ConsulAddrs)
	str("CONSUL_SERVICE", &c.ConsulService)
	str("NATS_URL", &c.NATSURL)
	str("STATUS_ADDR", &c.StatusAddr)

	if v := getenv("RECONNECT_ATTEMPTS"); v != "" {
		if c.ReconnectAttempts, err = strconv.Atoi(v); err != nil || c.ReconnectAttempts < 0 {
			return Config{}, fmt.Errorf("%w: RECONNECT_ATTEMPTS=%q", ErrInvalid, v)
		}
	}
	if v := getenv("RECONNECT_DELAY"); v != "" {
		if c.ReconnectDelay, err = time.ParseDuration(v); err != nil {
			return Config{}, fmt.Errorf("%w: RECONNECT_DELAY: %v", ErrInvalid, err)
		}
	}
	if v := getenv("DIAL_TIMEOUT"); v != "" {
		if c.DialTimeout, err = time.ParseDuration(v); err != nil {
			return Config{}, fmt.Errorf("%w: DIAL_TIMEOUT: %v", ErrInvalid, err)
		}
	}
	if v := getenv("DEBUG"); v != "" {
		if c.Debug, err = strconv.ParseBool(v); err != nil {
			return Config{}, fmt.Errorf("%w: DEBUG=%q", ErrInvalid, v)
		}
	}

	return c, c.Validate()
}

// Validate checks the fields that have a closed set of values.
func (c Config) Validate() error {
	switch c.Transport {
	case TransportWS, TransportGobwas, TransportGorilla, TransportNATS, TransportTCP:
	default:
		return fmt.Errorf("%w: unknown transport %q", ErrInvalid, c.Transport)
	}
	switch c.Codec {
	case "json", "proto", "protobuf":
	default:
		return fmt.Errorf("%w: unknown codec %q", ErrInvalid, c.Codec)
	}
	if c.ServerURL == "" && c.ConsulAddrs == "" && c.Transport != TransportNATS {
		return fmt.Errorf("%w: no server url", ErrInvalid)
	}
	return nil
}

// TransportOptions maps the settings onto transport.Options.
func (c Config) TransportOptions(clientID string) transport.Options {
	attempts := c.ReconnectAttempts
	if attempts == 0 {
		attempts = -1
	}
	return transport.Options{
		ClientID:          clientID,
		ReconnectAttempts: attempts,
		ReconnectDelay:    c.ReconnectDelay,
		DialTimeout:       c.DialTimeout,
	}
}
