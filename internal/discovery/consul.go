// Package discovery resolves the game server endpoint through Consul.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"net/url"
	"strconv"
	"strings"

	consul "github.com/hashicorp/consul/api"
	"go.uber.org/zap"
)

var ErrNoHealthyInstance = errors.New("no healthy instance")

// NewConsulClient tries each address of a comma separated list and returns
// a client for the first agent that reports a leader.
func NewConsulClient(addrs string, logger *zap.Logger) (*consul.Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	for _, node := range strings.Split(addrs, ",") {
		node = strings.TrimSpace(node)
		if node == "" {
			continue
		}
		cfg := consul.DefaultConfig()
		cfg.Address = node

		client, err := consul.NewClient(cfg)
		if err != nil {
			logger.Warn("failed to create consul client", zap.String("addr", node), zap.Error(err))
			continue
		}
		if _, err := client.Status().Leader(); err != nil {
			logger.Warn("consul agent did not answer", zap.String("addr", node), zap.Error(err))
			continue
		}

		logger.Info("using consul agent", zap.String("addr", node))
		return client, nil
	}
	return nil, fmt.Errorf("no consul agent available in %q", addrs)
}

// Resolver picks a healthy instance of a service.
type Resolver struct {
	client  *consul.Client
	service string
	logger  *zap.Logger
}

// NewResolver creates a Resolver for service.
func NewResolver(client *consul.Client, service string, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{client: client, service: service, logger: logger}
}

// Resolve returns host:port of a random passing instance.
func (r *Resolver) Resolve(ctx context.Context) (string, error) {
	opts := (&consul.QueryOptions{}).WithContext(ctx)
	entries, _, err := r.client.Health().Service(r.service, "", true, opts)
	if err != nil {
		return "", fmt.Errorf("failed to query %s: %w", r.service, err)
	}
	if len(entries) == 0 {
		return "", fmt.Errorf("%s: %w", r.service, ErrNoHealthyInstance)
	}

	e := entries[rand.IntN(len(entries))]
	addr := e.Service.Address
	if addr == "" && e.Node != nil {
		addr = e.Node.Address
	}
	hostport := net.JoinHostPort(addr, strconv.Itoa(e.Service.Port))
	r.logger.Debug("resolved service", zap.String("service", r.service), zap.String("addr", hostport))
	return hostport, nil
}

// Endpoint swaps the host of base for hostport, keeping scheme and path.
func Endpoint(base, hostport string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid server url %q: %w", base, err)
	}
	u.Host = hostport
	return u.String(), nil
}
