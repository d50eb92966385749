// Package wol wakes the backup target host before a cycle runs.
package wol

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/fgeck/borgtm/internal/models"
	"github.com/mdlayher/wol"
	"github.com/rs/zerolog"
)

// Service defines the interface for waking the backup target.
type Service interface {
	Wake(ctx context.Context, cfg models.WOLConfig) error
}

// Client wraps the wol library for mocking.
type Client interface {
	Wake(broadcastIP string, mac net.HardwareAddr) error
}

// HTTPClient allows mocking HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// DefaultClient sends magic packets via mdlayher/wol.
type DefaultClient struct{}

// Wake sends a magic packet to the given MAC via the broadcast address.
func (c *DefaultClient) Wake(broadcastIP string, mac net.HardwareAddr) error {
	client, err := wol.NewClient()
	if err != nil {
		return fmt.Errorf("failed to create WOL client: %w", err)
	}
	defer func() { _ = client.Close() }()

	ip := net.ParseIP(broadcastIP)
	if ip == nil {
		return fmt.Errorf("invalid broadcast IP: %s", broadcastIP)
	}

	return client.Wake(ip.String()+":9", mac)
}

// Impl implements the WOL Service interface.
type Impl struct {
	wolClient  Client
	httpClient HTTPClient
	logger     zerolog.Logger
}

// New creates a new WOL service.
func New(logger zerolog.Logger) *Impl {
	return &Impl{
		wolClient:  &DefaultClient{},
		httpClient: &http.Client{Timeout: 5 * time.Second},
		logger:     logger,
	}
}

// NewWithClients creates a new WOL service with custom clients (for
// testing).
func NewWithClients(logger zerolog.Logger, wolClient Client, httpClient HTTPClient) *Impl {
	return &Impl{
		wolClient:  wolClient,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Wake sends the magic packet and, when a ping URL is configured, waits
// until the target answers or the timeout elapses.
func (s *Impl) Wake(ctx context.Context, cfg models.WOLConfig) error {
	mac, err := net.ParseMAC(cfg.MACAddress)
	if err != nil {
		return fmt.Errorf("invalid MAC address %q: %w", cfg.MACAddress, err)
	}

	s.logger.Info().Str("mac", cfg.MACAddress).Str("broadcast", cfg.BroadcastIP).Msg("sending WOL packet")

	if err := s.wolClient.Wake(cfg.BroadcastIP, mac); err != nil {
		return fmt.Errorf("failed to send WOL packet: %w", err)
	}

	if cfg.PingURL == "" {
		return nil
	}

	s.logger.Info().Str("url", cfg.PingURL).Dur("timeout", cfg.Timeout).Msg("waiting for target")
	return s.waitForTarget(ctx, cfg)
}

func (s *Impl) waitForTarget(ctx context.Context, cfg models.WOLConfig) error {
	deadline := time.Now().Add(cfg.Timeout)

	for {
		if time.Now().After(deadline) {
			return fmt.Errorf("timeout waiting for target at %s", cfg.PingURL)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.PingURL, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}

		resp, err := s.httpClient.Do(req)
		if err == nil {
			// Any response means the target is up.
			_ = resp.Body.Close()
			s.logger.Info().Msg("target is ready")
			return nil
		}

		s.logger.Debug().Err(err).Msg("target not ready yet")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(cfg.PollInterval):
		}
	}
}
