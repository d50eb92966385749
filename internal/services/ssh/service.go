// Package ssh powers the backup target host down after a successful cycle.
package ssh

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/fgeck/borgtm/internal/models"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"
)

// Service defines the interface for the remote shutdown.
type Service interface {
	Shutdown(ctx context.Context, cfg models.SSHShutdownConfig) error
}

// Session wraps ssh.Session for mocking.
type Session interface {
	CombinedOutput(cmd string) ([]byte, error)
	Close() error
}

// Dialer opens an SSH session on a remote host.
type Dialer interface {
	Dial(addr string, config *ssh.ClientConfig) (Session, error)
}

// DefaultDialer dials via golang.org/x/crypto/ssh.
type DefaultDialer struct{}

// Dial connects and opens a session; the session owns the connection.
func (d *DefaultDialer) Dial(addr string, config *ssh.ClientConfig) (Session, error) {
	client, err := ssh.Dial("tcp", addr, config)
	if err != nil {
		return nil, err
	}
	session, err := client.NewSession()
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	return &clientSession{client: client, session: session}, nil
}

type clientSession struct {
	client  *ssh.Client
	session *ssh.Session
}

func (s *clientSession) CombinedOutput(cmd string) ([]byte, error) {
	return s.session.CombinedOutput(cmd)
}

func (s *clientSession) Close() error {
	_ = s.session.Close()
	return s.client.Close()
}

// Impl implements the SSH Service interface.
type Impl struct {
	dialer Dialer
	logger zerolog.Logger
}

// New creates a new SSH service.
func New(logger zerolog.Logger) *Impl {
	return &Impl{
		dialer: &DefaultDialer{},
		logger: logger,
	}
}

// NewWithDialer creates a new SSH service with a custom dialer (for
// testing).
func NewWithDialer(logger zerolog.Logger, dialer Dialer) *Impl {
	return &Impl{
		dialer: dialer,
		logger: logger,
	}
}

// Shutdown schedules a halt on the remote host. The connection often drops
// while the command is still acknowledged, so a remote error after the
// command ran is logged but not propagated.
func (s *Impl) Shutdown(ctx context.Context, cfg models.SSHShutdownConfig) error {
	key, err := os.ReadFile(cfg.KeyPath)
	if err != nil {
		return fmt.Errorf("failed to read private key from %s: %w", cfg.KeyPath, err)
	}

	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return fmt.Errorf("failed to parse private key: %w", err)
	}

	sshConfig := &ssh.ClientConfig{
		User:            cfg.Username,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec // homelab environment
		Timeout:         30 * time.Second,
	}

	addr := net.JoinHostPort(cfg.Host, fmt.Sprintf("%d", cfg.Port))

	s.logger.Info().
		Str("host", cfg.Host).
		Str("user", cfg.Username).
		Int("delay", cfg.DelayMinutes).
		Msg("initiating remote shutdown")

	session, err := s.dialer.Dial(addr, sshConfig)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	defer func() { _ = session.Close() }()

	cmd := fmt.Sprintf("sudo shutdown -h +%d", cfg.DelayMinutes)
	if cfg.DelayMinutes == 0 {
		cmd = "sudo shutdown -h now"
	}

	output, err := session.CombinedOutput(cmd)
	if err != nil {
		s.logger.Warn().Err(err).Str("output", string(output)).
			Msg("shutdown command returned error (may be the connection closing)")
	}

	s.logger.Info().Msg("shutdown command sent")
	return nil
}
