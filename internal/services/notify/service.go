// Package notify delivers best-effort failure reports to the operator's
// mailbox via the system mail program.
package notify

import (
	"context"

	"github.com/fgeck/borgtm/internal/models"
	"github.com/fgeck/borgtm/internal/services/executor"
	"github.com/rs/zerolog"
)

// Service defines the interface for failure notifications.
type Service interface {
	// SendFailure hands the body to the mail program. Delivery is strictly
	// best-effort: every failure is swallowed so the notification can
	// never mask the error being reported.
	SendFailure(ctx context.Context, cfg models.NotificationsConfig, subject, body string)
}

// Impl implements the notify Service interface.
type Impl struct {
	executor executor.Service
	logger   zerolog.Logger
}

// New creates a new notify service.
func New(logger zerolog.Logger) *Impl {
	return &Impl{
		executor: executor.New(logger),
		logger:   logger,
	}
}

// NewWithExecutor creates a new notify service with a custom executor (for
// testing).
func NewWithExecutor(logger zerolog.Logger, exec executor.Service) *Impl {
	return &Impl{
		executor: exec,
		logger:   logger,
	}
}

// SendFailure pipes the body to `mail -s <subject> <recipient>`. A no-op
// when notifications are disabled.
func (s *Impl) SendFailure(ctx context.Context, cfg models.NotificationsConfig, subject, body string) {
	if !cfg.Enabled {
		s.logger.Debug().Msg("notifications disabled, skipping failure report")
		return
	}

	s.logger.Info().Str("recipient", cfg.Email).Msg("sending failure notification")

	outcome, err := s.executor.Run(ctx, executor.Command{
		Program: "mail",
		Args:    []string{"-s", subject, cfg.Email},
		Stdin:   body,
		Quiet:   true,
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to send failure notification")
		return
	}
	if !outcome.Success() {
		s.logger.Warn().Int("exit_code", outcome.Code).Msg("mail program reported failure")
	}
}
