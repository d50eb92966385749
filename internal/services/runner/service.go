// Package runner orchestrates the backup cycle.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/fgeck/borgtm/internal/models"
	"github.com/fgeck/borgtm/internal/services/borg"
	"github.com/fgeck/borgtm/internal/services/journal"
	"github.com/fgeck/borgtm/internal/services/lock"
	"github.com/fgeck/borgtm/internal/services/notify"
	"github.com/fgeck/borgtm/internal/services/ssh"
	"github.com/fgeck/borgtm/internal/services/wol"
	"github.com/rs/zerolog"
)

// Service defines the interface for the cycle runner.
type Service interface {
	Run(ctx context.Context, cfg models.Config) error
}

// Impl implements the runner Service interface.
type Impl struct {
	borgSvc    borg.Service
	lockSvc    lock.Service
	journalSvc journal.Service
	notifySvc  notify.Service
	wolSvc     wol.Service
	sshSvc     ssh.Service
	logger     zerolog.Logger
	now        func() time.Time
}

// New creates a new runner service.
func New(logger zerolog.Logger) *Impl {
	return &Impl{
		borgSvc:    borg.New(logger),
		lockSvc:    lock.New(logger),
		journalSvc: journal.New(logger),
		notifySvc:  notify.New(logger),
		wolSvc:     wol.New(logger),
		sshSvc:     ssh.New(logger),
		logger:     logger,
		now:        time.Now,
	}
}

// NewWithServices creates a new runner service with custom services (for
// testing).
func NewWithServices(
	logger zerolog.Logger,
	borgSvc borg.Service,
	lockSvc lock.Service,
	journalSvc journal.Service,
	notifySvc notify.Service,
	wolSvc wol.Service,
	sshSvc ssh.Service,
) *Impl {
	return &Impl{
		borgSvc:    borgSvc,
		lockSvc:    lockSvc,
		journalSvc: journalSvc,
		notifySvc:  notifySvc,
		wolSvc:     wolSvc,
		sshSvc:     sshSvc,
		logger:     logger,
		now:        time.Now,
	}
}

// Run executes one backup cycle: create, prune, compact (if enabled) and
// the scheduled integrity check, under the lock marker. The lock is
// released on every exit path once it was acquired; a failed stage is
// logged to the cycle journal and reported to the notification channel
// before the error surfaces to the caller.
func (s *Impl) Run(ctx context.Context, cfg models.Config) error {
	if err := s.lockSvc.Acquire(cfg.Logging.LockFile); err != nil {
		// Nothing was acquired, nothing to clean up.
		return err
	}
	defer s.lockSvc.Release(cfg.Logging.LockFile)

	jr, err := s.journalSvc.Open(cfg.Logging.LogFile)
	if err != nil {
		return err
	}
	defer jr.Close()

	s.logger.Info().
		Str("repository", cfg.Repository.Path).
		Str("host", cfg.Hostname).
		Msg("starting backup cycle")

	if err := s.cycle(ctx, cfg, jr); err != nil {
		jr.Write(fmt.Sprintf("ERROR: %v", err))
		s.notifySvc.SendFailure(ctx, cfg.Notifications,
			fmt.Sprintf("Backup failure on %s", cfg.Hostname),
			fmt.Sprintf("Borg backup failed: %v", err))
		return err
	}

	return nil
}

func (s *Impl) cycle(ctx context.Context, cfg models.Config, jr journal.Journal) error {
	if cfg.WOL != nil {
		jr.Write("Waking backup target...")
		if err := s.wolSvc.Wake(ctx, *cfg.WOL); err != nil {
			return fmt.Errorf("wake target: %w", err)
		}
	}

	archive := borg.ArchiveName(cfg.Hostname, s.now())
	jr.Write(fmt.Sprintf("Starting backup: %s", archive))

	warning, err := s.borgSvc.Create(ctx, cfg, archive)
	if err != nil {
		return err
	}
	if warning {
		jr.Write("Backup created with warnings (some files may have been skipped)")
	} else {
		jr.Write("Backup created successfully")
	}

	jr.Write("Pruning old backups...")
	if err := s.borgSvc.Prune(ctx, cfg); err != nil {
		return err
	}
	jr.Write("Prune completed")

	if cfg.Maintenance.AutoCompact {
		jr.Write("Compacting repository...")
		if err := s.borgSvc.Compact(ctx, cfg); err != nil {
			return err
		}
		jr.Write("Compact completed")
	}

	if cfg.Maintenance.CheckDue(s.now()) {
		jr.Write("Running scheduled integrity check...")
		if err := s.borgSvc.Check(ctx, cfg); err != nil {
			return err
		}
		jr.Write("Integrity check passed")
	}

	jr.Write("Backup cycle complete")

	if cfg.SSHShutdown != nil {
		jr.Write("Shutting down backup target...")
		if err := s.sshSvc.Shutdown(ctx, *cfg.SSHShutdown); err != nil {
			return fmt.Errorf("shutdown target: %w", err)
		}
	}

	return nil
}
