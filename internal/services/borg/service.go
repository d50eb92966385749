// Package borg drives the borg binary through its CLI contract.
package borg

import (
	"context"
	"fmt"
	"time"

	"github.com/fgeck/borgtm/internal/models"
	"github.com/fgeck/borgtm/internal/services/executor"
	"github.com/rs/zerolog"
)

// Service defines the interface for borg operations.
type Service interface {
	Init(ctx context.Context, cfg models.Config) error
	Create(ctx context.Context, cfg models.Config, archive string) (warning bool, err error)
	Prune(ctx context.Context, cfg models.Config) error
	Compact(ctx context.Context, cfg models.Config) error
	Check(ctx context.Context, cfg models.Config) error
	List(ctx context.Context, cfg models.Config) error
	Mount(ctx context.Context, cfg models.Config, mountPoint string) error
	Info(ctx context.Context, cfg models.Config) error
}

// Impl implements the borg Service interface.
type Impl struct {
	executor executor.Service
	logger   zerolog.Logger
}

// New creates a new borg service.
func New(logger zerolog.Logger) *Impl {
	return &Impl{
		executor: executor.New(logger),
		logger:   logger,
	}
}

// NewWithExecutor creates a new borg service with a custom executor (for
// testing).
func NewWithExecutor(logger zerolog.Logger, exec executor.Service) *Impl {
	return &Impl{
		executor: exec,
		logger:   logger,
	}
}

// ArchiveName derives the archive name for a backup started at t. Names
// sort lexically by creation time and carry the host prefix that scopes
// pruning to this installation's archives.
func ArchiveName(hostname string, t time.Time) string {
	return fmt.Sprintf("%s-%s", hostname, t.Format("2006-01-02-150405"))
}

func buildEnv(cfg models.Config) []string {
	return []string{
		fmt.Sprintf("BORG_PASSPHRASE=%s", cfg.Security.Passphrase),
	}
}

// outcomeError maps borg's exit code convention for resumable operations:
// 0 success, 1 completed with warnings, 2 and above (or a signal) failure.
func outcomeError(stage string, outcome executor.ExitOutcome) (warning bool, err error) {
	switch {
	case outcome.Signaled:
		return false, fmt.Errorf("borg %s terminated by signal", stage)
	case outcome.Code >= 2:
		return false, fmt.Errorf("borg %s failed with exit code %d", stage, outcome.Code)
	case outcome.Code == 1:
		return true, nil
	default:
		return false, nil
	}
}

// runStage runs a resumable borg operation under the exit code policy
// above.
func (s *Impl) runStage(ctx context.Context, cfg models.Config, stage string, args []string) (bool, error) {
	outcome, err := s.executor.Run(ctx, executor.Command{
		Program: "borg",
		Args:    args,
		Env:     buildEnv(cfg),
	})
	if err != nil {
		return false, fmt.Errorf("failed to run borg %s: %w", stage, err)
	}
	return outcomeError(stage, outcome)
}

// runStrict runs a one-shot, non-resumable borg operation where any
// non-zero exit is a failure.
func (s *Impl) runStrict(ctx context.Context, cfg models.Config, op string, args []string, quiet bool) error {
	outcome, err := s.executor.Run(ctx, executor.Command{
		Program: "borg",
		Args:    args,
		Env:     buildEnv(cfg),
		Quiet:   quiet,
	})
	if err != nil {
		return fmt.Errorf("failed to run borg %s: %w", op, err)
	}
	if !outcome.Success() {
		return fmt.Errorf("borg %s failed", op)
	}
	return nil
}

// Init initializes the repository, refusing to touch a path that already
// holds one.
func (s *Impl) Init(ctx context.Context, cfg models.Config) error {
	s.logger.Info().Str("repository", cfg.Repository.Path).Msg("initializing repository")

	// Probe with a silenced info call; success means a repository is
	// already there.
	if err := s.runStrict(ctx, cfg, "info", []string{"info", cfg.Repository.Path}, true); err == nil {
		return fmt.Errorf("repository already exists at %s, remove it first or use a different path", cfg.Repository.Path)
	}

	args := []string{
		"init",
		fmt.Sprintf("--encryption=%s", cfg.Repository.Encryption),
		cfg.Repository.Path,
	}
	if err := s.runStrict(ctx, cfg, "init", args, false); err != nil {
		return err
	}

	s.logger.Info().Msg("repository initialized")
	return nil
}

// Create runs borg create for one archive. The returned warning flag is
// true when borg completed but skipped unreadable inputs (exit code 1).
//
// Argument order is load-bearing: global exclusions precede the archive
// target, and each enabled job's source is immediately followed by that
// job's own exclude patterns so borg associates them positionally.
func (s *Impl) Create(ctx context.Context, cfg models.Config, archive string) (bool, error) {
	args := []string{"create"}

	if cfg.Options.ShowStats {
		args = append(args, "--stats")
	}
	if cfg.Options.ShowProgress {
		args = append(args, "--progress")
	}
	if cfg.Options.OneFileSystem {
		args = append(args, "--one-file-system")
	}
	if cfg.Options.ExcludeCaches {
		args = append(args, "--exclude-caches")
	}

	args = append(args, fmt.Sprintf("--compression=%s", cfg.Compression))

	for _, pattern := range cfg.Exclusions {
		args = append(args, "--exclude", pattern)
	}

	args = append(args, fmt.Sprintf("%s::%s", cfg.Repository.Path, archive))

	for _, job := range cfg.EnabledJobs() {
		args = append(args, job.Source)
		for _, pattern := range job.Exclude {
			args = append(args, "--exclude", pattern)
		}
	}

	s.logger.Info().Str("archive", archive).Int("jobs", len(cfg.EnabledJobs())).Msg("creating archive")

	return s.runStage(ctx, cfg, "create", args)
}

// Prune deletes old archives per the retention policy, scoped by the host
// prefix so archives from other hosts sharing the repository are never
// touched.
func (s *Impl) Prune(ctx context.Context, cfg models.Config) error {
	args := []string{
		"prune",
		"--list",
		fmt.Sprintf("--prefix=%s-", cfg.Hostname),
		fmt.Sprintf("--keep-within=%s", cfg.Retention.Within),
		fmt.Sprintf("--keep-hourly=%d", cfg.Retention.Hourly),
		fmt.Sprintf("--keep-daily=%d", cfg.Retention.Daily),
		fmt.Sprintf("--keep-weekly=%d", cfg.Retention.Weekly),
		fmt.Sprintf("--keep-monthly=%d", cfg.Retention.Monthly),
		fmt.Sprintf("--keep-yearly=%d", cfg.Retention.Yearly),
		cfg.Repository.Path,
	}

	s.logger.Info().Str("prefix", cfg.Hostname+"-").Msg("pruning old archives")

	warning, err := s.runStage(ctx, cfg, "prune", args)
	if err != nil {
		return err
	}
	if warning {
		s.logger.Warn().Msg("borg prune completed with warnings")
	}
	return nil
}

// Compact reclaims repository space freed by pruning.
func (s *Impl) Compact(ctx context.Context, cfg models.Config) error {
	s.logger.Info().Msg("compacting repository")

	warning, err := s.runStage(ctx, cfg, "compact", []string{"compact", cfg.Repository.Path})
	if err != nil {
		return err
	}
	if warning {
		s.logger.Warn().Msg("borg compact completed with warnings")
	}
	return nil
}

// Check verifies repository and archive integrity.
func (s *Impl) Check(ctx context.Context, cfg models.Config) error {
	s.logger.Info().Msg("checking repository integrity")

	warning, err := s.runStage(ctx, cfg, "check", []string{"check", cfg.Repository.Path})
	if err != nil {
		return fmt.Errorf("repository integrity check: %w", err)
	}
	if warning {
		s.logger.Warn().Msg("borg check completed with warnings")
	}
	return nil
}

// List prints all archives in the repository.
func (s *Impl) List(ctx context.Context, cfg models.Config) error {
	return s.runStrict(ctx, cfg, "list", []string{"list", cfg.Repository.Path}, false)
}

// Mount mounts the repository at the given mount point for browsing.
func (s *Impl) Mount(ctx context.Context, cfg models.Config, mountPoint string) error {
	return s.runStrict(ctx, cfg, "mount", []string{"mount", cfg.Repository.Path, mountPoint}, false)
}

// Info prints repository information.
func (s *Impl) Info(ctx context.Context, cfg models.Config) error {
	return s.runStrict(ctx, cfg, "info", []string{"info", cfg.Repository.Path}, false)
}
