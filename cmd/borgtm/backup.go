package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fgeck/borgtm/internal/services/runner"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Run a full backup cycle",
	Long: `Run the complete backup cycle under the lock marker:
1. Wake the backup target (if configured)
2. Create a timestamped archive from all enabled jobs
3. Prune old archives per the retention policy
4. Compact the repository (if auto_compact is enabled)
5. Verify repository integrity (on the scheduled weekday)
6. Shut the backup target down (if configured)

Any stage failure is logged, reported to the notification channel and
aborts the remaining stages. The lock is always released.`,
	RunE: runBackup,
}

func runBackup(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log.Info().
		Str("repository", cfg.Repository.Path).
		Str("host", cfg.Hostname).
		Int("jobs", len(cfg.EnabledJobs())).
		Msg("configuration loaded")

	// Set up context with signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Warn().Str("signal", sig.String()).Msg("received signal, shutting down")
		cancel()
	}()

	runnerSvc := runner.New(log.Logger)
	if err := runnerSvc.Run(ctx, *cfg); err != nil {
		log.Error().Err(err).Msg("backup cycle failed")
		return err
	}

	log.Info().Msg("backup cycle completed successfully")
	return nil
}
