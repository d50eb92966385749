package main

import (
	"fmt"

	"github.com/fgeck/borgtm/internal/services/borg"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new borg repository",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if err := borg.New(log.Logger).Init(cmd.Context(), *cfg); err != nil {
			log.Error().Err(err).Msg("init failed")
			return err
		}

		fmt.Println("Repository initialized successfully!")
		fmt.Println()
		fmt.Println("IMPORTANT: Export and backup your encryption key:")
		fmt.Printf("  borg key export %s ~/borg-key-backup.txt\n", cfg.Repository.Path)
		fmt.Printf("  borg key export --paper %s borg-key-qr.html\n", cfg.Repository.Path)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all archives in the repository",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if err := borg.New(log.Logger).List(cmd.Context(), *cfg); err != nil {
			log.Error().Err(err).Msg("list failed")
			return err
		}
		return nil
	},
}

var mountCmd = &cobra.Command{
	Use:   "mount MOUNT_POINT",
	Short: "Mount the repository for browsing",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		mountPoint := args[0]
		if err := borg.New(log.Logger).Mount(cmd.Context(), *cfg, mountPoint); err != nil {
			log.Error().Err(err).Msg("mount failed")
			return err
		}

		fmt.Println("Mounted successfully!")
		fmt.Printf("Browse backups: ls %s\n", mountPoint)
		fmt.Printf("Unmount with: fusermount -u %s\n", mountPoint)
		return nil
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify repository integrity",
	Long: `Verify repository integrity immediately, regardless of the
maintenance.check_day schedule (the schedule only gates the check stage
of a backup cycle).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if err := borg.New(log.Logger).Check(cmd.Context(), *cfg); err != nil {
			log.Error().Err(err).Msg("check failed")
			return err
		}

		log.Info().Msg("integrity check passed")
		return nil
	},
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show repository information",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if err := borg.New(log.Logger).Info(cmd.Context(), *cfg); err != nil {
			log.Error().Err(err).Msg("info failed")
			return err
		}
		return nil
	},
}
