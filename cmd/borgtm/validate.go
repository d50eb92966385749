package main

import (
	"fmt"
	"os"

	"github.com/fgeck/borgtm/internal/config"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long:  `Validate the configuration file without executing any backup operations.`,
	RunE:  validateConfig,
}

func validateConfig(cmd *cobra.Command, args []string) error {
	if configFile == "" {
		log.Error().Msg("config file is required")
		return cmd.Help()
	}

	// Check if file exists
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		log.Error().Str("file", configFile).Msg("config file not found")
		return fmt.Errorf("config file not found: %s", configFile)
	}

	// Load configuration
	parser := config.NewParser()
	cfg, err := parser.LoadFile(configFile)
	if err != nil {
		log.Error().Err(err).Str("file", configFile).Msg("failed to parse config")
		return err
	}

	// Validate configuration
	if err := config.Validate(cfg); err != nil {
		log.Error().Err(err).Msg("configuration validation failed")
		return err
	}

	// Print configuration summary
	fmt.Println("Configuration is valid!")
	fmt.Println()
	fmt.Println("Summary:")
	fmt.Printf("  Repository: %s (%s)\n", cfg.Repository.Path, cfg.Repository.Encryption)
	fmt.Printf("  Host: %s\n", cfg.Hostname)
	fmt.Printf("  Compression: %s\n", cfg.Compression)
	fmt.Println()
	fmt.Println("Jobs:")
	for _, job := range cfg.Jobs {
		state := "enabled"
		if !job.Enabled {
			state = "disabled"
		}
		fmt.Printf("  %s: %s (%s, %d exclusions)\n", job.Name, job.Source, state, len(job.Exclude))
	}
	fmt.Println()
	fmt.Println("Retention Policy:")
	fmt.Printf("  Keep within: %s\n", cfg.Retention.Within)
	fmt.Printf("  Keep hourly: %d\n", cfg.Retention.Hourly)
	fmt.Printf("  Keep daily: %d\n", cfg.Retention.Daily)
	fmt.Printf("  Keep weekly: %d\n", cfg.Retention.Weekly)
	fmt.Printf("  Keep monthly: %d\n", cfg.Retention.Monthly)
	fmt.Printf("  Keep yearly: %d\n", cfg.Retention.Yearly)
	fmt.Println()
	fmt.Println("Maintenance:")
	fmt.Printf("  Auto compact: %v\n", cfg.Maintenance.AutoCompact)
	if cfg.Maintenance.CheckDay == 0 {
		fmt.Println("  Integrity check: disabled")
	} else {
		fmt.Printf("  Integrity check: weekday %d\n", cfg.Maintenance.CheckDay)
	}
	fmt.Println()
	fmt.Println("Optional Features:")
	fmt.Printf("  Notifications: %v\n", cfg.Notifications.Enabled)
	fmt.Printf("  Wake-on-LAN: %v\n", cfg.WOL != nil)
	fmt.Printf("  SSH Shutdown: %v\n", cfg.SSHShutdown != nil)

	if cfg.Notifications.Enabled {
		fmt.Println()
		fmt.Println("Notification Configuration:")
		fmt.Printf("  Email: %s\n", cfg.Notifications.Email)
	}

	if cfg.WOL != nil {
		fmt.Println()
		fmt.Println("WOL Configuration:")
		fmt.Printf("  MAC Address: %s\n", cfg.WOL.MACAddress)
		fmt.Printf("  Broadcast IP: %s\n", cfg.WOL.BroadcastIP)
		if cfg.WOL.PingURL != "" {
			fmt.Printf("  Ping URL: %s\n", cfg.WOL.PingURL)
		}
	}

	if cfg.SSHShutdown != nil {
		fmt.Println()
		fmt.Println("SSH Shutdown Configuration:")
		fmt.Printf("  Host: %s\n", cfg.SSHShutdown.Host)
		fmt.Printf("  Port: %d\n", cfg.SSHShutdown.Port)
		fmt.Printf("  Username: %s\n", cfg.SSHShutdown.Username)
		fmt.Printf("  Shutdown Delay: %d minute(s)\n", cfg.SSHShutdown.DelayMinutes)
	}

	return nil
}
