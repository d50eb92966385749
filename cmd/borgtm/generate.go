package main

import (
	"fmt"
	"os"

	"github.com/fgeck/borgtm/internal/config"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var generateConfigCmd = &cobra.Command{
	Use:   "generate-config [OUTPUT]",
	Short: "Write an example configuration file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		output := "borg-config.yaml"
		if len(args) > 0 {
			output = args[0]
		}

		if err := os.WriteFile(output, config.DefaultConfig, 0o644); err != nil {
			log.Error().Err(err).Str("output", output).Msg("failed to write example config")
			return err
		}

		fmt.Printf("Example configuration written to: %s\n", output)
		return nil
	},
}
