package cmd

import (
	"fmt"
	"io"
	"os"

	"video2audio/infrastructure/config"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// DefaultOutput is the default output writer for config commands
var DefaultOutput io.Writer = os.Stdout

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the configuration",
	Long: `Inspect the effective configuration.

The effective configuration is the config file with defaults filled in and
VIDEO2AUDIO_* environment overrides applied.

Examples:
  video2audio config show
  video2audio config validate --config /etc/video2audio.yaml`,
}

func init() {
	rootCmd.AddCommand(configCmd)

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfgErr != nil {
			return fmt.Errorf("failed to load configuration: %w", cfgErr)
		}
		return RunConfigShow(GetConfig(), DefaultOutput)
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration for unusable values",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		fmt.Fprintf(DefaultOutput, "Configuration OK (%s, %s)\n", cfgFile, c.Audio.Codec)
		return nil
	},
}

// RunConfigShow writes cfg as YAML
func RunConfigShow(cfg *config.Config, output io.Writer) error {
	if cfg == nil {
		cfg = config.Default()
	}
	enc := yaml.NewEncoder(output)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}
	return enc.Close()
}
