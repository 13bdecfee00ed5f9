package commands

// Command to print the effective configuration with secrets redacted

import (
	"fmt"
	"io"
	"xrpl-listing-bot/internal/infra/config"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML (secrets redacted)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return writeConfigYAML(cmd.OutOrStdout(), cfg)
	},
}

func writeConfigYAML(w io.Writer, c *config.Config) error {
	out, err := yaml.Marshal(c.Redacted())
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	_, err = w.Write(out)
	return err
}
