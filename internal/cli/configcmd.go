package cli

import (
	"fmt"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
)

func newConfigCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage intakectl configuration",
		Long:  "View or modify the configuration stored in ~/.intake/config.toml.",
	}
	cmd.AddCommand(newConfigShowCommand(opts), newConfigSetCommand(opts))
	return cmd
}

func newConfigShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(opts.ConfigPath)
			if err != nil {
				return err
			}
			shown := *cfg
			if shown.Server.APIKey != "" {
				shown.Server.APIKey = maskKey(shown.Server.APIKey)
			}
			data, err := toml.Marshal(shown)
			if err != nil {
				return fmt.Errorf("cannot marshal config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "# %s\n%s", opts.ConfigPath, data)
			return nil
		},
	}
}

func newConfigSetCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long:  "Set a configuration value using dot notation.\nExample: intakectl config set server.api_key tenant-key-123",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]

			cfg, err := LoadConfig(opts.ConfigPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if err := SetValue(cfg, key, value); err != nil {
				return err
			}
			if err := SaveConfig(opts.ConfigPath, cfg); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			shown := value
			if key == "server.api_key" {
				shown = maskKey(value)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key, shown)
			return nil
		},
	}
}
