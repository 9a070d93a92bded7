package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/TimurManjosov/packgenie/internal/cli"
	"github.com/spf13/cobra"
)

func newConfigCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long:  `Manage the packgenie CLI configuration file.`,
	}
	cmd.AddCommand(
		newConfigInitCmd(opts),
		newConfigListCmd(opts),
		newConfigGetCmd(opts),
		newConfigSetCmd(opts),
	)
	return cmd
}

func newConfigInitCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration file",
		Long: `Create a default configuration file at ~/.packgenie/config.yaml

Example:
  packgenie config init`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cli.InitConfig(); err != nil {
				return fmt.Errorf("failed to initialize config: %w", err)
			}

			configPath, _ := cli.GetConfigPath()
			opts.printf(cmd, "Configuration file created at: %s\n", configPath)
			return nil
		},
	}
}

func newConfigListCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Default file: %s\n", cfg.DefaultFile)
			fmt.Fprintf(out, "Default server: %s\n\n", cfg.DefaultServer)
			fmt.Fprintln(out, "Servers:")

			names := make([]string, 0, len(cfg.Servers))
			for name := range cfg.Servers {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				srv := cfg.Servers[name]
				fmt.Fprintf(out, "  %s:\n", name)
				fmt.Fprintf(out, "    base_url: %s\n", srv.BaseURL)
				fmt.Fprintf(out, "    api_key: %s\n", maskKey(srv.APIKey))
			}
			return nil
		},
	}
}

func newConfigGetCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Long: `Get a configuration value: default_file, default_server or
<server>.base_url / <server>.api_key.

Examples:
  packgenie config get default_file
  packgenie config get local.base_url`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			value, err := configValue(cfg, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		},
	}
}

func newConfigSetCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long: `Set a configuration value.

Examples:
  packgenie config set default_file data/packs.json
  packgenie config set prod.base_url https://packs.example.com
  packgenie config set prod.api_key pgk_...`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			key, value := args[0], args[1]
			switch key {
			case "default_file":
				cfg.DefaultFile = value
			case "default_server":
				cfg.DefaultServer = value
			default:
				name, field, ok := strings.Cut(key, ".")
				if !ok {
					return fmt.Errorf("unknown key '%s'", key)
				}
				srv := cfg.Servers[name]
				switch field {
				case "base_url":
					srv.BaseURL = value
				case "api_key":
					srv.APIKey = value
				default:
					return fmt.Errorf("unknown key '%s', valid keys: base_url, api_key", field)
				}
				cfg.Servers[name] = srv
			}

			if err := cli.SaveConfig(cfg); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}
			opts.printf(cmd, "Successfully set %s\n", key)
			return nil
		},
	}
}

func configValue(cfg *cli.Config, key string) (string, error) {
	switch key {
	case "default_file":
		return cfg.DefaultFile, nil
	case "default_server":
		return cfg.DefaultServer, nil
	}

	name, field, ok := strings.Cut(key, ".")
	if !ok {
		return "", fmt.Errorf("unknown key '%s'", key)
	}
	srv, exists := cfg.Servers[name]
	if !exists {
		return "", fmt.Errorf("server '%s' not found", name)
	}
	switch field {
	case "base_url":
		return srv.BaseURL, nil
	case "api_key":
		return srv.APIKey, nil
	default:
		return "", fmt.Errorf("unknown key '%s', valid keys: base_url, api_key", field)
	}
}

// maskKey hides all but the first four characters.
func maskKey(key string) string {
	if len(key) > 4 {
		return key[:4] + "***"
	}
	return "***"
}
