// Package commands implements the packgenie command line.
package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/TimurManjosov/packgenie/internal/cli"
	"github.com/TimurManjosov/packgenie/internal/engine"
	"github.com/TimurManjosov/packgenie/internal/logging"
	"github.com/TimurManjosov/packgenie/internal/store"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// globalOptions carries the persistent flags to every subcommand.
type globalOptions struct {
	file      string
	format    string
	quiet     bool
	verbosity int

	logger zerolog.Logger
}

// NewRootCmd creates and returns the root command
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{logger: zerolog.Nop()}

	rootCmd := &cobra.Command{
		Use:   "packgenie",
		Short: "CLI tool for managing job packs and their rules",
		Long: `packgenie manages a catalogue of job packs: priced bundles of labour and
materials with include_if / exclude_if rules that decide whether a pack
applies to a job.

Examples:
  packgenie list
  packgenie save pack.yaml
  packgenie rule add cyl-200 --clause exclude_if --field system.system_type --operator equals --value combi
  packgenie test cyl-200 --context job.json
  packgenie select --context job.json
  packgenie export --output packs.yaml`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			opts.logger = logging.SetupCLI(opts.verbosity, cmd.ErrOrStderr())
			opts.logger.Debug().Str("command", cmd.Name()).Msg("command started")
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.file, "file", "f", "", "Catalogue file (default from PACKGENIE_FILE or ~/.packgenie/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&opts.format, "format", "o", "table", "Output format (table, json, yaml)")
	rootCmd.PersistentFlags().BoolVarP(&opts.quiet, "quiet", "q", false, "Suppress output")
	rootCmd.PersistentFlags().CountVarP(&opts.verbosity, "verbose", "v", "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)")

	rootCmd.AddCommand(
		newListCmd(opts),
		newGetCmd(opts),
		newSaveCmd(opts),
		newDeleteCmd(opts),
		newCloneCmd(opts),
		newToggleCmd(opts, true),
		newToggleCmd(opts, false),
		newRuleCmd(opts),
		newImportCmd(opts),
		newExportCmd(opts),
		newTestCmd(opts),
		newEvalCmd(opts),
		newSelectCmd(opts),
		newConfigCmd(opts),
		newKeygenCmd(opts),
		newRemoteCmd(opts),
	)

	return rootCmd
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}

// openStore opens the local catalogue file.
func (o *globalOptions) openStore() (*store.FileStore, error) {
	path, err := cli.ResolvePacksFile(o.file)
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	st, err := store.NewFileStore(path, o.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return st, nil
}

func (o *globalOptions) outputFormat() cli.OutputFormat {
	return cli.OutputFormat(o.format)
}

// printf writes to the command's stdout unless --quiet is set.
func (o *globalOptions) printf(cmd *cobra.Command, format string, args ...any) {
	if o.quiet {
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}

// readInput reads a file, or stdin when path is "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// decodeFile decodes JSON, or YAML for .yaml/.yml paths.
func decodeFile(cmd *cobra.Command, path string, v any) error {
	raw, err := readInput(cmd, path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if isYAML(path) {
		if err := yaml.Unmarshal(raw, v); err != nil {
			return fmt.Errorf("invalid YAML in %s: %w", path, err)
		}
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("invalid JSON in %s: %w", path, err)
	}
	return nil
}

// readContext loads a job context. YAML mappings are converted through JSON
// so nested values have the same shapes as a decoded JSON body.
func readContext(cmd *cobra.Command, path string) (engine.Context, error) {
	if path == "" {
		return nil, fmt.Errorf("--context is required")
	}
	var raw map[string]any
	if err := decodeFile(cmd, path, &raw); err != nil {
		return nil, err
	}
	if !isYAML(path) {
		return engine.Context(raw), nil
	}
	blob, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("context in %s is not JSON-compatible: %w", path, err)
	}
	var ctx engine.Context
	if err := json.Unmarshal(blob, &ctx); err != nil {
		return nil, err
	}
	return ctx, nil
}
