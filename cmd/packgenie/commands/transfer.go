package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/TimurManjosov/packgenie/internal/store"
	"github.com/TimurManjosov/packgenie/internal/validation"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newImportCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <pack-file>",
		Short: "Replace the catalogue with a JSON or YAML pack file",
		Long: `Replace the whole catalogue. The file must contain a packs array, every
pack needs an id and ids must be unique; nothing is written otherwise.

Examples:
  packgenie import packs.json
  packgenie import packs.yaml --file data/packs.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := loadPackFile(cmd, args[0])
			if err != nil {
				return err
			}

			st, err := opts.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.Import(context.Background(), *file); err != nil {
				return fmt.Errorf("failed to import: %w", err)
			}
			opts.printf(cmd, "Imported %d pack(s) into %s\n", len(file.Packs), st.Path())
			return nil
		},
	}
}

func newExportCmd(opts *globalOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the catalogue as JSON or YAML",
		Long: `Write the catalogue to stdout or to --output. A .yaml or .yml output
path writes YAML; anything else writes JSON.

Examples:
  packgenie export > backup.json
  packgenie export --output packs.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := opts.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			file, err := st.Export(context.Background())
			if err != nil {
				return fmt.Errorf("failed to export: %w", err)
			}

			data, err := encodePackFile(file, isYAML(output))
			if err != nil {
				return err
			}
			if output == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}
			opts.printf(cmd, "Exported %d pack(s) to %s\n", len(file.Packs), output)
			return nil
		},
	}

	cmd.Flags().StringVar(&output, "output", "", "Output file (default stdout)")
	return cmd
}

// loadPackFile reads and validates a catalogue. YAML is converted to JSON
// first so both formats go through the same checks.
func loadPackFile(cmd *cobra.Command, path string) (*store.PackFile, error) {
	raw, err := readInput(cmd, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if isYAML(path) {
		var doc any
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("invalid YAML in %s: %w", path, err)
		}
		if raw, err = json.Marshal(doc); err != nil {
			return nil, fmt.Errorf("%s cannot be represented as JSON: %w", path, err)
		}
	}

	result, file := validation.ValidatePackFileJSON(raw)
	if !result.Valid {
		return nil, validationError("pack file is invalid", result)
	}
	return file, nil
}

func encodePackFile(file store.PackFile, asYAML bool) ([]byte, error) {
	if asYAML {
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(file); err != nil {
			return nil, fmt.Errorf("failed to encode YAML: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode JSON: %w", err)
	}
	return append(data, '\n'), nil
}
