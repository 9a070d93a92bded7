package commands

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/TimurManjosov/packgenie/internal/cli"
	"github.com/TimurManjosov/packgenie/internal/store"
	"github.com/TimurManjosov/packgenie/internal/validation"
	"github.com/spf13/cobra"
)

func newListCmd(opts *globalOptions) *cobra.Command {
	var enabledOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all packs",
		Long: `List all packs in catalogue order.

Examples:
  packgenie list
  packgenie list --format json
  packgenie list --enabled-only`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := opts.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			packs, err := st.ListPacks(context.Background())
			if err != nil {
				return fmt.Errorf("failed to list packs: %w", err)
			}

			if enabledOnly {
				enabled := packs[:0]
				for _, p := range packs {
					if p.Enabled {
						enabled = append(enabled, p)
					}
				}
				packs = enabled
			}

			if opts.quiet {
				return nil
			}
			if len(packs) == 0 && opts.outputFormat() == cli.FormatTable {
				fmt.Fprintln(cmd.OutOrStdout(), "No packs found")
				return nil
			}
			return cli.PrintPacks(cmd.OutOrStdout(), packs, opts.outputFormat())
		},
	}

	cmd.Flags().BoolVar(&enabledOnly, "enabled-only", false, "Show only enabled packs")
	return cmd
}

func newGetCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a pack and its rules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := opts.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			pack, err := st.GetPack(context.Background(), args[0])
			if err != nil {
				return err
			}
			if opts.quiet {
				return nil
			}
			return cli.PrintPack(cmd.OutOrStdout(), pack, opts.outputFormat())
		},
	}
}

func newSaveCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "save <pack-file>",
		Short: "Create or replace a pack from a JSON or YAML file",
		Long: `Create or replace a pack. A pack with an existing id is replaced in
place; a new id is appended to the catalogue. Rule problems are reported as
warnings and do not block the save.

Examples:
  packgenie save cyl-200.yaml
  cat pack.json | packgenie save -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var pack store.Pack
			if err := decodeFile(cmd, args[0], &pack); err != nil {
				return err
			}

			if result := validation.ValidatePack(pack); !result.Valid {
				return validationError("pack is invalid", result)
			}

			st, err := opts.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := context.Background()
			_, getErr := st.GetPack(ctx, pack.ID)
			created := errors.Is(getErr, store.ErrPackNotFound)

			if err := st.UpsertPack(ctx, pack); err != nil {
				return fmt.Errorf("failed to save pack: %w", err)
			}

			printWarnings(cmd, validation.ValidateRules(pack.Rules))
			if created {
				opts.printf(cmd, "Created pack '%s'\n", pack.ID)
			} else {
				opts.printf(cmd, "Updated pack '%s'\n", pack.ID)
			}
			return nil
		},
	}
}

func newDeleteCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a pack",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := opts.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.DeletePack(context.Background(), args[0]); err != nil {
				return fmt.Errorf("failed to delete pack: %w", err)
			}
			opts.printf(cmd, "Deleted pack '%s'\n", args[0])
			return nil
		},
	}
}

func newCloneCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clone <id>",
		Short: "Copy a pack to <id>_copy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := opts.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			clone, err := st.ClonePack(context.Background(), args[0])
			if err != nil {
				return err
			}
			opts.printf(cmd, "Cloned '%s' to '%s'\n", args[0], clone.ID)
			return nil
		},
	}
}

// newToggleCmd builds "enable" or "disable".
func newToggleCmd(opts *globalOptions, enable bool) *cobra.Command {
	use, verb := "disable", "Disabled"
	if enable {
		use, verb = "enable", "Enabled"
	}

	return &cobra.Command{
		Use:   use + " <id>",
		Short: verb + " a pack for selection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := opts.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := context.Background()
			pack, err := st.GetPack(ctx, args[0])
			if err != nil {
				return err
			}
			pack.Enabled = enable
			if err := st.UpsertPack(ctx, *pack); err != nil {
				return fmt.Errorf("failed to save pack: %w", err)
			}
			opts.printf(cmd, "%s pack '%s'\n", verb, pack.ID)
			return nil
		},
	}
}

func validationError(msg string, result *validation.ValidationResult) error {
	fields := make([]string, 0, len(result.Errors))
	for field := range result.Errors {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	out := msg + ":"
	for _, field := range fields {
		out += fmt.Sprintf("\n  %s: %s", field, result.Errors[field])
	}
	return errors.New(out)
}

func printWarnings(cmd *cobra.Command, result *validation.ValidationResult) {
	if result.Valid {
		return
	}
	fields := make([]string, 0, len(result.Errors))
	for field := range result.Errors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s: %s\n", field, result.Errors[field])
	}
}
