package commands

import (
	"context"
	"fmt"

	"github.com/TimurManjosov/packgenie/internal/cli"
	"github.com/TimurManjosov/packgenie/internal/engine"
	"github.com/TimurManjosov/packgenie/internal/selection"
	"github.com/TimurManjosov/packgenie/internal/store"
	"github.com/spf13/cobra"
)

func newTestCmd(opts *globalOptions) *cobra.Command {
	var contextPath string

	cmd := &cobra.Command{
		Use:   "test <id>",
		Short: "Evaluate a saved pack against a job context",
		Long: `Evaluate one pack's rules against a job context file and print which
conditions passed.

Examples:
  packgenie test cyl-200 --context job.json
  packgenie test cyl-200 --context job.yaml --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobCtx, err := readContext(cmd, contextPath)
			if err != nil {
				return err
			}

			st, err := opts.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			pack, err := st.GetPack(context.Background(), args[0])
			if err != nil {
				return err
			}

			verdict := engine.EvaluatePack(pack, jobCtx)
			opts.logger.Debug().Str("pack_id", pack.ID).Bool("include", verdict.ShouldInclude).Msg("pack evaluated")
			if opts.quiet {
				return nil
			}
			return cli.PrintVerdict(cmd.OutOrStdout(), verdict, opts.outputFormat())
		},
	}

	cmd.Flags().StringVarP(&contextPath, "context", "c", "", "Job context file (JSON or YAML, - for stdin)")
	return cmd
}

func newEvalCmd(opts *globalOptions) *cobra.Command {
	var (
		packPath    string
		contextPath string
	)

	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Evaluate an unsaved pack file against a job context",
		Long: `Evaluate a pack straight from a file without touching the catalogue.

Example:
  packgenie eval --pack draft.yaml --context job.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if packPath == "" {
				return fmt.Errorf("--pack is required")
			}
			var pack store.Pack
			if err := decodeFile(cmd, packPath, &pack); err != nil {
				return err
			}
			jobCtx, err := readContext(cmd, contextPath)
			if err != nil {
				return err
			}

			verdict := engine.EvaluatePack(&pack, jobCtx)
			if opts.quiet {
				return nil
			}
			return cli.PrintVerdict(cmd.OutOrStdout(), verdict, opts.outputFormat())
		},
	}

	cmd.Flags().StringVar(&packPath, "pack", "", "Pack file (JSON or YAML)")
	cmd.Flags().StringVarP(&contextPath, "context", "c", "", "Job context file (JSON or YAML, - for stdin)")
	return cmd
}

func newSelectCmd(opts *globalOptions) *cobra.Command {
	var (
		contextPath     string
		includeDisabled bool
		workers         int
	)

	cmd := &cobra.Command{
		Use:   "select",
		Short: "Evaluate every pack against a job context",
		Long: `Evaluate the whole catalogue against one job context and list the packs
that apply. Disabled packs are skipped unless --include-disabled is set.

Examples:
  packgenie select --context job.json
  packgenie select --context job.json --format json --include-disabled`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			jobCtx, err := readContext(cmd, contextPath)
			if err != nil {
				return err
			}

			st, err := opts.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			packs, err := st.ListPacks(ctx)
			if err != nil {
				return err
			}

			result, err := selection.Select(ctx, packs, jobCtx, selection.Options{
				IncludeDisabled: includeDisabled,
				Workers:         workers,
			})
			if err != nil {
				return fmt.Errorf("selection failed: %w", err)
			}

			included, excluded, skipped := result.Counts()
			opts.logger.Info().
				Int("included", included).
				Int("excluded", excluded).
				Int("skipped", skipped).
				Msg("selection complete")

			if opts.quiet {
				return nil
			}
			return cli.PrintSelection(cmd.OutOrStdout(), result, opts.outputFormat())
		},
	}

	cmd.Flags().StringVarP(&contextPath, "context", "c", "", "Job context file (JSON or YAML, - for stdin)")
	cmd.Flags().BoolVar(&includeDisabled, "include-disabled", false, "Evaluate disabled packs too")
	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent evaluations (default GOMAXPROCS)")
	return cmd
}
