package commands

import (
	"context"
	"fmt"

	"github.com/TimurManjosov/packgenie/internal/cli"
	"github.com/TimurManjosov/packgenie/internal/client"
	"github.com/TimurManjosov/packgenie/internal/store"
	"github.com/TimurManjosov/packgenie/internal/validation"
	"github.com/spf13/cobra"
)

type remoteOptions struct {
	server  string
	baseURL string
	apiKey  string
}

func (r *remoteOptions) client() (*client.Client, string, error) {
	srv, name, err := cli.GetServerConfig(r.server, r.baseURL, r.apiKey)
	if err != nil {
		return nil, "", fmt.Errorf("configuration error: %w", err)
	}
	return client.NewClient(srv.BaseURL, srv.APIKey), name, nil
}

func newRemoteCmd(opts *globalOptions) *cobra.Command {
	remote := &remoteOptions{}

	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Work with the catalogue on a running pack server",
		Long: `Work with the catalogue served by packgenie-server.

Examples:
  packgenie remote list --server prod
  packgenie remote push cyl-200.yaml
  packgenie remote publish --file data/packs.json
  packgenie remote pull --file data/packs.json
  packgenie remote select --context job.json`,
	}

	cmd.PersistentFlags().StringVar(&remote.server, "server", "", "Server name from ~/.packgenie/config.yaml")
	cmd.PersistentFlags().StringVar(&remote.baseURL, "base-url", "", "Base URL of the pack server")
	cmd.PersistentFlags().StringVar(&remote.apiKey, "api-key", "", "Admin API key")

	cmd.AddCommand(
		newRemoteListCmd(opts, remote),
		newRemotePushCmd(opts, remote),
		newRemoteDeleteCmd(opts, remote),
		newRemotePullCmd(opts, remote),
		newRemotePublishCmd(opts, remote),
		newRemoteTestCmd(opts, remote),
		newRemoteSelectCmd(opts, remote),
	)
	return cmd
}

func newRemoteListCmd(opts *globalOptions, remote *remoteOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List packs on the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := remote.client()
			if err != nil {
				return err
			}
			packs, err := c.ListPacks(context.Background())
			if err != nil {
				return fmt.Errorf("failed to list packs: %w", err)
			}
			if opts.quiet {
				return nil
			}
			return cli.PrintPacks(cmd.OutOrStdout(), packs, opts.outputFormat())
		},
	}
}

func newRemotePushCmd(opts *globalOptions, remote *remoteOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "push <pack-file>",
		Short: "Create or replace one pack on the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var pack store.Pack
			if err := decodeFile(cmd, args[0], &pack); err != nil {
				return err
			}
			if result := validation.ValidatePack(pack); !result.Valid {
				return validationError("pack is invalid", result)
			}

			c, name, err := remote.client()
			if err != nil {
				return err
			}
			res, err := c.UpsertPack(context.Background(), pack)
			if err != nil {
				return fmt.Errorf("failed to push pack: %w", err)
			}
			for field, msg := range res.Warnings {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s: %s\n", field, msg)
			}
			opts.printf(cmd, "Pushed pack '%s' to %s (etag %s)\n", pack.ID, displayServer(name), res.ETag)
			return nil
		},
	}
}

func newRemoteDeleteCmd(opts *globalOptions, remote *remoteOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a pack on the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, name, err := remote.client()
			if err != nil {
				return err
			}
			if err := c.DeletePack(context.Background(), args[0]); err != nil {
				return fmt.Errorf("failed to delete pack: %w", err)
			}
			opts.printf(cmd, "Deleted pack '%s' on %s\n", args[0], displayServer(name))
			return nil
		},
	}
}

func newRemotePullCmd(opts *globalOptions, remote *remoteOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "pull",
		Short: "Replace the local catalogue with the server's",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, name, err := remote.client()
			if err != nil {
				return err
			}
			ctx := context.Background()
			file, err := c.Export(ctx)
			if err != nil {
				return fmt.Errorf("failed to export from server: %w", err)
			}

			st, err := opts.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.Import(ctx, file); err != nil {
				return fmt.Errorf("failed to write local catalogue: %w", err)
			}
			opts.printf(cmd, "Pulled %d pack(s) from %s into %s\n", len(file.Packs), displayServer(name), st.Path())
			return nil
		},
	}
}

func newRemotePublishCmd(opts *globalOptions, remote *remoteOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "publish",
		Short: "Replace the server's catalogue with the local one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := opts.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := context.Background()
			file, err := st.Export(ctx)
			if err != nil {
				return err
			}
			if result := validation.ValidatePackFile(file); !result.Valid {
				return validationError("local catalogue is invalid", result)
			}

			c, name, err := remote.client()
			if err != nil {
				return err
			}
			if err := c.Import(ctx, file); err != nil {
				return fmt.Errorf("failed to publish: %w", err)
			}
			opts.printf(cmd, "Published %d pack(s) to %s\n", len(file.Packs), displayServer(name))
			return nil
		},
	}
}

func newRemoteTestCmd(opts *globalOptions, remote *remoteOptions) *cobra.Command {
	var contextPath string

	cmd := &cobra.Command{
		Use:   "test <id>",
		Short: "Evaluate a pack on the server against a job context",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobCtx, err := readContext(cmd, contextPath)
			if err != nil {
				return err
			}
			c, _, err := remote.client()
			if err != nil {
				return err
			}
			verdict, err := c.Evaluate(context.Background(), args[0], jobCtx)
			if err != nil {
				return err
			}
			if opts.quiet {
				return nil
			}
			return cli.PrintVerdict(cmd.OutOrStdout(), verdict, opts.outputFormat())
		},
	}

	cmd.Flags().StringVarP(&contextPath, "context", "c", "", "Job context file (JSON or YAML, - for stdin)")
	return cmd
}

func newRemoteSelectCmd(opts *globalOptions, remote *remoteOptions) *cobra.Command {
	var (
		contextPath     string
		includeDisabled bool
	)

	cmd := &cobra.Command{
		Use:   "select",
		Short: "Run a selection on the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			jobCtx, err := readContext(cmd, contextPath)
			if err != nil {
				return err
			}
			c, _, err := remote.client()
			if err != nil {
				return err
			}
			result, err := c.Select(context.Background(), jobCtx, includeDisabled)
			if err != nil {
				return fmt.Errorf("selection failed: %w", err)
			}
			if opts.quiet {
				return nil
			}
			return cli.PrintSelection(cmd.OutOrStdout(), result.Result, opts.outputFormat())
		},
	}

	cmd.Flags().StringVarP(&contextPath, "context", "c", "", "Job context file (JSON or YAML, - for stdin)")
	cmd.Flags().BoolVar(&includeDisabled, "include-disabled", false, "Evaluate disabled packs too")
	return cmd
}

func displayServer(name string) string {
	if name == "" {
		return "server"
	}
	return "'" + name + "'"
}
