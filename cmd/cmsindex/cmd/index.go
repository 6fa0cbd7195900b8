package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	cmserrors "github.com/Aman-CERP/cmsindex/internal/errors"
	"github.com/Aman-CERP/cmsindex/internal/gateway"
	"github.com/Aman-CERP/cmsindex/internal/reindex"
)

func newIndexCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Manage search indexes",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "create",
		Short: "Drop and recreate the configured index from the current schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), cmd, root)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			msg := a.runner.DropCreateIndex(cmd.Context())
			if msg != reindex.MessageIndexCreated {
				return cmserrors.New(cmserrors.ErrCodeSubmissionFailed, "index creation failed: "+msg, nil).
					WithDetail("index", a.cfg.Index.Name)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", msg, a.cfg.Index.Name)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the indexes in index.path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}
			gw, err := openGateway(cfg, commandLogger(cmd, root, cfg))
			if err != nil {
				return err
			}
			defer func() { _ = gw.Close() }()

			names, err := gw.ListIndexes(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(names) == 0 {
				_, _ = fmt.Fprintln(out, "No indexes.")
				return nil
			}
			for _, name := range names {
				marker := " "
				if name == cfg.Index.Name {
					marker = "*"
				}
				_, _ = fmt.Fprintf(out, "%s %s\n", marker, name)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <name>",
		Short: "Delete an index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := gateway.ValidateIndexName(args[0]); err != nil {
				return cmserrors.ValidationError("invalid index name", err)
			}
			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}
			gw, err := openGateway(cfg, commandLogger(cmd, root, cfg))
			if err != nil {
				return err
			}
			defer func() { _ = gw.Close() }()

			if err := gw.DeleteIndex(cmd.Context(), args[0]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted index %s\n", args[0])
			return nil
		},
	})

	return cmd
}
