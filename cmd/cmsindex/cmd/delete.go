package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	cmserrors "github.com/Aman-CERP/cmsindex/internal/errors"
)

func newDeleteCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove an entity's document from the index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil || id <= 0 {
				return cmserrors.ValidationError("id must be a positive integer", err)
			}

			a, err := openApp(cmd.Context(), cmd, root)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			if err := a.runner.Delete(cmd.Context(), id); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d from %s\n", id, a.cfg.Index.Name)
			return nil
		},
	}
}
