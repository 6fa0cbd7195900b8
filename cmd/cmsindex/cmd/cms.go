package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/cmsindex/internal/cms"
	cmserrors "github.com/Aman-CERP/cmsindex/internal/errors"
)

func newCMSCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cms",
		Short: "Manage the local CMS database",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the CMS tables and load a small sample site",
		Long: `Create the CMS tables in the sqlite database at cms.dsn and load a sample
site: two published pages, a draft, an image folder with one image and a
member. Re-running it overwrites the sample rows.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}
			if d := strings.ToLower(cfg.CMS.Driver); d != "sqlite" && d != "" {
				return cmserrors.ValidationError("cms init only supports the sqlite driver", nil).
					WithDetail("driver", cfg.CMS.Driver)
			}

			repo, err := cms.OpenSQLite(cfg.CMS.DSN)
			if err != nil {
				return cmserrors.New(cmserrors.ErrCodeCMSUnavailable, "failed to open the CMS database", err)
			}
			defer func() { _ = repo.Close() }()

			if err := cms.Seed(cmd.Context(), repo); err != nil {
				return cmserrors.New(cmserrors.ErrCodeCMSUnavailable, "failed to seed the CMS database", err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d entities into %s\n", len(cms.SampleEntities()), cfg.CMS.DSN)
			return nil
		},
	})

	return cmd
}
