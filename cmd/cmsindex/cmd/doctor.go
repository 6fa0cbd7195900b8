package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/cmsindex/internal/cms"
	cmserrors "github.com/Aman-CERP/cmsindex/internal/errors"
	"github.com/Aman-CERP/cmsindex/internal/preflight"
)

// doctorReport is the --json output of doctor.
type doctorReport struct {
	Status string                  `json:"status"`
	Checks []preflight.CheckResult `json:"checks"`
}

func newDoctorCmd(root *rootOptions) *cobra.Command {
	var (
		verbose    bool
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the CMS connection, storage and index before a reindex",
		Long: `Run diagnostics against the configured CMS, index directory and session
directory. Missing indexes and low file limits are warnings; an unreachable
CMS or unwritable storage fails the check.`,
		Example: `  # Run diagnostics
  cmsindex doctor

  # JSON output for scripting
  cmsindex doctor --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			logger := commandLogger(cmd, root, cfg)

			targets := preflight.Targets{
				IndexName:    cfg.Index.Name,
				IndexPath:    cfg.Index.Path,
				SessionsPath: cfg.Sessions.StoragePath,
			}
			var results []preflight.CheckResult

			repo, err := cms.Open(ctx, cfg.CMS.Driver, cfg.CMS.DSN)
			if err != nil {
				results = append(results, preflight.CheckResult{
					Name:     "cms_connection",
					Status:   preflight.StatusFail,
					Message:  "failed to connect",
					Details:  err.Error(),
					Required: true,
				})
			} else {
				defer func() { _ = repo.Close() }()
				targets.CMS = repo
			}

			gw, err := openGateway(cfg, logger)
			if err == nil {
				defer func() { _ = gw.Close() }()
				targets.Indexes = gw
			}

			checker := preflight.New(
				preflight.WithVerbose(verbose),
				preflight.WithOutput(cmd.OutOrStdout()),
			)
			results = append(results, checker.RunAll(ctx, targets)...)

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(doctorReport{Status: checker.SummaryStatus(results), Checks: results}); err != nil {
					return err
				}
			} else {
				checker.PrintResults(results)
			}

			if checker.HasCriticalFailures(results) {
				return cmserrors.New(cmserrors.ErrCodeCMSUnavailable, "system check failed", nil).
					WithSuggestion("run 'cmsindex doctor --verbose' for details")
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show detailed diagnostic info")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
