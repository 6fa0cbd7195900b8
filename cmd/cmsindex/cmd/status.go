package cmd

import (
	"context"
	"slices"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/cmsindex/internal/config"
	cmserrors "github.com/Aman-CERP/cmsindex/internal/errors"
	"github.com/Aman-CERP/cmsindex/internal/session"
	"github.com/Aman-CERP/cmsindex/internal/ui"
)

func newStatusCmd(root *rootOptions) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show index health and pending reindex sessions",
		Long: `Display the configured index, its document count and field count, and
the reindex sessions still on disk. Sessions older than sessions.max_age are
marked stale.

Status does not connect to the CMS.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}
			info, err := collectStatus(cmd.Context(), cmd, root, cfg)
			if err != nil {
				return err
			}

			renderer := ui.NewStatusRenderer(cmd.OutOrStdout(), root.noColor)
			if jsonOutput {
				return renderer.RenderJSON(info)
			}
			return renderer.Render(info)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func collectStatus(ctx context.Context, cmd *cobra.Command, root *rootOptions, cfg *config.Config) (ui.StatusInfo, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	info := ui.StatusInfo{
		IndexName: cfg.Index.Name,
		CMSDriver: cfg.CMS.Driver,
		Sessions:  []ui.SessionInfo{},
	}

	gw, err := openGateway(cfg, commandLogger(cmd, root, cfg))
	if err != nil {
		return info, cmserrors.InternalError("failed to open index storage", err)
	}
	defer func() { _ = gw.Close() }()

	names, err := gw.ListIndexes(ctx)
	if err != nil {
		return info, err
	}
	if slices.Contains(names, cfg.Index.Name) {
		info.Exists = true
		if info.Documents, err = gw.DocCount(ctx, cfg.Index.Name); err != nil {
			return info, err
		}
		def, err := gw.Definition(ctx, cfg.Index.Name)
		if err != nil {
			return info, err
		}
		info.Fields = len(def.Fields)
	}

	sessions, err := listSessions(cfg)
	if err != nil {
		return info, err
	}
	info.Sessions = sessions
	return info, nil
}

// listSessions returns the stored sessions with staleness resolved.
func listSessions(cfg *config.Config) ([]ui.SessionInfo, error) {
	store, err := session.NewStore(cfg.Sessions.StoragePath)
	if err != nil {
		return nil, cmserrors.New(cmserrors.ErrCodeSessionIO, "failed to open session storage", err)
	}
	stored, err := store.List()
	if err != nil {
		return nil, err
	}

	maxAge := cfg.SessionMaxAge()
	out := make([]ui.SessionInfo, 0, len(stored))
	for _, s := range stored {
		out = append(out, ui.SessionInfo{
			ID:        s.ID,
			Files:     s.Files,
			UpdatedAt: s.UpdatedAt,
			Size:      s.Size,
			Stale:     s.IsStale(maxAge),
		})
	}
	return out, nil
}
