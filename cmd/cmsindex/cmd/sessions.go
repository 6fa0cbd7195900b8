package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/cmsindex/internal/cms"
	cmserrors "github.com/Aman-CERP/cmsindex/internal/errors"
	"github.com/Aman-CERP/cmsindex/internal/session"
	"github.com/Aman-CERP/cmsindex/internal/ui"
)

func newSessionsCmd(root *rootOptions) *cobra.Command {
	var jsonOutput bool

	runList := func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(root)
		if err != nil {
			return err
		}
		sessions, err := listSessions(cfg)
		if err != nil {
			return err
		}
		renderer := ui.NewStatusRenderer(cmd.OutOrStdout(), root.noColor)
		if jsonOutput {
			return renderer.RenderJSON(sessions)
		}
		return renderer.RenderSessions(sessions)
	}

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List, delete and prune reindex sessions",
		Args:  cobra.NoArgs,
		RunE:  runList,
	}
	cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored sessions, newest first",
		Args:  cobra.NoArgs,
		RunE:  runList,
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete a session's id snapshots",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			if err := session.ValidateSessionID(id); err != nil {
				return cmserrors.ValidationError("invalid session id", err)
			}
			store, err := openSessionStore(root)
			if err != nil {
				return err
			}

			found := false
			for _, kind := range cms.Kinds() {
				if store.Exists(id, kind.FileName()) {
					found = true
				}
				if err := store.Delete(id, kind.FileName()); err != nil {
					return err
				}
			}
			if !found {
				return cmserrors.ValidationError("session not found: "+id, nil)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted session %s\n", id)
			return nil
		},
	})

	var olderThan string
	prune := &cobra.Command{
		Use:   "prune",
		Short: "Delete sessions not written within --older-than",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}
			maxAge := cfg.SessionMaxAge()
			if olderThan != "" {
				if maxAge, err = parseDuration(olderThan); err != nil {
					return cmserrors.ValidationError("invalid --older-than", err)
				}
			}

			store, err := session.NewStore(cfg.Sessions.StoragePath)
			if err != nil {
				return cmserrors.New(cmserrors.ErrCodeSessionIO, "failed to open session storage", err)
			}
			n, err := store.Prune(maxAge)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d session(s)\n", n)
			return nil
		},
	}
	prune.Flags().StringVar(&olderThan, "older-than", "", "Age threshold, e.g. 12h or 7d (default: sessions.max_age)")
	cmd.AddCommand(prune)

	return cmd
}

func openSessionStore(root *rootOptions) (*session.Store, error) {
	cfg, err := loadConfig(root)
	if err != nil {
		return nil, err
	}
	store, err := session.NewStore(cfg.Sessions.StoragePath)
	if err != nil {
		return nil, cmserrors.New(cmserrors.ErrCodeSessionIO, "failed to open session storage", err)
	}
	return store, nil
}

// parseDuration extends time.ParseDuration with a day suffix.
func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid day count: %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration must not be negative: %q", s)
	}
	return d, nil
}
