package cmd

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/cmsindex/internal/cms"
	cmserrors "github.com/Aman-CERP/cmsindex/internal/errors"
	"github.com/Aman-CERP/cmsindex/internal/reindex"
	"github.com/Aman-CERP/cmsindex/internal/session"
	"github.com/Aman-CERP/cmsindex/internal/ui"
)

type reindexOptions struct {
	sessionID   string
	page        int
	startPage   int
	id          int
	createIndex bool
}

func newReindexCmd(root *rootOptions) *cobra.Command {
	opts := &reindexOptions{}

	cmd := &cobra.Command{
		Use:   "reindex [content|media|member|all]",
		Short: "Send CMS entities to the search index page by page",
		Long: `Reindex snapshots the ids of a kind into a session and submits them in
pages. Without --page every remaining page is sent; with --page only that
page is processed (0 reports the queued count without sending anything).

Sessions are stored under sessions.storage_path. Reuse a session id to
continue an interrupted run.

Examples:
  # Rebuild the index and send everything
  cmsindex reindex all --create-index

  # Drive a run one page at a time
  cmsindex reindex content --session nightly --page 0
  cmsindex reindex content --session nightly --page 1

  # Reindex a single saved item
  cmsindex reindex media --id 1201`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := "all"
			if len(args) == 1 {
				target = args[0]
			}
			return runReindex(cmd, root, opts, target)
		},
	}

	cmd.Flags().StringVar(&opts.sessionID, "session", "", "Session id (default: a new random id)")
	cmd.Flags().IntVar(&opts.page, "page", -1, "Process only this page (0 = status probe)")
	cmd.Flags().IntVar(&opts.startPage, "start-page", 1, "First page to send when running to the end")
	cmd.Flags().IntVar(&opts.id, "id", 0, "Reindex a single entity by id")
	cmd.Flags().BoolVar(&opts.createIndex, "create-index", false, "Drop and recreate the index first")

	return cmd
}

// parseTargets expands "all" into every kind.
func parseTargets(target string) ([]cms.Kind, error) {
	if target == "all" {
		return cms.Kinds(), nil
	}
	kind, err := cms.ParseKind(target)
	if err != nil {
		return nil, cmserrors.ValidationError(err.Error(), err)
	}
	return []cms.Kind{kind}, nil
}

func runReindex(cmd *cobra.Command, root *rootOptions, opts *reindexOptions, target string) error {
	kinds, err := parseTargets(target)
	if err != nil {
		return err
	}
	if opts.id != 0 && len(kinds) != 1 {
		return cmserrors.ValidationError("--id needs a single kind: content, media or member", nil)
	}
	if opts.startPage < 1 {
		return cmserrors.ValidationError("--start-page must be >= 1", nil)
	}

	sessionID := opts.sessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	if err := session.ValidateSessionID(sessionID); err != nil {
		return cmserrors.ValidationError("invalid session id", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := openApp(ctx, cmd, root)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	out := cmd.OutOrStdout()
	if opts.createIndex {
		msg := a.runner.DropCreateIndex(ctx)
		if msg != reindex.MessageIndexCreated {
			return cmserrors.New(cmserrors.ErrCodeSubmissionFailed, "index creation failed: "+msg, nil)
		}
		_, _ = fmt.Fprintf(out, "%s: %s\n", msg, a.cfg.Index.Name)
	}

	if opts.id != 0 {
		return runReindexOne(cmd, a, kinds[0], opts.id)
	}

	reporter := ui.NewReporter(ui.NewConfig(out, ui.WithNoColor(root.noColor)))

	if opts.page >= 0 {
		for _, kind := range kinds {
			st, err := a.runner.Page(ctx, sessionID, kind, opts.page)
			if err != nil {
				return err
			}
			reporter.Page(pageEvent(st))
		}
		_, _ = fmt.Fprintf(out, "Session: %s\n", sessionID)
		return nil
	}

	start := time.Now()
	summary, err := driveKinds(ctx, a.runner, reporter, sessionID, kinds, opts.startPage)
	if err != nil {
		reporter.Warn("stopped; resume with --session %s", sessionID)
		return err
	}
	summary.Duration = time.Since(start)
	reporter.Complete(summary)
	return nil
}

// driveKinds runs every kind to completion. Kinds use distinct session
// files, so they run concurrently.
func driveKinds(ctx context.Context, runner *reindex.Runner, reporter *ui.Reporter, sessionID string, kinds []cms.Kind, startPage int) (ui.Summary, error) {
	var mu sync.Mutex
	summary := ui.Summary{SessionID: sessionID}

	g, ctx := errgroup.WithContext(ctx)
	for _, kind := range kinds {
		g.Go(func() error {
			st, err := runner.Page(ctx, sessionID, kind, 0)
			if err != nil {
				return err
			}
			reporter.Page(pageEvent(st))

			for page := startPage; !st.Finished; page++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				st, err = runner.Page(ctx, sessionID, kind, page)
				if err != nil {
					return fmt.Errorf("%s page %d: %w", kind, page, err)
				}
				reporter.Page(pageEvent(st))

				mu.Lock()
				if st.Processed > 0 {
					summary.Pages++
				}
				summary.Submitted += st.Submitted
				summary.Failed += len(st.FailedKeys)
				mu.Unlock()
			}
			return nil
		})
	}

	err := g.Wait()
	return summary, err
}

func runReindexOne(cmd *cobra.Command, a *app, kind cms.Kind, id int) error {
	res, err := a.runner.ReindexByID(cmd.Context(), kind, id)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	switch {
	case res == nil:
		_, _ = fmt.Fprintf(out, "%s %d was excluded by an indexing hook.\n", kind, id)
	case !res.Success:
		return cmserrors.SubmissionPartialError(res.Message, res.FailedKeys)
	default:
		_, _ = fmt.Fprintf(out, "Reindexed %s %d.\n", kind, id)
	}
	return nil
}

func pageEvent(st *reindex.Status) ui.PageEvent {
	return ui.PageEvent{
		Kind:       st.Kind,
		Page:       st.Page,
		TotalPages: st.TotalPages,
		Processed:  st.Processed,
		Submitted:  st.Submitted,
		Queued:     st.Queued(),
		Finished:   st.Finished,
		Message:    st.Message,
		FailedKeys: st.FailedKeys,
	}
}
