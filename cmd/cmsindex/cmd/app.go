package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/cmsindex/internal/cms"
	"github.com/Aman-CERP/cmsindex/internal/computed"
	"github.com/Aman-CERP/cmsindex/internal/config"
	cmserrors "github.com/Aman-CERP/cmsindex/internal/errors"
	"github.com/Aman-CERP/cmsindex/internal/gateway"
	"github.com/Aman-CERP/cmsindex/internal/logging"
	"github.com/Aman-CERP/cmsindex/internal/reindex"
	"github.com/Aman-CERP/cmsindex/internal/schema"
	"github.com/Aman-CERP/cmsindex/internal/session"
	"github.com/Aman-CERP/cmsindex/internal/transform"
)

// app is the fully wired pipeline used by the commands that read the CMS.
type app struct {
	cfg         *config.Config
	logger      *slog.Logger
	repo        cms.Repository
	builder     *schema.Builder
	transformer *transform.Transformer
	gateway     *gateway.BleveGateway
	sessions    *session.Store
	runner      *reindex.Runner
}

// loadConfig reads --config, or .cmsindex.yaml from the working directory.
func loadConfig(opts *rootOptions) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.configPath != "" {
		cfg, err = config.LoadFile(opts.configPath)
	} else {
		dir, wdErr := os.Getwd()
		if wdErr != nil {
			return nil, cmserrors.ConfigError("failed to get working directory", wdErr)
		}
		cfg, err = config.Load(dir)
	}
	if err != nil {
		return nil, cmserrors.ConfigError(err.Error(), err).
			WithSuggestion("run 'cmsindex config init' to write a starting configuration")
	}
	return cfg, nil
}

// commandLogger is the debug logger when --debug is set, else a console
// logger on stderr that stays quiet below warnings unless debug is configured.
func commandLogger(cmd *cobra.Command, opts *rootOptions, cfg *config.Config) *slog.Logger {
	if opts.debug {
		return slog.Default()
	}
	level := "warn"
	if strings.EqualFold(cfg.LogLevel, "debug") || strings.EqualFold(cfg.LogLevel, "error") {
		level = cfg.LogLevel
	}
	return logging.NewConsole(cmd.ErrOrStderr(), level)
}

// openGateway opens the configured index root.
func openGateway(cfg *config.Config, logger *slog.Logger) (*gateway.BleveGateway, error) {
	return gateway.NewBleveGateway(cfg.Index.Path, gateway.WithLogger(logger))
}

// connectCMS opens the CMS repository, retrying transient failures.
func connectCMS(ctx context.Context, cfg *config.Config, logger *slog.Logger) (cms.Repository, error) {
	retry := cmserrors.DefaultRetryConfig()
	retry.OnRetry = func(attempt int, err error, wait time.Duration) {
		logger.Warn("cms_connect_retry",
			slog.Int("attempt", attempt),
			slog.Duration("wait", wait),
			slog.String("error", err.Error()))
	}

	return cmserrors.Retry(ctx, retry, func(ctx context.Context) (cms.Repository, error) {
		repo, err := cms.Open(ctx, cfg.CMS.Driver, cfg.CMS.DSN)
		if err != nil {
			var ce *cmserrors.Error
			if errors.As(err, &ce) {
				return nil, err
			}
			return nil, cmserrors.New(cmserrors.ErrCodeCMSUnavailable, "failed to connect to the CMS", err).
				WithDetail("driver", cfg.CMS.Driver)
		}
		return repo, nil
	})
}

// openApp wires every collaborator. Computed field parsers are resolved
// first so a bad parser type fails before anything is touched.
func openApp(ctx context.Context, cmd *cobra.Command, opts *rootOptions) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	logger := commandLogger(cmd, opts, cfg)

	registry := computed.NewRegistry(computed.WithLogger(logger))
	if err := registry.RegisterAll(cfg.SearchFields); err != nil {
		return nil, err
	}

	repo, err := connectCMS(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, repo: repo}
	a.builder = schema.NewBuilder(repo, cfg.SearchFields, schema.WithLogger(logger))

	a.transformer, err = transform.NewTransformer(transform.Dependencies{
		CMS:      repo,
		Fields:   a.builder,
		Computed: registry,
		Logger:   logger,
	})
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.gateway, err = openGateway(cfg, logger)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.sessions, err = session.NewStore(cfg.Sessions.StoragePath)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.runner, err = reindex.NewRunner(reindex.RunnerDependencies{
		Source:      repo,
		Schema:      a.builder,
		Transformer: a.transformer,
		Gateway:     a.gateway,
		Admin:       a.gateway,
		Sessions:    a.sessions,
		Config:      cfg,
		Logger:      logger,
	})
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

// Close releases the index and the CMS connection.
func (a *app) Close() error {
	var errs []error
	if a.gateway != nil {
		errs = append(errs, a.gateway.Close())
	}
	if a.repo != nil {
		errs = append(errs, a.repo.Close())
	}
	return errors.Join(errs...)
}
