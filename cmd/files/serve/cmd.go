package serve

import (
	"github.com/goldyy12/files/internal/bootstrap"
	"github.com/goldyy12/files/internal/cmdflags"
	"github.com/goldyy12/files/internal/httpserver"
	"github.com/goldyy12/files/internal/logutil"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

func Cmd() *cli.Command {
	var settings cmdflags.Settings
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the web application",
		Flags: settings.Server(),
		Action: func(ctx *cli.Context) error {
			cfg, err := settings.Load(ctx)
			if err != nil {
				return err
			}
			logger := logutil.New(cfg.LogLevel, settings.Pretty || cfg.Dev)
			generated, err := cfg.EnsureSecret()
			if err != nil {
				return err
			}
			if generated {
				logger.Warn().Msg("No session secret configured, using a random one. Sessions will not survive a restart")
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			appCtx := logutil.WithLogger(ctx.Context, logger)
			app, err := bootstrap.Build(appCtx, cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			logger.Info().
				Str("bind", cfg.Bind).
				Str("storage", cfg.StorageRoot).
				Str("sessions", cfg.SessionBackend).
				Int64("maxUpload", cfg.MaxUploadSize).
				Msg("Starting server")

			group, gctx := errgroup.WithContext(appCtx)
			group.Go(func() error {
				return httpserver.Serve(gctx, cfg.Bind, app.Handler(logger), httpserver.Options{})
			})
			group.Go(func() error {
				return app.Sweeper.Run(gctx)
			})
			return group.Wait()
		},
	}
}
