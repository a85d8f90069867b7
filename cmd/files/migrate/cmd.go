package migrate

import (
	"github.com/goldyy12/files/internal/cmdflags"
	"github.com/goldyy12/files/internal/logutil"
	"github.com/goldyy12/files/store"
	"github.com/urfave/cli/v2"
)

func Cmd() *cli.Command {
	var settings cmdflags.Settings
	return &cli.Command{
		Name:  "migrate",
		Usage: "Create or upgrade the database schema",
		Flags: settings.Common(),
		Action: func(ctx *cli.Context) error {
			cfg, err := settings.Load(ctx)
			if err != nil {
				return err
			}
			logger := logutil.New(cfg.LogLevel, settings.Pretty || cfg.Dev)
			st, err := store.OpenAndMigrate(logutil.WithLogger(ctx.Context, logger), cfg.Database)
			if err != nil {
				return err
			}
			logger.Info().Str("database", cfg.Database).Msg("Database is up to date")
			return st.Close()
		},
	}
}
