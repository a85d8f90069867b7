package sweep

import (
	"github.com/goldyy12/files/drive"
	"github.com/goldyy12/files/internal/cmdflags"
	"github.com/goldyy12/files/internal/logutil"
	"github.com/goldyy12/files/session"
	"github.com/goldyy12/files/store"
	"github.com/goldyy12/files/upload"
	"github.com/urfave/cli/v2"
)

func Cmd() *cli.Command {
	var settings cmdflags.Settings
	return &cli.Command{
		Name:  "sweep",
		Usage: "Remove expired sessions and finish pending deletions once, then exit",
		Flags: settings.Common(),
		Action: func(ctx *cli.Context) error {
			cfg, err := settings.Load(ctx)
			if err != nil {
				return err
			}
			logger := logutil.New(cfg.LogLevel, settings.Pretty || cfg.Dev)
			appCtx := logutil.WithLogger(ctx.Context, logger)
			st, err := store.OpenAndMigrate(appCtx, cfg.Database)
			if err != nil {
				return err
			}
			defer st.Close()
			blobs, err := upload.OnDisk(cfg.StorageRoot, cfg.MaxUploadSize)
			if err != nil {
				return err
			}
			// in memory sessions belong to the server process, only the
			// database ones can be swept from here
			counts, err := session.NewSweeper(cfg.SweepInterval).
				Add("sessions", st.Sessions()).
				Add("deletions", drive.New(st, blobs)).
				RunOnce(appCtx)
			logger.Info().Int("sessions", counts["sessions"]).Int("deletions", counts["deletions"]).Msg("Sweep finished")
			return err
		},
	}
}
