package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/goldyy12/files/cmd/files/migrate"
	"github.com/goldyy12/files/cmd/files/serve"
	"github.com/goldyy12/files/cmd/files/sweep"
	"github.com/goldyy12/files/cmd/files/user"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "files",
		Usage: "Keep your files in folders, behind a login",
		Commands: []*cli.Command{
			serve.Cmd(),
			migrate.Cmd(),
			user.Cmd(),
			sweep.Cmd(),
		},
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	err := app.RunContext(ctx, os.Args)
	if err != nil {
		log.Error().Err(err).Msg("Application failed")
		os.Exit(1)
	}
}
