package user

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goldyy12/files/auth"
	"github.com/goldyy12/files/internal/cmdflags"
	"github.com/goldyy12/files/internal/logutil"
	"github.com/goldyy12/files/store"
	"github.com/urfave/cli/v2"
	"golang.org/x/term"
)

func Cmd() *cli.Command {
	var settings cmdflags.Settings
	return &cli.Command{
		Name:  "user",
		Usage: "Manage accounts without going through the sign-up page",
		Flags: settings.Common(),
		Subcommands: []*cli.Command{
			addCmd(&settings),
		},
	}
}

func addCmd(settings *cmdflags.Settings) *cli.Command {
	var form auth.SignUp
	return &cli.Command{
		Name:  "add",
		Usage: "Register a new user (password is read from the terminal or stdin)",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "email",
				Aliases:     []string{"e"},
				Usage:       "Email used to log in",
				Destination: &form.Email,
				Required:    true,
			},
			&cli.StringFlag{
				Name:        "first-name",
				Usage:       "First name of the user",
				Destination: &form.FirstName,
				Required:    true,
			},
			&cli.StringFlag{
				Name:        "last-name",
				Usage:       "Last name of the user",
				Destination: &form.LastName,
				Required:    true,
			},
		},
		Action: func(ctx *cli.Context) error {
			cfg, err := settings.Load(ctx)
			if err != nil {
				return err
			}
			form.Password, form.ConfirmPassword, err = readPassword(os.Stdin, ctx.App.ErrWriter)
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
			svc := auth.NewService(st, st.Sessions(), auth.DefaultHasher(), cfg.SessionIdle)
			p, err := svc.Register(appCtx, form)
			if err != nil {
				return err
			}
			logger.Info().Str("user", p.ID).Str("email", p.Email).Msg("User registered")
			return nil
		},
	}
}

// readPassword prompts twice when in is a terminal, otherwise the first
// line of in is used as both password and confirmation.
func readPassword(in *os.File, prompt io.Writer) (string, string, error) {
	if prompt == nil {
		prompt = os.Stderr
	}
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		sc := bufio.NewScanner(in)
		if !sc.Scan() {
			if sc.Err() != nil {
				return "", "", sc.Err()
			}
			return "", "", errors.New("missing password from stdin")
		}
		password := strings.TrimSpace(sc.Text())
		if len(password) == 0 {
			return "", "", errors.New("missing password from stdin")
		}
		return password, password, nil
	}
	ask := func(label string) (string, error) {
		fmt.Fprint(prompt, label)
		buf, err := term.ReadPassword(fd)
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("unable to read password, cause %w", err)
		}
		return string(buf), nil
	}
	password, err := ask("Password: ")
	if err != nil {
		return "", "", err
	}
	confirm, err := ask("Confirm password: ")
	if err != nil {
		return "", "", err
	}
	return password, confirm, nil
}
