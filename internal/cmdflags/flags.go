package cmdflags

import (
	"github.com/goldyy12/files/internal/config"
	"github.com/urfave/cli/v2"
)

type (
	// Settings collects the flags shared by every command that needs a
	// configuration. Flags left empty do not override other sources.
	Settings struct {
		ConfigFile     string
		DotEnv         string
		Bind           string
		Database       string
		StorageRoot    string
		SessionIdle    string
		SweepInterval  string
		SessionBackend string
		MaxUploadSize  string
		LogLevel       string
		SecureCookie   bool
		Dev            bool
		Pretty         bool
	}
)

func ConfigFile(out *string) cli.Flag {
	return &cli.StringFlag{
		Name:        "config",
		Aliases:     []string{"c"},
		Usage:       "Path to a TOML configuration file",
		Destination: out,
		Value:       *out,
	}
}

func DotEnv(out *string) cli.Flag {
	if len(*out) == 0 {
		*out = config.DefaultDotEnv
	}
	return &cli.StringFlag{
		Name:        "dotenv",
		Usage:       "Path to a .env file, variables already in the environment take precedence",
		Destination: out,
		Value:       *out,
	}
}

func Database(out *string) cli.Flag {
	return &cli.StringFlag{
		Name:        "database",
		Aliases:     []string{"db"},
		Usage:       "Path to the SQLite database",
		Destination: out,
	}
}

// Common returns the flags every command understands.
func (s *Settings) Common() []cli.Flag {
	return []cli.Flag{
		ConfigFile(&s.ConfigFile),
		DotEnv(&s.DotEnv),
		Database(&s.Database),
		&cli.StringFlag{
			Name:        "storage-root",
			Usage:       "Directory where uploaded bytes are kept",
			Destination: &s.StorageRoot,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "One of debug, info, warn or error",
			Destination: &s.LogLevel,
		},
		&cli.BoolFlag{
			Name:        "pretty",
			Usage:       "Human friendly logs instead of JSON",
			Destination: &s.Pretty,
		},
		&cli.BoolFlag{
			Name:        "dev",
			Usage:       "Development mode: generates a throwaway session secret when none is configured",
			Destination: &s.Dev,
		},
	}
}

// Server returns the flags that only make sense for a running server.
func (s *Settings) Server() []cli.Flag {
	return append(s.Common(),
		&cli.StringFlag{
			Name:        "bind",
			Usage:       "Address to bind for incoming requests",
			Destination: &s.Bind,
		},
		&cli.StringFlag{
			Name:        "session-idle",
			Usage:       "Sessions expire after this long without a request",
			Destination: &s.SessionIdle,
		},
		&cli.StringFlag{
			Name:        "sweep-interval",
			Usage:       "How often expired sessions and pending deletions are cleaned",
			Destination: &s.SweepInterval,
		},
		&cli.StringFlag{
			Name:        "session-backend",
			Usage:       "Where sessions live: sqlite or memory",
			Destination: &s.SessionBackend,
		},
		&cli.StringFlag{
			Name:        "max-upload-size",
			Usage:       "Largest accepted upload, eg: 10MiB",
			Destination: &s.MaxUploadSize,
		},
		&cli.BoolFlag{
			Name:        "secure-cookie",
			Usage:       "Only send the session cookie over https",
			Destination: &s.SecureCookie,
		},
	)
}

// Load reads the configuration from every source and applies the flags
// that were given on the command line last.
func (s *Settings) Load(c *cli.Context) (config.Config, error) {
	cfg, err := config.Load(s.ConfigFile, s.DotEnv)
	if err != nil {
		return cfg, err
	}
	set := func(out *string, v string) {
		if v != "" {
			*out = v
		}
	}
	set(&cfg.Bind, s.Bind)
	set(&cfg.Database, s.Database)
	set(&cfg.StorageRoot, s.StorageRoot)
	set(&cfg.SessionBackend, s.SessionBackend)
	set(&cfg.LogLevel, s.LogLevel)
	if err := cfg.SetDuration("session_idle", &cfg.SessionIdle, s.SessionIdle); err != nil {
		return cfg, err
	}
	if err := cfg.SetDuration("sweep_interval", &cfg.SweepInterval, s.SweepInterval); err != nil {
		return cfg, err
	}
	if err := cfg.SetSize(s.MaxUploadSize); err != nil {
		return cfg, err
	}
	if c.IsSet("secure-cookie") {
		cfg.SecureCookie = s.SecureCookie
	}
	cfg.Dev = cfg.Dev || s.Dev
	return cfg, nil
}
