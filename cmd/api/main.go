package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/emilythestrangee/qa-forum/backend/internal/app"
	"github.com/emilythestrangee/qa-forum/backend/internal/config"
	"github.com/emilythestrangee/qa-forum/backend/internal/logging"
	"github.com/emilythestrangee/qa-forum/backend/internal/middleware"
)

func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, logging.InitLogger(cfg.LogLevel, cfg.LogFormat), nil
}

func serve(ctx context.Context, _ *cli.Command) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if err := app.Serve(ctx, cfg, logger); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func migrate(ctx context.Context, _ *cli.Command) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	return app.Migrate(ctx, cfg)
}

func token(_ context.Context, cmd *cli.Command) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	signed, err := middleware.IssueToken([]byte(cfg.JWTSecret), int(cmd.Int("user")), cmd.Duration("ttl"))
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, signed)
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:   "api",
		Usage:  "Vote ledger and reputation service of the Q&A forum",
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API",
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "Create or update the database schema",
				Action: migrate,
			},
			{
				Name:   "token",
				Usage:  "Print a signed bearer token for local testing",
				Action: token,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:     "user",
						Aliases:  []string{"u"},
						Usage:    "User ID placed in the user_id claim",
						Required: true,
					},
					&cli.DurationFlag{
						Name:  "ttl",
						Usage: "Token lifetime",
						Value: 24 * time.Hour,
					},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
