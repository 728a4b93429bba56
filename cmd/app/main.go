package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/vellum/internal"
	pkgconfig "github.com/starford/vellum/pkg/config"
)

// loadConfig builds the configuration from defaults, the config file and the
// journal directory argument. An explicit --config must exist; the default
// file is optional.
func loadConfig(cmd *cli.Command, dir string) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()

	if configPath := cmd.Root().String("config"); configPath != "" {
		if err := pkgconfig.Load(configPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	} else if _, err := pkgconfig.LoadIfExists(internal.DefaultConfigPath(), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if dir != "" {
		cfg.Journal.Path = dir
	}
	if cfg.Journal.Path == "" {
		return nil, fmt.Errorf("journal directory argument is required")
	}
	return cfg, nil
}

func browse(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd, cmd.Args().First())
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func create(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 2 {
		return fmt.Errorf("usage: %s <directory> <name>", cmd.FullName())
	}
	cfg, err := loadConfig(cmd, cmd.Args().Get(0))
	if err != nil {
		return err
	}
	return internal.Create(ctx, cmd.Args().Get(1), internal.WithConfig(cfg))
}

func cat(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 2 {
		return fmt.Errorf("usage: %s <directory> <name>", cmd.FullName())
	}
	cfg, err := loadConfig(cmd, cmd.Args().Get(0))
	if err != nil {
		return err
	}
	return internal.Cat(ctx, cmd.Args().Get(1), internal.WithConfig(cfg))
}

func history(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd, cmd.Args().First())
	if err != nil {
		return err
	}
	return internal.PrintHistory(ctx, int(cmd.Int("limit")), internal.WithConfig(cfg))
}

func main() {
	cmd := &cli.Command{
		Name:      "vellum",
		Usage:     "Password-protected journal: browse, decrypt into your editor, re-encrypt",
		ArgsUsage: "<directory>",
		Action:    browse,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file",
				Sources: cli.EnvVars("VELLUM_CONFIG"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "new",
				Usage:     "Create an entry and open it in the editor",
				ArgsUsage: "<directory> <name>",
				Action:    create,
			},
			{
				Name:      "cat",
				Usage:     "Decrypt an entry to standard output",
				ArgsUsage: "<directory> <name>",
				Action:    cat,
			},
			{
				Name:      "history",
				Usage:     "Show recent edits",
				ArgsUsage: "<directory>",
				Action:    history,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Value: 20,
						Usage: "Maximum number of edits to show (0 for all)",
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
