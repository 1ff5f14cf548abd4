package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/perthro/internal"
	pkgconfig "github.com/starford/perthro/pkg/config"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if dir := cmd.String("base-dir"); dir != "" {
		cfg.Case.BaseDir = dir
	}
	return cfg, nil
}

func runMode(mode string) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if port := cmd.Int("port"); port > 0 {
			cfg.App.HTTP.Port = int(port)
		}

		opts := []internal.Option{
			internal.WithConfig(cfg),
			internal.WithMode(mode),
			internal.WithVersion(version),
		}

		if err := internal.Run(ctx, opts...); err != nil {
			return fmt.Errorf("app run error: %w", err)
		}
		return nil
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "perthro",
		Usage:   "Forensic indicator catalog and artifact search over a case directory",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "base-dir",
				Aliases: []string{"d"},
				Usage:   "Case directory (overrides case.base_dir)",
				Sources: cli.EnvVars("PERTHRO_BASE_DIR"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the REST API with the change feed",
				Action: runMode(internal.ModeServe),
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "HTTP port (overrides app.http.port)"},
				},
			},
			{
				Name:   "mcp",
				Usage:  "Serve the investigation tools over MCP stdio",
				Action: runMode(internal.ModeMCP),
			},
			indicatorsCommand(),
			searchCommand(),
			artifactsCommand(),
			classifyCommand(),
		},
	}
}

func main() {
	cmd := newApp()
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
