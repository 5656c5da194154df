package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/lorekeep/internal"
	"github.com/starford/lorekeep/internal/entryservice"
	"github.com/starford/lorekeep/internal/layout"
	pkgconfig "github.com/starford/lorekeep/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadIfExists(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func export(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	req := entryservice.MapRequest{
		Root:  cmd.Int("root"),
		Focus: cmd.Int("focus"),
	}
	if v := cmd.String("layout"); v != "" {
		if req.Layout, err = layout.ParseStrategy(v); err != nil {
			return err
		}
	}

	ok, err := internal.Export(ctx, cfg, req, cmd.String("out"))
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(os.Stderr, "nothing to export")
	}
	return nil
}

func mcp(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.ServeMCP(ctx, cfg)
}

func main() {
	cmd := &cli.Command{
		Name:   "lorekeep",
		Usage:  "Worldbuilding knowledge base with a laid-out relationship map",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API, SSE stream and vault watcher",
				Action: serve,
			},
			{
				Name:   "export",
				Usage:  "Render the relationship map to a PNG or SVG file",
				Action: export,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "out",
						Aliases:  []string{"o"},
						Usage:    "Output file; the extension picks the format (.png or .svg)",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "layout",
						Usage: "tree or force (default: tree when --root is set)",
					},
					&cli.IntFlag{
						Name:  "root",
						Usage: "Root entry id for the tree layout",
					},
					&cli.IntFlag{
						Name:  "focus",
						Usage: "Entry to highlight with its neighbours",
					},
				},
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools on stdin/stdout",
				Action: mcp,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
