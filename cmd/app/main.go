package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/redmaple/streamsync/internal"
	pkgconfig "github.com/redmaple/streamsync/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, string, error) {
	configPath := cmd.String("config")
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.Load(configPath, cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, configPath, nil
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, configPath, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx,
		internal.WithConfig(cfg),
		internal.WithConfigPath(configPath),
	); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func runImport(ctx context.Context, cmd *cli.Command) error {
	cfg, configPath, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	out, err := internal.RunImportOnce(ctx, cmd.Bool("delete-after-download"),
		internal.WithConfig(cfg),
		internal.WithConfigPath(configPath),
	)
	if err != nil {
		return fmt.Errorf("import error: %w", err)
	}
	rendered, _ := json.MarshalIndent(out, "", "  ")
	fmt.Println(string(rendered))
	return nil
}

func runMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, configPath, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx,
		internal.WithConfig(cfg),
		internal.WithConfigPath(configPath),
	)
}

func main() {
	configFlag := &cli.StringFlag{
		Name:        "config",
		Aliases:     []string{"c"},
		Usage:       "Path to config file",
		DefaultText: "config/config.yaml",
		Value:       "config/config.yaml",
		Sources:     cli.EnvVars("APP_CONFIG_FILE"),
	}

	cmd := &cli.Command{
		Name:  "streamsync",
		Usage: "Feed ingestion service: downloads queued feed content into staging and imports it into the local content store",
		Flags: []cli.Flag{configFlag},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API and, when enabled, the scheduled importer",
				Action: runServe,
			},
			{
				Name:  "import",
				Usage: "Run one import cycle and print the outcome",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "delete-after-download",
						Usage: "Acknowledge downloaded items on the remote queue",
					},
				},
				Action: runImport,
			},
			{
				Name:   "mcp",
				Usage:  "Serve pipeline tools over MCP stdio",
				Action: runMCP,
			},
		},
		// Bare invocation behaves like serve.
		Action: runServe,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
