package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/char5742/groovy-lsp/internal/config"
	"github.com/char5742/groovy-lsp/internal/dispatch"
	"github.com/char5742/groovy-lsp/internal/logging"
	"github.com/char5742/groovy-lsp/internal/lspserver"
	"github.com/char5742/groovy-lsp/internal/version"
)

const component = "main"

func main() {
	app := &cli.App{
		Name:    "groovy-lsp",
		Usage:   "Language server core for Groovy",
		Version: version.FullInfo(),
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "socket",
				Usage: "serve over a TCP socket instead of stdio",
			},
			&cli.StringFlag{
				Name:  "host",
				Usage: "socket host (only with --socket)",
				Value: "localhost",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "socket port (only with --socket)",
				Value:   4389,
			},
			&cli.StringFlag{
				Name:    "workspace",
				Aliases: []string{"w"},
				Usage:   "workspace root to index",
				Value:   ".",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "build the server for the workspace and exit without serving",
			},
			&cli.BoolFlag{
				Name:  "mcp",
				Usage: "also expose the Symbol Index over MCP on stdio",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "groovy-lsp: %v\n", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	root, err := filepath.Abs(c.String("workspace"))
	if err != nil {
		return fmt.Errorf("resolve workspace root: %w", err)
	}

	cfg, err := config.LoadKDL(root)
	if err != nil {
		return fmt.Errorf("load .groovy-lsp.kdl: %w", err)
	}
	cfg = cfg.ApplyEnv()

	srv, err := lspserver.New(cfg, lspserver.Options{EnableMCP: c.Bool("mcp")})
	if err != nil {
		return fmt.Errorf("build server: %w", err)
	}

	if c.Bool("dry-run") {
		logging.Infof(component, "dry run: workspace %s validated, not serving", root)
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logging.Infof(component, "signal received, shutting down")
		cancel()
	}()

	transportCfg := dispatch.TransportConfig{
		Socket: c.Bool("socket"),
		Host:   c.String("host"),
		Port:   c.Int("port"),
	}

	return srv.Run(ctx, transportCfg)
}
