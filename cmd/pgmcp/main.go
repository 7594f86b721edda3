// pgmcp: PostgreSQL operations MCP server
//
// Exposes a fixed catalogue of database operations (schema changes,
// queries, role and policy management, storage inspection) as MCP
// tools, grouped into categories that load on demand.
//
// Usage:
//
//	pgmcp serve --config pgmcp.toml   # Start MCP server (stdio transport)
//	pgmcp version
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"

	"github.com/pgmcp/pgmcp/internal/config"
	pgmcpserver "github.com/pgmcp/pgmcp/internal/server"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := runServe(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "--help", "-h", "help":
		printUsage()
	case "--version", "-v", "version":
		fmt.Printf("pgmcp v%s\n", pgmcpserver.Version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "pgmcp.toml", "path to the TOML config file")
	databaseURL := fs.String("database-url", "", "database connection string (overrides config)")
	fs.Parse(args)

	// Logs go to stderr: stdout belongs to the MCP stdio transport.
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if *databaseURL != "" {
		cfg.Database.URL = *databaseURL
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, cleanup, err := pgmcpserver.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer cleanup()

	// Drain the pool on interrupt; in-flight invocations finish,
	// late arrivals get shutdown_in_progress.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutting down")
		cleanup()
		os.Exit(0)
	}()

	logger.Info("pgmcp serving", "version", pgmcpserver.Version)
	return server.ServeStdio(s)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `pgmcp v%s — PostgreSQL operations MCP server

Usage:
  pgmcp serve [--config pgmcp.toml] [--database-url URL]
  pgmcp version

Configuration:
  Add to your AI tool's MCP config:

  {
    "mcpServers": {
      "pgmcp": {
        "command": "pgmcp",
        "args": ["serve", "--config", "/path/to/pgmcp.toml"]
      }
    }
  }
`, pgmcpserver.Version)
}
