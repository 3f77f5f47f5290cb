package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/Sriram-PR/wiki-bot/pkg/mcp"
	"github.com/Sriram-PR/wiki-bot/pkg/process"
)

// runMcpServer handles the mcp-server subcommand
func runMcpServer(args []string) {
	flags := flag.NewFlagSet("mcp-server", flag.ExitOnError)
	configFile := flags.String("config", "config.yaml", "Path to config file (optional)")
	transport := flags.String("transport", "stdio", "Transport type (stdio, sse)")
	port := flags.Int("port", 8080, "HTTP port (for sse transport)")
	logLevel := flags.String("loglevel", "info", "Log level (debug, info, warn, error)")

	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: wiki-bot mcp-server [options]

Start an MCP (Model Context Protocol) server for AI tool integration.

Options:
`)
		flags.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  # Start with stdio transport
  wiki-bot mcp-server -config config.yaml

  # Start with SSE transport on port 8080
  wiki-bot mcp-server -transport sse -port 8080

Available MCP Tools:
  get_article     Summary of an article
  get_main_image  Main image of an article as PNG
  search_article  Find a phrase in the full article text
  on_this_day     Historical events of a date
  random_article  A random article
  random_quote    A random Wikiquote quote
`)
	}

	if err := flags.Parse(args); err != nil {
		os.Exit(1)
	}

	ctx, stop := signalContext()
	defer stop()
	os.Exit(doMcpServer(ctx, *configFile, *transport, *port, *logLevel, os.Stderr))
}

// doMcpServer is the testable implementation of the MCP server
func doMcpServer(ctx context.Context, configPath, transport string, port int, logLevel string, stderr io.Writer) int {
	cfg, err := prepareConfig(configPath, ".env", true, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading config: %v\n", err)
		return 1
	}

	// MCP protocol uses stdout, logs go to stderr
	log, closer, err := setupLogger(cfg, logLevel, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer closer.Close()

	if err := process.InitTokenizer(""); err != nil {
		log.Warnf("Token counts disabled: %v", err)
	}

	server, err := mcp.NewServer(&mcp.ServerConfig{
		Assistant: newServices(cfg, log).assistant,
		Version:   version,
		Transport: transport,
		Port:      port,
		Logger:    log,
	})
	if err != nil {
		fmt.Fprintf(stderr, "Error creating MCP server: %v\n", err)
		return 1
	}

	log.Infof("Starting MCP server (transport: %s)", transport)
	if err := server.Run(ctx); err != nil {
		fmt.Fprintf(stderr, "MCP server error: %v\n", err)
		return 1
	}
	return 0
}
