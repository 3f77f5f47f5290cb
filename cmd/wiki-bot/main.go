package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/Sriram-PR/wiki-bot/pkg/assistant"
	"github.com/Sriram-PR/wiki-bot/pkg/config"
	"github.com/Sriram-PR/wiki-bot/pkg/fetch"
	applog "github.com/Sriram-PR/wiki-bot/pkg/log"
	"github.com/Sriram-PR/wiki-bot/pkg/mainimage"
	"github.com/Sriram-PR/wiki-bot/pkg/quote"
	"github.com/Sriram-PR/wiki-bot/pkg/wiki"
)

const version = "1.0.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		runBot(os.Args[2:])
	case "article":
		runArticle(os.Args[2:])
	case "image":
		runImage(os.Args[2:])
	case "mcp-server":
		runMcpServer(os.Args[2:])
	case "validate":
		runValidate(os.Args[2:])
	case "version":
		fmt.Printf("wiki-bot %s\n", version)
	case "-h", "--help", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	printUsageTo(os.Stdout)
}

// printUsageTo writes usage information to the provided writer.
func printUsageTo(w io.Writer) {
	fmt.Fprintln(w, `wiki-bot - Wikipedia chat assistant

Usage:
  wiki-bot <command> [options]

Commands:
  run         Start the Telegram bot
  article     Print the summary of an article
  image       Save the main image of an article as PNG
  mcp-server  Start MCP server for AI tool integration
  validate    Validate configuration file
  version     Show version info

Run 'wiki-bot <command> -h' for command-specific help.`)
}

// loadConfig loads and parses the config file
func loadConfig(path string) (*config.AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg config.AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

// prepareConfig loads the file (optional when missing and allowMissing is set),
// applies the environment and validates. Warnings are written to stderr.
func prepareConfig(path, envFile string, allowMissing bool, stderr io.Writer) (*config.AppConfig, error) {
	cfg, err := loadConfig(path)
	if err != nil {
		if !allowMissing || !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		cfg = &config.AppConfig{}
	}
	if err := config.ApplyEnv(cfg, envFile); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}
	warnings, err := cfg.Validate()
	for _, w := range warnings {
		fmt.Fprintf(stderr, "Warning: %s\n", w)
	}
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// services holds the network-facing components shared by every command
type services struct {
	fetcher   *fetch.Fetcher
	wiki      *wiki.Client
	quotes    *quote.Client
	images    *mainimage.Pipeline
	assistant *assistant.Service
}

func newServices(cfg *config.AppConfig, log *logrus.Logger) *services {
	entry := logrus.NewEntry(log)
	client := fetch.NewClient(cfg.HTTPClientSettings, entry)
	fetcher := fetch.NewFetcher(client, cfg, entry.WithField("component", "fetch")).
		WithRateLimiter(fetch.NewRateLimiter(cfg.DelayPerHost, entry.WithField("component", "ratelimit")))

	wikiClient := wiki.NewClient(fetcher, cfg.Wiki.APIURL, entry)
	quoteClient := quote.NewClient(fetcher, cfg.Quote.APIURL, cfg.Quote.MinLength, entry)
	pipeline := mainimage.New(wikiClient, fetcher, mainimage.OptionsFromConfig(*cfg), entry)

	return &services{
		fetcher:   fetcher,
		wiki:      wikiClient,
		quotes:    quoteClient,
		images:    pipeline,
		assistant: assistant.New(wikiClient, quoteClient, pipeline, cfg.History, entry),
	}
}

// setupLogger builds the logger; an explicit level flag wins over the config
func setupLogger(cfg *config.AppConfig, levelFlag string, stderr io.Writer) (*logrus.Logger, io.Closer, error) {
	if levelFlag != "" {
		cfg.Log.Level = levelFlag
	}
	return applog.Setup(cfg.Log, stderr)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// runValidate handles the validate subcommand
func runValidate(args []string) {
	flags := flag.NewFlagSet("validate", flag.ExitOnError)
	configFile := flags.String("config", "config.yaml", "Path to config file")
	envFile := flags.String("env", ".env", "Optional dotenv file")
	if err := flags.Parse(args); err != nil {
		os.Exit(1)
	}
	os.Exit(doValidate(*configFile, *envFile, os.Stdout, os.Stderr))
}

// doValidate is the testable implementation of validate
func doValidate(configPath, envFile string, stdout, stderr io.Writer) int {
	cfg, err := prepareConfig(configPath, envFile, false, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	fmt.Fprintf(stdout, "Wiki API:      %s (images resolved against %s)\n", cfg.Wiki.APIURL, cfg.Wiki.OriginHost)
	fmt.Fprintf(stdout, "Quote API:     %s\n", cfg.Quote.APIURL)
	fmt.Fprintf(stdout, "Image filter:  %dx%d minimum, %s timeout\n", cfg.Image.MinWidth, cfg.Image.MinHeight, cfg.Image.FetchTimeout)
	fmt.Fprintf(stdout, "Quiz:          %s, %d per session\n", cfg.Quiz.QuestionsFile, cfg.Quiz.QuestionsPerSession)
	fmt.Fprintf(stdout, "Sessions:      %s backend, ttl %s\n", cfg.Storage.Backend, cfg.Storage.SessionTTL)
	if err := cfg.RequireToken(); err != nil {
		fmt.Fprintf(stdout, "Bot token:     missing (only needed for 'run')\n")
	} else {
		fmt.Fprintf(stdout, "Bot token:     set\n")
	}
	fmt.Fprintln(stdout, "Configuration valid")
	return 0
}
