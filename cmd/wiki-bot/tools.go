package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Sriram-PR/wiki-bot/pkg/assistant"
	"github.com/Sriram-PR/wiki-bot/pkg/utils"
)

// runArticle handles the article subcommand
func runArticle(args []string) {
	flags := flag.NewFlagSet("article", flag.ExitOnError)
	configFile := flags.String("config", "config.yaml", "Path to config file (optional)")
	logLevel := flags.String("loglevel", "warn", "Log level (debug, info, warn, error)")
	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: wiki-bot article [options] <title>\n\nOptions:\n")
		flags.PrintDefaults()
	}
	if err := flags.Parse(args); err != nil {
		os.Exit(1)
	}
	title := strings.TrimSpace(strings.Join(flags.Args(), " "))
	if title == "" {
		flags.Usage()
		os.Exit(1)
	}

	cfg, err := prepareConfig(*configFile, ".env", true, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	log, closer, err := setupLogger(cfg, *logLevel, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signalContext()
	defer stop()
	code := doArticle(ctx, newServices(cfg, log).assistant, title, os.Stdout, os.Stderr)
	closer.Close()
	os.Exit(code)
}

// articleService is the part of the assistant the article command needs
type articleService interface {
	Article(ctx context.Context, title string) (*assistant.Article, error)
}

func doArticle(ctx context.Context, svc articleService, title string, stdout, stderr io.Writer) int {
	art, err := svc.Article(ctx, title)
	if err != nil {
		if errors.Is(err, utils.ErrPageNotFound) {
			fmt.Fprintln(stderr, assistant.TextArticleNotFound)
			return 2
		}
		fmt.Fprintf(stderr, "Error (%s): %v\n", utils.CategorizeError(err), err)
		return 1
	}
	fmt.Fprintf(stdout, "%s\n%s\n\n%s\n", art.Title, art.URL, art.Text)
	return 0
}

// runImage handles the image subcommand
func runImage(args []string) {
	flags := flag.NewFlagSet("image", flag.ExitOnError)
	configFile := flags.String("config", "config.yaml", "Path to config file (optional)")
	output := flags.String("o", "", "Output PNG path (default: <title>.png)")
	logLevel := flags.String("loglevel", "info", "Log level (debug, info, warn, error)")
	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: wiki-bot image [options] <title>\n\nOptions:\n")
		flags.PrintDefaults()
	}
	if err := flags.Parse(args); err != nil {
		os.Exit(1)
	}
	title := strings.TrimSpace(strings.Join(flags.Args(), " "))
	if title == "" {
		flags.Usage()
		os.Exit(1)
	}
	out := *output
	if out == "" {
		out = utils.SanitizeFilename(title) + ".png"
	}

	cfg, err := prepareConfig(*configFile, ".env", true, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	log, closer, err := setupLogger(cfg, *logLevel, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signalContext()
	defer stop()
	code := doImage(ctx, newServices(cfg, log).images, title, out, os.Stdout)
	closer.Close()
	os.Exit(code)
}

// imageFetcher returns zero or one PNG payloads. *mainimage.Pipeline satisfies it.
type imageFetcher interface {
	FetchImages(ctx context.Context, title string) [][]byte
}

func doImage(ctx context.Context, images imageFetcher, title, out string, stdout io.Writer) int {
	payloads := images.FetchImages(ctx, title)
	if len(payloads) == 0 {
		fmt.Fprintln(stdout, assistant.TextNoImages)
		return 2
	}
	if err := os.WriteFile(out, payloads[0], 0o644); err != nil {
		fmt.Fprintf(stdout, "Error writing %s: %v\n", out, err)
		return 1
	}
	fmt.Fprintf(stdout, "Saved %s (%d bytes, sha256 %s)\n", out, len(payloads[0]), utils.CalculateBytesSHA256(payloads[0]))
	return 0
}
