package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Sriram-PR/wiki-bot/pkg/bot"
	"github.com/Sriram-PR/wiki-bot/pkg/config"
	"github.com/Sriram-PR/wiki-bot/pkg/metrics"
	"github.com/Sriram-PR/wiki-bot/pkg/quiz"
	"github.com/Sriram-PR/wiki-bot/pkg/storage"
)

const gcInterval = 10 * time.Minute

// runBot handles the run subcommand
func runBot(args []string) {
	flags := flag.NewFlagSet("run", flag.ExitOnError)
	configFile := flags.String("config", "config.yaml", "Path to config file (optional, defaults apply when missing)")
	envFile := flags.String("env", ".env", "Optional dotenv file")
	logLevel := flags.String("loglevel", "", "Log level override (debug, info, warn, error)")
	resume := flags.Bool("resume", false, "Keep quiz sessions from the previous run (badger backend)")

	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: wiki-bot run [options]\n\nOptions:\n")
		flags.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nThe bot token is read from bot.token or %s.\n", config.EnvBotToken)
	}
	if err := flags.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg, err := prepareConfig(*configFile, *envFile, true, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *resume {
		cfg.Storage.Resume = true
	}

	ctx, stop := signalContext()
	defer stop()
	os.Exit(doRun(ctx, cfg, *logLevel, os.Stderr))
}

// doRun wires every component and serves until ctx is done
func doRun(ctx context.Context, cfg *config.AppConfig, logLevel string, stderr io.Writer) int {
	log, closer, err := setupLogger(cfg, logLevel, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer closer.Close()
	entry := logrus.NewEntry(log)

	if err := cfg.RequireToken(); err != nil {
		log.Errorf("%v", err)
		return 1
	}

	questions, err := quiz.LoadQuestions(cfg.Quiz.QuestionsFile)
	if err != nil {
		// The rest of the bot stays useful without a quiz
		log.Warnf("Quiz disabled: %v", err)
	}

	store, err := storage.New(ctx, *cfg, entry)
	if err != nil {
		log.Errorf("Opening session store: %v", err)
		return 1
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warnf("Closing session store: %v", err)
		}
	}()

	svc := newServices(cfg, log)
	quizzes := quiz.NewManager(store, questions, cfg.Quiz.QuestionsPerSession, entry)

	transport, err := bot.NewTelegramTransport(cfg.Bot, "", nil, entry)
	if err != nil {
		log.Errorf("Starting transport: %v", err)
		return 1
	}
	router := bot.NewRouter(svc.assistant, quizzes, transport, entry)
	dispatcher := bot.NewDispatcher(transport, router, bot.DispatcherOptions{
		MaxConcurrent:     cfg.Bot.MaxConcurrentUpdates,
		HandlerTimeout:    cfg.Bot.HandlerTimeout,
		MaxPendingPerChat: cfg.Bot.MaxPendingPerChat,
	}, entry)

	g, gctx := errgroup.WithContext(ctx)

	if admin, ok := store.(storage.StoreAdmin); ok {
		g.Go(func() error {
			admin.RunGC(gctx, gcInterval)
			return nil
		})
	}

	if cfg.Metrics.Addr != "" {
		reg := prometheus.NewRegistry()
		if err := metrics.Register(reg); err != nil {
			log.Errorf("Registering metrics: %v", err)
			return 1
		}
		g.Go(func() error { return serveMetrics(gctx, cfg.Metrics.Addr, reg, entry) })
	}

	g.Go(func() error {
		log.Infof("wiki-bot %s running (%d quiz questions, %s sessions)", version, quizzes.QuestionCount(), cfg.Storage.Backend)
		return dispatcher.Run(gctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Errorf("Bot stopped: %v", err)
		return 1
	}
	log.Info("Shutdown complete")
	return 0
}

// serveMetrics exposes /metrics until ctx is done
func serveMetrics(ctx context.Context, addr string, g prometheus.Gatherer, log *logrus.Entry) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(g))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	log.Infof("Metrics endpoint on %s/metrics", addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
