package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/hsowda/SillySopapillaAccess-2/app"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "path to a YAML config file")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [-config file] [serve|init-db]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	command := "serve"
	if flag.NArg() > 0 {
		command = flag.Arg(0)
	}

	cfg, err := app.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := app.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, command, cfg, logger); err != nil {
		logger.Error("command failed", zap.String("command", command), zap.Error(err))
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, command string, cfg app.Config, logger *zap.Logger) error {
	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize application: %w", err)
	}
	defer application.Close()

	switch command {
	case "init-db":
		return application.InitDB(ctx)
	case "serve":
		// An in-process store starts empty, so it gets the test user too.
		if isMemoryStore(cfg.DatabaseURL) {
			if err := application.InitDB(ctx); err != nil {
				return err
			}
		} else if err := application.Migrate(ctx); err != nil {
			return err
		}
		return application.Start(ctx)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func isMemoryStore(databaseURL string) bool {
	databaseURL = strings.TrimSpace(databaseURL)
	return databaseURL == "" || strings.HasPrefix(databaseURL, "memory:")
}
