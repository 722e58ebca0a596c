package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hsowda/SillySopapillaAccess-2/controller"
	"github.com/hsowda/SillySopapillaAccess-2/tui"
)

func main() {
	var (
		server      = flag.String("server", "http://127.0.0.1:8000", "portal base URL")
		mail        = flag.String("mail", "embed", "mail action: embed, mailto or newtab")
		webmail     = flag.String("webmail", "https://gmail.com", "webmail URL")
		mailTo      = flag.String("mailto-to", "", "mailto recipient")
		mailSubject = flag.String("mailto-subject", "Silly Sopapilla Access", "mailto subject")
		mailCC      = flag.String("mailto-cc", "", "mailto cc")
		mailBody    = flag.String("mailto-body", "", "mailto body")
		logoutDelay = flag.Duration("logout-delay", 300*time.Millisecond, "wait before navigating after logout; negative disables")
		probe       = flag.Bool("probe", true, "check embedded pages with the portal's embed-check endpoint")
		logFile     = flag.String("log-file", "sessionui.log", "log destination; the terminal is owned by the UI")
	)
	flag.Parse()

	if err := run(*server, *mail, *webmail, controller.Mailto{
		To: *mailTo, Subject: *mailSubject, CC: *mailCC, Body: *mailBody,
	}, *logoutDelay, *probe, *logFile); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(server, mail, webmail string, mailto controller.Mailto, logoutDelay time.Duration, probe bool, logFile string) error {
	logger, err := newFileLogger(logFile)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	strategy, err := controller.ParseMailStrategy(mail)
	if err != nil {
		return err
	}

	backend, err := controller.NewHTTPBackend(server, nil)
	if err != nil {
		return err
	}

	surface := tui.NewSurface(tui.OpenInBrowser)
	opts := []controller.Option{controller.WithLogger(logger)}
	if probe {
		opts = append(opts, controller.WithProber(backend))
	}
	if logoutDelay == 0 {
		logoutDelay = -1
	}

	ctrl, err := controller.New(controller.Config{
		LogoutDelay: logoutDelay,
		Mail: controller.MailConfig{
			Strategy:   strategy,
			WebmailURL: webmail,
			Mailto:     mailto,
		},
	}, surface.Bindings(), backend, opts...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("session ui started", zap.String("server", server), zap.Stringer("mail", strategy))
	return tui.Run(ctx, ctrl, surface)
}

func newFileLogger(path string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{path}
	return cfg.Build()
}
