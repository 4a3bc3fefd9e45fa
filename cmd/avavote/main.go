package main

import (
	"context"
	stderrors "errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/abrezinsky/avavote/internal/app"
	"github.com/abrezinsky/avavote/internal/auth"
	"github.com/abrezinsky/avavote/internal/config"
	"github.com/abrezinsky/avavote/internal/logger"
	"github.com/abrezinsky/avavote/internal/notify"
	"github.com/abrezinsky/avavote/internal/repository"
	"github.com/abrezinsky/avavote/internal/services"
)

// ANSI escape codes
const (
	reset  = "\033[0m"
	yellow = "\033[33m"
	cyan   = "\033[36m"
)

var (
	version = "dev"
)

// connectTimeout bounds opening the store at startup
const connectTimeout = 30 * time.Second

func showBanner() {
	width := 44
	border := strings.Repeat("═", width)
	lines := []string{
		"",
		"     AvaVote  ·  election backend",
		"     version " + version,
		"",
	}

	fmt.Printf("\n  %s╔%s╗%s\n", cyan, border, reset)
	for _, line := range lines {
		fmt.Printf("  %s║%s%-*s%s║%s\n", cyan, yellow, width, line, cyan, reset)
	}
	fmt.Printf("  %s╚%s╝%s\n\n", cyan, border, reset)
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "avavote: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Args[1:])
	if stderrors.Is(err, flag.ErrHelp) {
		fmt.Fprint(os.Stderr, config.Usage)
		return nil
	}
	if err != nil {
		fmt.Fprint(os.Stderr, config.Usage)
		return err
	}

	if cfg.ShowVersion {
		fmt.Printf("avavote %s\n", version)
		return nil
	}

	showBanner()

	appLog := logger.NewWithWriter(os.Stdout, logger.ParseFormat(cfg.LogFormat), logger.ParseLevel(cfg.LogLevel))
	if cfg.HTTPLogging {
		appLog.EnableHTTPLogging()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	notifier := notify.New(appLog)

	openCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	store, err := repository.Open(openCtx, cfg.StoreOptions(), appLog, notifier)
	cancel()
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Backend(), err)
	}

	if cfg.Seed {
		seeded, err := services.SeedDemoData(ctx, appLog, store)
		if err != nil {
			store.Close()
			return fmt.Errorf("seed demo data: %w", err)
		}
		if !seeded {
			appLog.Info("Store already has data; demo data not inserted")
		}
	}

	password := cfg.AdminPassword
	if password == "" {
		password = auth.GeneratePassword()
		appLog.Info("Admin password", "password", password)
	}

	a := app.New(appLog, store, notifier, auth.New(password))
	defer a.Close()

	return a.Run(ctx, cfg.Addr())
}
