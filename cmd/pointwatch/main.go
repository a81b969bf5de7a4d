// Command pointwatch watches configured Twitch channels and collects
// channel points for the authenticated user.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/benbjohnson/clock"
	"github.com/joho/godotenv"
	"golang.org/x/term"

	"github.com/mwalkiewicz/twitch-pointwatch/internal/auth"
	"github.com/mwalkiewicz/twitch-pointwatch/internal/config"
	"github.com/mwalkiewicz/twitch-pointwatch/internal/gql"
	"github.com/mwalkiewicz/twitch-pointwatch/internal/logger"
	"github.com/mwalkiewicz/twitch-pointwatch/internal/registry"
	"github.com/mwalkiewicz/twitch-pointwatch/internal/relay"
	"github.com/mwalkiewicz/twitch-pointwatch/internal/sleeper"
	"github.com/mwalkiewicz/twitch-pointwatch/internal/storage"
	"github.com/mwalkiewicz/twitch-pointwatch/internal/tracker"
	"github.com/mwalkiewicz/twitch-pointwatch/internal/watcher"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath = flag.String("config", "config.yaml", "path to config file")
		logLevel   = flag.String("log-level", "", "override console log level (DEBUG, INFO, WARN, ERROR)")
		noColor    = flag.Bool("no-color", false, "disable colored console output")
	)
	flag.Parse()

	// A .env file is optional; real environment variables always win.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	level := cfg.Watcher.LogLevel
	if *logLevel != "" {
		level = *logLevel
	}

	log, err := logger.Setup(logger.Config{
		Level:     logger.ParseLevel(level),
		FileLevel: logger.ParseLevel("DEBUG"),
		Colored:   !*noColor && term.IsTerminal(int(os.Stdout.Fd())),
		LogDir:    cfg.Watcher.LogDir,
		Name:      "pointwatch",
	})
	if err != nil {
		return fmt.Errorf("setting up logging: %w", err)
	}

	authProvider := auth.NewTokenProvider(cfg.Auth.Token, cfg.Auth.UserID, log)
	gqlClient := gql.NewClient(authProvider, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if authProvider.UserID() == "" {
		return fmt.Errorf("user id missing: set auth.user_id or TWITCH_USER_ID")
	}

	var store storage.Storage
	if cfg.Storage.Path != "" {
		fileStore, err := storage.NewFile(cfg.Storage.Path)
		if err != nil {
			return fmt.Errorf("opening history storage: %w", err)
		}
		store = fileStore
	}

	relaySender := relay.NewSender(cfg.Relay.Endpoint, gqlClient.HTTPClient(), authProvider, log)
	defer relaySender.Close()

	reg := registry.New()
	w := watcher.New(watcher.Deps{
		Config:   cfg,
		Log:      log,
		Auth:     authProvider,
		GQL:      gqlClient,
		Relay:    relaySender,
		Registry: reg,
		Tracker:  tracker.New(gqlClient, log),
		Sleeper:  sleeper.New(clock.New()),
		Store:    store,
	})

	// An invalidated token makes every further request fail with 401;
	// shut down instead of hammering the API.
	authProvider.OnSignOut(stop)

	if err := w.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()

	return w.Stop()
}
