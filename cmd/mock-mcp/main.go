// Package main implements a mock MCP browser-automation server for tests and
// local development. It serves the session and execute endpoints that
// edgarbridge drives, answering navigate and content commands from fixture
// pages instead of a real browser, so filing lookups run offline and
// deterministically.
//
// Usage:
//
//	mock-mcp -fixtures /path/to/fixtures -port 3000
//
// Fixture pages are listed in pages.yaml or mirrored under a directory named
// after the host (see loadFixtures). Changes to the fixture directory are
// picked up without a restart.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	fixtureDir := flag.String("fixtures", "", "directory containing fixture pages")
	port := flag.Int("port", 3000, "port to listen on")
	host := flag.String("host", "127.0.0.1", "address to bind")
	watch := flag.Bool("watch", true, "reload fixtures when files change")
	flag.Parse()

	if envDir := os.Getenv("MOCK_MCP_FIXTURES"); envDir != "" && *fixtureDir == "" {
		*fixtureDir = envDir
	}
	if *fixtureDir == "" {
		*fixtureDir = "/fixtures"
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	if err := run(*fixtureDir, fmt.Sprintf("%s:%d", *host, *port), *watch, logger); err != nil {
		logger.Error("Mock MCP server failed", "error", err)
		os.Exit(1)
	}
}

func run(fixtureDir, addr string, watch bool, logger *slog.Logger) error {
	fixtures, err := loadFixtures(fixtureDir)
	if err != nil {
		return fmt.Errorf("load fixtures from %s: %w", fixtureDir, err)
	}
	logger.Info("Loaded fixtures", "dir", fixtureDir, "pages", len(fixtures))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	s := newServer(fixtures, logger)

	if watch {
		w, err := newFixtureWatcher(fixtureDir, s, logger)
		if err != nil {
			return fmt.Errorf("create fixture watcher: %w", err)
		}
		if err := w.Start(ctx); err != nil {
			return fmt.Errorf("watch fixtures: %w", err)
		}
		defer w.Stop()
	}

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Mock MCP server listening", "addr", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}
