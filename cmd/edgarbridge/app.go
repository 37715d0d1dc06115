package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/c360studio/edgarbridge/config"
	"github.com/c360studio/edgarbridge/edgar"
	"github.com/c360studio/edgarbridge/export"
	"github.com/c360studio/edgarbridge/mcp"
	"github.com/c360studio/edgarbridge/metrics"
	"github.com/c360studio/edgarbridge/output/publisher"
	"github.com/c360studio/edgarbridge/source/weburl"
)

// newValidator builds the validator shared by the MCP client and the
// locator. Tests replace it with one backed by a static resolver.
var newValidator = func() *weburl.Validator {
	return weburl.NewValidator(nil)
}

// App wires configuration, logging, metrics and the filing pipeline for one
// command invocation.
type App struct {
	cfg       *config.Config
	logger    *slog.Logger
	metrics   *metrics.Metrics
	validator *weburl.Validator
	out       io.Writer

	metricsServer *http.Server
	metricsAddr   string
	client        *mcp.Client
}

func newApp(ctx context.Context, flags globalFlags, out, errOut io.Writer) (*App, error) {
	bootstrap := newLogger(errOut, firstNonEmpty(flags.logLevel, "info"), "text")

	cfg, err := config.NewLoader(bootstrap).Load(flags.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	cfg.Merge(&config.Config{
		MCP:     config.MCPConfig{ServerURL: flags.serverURL},
		Logging: config.LoggingConfig{Level: flags.logLevel},
		Metrics: config.MetricsConfig{Addr: flags.metricsAddr},
	})
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger := newLogger(errOut, cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)

	app := &App{
		cfg:       cfg,
		logger:    logger,
		metrics:   metrics.New(),
		validator: newValidator(),
		out:       out,
	}
	app.metrics.SetBuildInfo(Version)

	if cfg.Metrics.Addr != "" {
		if err := app.startMetricsServer(ctx, cfg.Metrics.Addr); err != nil {
			return nil, err
		}
	}
	return app, nil
}

// startMetricsServer serves /metrics until Close.
func (a *App) startMetricsServer(ctx context.Context, addr string) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on metrics address %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", a.metrics.Handler())
	a.metricsServer = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := a.metricsServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("Metrics server stopped", "error", err)
		}
	}()
	a.metricsAddr = ln.Addr().String()
	a.logger.Info("Serving metrics", "addr", a.metricsAddr)
	return nil
}

// Client returns the MCP client, creating it on first use.
func (a *App) Client() (*mcp.Client, error) {
	if a.client != nil {
		return a.client, nil
	}
	client, err := mcp.NewClient(a.cfg.MCP.ServerURL,
		mcp.WithLogger(a.logger),
		mcp.WithMetrics(a.metrics),
		mcp.WithValidator(a.validator),
		mcp.WithTimeout(a.cfg.MCP.Timeout),
		mcp.WithRateLimit(a.cfg.MCP.RateLimit, a.cfg.MCP.Burst),
		mcp.WithUserAgent(a.cfg.MCP.UserAgent),
	)
	if err != nil {
		return nil, err
	}
	a.client = client
	return client, nil
}

// Locator returns a filing locator driving the MCP client.
func (a *App) Locator() (*edgar.Locator, error) {
	client, err := a.Client()
	if err != nil {
		return nil, err
	}
	return edgar.NewLocator(client,
		edgar.WithIndexSource(edgar.NewBrowseIndex(client, a.cfg.SEC.MaxCandidates, a.logger)),
		edgar.WithParser(edgar.NewIndexPageParser(a.cfg.SEC.DocumentPatterns, a.logger)),
		edgar.WithValidator(a.validator),
		edgar.WithMetrics(a.metrics),
		edgar.WithLogger(a.logger),
	), nil
}

// Extractor returns a filing extractor over a fresh locator.
func (a *App) Extractor() (*edgar.Extractor, error) {
	locator, err := a.Locator()
	if err != nil {
		return nil, err
	}
	return edgar.NewExtractor(locator, a.logger), nil
}

// Publisher connects to the configured NATS server.
func (a *App) Publisher(ctx context.Context) (*publisher.Publisher, error) {
	if a.cfg.NATS.URL == "" {
		return nil, fmt.Errorf("publishing requires nats.url or the %s environment variable", config.EnvNATSURL)
	}
	p, err := publisher.Connect(ctx, a.cfg.NATS.URL, a.cfg.NATS.SubjectPrefix, a.logger)
	if err != nil {
		return nil, wrapNATSError(err, a.cfg.NATS.URL)
	}
	return p, nil
}

// Exporter writes inside the current working directory.
func (a *App) Exporter() (*export.Exporter, error) {
	return export.NewExporter("", a.logger)
}

// Close ends the browser session and stops the metrics server.
func (a *App) Close(ctx context.Context) {
	if a.client != nil {
		a.client.Close(ctx)
	}
	if a.metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := a.metricsServer.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("Metrics server shutdown failed", "error", err)
		}
	}
}

// wrapConnectionError appends troubleshooting guidance to MCP connection
// failures.
func wrapConnectionError(err error, serverURL string) error {
	if err == nil {
		return nil
	}
	var invalid *mcp.InvalidURLError
	if mcp.IsConnectionError(err) || errors.As(err, &invalid) {
		return fmt.Errorf("%w\n\n%s", err, mcp.Troubleshooting(serverURL))
	}
	return err
}

// wrapNATSError provides helpful guidance when NATS connection fails.
func wrapNATSError(err error, url string) error {
	errStr := err.Error()

	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no servers available") ||
		strings.Contains(errStr, "timeout") {
		return fmt.Errorf(`NATS connection failed: %w

NATS is not running at %s.

To start NATS:
  docker compose up -d nats

Or set NATS_URL environment variable to point to your NATS server.`, err, url)
	}

	return fmt.Errorf("NATS connection failed: %w", err)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
