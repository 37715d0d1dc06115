// Package main provides the edgarbridge binary entry point.
// edgarbridge drives a browser-automation MCP server to retrieve SEC EDGAR
// 10-K and 10-Q filings and hands them to NATS or local export files.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "edgarbridge"
)

// skipAppAnnotation marks commands that run without loading configuration.
const skipAppAnnotation = "edgarbridge/skip-app"

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd().ExecuteContext(ctx)
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// globalFlags are the persistent flags shared by every subcommand.
type globalFlags struct {
	configPath  string
	serverURL   string
	logLevel    string
	metricsAddr string
}

func rootCmd() *cobra.Command {
	var flags globalFlags
	var app *App

	cmd := &cobra.Command{
		Use:   appName,
		Short: "SEC EDGAR filing bridge",
		Long: `edgarbridge retrieves SEC EDGAR 10-K and 10-Q filings through a
browser-automation MCP server.

Every URL is checked before use:
- the MCP server must be a local service (localhost, 127.0.0.1, ::1)
- filing pages must be https://www.sec.gov and resolve to public addresses`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[skipAppAnnotation] != "" || cmd.Name() == "help" {
				return nil
			}
			var err error
			app, err = newApp(cmd.Context(), flags, cmd.OutOrStdout(), cmd.ErrOrStderr())
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if app != nil {
				app.Close(context.WithoutCancel(cmd.Context()))
			}
			return nil
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "Config file path (YAML)")
	pf.StringVar(&flags.serverURL, "server-url", "", "MCP server URL (overrides MCP_SERVER_URL)")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.StringVar(&flags.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")

	appFn := func() *App { return app }
	cmd.AddCommand(
		checkCmd(appFn),
		validateCmd(appFn),
		fetchCmd(appFn),
		historyCmd(appFn),
		configCmd(appFn),
		&cobra.Command{
			Use:         "version",
			Short:       "Print version information",
			Annotations: map[string]string{skipAppAnnotation: "true"},
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
			},
		},
	)

	return cmd
}

// newLogger builds the process logger from the logging config.
func newLogger(w io.Writer, level, format string) *slog.Logger {
	lvl := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
