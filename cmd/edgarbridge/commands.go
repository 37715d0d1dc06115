package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/c360studio/edgarbridge/config"
	"github.com/c360studio/edgarbridge/filing"
	"github.com/c360studio/edgarbridge/mcp"
	"github.com/c360studio/edgarbridge/source/weburl"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func checkCmd(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check that the MCP server is reachable and can open sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			client, err := a.Client()
			if err != nil {
				return wrapConnectionError(err, a.cfg.MCP.ServerURL)
			}

			report := client.CheckHealth(cmd.Context())
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "MCP server: %s\n", report.ServerURL)
			fmt.Fprintf(out, "Reachable:  %t\n", report.Reachable)
			fmt.Fprintf(out, "Sessions:   %t\n", report.SessionOK)
			fmt.Fprintf(out, "Elapsed:    %s\n", report.Elapsed.Round(time.Millisecond))

			if !report.Healthy() {
				return fmt.Errorf("MCP server health check failed: %w\n\n%s", report.Err, mcp.Troubleshooting(report.ServerURL))
			}
			fmt.Fprintln(out, "MCP server is healthy")
			return nil
		},
	}
}

func validateCmd(app func() *App) *cobra.Command {
	var (
		policyName string
		noResolve  bool
	)

	cmd := &cobra.Command{
		Use:   "validate URL",
		Short: "Check a URL against a request policy and print its canonical form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()

			var policy weburl.Policy
			switch strings.ToLower(policyName) {
			case "sec", weburl.PolicyPublicRegulator:
				policy = weburl.PublicRegulatorPolicy()
			case "local", weburl.PolicyLocalService:
				policy = weburl.LocalServicePolicy()
			default:
				return fmt.Errorf("unknown policy %q (want sec or local)", policyName)
			}
			if noResolve {
				policy = policy.WithoutResolution()
			}

			res := a.validator.Validate(cmd.Context(), args[0], policy)
			a.metrics.RecordValidation(policy.Name, string(res.Reason))
			if !res.OK() {
				return res.Err(args[0], policy)
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Canonical)
			return nil
		},
	}

	cmd.Flags().StringVar(&policyName, "policy", "sec", "Policy to apply (sec, local)")
	cmd.Flags().BoolVar(&noResolve, "no-resolve", false, "Skip DNS resolution and address checks")
	return cmd
}

// filingFlags identify a filing on the command line.
type filingFlags struct {
	cik     string
	form    string
	year    int
	publish bool
	export  string
	asJSON  bool
}

func (f *filingFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.cik, "cik", "", "Company CIK (required)")
	cmd.Flags().StringVar(&f.form, "form", string(filing.Form10K), "Form type (10-K, 10-Q)")
	cmd.Flags().IntVar(&f.year, "year", 0, "Fiscal year (required)")
	cmd.Flags().BoolVar(&f.publish, "publish", false, "Publish records to NATS")
	cmd.Flags().StringVar(&f.export, "export", "", "Write records to FILE (.jsonl or .json) under the working directory")
	cmd.Flags().BoolVar(&f.asJSON, "json", false, "Print records as JSON")
	_ = cmd.MarkFlagRequired("cik")
	_ = cmd.MarkFlagRequired("year")
}

func fetchCmd(app func() *App) *cobra.Command {
	var (
		flags filingFlags
		index int
	)

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Retrieve one filing",
		Long: `Retrieve one filing. Without --index the first filing listed for the
company, form type and year is returned; with --index the filing at that
position of the filing history is returned.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			ctx := cmd.Context()

			var (
				f   *filing.SecFiling
				err error
			)
			if cmd.Flags().Changed("index") {
				extractor, xerr := a.Extractor()
				if xerr != nil {
					return wrapConnectionError(xerr, a.cfg.MCP.ServerURL)
				}
				f, err = extractor.FilingByIndex(ctx, flags.cik, flags.form, flags.year, index)
			} else {
				locator, lerr := a.Locator()
				if lerr != nil {
					return wrapConnectionError(lerr, a.cfg.MCP.ServerURL)
				}
				f, err = locator.GetFiling(ctx, flags.cik, flags.form, flags.year)
			}
			if err != nil {
				return wrapConnectionError(err, a.cfg.MCP.ServerURL)
			}

			if flags.asJSON {
				if err := printJSON(cmd.OutOrStdout(), f.Record()); err != nil {
					return err
				}
			} else {
				printFiling(cmd.OutOrStdout(), f)
			}
			return deliver(ctx, a, cmd.OutOrStdout(), flags, filing.History{f})
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVar(&index, "index", 0, "Position in the filing history")
	return cmd
}

func historyCmd(app func() *App) *cobra.Command {
	var flags filingFlags

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List every filing for a company, form type and year by index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			ctx := cmd.Context()

			extractor, err := a.Extractor()
			if err != nil {
				return wrapConnectionError(err, a.cfg.MCP.ServerURL)
			}
			history, err := extractor.FilingHistory(ctx, flags.cik, flags.form, flags.year)
			if err != nil {
				return wrapConnectionError(err, a.cfg.MCP.ServerURL)
			}

			if flags.asJSON {
				if err := printJSON(cmd.OutOrStdout(), filing.History(history).Records()); err != nil {
					return err
				}
			} else {
				printHistory(cmd.OutOrStdout(), history)
			}
			return deliver(ctx, a, cmd.OutOrStdout(), flags, history)
		},
	}

	flags.register(cmd)
	return cmd
}

func configCmd(app func() *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:         "init",
		Short:       "Write the default user config if none exists",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipAppAnnotation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.NewLoader(newLogger(cmd.ErrOrStderr(), "info", "text")).EnsureUserConfig()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(app().cfg); err != nil {
				return err
			}
			return enc.Close()
		},
	})
	return cmd
}

// deliver publishes and exports history as requested by flags.
func deliver(ctx context.Context, a *App, out io.Writer, flags filingFlags, history filing.History) error {
	if flags.publish {
		p, err := a.Publisher(ctx)
		if err != nil {
			return err
		}
		defer p.Close()
		if err := p.PublishHistory(ctx, history); err != nil {
			return err
		}
		fmt.Fprintf(out, "Published %d record(s)\n", len(history))
	}

	if flags.export != "" {
		exporter, err := a.Exporter()
		if err != nil {
			return err
		}
		recs := make([]filing.Recorder, 0, len(history))
		for _, f := range history {
			recs = append(recs, f)
		}
		path, err := exporter.ExportFile(flags.export, recs)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Exported %d record(s) to %s\n", len(history), path)
	}
	return nil
}

func printFiling(w io.Writer, f *filing.SecFiling) {
	fmt.Fprintf(w, "%s %s (%s)\n", f.DisplayName(), f.Form, f.FiscalPeriodDisplay())
	if !f.FilingDate.IsZero() {
		fmt.Fprintf(w, "Filed:     %s\n", f.FilingDate.Format(filing.DateLayout))
	}
	if f.AccessionNumber != "" {
		fmt.Fprintf(w, "Accession: %s\n", f.AccessionNumber)
	}
	fmt.Fprintf(w, "Index:     %s\n", f.IndexURL)
	fmt.Fprintf(w, "Documents: %d\n", len(f.DocumentURLs))
	for _, u := range f.DocumentURLs {
		fmt.Fprintf(w, "  %s\n", u)
	}
}

func printHistory(w io.Writer, history []*filing.SecFiling) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tPERIOD\tFILED\tACCESSION\tDOCUMENTS")
	for i, f := range history {
		filed := "-"
		if !f.FilingDate.IsZero() {
			filed = f.FilingDate.Format(filing.DateLayout)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\n", i, f.FiscalPeriodDisplay(), filed, f.AccessionNumber, len(f.DocumentURLs))
	}
	_ = tw.Flush()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
