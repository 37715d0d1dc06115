// Package metrics exposes Prometheus collectors for URL validation, MCP
// commands and filing retrieval.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result label values.
const (
	ResultAccepted = "accepted"
	ResultSuccess  = "success"
	ResultError    = "error"
)

// Metrics holds the bridge's collectors on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	urlValidations  *prometheus.CounterVec
	mcpCommands     *prometheus.CounterVec
	commandDuration *prometheus.HistogramVec
	filings         *prometheus.CounterVec
	buildInfo       *prometheus.GaugeVec
}

// New creates a Metrics collector with its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,

		urlValidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "edgarbridge_url_validations_total",
			Help: "URL validations by policy and result (accepted or the rejection reason).",
		}, []string{"policy", "result"}),

		mcpCommands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "edgarbridge_mcp_commands_total",
			Help: "Commands sent to the MCP server by command and status.",
		}, []string{"command", "status"}),

		commandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "edgarbridge_mcp_command_duration_seconds",
			Help:    "MCP command round-trip time in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"command"}),

		filings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "edgarbridge_filings_total",
			Help: "Filing retrievals by form type and result.",
		}, []string{"form_type", "result"}),

		buildInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "edgarbridge_build_info",
			Help: "Build information. Value is always 1.",
		}, []string{"version"}),
	}

	reg.MustRegister(
		m.urlValidations,
		m.mcpCommands,
		m.commandDuration,
		m.filings,
		m.buildInfo,
	)

	return m
}

// RecordValidation counts a URL validation. An empty reason means accepted.
func (m *Metrics) RecordValidation(policy, reason string) {
	if m == nil {
		return
	}
	result := reason
	if result == "" {
		result = ResultAccepted
	}
	m.urlValidations.WithLabelValues(policy, result).Inc()
}

// RecordCommand counts an MCP command and observes its duration.
// Status is the HTTP status code as text, or "error" for transport failures.
func (m *Metrics) RecordCommand(command, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.mcpCommands.WithLabelValues(command, status).Inc()
	m.commandDuration.WithLabelValues(command).Observe(elapsed.Seconds())
}

// RecordFiling counts a filing retrieval.
func (m *Metrics) RecordFiling(formType string, success bool) {
	if m == nil {
		return
	}
	result := ResultError
	if success {
		result = ResultSuccess
	}
	m.filings.WithLabelValues(formType, result).Inc()
}

// SetBuildInfo sets the build information gauge.
func (m *Metrics) SetBuildInfo(version string) {
	if m == nil {
		return
	}
	m.buildInfo.WithLabelValues(version).Set(1)
}

// Handler serves the registry in Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
