package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	m.Handler().ServeHTTP(rec, req)
	return rec.Body.String()
}

func TestMetrics_RecordValidation(t *testing.T) {
	m := New()

	m.RecordValidation("public-regulator", "")
	m.RecordValidation("public-regulator", "")
	m.RecordValidation("public-regulator", "host_not_allowed")

	body := scrape(t, m)
	assert.Contains(t, body, `edgarbridge_url_validations_total{policy="public-regulator",result="accepted"} 2`)
	assert.Contains(t, body, `edgarbridge_url_validations_total{policy="public-regulator",result="host_not_allowed"} 1`)
}

func TestMetrics_RecordCommand(t *testing.T) {
	m := New()

	m.RecordCommand("navigate", "200", 150*time.Millisecond)
	m.RecordCommand("content", "500", time.Second)

	body := scrape(t, m)
	assert.Contains(t, body, `edgarbridge_mcp_commands_total{command="navigate",status="200"} 1`)
	assert.Contains(t, body, `edgarbridge_mcp_commands_total{command="content",status="500"} 1`)
	assert.Contains(t, body, `edgarbridge_mcp_command_duration_seconds_count{command="navigate"} 1`)
}

func TestMetrics_RecordFiling(t *testing.T) {
	m := New()

	m.RecordFiling("10-K", true)
	m.RecordFiling("10-Q", false)
	m.SetBuildInfo("v1.2.3")

	body := scrape(t, m)
	assert.Contains(t, body, `edgarbridge_filings_total{form_type="10-K",result="success"} 1`)
	assert.Contains(t, body, `edgarbridge_filings_total{form_type="10-Q",result="error"} 1`)
	assert.Contains(t, body, `edgarbridge_build_info{version="v1.2.3"} 1`)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.RecordValidation("local-service", "")
		m.RecordCommand("navigate", "200", time.Millisecond)
		m.RecordFiling("10-K", true)
		m.SetBuildInfo("dev")
	})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
