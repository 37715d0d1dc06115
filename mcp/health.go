package mcp

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// HealthReport describes the outcome of CheckHealth.
type HealthReport struct {
	ServerURL string
	// Reachable is true when GET / answered 200.
	Reachable  bool
	StatusCode int
	// SessionOK is true when a probe session was created.
	SessionOK      bool
	ProbeSessionID string
	Err            error
	Elapsed        time.Duration
}

// Healthy reports whether the server is up and can create sessions.
func (r HealthReport) Healthy() bool {
	return r.Reachable && r.SessionOK
}

// CheckHealth probes the server root and then creates and closes a
// throwaway session. The client's own session is left untouched.
func (c *Client) CheckHealth(ctx context.Context) (report HealthReport) {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	report.ServerURL = c.baseURL
	defer func() { report.Elapsed = time.Since(start) }()

	status, body, err := c.do(ctx, "health", http.MethodGet, nil)
	report.StatusCode = status
	if err != nil {
		report.Err = NewConnectionError(c.baseURL, err)
		return report
	}
	if status != http.StatusOK {
		report.Err = NewConnectionError(c.baseURL, fmt.Errorf("server returned status %d: %s", status, truncate(body)))
		return report
	}
	report.Reachable = true

	id, err := c.createSession(ctx)
	if err != nil {
		report.Err = err
		return report
	}
	report.SessionOK = true
	report.ProbeSessionID = id
	c.deleteSession(ctx, id)

	return report
}

// Troubleshooting renders guidance for connectivity failures against
// serverURL.
func Troubleshooting(serverURL string) string {
	var b strings.Builder
	b.WriteString("Troubleshooting:\n")
	b.WriteString("1. Is the MCP server running? Start it with:\n")
	b.WriteString("   cd ../mcp-server-browserbase && npm start\n")
	b.WriteString("   or run the bundled mock: mock-mcp -fixtures ./fixtures -port 3000\n")
	b.WriteString("\n2. Check the server URL:\n")
	fmt.Fprintf(&b, "   Current URL: %s\n", serverURL)
	fmt.Fprintf(&b, "   Set the %s environment variable or use --server-url\n", ServerURLEnv)
	b.WriteString("\n3. Check for firewall or port issues:\n")
	b.WriteString("   Make sure port 3000 (or your custom port) is accessible\n")
	b.WriteString("\n4. Look for errors in the MCP server logs\n")
	b.WriteString("\n5. Verify the MCP server API:\n")
	b.WriteString("   The server should respond to POST /session for creating a browser session\n")
	return b.String()
}
