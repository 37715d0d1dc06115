package mcp

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_CheckHealth(t *testing.T) {
	fs, srv := newFakeServer(t)
	c := newTestClient(t, srv.URL)

	report := c.CheckHealth(context.Background())
	require.NoError(t, report.Err)
	assert.True(t, report.Healthy())
	assert.Equal(t, http.StatusOK, report.StatusCode)
	assert.NotEmpty(t, report.ProbeSessionID)
	assert.Empty(t, c.SessionID(), "probe session must not become the client's session")

	creates, _, _, deletes := fs.counts()
	assert.Equal(t, 1, creates)
	assert.Equal(t, 1, deletes)
}

func TestClient_CheckHealthSessionFailure(t *testing.T) {
	_, srv := newFakeServer(t, func(fs *fakeServer) { fs.sessionStatus = http.StatusInternalServerError })
	c := newTestClient(t, srv.URL)

	report := c.CheckHealth(context.Background())
	assert.True(t, report.Reachable)
	assert.False(t, report.SessionOK)
	assert.False(t, report.Healthy())
	assert.True(t, IsConnectionError(report.Err))
}

func TestClient_CheckHealthUnreachable(t *testing.T) {
	_, srv := newFakeServer(t)
	c := newTestClient(t, srv.URL)
	srv.Close()

	report := c.CheckHealth(context.Background())
	assert.False(t, report.Reachable)
	assert.False(t, report.Healthy())
	assert.True(t, IsConnectionError(report.Err))
}

func TestTroubleshooting(t *testing.T) {
	out := Troubleshooting("http://localhost:4000")

	assert.Contains(t, out, "Current URL: http://localhost:4000")
	assert.Contains(t, out, ServerURLEnv)
	assert.Contains(t, out, "--server-url")
	assert.Contains(t, out, "POST /session")
	assert.Contains(t, out, "firewall")
}
