package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/c360studio/edgarbridge/edgar"
	"github.com/c360studio/edgarbridge/filing"
	"github.com/c360studio/edgarbridge/mcp"
	"github.com/c360studio/edgarbridge/metrics"
	"github.com/c360studio/edgarbridge/source/weburl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	tsla2024IndexURL = "https://www.sec.gov/Archives/edgar/data/1318605/000162828024002390/0001628280-24-002390-index.htm"
	tsla2023IndexURL = "https://www.sec.gov/Archives/edgar/data/1318605/000095017023001409/0000950170-23-001409-index.htm"
)

var testdataDir, _ = filepath.Abs(filepath.Join("..", "..", "edgar", "testdata"))

func fixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(testdataDir, name))
	require.NoError(t, err)
	return string(data)
}

// isolate keeps the loader away from the real home directory, working
// directory and environment, and stubs DNS for www.sec.gov.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
	t.Setenv("MCP_SERVER_URL", "")
	t.Setenv("EDGARBRIDGE_LOG_LEVEL", "")
	t.Setenv("NATS_URL", "")

	orig := newValidator
	newValidator = func() *weburl.Validator {
		return weburl.NewValidator(weburl.StaticResolver{"www.sec.gov": {"23.33.44.55"}})
	}
	t.Cleanup(func() { newValidator = orig })
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// fakeMCP serves pages keyed by the URL the browser was told to open.
type fakeMCP struct {
	mu      sync.Mutex
	pages   map[string]string
	current string
	visited []string
}

func newFakeMCP(t *testing.T, pages map[string]string) *httptest.Server {
	t.Helper()
	f := &fakeMCP{pages: pages}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "ok")
	})
	mux.HandleFunc("POST /session", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"sessionId":"cli-session"}`)
	})
	mux.HandleFunc("DELETE /session/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("POST /session/{id}/execute", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Command string         `json:"command"`
			Args    map[string]any `json:"args"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		f.mu.Lock()
		defer f.mu.Unlock()
		switch req.Command {
		case mcp.CommandNavigate:
			target, _ := req.Args["url"].(string)
			if _, ok := f.pages[target]; !ok {
				http.Error(w, "navigation failed", http.StatusBadGateway)
				return
			}
			f.current = target
			f.visited = append(f.visited, target)
			fmt.Fprint(w, `{"success":true}`)
		case mcp.CommandContent:
			_ = json.NewEncoder(w).Encode(map[string]string{"content": f.pages[f.current]})
		default:
			http.Error(w, "unknown command", http.StatusBadRequest)
		}
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func teslaPages(t *testing.T) map[string]string {
	ref := filing.Reference{CIK: "0001318605", Form: filing.Form10K, Year: 2024}
	return map[string]string{
		edgar.BrowseURL(ref, edgar.DefaultMaxCandidates): fixture(t, "browse_tsla_10k.html"),
		tsla2024IndexURL: fixture(t, "index_tsla_10k.html"),
	}
}

func TestVersion(t *testing.T) {
	isolate(t)
	t.Setenv("MCP_SERVER_URL", "http://mcp.example.com")

	out, err := execute(t, "version")
	require.NoError(t, err, "version must not load configuration")
	assert.Contains(t, out, "edgarbridge version "+Version)
}

func TestInvalidServerURLFromEnvironment(t *testing.T) {
	isolate(t)
	t.Setenv("MCP_SERVER_URL", "http://mcp.example.com")

	_, err := execute(t, "validate", "https://www.sec.gov/")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mcp.server_url")
}

func TestValidateCommand(t *testing.T) {
	isolate(t)

	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr string
	}{
		{
			name: "regulator URL",
			args: []string{"validate", "HTTPS://WWW.SEC.GOV:443/cgi-bin/../Archives/edgar/data/1318605/#top"},
			want: "https://www.sec.gov/Archives/edgar/data/1318605\n",
		},
		{
			name:    "look-alike host",
			args:    []string{"validate", "https://www.sec.gov.evil.com/"},
			wantErr: string(weburl.ReasonHostNotAllowed),
		},
		{
			name:    "plain http",
			args:    []string{"validate", "http://www.sec.gov/"},
			wantErr: string(weburl.ReasonSchemeNotAllowed),
		},
		{
			name: "local service",
			args: []string{"validate", "--policy", "local", "http://LOCALHOST:3000/session"},
			want: "http://localhost:3000/session\n",
		},
		{
			name:    "metadata address under local policy",
			args:    []string{"validate", "--policy", "local", "http://169.254.169.254/"},
			wantErr: string(weburl.ReasonHostNotAllowed),
		},
		{
			name: "no resolve",
			args: []string{"validate", "--no-resolve", "https://www.sec.gov/x"},
			want: "https://www.sec.gov/x\n",
		},
		{
			name:    "unknown policy",
			args:    []string{"validate", "--policy", "open", "https://www.sec.gov/"},
			wantErr: "unknown policy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, tt.args...)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestCheckCommand(t *testing.T) {
	isolate(t)

	t.Run("healthy", func(t *testing.T) {
		srv := newFakeMCP(t, nil)
		out, err := execute(t, "--server-url", srv.URL, "check")
		require.NoError(t, err)
		assert.Contains(t, out, "MCP server is healthy")
	})

	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		out, err := execute(t, "--server-url", url, "check")
		require.Error(t, err)
		assert.Contains(t, out, "Reachable:  false")
		assert.Contains(t, err.Error(), "Troubleshooting:")
		assert.Contains(t, err.Error(), url)
	})
}

func TestFetchCommand(t *testing.T) {
	isolate(t)
	srv := newFakeMCP(t, teslaPages(t))

	out, err := execute(t, "--server-url", srv.URL, "--log-level", "error",
		"fetch", "--cik", "1318605", "--form", "10-K", "--year", "2024", "--export", "out/tsla.jsonl")
	require.NoError(t, err)
	assert.Contains(t, out, "Tesla Inc 10-K (FY 2024)")
	assert.Contains(t, out, "Accession: 0001628280-24-002390")
	assert.Contains(t, out, "Exported 1 record(s)")

	data, err := os.ReadFile(filepath.Join("out", "tsla.jsonl"))
	require.NoError(t, err)
	var rec map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &rec))
	assert.Equal(t, "0001318605", rec["cik"])
}

func TestFetchCommandByIndexJSON(t *testing.T) {
	isolate(t)
	srv := newFakeMCP(t, teslaPages(t))

	out, err := execute(t, "--server-url", srv.URL, "--log-level", "error",
		"fetch", "--cik", "1318605", "--year", "2024", "--index", "0", "--json")
	require.NoError(t, err)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	assert.Equal(t, tsla2024IndexURL, rec["index_url"])

	_, err = execute(t, "--server-url", srv.URL, "--log-level", "error",
		"fetch", "--cik", "1318605", "--year", "2024", "--index", "1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, edgar.ErrIndexOutOfRange))
}

func TestFetchCommandErrors(t *testing.T) {
	isolate(t)

	t.Run("invalid input", func(t *testing.T) {
		srv := newFakeMCP(t, nil)
		_, err := execute(t, "--server-url", srv.URL, "fetch", "--cik", "TSLA", "--year", "2024")
		require.Error(t, err)
		assert.True(t, edgar.IsInputError(err))
		assert.NotContains(t, err.Error(), "Troubleshooting:")
	})

	t.Run("navigation failure adds troubleshooting", func(t *testing.T) {
		srv := newFakeMCP(t, map[string]string{})
		_, err := execute(t, "--server-url", srv.URL, "--log-level", "error", "fetch", "--cik", "1318605", "--year", "2024")
		require.Error(t, err)
		assert.True(t, mcp.IsConnectionError(err))
		assert.Contains(t, err.Error(), "Troubleshooting:")
	})

	t.Run("publish without NATS", func(t *testing.T) {
		srv := newFakeMCP(t, teslaPages(t))
		_, err := execute(t, "--server-url", srv.URL, "--log-level", "error",
			"fetch", "--cik", "1318605", "--year", "2024", "--publish")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "NATS_URL")
	})

	t.Run("export outside working directory", func(t *testing.T) {
		srv := newFakeMCP(t, teslaPages(t))
		_, err := execute(t, "--server-url", srv.URL, "--log-level", "error",
			"fetch", "--cik", "1318605", "--year", "2024", "--export", "../escape.jsonl")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not allowed")
	})

	t.Run("missing required flags", func(t *testing.T) {
		_, err := execute(t, "fetch", "--cik", "1318605")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "year")
	})
}

func TestHistoryCommand(t *testing.T) {
	isolate(t)
	srv := newFakeMCP(t, teslaPages(t))

	out, err := execute(t, "--server-url", srv.URL, "--log-level", "error",
		"history", "--cik", "0001318605", "--form", "10-k", "--year", "2024")
	require.NoError(t, err)
	assert.Contains(t, out, "INDEX")
	assert.Contains(t, out, "FY 2024")
	assert.Contains(t, out, "0001628280-24-002390")
	assert.NotContains(t, out, tsla2023IndexURL)
}

func TestConfigCommands(t *testing.T) {
	isolate(t)

	out, err := execute(t, "config", "init")
	require.NoError(t, err)
	path := strings.TrimSpace(out)
	assert.FileExists(t, path)

	out, err = execute(t, "--server-url", "http://127.0.0.1:3999", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "server_url: http://127.0.0.1:3999")
}

func TestStartMetricsServer(t *testing.T) {
	a := &App{
		metrics: metrics.New(),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	a.metrics.SetBuildInfo(Version)
	require.NoError(t, a.startMetricsServer(context.Background(), "127.0.0.1:0"))
	defer a.Close(context.Background())

	resp, err := http.Get("http://" + a.metricsAddr + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "edgarbridge_build_info")
}

func TestWrapConnectionError(t *testing.T) {
	plain := errors.New("boom")
	assert.Same(t, plain, wrapConnectionError(plain, "http://localhost:3000"))
	assert.NoError(t, wrapConnectionError(nil, "http://localhost:3000"))

	connErr := mcp.NewConnectionError("http://localhost:3000", errors.New("connection refused"))
	wrapped := wrapConnectionError(connErr, "http://localhost:3000")
	assert.ErrorIs(t, wrapped, connErr)
	assert.Contains(t, wrapped.Error(), "MCP_SERVER_URL")
}

func TestWrapNATSError(t *testing.T) {
	err := wrapNATSError(errors.New("dial tcp: connection refused"), "nats://localhost:4222")
	assert.Contains(t, err.Error(), "NATS is not running at nats://localhost:4222")

	err = wrapNATSError(errors.New("authorization violation"), "nats://localhost:4222")
	assert.Equal(t, "NATS connection failed: authorization violation", err.Error())
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "DEBUG", "json")
	logger.Debug("hello", "k", "v")
	assert.Contains(t, buf.String(), `"level":"DEBUG"`)

	buf.Reset()
	logger = newLogger(&buf, "warn", "text")
	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "level=WARN")
}
