package config

import (
	"os"
	"path/filepath"
	"testing"
)

// testLoader isolates a Loader from the real home directory, working
// directory and environment.
func testLoader(t *testing.T, home, work string, env map[string]string) *Loader {
	t.Helper()
	l := NewLoader(nil)
	l.homeDir = func() (string, error) { return home, nil }
	l.workDir = func() (string, error) { return work, nil }
	l.getenv = func(key string) string { return env[key] }
	return l
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLoaderDefaults(t *testing.T) {
	l := testLoader(t, t.TempDir(), t.TempDir(), nil)

	cfg, err := l.Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.MCP.ServerURL != DefaultServerURL {
		t.Errorf("expected default server URL, got %s", cfg.MCP.ServerURL)
	}
}

func TestLoaderLayering(t *testing.T) {
	home := t.TempDir()
	root := t.TempDir()
	work := filepath.Join(root, "nested", "dir")
	if err := os.MkdirAll(work, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	writeFile(t, filepath.Join(home, UserConfigDir, UserConfigFile), `
mcp:
  server_url: "http://localhost:3001"
  user_agent: "from-user"
logging:
  level: warn
`)
	writeFile(t, filepath.Join(root, ProjectConfigFile), `
mcp:
  server_url: "http://localhost:3002"
sec:
  max_candidates: 20
`)

	cfg, err := testLoader(t, home, work, nil).Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.MCP.ServerURL != "http://localhost:3002" {
		t.Errorf("project config should override user config, got %s", cfg.MCP.ServerURL)
	}
	if cfg.MCP.UserAgent != "from-user" {
		t.Errorf("user config value should survive, got %s", cfg.MCP.UserAgent)
	}
	if cfg.SEC.MaxCandidates != 20 {
		t.Errorf("expected 20 max candidates, got %d", cfg.SEC.MaxCandidates)
	}

	env := map[string]string{
		EnvServerURL: "http://127.0.0.1:3003",
		EnvLogLevel:  "debug",
		EnvNATSURL:   "nats://localhost:4222",
	}
	cfg, err = testLoader(t, home, work, env).Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.MCP.ServerURL != "http://127.0.0.1:3003" {
		t.Errorf("environment should override files, got %s", cfg.MCP.ServerURL)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected debug level from environment, got %s", cfg.Logging.Level)
	}
	if cfg.NATS.URL != "nats://localhost:4222" {
		t.Errorf("expected NATS URL from environment, got %s", cfg.NATS.URL)
	}
}

func TestLoaderExplicitPath(t *testing.T) {
	work := t.TempDir()
	writeFile(t, filepath.Join(work, ProjectConfigFile), `
mcp:
  server_url: "http://localhost:3002"
`)
	explicit := filepath.Join(t.TempDir(), "custom.yaml")
	writeFile(t, explicit, `
mcp:
  server_url: "http://localhost:3005"
`)

	cfg, err := testLoader(t, t.TempDir(), work, nil).Load(explicit)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.MCP.ServerURL != "http://localhost:3005" {
		t.Errorf("explicit path should replace discovery, got %s", cfg.MCP.ServerURL)
	}

	if _, err := testLoader(t, t.TempDir(), work, nil).Load(filepath.Join(work, "missing.yaml")); err == nil {
		t.Error("expected error for missing explicit config")
	}
}

func TestLoaderRejectsRemoteServer(t *testing.T) {
	env := map[string]string{EnvServerURL: "http://10.0.0.5:3000"}

	if _, err := testLoader(t, t.TempDir(), t.TempDir(), env).Load(""); err == nil {
		t.Error("expected validation error for non-local MCP server")
	}
}

func TestLoaderBrokenProjectConfigIsSkipped(t *testing.T) {
	work := t.TempDir()
	writeFile(t, filepath.Join(work, ProjectConfigFile), "mcp: [broken")

	cfg, err := testLoader(t, t.TempDir(), work, nil).Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.MCP.ServerURL != DefaultServerURL {
		t.Errorf("expected defaults, got %s", cfg.MCP.ServerURL)
	}
}

func TestEnsureUserConfig(t *testing.T) {
	home := t.TempDir()
	l := testLoader(t, home, t.TempDir(), nil)

	path, err := l.EnsureUserConfig()
	if err != nil {
		t.Fatalf("EnsureUserConfig() error = %v", err)
	}
	if path != filepath.Join(home, UserConfigDir, UserConfigFile) {
		t.Errorf("unexpected path %s", path)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("created config does not load: %v", err)
	}
	if cfg.MCP.ServerURL != DefaultServerURL {
		t.Errorf("expected default server URL, got %s", cfg.MCP.ServerURL)
	}

	cfg.MCP.UserAgent = "edited"
	if err := cfg.SaveToFile(path); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}
	if _, err := l.EnsureUserConfig(); err != nil {
		t.Fatalf("second EnsureUserConfig() error = %v", err)
	}
	again, _ := LoadFromFile(path)
	if again.MCP.UserAgent != "edited" {
		t.Error("existing user config must not be overwritten")
	}
}
