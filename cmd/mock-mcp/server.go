package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// blankPage is the content of a session that has not navigated yet.
const blankPage = "<html><head></head><body></body></html>"

type createSessionRequest struct {
	BrowserType string `json:"browserType"`
}

type executeRequest struct {
	Command string         `json:"command"`
	Args    map[string]any `json:"args"`
}

type session struct {
	browserType string
	current     string
}

type server struct {
	fixtures atomic.Pointer[fixtureSet]
	logger   *slog.Logger

	mu       sync.Mutex
	sessions map[string]*session

	created   atomic.Int64
	deleted   atomic.Int64
	navigated atomic.Int64
	missing   atomic.Int64
	contents  atomic.Int64
}

func newServer(fixtures fixtureSet, logger *slog.Logger) *server {
	s := &server{
		logger:   logger,
		sessions: make(map[string]*session),
	}
	s.setFixtures(fixtures)
	return s
}

// setFixtures swaps the served page set.
func (s *server) setFixtures(fixtures fixtureSet) {
	s.fixtures.Store(&fixtures)
}

func (s *server) page(target string) (string, bool) {
	content, ok := (*s.fixtures.Load())[fixtureKey(target)]
	return content, ok
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("POST /session", s.handleCreateSession)
	mux.HandleFunc("DELETE /session/{id}", s.handleDeleteSession)
	mux.HandleFunc("POST /session/{id}/execute", s.handleExecute)
	mux.HandleFunc("GET /stats", s.handleStats)
	return mux
}

func (s *server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"server": "mock-mcp",
		"pages":  len(*s.fixtures.Load()),
	})
}

func (s *server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if req.BrowserType == "" {
		req.BrowserType = "chromium"
	}

	id := uuid.NewString()
	s.mu.Lock()
	s.sessions[id] = &session{browserType: req.BrowserType}
	s.mu.Unlock()
	s.created.Add(1)

	s.logger.Info("Session created", "session_id", id, "browser_type", req.BrowserType)
	writeJSON(w, http.StatusCreated, map[string]string{"sessionId": id})
}

func (s *server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}
	s.deleted.Add(1)
	s.logger.Info("Session closed", "session_id", id)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *server) handleExecute(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}

	switch req.Command {
	case "navigate":
		target, _ := req.Args["url"].(string)
		if target == "" {
			writeError(w, http.StatusBadRequest, "navigate needs args.url")
			return
		}
		if _, ok := s.page(target); !ok {
			s.missing.Add(1)
			s.logger.Warn("No fixture for URL", "session_id", id, "url", target)
			writeError(w, http.StatusBadGateway, fmt.Sprintf("no fixture for %s", target))
			return
		}
		sess.current = target
		s.navigated.Add(1)
		s.logger.Info("Navigated", "session_id", id, "url", target)
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "url": target})

	case "content":
		content := blankPage
		if sess.current != "" {
			if page, ok := s.page(sess.current); ok {
				content = page
			}
		}
		s.contents.Add(1)
		writeJSON(w, http.StatusOK, map[string]string{"content": content})

	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown command %q", req.Command))
	}
}

// handleStats returns call counts for test assertions.
func (s *server) handleStats(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	open := len(s.sessions)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"sessions_created": s.created.Load(),
		"sessions_deleted": s.deleted.Load(),
		"sessions_open":    open,
		"navigations":      s.navigated.Load(),
		"missing_pages":    s.missing.Load(),
		"content_requests": s.contents.Load(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
