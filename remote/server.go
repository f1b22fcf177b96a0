// Package remote exposes the pipeline over HTTP and WebSocket so a phone or
// laptop in the booth can drive the show and stream audio in place of the
// local microphone.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/stagecue/stagecue/pipeline"
)

// Controller is the pipeline surface the remote API drives. *pipeline.Service
// satisfies it.
type Controller interface {
	Next()
	Previous()
	Repeat()
	PlayCueID(id int) error
	PauseListening()
	ResumeListening()
	SetRemoteMode(on bool)
	PushFrames(samples []float32)
	Status() pipeline.Status
}

// Server is the remote control HTTP server.
type Server struct {
	ctrl    Controller
	token   string
	origins []string
	logger  *slog.Logger

	httpServer *http.Server
}

// NewServer builds the server. An empty token disables authentication;
// origins follows the usual CORS list semantics with "*" meaning any.
func NewServer(ctrl Controller, token string, origins []string) *Server {
	return &Server{
		ctrl:    ctrl,
		token:   token,
		origins: origins,
		logger:  slog.With("component", "remote"),
	}
}

// Router returns the full route table wrapped in CORS and auth middleware.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/cmd", s.requirePost(s.handleCommand))
	mux.HandleFunc("/api/manual", s.requirePost(s.handleManual))
	mux.HandleFunc("/api/ingest", s.requirePost(s.handleIngest))
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/ws/ingest", s.handleWebSocket)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	return s.cors(s.auth(mux))
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.ListenAndServe()
	}()
	s.logger.Info("remote API listening", "addr", addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

type commandRequest struct {
	Cmd string `json:"cmd"`
	Arg any    `json:"arg,omitempty"`
}

type manualPlayRequest struct {
	CueID int `json:"cue_id"`
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	switch req.Cmd {
	case "next":
		s.ctrl.Next()
	case "prev":
		s.ctrl.Previous()
	case "replay":
		s.ctrl.Repeat()
	case "pause_listen":
		s.ctrl.PauseListening()
	case "resume_listen":
		s.ctrl.ResumeListening()
	default:
		writeError(w, http.StatusBadRequest,
			"invalid command, valid: next, prev, replay, pause_listen, resume_listen")
		return
	}

	s.logger.Info("command executed", "cmd", req.Cmd)
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "command": req.Cmd})
}

func (s *Server) handleManual(w http.ResponseWriter, r *http.Request) {
	var req manualPlayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.ctrl.PlayCueID(req.CueID); err != nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("cue id %d not found", req.CueID))
		return
	}

	s.logger.Info("manual play", "cue_id", req.CueID)
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "cue_id": req.CueID})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, s.ctrl.Status())
}

// requirePost rejects everything but POST. OPTIONS never reaches here, the
// CORS middleware answers it.
func (s *Server) requirePost(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		next(w, r)
	}
}

// auth enforces the bearer token when one is configured.
func (s *Server) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.token != "" {
			header := r.Header.Get("Authorization")
			got, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || got != s.token {
				writeError(w, http.StatusUnauthorized, "invalid or missing token")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// cors answers preflight requests and stamps allowed responses.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) originAllowed(origin string) bool {
	for _, allowed := range s.origins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]any{"detail": detail})
}
