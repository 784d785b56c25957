// Package api serves the chat service over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Liu-design-beep/smartclip/common/version"
	"github.com/Liu-design-beep/smartclip/internal/smartclip/chat"
	"github.com/Liu-design-beep/smartclip/internal/smartclip/documents"
	"github.com/Liu-design-beep/smartclip/internal/smartclip/observability"
	"github.com/Liu-design-beep/smartclip/internal/smartclip/session"
)

// maxBodyBytes caps chat request bodies.
const maxBodyBytes = 64 * 1024

// Deps are the collaborators of a Server.
type Deps struct {
	Dispatcher *chat.Dispatcher
	Sessions   *session.Manager
	Store      documents.Store
	// Limiter may be nil for no rate limit.
	Limiter *RateLimiter
	// CORSOrigins defaults to "*".
	CORSOrigins []string
	// AgentConfigured is reported by /health.
	AgentConfigured bool
}

// Server routes HTTP requests to the chat dispatcher and document store.
type Server struct {
	deps      Deps
	router    chi.Router
	startedAt time.Time
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

type chatResponse struct {
	ResponseType string `json:"response_type"`
	Content      string `json:"content"`
	NewSessionID string `json:"new_session_id,omitempty"`
}

type documentsResponse struct {
	Documents []string `json:"documents"`
}

type documentResponse struct {
	Title string   `json:"title"`
	Lines []string `json:"lines"`
}

type healthResponse struct {
	Status          string  `json:"status"`
	Version         string  `json:"version"`
	Commit          string  `json:"commit"`
	AgentConfigured bool    `json:"agent_configured"`
	Sessions        int     `json:"sessions"`
	UptimeSecs      float64 `json:"uptime_seconds"`
}

// New builds the router.
func New(deps Deps) *Server {
	if len(deps.CORSOrigins) == 0 {
		deps.CORSOrigins = []string{"*"}
	}
	s := &Server{deps: deps, startedAt: time.Now()}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(withTrace)
	r.Use(logRequests)
	r.Use(chimw.Recoverer)
	r.Use(cors(deps.CORSOrigins))

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/chat", s.handleChat)
		r.Get("/documents", s.handleDocuments)
		r.Get("/documents/{title}", s.handleDocument)
		r.Delete("/sessions/{id}", s.handleDeleteSession)
	})
	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "SmartClip API",
		"version": version.Version,
		"status":  "running",
		"endpoints": map[string]string{
			"chat":      "/api/chat",
			"documents": "/api/documents",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:          "ok",
		Version:         version.Version,
		Commit:          version.GitCommit,
		AgentConfigured: s.deps.AgentConfigured,
		Sessions:        s.deps.Sessions.Len(),
		UptimeSecs:      time.Since(s.startedAt).Seconds(),
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "输入不能为空")
		return
	}

	sess, created := s.deps.Sessions.GetOrCreate(req.SessionID)
	log := observability.From(r.Context()).With("session_id", sess.ID)
	if created {
		log.Info("api: session created")
	}
	if !s.deps.Limiter.Allow(sess.ID) {
		writeError(w, http.StatusTooManyRequests, "请求过于频繁，请稍后再试。")
		return
	}

	reply, err := s.deps.Dispatcher.Handle(r.Context(), sess, req.Text)
	switch {
	case errors.Is(err, chat.ErrEmptyInput):
		writeError(w, http.StatusBadRequest, "输入不能为空")
		return
	case err != nil:
		log.Error("api: chat turn failed", "err", err)
		writeError(w, http.StatusInternalServerError, "处理请求时发生错误")
		return
	}

	resp := chatResponse{ResponseType: string(reply.Type), Content: reply.Content}
	if req.SessionID == "" {
		resp.NewSessionID = sess.ID
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleDocuments lists document titles. Documents are shared by all
// sessions, so session_id is accepted but does not filter.
func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	titles, err := s.deps.Store.Titles(r.Context())
	if err != nil {
		observability.From(r.Context()).Error("api: list documents", "err", err)
		writeError(w, http.StatusInternalServerError, "获取文档列表时发生错误")
		return
	}
	if titles == nil {
		titles = []string{}
	}
	writeJSON(w, http.StatusOK, documentsResponse{Documents: titles})
}

func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	title := chi.URLParam(r, "title")
	if r.URL.RawPath != "" {
		if t, err := url.PathUnescape(title); err == nil {
			title = t
		}
	}
	lines, ok, err := s.deps.Store.Lines(r.Context(), title)
	if err != nil {
		observability.From(r.Context()).Error("api: read document", "title", title, "err", err)
		writeError(w, http.StatusInternalServerError, "读取文档时发生错误")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "文档不存在")
		return
	}
	if lines == nil {
		lines = []string{}
	}
	writeJSON(w, http.StatusOK, documentResponse{Title: title, Lines: lines})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.deps.Sessions.Delete(id) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	s.deps.Limiter.Forget(id)
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("api: failed to encode JSON response", "err", err)
	}
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message})
}
