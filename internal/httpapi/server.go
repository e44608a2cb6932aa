// Package httpapi exposes the orchestrator over HTTP: chat, session
// lifecycle, and snapshot management endpoints consumed by the web frontend.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gurdaan/agentic-workflow-backend/internal/session"
)

// Server routes HTTP requests to a session manager.
type Server struct {
	manager *session.Manager
	mux     *http.ServeMux
}

// New creates a Server around the manager and registers all routes.
func New(manager *session.Manager) *Server {
	s := &Server{manager: manager, mux: http.NewServeMux()}

	s.mux.HandleFunc("POST /api/chat", s.handleChat)
	s.mux.HandleFunc("POST /api/sessions/new", s.handleNewSession)
	s.mux.HandleFunc("POST /api/sessions/switch", s.handleSwitchSession)
	s.mux.HandleFunc("GET /api/sessions/current", s.handleCurrentSession)
	s.mux.HandleFunc("POST /api/save-chat", s.handleSaveChat)
	s.mux.HandleFunc("GET /api/chat-sessions", s.handleListSessions)
	s.mux.HandleFunc("GET /api/chat-sessions/{key}", s.handleGetSession)
	s.mux.HandleFunc("DELETE /api/chat-sessions/{key}", s.handleDeleteSession)
	s.mux.HandleFunc("GET /health", s.handleHealth)

	return s
}

// ServeHTTP implements http.Handler with CORS applied to every route.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	withCORS(s.mux).ServeHTTP(w, r)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if in.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	env, err := s.manager.ProcessQuery(r.Context(), in.Query)
	if err != nil {
		slog.ErrorContext(r.Context(), "chat query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to process query")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"response":   env.Content,
		"metadata":   env.Metadata,
		"session_id": s.manager.SessionID(),
	})
}

func (s *Server) handleNewSession(w http.ResponseWriter, r *http.Request) {
	var in struct {
		SessionName string `json:"session_name"`
	}
	// Body is optional, an empty name derives a timestamped one.
	_ = json.NewDecoder(r.Body).Decode(&in)

	id, err := s.manager.NewSession(r.Context(), in.SessionName)
	if err != nil {
		slog.ErrorContext(r.Context(), "new session failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create new session")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "success",
		"session_id": id,
	})
}

func (s *Server) handleSwitchSession(w http.ResponseWriter, r *http.Request) {
	var in struct {
		SessionID string `json:"session_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.SessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	if err := s.manager.SwitchSession(r.Context(), in.SessionID); err != nil {
		slog.ErrorContext(r.Context(), "switch session failed", "session_id", in.SessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to switch session")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "success",
		"session_id": s.manager.SessionID(),
	})
}

func (s *Server) handleCurrentSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id":    s.manager.SessionID(),
		"message_count": s.manager.MessageCount(),
	})
}

func (s *Server) handleSaveChat(w http.ResponseWriter, r *http.Request) {
	key, err := s.manager.Checkpoint(r.Context())
	if err != nil {
		if errors.Is(err, session.ErrStorageUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "chat storage is not configured")
			return
		}
		slog.ErrorContext(r.Context(), "save chat failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save chat history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "success",
		"blob_name": key,
	})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	infos, err := s.manager.Sessions(r.Context())
	if err != nil {
		if errors.Is(err, session.ErrStorageUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "chat storage is not configured")
			return
		}
		slog.ErrorContext(r.Context(), "list sessions failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list chat sessions")
		return
	}

	if infos == nil {
		infos = []session.SnapshotInfo{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": infos})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	snap, err := s.manager.LoadSnapshot(r.Context(), key)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrSnapshotNotFound):
			writeError(w, http.StatusNotFound, "chat session not found")
		case errors.Is(err, session.ErrStorageUnavailable):
			writeError(w, http.StatusServiceUnavailable, "chat storage is not configured")
		default:
			slog.ErrorContext(r.Context(), "load session failed", "key", key, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to load chat session")
		}
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	deleted, err := s.manager.DeleteSnapshot(r.Context(), key)
	if err != nil {
		if errors.Is(err, session.ErrStorageUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "chat storage is not configured")
			return
		}
		slog.ErrorContext(r.Context(), "delete session failed", "key", key, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete chat session")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "chat session not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"status": "success"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "healthy"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
