// Package httpapi provides the HTTP API of the game server.
// It delegates all game logic to the session manager and its engines.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/jxucoder/truthordare/content"
	"github.com/jxucoder/truthordare/engine"
	"github.com/jxucoder/truthordare/eventbus"
	"github.com/jxucoder/truthordare/internal/metrics"
	"github.com/jxucoder/truthordare/manual"
	"github.com/jxucoder/truthordare/model"
	"github.com/jxucoder/truthordare/session"
)

// Handler provides the HTTP API.
type Handler struct {
	sessions *session.Manager
	content  content.Store
	logger   *zap.Logger
	router   chi.Router
}

// New creates a new HTTP API handler.
func New(sessions *session.Manager, store content.Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{
		sessions: sessions,
		content:  store,
		logger:   logger.Named("httpapi"),
	}
	h.router = h.buildRouter()
	return h
}

// Router returns the HTTP router.
func (h *Handler) Router() chi.Router {
	return h.router
}

func (h *Handler) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))
			r.Get("/manual", h.handleManual)
			r.Get("/content/{mode}", h.handleContent)
			r.Post("/sessions", h.handleCreateSession)
			r.Get("/sessions", h.handleListSessions)
			r.Get("/sessions/{id}", h.handleGetSession)
			r.Delete("/sessions/{id}", h.handleCloseSession)
			r.Put("/sessions/{id}/mode", h.handleSetMode)
			r.Post("/sessions/{id}/draw", h.handleDraw)
			r.Post("/sessions/{id}/reset", h.handleReset)
		})
		r.Get("/sessions/{id}/events", h.handleSessionEvents)
		r.Get("/sessions/{id}/ws", h.handleSessionWebSocket)
	})

	r.Handle("/metrics", metrics.Handler())
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	return r
}

// --- Request/Response types ---

type createSessionRequest struct {
	Mode string `json:"mode,omitempty"`
}

type setModeRequest struct {
	Mode string `json:"mode"`
}

type drawRequest struct {
	Type string `json:"type,omitempty"`
	Spin bool   `json:"spin,omitempty"`
	// Wait blocks until the draw is committed.
	Wait bool `json:"wait,omitempty"`
}

type contentResponse struct {
	Mode       model.Mode `json:"mode"`
	Truths     []string   `json:"truths"`
	Challenges []string   `json:"challenges"`
}

type manualResponse struct {
	Title    string           `json:"title"`
	Subtitle string           `json:"subtitle"`
	Sections []manual.Section `json:"sections"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// --- Handlers ---

func (h *Handler) handleManual(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, manualResponse{
		Title:    manual.Title,
		Subtitle: manual.Subtitle,
		Sections: manual.Sections(),
	})
}

func (h *Handler) handleContent(w http.ResponseWriter, r *http.Request) {
	mode, err := model.ParseMode(chi.URLParam(r, "mode"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, contentResponse{
		Mode:       mode,
		Truths:     nonNil(h.content.Lookup(mode, model.TypeTruth)),
		Challenges: nonNil(h.content.Lookup(mode, model.TypeChallenge)),
	})
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if !decodeOptional(w, r, &req) {
		return
	}

	mode := model.ModeParty
	if strings.TrimSpace(req.Mode) != "" {
		m, err := model.ParseMode(req.Mode)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		mode = m
	}

	sess, err := h.sessions.Create(mode)
	if errors.Is(err, session.ErrTooManySessions) {
		writeError(w, http.StatusServiceUnavailable, "too many active sessions")
		return
	}
	if err != nil {
		h.logger.Error("creating session", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	writeJSON(w, http.StatusCreated, sess.Snapshot())
}

func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions := h.sessions.List()
	out := make([]session.Snapshot, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.Snapshot())
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (h *Handler) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.sessions.Close(id); err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSetMode(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookup(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req setModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	mode, err := model.ParseMode(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sess.Engine().SetMode(mode)
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (h *Handler) handleDraw(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var req drawRequest
	if !decodeOptional(w, r, &req) {
		return
	}
	typ, err := model.ParseEntryType(req.Type)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	done, accepted := sess.Engine().Draw(engine.DrawRequest{Type: typ, Spin: req.Spin})
	if !accepted {
		writeError(w, http.StatusConflict, "a draw is already in progress")
		return
	}
	if !req.Wait {
		writeJSON(w, http.StatusAccepted, sess.Snapshot())
		return
	}

	select {
	case <-done:
		// A dropped draw (mode changed meanwhile) still reports the current state.
		writeJSON(w, http.StatusOK, sess.Snapshot())
	case <-r.Context().Done():
		writeError(w, http.StatusGatewayTimeout, "draw did not finish in time")
	}
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookup(w, r)
	if !ok {
		return
	}
	sess.Engine().Reset()
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (h *Handler) handleSessionEvents(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookup(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	bus := h.sessions.Bus()
	ch := bus.Subscribe(sess.ID)
	defer bus.Unsubscribe(sess.ID, ch)

	h.writeSSE(w, &eventbus.Event{SessionID: sess.ID, Type: eventbus.TypeState, State: sess.Engine().State(), CreatedAt: time.Now().UTC()})
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			h.writeSSE(w, event)
			flusher.Flush()
			if event.Type == eventbus.TypeClosed {
				return
			}
		}
	}
}

// --- Helpers ---

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := h.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return nil, false
	}
	return sess, true
}

// decodeOptional decodes a JSON body into v, treating an empty body as {}.
func decodeOptional(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	err := json.NewDecoder(r.Body).Decode(v)
	if err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func (h *Handler) writeSSE(w http.ResponseWriter, event *eventbus.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("marshaling event", zap.Error(err))
		return
	}
	if _, err := fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", event.ID, event.Type, string(data)); err != nil {
		h.logger.Debug("writing event", zap.Error(err))
	}
}
