package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Thiht/transactor"
	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"pomosync"
	"pomosync/sqlite"
)

type ctxKey uint8

const userIDKey ctxKey = iota

type server struct {
	l        *log.Logger
	tx       transactor.Transactor
	entries  pomosync.TimeEntryRepo
	settings pomosync.TimerSettingsRepo
	hub      *hub
	upgrader websocket.Upgrader
}

func newServer(logger *log.Logger, tx transactor.Transactor, entries pomosync.TimeEntryRepo, settings pomosync.TimerSettingsRepo, h *hub) *server {
	return &server{
		l:        logger,
		tx:       tx,
		entries:  entries,
		settings: settings,
		hub:      h,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
}

func (s *server) routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/ws", s.handleWS)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.withUser)
	api.HandleFunc("/entries", s.handleCreateEntry).Methods(http.MethodPost)
	api.HandleFunc("/entries", s.handleListEntries).Methods(http.MethodGet)
	api.HandleFunc("/settings", s.handleGetSettings).Methods(http.MethodGet)
	api.HandleFunc("/settings", s.handlePutSettings).Methods(http.MethodPut)
	return r
}

// userFromRequest resolves the caller's identity. Session issuance is out of
// scope here: the bearer token is treated as the opaque user identifier the
// surrounding auth layer would have resolved. Browser websocket clients
// cannot set headers, so /ws also accepts a token query parameter.
func userFromRequest(r *http.Request) pomosync.UserID {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return pomosync.UserID(strings.TrimPrefix(auth, "Bearer "))
	}
	return pomosync.UserID(r.URL.Query().Get("token"))
}

func (s *server) withUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := userFromRequest(r)
		if userID == "" {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
	})
}

func userID(ctx context.Context) pomosync.UserID {
	id, _ := ctx.Value(userIDKey).(pomosync.UserID)
	return id
}

func (s *server) handleWS(w http.ResponseWriter, r *http.Request) {
	uid := userFromRequest(r)
	if uid == "" {
		http.Error(w, "missing bearer token", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.l.Error("failed websocket upgrade", "userID", uid, "err", err)
		return
	}

	ws := newWSSession(uid, conn, s.hub, s.l)
	s.hub.add(ws)
	go ws.writePump()
	go ws.readPump()
}

type entryResponse struct {
	ID string `json:"id"`
	pomosync.TimeEntryRequest
}

func (s *server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	var req pomosync.TimeEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if req.ProjectID == "" {
		http.Error(w, "project is required", http.StatusBadRequest)
		return
	}
	if req.IdempotencyKey == "" {
		http.Error(w, "idempotencyKey is required", http.StatusBadRequest)
		return
	}

	record := pomosync.TimeEntryRecord{
		UserID:         userID(r.Context()),
		ProjectID:      req.ProjectID,
		TaskID:         req.TaskID,
		IdempotencyKey: req.IdempotencyKey,
		StartedAt:      req.StartTime,
		EndedAt:        req.EndTime,
		Duration:       time.Duration(req.DurationMS) * time.Millisecond,
		Notes:          req.Notes,
		Tags:           req.Tags,
		IsRunning:      req.IsRunning,
	}

	var inserted pomosync.ExistingTimeEntryRecord
	err := s.tx.WithinTransaction(r.Context(), func(ctx context.Context) error {
		var err error
		inserted, err = s.entries.InsertEntry(ctx, record)
		return err
	})
	if err != nil {
		s.l.Error("failed to insert time entry", "userID", record.UserID, "err", err)
		http.Error(w, "failed to store entry", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, toEntryResponse(inserted))
}

func (s *server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := s.entries.GetEntriesByUser(r.Context(), userID(r.Context()))
	if err != nil {
		s.l.Error("failed to list time entries", "err", err)
		http.Error(w, "failed to list entries", http.StatusInternalServerError)
		return
	}

	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toEntryResponse(e))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	rec, err := s.settings.GetSettings(r.Context(), userID(r.Context()))
	if err != nil {
		if errors.Is(err, sqlite.ErrNotFound) {
			http.Error(w, "no settings", http.StatusNotFound)
			return
		}
		s.l.Error("failed to get timer settings", "err", err)
		http.Error(w, "failed to get settings", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, pomosync.TimerSettingsRequest{
		WorkMinutes:  rec.WorkMinutes,
		BreakMinutes: rec.BreakMinutes,
		Repetitions:  rec.Repetitions,
		ProjectID:    rec.ProjectID,
		TaskID:       rec.TaskID,
		Notes:        rec.Notes,
		Tags:         rec.Tags,
	})
}

func (s *server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var req pomosync.TimerSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if req.WorkMinutes <= 0 || req.BreakMinutes < 0 || req.Repetitions < 1 {
		http.Error(w, "invalid durations", http.StatusBadRequest)
		return
	}

	record := pomosync.TimerSettingsRecord{
		UserID:       userID(r.Context()),
		WorkMinutes:  req.WorkMinutes,
		BreakMinutes: req.BreakMinutes,
		Repetitions:  req.Repetitions,
		ProjectID:    req.ProjectID,
		TaskID:       req.TaskID,
		Notes:        req.Notes,
		Tags:         req.Tags,
	}
	err := s.tx.WithinTransaction(r.Context(), func(ctx context.Context) error {
		_, err := s.settings.UpsertSettings(ctx, record)
		return err
	})
	if err != nil {
		s.l.Error("failed to upsert timer settings", "userID", record.UserID, "err", err)
		http.Error(w, "failed to store settings", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func toEntryResponse(e pomosync.ExistingTimeEntryRecord) entryResponse {
	return entryResponse{
		ID: string(e.ID),
		TimeEntryRequest: pomosync.TimeEntryRequest{
			ProjectID:      e.ProjectID,
			TaskID:         e.TaskID,
			IdempotencyKey: e.IdempotencyKey,
			StartTime:      e.StartedAt,
			EndTime:        e.EndedAt,
			DurationMS:     e.Duration.Milliseconds(),
			Notes:          e.Notes,
			Tags:           e.Tags,
			IsRunning:      e.IsRunning,
		},
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("failed to encode response", "err", err)
	}
}
