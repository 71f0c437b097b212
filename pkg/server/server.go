// Package server exposes a db.Database as the board REST API, so the client can be run and
// tested without the real backend.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/matt-steen/todo-board/pkg/board"
	"github.com/matt-steen/todo-board/pkg/db"
	"github.com/rs/zerolog/log"
)

const shutdownTimeout = 5 * time.Second

// Store is the storage the handlers need; *db.Database implements it.
type Store interface {
	Snapshot(ctx context.Context) (*board.Snapshot, error)
	NewList(ctx context.Context, title string) (*board.List, error)
	RenameList(ctx context.Context, id board.ID, title string) error
	DeleteList(ctx context.Context, id board.ID) error
	NewTask(ctx context.Context, listID board.ID, text string, dueAt *time.Time) (*board.Card, error)
	UpdateTask(ctx context.Context, id board.ID, patch db.TaskPatch) error
	DeleteTask(ctx context.Context, id board.ID) error
}

// Server holds the chi router and the store behind it.
type Server struct {
	router chi.Router
	store  Store
}

// New creates a Server with all routes mounted under prefix, e.g. "/api/kanban".
func New(store Store, prefix string) *Server {
	s := &Server{store: store}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	routes := func(r chi.Router) {
		r.Get("/board", s.handleSnapshot)

		r.Post("/lists", s.handleCreateList)
		r.Patch("/lists/{id}", s.handleRenameList)
		r.Delete("/lists/{id}", s.handleDeleteList)

		r.Post("/tasks", s.handleCreateTask)
		r.Patch("/tasks/{id}", s.handleUpdateTask)
		r.Delete("/tasks/{id}", s.handleDeleteTask)
	}

	prefix = strings.TrimRight(prefix, "/")
	if prefix == "" {
		routes(r)
	} else {
		r.Route(prefix, routes)
	}

	s.router = r

	return s
}

// ServeHTTP implements the http.Handler interface, delegating to the chi router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)

	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}

	return nil
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("took", time.Since(start)).
			Msg("handled request")
	})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := s.store.Snapshot(r.Context())
	if err != nil {
		writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, snap)
}

type listRequest struct {
	Title string `json:"title"`
}

func (s *Server) handleCreateList(w http.ResponseWriter, r *http.Request) {
	var req listRequest
	if !readJSON(w, r, &req) {
		return
	}

	list, err := s.store.NewList(r.Context(), req.Title)
	if err != nil {
		writeError(w, err)

		return
	}

	writeJSON(w, http.StatusCreated, list)
}

func (s *Server) handleRenameList(w http.ResponseWriter, r *http.Request) {
	var req listRequest
	if !readJSON(w, r, &req) {
		return
	}

	if err := s.store.RenameList(r.Context(), board.ID(chi.URLParam(r, "id")), req.Title); err != nil {
		writeError(w, err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteList(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteList(r.Context(), board.ID(chi.URLParam(r, "id"))); err != nil {
		writeError(w, err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type taskRequest struct {
	ListID board.ID   `json:"listId"`
	Text   string     `json:"text"`
	DueAt  *time.Time `json:"dueAt"`
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if !readJSON(w, r, &req) {
		return
	}

	task, err := s.store.NewTask(r.Context(), req.ListID, req.Text, req.DueAt)
	if err != nil {
		writeError(w, err)

		return
	}

	writeJSON(w, http.StatusCreated, task)
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	var patch db.TaskPatch
	if !readJSON(w, r, &patch) {
		return
	}

	if patch.Position != nil && *patch.Position < 0 {
		http.Error(w, "position must not be negative", http.StatusBadRequest)

		return
	}

	if err := s.store.UpdateTask(r.Context(), board.ID(chi.URLParam(r, "id")), patch); err != nil {
		writeError(w, err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteTask(r.Context(), board.ID(chi.URLParam(r, "id"))); err != nil {
		writeError(w, err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)

		return false
	}

	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("error writing response")
	}
}

func writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, db.ErrNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)

		return
	}

	log.Error().Err(err).Msg("error handling request")
	http.Error(w, "internal error", http.StatusInternalServerError)
}
