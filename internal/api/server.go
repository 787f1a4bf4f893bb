// Package api exposes the memory service, summaries and profile over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rcliao/brain-jar/internal/logger"
	"github.com/rcliao/brain-jar/internal/memory"
	"github.com/rcliao/brain-jar/internal/model"
	"github.com/rcliao/brain-jar/internal/profile"
	"github.com/rcliao/brain-jar/internal/remote"
	"github.com/rcliao/brain-jar/internal/search"
	"github.com/rcliao/brain-jar/internal/store"
	"github.com/rcliao/brain-jar/internal/summary"
)

// Deps are the components the server routes to. Mirror and Searcher may be nil.
type Deps struct {
	Memories  *memory.Service
	Store     store.Store
	Summaries *summary.Engine
	Mirror    *remote.Mirror
	Profiles  *profile.Manager
	Searcher  *search.Searcher
	Logger    *logger.Logger
}

type Server struct {
	deps Deps
	log  *logger.Logger
}

func NewServer(deps Deps) *Server {
	log := deps.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Server{deps: deps, log: log}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, s.requestLog, middleware.Recoverer)

	r.Get("/health", s.health)
	r.Route("/memories", func(r chi.Router) {
		r.Post("/", s.addMemory)
		r.Post("/documents", s.addDocument)
		r.Get("/", s.listMemories)
		r.Get("/search", s.searchMemories)
		r.Delete("/{id}", s.deleteMemory)
	})
	r.Get("/stats", s.stats)
	r.Get("/summaries", s.listSummaries)
	r.Post("/summaries/{scope}", s.triggerSummary)
	r.Get("/profile", s.getProfile)
	r.Post("/profile/sync", s.syncProfile)
	if s.deps.Searcher != nil {
		r.Post("/ask", s.ask)
	}
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.Info("serving", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "remote": s.deps.Mirror.Enabled()})
}

func (s *Server) addMemory(w http.ResponseWriter, r *http.Request) {
	var in memory.AddParams
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	res, err := s.deps.Memories.Add(r.Context(), in)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

type documentRequest struct {
	Text  string   `json:"text"`
	Name  string   `json:"name,omitempty"`
	Scope string   `json:"scope,omitempty"`
	Tags  []string `json:"tags,omitempty"`
}

func (s *Server) addDocument(w http.ResponseWriter, r *http.Request) {
	var in documentRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	res, err := s.deps.Memories.AddDocument(r.Context(), memory.DocumentParams{
		Text:  in.Text,
		Name:  in.Name,
		Scope: in.Scope,
		Tags:  in.Tags,
	})
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) listMemories(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p := store.ListParams{Scope: q.Get("scope"), Tags: q["tag"]}
	if v := q.Get("since"); v != "" {
		since, err := model.ParseISO(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		p.Since = since
	}
	limit, err := intParam(q.Get("limit"), 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	p.Limit = limit

	recs, err := s.deps.Memories.List(r.Context(), p)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) searchMemories(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := q.Get("q")
	if strings.TrimSpace(query) == "" {
		writeError(w, http.StatusBadRequest, errors.New("q is required"))
		return
	}
	limit, err := intParam(q.Get("limit"), 10)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	hits, err := s.deps.Memories.Search(r.Context(), memory.SearchParams{Query: query, Scope: q.Get("scope"), Limit: limit})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, hits)
}

func (s *Server) deleteMemory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ok, err := s.deps.Memories.Delete(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("memory not found"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true, "id": id})
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	st, err := s.deps.Store.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) listSummaries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := intParam(q.Get("limit"), 10)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sums, err := s.deps.Mirror.GetSummaries(r.Context(), q.Get("scope"), time.Time{}, limit)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if sums == nil {
		sums = []model.ActivitySummary{}
	}
	writeJSON(w, http.StatusOK, sums)
}

func (s *Server) triggerSummary(w http.ResponseWriter, r *http.Request) {
	scope := chi.URLParam(r, "scope")
	if !model.ValidScope(scope) {
		writeError(w, http.StatusBadRequest, memory.ErrInvalidScope)
		return
	}
	sum, err := s.deps.Summaries.TriggerSummary(r.Context(), scope)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if sum == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusCreated, sum)
}

func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.deps.Profiles.Load(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) syncProfile(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Profiles.Sync(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type askRequest struct {
	Query          string   `json:"query"`
	IncludeProfile bool     `json:"include_profile"`
	Scopes         []string `json:"scopes,omitempty"`
}

func (s *Server) ask(w http.ResponseWriter, r *http.Request) {
	var in askRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	res, err := s.deps.Searcher.Search(r.Context(), search.Params{
		Query:          in.Query,
		IncludeProfile: in.IncludeProfile,
		Scopes:         in.Scopes,
	})
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, memory.ErrInvalidScope), errors.Is(err, memory.ErrEmptyContent):
		return http.StatusBadRequest
	case errors.Is(err, remote.ErrDisabled):
		return http.StatusServiceUnavailable
	case errors.Is(err, search.ErrRateLimited):
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

func intParam(v string, def int) (int, error) {
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, errors.New("limit must be a non-negative integer")
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
