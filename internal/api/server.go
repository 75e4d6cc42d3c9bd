// Package api exposes the HTTP interface for the catalog service.
package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/avdeev/switch-catalog/internal/metrics"
	"github.com/avdeev/switch-catalog/internal/query"
	"github.com/avdeev/switch-catalog/internal/syncer"
)

// Server wires HTTP handlers to the query service and the sync
// orchestrator.
type Server struct {
	router  chi.Router
	queries *query.Service
	sync    *syncer.Orchestrator
	clock   syncer.Clock
	logger  *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(queries *query.Service, sync *syncer.Orchestrator, clock syncer.Clock, logger *zap.Logger) *Server {
	s := &Server{
		queries: queries,
		sync:    sync,
		clock:   clock,
		logger:  logger,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(timeoutMiddleware(60 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/games", func(r chi.Router) {
			r.Get("/", s.listGames)
			r.Get("/search", s.searchGames)
			r.Get("/recent", s.recentGames)
			r.Get("/{id}", s.getGame)
		})
		r.Route("/genres", func(r chi.Router) {
			r.Get("/", s.listGenres)
			r.Route("/{genre}", func(r chi.Router) {
				r.Get("/games", s.gamesByGenre)
				r.Get("/count", s.countByGenre)
			})
		})
		r.Get("/stats", s.stats)
		r.Route("/sync", func(r chi.Router) {
			r.Post("/", s.startSync)
			r.Get("/status", s.syncStatus)
		})
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if _, err := s.queries.Stats(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// listGames returns the whole catalog, or a single record when the
// title query parameter names one exactly.
func (s *Server) listGames(w http.ResponseWriter, r *http.Request) {
	if title := r.URL.Query().Get("title"); title != "" {
		game, found, err := s.queries.ByTitle(r.Context(), title)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "lookup failed")
			return
		}
		if !found {
			writeError(w, http.StatusNotFound, "game not found")
			return
		}
		writeJSON(w, http.StatusOK, game)
		return
	}
	games, err := s.queries.All(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "listing failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"games": games, "count": len(games)})
}

func (s *Server) getGame(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid game id")
		return
	}
	game, found, err := s.queries.ByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "game not found")
		return
	}
	writeJSON(w, http.StatusOK, game)
}

func (s *Server) searchGames(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	games, err := s.queries.Search(r.Context(), q, intParam(r.URL.Query(), "limit"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"games": games, "count": len(games)})
}

func (s *Server) recentGames(w http.ResponseWriter, r *http.Request) {
	hours := intParam(r.URL.Query(), "hours")
	games, err := s.queries.Recent(r.Context(),
		time.Duration(hours)*time.Hour, s.clock.Now(), intParam(r.URL.Query(), "limit"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"games": games, "count": len(games)})
}

func (s *Server) listGenres(w http.ResponseWriter, r *http.Request) {
	genres, err := s.queries.Genres(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "listing failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"genres": genres, "count": len(genres)})
}

func (s *Server) gamesByGenre(w http.ResponseWriter, r *http.Request) {
	genre := chi.URLParam(r, "genre")
	games, err := s.queries.ByGenre(r.Context(), genre,
		intParam(r.URL.Query(), "limit"), intParam(r.URL.Query(), "offset"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"games": games, "count": len(games)})
}

func (s *Server) countByGenre(w http.ResponseWriter, r *http.Request) {
	genre := chi.URLParam(r, "genre")
	count, err := s.queries.CountByGenre(r.Context(), genre)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"genre": genre, "count": count})
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.queries.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "stats failed")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// startSync launches a background run. Runs detach from the request
// context so a closed connection does not abort the crawl.
func (s *Server) startSync(w http.ResponseWriter, _ *http.Request) {
	runID, err := s.sync.Start(context.Background())
	if errors.Is(err, syncer.ErrRunInProgress) {
		writeError(w, http.StatusConflict, "sync already in progress")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "sync failed to start")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"run_id": runID})
}

func (s *Server) syncStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.sync.Status())
}

func intParam(values url.Values, name string) int {
	v, err := strconv.Atoi(values.Get(name))
	if err != nil {
		return 0
	}
	return v
}
