// Package api exposes the job query endpoint and the filter UI.
package api

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/afl-job-crawler/internal/crawler"
	"github.com/JakeFAU/afl-job-crawler/internal/metrics"
	"github.com/JakeFAU/afl-job-crawler/internal/taxonomy"
)

//go:embed ui
var uiFiles embed.FS

const requestTimeout = 30 * time.Second

// Searcher is the read side of the job store.
type Searcher interface {
	Search(ctx context.Context, filter crawler.SearchFilter) ([]crawler.Job, error)
}

// Pinger is implemented by stores that can report connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server wires HTTP handlers to the job store.
type Server struct {
	router chi.Router
	store  Searcher
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(store Searcher, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{store: store, logger: logger}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metrics.Middleware)

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(timeoutMiddleware(requestTimeout))
		r.Get("/jobs", s.searchJobs)
		r.Get("/taxonomy", s.taxonomy)
	})

	static, err := fs.Sub(uiFiles, "ui")
	if err != nil {
		panic(err)
	}
	files := http.FileServer(http.FS(static))
	r.Get("/", files.ServeHTTP)
	r.Get("/index.html", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/", http.StatusMovedPermanently)
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
	if pinger, ok := s.store.(Pinger); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pinger.Ping(ctx); err != nil {
			s.logger.Warn("readiness check failed", zap.Error(err))
			writeError(w, http.StatusServiceUnavailable, "store unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) searchJobs(w http.ResponseWriter, r *http.Request) {
	filter, err := ParseFilter(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if filter.Field == "" {
		writeJSON(w, http.StatusOK, []crawler.Job{})
		return
	}
	jobs, err := s.store.Search(r.Context(), filter)
	if err != nil {
		s.logger.Error("search jobs failed",
			zap.String("request_id", RequestID(r.Context())),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

type taxonomyResponse struct {
	Fields  []taxonomy.Entry `json:"fields"`
	Regions []taxonomy.Entry `json:"regions"`
}

func (s *Server) taxonomy(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, taxonomyResponse{Fields: taxonomy.Fields(), Regions: taxonomy.Regions()})
}

var errBadExperience = errors.New("experience must be an integer")

// ParseFilter maps query parameters onto a SearchFilter. Only a malformed
// experience value is an error.
func ParseFilter(q map[string][]string) (crawler.SearchFilter, error) {
	get := func(key string) string {
		if values := q[key]; len(values) > 0 {
			return strings.TrimSpace(values[0])
		}
		return ""
	}
	filter := crawler.SearchFilter{
		Field:            get("field"),
		Region:           get("region"),
		NeedsVisaSponsor: get("needsVisaSponsor") == "true",
		SwedishFluent:    get("swedishFlunt") == "true" || get("swedishFluent") == "true",
	}
	if raw := get("experience"); raw != "" {
		years, err := strconv.Atoi(raw)
		if err != nil {
			return crawler.SearchFilter{}, errBadExperience
		}
		filter.MaxExperience = &years
	}
	for _, skill := range strings.Split(get("excludeSkills"), ",") {
		if skill = strings.TrimSpace(skill); skill != "" {
			filter.ExcludeSkills = append(filter.ExcludeSkills, skill)
		}
	}
	return filter, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write json failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
