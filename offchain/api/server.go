// Package api exposes the resolver's read-only status/health/metrics
// surface: liveness, readiness, Prometheus scraping, and task lookup by
// identity. It never enqueues, retries, or mutates tasks — only queries
// the store.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/eureka-network/eureka-sink/offchain/store"
	"github.com/eureka-network/eureka-sink/offchain/task"
)

// TaskReader is the read-only store surface this API drives. It is
// satisfied by offchain/store.TaskStore's HealthCheck plus the GetTask
// and ListTasks lookups the Postgres store implements separately from the
// write-path contract.
type TaskReader interface {
	HealthCheck(ctx context.Context) error
	GetTask(ctx context.Context, manifest, uri string) (task.ResolveTask, task.TaskState, bool, error)
	ListTasks(ctx context.Context, state *task.TaskState, manifest string) ([]store.TaskListEntry, error)
}

// TaskView is one row of a /tasks listing response.
type TaskView struct {
	Manifest   string `json:"manifest"`
	URI        string `json:"uri"`
	State      string `json:"state"`
	NumRetries int32  `json:"num_retries"`
}

// Server is the status/health/metrics HTTP server.
type Server struct {
	httpServer *http.Server
	log        *zap.Logger
}

// NewServer builds the chi router and binds it to addr.
func NewServer(addr string, taskStore TaskReader, logger *zap.Logger) *Server {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		if err := taskStore.HealthCheck(req.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Get("/tasks/{manifest}/{uri}", func(w http.ResponseWriter, req *http.Request) {
		manifest := chi.URLParam(req, "manifest")
		rawURI := chi.URLParam(req, "uri")
		uri, err := url.QueryUnescape(rawURI)
		if err != nil {
			http.Error(w, "invalid uri encoding", http.StatusBadRequest)
			return
		}

		t, state, found, err := taskStore.GetTask(req.Context(), manifest, uri)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if !found {
			http.Error(w, "task not found", http.StatusNotFound)
			return
		}

		writeJSON(w, TaskView{
			Manifest:   t.Manifest,
			URI:        t.Request.URI,
			State:      state.String(),
			NumRetries: t.NumRetries,
		})
	})

	r.Get("/tasks", func(w http.ResponseWriter, req *http.Request) {
		var statePtr *task.TaskState
		if raw := req.URL.Query().Get("state"); raw != "" {
			code, err := strconv.Atoi(raw)
			if err != nil {
				http.Error(w, "invalid state code", http.StatusBadRequest)
				return
			}
			s := task.TaskState(code)
			statePtr = &s
		}

		entries, err := taskStore.ListTasks(req.Context(), statePtr, req.URL.Query().Get("manifest"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		views := make([]TaskView, 0, len(entries))
		for _, e := range entries {
			views = append(views, TaskView{
				Manifest:   e.Manifest,
				URI:        e.URI,
				State:      e.State.String(),
				NumRetries: e.NumRetries,
			})
		}
		writeJSON(w, views)
	})

	return &Server{
		httpServer: &http.Server{Addr: addr, Handler: r},
		log:        logger,
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// StartAsync runs the server in a background goroutine, logging a
// non-graceful-shutdown error.
func (s *Server) StartAsync() {
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error("api server stopped", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts the server down within ctx's deadline or 5
// seconds, whichever comes first.
func (s *Server) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

// Handler returns the underlying http.Handler, for tests driving the
// router directly via httptest without binding a real listener.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
