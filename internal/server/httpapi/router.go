// Package httpapi serves the operator HTTP endpoints: Prometheus metrics,
// a readiness probe, the logged-in sessions and single key state.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophlicense/internal/common"
	"github.com/dmitrijs2005/gophlicense/internal/server/models"
	"github.com/dmitrijs2005/gophlicense/internal/server/sessions"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Pinger reports store reachability.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// SessionLister yields the active sessions.
type SessionLister interface {
	Snapshot() []*sessions.Session
}

// KeyLookup reads one key; a missing key is common.ErrorNotFound.
type KeyLookup interface {
	Lookup(ctx context.Context, name string) (*models.Key, error)
}

type sessionView struct {
	Name       string    `json:"name"`
	Remote     string    `json:"remote"`
	LoggedInAt time.Time `json:"logged_in_at"`
}

type keyView struct {
	Name          string     `json:"name"`
	Used          bool       `json:"used"`
	Valid         bool       `json:"valid"`
	LastValidated *time.Time `json:"last_validated"`
	CreatedAt     time.Time  `json:"created_at"`
}

// NewRouter mounts the endpoints. metricsHandler may be nil.
func NewRouter(metricsHandler http.Handler, db Pinger, registry SessionLister, keys KeyLookup) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}
	r.Get("/healthz", healthz(db))
	r.Get("/sessions", listSessions(registry))
	r.Get("/keys/{name}", getKey(keys))

	return r
}

func healthz(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				http.Error(w, "store unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	}
}

func listSessions(registry SessionLister) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		snap := registry.Snapshot()
		out := make([]sessionView, 0, len(snap))
		for _, s := range snap {
			out = append(out, sessionView{
				Name:       s.Name,
				Remote:     s.Channel.RemoteAddr(),
				LoggedInAt: s.LoggedInAt.UTC(),
			})
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	}
}

func getKey(keys KeyLookup) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		k, err := keys.Lookup(r.Context(), chi.URLParam(r, "name"))
		switch {
		case errors.Is(err, common.ErrorNotFound):
			http.Error(w, "key not found", http.StatusNotFound)
			return
		case err != nil:
			http.Error(w, "store error", http.StatusInternalServerError)
			return
		}

		v := keyView{
			Name:      k.Name,
			Used:      k.Used,
			Valid:     k.Valid,
			CreatedAt: k.CreatedAt.UTC(),
		}
		if k.LastValidated != nil {
			t := k.LastValidated.UTC()
			v.LastValidated = &t
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}
}
