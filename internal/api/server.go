// Package api is the HTTP surface: a read API serving wallet analytics and
// a bearer-token-guarded admin API for contract/card/backfill CRUD (metrics
// have no admin routes).
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/medfata/inkscore-sub000/internal/aggregation"
	"github.com/medfata/inkscore-sub000/internal/eventbus"
	"github.com/medfata/inkscore-sub000/internal/obsv"
	"github.com/medfata/inkscore-sub000/internal/repository"

	"github.com/gorilla/mux"
)

// Server wires the repository, aggregation engine, and observability
// registry into an HTTP router. It owns no business logic itself; handlers
// translate requests into repository/aggregation calls and marshal results.
type Server struct {
	repo    *repository.Repository
	agg     *aggregation.Engine
	bridge  *aggregation.BridgeEvaluator
	lending *aggregation.LendingEvaluator
	metrics *obsv.Registry
	bus     *eventbus.Bus

	adminSecret []byte
	cooldown    time.Duration

	httpServer *http.Server
	wsHub      *hub
}

// Options bundles the optional collaborators the server needs beyond the
// repository and aggregation engine.
type Options struct {
	Bridge      *aggregation.BridgeEvaluator
	Lending     *aggregation.LendingEvaluator
	Metrics     *obsv.Registry
	Bus         *eventbus.Bus
	AdminSecret string
	Cooldown    time.Duration
}

func NewServer(repo *repository.Repository, agg *aggregation.Engine, port string, opts Options) *Server {
	r := mux.NewRouter()

	if opts.Metrics == nil {
		opts.Metrics = obsv.NewRegistry()
	}
	if opts.Bus == nil {
		opts.Bus = eventbus.New()
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = 30 * time.Second
	}

	s := &Server{
		repo:        repo,
		agg:         agg,
		bridge:      opts.Bridge,
		lending:     opts.Lending,
		metrics:     opts.Metrics,
		bus:         opts.Bus,
		adminSecret: []byte(opts.AdminSecret),
		cooldown:    opts.Cooldown,
		wsHub:       newHub(),
	}
	s.startFeedPump()

	r.Use(commonMiddleware)
	r.Use(rateLimitMiddleware)

	registerReadRoutes(r, s)
	registerAdminRoutes(r, s)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/ws/feed", s.handleWSFeed).Methods(http.MethodGet, http.MethodOptions)

	s.httpServer = &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	return s
}

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeAPIResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// commonMiddleware sets response headers shared by every route and answers
// CORS preflight requests before they reach the router.
func commonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
