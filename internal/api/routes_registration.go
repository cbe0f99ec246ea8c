package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// registerReadRoutes wires the public, rate-limited read API.
func registerReadRoutes(r *mux.Router, s *Server) {
	r.HandleFunc("/api/{wallet}/dashboard", cachedHandler(s.cooldown, s.handleDashboard)).Methods(http.MethodGet)
	r.HandleFunc("/api/analytics/{wallet}", s.handleAnalytics).Methods(http.MethodGet)
	r.HandleFunc("/api/wallet/{wallet}/bridge", s.handleBridge).Methods(http.MethodGet)
	r.HandleFunc("/api/wallet/{wallet}/circulated", s.handleCirculated).Methods(http.MethodGet)
	r.HandleFunc("/api/nft/leaderboard", s.handleNFTLeaderboard).Methods(http.MethodGet)
}

// registerAdminRoutes wires the JWT-guarded operator surface: backfill job
// control, dashboard card CRUD, and contract CRUD.
func registerAdminRoutes(r *mux.Router, s *Server) {
	admin := r.PathPrefix("/api/admin").Subrouter()
	admin.Use(s.adminAuthMiddleware)

	admin.HandleFunc("/backfill", s.handleListBackfillJobs).Methods(http.MethodGet)
	admin.HandleFunc("/backfill", s.handleCreateBackfillJob).Methods(http.MethodPost)
	admin.HandleFunc("/backfill/{id}", s.handleGetBackfillJob).Methods(http.MethodGet)
	admin.HandleFunc("/backfill/{id}", s.handleCancelBackfillJob).Methods(http.MethodDelete)
	admin.HandleFunc("/backfill/{id}", s.handleRetryBackfillJob).Methods(http.MethodPost)

	admin.HandleFunc("/dashboard/cards", s.handleListCards).Methods(http.MethodGet)
	admin.HandleFunc("/dashboard/cards", s.handleCreateCard).Methods(http.MethodPost)
	admin.HandleFunc("/dashboard/cards/{id}", s.handleUpdateCard).Methods(http.MethodPut)
	admin.HandleFunc("/dashboard/cards/{id}", s.handleDeleteCard).Methods(http.MethodDelete)

	admin.HandleFunc("/contracts", s.handleListContracts).Methods(http.MethodGet)
	admin.HandleFunc("/contracts", s.handleCreateContract).Methods(http.MethodPost)
	admin.HandleFunc("/contracts/{id}", s.handleGetContractAdmin).Methods(http.MethodGet)
	admin.HandleFunc("/contracts/{id}", s.handleUpdateContract).Methods(http.MethodPut)
	admin.HandleFunc("/contracts/{id}", s.handleDeleteContract).Methods(http.MethodDelete)
}
