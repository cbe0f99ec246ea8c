package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
)

// handleDashboard serves the consolidated per-wallet view. The route is
// wrapped in cachedHandler keyed by path+query (which includes the wallet
// address), enforcing the minimum refresh cooldown between recomputes.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	wallet, ok := normalizeWalletParam(mux.Vars(r)["wallet"])
	if !ok {
		writeAPIError(w, http.StatusBadRequest, "invalid wallet address")
		return
	}

	result, err := s.agg.Dashboard(r.Context(), wallet, s.bridge, s.lending)
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, "dashboard: "+err.Error())
		return
	}

	writeAPIResponse(w, http.StatusOK, flattenDashboard(result))
}

// flattenDashboard splices DashboardResult's NamedMetrics map into the
// top-level object alongside its struct fields, matching the wire contract's
// flat field list (marvk, nado, gmCount, ... sit beside stats/bridge/score).
func flattenDashboard(d interface {
	MarshalNamed() map[string]float64
}) map[string]interface{} {
	raw, _ := json.Marshal(d)
	out := make(map[string]interface{})
	json.Unmarshal(raw, &out)
	for k, v := range d.MarshalNamed() {
		out[k] = v
	}
	return out
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	wallet, ok := normalizeWalletParam(mux.Vars(r)["wallet"])
	if !ok {
		writeAPIError(w, http.StatusBadRequest, "invalid wallet address")
		return
	}

	metrics, err := s.agg.EvaluateAll(r.Context(), wallet)
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, "analytics: "+err.Error())
		return
	}
	writeAPIResponse(w, http.StatusOK, map[string]interface{}{"metrics": metrics})
}

func (s *Server) handleBridge(w http.ResponseWriter, r *http.Request) {
	wallet, ok := normalizeWalletParam(mux.Vars(r)["wallet"])
	if !ok {
		writeAPIError(w, http.StatusBadRequest, "invalid wallet address")
		return
	}
	if s.bridge == nil {
		writeAPIError(w, http.StatusServiceUnavailable, "bridge aggregation not configured")
		return
	}

	result, err := s.bridge.Evaluate(r.Context(), wallet)
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, "bridge: "+err.Error())
		return
	}
	writeAPIResponse(w, http.StatusOK, result)
}

func (s *Server) handleCirculated(w http.ResponseWriter, r *http.Request) {
	wallet, ok := normalizeWalletParam(mux.Vars(r)["wallet"])
	if !ok {
		writeAPIError(w, http.StatusBadRequest, "invalid wallet address")
		return
	}

	result, err := s.agg.CirculatedVolume(r.Context(), wallet)
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, "circulated: "+err.Error())
		return
	}
	writeAPIResponse(w, http.StatusOK, result)
}

// nftLeaderboardEntry matches the leaderboard wire shape, which names the
// image field nft_image_url rather than models.NFTMintRecord's image_url.
type nftLeaderboardEntry struct {
	WalletAddress string  `json:"wallet_address"`
	TokenID       string  `json:"token_id"`
	Score         float64 `json:"score"`
	Rank          int     `json:"rank"`
	NFTImageURL   string  `json:"nft_image_url,omitempty"`
}

func (s *Server) handleNFTLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit, page := parseLimitOffset(r, 50, 200)
	offset := (page - 1) * limit

	records, total, err := s.repo.NFTLeaderboardPage(r.Context(), limit, offset)
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, "nft leaderboard: "+err.Error())
		return
	}

	entries := make([]nftLeaderboardEntry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, nftLeaderboardEntry{
			WalletAddress: rec.WalletAddress,
			TokenID:       rec.TokenID,
			Score:         rec.Score,
			Rank:          rec.Rank,
			NFTImageURL:   rec.ImageURL,
		})
	}

	totalPages := (total + limit - 1) / limit
	if totalPages == 0 {
		totalPages = 1
	}

	writeAPIResponse(w, http.StatusOK, map[string]interface{}{
		"leaderboard": entries,
		"total":       total,
		"limit":       limit,
		"currentPage": page,
		"totalPages":  totalPages,
		"hasMore":     page < totalPages,
	})
}
