package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/medfata/inkscore-sub000/internal/chainutil"
	"github.com/medfata/inkscore-sub000/internal/models"
)

type contractRequest struct {
	Address            string          `json:"address"`
	Name               string          `json:"name"`
	DeployBlock        uint64          `json:"deploy_block"`
	Kind               string          `json:"kind"`
	IndexingEnabled    *bool           `json:"indexing_enabled,omitempty"`
	FetchTransactions  bool            `json:"fetch_transactions"`
	ABI                json.RawMessage `json:"abi,omitempty"`
	PlatformID         *int64          `json:"platform_id,omitempty"`
}

func (s *Server) handleListContracts(w http.ResponseWriter, r *http.Request) {
	contracts, err := s.repo.ListContracts(r.Context(), false)
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, "list contracts: "+err.Error())
		return
	}
	writeAPIResponse(w, http.StatusOK, map[string]interface{}{"contracts": contracts})
}

func (s *Server) handleGetContractAdmin(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid contract id")
		return
	}
	c, err := s.repo.GetContractByID(r.Context(), id)
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, "get contract: "+err.Error())
		return
	}
	if c == nil {
		writeAPIError(w, http.StatusNotFound, "contract not found")
		return
	}
	writeAPIResponse(w, http.StatusOK, c)
}

func (s *Server) handleCreateContract(w http.ResponseWriter, r *http.Request) {
	var req contractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	addr := chainutil.NormalizeAddress(req.Address)
	if !chainutil.IsValidAddress(addr) {
		writeAPIError(w, http.StatusBadRequest, "invalid contract address")
		return
	}
	if existing, err := s.repo.GetContract(r.Context(), addr); err == nil && existing != nil {
		writeAPIError(w, http.StatusBadRequest, "contract address already registered")
		return
	}

	kind := models.ContractKind(req.Kind)
	if kind != models.ContractKindCount && kind != models.ContractKindVolume {
		writeAPIError(w, http.StatusBadRequest, "kind must be 'count' or 'volume'")
		return
	}

	enabled := true
	if req.IndexingEnabled != nil {
		enabled = *req.IndexingEnabled
	}

	id, err := s.repo.UpsertContract(r.Context(), models.Contract{
		Address:           addr,
		Name:              req.Name,
		DeployBlock:       req.DeployBlock,
		Kind:              kind,
		IndexingEnabled:   enabled,
		FetchTransactions: req.FetchTransactions,
		ABI:               req.ABI,
		CreationDate:      time.Now().UTC(),
	})
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, "create contract: "+err.Error())
		return
	}

	if req.PlatformID != nil {
		if err := s.repo.LinkContractPlatform(r.Context(), id, *req.PlatformID); err != nil {
			writeAPIError(w, http.StatusInternalServerError, "link platform: "+err.Error())
			return
		}
	}

	writeAPIResponse(w, http.StatusCreated, map[string]interface{}{"id": id})
}

func (s *Server) handleUpdateContract(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid contract id")
		return
	}
	existing, err := s.repo.GetContractByID(r.Context(), id)
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, "get contract: "+err.Error())
		return
	}
	if existing == nil {
		writeAPIError(w, http.StatusNotFound, "contract not found")
		return
	}

	var req contractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name != "" {
		existing.Name = req.Name
	}
	if req.Kind != "" {
		kind := models.ContractKind(req.Kind)
		if kind != models.ContractKindCount && kind != models.ContractKindVolume {
			writeAPIError(w, http.StatusBadRequest, "kind must be 'count' or 'volume'")
			return
		}
		existing.Kind = kind
	}
	if req.ABI != nil {
		existing.ABI = req.ABI
	}
	if req.IndexingEnabled != nil {
		if err := s.repo.SetContractIndexingEnabled(r.Context(), id, *req.IndexingEnabled); err != nil {
			writeAPIError(w, http.StatusInternalServerError, "update indexing_enabled: "+err.Error())
			return
		}
		existing.IndexingEnabled = *req.IndexingEnabled
	}

	if _, err := s.repo.UpsertContract(r.Context(), *existing); err != nil {
		writeAPIError(w, http.StatusInternalServerError, "update contract: "+err.Error())
		return
	}
	writeAPIResponse(w, http.StatusOK, existing)
}

func (s *Server) handleDeleteContract(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid contract id")
		return
	}
	if err := s.repo.SetContractIndexingEnabled(r.Context(), id, false); err != nil {
		writeAPIError(w, http.StatusInternalServerError, "disable contract: "+err.Error())
		return
	}
	writeAPIResponse(w, http.StatusOK, map[string]string{"status": "disabled"})
}
