package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/medfata/inkscore-sub000/internal/models"
)

// backfillRequest is the admin-submitted shape for POST /api/admin/backfill.
// FromDate/ToDate are ISO-8601 dates; FromBlock/ToBlock are a block range.
// At least one pair must be supplied. Dates are validated and stored in the
// job payload but are not converted to blocks: the backfill handler scans
// only FromBlock/ToBlock, so a job submitted with dates alone fails with
// "missing block range" when it is leased.
type backfillRequest struct {
	ContractID int64  `json:"contractId"`
	FromDate   string `json:"fromDate,omitempty"`
	ToDate     string `json:"toDate,omitempty"`
	FromBlock  uint64 `json:"fromBlock,omitempty"`
	ToBlock    uint64 `json:"toBlock,omitempty"`
}

func (s *Server) handleCreateBackfillJob(w http.ResponseWriter, r *http.Request) {
	var req backfillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	contract, err := s.repo.GetContractByID(r.Context(), req.ContractID)
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, "lookup contract: "+err.Error())
		return
	}
	if contract == nil {
		writeAPIError(w, http.StatusBadRequest, "unknown contract id")
		return
	}

	if req.FromDate != "" || req.ToDate != "" {
		from, err := time.Parse("2006-01-02", req.FromDate)
		if err != nil {
			writeAPIError(w, http.StatusBadRequest, "fromDate must be ISO-8601 (YYYY-MM-DD)")
			return
		}
		to, err := time.Parse("2006-01-02", req.ToDate)
		if err != nil {
			writeAPIError(w, http.StatusBadRequest, "toDate must be ISO-8601 (YYYY-MM-DD)")
			return
		}
		if !from.Before(to) {
			writeAPIError(w, http.StatusBadRequest, "fromDate must precede toDate")
			return
		}
	} else if req.FromBlock == 0 && req.ToBlock == 0 {
		writeAPIError(w, http.StatusBadRequest, "must supply fromDate/toDate or fromBlock/toBlock")
		return
	} else if req.FromBlock >= req.ToBlock {
		writeAPIError(w, http.StatusBadRequest, "fromBlock must precede toBlock")
		return
	}

	payload := models.BackfillPayload{
		ContractID: req.ContractID,
		FromBlock:  req.FromBlock,
		ToBlock:    req.ToBlock,
		FromDate:   req.FromDate,
		ToDate:     req.ToDate,
	}
	fingerprint := fmt.Sprintf("admin-backfill:%d:%s:%s:%d:%d", req.ContractID, req.FromDate, req.ToDate, req.FromBlock, req.ToBlock)

	exists, err := s.repo.JobExists(r.Context(), models.JobBackfill, &req.ContractID, fingerprint)
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, "check existing job: "+err.Error())
		return
	}
	if exists {
		existing, err := s.repo.FindJobByFingerprint(r.Context(), models.JobBackfill, &req.ContractID, fingerprint)
		if err == nil && existing != nil {
			w.WriteHeader(http.StatusConflict)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"error":         "duplicate backfill job",
				"existingJobId": existing.ID,
			})
			return
		}
		writeAPIError(w, http.StatusConflict, "duplicate backfill job")
		return
	}

	rawPayload, err := json.Marshal(payload)
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, "encode payload: "+err.Error())
		return
	}

	id, err := s.repo.EnqueueJob(r.Context(), models.Job{
		JobType:            models.JobBackfill,
		ContractID:         &req.ContractID,
		Priority:           5,
		Payload:            rawPayload,
		PayloadFingerprint: fingerprint,
	})
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, "enqueue job: "+err.Error())
		return
	}

	writeAPIResponse(w, http.StatusCreated, map[string]interface{}{"id": id})
}

func (s *Server) handleListBackfillJobs(w http.ResponseWriter, r *http.Request) {
	limit, _ := parseLimitOffset(r, 50, 500)

	var status *models.JobStatus
	if v := r.URL.Query().Get("status"); v != "" {
		st := models.JobStatus(v)
		status = &st
	}

	jobs, err := s.repo.ListJobs(r.Context(), status, limit)
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, "list jobs: "+err.Error())
		return
	}
	writeAPIResponse(w, http.StatusOK, map[string]interface{}{"jobs": jobs})
}

func (s *Server) handleGetBackfillJob(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid job id")
		return
	}
	job, err := s.repo.GetJob(r.Context(), id)
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, "get job: "+err.Error())
		return
	}
	if job == nil {
		writeAPIError(w, http.StatusNotFound, "job not found")
		return
	}
	writeAPIResponse(w, http.StatusOK, job)
}

func (s *Server) handleCancelBackfillJob(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid job id")
		return
	}
	if err := s.repo.CancelJob(r.Context(), id); err != nil {
		writeAPIError(w, http.StatusInternalServerError, "cancel job: "+err.Error())
		return
	}
	writeAPIResponse(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

func (s *Server) handleRetryBackfillJob(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid job id")
		return
	}
	if err := s.repo.RetryJob(r.Context(), id); err != nil {
		writeAPIError(w, http.StatusInternalServerError, "retry job: "+err.Error())
		return
	}
	writeAPIResponse(w, http.StatusOK, map[string]string{"status": "requeued"})
}
