package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/medfata/inkscore-sub000/internal/models"
)

type cardRequest struct {
	Row          string  `json:"row"`
	CardType     string  `json:"card_type"`
	Title        string  `json:"title"`
	Subtitle     string  `json:"subtitle,omitempty"`
	Color        string  `json:"color,omitempty"`
	DisplayOrder int     `json:"display_order"`
	IsActive     *bool   `json:"is_active,omitempty"`
	MetricIDs    []int64 `json:"metric_ids"`
	PlatformIDs  []int64 `json:"platform_ids"`
}

func (s *Server) handleListCards(w http.ResponseWriter, r *http.Request) {
	cards, err := s.repo.ListDashboardCards(r.Context(), false)
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, "list cards: "+err.Error())
		return
	}
	writeAPIResponse(w, http.StatusOK, map[string]interface{}{"cards": cards})
}

func (s *Server) handleCreateCard(w http.ResponseWriter, r *http.Request) {
	var req cardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	row := models.DashboardRow(req.Row)
	if row != models.Row3 && row != models.Row4 {
		writeAPIError(w, http.StatusBadRequest, "row must be 'row3' or 'row4'")
		return
	}
	cardType := models.DashboardCardType(req.CardType)
	if cardType != models.CardAggregate && cardType != models.CardSingle {
		writeAPIError(w, http.StatusBadRequest, "card_type must be 'aggregate' or 'single'")
		return
	}
	if req.Title == "" {
		writeAPIError(w, http.StatusBadRequest, "title is required")
		return
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	id, err := s.repo.UpsertDashboardCard(r.Context(), models.DashboardCard{
		Row:          row,
		CardType:     cardType,
		Title:        req.Title,
		Subtitle:     req.Subtitle,
		Color:        req.Color,
		DisplayOrder: req.DisplayOrder,
		IsActive:     isActive,
		MetricIDs:    req.MetricIDs,
		PlatformIDs:  req.PlatformIDs,
	})
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, "create card: "+err.Error())
		return
	}
	writeAPIResponse(w, http.StatusCreated, map[string]interface{}{"id": id})
}

func (s *Server) handleUpdateCard(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid card id")
		return
	}

	var req cardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	row := models.DashboardRow(req.Row)
	if row != models.Row3 && row != models.Row4 {
		writeAPIError(w, http.StatusBadRequest, "row must be 'row3' or 'row4'")
		return
	}
	cardType := models.DashboardCardType(req.CardType)
	if cardType != models.CardAggregate && cardType != models.CardSingle {
		writeAPIError(w, http.StatusBadRequest, "card_type must be 'aggregate' or 'single'")
		return
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	if _, err := s.repo.UpsertDashboardCard(r.Context(), models.DashboardCard{
		ID:           id,
		Row:          row,
		CardType:     cardType,
		Title:        req.Title,
		Subtitle:     req.Subtitle,
		Color:        req.Color,
		DisplayOrder: req.DisplayOrder,
		IsActive:     isActive,
		MetricIDs:    req.MetricIDs,
		PlatformIDs:  req.PlatformIDs,
	}); err != nil {
		writeAPIError(w, http.StatusInternalServerError, "update card: "+err.Error())
		return
	}
	writeAPIResponse(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (s *Server) handleDeleteCard(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid card id")
		return
	}
	if err := s.repo.DeleteDashboardCard(r.Context(), id); err != nil {
		writeAPIError(w, http.StatusInternalServerError, "delete card: "+err.Error())
		return
	}
	writeAPIResponse(w, http.StatusOK, map[string]string{"status": "deleted"})
}
