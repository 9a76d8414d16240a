package handlers

import (
	"net/http"

	"github.com/Dosada05/tournament-engine/services"
)

type RankingHandler struct {
	standingsService services.StandingsService
}

func NewRankingHandler(ss services.StandingsService) *RankingHandler {
	return &RankingHandler{standingsService: ss}
}

// GetHandler обрабатывает GET /tournaments/{tournamentID}/ranking
func (h *RankingHandler) GetHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	ranking, err := h.standingsService.GetRanking(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"ranking": ranking}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// RecomputeHandler обрабатывает POST /tournaments/{tournamentID}/ranking/recompute
func (h *RankingHandler) RecomputeHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	ranking, err := h.standingsService.Recompute(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"ranking": ranking}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
