package handlers

import (
	"net/http"

	"github.com/Dosada05/tournament-engine/services"
)

type RewardHandler struct {
	rewardService services.RewardService
}

func NewRewardHandler(rs services.RewardService) *RewardHandler {
	return &RewardHandler{rewardService: rs}
}

// DistributeHandler обрабатывает POST /tournaments/{tournamentID}/rewards
// 201 при первой выдаче, 200 если награды уже были выданы.
func (h *RewardHandler) DistributeHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	dist, err := h.rewardService.Distribute(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	status := http.StatusCreated
	if dist.AlreadyDistributed {
		status = http.StatusOK
	}
	if err := writeJSON(w, status, jsonResponse{"distribution": dist}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetHandler обрабатывает GET /tournaments/{tournamentID}/rewards
func (h *RewardHandler) GetHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	dist, err := h.rewardService.Get(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"distribution": dist}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
