package handlers

import (
	"net/http"

	"github.com/Dosada05/tournament-engine/models"
	"github.com/Dosada05/tournament-engine/services"
)

type SessionHandler struct {
	progressionService services.ProgressionService
}

func NewSessionHandler(ps services.ProgressionService) *SessionHandler {
	return &SessionHandler{progressionService: ps}
}

// SubmitResultHandler обрабатывает POST /sessions/{sessionID}/result
// Ответ описывает, что произошло с турниром после записи результата.
func (h *SessionHandler) SubmitResultHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "sessionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var result models.Result
	if err := readJSON(w, r, &result); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	outcome, err := h.progressionService.SubmitResult(r.Context(), id, &result)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"outcome": outcome}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
