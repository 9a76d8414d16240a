package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/Dosada05/tournament-engine/models"
	"github.com/Dosada05/tournament-engine/repositories"
	"github.com/Dosada05/tournament-engine/services"
)

type TournamentHandler struct {
	tournamentService services.TournamentService
}

func NewTournamentHandler(ts services.TournamentService) *TournamentHandler {
	return &TournamentHandler{tournamentService: ts}
}

// CreateHandler обрабатывает POST /tournaments
func (h *TournamentHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	var input services.CreateTournamentInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.Create(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetByIDHandler обрабатывает GET /tournaments/{tournamentID}
func (h *TournamentHandler) GetByIDHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.Get(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListHandler обрабатывает GET /tournaments?status=&format=&limit=&offset=
func (h *TournamentHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	var filter repositories.ListTournamentsFilter
	query := r.URL.Query()

	if s := query.Get("status"); s != "" {
		status := models.TournamentStatus(s)
		if !status.Valid() {
			badRequestResponse(w, r, errors.New("invalid status query parameter"))
			return
		}
		filter.Status = &status
	}
	if f := query.Get("format"); f != "" {
		format, err := models.ParseFormat(f)
		if err != nil {
			badRequestResponse(w, r, err)
			return
		}
		filter.Format = &format
	}
	if l := query.Get("limit"); l != "" {
		limit, err := strconv.Atoi(l)
		if err != nil || limit < 0 {
			badRequestResponse(w, r, errors.New("invalid limit query parameter"))
			return
		}
		filter.Limit = limit
	}
	if o := query.Get("offset"); o != "" {
		offset, err := strconv.Atoi(o)
		if err != nil || offset < 0 {
			badRequestResponse(w, r, errors.New("invalid offset query parameter"))
			return
		}
		filter.Offset = offset
	}

	tournaments, err := h.tournamentService.List(r.Context(), filter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournaments": tournaments}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// OpenRegistrationHandler обрабатывает POST /tournaments/{tournamentID}/open
func (h *TournamentHandler) OpenRegistrationHandler(w http.ResponseWriter, r *http.Request) {
	h.changeStatus(w, r, h.tournamentService.OpenRegistration)
}

// CancelHandler обрабатывает POST /tournaments/{tournamentID}/cancel
func (h *TournamentHandler) CancelHandler(w http.ResponseWriter, r *http.Request) {
	h.changeStatus(w, r, h.tournamentService.Cancel)
}

func (h *TournamentHandler) changeStatus(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, id int) (*models.Tournament, error)) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := apply(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type enrollRequest struct {
	ParticipantID int `json:"participant_id"`
}

// EnrollHandler обрабатывает POST /tournaments/{tournamentID}/participants
func (h *TournamentHandler) EnrollHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input enrollRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	participant, err := h.tournamentService.Enroll(r.Context(), id, input.ParticipantID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"participant": participant}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// StartHandler обрабатывает POST /tournaments/{tournamentID}/start
// Повторный вызов возвращает уже созданный первый раунд.
func (h *TournamentHandler) StartHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	sessions, err := h.tournamentService.GenerateInitialRound(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"sessions": sessions}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListSessionsHandler обрабатывает GET /tournaments/{tournamentID}/sessions
func (h *TournamentHandler) ListSessionsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	sessions, err := h.tournamentService.ListSessions(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"sessions": sessions}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
