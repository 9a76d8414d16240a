package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dosada05/tournament-engine/apperrors"
	"github.com/Dosada05/tournament-engine/models"
	"github.com/Dosada05/tournament-engine/repositories"
)

var allowedTransitions = map[models.TournamentStatus][]models.TournamentStatus{
	models.StatusDraft:              {models.StatusRegistrationOpen, models.StatusCancelled},
	models.StatusRegistrationOpen:   {models.StatusInProgress, models.StatusCancelled},
	models.StatusInProgress:         {models.StatusCompleted, models.StatusCancelled},
	models.StatusCompleted:          {models.StatusRewardsDistributed},
	models.StatusRewardsDistributed: {},
	models.StatusCancelled:          {},
}

func isValidStatusTransition(current, next models.TournamentStatus) bool {
	for _, allowedNextStatus := range allowedTransitions[current] {
		if next == allowedNextStatus {
			return true
		}
	}
	return false
}

// transition checks the move against the lifecycle table and applies it conditionally.
func transition(ctx context.Context, store Store, exec repositories.SQLExecutor, t *models.Tournament, next models.TournamentStatus) error {
	if !isValidStatusTransition(t.Status, next) {
		return fmt.Errorf("%w: %s -> %s", ErrTournamentInvalidStatusTransition, t.Status, next)
	}
	if err := store.Tournaments.UpdateStatus(ctx, exec, t.ID, t.Status, next); err != nil {
		if errors.Is(err, repositories.ErrTournamentStatusConflict) {
			return apperrors.Conflict(t.ID, apperrors.InvariantStatusForward, err)
		}
		return fmt.Errorf("failed to move tournament %d to %s: %w", t.ID, next, err)
	}
	t.Status = next
	return nil
}

// loadTournament reads the tournament together with its seeded participant list.
func loadTournament(ctx context.Context, store Store, exec repositories.SQLExecutor, id int, forUpdate bool) (*models.Tournament, error) {
	var (
		t   *models.Tournament
		err error
	)
	if forUpdate {
		t, err = store.Tournaments.GetForUpdate(ctx, exec, id)
	} else {
		t, err = store.Tournaments.GetByID(ctx, exec, id)
	}
	if err != nil {
		return nil, handleRepositoryError(err, id)
	}

	participants, err := store.Participants.ListByTournament(ctx, exec, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants of tournament %d: %w", id, err)
	}
	t.Participants = make([]int, len(participants))
	for i, p := range participants {
		t.Participants[i] = p.ParticipantID
	}
	return t, nil
}

// handleRepositoryError - общий хелпер для ошибок репозитория
func handleRepositoryError(err error, id int) error {
	switch {
	case errors.Is(err, repositories.ErrTournamentNotFound):
		return fmt.Errorf("%w: id %d", ErrTournamentNotFound, id)
	case errors.Is(err, repositories.ErrSessionNotFound):
		return fmt.Errorf("%w: id %d", ErrSessionNotFound, id)
	case errors.Is(err, repositories.ErrParticipantAlreadyEnrolled):
		return ErrRegistrationConflict
	}
	return err
}
