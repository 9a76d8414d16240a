// Package brackets builds the sessions of a tournament: the first round of every
// format and the knockout and swiss rounds that progression derives from results.
package brackets

import (
	"fmt"

	"github.com/Dosada05/tournament-engine/apperrors"
	"github.com/Dosada05/tournament-engine/gameconfig"
	"github.com/Dosada05/tournament-engine/models"
)

type GenerateParams struct {
	TournamentID int
	Participants []int // в порядке посева
	Config       gameconfig.GameConfig
}

// Generator produces the initial sessions of one tournament format. Implementations are pure.
type Generator interface {
	Generate(params GenerateParams) ([]*models.Session, error)

	GetName() string
}

func ForFormat(format models.Format) (Generator, error) {
	switch format {
	case models.FormatLeague:
		return NewRoundRobinGenerator(), nil
	case models.FormatKnockout:
		return NewSingleEliminationGenerator(), nil
	case models.FormatSwiss:
		return NewSwissGenerator(), nil
	case models.FormatGroupKnockout:
		return NewGroupKnockoutGenerator(), nil
	case models.FormatIndividualRanking:
		return NewIndividualGenerator(), nil
	}
	return nil, apperrors.Validation(0, 0, apperrors.InvariantFormatKnown, "no generator for format %q", string(format))
}

// Generate returns the round 1 sessions for the given format. A single participant
// gets no sessions at all.
func Generate(tournamentID int, participants []int, format models.Format, cfg gameconfig.GameConfig) ([]*models.Session, error) {
	gen, err := ForFormat(format)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrValidation, tournamentID, 0, "", err)
	}
	if err := validateParticipants(participants); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrValidation, tournamentID, 0, "", err)
	}
	if len(participants) == 1 {
		return []*models.Session{}, nil
	}
	sessions, err := gen.Generate(GenerateParams{TournamentID: tournamentID, Participants: participants, Config: cfg})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrValidation, tournamentID, 0, "", fmt.Errorf("%s: %w", gen.GetName(), err))
	}
	return sessions, nil
}

func validateParticipants(ids []int) error {
	if len(ids) == 0 {
		return apperrors.Validation(0, 0, apperrors.InvariantParticipantsUnique, "no participants enrolled")
	}
	seen := make(map[int]bool, len(ids))
	for _, id := range ids {
		if id <= 0 {
			return apperrors.Validation(0, 0, apperrors.InvariantParticipantsUnique, "participant id %d must be positive", id)
		}
		if seen[id] {
			return apperrors.Validation(0, 0, apperrors.InvariantParticipantsUnique, "participant %d is listed twice", id)
		}
		seen[id] = true
	}
	return nil
}

func newMatch(tournamentID int, phase models.Phase, round, slot int, a, b int) *models.Session {
	return &models.Session{
		TournamentID:   tournamentID,
		Phase:          phase,
		Round:          round,
		Slot:           slot,
		ParticipantIDs: []int{a, b},
		Status:         models.SessionScheduled,
	}
}
