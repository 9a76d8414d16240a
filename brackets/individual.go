package brackets

import "github.com/Dosada05/tournament-engine/models"

type IndividualGenerator struct{}

func NewIndividualGenerator() Generator {
	return &IndividualGenerator{}
}

func (g *IndividualGenerator) GetName() string {
	return "IndividualRanking"
}

// Generate puts every participant into one N-way session.
func (g *IndividualGenerator) Generate(params GenerateParams) ([]*models.Session, error) {
	return []*models.Session{{
		TournamentID:   params.TournamentID,
		Phase:          models.PhaseIndividualRanking,
		Round:          1,
		Slot:           1,
		ParticipantIDs: append([]int(nil), params.Participants...),
		Status:         models.SessionScheduled,
	}}, nil
}
