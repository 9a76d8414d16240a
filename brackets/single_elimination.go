package brackets

import (
	"github.com/Dosada05/tournament-engine/apperrors"
	"github.com/Dosada05/tournament-engine/models"
)

type SingleEliminationGenerator struct{}

func NewSingleEliminationGenerator() Generator {
	return &SingleEliminationGenerator{}
}

func (g *SingleEliminationGenerator) GetName() string {
	return "SingleElimination"
}

func (g *SingleEliminationGenerator) Generate(params GenerateParams) ([]*models.Session, error) {
	return KnockoutFirstRound(params.TournamentID, params.Participants)
}

// KnockoutFirstRound seeds ids (best first) into a bracket padded to the next power of
// two. Seed 1 meets the lowest seed, and the top two seeds can only meet in the final.
// A participant drawn against a padding slot gets a walkover session.
func KnockoutFirstRound(tournamentID int, seeds []int) ([]*models.Session, error) {
	n := len(seeds)
	if n < 2 {
		return nil, apperrors.Validation(tournamentID, 0, apperrors.InvariantParticipantsUnique, "knockout needs at least 2 participants, got %d", n)
	}

	size := NextPowerOfTwo(n)
	order := SeedOrder(size)
	sessions := make([]*models.Session, 0, size/2)
	for slot := 1; slot <= size/2; slot++ {
		a, b := order[2*slot-2], order[2*slot-1]
		switch {
		case a <= n && b <= n:
			sessions = append(sessions, newMatch(tournamentID, models.PhaseKnockout, 1, slot, seeds[a-1], seeds[b-1]))
		case a <= n:
			sessions = append(sessions, models.NewWalkover(tournamentID, models.PhaseKnockout, 1, slot, seeds[a-1]))
		case b <= n:
			sessions = append(sessions, models.NewWalkover(tournamentID, models.PhaseKnockout, 1, slot, seeds[b-1]))
		}
	}
	return sessions, nil
}

// SeedOrder returns the bracket positions of seeds 1..size so that adjacent pairs form
// the first round: for size 8 it is 1 8 4 5 2 7 3 6.
func SeedOrder(size int) []int {
	order := []int{1}
	for len(order) < size {
		next := make([]int, 0, len(order)*2)
		total := len(order)*2 + 1
		for _, s := range order {
			next = append(next, s, total-s)
		}
		order = next
	}
	return order
}

func NextPowerOfTwo(n int) int {
	size := 1
	for size < n {
		size <<= 1
	}
	return size
}

// NextKnockoutRound pairs the winners of a finished round in bracket order: the winner of
// slot 2k-1 meets the winner of slot 2k. When the new round is the final and bronze is
// set, the two losers of the finished round play for third place in slot 2.
func NextKnockoutRound(tournamentID, round int, winners []int, losers []int, bronze bool) []*models.Session {
	sessions := make([]*models.Session, 0, len(winners)/2+1)
	for i := 0; i+1 < len(winners); i += 2 {
		sessions = append(sessions, newMatch(tournamentID, models.PhaseKnockout, round, i/2+1, winners[i], winners[i+1]))
	}
	if bronze && len(winners) == 2 && len(losers) == 2 {
		m := newMatch(tournamentID, models.PhaseKnockout, round, 2, losers[0], losers[1])
		m.Bronze = true
		sessions = append(sessions, m)
	}
	return sessions
}
