package brackets

import "github.com/Dosada05/tournament-engine/models"

type RoundRobinGenerator struct{}

func NewRoundRobinGenerator() Generator {
	return &RoundRobinGenerator{}
}

func (g *RoundRobinGenerator) GetName() string {
	return "RoundRobin"
}

// Generate schedules every round of the league up front.
func (g *RoundRobinGenerator) Generate(params GenerateParams) ([]*models.Session, error) {
	rounds := CircleRounds(params.Participants)
	sessions := make([]*models.Session, 0, len(params.Participants)*(len(params.Participants)-1)/2)
	for r, pairs := range rounds {
		for i, p := range pairs {
			sessions = append(sessions, newMatch(params.TournamentID, models.PhaseGroupStage, r+1, i+1, p[0], p[1]))
		}
	}
	return sessions, nil
}

// CircleRounds pairs ids with the circle method: the first id stays fixed while the
// rest rotate one position per round. Even n gives n-1 rounds, odd n gives n rounds in
// which one participant sits out. Every pair meets exactly once; home and away alternate
// for the fixed participant.
func CircleRounds(ids []int) [][][2]int {
	ring := append([]int(nil), ids...)
	if len(ring)%2 == 1 {
		ring = append(ring, 0) // 0 = пропуск тура
	}
	m := len(ring)
	if m < 2 {
		return nil
	}

	rounds := make([][][2]int, 0, m-1)
	for r := 0; r < m-1; r++ {
		pairs := make([][2]int, 0, m/2)
		for i := 0; i < m/2; i++ {
			a, b := ring[i], ring[m-1-i]
			if a == 0 || b == 0 {
				continue
			}
			if i == 0 && r%2 == 1 {
				a, b = b, a
			}
			pairs = append(pairs, [2]int{a, b})
		}
		rounds = append(rounds, pairs)

		last := ring[m-1]
		copy(ring[2:], ring[1:m-1])
		ring[1] = last
	}
	return rounds
}
