package brackets

import "github.com/Dosada05/tournament-engine/models"

// swissSearchBudget bounds the rematch-avoiding search before falling back to
// adjacent pairing.
const swissSearchBudget = 200_000

type SwissGenerator struct{}

func NewSwissGenerator() Generator {
	return &SwissGenerator{}
}

func (g *SwissGenerator) GetName() string {
	return "Swiss"
}

// Generate pairs the top half of the seeds against the bottom half. With an odd count
// the lowest seed receives the bye.
func (g *SwissGenerator) Generate(params GenerateParams) ([]*models.Session, error) {
	ids := params.Participants
	bye := 0
	if len(ids)%2 == 1 {
		bye = ids[len(ids)-1]
		ids = ids[:len(ids)-1]
	}
	half := len(ids) / 2
	sessions := make([]*models.Session, 0, half+1)
	for i := 0; i < half; i++ {
		sessions = append(sessions, newMatch(params.TournamentID, models.PhaseGroupStage, 1, i+1, ids[i], ids[i+half]))
	}
	if bye != 0 {
		sessions = append(sessions, models.NewWalkover(params.TournamentID, models.PhaseGroupStage, 1, half+1, bye))
	}
	return sessions, nil
}

// SwissState is what the next swiss round is paired from.
type SwissState struct {
	Standing []int           // участники от лидера к последнему
	Played   map[[2]int]bool // pairs that already met, keyed by PairKey
	Byes     map[int]int     // byes received so far
	LastBye  int             // participant that sat out the previous round, 0 if none
}

func PairKey(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}

// PairSwissRound builds the sessions of a later swiss round. The bye goes to the lowest
// placed participant among those with the fewest byes, skipping whoever sat out the
// previous round when someone else is available. The rest are paired top-down with the
// nearest opponent they have not met; if no rematch-free pairing exists the round falls
// back to pairing neighbours in the standing.
func PairSwissRound(tournamentID, round int, st SwissState) []*models.Session {
	order := append([]int(nil), st.Standing...)
	bye := 0
	if len(order)%2 == 1 {
		idx := pickSwissBye(order, st)
		bye = order[idx]
		order = append(order[:idx], order[idx+1:]...)
	}

	budget := swissSearchBudget
	pairs, ok := pairWithoutRematch(order, st.Played, &budget)
	if !ok {
		pairs = make([][2]int, 0, len(order)/2)
		for i := 0; i+1 < len(order); i += 2 {
			pairs = append(pairs, [2]int{order[i], order[i+1]})
		}
	}

	sessions := make([]*models.Session, 0, len(pairs)+1)
	for i, p := range pairs {
		sessions = append(sessions, newMatch(tournamentID, models.PhaseGroupStage, round, i+1, p[0], p[1]))
	}
	if bye != 0 {
		sessions = append(sessions, models.NewWalkover(tournamentID, models.PhaseGroupStage, round, len(pairs)+1, bye))
	}
	return sessions
}

func pickSwissBye(order []int, st SwissState) int {
	best := -1
	for i := len(order) - 1; i >= 0; i-- {
		id := order[i]
		if id == st.LastBye && len(order) > 1 {
			continue
		}
		if best == -1 || st.Byes[id] < st.Byes[order[best]] {
			best = i
		}
	}
	if best == -1 {
		best = len(order) - 1
	}
	return best
}

func pairWithoutRematch(order []int, played map[[2]int]bool, budget *int) ([][2]int, bool) {
	if len(order) == 0 {
		return [][2]int{}, true
	}
	*budget--
	if *budget < 0 {
		return nil, false
	}
	first := order[0]
	for j := 1; j < len(order); j++ {
		opp := order[j]
		if played[PairKey(first, opp)] {
			continue
		}
		rest := make([]int, 0, len(order)-2)
		rest = append(rest, order[1:j]...)
		rest = append(rest, order[j+1:]...)
		if tail, ok := pairWithoutRematch(rest, played, budget); ok {
			return append([][2]int{{first, opp}}, tail...), true
		}
		if *budget < 0 {
			return nil, false
		}
	}
	return nil, false
}
