package brackets

import "github.com/Dosada05/tournament-engine/models"

type GroupKnockoutGenerator struct{}

func NewGroupKnockoutGenerator() Generator {
	return &GroupKnockoutGenerator{}
}

func (g *GroupKnockoutGenerator) GetName() string {
	return "GroupKnockout"
}

// Generate creates every group stage round. The knockout bracket is built by
// progression once the groups are decided.
func (g *GroupKnockoutGenerator) Generate(params GenerateParams) ([]*models.Session, error) {
	n := len(params.Participants)
	if err := params.Config.ValidateGroups(n); err != nil {
		return nil, err
	}
	groups := SplitGroups(params.Participants, params.Config.Groups(n))

	// Слоты нумеруются сквозь все группы, чтобы (фаза, тур, слот) были уникальны.
	slots := map[int]int{}
	var sessions []*models.Session
	for gi, members := range groups {
		for r, pairs := range CircleRounds(members) {
			for _, p := range pairs {
				slots[r+1]++
				s := newMatch(params.TournamentID, models.PhaseGroupStage, r+1, slots[r+1], p[0], p[1])
				s.GroupNo = gi + 1
				sessions = append(sessions, s)
			}
		}
	}
	return sessions, nil
}

// SplitGroups distributes seeds over count groups in snake order (1..G, G..1, ...),
// so group sizes differ by at most one and strengths stay balanced.
func SplitGroups(seeds []int, count int) [][]int {
	groups := make([][]int, count)
	for i, id := range seeds {
		lap, pos := i/count, i%count
		if lap%2 == 1 {
			pos = count - 1 - pos
		}
		groups[pos] = append(groups[pos], id)
	}
	return groups
}

// KnockoutSeeds orders group qualifiers for the bracket: all group winners in group
// order, then all runners-up, and so on. With standard seeding this keeps teams from
// the same group apart in the first knockout round.
func KnockoutSeeds(qualifiers [][]int) []int {
	var seeds []int
	for place := 0; ; place++ {
		added := false
		for _, q := range qualifiers {
			if place < len(q) {
				seeds = append(seeds, q[place])
				added = true
			}
		}
		if !added {
			return seeds
		}
	}
}
