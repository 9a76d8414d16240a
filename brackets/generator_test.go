package brackets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/tournament-engine/apperrors"
	"github.com/Dosada05/tournament-engine/gameconfig"
	"github.com/Dosada05/tournament-engine/models"
)

func seeds(n int) []int {
	ids := make([]int, n)
	for i := range ids {
		ids[i] = 100 + i
	}
	return ids
}

func TestRoundRobinCompleteness(t *testing.T) {
	cfg := gameconfig.DefaultGameConfig(models.FormatLeague)
	for n := 2; n <= 13; n++ {
		ids := seeds(n)
		sessions, err := Generate(1, ids, models.FormatLeague, cfg)
		require.NoError(t, err)

		met := map[[2]int]int{}
		perRound := map[int]map[int]bool{}
		for _, s := range sessions {
			require.Len(t, s.ParticipantIDs, 2)
			met[PairKey(s.ParticipantIDs[0], s.ParticipantIDs[1])]++
			if perRound[s.Round] == nil {
				perRound[s.Round] = map[int]bool{}
			}
			for _, id := range s.ParticipantIDs {
				assert.False(t, perRound[s.Round][id], "n=%d: participant %d plays twice in round %d", n, id, s.Round)
				perRound[s.Round][id] = true
			}
		}

		assert.Len(t, met, n*(n-1)/2, "n=%d", n)
		for pair, count := range met {
			assert.Equal(t, 1, count, "n=%d: pair %v", n, pair)
		}
		wantRounds := n - 1
		if n%2 == 1 {
			wantRounds = n
		}
		assert.Len(t, perRound, wantRounds, "n=%d", n)
	}
}

func TestRoundRobinOddCountSitsOutOncePerParticipant(t *testing.T) {
	ids := seeds(5)
	rounds := CircleRounds(ids)
	require.Len(t, rounds, 5)

	sitOut := map[int]int{}
	prev := 0
	for _, pairs := range rounds {
		playing := map[int]bool{}
		for _, p := range pairs {
			playing[p[0]], playing[p[1]] = true, true
		}
		for _, id := range ids {
			if !playing[id] {
				sitOut[id]++
				assert.NotEqual(t, prev, id, "same participant sits out twice in a row")
				prev = id
			}
		}
	}
	for _, id := range ids {
		assert.Equal(t, 1, sitOut[id])
	}
}

func TestSeedOrder(t *testing.T) {
	assert.Equal(t, []int{1, 2}, SeedOrder(2))
	assert.Equal(t, []int{1, 4, 2, 3}, SeedOrder(4))
	assert.Equal(t, []int{1, 8, 4, 5, 2, 7, 3, 6}, SeedOrder(8))
}

func TestKnockoutFirstRound(t *testing.T) {
	tests := []struct {
		name      string
		n         int
		wantMatch int
		wantBye   int
		verify    func(t *testing.T, sessions []*models.Session)
	}{
		{
			name:      "two participants play only the final",
			n:         2,
			wantMatch: 1,
			verify: func(t *testing.T, sessions []*models.Session) {
				assert.Equal(t, []int{100, 101}, sessions[0].ParticipantIDs)
			},
		},
		{
			name:      "four participants seed 1 meets seed 4",
			n:         4,
			wantMatch: 2,
			verify: func(t *testing.T, sessions []*models.Session) {
				assert.Equal(t, []int{100, 103}, sessions[0].ParticipantIDs)
				assert.Equal(t, []int{101, 102}, sessions[1].ParticipantIDs)
			},
		},
		{
			name:      "five participants give three walkovers to the top seeds",
			n:         5,
			wantMatch: 1,
			wantBye:   3,
			verify: func(t *testing.T, sessions []*models.Session) {
				for _, s := range sessions {
					if s.Bye {
						assert.True(t, s.IsComplete())
						assert.Equal(t, s.ParticipantIDs[0], *s.Result.WinnerID)
						assert.Less(t, s.ParticipantIDs[0], 103)
					}
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sessions, err := KnockoutFirstRound(9, seeds(tt.n))
			require.NoError(t, err)
			matches, byes := 0, 0
			for i, s := range sessions {
				assert.Equal(t, models.PhaseKnockout, s.Phase)
				assert.Equal(t, 1, s.Round)
				assert.Equal(t, i+1, s.Slot)
				if s.Bye {
					byes++
				} else {
					matches++
				}
			}
			assert.Equal(t, tt.wantMatch, matches)
			assert.Equal(t, tt.wantBye, byes)
			tt.verify(t, sessions)
		})
	}
}

// Playing the bracket to the end always produces N_padded-1 decisive sessions,
// walkovers included, plus the bronze match when both semifinals were played.
func TestKnockoutBracketConservation(t *testing.T) {
	for n := 2; n <= 33; n++ {
		for _, bronze := range []bool{false, true} {
			round, err := KnockoutFirstRound(1, seeds(n))
			require.NoError(t, err)

			total, bronzeCount := 0, 0
			for r := 1; ; r++ {
				var winners, losers []int
				semisPlayed := true
				for _, s := range round {
					total++
					if s.Bronze {
						bronzeCount++
						continue
					}
					if s.Bye {
						winners = append(winners, s.ParticipantIDs[0])
						semisPlayed = false
						continue
					}
					// the first listed participant always wins here
					winners = append(winners, s.ParticipantIDs[0])
					losers = append(losers, s.ParticipantIDs[1])
				}
				if len(winners) == 1 {
					break
				}
				if !semisPlayed {
					losers = nil
				}
				round = NextKnockoutRound(1, r+1, winners, losers, bronze)
			}

			size := NextPowerOfTwo(n)
			assert.Equal(t, size-1, total-bronzeCount, "n=%d", n)
			if bronze && n >= 4 {
				assert.Equal(t, 1, bronzeCount, "n=%d", n)
			}
			if n < 4 {
				assert.Zero(t, bronzeCount, "n=%d", n)
			}
		}
	}
}

func TestNextKnockoutRoundKeepsBracketOrder(t *testing.T) {
	sessions := NextKnockoutRound(3, 2, []int{1, 4, 2, 3}, nil, true)
	require.Len(t, sessions, 2)
	assert.Equal(t, []int{1, 4}, sessions[0].ParticipantIDs)
	assert.Equal(t, []int{2, 3}, sessions[1].ParticipantIDs)
	assert.False(t, sessions[1].Bronze, "bronze is only added to the final round")

	final := NextKnockoutRound(3, 3, []int{1, 2}, []int{4, 3}, true)
	require.Len(t, final, 2)
	assert.Equal(t, 1, final[0].Slot)
	assert.True(t, final[1].Bronze)
	assert.Equal(t, 2, final[1].Slot)
	assert.Equal(t, []int{4, 3}, final[1].ParticipantIDs)
}

func TestSwissFirstRound(t *testing.T) {
	cfg := gameconfig.DefaultGameConfig(models.FormatSwiss)
	sessions, err := Generate(2, seeds(7), models.FormatSwiss, cfg)
	require.NoError(t, err)
	require.Len(t, sessions, 4)

	assert.Equal(t, []int{100, 103}, sessions[0].ParticipantIDs)
	assert.Equal(t, []int{101, 104}, sessions[1].ParticipantIDs)
	assert.Equal(t, []int{102, 105}, sessions[2].ParticipantIDs)
	assert.True(t, sessions[3].Bye)
	assert.Equal(t, []int{106}, sessions[3].ParticipantIDs)
	assert.Equal(t, 4, sessions[3].Slot)
}

func TestPairSwissRoundAvoidsRematches(t *testing.T) {
	st := SwissState{
		Standing: []int{1, 2, 3, 4},
		Played:   map[[2]int]bool{PairKey(1, 2): true, PairKey(3, 4): true},
	}
	sessions := PairSwissRound(1, 2, st)
	require.Len(t, sessions, 2)
	assert.Equal(t, []int{1, 3}, sessions[0].ParticipantIDs)
	assert.Equal(t, []int{2, 4}, sessions[1].ParticipantIDs)
}

func TestPairSwissRoundFallsBackWhenEveryoneMet(t *testing.T) {
	st := SwissState{
		Standing: []int{1, 2, 3, 4},
		Played: map[[2]int]bool{
			PairKey(1, 2): true, PairKey(1, 3): true, PairKey(1, 4): true,
			PairKey(2, 3): true, PairKey(2, 4): true, PairKey(3, 4): true,
		},
	}
	sessions := PairSwissRound(1, 4, st)
	require.Len(t, sessions, 2)
	assert.Equal(t, []int{1, 2}, sessions[0].ParticipantIDs)
	assert.Equal(t, []int{3, 4}, sessions[1].ParticipantIDs)
}

func TestPairSwissRoundByeRotation(t *testing.T) {
	st := SwissState{
		Standing: []int{1, 2, 3, 4, 5},
		Played:   map[[2]int]bool{},
		Byes:     map[int]int{5: 1},
		LastBye:  5,
	}
	sessions := PairSwissRound(1, 2, st)
	require.Len(t, sessions, 3)
	last := sessions[2]
	assert.True(t, last.Bye)
	assert.Equal(t, []int{4}, last.ParticipantIDs, "lowest placed participant without a bye sits out")
}

func TestSplitGroupsSnake(t *testing.T) {
	groups := SplitGroups([]int{1, 2, 3, 4, 5, 6, 7, 8}, 2)
	assert.Equal(t, [][]int{{1, 4, 5, 8}, {2, 3, 6, 7}}, groups)

	uneven := SplitGroups([]int{1, 2, 3, 4, 5, 6, 7}, 3)
	assert.Equal(t, [][]int{{1, 6, 7}, {2, 5}, {3, 4}}, uneven)
}

func TestKnockoutSeedsInterleaveGroups(t *testing.T) {
	assert.Equal(t, []int{11, 21, 12, 22}, KnockoutSeeds([][]int{{11, 12}, {21, 22}}))
}

func TestGroupKnockoutFirstStage(t *testing.T) {
	cfg := gameconfig.DefaultGameConfig(models.FormatGroupKnockout)
	sessions, err := Generate(4, seeds(8), models.FormatGroupKnockout, cfg)
	require.NoError(t, err)
	require.Len(t, sessions, 12, "two groups of four play six matches each")

	slots := map[[2]int]bool{}
	for _, s := range sessions {
		assert.Equal(t, models.PhaseGroupStage, s.Phase)
		assert.Contains(t, []int{1, 2}, s.GroupNo)
		key := [2]int{s.Round, s.Slot}
		assert.False(t, slots[key], "slot %v used twice", key)
		slots[key] = true
	}
}

func TestGenerateNamesGeneratorInError(t *testing.T) {
	cfg := gameconfig.DefaultGameConfig(models.FormatGroupKnockout)
	cfg.GroupCount = 4

	_, err := Generate(9, seeds(6), models.FormatGroupKnockout, cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.Equal(t, apperrors.InvariantGroupSettings, apperrors.InvariantOf(err))
	assert.Contains(t, err.Error(), "tournament 9")
	assert.Contains(t, err.Error(), "GroupKnockout: 6 participants cannot form 4 groups")
}

func TestGenerateEdgeCases(t *testing.T) {
	cfg := gameconfig.DefaultGameConfig(models.FormatKnockout)

	sessions, err := Generate(1, []int{7}, models.FormatKnockout, cfg)
	require.NoError(t, err)
	assert.Empty(t, sessions)

	_, err = Generate(1, nil, models.FormatKnockout, cfg)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = Generate(1, []int{1, 2, 1}, models.FormatKnockout, cfg)
	assert.Equal(t, apperrors.InvariantParticipantsUnique, apperrors.InvariantOf(err))

	_, err = Generate(1, []int{1, 2}, models.Format("LADDER"), cfg)
	assert.Equal(t, apperrors.InvariantFormatKnown, apperrors.InvariantOf(err))

	individual, err := Generate(1, []int{3, 1, 2}, models.FormatIndividualRanking, cfg)
	require.NoError(t, err)
	require.Len(t, individual, 1)
	assert.Equal(t, []int{3, 1, 2}, individual[0].ParticipantIDs)
	assert.Equal(t, models.PhaseIndividualRanking, individual[0].Phase)
}
