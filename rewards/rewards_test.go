package rewards

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/tournament-engine/apperrors"
	"github.com/Dosada05/tournament-engine/gameconfig"
	"github.com/Dosada05/tournament-engine/models"
)

func TestSplitSkillPointsProportional(t *testing.T) {
	weights := []gameconfig.SkillWeight{
		{Skill: "aim", Weight: 3.0, Enabled: true},
		{Skill: "positioning", Weight: 2.0, Enabled: true},
		{Skill: "economy", Weight: 1.5, Enabled: false},
	}

	got := SplitSkillPoints(10, weights)

	want := models.SkillPoints{"aim": 6.0, "positioning": 4.0}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected split (-want +got):\n%s", diff)
	}
	_, present := got["economy"]
	assert.False(t, present, "disabled skills never appear")
}

func TestSplitSkillPointsRounding(t *testing.T) {
	weights := []gameconfig.SkillWeight{
		{Skill: "a", Weight: 1, Enabled: true},
		{Skill: "b", Weight: 1, Enabled: true},
		{Skill: "c", Weight: 1, Enabled: true},
	}
	got := SplitSkillPoints(10, weights)
	assert.Equal(t, models.SkillPoints{"a": 3.3, "b": 3.3, "c": 3.3}, got)

	assert.Empty(t, SplitSkillPoints(0, weights))
	assert.Empty(t, SplitSkillPoints(5, []gameconfig.SkillWeight{{Skill: "a", Weight: 2}}))
}

func TestXP(t *testing.T) {
	assert.Equal(t, 300, XP(100, 3))
	assert.Equal(t, 150, XP(100, 1.5))
	assert.Equal(t, 113, XP(75, 1.5)) // 112.5 rounds up
}

func TestPlacementBadges(t *testing.T) {
	tests := []struct {
		rank, winners int
		want          []models.BadgeType
	}{
		{1, 3, []models.BadgeType{models.BadgeChampion}},
		{2, 3, []models.BadgeType{models.BadgeRunnerUp}},
		{3, 3, []models.BadgeType{models.BadgeThirdPlace}},
		{4, 8, []models.BadgeType{models.BadgeFinalist}},
		{2, 1, nil},
		{9, 8, nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PlacementBadges(tt.rank, tt.winners), "rank %d of %d winners", tt.rank, tt.winners)
	}
}

func TestPlanSnapshotsPlacement(t *testing.T) {
	awardedAt := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	cfg := gameconfig.DefaultRewardConfig()
	cfg.Tiers[0].Badges = []models.BadgeType{"GOLDEN_BOOT", models.BadgeChampion}

	awards, err := Plan(Input{
		Tournament: &models.Tournament{ID: 12, WinnerCount: 2},
		Ranking: []*models.RankingEntry{
			{TournamentID: 12, ParticipantID: 30, Rank: 1},
			{TournamentID: 12, ParticipantID: 10, Rank: 2},
			{TournamentID: 12, ParticipantID: 20, Rank: 3},
		},
		Config:    cfg,
		AwardedAt: awardedAt,
	})
	require.NoError(t, err)
	require.Len(t, awards, 3)

	champ := awards[0]
	assert.Equal(t, 30, champ.Reward.ParticipantID)
	assert.Equal(t, 1, champ.Reward.Placement)
	assert.Equal(t, 300, champ.Reward.XPAwarded)
	assert.Equal(t, 500, champ.Reward.CreditsAwarded)
	assert.Equal(t, models.SkillPoints{"tactics": 5, "consistency": 5}, champ.Reward.SkillPoints)

	var types []models.BadgeType
	for _, b := range champ.Badges {
		types = append(types, b.Type)
		assert.Equal(t, models.BadgeMetadata{TournamentID: 12, Placement: 1, TotalParticipants: 3, AwardedAt: awardedAt}, b.Metadata)
	}
	assert.Equal(t, []models.BadgeType{models.BadgeChampion, models.BadgeParticipant, "GOLDEN_BOOT"}, types)

	third := awards[2]
	require.Len(t, third.Badges, 1, "winner_count 2 leaves third place with the participant badge only")
	assert.Equal(t, models.BadgeParticipant, third.Badges[0].Type)
	assert.Equal(t, 3, third.Badges[0].Metadata.Placement)
}

func TestPlanRejectsBrokenRanking(t *testing.T) {
	tests := []struct {
		name    string
		ranking []*models.RankingEntry
	}{
		{"empty", nil},
		{"shared rank", []*models.RankingEntry{{ParticipantID: 1, Rank: 1}, {ParticipantID: 2, Rank: 1}}},
		{"gap", []*models.RankingEntry{{ParticipantID: 1, Rank: 1}, {ParticipantID: 2, Rank: 3}}},
		{"duplicate participant", []*models.RankingEntry{{ParticipantID: 1, Rank: 1}, {ParticipantID: 1, Rank: 2}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Plan(Input{Tournament: &models.Tournament{ID: 4, WinnerCount: 1}, Ranking: tt.ranking, Config: gameconfig.DefaultRewardConfig()})
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrDataIntegrity)
			assert.Equal(t, apperrors.InvariantRankingTotal, apperrors.InvariantOf(err))
		})
	}
}
