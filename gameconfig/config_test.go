package gameconfig

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/tournament-engine/apperrors"
	"github.com/Dosada05/tournament-engine/models"
)

func TestParseGameConfig(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		format    models.Format
		invariant string
		verify    func(t *testing.T, cfg GameConfig)
	}{
		{
			name:   "empty document gives defaults",
			raw:    "",
			format: models.FormatLeague,
			verify: func(t *testing.T, cfg GameConfig) {
				assert.Equal(t, PointsScheme{Win: 3, Draw: 1, Loss: 0}, cfg.Points)
				assert.Equal(t, ScoreDescending, cfg.ScoreOrder)
			},
		},
		{
			name:   "knockout defaults have no draws",
			raw:    "null",
			format: models.FormatKnockout,
			verify: func(t *testing.T, cfg GameConfig) {
				assert.Zero(t, cfg.Probabilities.Draw)
			},
		},
		{
			name:   "partial document keeps defaults for missing sections",
			raw:    `{"version":1,"seed":42,"bronze_match":true}`,
			format: models.FormatKnockout,
			verify: func(t *testing.T, cfg GameConfig) {
				require.NotNil(t, cfg.Seed)
				assert.EqualValues(t, 42, *cfg.Seed)
				assert.True(t, cfg.BronzeMatch)
				assert.Equal(t, 5, cfg.MaxGoals)
			},
		},
		{
			name:      "probabilities off by more than tolerance",
			raw:       `{"version":1,"probabilities":{"home":0.5,"draw":0.2,"away":0.2}}`,
			format:    models.FormatLeague,
			invariant: apperrors.InvariantProbabilitySum,
		},
		{
			name:   "probabilities within tolerance",
			raw:    `{"version":1,"probabilities":{"home":0.3333333,"draw":0.3333333,"away":0.3333334}}`,
			format: models.FormatLeague,
		},
		{
			name:      "negative probability",
			raw:       `{"version":1,"probabilities":{"home":1.2,"draw":0,"away":-0.2}}`,
			format:    models.FormatLeague,
			invariant: apperrors.InvariantProbabilitySum,
		},
		{
			name:      "draws in knockout",
			raw:       `{"version":1,"probabilities":{"home":0.4,"draw":0.2,"away":0.4}}`,
			format:    models.FormatKnockout,
			invariant: apperrors.InvariantKnockoutNoDraw,
		},
		{
			name:      "group knockout needs decisive outcomes",
			raw:       `{"version":1,"probabilities":{"home":0,"draw":1,"away":0}}`,
			format:    models.FormatGroupKnockout,
			invariant: apperrors.InvariantKnockoutNoDraw,
		},
		{
			name:      "explicit zero probabilities are not replaced by defaults",
			raw:       `{"version":1,"probabilities":{"home":0,"draw":0,"away":0}}`,
			format:    models.FormatLeague,
			invariant: apperrors.InvariantProbabilitySum,
		},
		{
			name:      "explicit zero points are not replaced by defaults",
			raw:       `{"version":1,"points":{"win":0,"draw":0,"loss":0}}`,
			format:    models.FormatLeague,
			invariant: apperrors.InvariantPointsScheme,
		},
		{
			name:      "explicit zero max goals",
			raw:       `{"version":1,"max_goals":0}`,
			format:    models.FormatLeague,
			invariant: InvariantSchema,
		},
		{
			name:      "unordered points",
			raw:       `{"version":1,"points":{"win":1,"draw":1,"loss":0}}`,
			format:    models.FormatLeague,
			invariant: apperrors.InvariantPointsScheme,
		},
		{
			name:      "unsupported version",
			raw:       `{"version":2}`,
			format:    models.FormatLeague,
			invariant: apperrors.InvariantConfigVersion,
		},
		{
			name:      "unknown field",
			raw:       `{"version":1,"colour":"red"}`,
			format:    models.FormatLeague,
			invariant: InvariantSchema,
		},
		{
			name:      "unknown format",
			raw:       `{"version":1}`,
			format:    models.Format("LADDER"),
			invariant: apperrors.InvariantFormatKnown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := ParseGameConfig(json.RawMessage(tt.raw), tt.format)
			if tt.invariant != "" {
				require.Error(t, err)
				assert.ErrorIs(t, err, apperrors.ErrValidation)
				assert.Equal(t, tt.invariant, apperrors.InvariantOf(err))
				return
			}
			require.NoError(t, err)
			if tt.verify != nil {
				tt.verify(t, cfg)
			}
		})
	}
}

func TestGroupSettings(t *testing.T) {
	cfg := DefaultGameConfig(models.FormatGroupKnockout)

	assert.Equal(t, 2, cfg.Groups(8))
	assert.NoError(t, cfg.ValidateGroups(8))

	cfg.GroupCount = 4
	assert.Error(t, cfg.ValidateGroups(6), "one participant per group cannot qualify two")

	cfg.GroupCount = 1
	cfg.QualifiersPerGroup = 1
	assert.Equal(t, apperrors.InvariantGroupSettings, apperrors.InvariantOf(cfg.ValidateGroups(4)))
}

func TestSwissRoundCount(t *testing.T) {
	cfg := DefaultGameConfig(models.FormatSwiss)
	assert.Equal(t, 3, cfg.SwissRoundCount(8))
	assert.Equal(t, 3, cfg.SwissRoundCount(5))
	assert.Equal(t, 1, cfg.SwissRoundCount(2))

	cfg.SwissRounds = 5
	assert.Equal(t, 5, cfg.SwissRoundCount(8))
}

func TestParseRewardConfig(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		invariant string
	}{
		{name: "defaults", raw: ""},
		{
			name: "valid custom config",
			raw: `{"version":1,"base_xp":50,
				"tiers":[{"min_rank":1,"max_rank":1,"xp_multiplier":2,"credits":10,"skill_points":10,"badges":["MVP"]}],
				"default_tier":{"xp_multiplier":1},
				"skill_weights":[{"skill":"aim","weight":3,"enabled":true}]}`,
		},
		{
			name: "zero enabled weight with skill points",
			raw: `{"version":1,"tiers":[{"min_rank":1,"max_rank":1,"xp_multiplier":1,"skill_points":10}],
				"default_tier":{"xp_multiplier":1},
				"skill_weights":[{"skill":"aim","weight":3,"enabled":false}]}`,
			invariant: apperrors.InvariantSkillWeights,
		},
		{
			name:      "no skills listed",
			raw:       `{"version":1,"default_tier":{"xp_multiplier":1},"skill_weights":[]}`,
			invariant: apperrors.InvariantSkillWeights,
		},
		{
			name: "only skill disabled and no tier grants skill points",
			raw: `{"version":1,"tiers":[{"min_rank":1,"max_rank":1,"xp_multiplier":1}],
				"default_tier":{"xp_multiplier":1},
				"skill_weights":[{"skill":"aim","weight":3,"enabled":false}]}`,
			invariant: apperrors.InvariantSkillWeights,
		},
		{
			name: "duplicate skill",
			raw: `{"version":1,"default_tier":{"xp_multiplier":1},
				"skill_weights":[{"skill":"aim","weight":1,"enabled":true},{"skill":"aim","weight":2,"enabled":true}]}`,
			invariant: apperrors.InvariantSkillWeights,
		},
		{
			name: "overlapping tiers",
			raw: `{"version":1,"default_tier":{"xp_multiplier":1},
				"tiers":[{"min_rank":1,"max_rank":3,"xp_multiplier":1},{"min_rank":3,"max_rank":0,"xp_multiplier":1}]}`,
			invariant: apperrors.InvariantRewardTiers,
		},
		{
			name:      "non-positive multiplier",
			raw:       `{"version":1,"default_tier":{"xp_multiplier":0}}`,
			invariant: apperrors.InvariantRewardTiers,
		},
		{
			name:      "lowercase badge",
			raw:       `{"version":1,"default_tier":{"xp_multiplier":1,"badges":["mvp"]}}`,
			invariant: apperrors.InvariantRewardTiers,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRewardConfig(json.RawMessage(tt.raw))
			if tt.invariant == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrValidation)
			assert.Equal(t, tt.invariant, apperrors.InvariantOf(err))
		})
	}
}

func TestTierFor(t *testing.T) {
	cfg := DefaultRewardConfig()
	assert.Equal(t, 3.0, cfg.TierFor(1).XPMultiplier)
	assert.Equal(t, 1.5, cfg.TierFor(3).XPMultiplier)
	assert.Equal(t, cfg.DefaultTier, cfg.TierFor(17))
}
