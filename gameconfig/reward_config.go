package gameconfig

import (
	"bytes"
	"encoding/json"
	"slices"
	"strings"

	"github.com/Dosada05/tournament-engine/apperrors"
	"github.com/Dosada05/tournament-engine/models"
)

// RewardTier applies to ranks MinRank..MaxRank inclusive. MaxRank 0 means no upper bound.
type RewardTier struct {
	MinRank      int                `json:"min_rank" yaml:"min_rank"`
	MaxRank      int                `json:"max_rank" yaml:"max_rank"`
	XPMultiplier float64            `json:"xp_multiplier" yaml:"xp_multiplier"`
	Credits      int                `json:"credits" yaml:"credits"`
	SkillPoints  float64            `json:"skill_points" yaml:"skill_points"`
	Badges       []models.BadgeType `json:"badges,omitempty" yaml:"badges,omitempty"`
}

func (t RewardTier) Contains(rank int) bool {
	return rank >= t.MinRank && (t.MaxRank == 0 || rank <= t.MaxRank)
}

type SkillWeight struct {
	Skill   string  `json:"skill" yaml:"skill"`
	Weight  float64 `json:"weight" yaml:"weight"`
	Enabled bool    `json:"enabled" yaml:"enabled"`
}

type RewardConfig struct {
	Version      int           `json:"version" yaml:"version"`
	BaseXP       int           `json:"base_xp" yaml:"base_xp"`
	Tiers        []RewardTier  `json:"tiers" yaml:"tiers"`
	DefaultTier  RewardTier    `json:"default_tier" yaml:"default_tier"`
	SkillWeights []SkillWeight `json:"skill_weights" yaml:"skill_weights"`
}

func DefaultRewardConfig() RewardConfig {
	return RewardConfig{
		Version: CurrentVersion,
		BaseXP:  100,
		Tiers: []RewardTier{
			{MinRank: 1, MaxRank: 1, XPMultiplier: 3, Credits: 500, SkillPoints: 10},
			{MinRank: 2, MaxRank: 2, XPMultiplier: 2, Credits: 250, SkillPoints: 6},
			{MinRank: 3, MaxRank: 3, XPMultiplier: 1.5, Credits: 100, SkillPoints: 4},
		},
		DefaultTier: RewardTier{XPMultiplier: 1, Credits: 20, SkillPoints: 1},
		SkillWeights: []SkillWeight{
			{Skill: "tactics", Weight: 1, Enabled: true},
			{Skill: "consistency", Weight: 1, Enabled: true},
		},
	}
}

// ParseRewardConfig decodes raw and validates it. An empty document yields the defaults.
func ParseRewardConfig(raw json.RawMessage) (RewardConfig, error) {
	cfg := DefaultRewardConfig()
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) {
		cfg = RewardConfig{}
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return RewardConfig{}, apperrors.Validation(0, 0, InvariantSchema, "reward config: %v", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return RewardConfig{}, err
	}
	return cfg, nil
}

func (c RewardConfig) Validate() error {
	if c.Version != CurrentVersion {
		return apperrors.Validation(0, 0, apperrors.InvariantConfigVersion, "reward config version %d is not supported (want %d)", c.Version, CurrentVersion)
	}
	if c.BaseXP < 0 {
		return apperrors.Validation(0, 0, apperrors.InvariantRewardTiers, "base_xp must not be negative, got %d", c.BaseXP)
	}

	all := append(slices.Clone(c.Tiers), c.DefaultTier)
	for i, t := range all {
		if t.XPMultiplier <= 0 {
			return apperrors.Validation(0, 0, apperrors.InvariantRewardTiers, "tier %d: xp_multiplier must be positive, got %g", i, t.XPMultiplier)
		}
		if t.Credits < 0 || t.SkillPoints < 0 {
			return apperrors.Validation(0, 0, apperrors.InvariantRewardTiers, "tier %d: credits and skill_points must not be negative", i)
		}
		for _, b := range t.Badges {
			if !b.Valid() {
				return apperrors.Validation(0, 0, apperrors.InvariantRewardTiers, "tier %d: badge %q is not a valid badge type", i, string(b))
			}
		}
	}

	for i, t := range c.Tiers {
		if t.MinRank < 1 || (t.MaxRank != 0 && t.MaxRank < t.MinRank) {
			return apperrors.Validation(0, 0, apperrors.InvariantRewardTiers, "tier %d: rank range %d..%d is invalid", i, t.MinRank, t.MaxRank)
		}
		for j := range i {
			if tiersOverlap(c.Tiers[j], t) {
				return apperrors.Validation(0, 0, apperrors.InvariantRewardTiers, "tiers %d and %d overlap", j, i)
			}
		}
	}

	seen := make(map[string]bool, len(c.SkillWeights))
	for _, w := range c.SkillWeights {
		name := strings.TrimSpace(w.Skill)
		if name == "" {
			return apperrors.Validation(0, 0, apperrors.InvariantSkillWeights, "skill name must not be empty")
		}
		if seen[name] {
			return apperrors.Validation(0, 0, apperrors.InvariantSkillWeights, "skill %q is listed twice", name)
		}
		seen[name] = true
		if w.Weight < 0 {
			return apperrors.Validation(0, 0, apperrors.InvariantSkillWeights, "skill %q has negative weight %g", name, w.Weight)
		}
	}
	if c.EnabledWeightSum() <= 0 {
		return apperrors.Validation(0, 0, apperrors.InvariantSkillWeights, "total enabled skill weight is zero")
	}
	return nil
}

func tiersOverlap(a, b RewardTier) bool {
	aMax, bMax := a.MaxRank, b.MaxRank
	if aMax == 0 {
		aMax = int(^uint(0) >> 1)
	}
	if bMax == 0 {
		bMax = int(^uint(0) >> 1)
	}
	return a.MinRank <= bMax && b.MinRank <= aMax
}

// TierFor returns the tier covering rank, falling back to the default tier.
func (c RewardConfig) TierFor(rank int) RewardTier {
	for _, t := range c.Tiers {
		if t.Contains(rank) {
			return t
		}
	}
	return c.DefaultTier
}

func (c RewardConfig) EnabledWeightSum() float64 {
	var sum float64
	for _, w := range c.SkillWeights {
		if w.Enabled {
			sum += w.Weight
		}
	}
	return sum
}
