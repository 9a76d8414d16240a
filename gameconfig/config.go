// Package gameconfig parses and validates the versioned configuration documents
// attached to a tournament and provides the seeded randomness used by simulations.
package gameconfig

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"slices"

	"github.com/Dosada05/tournament-engine/apperrors"
	"github.com/Dosada05/tournament-engine/models"
)

const (
	CurrentVersion = 1

	probabilityTolerance = 1e-6
	defaultMaxGoals      = 5
	defaultQualifiers    = 2
)

type ScoreOrder string

const (
	ScoreDescending ScoreOrder = "DESC" // highest score wins
	ScoreAscending  ScoreOrder = "ASC"  // fastest time wins
)

type Probabilities struct {
	Home float64 `json:"home" yaml:"home"`
	Draw float64 `json:"draw" yaml:"draw"`
	Away float64 `json:"away" yaml:"away"`
}

type PointsScheme struct {
	Win  int `json:"win" yaml:"win"`
	Draw int `json:"draw" yaml:"draw"`
	Loss int `json:"loss" yaml:"loss"`
}

// GameConfig описывает правила проведения матчей турнира.
type GameConfig struct {
	Version            int           `json:"version" yaml:"version"`
	Seed               *int64        `json:"seed,omitempty" yaml:"seed,omitempty"`
	Probabilities      Probabilities `json:"probabilities" yaml:"probabilities"`
	Points             PointsScheme  `json:"points" yaml:"points"`
	ScoreOrder         ScoreOrder    `json:"score_order" yaml:"score_order"`
	BronzeMatch        bool          `json:"bronze_match" yaml:"bronze_match"`
	GroupCount         int           `json:"group_count,omitempty" yaml:"group_count,omitempty"`
	QualifiersPerGroup int           `json:"qualifiers_per_group" yaml:"qualifiers_per_group"`
	SwissRounds        int           `json:"swiss_rounds,omitempty" yaml:"swiss_rounds,omitempty"`
	MaxGoals           int           `json:"max_goals" yaml:"max_goals"`
}

// DefaultGameConfig returns the configuration used when a tournament is created without one.
// Knockout tournaments get no draw probability.
func DefaultGameConfig(format models.Format) GameConfig {
	cfg := GameConfig{
		Version:            CurrentVersion,
		Probabilities:      Probabilities{Home: 0.4, Draw: 0.2, Away: 0.4},
		Points:             PointsScheme{Win: 3, Draw: 1, Loss: 0},
		ScoreOrder:         ScoreDescending,
		QualifiersPerGroup: defaultQualifiers,
		MaxGoals:           defaultMaxGoals,
	}
	if format == models.FormatKnockout {
		cfg.Probabilities = Probabilities{Home: 0.5, Away: 0.5}
	}
	return cfg
}

// ParseGameConfig decodes raw, fills the sections it omits with the format defaults
// and validates the result. An empty document yields the defaults.
func ParseGameConfig(raw json.RawMessage, format models.Format) (GameConfig, error) {
	def := DefaultGameConfig(format)
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return def, def.Validate(format)
	}

	var cfg GameConfig
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return GameConfig{}, apperrors.Validation(0, 0, InvariantSchema, "game config: %v", err)
	}
	// Значения по умолчанию только для отсутствующих ключей: явные нули проверяются как есть.
	var present map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &present); err != nil {
		return GameConfig{}, apperrors.Validation(0, 0, InvariantSchema, "game config: %v", err)
	}
	if _, ok := present["probabilities"]; !ok {
		cfg.Probabilities = def.Probabilities
	}
	if _, ok := present["points"]; !ok {
		cfg.Points = def.Points
	}
	if _, ok := present["score_order"]; !ok {
		cfg.ScoreOrder = def.ScoreOrder
	}
	if _, ok := present["qualifiers_per_group"]; !ok {
		cfg.QualifiersPerGroup = def.QualifiersPerGroup
	}
	if _, ok := present["max_goals"]; !ok {
		cfg.MaxGoals = def.MaxGoals
	}
	if err := cfg.Validate(format); err != nil {
		return GameConfig{}, err
	}
	return cfg, nil
}

// InvariantSchema marks documents that cannot be decoded at all.
const InvariantSchema = "config_schema_valid"

func (c GameConfig) Validate(format models.Format) error {
	if !format.Valid() {
		return apperrors.Validation(0, 0, apperrors.InvariantFormatKnown, "unknown format %q", string(format))
	}
	if c.Version != CurrentVersion {
		return apperrors.Validation(0, 0, apperrors.InvariantConfigVersion, "game config version %d is not supported (want %d)", c.Version, CurrentVersion)
	}

	p := c.Probabilities
	if p.Home < 0 || p.Draw < 0 || p.Away < 0 {
		return apperrors.Validation(0, 0, apperrors.InvariantProbabilitySum, "probabilities must not be negative (home=%g draw=%g away=%g)", p.Home, p.Draw, p.Away)
	}
	if sum := p.Home + p.Draw + p.Away; math.Abs(sum-1) > probabilityTolerance {
		return apperrors.Validation(0, 0, apperrors.InvariantProbabilitySum, "probabilities sum to %g, want 1", sum)
	}
	if format == models.FormatKnockout && p.Draw > 0 {
		return apperrors.Validation(0, 0, apperrors.InvariantKnockoutNoDraw, "draw probability %g is not allowed in a knockout tournament", p.Draw)
	}
	if slices.Contains(format.Phases(), models.PhaseKnockout) && p.Home+p.Away <= 0 {
		return apperrors.Validation(0, 0, apperrors.InvariantKnockoutNoDraw, "knockout phase needs a decisive outcome probability")
	}

	pts := c.Points
	if pts.Loss < 0 || pts.Draw < pts.Loss || pts.Win <= pts.Draw {
		return apperrors.Validation(0, 0, apperrors.InvariantPointsScheme, "points scheme %d/%d/%d must satisfy win > draw >= loss >= 0", pts.Win, pts.Draw, pts.Loss)
	}

	if c.ScoreOrder != ScoreDescending && c.ScoreOrder != ScoreAscending {
		return apperrors.Validation(0, 0, InvariantSchema, "score_order %q must be DESC or ASC", string(c.ScoreOrder))
	}
	if c.MaxGoals < 1 {
		return apperrors.Validation(0, 0, InvariantSchema, "max_goals must be positive, got %d", c.MaxGoals)
	}
	if c.GroupCount < 0 || c.QualifiersPerGroup < 1 || c.SwissRounds < 0 {
		return apperrors.Validation(0, 0, apperrors.InvariantGroupSettings, "group_count=%d qualifiers_per_group=%d swiss_rounds=%d are out of range", c.GroupCount, c.QualifiersPerGroup, c.SwissRounds)
	}
	return nil
}

// Groups returns the number of groups for n participants: the configured count,
// or one group per four participants.
func (c GameConfig) Groups(n int) int {
	if c.GroupCount > 0 {
		return c.GroupCount
	}
	return max(1, n/4)
}

// ValidateGroups checks that n participants can be split into groups that each
// produce QualifiersPerGroup qualifiers, and that the knockout has at least two entrants.
func (c GameConfig) ValidateGroups(n int) error {
	g := c.Groups(n)
	if g < 1 || n/g < 2 || n/g < c.QualifiersPerGroup {
		return apperrors.Validation(0, 0, apperrors.InvariantGroupSettings, "%d participants cannot form %d groups with %d qualifiers each", n, g, c.QualifiersPerGroup)
	}
	if g*c.QualifiersPerGroup < 2 {
		return apperrors.Validation(0, 0, apperrors.InvariantGroupSettings, "knockout needs at least 2 qualifiers, got %d", g*c.QualifiersPerGroup)
	}
	return nil
}

// SwissRoundCount returns the configured number of swiss rounds or ceil(log2 n).
func (c GameConfig) SwissRoundCount(n int) int {
	if c.SwissRounds > 0 {
		return c.SwissRounds
	}
	rounds := 0
	for size := 1; size < n; size <<= 1 {
		rounds++
	}
	return max(1, rounds)
}
