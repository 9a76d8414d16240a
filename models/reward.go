package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"maps"
	"regexp"
	"time"
)

// SkillPoints maps a skill name to the points awarded for it.
type SkillPoints map[string]float64

func (p *SkillPoints) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	case nil:
		*p = SkillPoints{}
		return nil
	default:
		return fmt.Errorf("skill points: unsupported column type %T", src)
	}
	return json.Unmarshal(raw, p)
}

func (p SkillPoints) Value() (driver.Value, error) {
	if p == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(p)
}

type ParticipationReward struct {
	ID             int         `json:"id" db:"id"`
	TournamentID   int         `json:"tournament_id" db:"tournament_id"`
	ParticipantID  int         `json:"participant_id" db:"participant_id"`
	Placement      int         `json:"placement" db:"placement"`
	XPAwarded      int         `json:"xp_awarded" db:"xp_awarded"`
	CreditsAwarded int         `json:"credits_awarded" db:"credits_awarded"`
	SkillPoints    SkillPoints `json:"skill_points_awarded" db:"skill_points_awarded"`
	CreatedAt      time.Time   `json:"created_at" db:"created_at"`
}

func (r *ParticipationReward) Clone() *ParticipationReward {
	cp := *r
	cp.SkillPoints = maps.Clone(r.SkillPoints)
	return &cp
}

type BadgeType string

const (
	BadgeChampion    BadgeType = "CHAMPION"
	BadgeRunnerUp    BadgeType = "RUNNER_UP"
	BadgeThirdPlace  BadgeType = "THIRD_PLACE"
	BadgeFinalist    BadgeType = "FINALIST"
	BadgeParticipant BadgeType = "PARTICIPANT"
)

var badgeTypePattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]{1,63}$`)

// Valid accepts the built-in badges and configured extras written in upper snake case.
func (b BadgeType) Valid() bool {
	return badgeTypePattern.MatchString(string(b))
}

func (b *BadgeType) Scan(src any) error {
	return scanEnum(b, src, BadgeType.Valid, "badge type")
}

func (b BadgeType) Value() (driver.Value, error) {
	if !b.Valid() {
		return nil, fmt.Errorf("refusing to write invalid badge type %q", string(b))
	}
	return string(b), nil
}

// BadgeMetadata - снимок на момент выдачи, после записи не меняется.
type BadgeMetadata struct {
	TournamentID      int       `json:"tournament_id"`
	Placement         int       `json:"placement"`
	TotalParticipants int       `json:"total_participants"`
	AwardedAt         time.Time `json:"awarded_at"`
}

func (m *BadgeMetadata) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("badge metadata: unsupported column type %T", src)
	}
	return json.Unmarshal(raw, m)
}

func (m BadgeMetadata) Value() (driver.Value, error) {
	return json.Marshal(m)
}

type Badge struct {
	ID            int           `json:"id" db:"id"`
	TournamentID  int           `json:"tournament_id" db:"tournament_id"`
	ParticipantID int           `json:"participant_id" db:"participant_id"`
	Type          BadgeType     `json:"type" db:"type"`
	Metadata      BadgeMetadata `json:"metadata" db:"metadata"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
}
