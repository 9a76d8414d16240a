package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// TournamentStatus представляет статусы турнира, соответствующие ENUM в БД.
type TournamentStatus string

const (
	StatusDraft              TournamentStatus = "DRAFT"
	StatusRegistrationOpen   TournamentStatus = "REGISTRATION_OPEN"
	StatusInProgress         TournamentStatus = "IN_PROGRESS"
	StatusCompleted          TournamentStatus = "COMPLETED"
	StatusRewardsDistributed TournamentStatus = "REWARDS_DISTRIBUTED"
	StatusCancelled          TournamentStatus = "CANCELLED"
)

func (s TournamentStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusRegistrationOpen, StatusInProgress, StatusCompleted, StatusRewardsDistributed, StatusCancelled:
		return true
	}
	return false
}

// Finished reports whether no more sessions can be played.
func (s TournamentStatus) Finished() bool {
	return s == StatusCompleted || s == StatusRewardsDistributed || s == StatusCancelled
}

func (s *TournamentStatus) Scan(src any) error {
	return scanEnum(s, src, TournamentStatus.Valid, "tournament status")
}

func (s TournamentStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("refusing to write unknown tournament status %q", string(s))
	}
	return string(s), nil
}

// Tournament представляет турнир.
type Tournament struct {
	ID                   int              `json:"id" db:"id"`
	Name                 string           `json:"name" db:"name"`
	Format               Format           `json:"format" db:"format"`
	Status               TournamentStatus `json:"status" db:"status"`
	WinnerCount          int              `json:"winner_count" db:"winner_count"`
	MaxParticipants      int              `json:"max_participants" db:"max_participants"`
	GameConfig           json.RawMessage  `json:"game_config" db:"game_config"`
	RewardConfig         json.RawMessage  `json:"reward_config" db:"reward_config"`
	GameConfigHash       string           `json:"game_config_hash" db:"game_config_hash"`
	CreatedAt            time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at" db:"updated_at"`
	CompletedAt          *time.Time       `json:"completed_at,omitempty" db:"completed_at"`
	RewardsDistributedAt *time.Time       `json:"rewards_distributed_at,omitempty" db:"rewards_distributed_at"`

	// Участники в порядке посева, заполняется сервисом.
	Participants []int `json:"participants,omitempty" db:"-"`
}

// Clone returns a deep copy.
func (t *Tournament) Clone() *Tournament {
	if t == nil {
		return nil
	}
	cp := *t
	cp.GameConfig = append(json.RawMessage(nil), t.GameConfig...)
	cp.RewardConfig = append(json.RawMessage(nil), t.RewardConfig...)
	cp.Participants = append([]int(nil), t.Participants...)
	if t.CompletedAt != nil {
		v := *t.CompletedAt
		cp.CompletedAt = &v
	}
	if t.RewardsDistributedAt != nil {
		v := *t.RewardsDistributedAt
		cp.RewardsDistributedAt = &v
	}
	return &cp
}
