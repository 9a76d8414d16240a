package models

import "time"

// RankingEntry - место участника в турнире. Единственный источник истины для placement.
type RankingEntry struct {
	TournamentID   int       `json:"tournament_id" db:"tournament_id"`
	ParticipantID  int       `json:"participant_id" db:"participant_id"`
	Rank           int       `json:"rank" db:"rank"`
	Points         int       `json:"points" db:"points"`
	Played         int       `json:"played" db:"played"`
	Wins           int       `json:"wins" db:"wins"`
	Draws          int       `json:"draws" db:"draws"`
	Losses         int       `json:"losses" db:"losses"`
	GoalsFor       int       `json:"goals_for" db:"goals_for"`
	GoalsAgainst   int       `json:"goals_against" db:"goals_against"`
	GoalDifference int       `json:"goal_difference" db:"goal_difference"`
	Score          *float64  `json:"score,omitempty" db:"score"` // individual ranking only
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

func (e *RankingEntry) Clone() *RankingEntry {
	cp := *e
	if e.Score != nil {
		v := *e.Score
		cp.Score = &v
	}
	return &cp
}
