package models

import "time"

// Participant - запись участника в турнире. Seed задаётся порядком регистрации.
type Participant struct {
	ID            int       `json:"id" db:"id"`
	TournamentID  int       `json:"tournament_id" db:"tournament_id"`
	ParticipantID int       `json:"participant_id" db:"participant_id"`
	Seed          int       `json:"seed" db:"seed"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}
