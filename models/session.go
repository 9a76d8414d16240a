package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"slices"
	"time"
)

type Phase string

const (
	PhaseGroupStage        Phase = "GROUP_STAGE"
	PhaseKnockout          Phase = "KNOCKOUT"
	PhaseIndividualRanking Phase = "INDIVIDUAL_RANKING"
)

func (p Phase) Valid() bool {
	switch p {
	case PhaseGroupStage, PhaseKnockout, PhaseIndividualRanking:
		return true
	}
	return false
}

func (p *Phase) Scan(src any) error {
	return scanEnum(p, src, Phase.Valid, "session phase")
}

func (p Phase) Value() (driver.Value, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("refusing to write unknown session phase %q", string(p))
	}
	return string(p), nil
}

type SessionStatus string

const (
	SessionScheduled SessionStatus = "SCHEDULED"
	SessionCompleted SessionStatus = "COMPLETED"
)

func (s SessionStatus) Valid() bool {
	return s == SessionScheduled || s == SessionCompleted
}

func (s *SessionStatus) Scan(src any) error {
	return scanEnum(s, src, SessionStatus.Valid, "session status")
}

func (s SessionStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("refusing to write unknown session status %q", string(s))
	}
	return string(s), nil
}

type ParticipantScore struct {
	ParticipantID int     `json:"participant_id" yaml:"participant_id"`
	Score         float64 `json:"score" yaml:"score"`
}

// Result is the outcome of a session. WinnerID is nil for a draw or for
// an individual-ranking session that carries only scores.
type Result struct {
	WinnerID *int               `json:"winner_id,omitempty"`
	Scores   []ParticipantScore `json:"scores"`
}

func (r *Result) ScoreOf(participantID int) (float64, bool) {
	for _, s := range r.Scores {
		if s.ParticipantID == participantID {
			return s.Score, true
		}
	}
	return 0, false
}

// Equal compares two results ignoring the order of scores.
func (r *Result) Equal(o *Result) bool {
	if r == nil || o == nil {
		return r == o
	}
	if (r.WinnerID == nil) != (o.WinnerID == nil) {
		return false
	}
	if r.WinnerID != nil && *r.WinnerID != *o.WinnerID {
		return false
	}
	if len(r.Scores) != len(o.Scores) {
		return false
	}
	for _, s := range r.Scores {
		v, ok := o.ScoreOf(s.ParticipantID)
		if !ok || v != s.Score {
			return false
		}
	}
	return true
}

func (r *Result) Clone() *Result {
	if r == nil {
		return nil
	}
	cp := &Result{Scores: slices.Clone(r.Scores)}
	if r.WinnerID != nil {
		w := *r.WinnerID
		cp.WinnerID = &w
	}
	return cp
}

func (r *Result) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("session result: unsupported column type %T", src)
	}
	return json.Unmarshal(raw, r)
}

func (r Result) Value() (driver.Value, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Session - один матч турнира.
type Session struct {
	ID             int           `json:"id" db:"id"`
	TournamentID   int           `json:"tournament_id" db:"tournament_id"`
	Phase          Phase         `json:"phase" db:"phase"`
	Round          int           `json:"round" db:"round"`
	Slot           int           `json:"slot" db:"slot"`
	GroupNo        int           `json:"group_no,omitempty" db:"group_no"`
	Bye            bool          `json:"bye,omitempty" db:"bye"`
	Bronze         bool          `json:"bronze,omitempty" db:"bronze"`
	ParticipantIDs []int         `json:"participant_ids" db:"participant_ids"`
	Result         *Result       `json:"result,omitempty" db:"result"`
	Status         SessionStatus `json:"status" db:"status"`
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
	CompletedAt    *time.Time    `json:"completed_at,omitempty" db:"completed_at"`
}

func (s *Session) IsComplete() bool {
	return s.Status == SessionCompleted && s.Result != nil
}

func (s *Session) HasParticipant(id int) bool {
	return slices.Contains(s.ParticipantIDs, id)
}

// Opponent returns the other participant of a head-to-head session.
func (s *Session) Opponent(id int) (int, bool) {
	if len(s.ParticipantIDs) != 2 {
		return 0, false
	}
	switch id {
	case s.ParticipantIDs[0]:
		return s.ParticipantIDs[1], true
	case s.ParticipantIDs[1]:
		return s.ParticipantIDs[0], true
	}
	return 0, false
}

func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	cp := *s
	cp.ParticipantIDs = slices.Clone(s.ParticipantIDs)
	cp.Result = s.Result.Clone()
	if s.CompletedAt != nil {
		v := *s.CompletedAt
		cp.CompletedAt = &v
	}
	return &cp
}

// NewWalkover builds an auto-completed bye session for a single participant.
func NewWalkover(tournamentID int, phase Phase, round, slot, participantID int) *Session {
	winner := participantID
	return &Session{
		TournamentID:   tournamentID,
		Phase:          phase,
		Round:          round,
		Slot:           slot,
		Bye:            true,
		ParticipantIDs: []int{participantID},
		Result:         &Result{WinnerID: &winner, Scores: []ParticipantScore{}},
		Status:         SessionCompleted,
	}
}
