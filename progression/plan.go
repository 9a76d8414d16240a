// Package progression decides, from the sessions of a tournament, whether the current
// round is finished and what comes next. Everything here is read-only; the single
// write path lives in services.ProgressionService.Execute.
package progression

import "github.com/Dosada05/tournament-engine/models"

type State string

const (
	StateWaiting             State = "WAITING"
	StateRoundComplete       State = "ROUND_COMPLETE"
	StateNextRoundCreated    State = "NEXT_ROUND_CREATED"
	StateTournamentFinalized State = "TOURNAMENT_FINALIZED"
)

// Plan is either a *WaitPlan or a *ProgressionPlan.
type Plan interface {
	plan()
}

// WaitPlan: the stage is still open. Completed and Total count played sessions,
// walkovers excluded.
type WaitPlan struct {
	TournamentID int
	Phase        models.Phase
	Round        int
	Completed    int
	Total        int
	// RoundComplete is set when the submitted session's round is finished but other
	// pre-scheduled rounds of the stage are not.
	RoundComplete bool
}

// ProgressionPlan describes the single write that moves a tournament forward: either
// the sessions of the next round or the final ranking.
type ProgressionPlan struct {
	TournamentID   int
	CompletedPhase models.Phase
	CompletedRound int
	NextPhase      models.Phase
	NextRound      int
	Sessions       []*models.Session
	Finalize       bool
	Ranking        []*models.RankingEntry
}

func (*WaitPlan) plan()        {}
func (*ProgressionPlan) plan() {}

// Outcome is what submitting a result reports back.
type Outcome struct {
	State             State                  `json:"state"`
	TournamentID      int                    `json:"tournament_id"`
	Phase             models.Phase           `json:"phase,omitempty"`
	Round             int                    `json:"round,omitempty"`
	Completed         int                    `json:"completed"`
	Total             int                    `json:"total"`
	Sessions          []*models.Session      `json:"sessions,omitempty"`
	Ranking           []*models.RankingEntry `json:"ranking,omitempty"`
	AlreadyProgressed bool                   `json:"already_progressed,omitempty"`
}

func (p *WaitPlan) Outcome() *Outcome {
	state := StateWaiting
	if p.RoundComplete {
		state = StateRoundComplete
	}
	return &Outcome{
		State:        state,
		TournamentID: p.TournamentID,
		Phase:        p.Phase,
		Round:        p.Round,
		Completed:    p.Completed,
		Total:        p.Total,
	}
}
