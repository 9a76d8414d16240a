package progression

import (
	"cmp"
	"slices"

	"github.com/Dosada05/tournament-engine/apperrors"
	"github.com/Dosada05/tournament-engine/brackets"
	"github.com/Dosada05/tournament-engine/gameconfig"
	"github.com/Dosada05/tournament-engine/models"
	"github.com/Dosada05/tournament-engine/standings"
)

type Input struct {
	Tournament *models.Tournament // Participants в порядке посева
	Config     gameconfig.GameConfig
	Session    *models.Session   // the session whose result was just recorded
	Sessions   []*models.Session // every session of the tournament, Session included
}

// CanProgress is the cheap guard in front of Calculate: only a played session of a
// running tournament, in a phase its format actually has, can move it forward.
func CanProgress(t *models.Tournament, s *models.Session) bool {
	if t == nil || s == nil || s.Bye || s.TournamentID != t.ID {
		return false
	}
	if t.Status != models.StatusInProgress {
		return false
	}
	return slices.Contains(t.Format.Phases(), s.Phase)
}

// Calculate inspects the stage the session belongs to and returns a *WaitPlan while it
// is open or a *ProgressionPlan once it is decided.
func Calculate(in Input) (Plan, error) {
	t, s := in.Tournament, in.Session
	if t == nil || s == nil {
		return nil, apperrors.Validation(0, 0, apperrors.InvariantStatusForward, "tournament and session are required")
	}
	if !CanProgress(t, s) {
		return nil, apperrors.Validation(t.ID, s.ID, apperrors.InvariantStatusForward,
			"session (phase %s, bye %t) cannot progress tournament in status %s", s.Phase, s.Bye, t.Status)
	}

	switch {
	case t.Format == models.FormatKnockout, s.Phase == models.PhaseKnockout:
		return calculateKnockout(in)
	case t.Format == models.FormatSwiss:
		return calculateSwiss(in)
	case t.Format == models.FormatGroupKnockout:
		return calculateGroups(in)
	default: // league and individual ranking: one stage, then the end
		stage := filter(in.Sessions, s.Phase, 0)
		if wait, err := waitFor(in, stage); wait != nil || err != nil {
			return orNil(wait), err
		}
		return Finalize(in, s.Phase, s.Round)
	}
}

// Finalize builds the plan that completes the tournament with its final ranking.
func Finalize(in Input, phase models.Phase, round int) (*ProgressionPlan, error) {
	t := in.Tournament
	ranking, err := standings.Compute(standings.Input{
		TournamentID: t.ID,
		Format:       t.Format,
		Participants: t.Participants,
		Sessions:     in.Sessions,
		Points:       in.Config.Points,
		ScoreOrder:   in.Config.ScoreOrder,
	})
	if err != nil {
		return nil, err
	}
	return &ProgressionPlan{
		TournamentID:   t.ID,
		CompletedPhase: phase,
		CompletedRound: round,
		Finalize:       true,
		Ranking:        ranking,
	}, nil
}

func calculateKnockout(in Input) (Plan, error) {
	t, s := in.Tournament, in.Session
	round := filter(in.Sessions, models.PhaseKnockout, s.Round)
	if wait, err := waitFor(in, round); wait != nil || err != nil {
		return orNil(wait), err
	}

	var winners, losers []int
	allPlayed := true
	for _, m := range round {
		if m.Bronze {
			if _, err := winnerOf(t.ID, m); err != nil {
				return nil, err
			}
			continue
		}
		w, err := winnerOf(t.ID, m)
		if err != nil {
			return nil, err
		}
		winners = append(winners, w)
		if m.Bye {
			allPlayed = false
			continue
		}
		l, _ := m.Opponent(w)
		losers = append(losers, l)
	}

	if len(winners) == 1 {
		return Finalize(in, models.PhaseKnockout, s.Round)
	}
	if len(winners)%2 != 0 {
		return nil, apperrors.DataIntegrity(t.ID, s.ID, apperrors.InvariantRoundComplete, "knockout round %d has %d winners", s.Round, len(winners))
	}
	if !allPlayed {
		losers = nil
	}
	return &ProgressionPlan{
		TournamentID:   t.ID,
		CompletedPhase: models.PhaseKnockout,
		CompletedRound: s.Round,
		NextPhase:      models.PhaseKnockout,
		NextRound:      s.Round + 1,
		Sessions:       brackets.NextKnockoutRound(t.ID, s.Round+1, winners, losers, in.Config.BronzeMatch),
	}, nil
}

func calculateSwiss(in Input) (Plan, error) {
	t, s := in.Tournament, in.Session
	round := filter(in.Sessions, models.PhaseGroupStage, s.Round)
	if wait, err := waitFor(in, round); wait != nil || err != nil {
		return orNil(wait), err
	}
	if s.Round >= in.Config.SwissRoundCount(len(t.Participants)) {
		return Finalize(in, models.PhaseGroupStage, s.Round)
	}

	stage := filter(in.Sessions, models.PhaseGroupStage, 0)
	table, err := standings.Compute(standings.Input{
		TournamentID: t.ID,
		Format:       t.Format,
		Participants: t.Participants,
		Sessions:     stage,
		Points:       in.Config.Points,
	})
	if err != nil {
		return nil, err
	}

	st := brackets.SwissState{
		Standing: make([]int, 0, len(table)),
		Played:   make(map[[2]int]bool),
		Byes:     make(map[int]int),
	}
	for _, e := range table {
		st.Standing = append(st.Standing, e.ParticipantID)
	}
	for _, m := range stage {
		if m.Bye {
			st.Byes[m.ParticipantIDs[0]]++
			if m.Round == s.Round {
				st.LastBye = m.ParticipantIDs[0]
			}
			continue
		}
		st.Played[brackets.PairKey(m.ParticipantIDs[0], m.ParticipantIDs[1])] = true
	}

	return &ProgressionPlan{
		TournamentID:   t.ID,
		CompletedPhase: models.PhaseGroupStage,
		CompletedRound: s.Round,
		NextPhase:      models.PhaseGroupStage,
		NextRound:      s.Round + 1,
		Sessions:       brackets.PairSwissRound(t.ID, s.Round+1, st),
	}, nil
}

func calculateGroups(in Input) (Plan, error) {
	t, s := in.Tournament, in.Session
	stage := filter(in.Sessions, models.PhaseGroupStage, 0)
	if wait, err := waitFor(in, stage); wait != nil || err != nil {
		return orNil(wait), err
	}

	n := len(t.Participants)
	if err := in.Config.ValidateGroups(n); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrValidation, t.ID, 0, "", err)
	}
	groups := brackets.SplitGroups(t.Participants, in.Config.Groups(n))
	qualifiers := make([][]int, len(groups))
	for gi, members := range groups {
		var groupSessions []*models.Session
		for _, m := range stage {
			if m.GroupNo == gi+1 {
				groupSessions = append(groupSessions, m)
			}
		}
		table, err := standings.Compute(standings.Input{
			TournamentID: t.ID,
			Format:       models.FormatLeague,
			Participants: members,
			Sessions:     groupSessions,
			Points:       in.Config.Points,
		})
		if err != nil {
			return nil, err
		}
		for _, e := range table[:min(in.Config.QualifiersPerGroup, len(table))] {
			qualifiers[gi] = append(qualifiers[gi], e.ParticipantID)
		}
	}

	sessions, err := brackets.KnockoutFirstRound(t.ID, brackets.KnockoutSeeds(qualifiers))
	if err != nil {
		return nil, err
	}
	lastRound := 0
	for _, m := range stage {
		lastRound = max(lastRound, m.Round)
	}
	return &ProgressionPlan{
		TournamentID:   t.ID,
		CompletedPhase: models.PhaseGroupStage,
		CompletedRound: lastRound,
		NextPhase:      models.PhaseKnockout,
		NextRound:      1,
		Sessions:       sessions,
	}, nil
}

// waitFor returns a WaitPlan while any played session of scope is open, nil once
// every session is done, or a data integrity error for a broken session.
func waitFor(in Input, scope []*models.Session) (*WaitPlan, error) {
	t, s := in.Tournament, in.Session
	completed, total := 0, 0
	roundDone := true
	for _, m := range scope {
		if m.Status == models.SessionCompleted && m.Result == nil {
			return nil, apperrors.DataIntegrity(t.ID, m.ID, apperrors.InvariantRoundComplete, "session is marked completed but has no result")
		}
		if m.Bye {
			continue
		}
		total++
		if m.IsComplete() {
			completed++
		} else if m.Round == s.Round {
			roundDone = false
		}
	}
	if completed == total {
		return nil, nil
	}
	return &WaitPlan{
		TournamentID:  t.ID,
		Phase:         s.Phase,
		Round:         s.Round,
		Completed:     completed,
		Total:         total,
		RoundComplete: roundDone,
	}, nil
}

// winnerOf returns the winner of a completed head-to-head session or refuses to guess.
func winnerOf(tournamentID int, s *models.Session) (int, error) {
	if s.Result == nil || s.Result.WinnerID == nil {
		return 0, apperrors.DataIntegrity(tournamentID, s.ID, apperrors.InvariantWinnerPresent, "completed knockout session has no winner")
	}
	w := *s.Result.WinnerID
	if !s.HasParticipant(w) {
		return 0, apperrors.DataIntegrity(tournamentID, s.ID, apperrors.InvariantWinnerPresent, "winner %d did not play in the session", w)
	}
	return w, nil
}

// filter returns sessions of phase (and round, unless 0) ordered by round and slot.
func filter(sessions []*models.Session, phase models.Phase, round int) []*models.Session {
	var out []*models.Session
	for _, s := range sessions {
		if s.Phase == phase && (round == 0 || s.Round == round) {
			out = append(out, s)
		}
	}
	slices.SortFunc(out, func(a, b *models.Session) int {
		if c := cmp.Compare(a.Round, b.Round); c != 0 {
			return c
		}
		return cmp.Compare(a.Slot, b.Slot)
	})
	return out
}

// orNil keeps a nil *WaitPlan from turning into a non-nil Plan interface.
func orNil(w *WaitPlan) Plan {
	if w == nil {
		return nil
	}
	return w
}
