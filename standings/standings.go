// Package standings orders the participants of a tournament from its completed sessions.
package standings

import (
	"cmp"
	"slices"

	"github.com/Dosada05/tournament-engine/apperrors"
	"github.com/Dosada05/tournament-engine/gameconfig"
	"github.com/Dosada05/tournament-engine/models"
)

type Input struct {
	TournamentID int
	Format       models.Format
	Participants []int
	Sessions     []*models.Session
	Points       gameconfig.PointsScheme
	ScoreOrder   gameconfig.ScoreOrder
}

type line struct {
	entry  *models.RankingEntry
	played bool
	// knockoutKey orders knockout exits: deepest round first, then the final and
	// bronze outcomes inside the last round.
	knockoutKey int
}

// Compute returns one entry per participant with ranks 1..N. Incomplete sessions are
// ignored; participants without any result are placed last.
func Compute(in Input) ([]*models.RankingEntry, error) {
	lines := make(map[int]*line, len(in.Participants))
	for _, id := range in.Participants {
		lines[id] = &line{entry: &models.RankingEntry{TournamentID: in.TournamentID, ParticipantID: id}}
	}

	var err error
	if in.Format == models.FormatIndividualRanking {
		err = tallyIndividual(in, lines)
	} else {
		err = tallyHeadToHead(in, lines)
	}
	if err != nil {
		return nil, err
	}

	ordered := make([]*line, 0, len(lines))
	for _, id := range in.Participants {
		ordered = append(ordered, lines[id])
	}
	slices.SortStableFunc(ordered, func(a, b *line) int {
		return compareLines(in, a, b)
	})

	out := make([]*models.RankingEntry, len(ordered))
	for i, l := range ordered {
		l.entry.Rank = i + 1
		out[i] = l.entry
	}
	return out, nil
}

func compareLines(in Input, a, b *line) int {
	if a.played != b.played {
		if a.played {
			return -1
		}
		return 1
	}
	ea, eb := a.entry, b.entry
	if in.Format == models.FormatIndividualRanking {
		if ea.Score != nil && eb.Score != nil && *ea.Score != *eb.Score {
			if gameconfig.Better(in.ScoreOrder, *ea.Score, *eb.Score) {
				return -1
			}
			return 1
		}
		return cmp.Compare(ea.ParticipantID, eb.ParticipantID)
	}
	if c := cmp.Compare(b.knockoutKey, a.knockoutKey); c != 0 {
		return c
	}
	if c := cmp.Compare(eb.Points, ea.Points); c != 0 {
		return c
	}
	if c := cmp.Compare(eb.GoalDifference, ea.GoalDifference); c != 0 {
		return c
	}
	if c := cmp.Compare(eb.GoalsFor, ea.GoalsFor); c != 0 {
		return c
	}
	return cmp.Compare(ea.ParticipantID, eb.ParticipantID)
}

func tallyIndividual(in Input, lines map[int]*line) error {
	for _, s := range in.Sessions {
		done, err := completed(in.TournamentID, s)
		if err != nil {
			return err
		}
		if !done {
			continue
		}
		for _, id := range s.ParticipantIDs {
			l, ok := lines[id]
			if !ok {
				return unknownParticipant(in.TournamentID, s, id)
			}
			score, ok := s.Result.ScoreOf(id)
			if !ok {
				return apperrors.DataIntegrity(in.TournamentID, s.ID, apperrors.InvariantResultShape, "no score for participant %d", id)
			}
			l.played = true
			l.entry.Played++
			l.entry.Score = &score
		}
	}
	return nil
}

func tallyHeadToHead(in Input, lines map[int]*line) error {
	pts := in.Points
	finalRound := finalKnockoutRound(in.Sessions)

	for _, s := range in.Sessions {
		done, err := completed(in.TournamentID, s)
		if err != nil {
			return err
		}
		if !done {
			continue
		}
		for _, id := range s.ParticipantIDs {
			l, ok := lines[id]
			if !ok {
				return unknownParticipant(in.TournamentID, s, id)
			}
			if s.Phase == models.PhaseKnockout {
				l.knockoutKey = max(l.knockoutKey, s.Round*4)
			}
		}

		if s.Bye {
			e := lines[s.ParticipantIDs[0]].entry
			lines[s.ParticipantIDs[0]].played = true
			e.Played++
			e.Wins++
			e.Points += pts.Win
			continue
		}
		if len(s.ParticipantIDs) != 2 {
			return apperrors.DataIntegrity(in.TournamentID, s.ID, apperrors.InvariantResultShape, "head-to-head session has %d participants", len(s.ParticipantIDs))
		}

		a, b := s.ParticipantIDs[0], s.ParticipantIDs[1]
		ga, okA := s.Result.ScoreOf(a)
		gb, okB := s.Result.ScoreOf(b)
		if !okA || !okB {
			return apperrors.DataIntegrity(in.TournamentID, s.ID, apperrors.InvariantResultShape, "result lacks a score for one of %d, %d", a, b)
		}
		la, lb := lines[a], lines[b]
		addGoals(la, int(ga), int(gb))
		addGoals(lb, int(gb), int(ga))

		switch {
		case s.Result.WinnerID == nil:
			if s.Phase == models.PhaseKnockout {
				return apperrors.DataIntegrity(in.TournamentID, s.ID, apperrors.InvariantWinnerPresent, "knockout session completed without a winner")
			}
			la.entry.Draws++
			lb.entry.Draws++
			la.entry.Points += pts.Draw
			lb.entry.Points += pts.Draw
		case *s.Result.WinnerID == a || *s.Result.WinnerID == b:
			win, loss := la, lb
			if *s.Result.WinnerID == b {
				win, loss = lb, la
			}
			win.entry.Wins++
			loss.entry.Losses++
			win.entry.Points += pts.Win
			loss.entry.Points += pts.Loss
			if s.Phase == models.PhaseKnockout && s.Round == finalRound {
				applyFinalBonus(s, win, loss)
			}
		default:
			return apperrors.DataIntegrity(in.TournamentID, s.ID, apperrors.InvariantWinnerPresent, "winner %d is not a participant of the session", *s.Result.WinnerID)
		}
	}
	return nil
}

// finalKnockoutRound returns the round of the knockout final, or 0 while the final
// has not been scheduled.
func finalKnockoutRound(sessions []*models.Session) int {
	last := 0
	for _, s := range sessions {
		if s.Phase == models.PhaseKnockout {
			last = max(last, s.Round)
		}
	}
	matches := 0
	for _, s := range sessions {
		if s.Phase == models.PhaseKnockout && s.Round == last && !s.Bronze {
			matches++
		}
	}
	if matches != 1 {
		return 0
	}
	return last
}

// applyFinalBonus separates the places decided in the last knockout round:
// final winner, final loser, bronze winner, bronze loser.
func applyFinalBonus(s *models.Session, win, loss *line) {
	if s.Bronze {
		win.knockoutKey = s.Round*4 + 1
		loss.knockoutKey = s.Round * 4
		return
	}
	win.knockoutKey = s.Round*4 + 3
	loss.knockoutKey = s.Round*4 + 2
}

func addGoals(l *line, scored, conceded int) {
	l.played = true
	l.entry.Played++
	l.entry.GoalsFor += scored
	l.entry.GoalsAgainst += conceded
	l.entry.GoalDifference = l.entry.GoalsFor - l.entry.GoalsAgainst
}

func completed(tournamentID int, s *models.Session) (bool, error) {
	if s.Status == models.SessionCompleted && s.Result == nil {
		return false, apperrors.DataIntegrity(tournamentID, s.ID, apperrors.InvariantRoundComplete, "session is marked completed but has no result")
	}
	return s.IsComplete(), nil
}

func unknownParticipant(tournamentID int, s *models.Session, id int) error {
	return apperrors.DataIntegrity(tournamentID, s.ID, apperrors.InvariantParticipantsUnique, "participant %d is not enrolled in the tournament", id)
}
