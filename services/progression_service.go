package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/Dosada05/tournament-engine/apperrors"
	"github.com/Dosada05/tournament-engine/gameconfig"
	"github.com/Dosada05/tournament-engine/models"
	"github.com/Dosada05/tournament-engine/progression"
	"github.com/Dosada05/tournament-engine/repositories"
)

type ProgressionService interface {
	// SubmitResult records the result of a session and moves the tournament forward
	// when that completes a round. An identical resubmission is a no-op that reports
	// the current progression again.
	SubmitResult(ctx context.Context, sessionID int, result *models.Result) (*progression.Outcome, error)
	// Execute applies a progression plan. It is the only place that creates later
	// rounds or finalizes a tournament.
	Execute(ctx context.Context, plan *progression.ProgressionPlan) (*progression.Outcome, error)
}

type progressionService struct {
	store    Store
	notifier Notifier
	metrics  Metrics
	logger   *slog.Logger
	now      func() time.Time
}

func NewProgressionService(store Store, notifier Notifier, metrics Metrics, logger *slog.Logger) ProgressionService {
	return &progressionService{
		store:    store,
		notifier: notifierOrNop(notifier),
		metrics:  metricsOrNop(metrics),
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *progressionService) SubmitResult(ctx context.Context, sessionID int, result *models.Result) (*progression.Outcome, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveSubmit(time.Since(start)) }()

	sess, err := s.store.Sessions.GetByID(ctx, nil, sessionID)
	if err != nil {
		return nil, handleRepositoryError(err, sessionID)
	}
	t, err := loadTournament(ctx, s.store, nil, sess.TournamentID, false)
	if err != nil {
		return nil, err
	}
	if err := validateResult(t, sess, result); err != nil {
		return nil, err
	}

	recorded, err := s.record(ctx, t, sess, result)
	if err != nil {
		return nil, err
	}
	if recorded {
		s.logger.InfoContext(ctx, "result recorded",
			slog.Int("tournament_id", t.ID),
			slog.Int("session_id", sess.ID),
			slog.String("phase", string(sess.Phase)),
			slog.Int("round", sess.Round),
		)
		s.notifier.Publish(t.ID, EventResultRecorded, sess)
	}

	// Перечитываем состояние после записи: другие результаты могли прийти параллельно.
	t, err = loadTournament(ctx, s.store, nil, t.ID, false)
	if err != nil {
		return nil, err
	}
	if t.Status == models.StatusCompleted || t.Status == models.StatusRewardsDistributed {
		return s.finalizedOutcome(ctx, nil, t.ID)
	}

	cfg, err := gameconfig.ParseGameConfig(t.GameConfig, t.Format)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrValidation, t.ID, 0, "", err)
	}
	sessions, err := s.store.Sessions.ListByTournament(ctx, nil, t.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions of tournament %d: %w", t.ID, err)
	}
	var current *models.Session
	for _, m := range sessions {
		if m.ID == sess.ID {
			current = m
			break
		}
	}
	if current == nil {
		return nil, apperrors.DataIntegrity(t.ID, sess.ID, apperrors.InvariantRoundComplete, "session disappeared after its result was recorded")
	}

	plan, err := progression.Calculate(progression.Input{
		Tournament: t,
		Config:     cfg,
		Session:    current,
		Sessions:   sessions,
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrDataIntegrity) {
			s.logger.ErrorContext(ctx, "progression halted", slog.Int("tournament_id", t.ID), slog.Int("session_id", sess.ID), slog.Any("error", err))
		}
		return nil, err
	}

	switch p := plan.(type) {
	case *progression.WaitPlan:
		out := p.Outcome()
		s.metrics.ProgressionOutcome(string(out.State))
		return out, nil
	case *progression.ProgressionPlan:
		return s.Execute(ctx, p)
	}
	return nil, fmt.Errorf("unexpected progression plan %T", plan)
}

// record stores the result unless the session already has it. It reports whether a
// write happened.
func (s *progressionService) record(ctx context.Context, t *models.Tournament, sess *models.Session, result *models.Result) (bool, error) {
	if sess.IsComplete() {
		if !sess.Result.Equal(result) {
			return false, apperrors.Validation(t.ID, sess.ID, apperrors.InvariantResultImmutable, "session already has a different result")
		}
		return false, nil
	}

	err := s.store.Tx.RunInTx(ctx, func(ctx context.Context, exec repositories.SQLExecutor) error {
		locked, err := s.store.Tournaments.GetForUpdate(ctx, exec, t.ID)
		if err != nil {
			return handleRepositoryError(err, t.ID)
		}
		if locked.Status != models.StatusInProgress {
			return apperrors.Validation(t.ID, sess.ID, apperrors.InvariantStatusForward, "tournament is %s, results are not accepted", locked.Status)
		}
		return s.store.Sessions.RecordResult(ctx, exec, sess.ID, result, s.now())
	})
	if errors.Is(err, repositories.ErrSessionAlreadyCompleted) {
		stored, gerr := s.store.Sessions.GetByID(ctx, nil, sess.ID)
		if gerr != nil {
			return false, gerr
		}
		if !stored.Result.Equal(result) {
			return false, apperrors.Validation(t.ID, sess.ID, apperrors.InvariantResultImmutable, "session already has a different result")
		}
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *progressionService) Execute(ctx context.Context, plan *progression.ProgressionPlan) (*progression.Outcome, error) {
	if plan == nil {
		return nil, errors.New("nil progression plan")
	}

	var out *progression.Outcome
	err := s.store.Tx.RunInTx(ctx, func(ctx context.Context, exec repositories.SQLExecutor) error {
		t, err := s.store.Tournaments.GetForUpdate(ctx, exec, plan.TournamentID)
		if err != nil {
			return handleRepositoryError(err, plan.TournamentID)
		}
		if plan.Finalize {
			out, err = s.finalize(ctx, exec, t, plan)
		} else {
			out, err = s.createRound(ctx, exec, t, plan)
		}
		return err
	})
	if errors.Is(err, apperrors.ErrConcurrencyConflict) {
		s.logger.WarnContext(ctx, "progression raced, reading the winner's result",
			slog.Int("tournament_id", plan.TournamentID), slog.Any("error", err))
		out, err = s.recoverConflict(ctx, plan, err)
	}
	if err != nil {
		return nil, err
	}

	s.metrics.ProgressionOutcome(string(out.State))
	if !out.AlreadyProgressed {
		switch out.State {
		case progression.StateNextRoundCreated:
			s.logger.InfoContext(ctx, "round created",
				slog.Int("tournament_id", out.TournamentID),
				slog.String("phase", string(out.Phase)),
				slog.Int("round", out.Round),
				slog.Int("sessions", len(out.Sessions)),
			)
			s.notifier.Publish(out.TournamentID, EventRoundCreated, out.Sessions)
		case progression.StateTournamentFinalized:
			s.logger.InfoContext(ctx, "tournament finalized", slog.Int("tournament_id", out.TournamentID))
			s.notifier.Publish(out.TournamentID, EventTournamentFinalized, out.Ranking)
		}
	}
	return out, nil
}

func (s *progressionService) createRound(ctx context.Context, exec repositories.SQLExecutor, t *models.Tournament, plan *progression.ProgressionPlan) (*progression.Outcome, error) {
	if t.Status != models.StatusInProgress {
		return nil, apperrors.Validation(t.ID, 0, apperrors.InvariantStatusForward, "tournament is %s, no further rounds are created", t.Status)
	}
	existing, err := s.store.Sessions.ListRound(ctx, exec, t.ID, plan.NextPhase, plan.NextRound)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return roundOutcome(t.ID, plan, existing, true), nil
	}
	if err := s.store.Sessions.CreateBatch(ctx, exec, plan.Sessions); err != nil {
		if errors.Is(err, repositories.ErrRoundAlreadyExists) {
			return nil, apperrors.Conflict(t.ID, apperrors.InvariantNextRoundOnce, err)
		}
		return nil, fmt.Errorf("failed to create %s round %d of tournament %d: %w", plan.NextPhase, plan.NextRound, t.ID, err)
	}
	return roundOutcome(t.ID, plan, plan.Sessions, false), nil
}

func (s *progressionService) finalize(ctx context.Context, exec repositories.SQLExecutor, t *models.Tournament, plan *progression.ProgressionPlan) (*progression.Outcome, error) {
	switch t.Status {
	case models.StatusCompleted, models.StatusRewardsDistributed:
		return s.finalizedOutcome(ctx, exec, t.ID)
	case models.StatusInProgress:
	default:
		return nil, apperrors.Validation(t.ID, 0, apperrors.InvariantStatusForward, "tournament is %s and cannot be finalized", t.Status)
	}
	if err := transition(ctx, s.store, exec, t, models.StatusCompleted); err != nil {
		return nil, err
	}
	if err := s.store.Rankings.Upsert(ctx, exec, plan.Ranking); err != nil {
		return nil, fmt.Errorf("failed to store ranking of tournament %d: %w", t.ID, err)
	}
	return &progression.Outcome{
		State:        progression.StateTournamentFinalized,
		TournamentID: t.ID,
		Phase:        plan.CompletedPhase,
		Round:        plan.CompletedRound,
		Ranking:      plan.Ranking,
	}, nil
}

// recoverConflict turns a lost race into the outcome the winner produced.
func (s *progressionService) recoverConflict(ctx context.Context, plan *progression.ProgressionPlan, cause error) (*progression.Outcome, error) {
	if plan.Finalize {
		t, err := s.store.Tournaments.GetByID(ctx, nil, plan.TournamentID)
		if err != nil {
			return nil, err
		}
		if t.Status == models.StatusCompleted || t.Status == models.StatusRewardsDistributed {
			return s.finalizedOutcome(ctx, nil, t.ID)
		}
		return nil, cause
	}
	existing, err := s.store.Sessions.ListRound(ctx, nil, plan.TournamentID, plan.NextPhase, plan.NextRound)
	if err != nil {
		return nil, err
	}
	if len(existing) == 0 {
		return nil, cause
	}
	return roundOutcome(plan.TournamentID, plan, existing, true), nil
}

func (s *progressionService) finalizedOutcome(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) (*progression.Outcome, error) {
	ranking, err := s.store.Rankings.ListByTournament(ctx, exec, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to read ranking of tournament %d: %w", tournamentID, err)
	}
	return &progression.Outcome{
		State:             progression.StateTournamentFinalized,
		TournamentID:      tournamentID,
		Ranking:           ranking,
		AlreadyProgressed: true,
	}, nil
}

func roundOutcome(tournamentID int, plan *progression.ProgressionPlan, sessions []*models.Session, already bool) *progression.Outcome {
	return &progression.Outcome{
		State:             progression.StateNextRoundCreated,
		TournamentID:      tournamentID,
		Phase:             plan.NextPhase,
		Round:             plan.NextRound,
		Sessions:          sessions,
		AlreadyProgressed: already,
	}
}

// validateResult checks that the result fits the session: one score per participant,
// a winner taken from the session, and no draw where the phase needs a winner.
func validateResult(t *models.Tournament, sess *models.Session, result *models.Result) error {
	if result == nil {
		return apperrors.Validation(t.ID, sess.ID, apperrors.InvariantResultShape, "result is required")
	}
	if sess.Bye {
		return apperrors.Validation(t.ID, sess.ID, apperrors.InvariantResultShape, "walkover sessions do not take results")
	}
	if len(result.Scores) != len(sess.ParticipantIDs) {
		return apperrors.Validation(t.ID, sess.ID, apperrors.InvariantResultShape,
			"got %d scores for %d participants", len(result.Scores), len(sess.ParticipantIDs))
	}
	seen := make(map[int]bool, len(result.Scores))
	for _, sc := range result.Scores {
		if !sess.HasParticipant(sc.ParticipantID) {
			return apperrors.Validation(t.ID, sess.ID, apperrors.InvariantResultShape, "participant %d is not in this session", sc.ParticipantID)
		}
		if seen[sc.ParticipantID] {
			return apperrors.Validation(t.ID, sess.ID, apperrors.InvariantResultShape, "participant %d scored twice", sc.ParticipantID)
		}
		seen[sc.ParticipantID] = true
		if math.IsNaN(sc.Score) || math.IsInf(sc.Score, 0) {
			return apperrors.Validation(t.ID, sess.ID, apperrors.InvariantResultShape, "score of participant %d is not a number", sc.ParticipantID)
		}
	}
	if result.WinnerID != nil && !sess.HasParticipant(*result.WinnerID) {
		return apperrors.Validation(t.ID, sess.ID, apperrors.InvariantWinnerPresent, "winner %d is not in this session", *result.WinnerID)
	}
	if sess.Phase == models.PhaseIndividualRanking {
		return nil
	}

	for _, sc := range result.Scores {
		if sc.Score < 0 || sc.Score != math.Trunc(sc.Score) {
			return apperrors.Validation(t.ID, sess.ID, apperrors.InvariantResultShape, "score %g of participant %d must be a whole non-negative number", sc.Score, sc.ParticipantID)
		}
	}
	a, b := result.Scores[0].Score, result.Scores[1].Score
	if result.WinnerID == nil {
		if sess.Phase == models.PhaseKnockout {
			return apperrors.Validation(t.ID, sess.ID, apperrors.InvariantKnockoutNoDraw, "knockout sessions need a winner")
		}
		if a != b {
			return apperrors.Validation(t.ID, sess.ID, apperrors.InvariantResultShape, "scores %g:%g need a winner", a, b)
		}
		return nil
	}

	winnerScore, _ := result.ScoreOf(*result.WinnerID)
	loser, _ := sess.Opponent(*result.WinnerID)
	loserScore, _ := result.ScoreOf(loser)
	// В плей-офф равный счёт допустим (серия пенальти), в остальных фазах победитель забивает больше.
	if winnerScore < loserScore || (winnerScore == loserScore && sess.Phase != models.PhaseKnockout) {
		return apperrors.Validation(t.ID, sess.ID, apperrors.InvariantResultShape,
			"winner %d scored %g against %g", *result.WinnerID, winnerScore, loserScore)
	}
	return nil
}
