package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Dosada05/tournament-engine/apperrors"
	"github.com/Dosada05/tournament-engine/gameconfig"
	"github.com/Dosada05/tournament-engine/models"
	"github.com/Dosada05/tournament-engine/repositories"
	"github.com/Dosada05/tournament-engine/standings"
)

type StandingsService interface {
	// GetRanking returns the stored final ranking of a finished tournament, or the live
	// table computed from the results so far.
	GetRanking(ctx context.Context, tournamentID int) ([]*models.RankingEntry, error)
	// Recompute recalculates and stores the ranking. Rejected once rewards are out.
	Recompute(ctx context.Context, tournamentID int) ([]*models.RankingEntry, error)
}

type standingsService struct {
	store  Store
	logger *slog.Logger
}

func NewStandingsService(store Store, logger *slog.Logger) StandingsService {
	return &standingsService{store: store, logger: logger}
}

func (s *standingsService) GetRanking(ctx context.Context, tournamentID int) ([]*models.RankingEntry, error) {
	t, err := loadTournament(ctx, s.store, nil, tournamentID, false)
	if err != nil {
		return nil, err
	}
	if t.Status == models.StatusCompleted || t.Status == models.StatusRewardsDistributed {
		return s.store.Rankings.ListByTournament(ctx, nil, t.ID)
	}
	return s.compute(ctx, nil, t)
}

func (s *standingsService) Recompute(ctx context.Context, tournamentID int) ([]*models.RankingEntry, error) {
	var ranking []*models.RankingEntry
	err := s.store.Tx.RunInTx(ctx, func(ctx context.Context, exec repositories.SQLExecutor) error {
		t, err := loadTournament(ctx, s.store, exec, tournamentID, true)
		if err != nil {
			return err
		}
		switch t.Status {
		case models.StatusRewardsDistributed:
			return apperrors.Validation(t.ID, 0, apperrors.InvariantRankingFrozen, "ranking is frozen once rewards are distributed")
		case models.StatusDraft, models.StatusRegistrationOpen, models.StatusCancelled:
			return apperrors.Validation(t.ID, 0, apperrors.InvariantStatusForward, "tournament is %s, there is nothing to rank", t.Status)
		}
		ranking, err = s.compute(ctx, exec, t)
		if err != nil {
			return err
		}
		return s.store.Rankings.Upsert(ctx, exec, ranking)
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "ranking recomputed", slog.Int("tournament_id", tournamentID), slog.Int("entries", len(ranking)))
	return ranking, nil
}

func (s *standingsService) compute(ctx context.Context, exec repositories.SQLExecutor, t *models.Tournament) ([]*models.RankingEntry, error) {
	cfg, err := gameconfig.ParseGameConfig(t.GameConfig, t.Format)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrValidation, t.ID, 0, "", err)
	}
	sessions, err := s.store.Sessions.ListByTournament(ctx, exec, t.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions of tournament %d: %w", t.ID, err)
	}
	return standings.Compute(standings.Input{
		TournamentID: t.ID,
		Format:       t.Format,
		Participants: t.Participants,
		Sessions:     sessions,
		Points:       cfg.Points,
		ScoreOrder:   cfg.ScoreOrder,
	})
}
