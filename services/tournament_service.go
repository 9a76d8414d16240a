package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Dosada05/tournament-engine/apperrors"
	"github.com/Dosada05/tournament-engine/brackets"
	"github.com/Dosada05/tournament-engine/gameconfig"
	"github.com/Dosada05/tournament-engine/models"
	"github.com/Dosada05/tournament-engine/progression"
	"github.com/Dosada05/tournament-engine/repositories"
)

type CreateTournamentInput struct {
	Name            string          `json:"name"`
	Format          models.Format   `json:"format"`
	WinnerCount     int             `json:"winner_count"`
	MaxParticipants int             `json:"max_participants"`
	GameConfig      json.RawMessage `json:"game_config,omitempty"`
	RewardConfig    json.RawMessage `json:"reward_config,omitempty"`
}

type TournamentService interface {
	Create(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error)
	Get(ctx context.Context, id int) (*models.Tournament, error)
	List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]*models.Tournament, error)
	OpenRegistration(ctx context.Context, id int) (*models.Tournament, error)
	Enroll(ctx context.Context, tournamentID, participantID int) (*models.Participant, error)
	// GenerateInitialRound closes registration and creates round 1. Calling it again on a
	// started tournament returns the sessions already created.
	GenerateInitialRound(ctx context.Context, id int) ([]*models.Session, error)
	Cancel(ctx context.Context, id int) (*models.Tournament, error)
	ListSessions(ctx context.Context, id int) ([]*models.Session, error)
}

type tournamentService struct {
	store    Store
	notifier Notifier
	logger   *slog.Logger
}

func NewTournamentService(store Store, notifier Notifier, logger *slog.Logger) TournamentService {
	return &tournamentService{
		store:    store,
		notifier: notifierOrNop(notifier),
		logger:   logger,
	}
}

func (s *tournamentService) Create(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrTournamentNameRequired
	}
	if !input.Format.Valid() {
		return nil, apperrors.Validation(0, 0, apperrors.InvariantFormatKnown, "unknown format %q", string(input.Format))
	}
	if input.MaxParticipants < 0 {
		return nil, ErrTournamentInvalidCapacity
	}
	winnerCount := input.WinnerCount
	if winnerCount == 0 {
		winnerCount = 1
	}
	if winnerCount < 0 {
		return nil, ErrTournamentInvalidWinnerCount
	}

	gameCfg, err := gameconfig.ParseGameConfig(input.GameConfig, input.Format)
	if err != nil {
		return nil, err
	}
	rewardCfg, err := gameconfig.ParseRewardConfig(input.RewardConfig)
	if err != nil {
		return nil, err
	}

	// Сохраняем нормализованные документы, чтобы хэш и повтор турнира не зависели от форматирования.
	gameRaw, err := json.Marshal(gameCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode game config: %w", err)
	}
	rewardRaw, err := json.Marshal(rewardCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode reward config: %w", err)
	}
	hash, err := gameconfig.Fingerprint(gameCfg)
	if err != nil {
		return nil, err
	}

	t := &models.Tournament{
		Name:            name,
		Format:          input.Format,
		Status:          models.StatusDraft,
		WinnerCount:     winnerCount,
		MaxParticipants: input.MaxParticipants,
		GameConfig:      gameRaw,
		RewardConfig:    rewardRaw,
		GameConfigHash:  hash,
	}
	if err := s.store.Tournaments.Create(ctx, nil, t); err != nil {
		return nil, err
	}
	t.Participants = []int{}

	s.logger.InfoContext(ctx, "tournament created",
		slog.Int("tournament_id", t.ID),
		slog.String("format", string(t.Format)),
		slog.String("game_config_hash", hash),
	)
	return t, nil
}

func (s *tournamentService) Get(ctx context.Context, id int) (*models.Tournament, error) {
	return loadTournament(ctx, s.store, nil, id, false)
}

func (s *tournamentService) List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]*models.Tournament, error) {
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 50
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.store.Tournaments.List(ctx, nil, filter)
}

func (s *tournamentService) OpenRegistration(ctx context.Context, id int) (*models.Tournament, error) {
	var t *models.Tournament
	err := s.store.Tx.RunInTx(ctx, func(ctx context.Context, exec repositories.SQLExecutor) error {
		var err error
		t, err = loadTournament(ctx, s.store, exec, id, true)
		if err != nil {
			return err
		}
		return transition(ctx, s.store, exec, t, models.StatusRegistrationOpen)
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *tournamentService) Enroll(ctx context.Context, tournamentID, participantID int) (*models.Participant, error) {
	if participantID <= 0 {
		return nil, ErrInvalidParticipantID
	}
	p := &models.Participant{TournamentID: tournamentID, ParticipantID: participantID}
	err := s.store.Tx.RunInTx(ctx, func(ctx context.Context, exec repositories.SQLExecutor) error {
		t, err := loadTournament(ctx, s.store, exec, tournamentID, true)
		if err != nil {
			return err
		}
		if t.Status != models.StatusRegistrationOpen {
			return fmt.Errorf("%w: tournament %d is %s", ErrRegistrationNotOpen, t.ID, t.Status)
		}
		if t.MaxParticipants > 0 && len(t.Participants) >= t.MaxParticipants {
			return fmt.Errorf("%w: %d of %d places taken", ErrTournamentFull, len(t.Participants), t.MaxParticipants)
		}
		if err := s.store.Participants.Enroll(ctx, exec, p); err != nil {
			return handleRepositoryError(err, tournamentID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "participant enrolled",
		slog.Int("tournament_id", tournamentID),
		slog.Int("participant_id", participantID),
		slog.Int("seed", p.Seed),
	)
	return p, nil
}

func (s *tournamentService) GenerateInitialRound(ctx context.Context, id int) ([]*models.Session, error) {
	var (
		sessions  []*models.Session
		finalized bool
		started   bool
	)
	err := s.store.Tx.RunInTx(ctx, func(ctx context.Context, exec repositories.SQLExecutor) error {
		t, err := loadTournament(ctx, s.store, exec, id, true)
		if err != nil {
			return err
		}
		if t.Status != models.StatusRegistrationOpen {
			if t.Status == models.StatusDraft || t.Status == models.StatusCancelled {
				return fmt.Errorf("%w: cannot start tournament %d in status %s", ErrTournamentInvalidStatusTransition, t.ID, t.Status)
			}
			sessions, err = s.store.Sessions.ListByTournament(ctx, exec, t.ID)
			return err
		}

		cfg, err := gameconfig.ParseGameConfig(t.GameConfig, t.Format)
		if err != nil {
			return apperrors.Wrap(apperrors.ErrValidation, t.ID, 0, "", err)
		}
		sessions, err = brackets.Generate(t.ID, t.Participants, t.Format, cfg)
		if err != nil {
			return err
		}

		if err := transition(ctx, s.store, exec, t, models.StatusInProgress); err != nil {
			return err
		}
		started = true

		if len(t.Participants) == 1 {
			// Один участник: турнир завершается сразу.
			plan, err := progression.Finalize(progression.Input{Tournament: t, Config: cfg}, t.Format.Phases()[0], 0)
			if err != nil {
				return err
			}
			if err := transition(ctx, s.store, exec, t, models.StatusCompleted); err != nil {
				return err
			}
			finalized = true
			return s.store.Rankings.Upsert(ctx, exec, plan.Ranking)
		}

		if err := s.store.Sessions.CreateBatch(ctx, exec, sessions); err != nil {
			if errors.Is(err, repositories.ErrRoundAlreadyExists) {
				return apperrors.Conflict(t.ID, apperrors.InvariantNextRoundOnce, err)
			}
			return fmt.Errorf("failed to save initial sessions of tournament %d: %w", t.ID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if started {
		s.logger.InfoContext(ctx, "tournament started",
			slog.Int("tournament_id", id),
			slog.Int("sessions", len(sessions)),
			slog.Bool("finalized", finalized),
		)
		if finalized {
			s.notifier.Publish(id, EventTournamentFinalized, map[string]int{"tournament_id": id})
		} else {
			s.notifier.Publish(id, EventRoundCreated, sessions)
		}
	}
	return sessions, nil
}

func (s *tournamentService) Cancel(ctx context.Context, id int) (*models.Tournament, error) {
	var t *models.Tournament
	err := s.store.Tx.RunInTx(ctx, func(ctx context.Context, exec repositories.SQLExecutor) error {
		var err error
		t, err = loadTournament(ctx, s.store, exec, id, true)
		if err != nil {
			return err
		}
		return transition(ctx, s.store, exec, t, models.StatusCancelled)
	})
	if err != nil {
		return nil, err
	}
	s.logger.WarnContext(ctx, "tournament cancelled", slog.Int("tournament_id", id))
	return t, nil
}

func (s *tournamentService) ListSessions(ctx context.Context, id int) ([]*models.Session, error) {
	if _, err := s.store.Tournaments.GetByID(ctx, nil, id); err != nil {
		return nil, handleRepositoryError(err, id)
	}
	return s.store.Sessions.ListByTournament(ctx, nil, id)
}
