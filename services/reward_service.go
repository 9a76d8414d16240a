package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Dosada05/tournament-engine/apperrors"
	"github.com/Dosada05/tournament-engine/gameconfig"
	"github.com/Dosada05/tournament-engine/models"
	"github.com/Dosada05/tournament-engine/repositories"
	"github.com/Dosada05/tournament-engine/rewards"
)

// ledgerNamespace scopes the idempotency keys sent to the credit ledger.
var ledgerNamespace = uuid.MustParse("6f1c7a52-3e4b-4f0e-9d51-2b8f1e0c9a77")

const sideEffectTimeout = 30 * time.Second

// Distribution is what distribute_rewards returns. AlreadyDistributed marks a repeated
// call that found the rewards in place and wrote nothing.
type Distribution struct {
	TournamentID       int                           `json:"tournament_id"`
	Rewards            []*models.ParticipationReward `json:"rewards"`
	Badges             []*models.Badge               `json:"badges"`
	AlreadyDistributed bool                          `json:"already_distributed"`
}

// ArchiveSnapshot is the audit record uploaded once rewards are out.
type ArchiveSnapshot struct {
	Tournament *models.Tournament            `json:"tournament"`
	Sessions   []*models.Session             `json:"sessions"`
	Ranking    []*models.RankingEntry        `json:"ranking"`
	Rewards    []*models.ParticipationReward `json:"rewards"`
	Badges     []*models.Badge               `json:"badges"`
	ArchivedAt time.Time                     `json:"archived_at"`
}

type RewardService interface {
	// Distribute pays out a completed tournament exactly once. Repeated calls return the
	// stored rewards with AlreadyDistributed set.
	Distribute(ctx context.Context, tournamentID int) (*Distribution, error)
	Get(ctx context.Context, tournamentID int) (*Distribution, error)
	// SweepCompleted distributes rewards for every tournament left in COMPLETED.
	SweepCompleted(ctx context.Context) (int, error)
	// Wait blocks until pending ledger, notification and archive calls are done.
	Wait()
}

type RewardDeps struct {
	Ledger   CreditLedger
	Notifier Notifier
	Archive  ArchiveStore
	Metrics  Metrics
}

type rewardService struct {
	store    Store
	ledger   CreditLedger
	notifier Notifier
	archive  ArchiveStore
	metrics  Metrics
	logger   *slog.Logger
	now      func() time.Time

	pending sync.WaitGroup
}

func NewRewardService(store Store, deps RewardDeps, logger *slog.Logger) RewardService {
	return &rewardService{
		store:    store,
		ledger:   deps.Ledger,
		notifier: notifierOrNop(deps.Notifier),
		archive:  deps.Archive,
		metrics:  metricsOrNop(deps.Metrics),
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *rewardService) Distribute(ctx context.Context, tournamentID int) (*Distribution, error) {
	var (
		written []*models.ParticipationReward
		skipped int
		t       *models.Tournament
	)
	err := s.store.Tx.RunInTx(ctx, func(ctx context.Context, exec repositories.SQLExecutor) error {
		var err error
		t, err = loadTournament(ctx, s.store, exec, tournamentID, true)
		if err != nil {
			return err
		}
		switch t.Status {
		case models.StatusRewardsDistributed:
			return apperrors.AlreadyDistributed(t.ID)
		case models.StatusCompleted:
		default:
			return apperrors.Validation(t.ID, 0, apperrors.InvariantStatusForward, "tournament is %s, rewards need a completed tournament", t.Status)
		}

		ranking, err := s.store.Rankings.ListByTournament(ctx, exec, t.ID)
		if err != nil {
			return fmt.Errorf("failed to read ranking of tournament %d: %w", t.ID, err)
		}
		if len(ranking) != len(t.Participants) {
			return apperrors.DataIntegrity(t.ID, 0, apperrors.InvariantRankingTotal,
				"ranking has %d entries for %d participants", len(ranking), len(t.Participants))
		}
		cfg, err := gameconfig.ParseRewardConfig(t.RewardConfig)
		if err != nil {
			return apperrors.Wrap(apperrors.ErrValidation, t.ID, 0, "", err)
		}
		awards, err := rewards.Plan(rewards.Input{Tournament: t, Ranking: ranking, Config: cfg, AwardedAt: s.now()})
		if err != nil {
			return err
		}

		for _, a := range awards {
			exists, err := s.store.Rewards.Exists(ctx, exec, t.ID, a.Reward.ParticipantID)
			if err != nil {
				return err
			}
			if exists {
				skipped++
				continue
			}
			created, err := s.store.Rewards.Create(ctx, exec, a.Reward)
			if err != nil {
				return err
			}
			if !created {
				skipped++
				continue
			}
			written = append(written, a.Reward)
			for _, b := range a.Badges {
				if _, err := s.store.Rewards.CreateBadge(ctx, exec, b); err != nil {
					return err
				}
			}
		}
		return transition(ctx, s.store, exec, t, models.StatusRewardsDistributed)
	})

	already := errors.Is(err, apperrors.ErrRewardAlreadyDistributed)
	if already {
		// Не ошибка: повторный вызов просто возвращает уже выданные награды.
		s.logger.InfoContext(ctx, "rewards already distributed", slog.Int("tournament_id", tournamentID))
		s.metrics.RewardsSkipped(1)
	} else if errors.Is(err, apperrors.ErrConcurrencyConflict) {
		// Параллельный вызов успел раньше: его награды и есть результат.
		cur, gerr := s.store.Tournaments.GetByID(ctx, nil, tournamentID)
		if gerr != nil || cur.Status != models.StatusRewardsDistributed {
			return nil, err
		}
		already = true
	} else if err != nil {
		return nil, err
	}

	dist, err := s.Get(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	dist.AlreadyDistributed = already
	if already {
		return dist, nil
	}

	s.metrics.RewardsWritten(len(written))
	if skipped > 0 {
		s.metrics.RewardsSkipped(skipped)
	}
	s.logger.InfoContext(ctx, "rewards distributed",
		slog.Int("tournament_id", tournamentID),
		slog.Int("written", len(written)),
		slog.Int("skipped", skipped),
	)
	t.Status = models.StatusRewardsDistributed
	s.dispatchSideEffects(ctx, t, written, dist)
	return dist, nil
}

func (s *rewardService) Get(ctx context.Context, tournamentID int) (*Distribution, error) {
	if _, err := s.store.Tournaments.GetByID(ctx, nil, tournamentID); err != nil {
		return nil, handleRepositoryError(err, tournamentID)
	}
	stored, err := s.store.Rewards.ListByTournament(ctx, nil, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rewards of tournament %d: %w", tournamentID, err)
	}
	badges, err := s.store.Rewards.ListBadgesByTournament(ctx, nil, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list badges of tournament %d: %w", tournamentID, err)
	}
	return &Distribution{TournamentID: tournamentID, Rewards: stored, Badges: badges}, nil
}

func (s *rewardService) SweepCompleted(ctx context.Context) (int, error) {
	status := models.StatusCompleted
	pending, err := s.store.Tournaments.List(ctx, nil, repositories.ListTournamentsFilter{Status: &status})
	if err != nil {
		return 0, fmt.Errorf("failed to list completed tournaments: %w", err)
	}

	distributed := 0
	var errs []error
	for _, t := range pending {
		if _, err := s.Distribute(ctx, t.ID); err != nil {
			s.logger.ErrorContext(ctx, "reward sweep failed", slog.Int("tournament_id", t.ID), slog.Any("error", err))
			errs = append(errs, err)
			continue
		}
		distributed++
	}
	return distributed, errors.Join(errs...)
}

func (s *rewardService) Wait() {
	s.pending.Wait()
}

// dispatchSideEffects runs the external calls after the commit. Their failures are
// logged and counted, they never undo the distribution.
func (s *rewardService) dispatchSideEffects(ctx context.Context, t *models.Tournament, written []*models.ParticipationReward, dist *Distribution) {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
		defer cancel()

		g, gCtx := errgroup.WithContext(ctx)
		g.SetLimit(8)
		if s.ledger != nil {
			for _, rw := range written {
				g.Go(func() error {
					s.credit(gCtx, t.ID, rw.ParticipantID, rw.XPAwarded, CurrencyXP)
					s.credit(gCtx, t.ID, rw.ParticipantID, rw.CreditsAwarded, CurrencyCredits)
					return nil
				})
			}
		}
		if s.archive != nil {
			g.Go(func() error {
				if err := s.archiveSnapshot(gCtx, t, dist); err != nil {
					s.metrics.SideEffectFailed("archive")
					s.logger.ErrorContext(gCtx, "archive upload failed", slog.Int("tournament_id", t.ID), slog.Any("error", err))
				}
				return nil
			})
		}
		_ = g.Wait()

		s.notifier.Publish(t.ID, EventRewardsDistributed, dist)
	}()
}

func (s *rewardService) credit(ctx context.Context, tournamentID, participantID, amount int, currency string) {
	if amount <= 0 {
		return
	}
	key := LedgerKey(tournamentID, participantID, currency)
	reason := fmt.Sprintf("tournament %d reward", tournamentID)
	if err := s.ledger.Credit(ctx, participantID, amount, currency, reason, key); err != nil {
		s.metrics.SideEffectFailed("ledger")
		s.logger.ErrorContext(ctx, "ledger credit failed",
			slog.Int("tournament_id", tournamentID),
			slog.Int("participant_id", participantID),
			slog.String("currency", currency),
			slog.String("idempotency_key", key),
			slog.Any("error", err),
		)
	}
}

func (s *rewardService) archiveSnapshot(ctx context.Context, t *models.Tournament, dist *Distribution) error {
	sessions, err := s.store.Sessions.ListByTournament(ctx, nil, t.ID)
	if err != nil {
		return err
	}
	ranking, err := s.store.Rankings.ListByTournament(ctx, nil, t.ID)
	if err != nil {
		return err
	}
	body, err := json.Marshal(ArchiveSnapshot{
		Tournament: t,
		Sessions:   sessions,
		Ranking:    ranking,
		Rewards:    dist.Rewards,
		Badges:     dist.Badges,
		ArchivedAt: s.now(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode archive of tournament %d: %w", t.ID, err)
	}
	return s.archive.PutObject(ctx, ArchiveKey(t.ID), body, "application/json")
}

// LedgerKey is the idempotency key of one credit: stable for a (tournament,
// participant, currency) triple so a retried payout is never applied twice.
func LedgerKey(tournamentID, participantID int, currency string) string {
	return uuid.NewSHA1(ledgerNamespace, []byte(fmt.Sprintf("%d:%d:%s", tournamentID, participantID, currency))).String()
}

func ArchiveKey(tournamentID int) string {
	return fmt.Sprintf("tournaments/%d/archive.json", tournamentID)
}
