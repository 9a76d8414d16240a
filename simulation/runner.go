package simulation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/tournament-engine/gameconfig"
	"github.com/Dosada05/tournament-engine/ledger"
	"github.com/Dosada05/tournament-engine/models"
	"github.com/Dosada05/tournament-engine/repositories"
	"github.com/Dosada05/tournament-engine/services"
	"github.com/Dosada05/tournament-engine/storage"
)

// Отметка времени для in-memory хранилища, чтобы отчёт не зависел от часов.
var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type SessionRow struct {
	Phase        models.Phase              `json:"phase"`
	Round        int                       `json:"round"`
	Slot         int                       `json:"slot"`
	Bye          bool                      `json:"bye,omitempty"`
	Participants []int                     `json:"participants"`
	WinnerID     *int                      `json:"winner_id,omitempty"`
	Scores       []models.ParticipantScore `json:"scores"`
}

type RankingRow struct {
	ParticipantID int      `json:"participant_id"`
	Rank          int      `json:"rank"`
	Points        int      `json:"points"`
	Wins          int      `json:"wins"`
	Draws         int      `json:"draws"`
	Losses        int      `json:"losses"`
	Score         *float64 `json:"score,omitempty"`
}

type RewardRow struct {
	ParticipantID int                `json:"participant_id"`
	Placement     int                `json:"placement"`
	XP            int                `json:"xp"`
	Credits       int                `json:"credits"`
	SkillPoints   models.SkillPoints `json:"skill_points,omitempty"`
	Badges        []models.BadgeType `json:"badges,omitempty"`
}

type Report struct {
	Name           string         `json:"name"`
	Format         models.Format  `json:"format"`
	Seed           uint64         `json:"seed"`
	GameConfigHash string         `json:"game_config_hash"`
	Submissions    int            `json:"submissions"`
	Outcomes       map[string]int `json:"outcomes"`
	Sessions       []SessionRow   `json:"sessions"`
	Ranking        []RankingRow   `json:"ranking"`
	Rewards        []RewardRow    `json:"rewards"`
	Archived       bool           `json:"archived"`
}

// Run plays the scenario from creation to reward distribution. The same scenario and
// seed always give the same report.
func Run(ctx context.Context, sc *Scenario, logger *slog.Logger) (*Report, error) {
	if logger == nil {
		logger = slog.Default()
	}
	mem := repositories.NewMemoryStore().WithClock(func() time.Time { return epoch })
	store := services.NewMemoryStore(mem)
	archive := storage.NewMemoryArchive()

	tournaments := services.NewTournamentService(store, nil, logger)
	progression := services.NewProgressionService(store, nil, nil, logger)
	rewards := services.NewRewardService(store, services.RewardDeps{
		Ledger:  ledger.NewLogLedger(logger),
		Archive: archive,
	}, logger)

	gameRaw, err := rawConfig(sc.GameConfig)
	if err != nil {
		return nil, err
	}
	rewardRaw, err := rawConfig(sc.RewardConfig)
	if err != nil {
		return nil, err
	}

	t, err := tournaments.Create(ctx, services.CreateTournamentInput{
		Name:         sc.Name,
		Format:       sc.Format,
		WinnerCount:  sc.WinnerCount,
		GameConfig:   gameRaw,
		RewardConfig: rewardRaw,
	})
	if err != nil {
		return nil, fmt.Errorf("create tournament: %w", err)
	}
	cfg, err := gameconfig.ParseGameConfig(t.GameConfig, t.Format)
	if err != nil {
		return nil, err
	}
	seed := sc.Seed
	if seed == nil {
		seed = cfg.Seed
	}
	rng := gameconfig.NewRNG(seed)

	if _, err := tournaments.OpenRegistration(ctx, t.ID); err != nil {
		return nil, fmt.Errorf("open registration: %w", err)
	}
	for _, pid := range sc.Participants {
		if _, err := tournaments.Enroll(ctx, t.ID, pid); err != nil {
			return nil, fmt.Errorf("enroll %d: %w", pid, err)
		}
	}
	if _, err := tournaments.GenerateInitialRound(ctx, t.ID); err != nil {
		return nil, fmt.Errorf("generate initial round: %w", err)
	}

	report := &Report{
		Name:           sc.Name,
		Format:         sc.Format,
		Seed:           rng.Seed(),
		GameConfigHash: t.GameConfigHash,
		Outcomes:       map[string]int{},
	}

	// Каждый проход играет все запланированные сессии; новые раунды появляются по ходу.
	for pass := 0; ; pass++ {
		if pass > 4*len(sc.Participants)+8 {
			return nil, fmt.Errorf("tournament %d did not finish", t.ID)
		}
		current, err := tournaments.Get(ctx, t.ID)
		if err != nil {
			return nil, err
		}
		if current.Status == models.StatusCompleted {
			break
		}
		sessions, err := tournaments.ListSessions(ctx, t.ID)
		if err != nil {
			return nil, err
		}
		played := 0
		for _, s := range sessions {
			if s.Status != models.SessionScheduled {
				continue
			}
			outcome, err := progression.SubmitResult(ctx, s.ID, simulate(rng, cfg, s))
			if err != nil {
				return nil, fmt.Errorf("submit session %d: %w", s.ID, err)
			}
			report.Submissions++
			report.Outcomes[string(outcome.State)]++
			played++
		}
		if played == 0 {
			return nil, fmt.Errorf("tournament %d is stuck with no scheduled sessions", t.ID)
		}
	}

	dist, err := rewards.Distribute(ctx, t.ID)
	if err != nil {
		return nil, fmt.Errorf("distribute rewards: %w", err)
	}
	rewards.Wait()

	sessions, err := tournaments.ListSessions(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	for _, s := range sessions {
		row := SessionRow{Phase: s.Phase, Round: s.Round, Slot: s.Slot, Bye: s.Bye, Participants: s.ParticipantIDs}
		if s.Result != nil {
			row.WinnerID = s.Result.WinnerID
			row.Scores = s.Result.Scores
		}
		report.Sessions = append(report.Sessions, row)
	}

	ranking, err := mem.Rankings().ListByTournament(ctx, nil, t.ID)
	if err != nil {
		return nil, err
	}
	for _, e := range ranking {
		report.Ranking = append(report.Ranking, RankingRow{
			ParticipantID: e.ParticipantID,
			Rank:          e.Rank,
			Points:        e.Points,
			Wins:          e.Wins,
			Draws:         e.Draws,
			Losses:        e.Losses,
			Score:         e.Score,
		})
	}

	badges := map[int][]models.BadgeType{}
	for _, b := range dist.Badges {
		badges[b.ParticipantID] = append(badges[b.ParticipantID], b.Type)
	}
	for _, r := range dist.Rewards {
		report.Rewards = append(report.Rewards, RewardRow{
			ParticipantID: r.ParticipantID,
			Placement:     r.Placement,
			XP:            r.XPAwarded,
			Credits:       r.CreditsAwarded,
			SkillPoints:   r.SkillPoints,
			Badges:        badges[r.ParticipantID],
		})
	}

	_, err = archive.GetObject(ctx, services.ArchiveKey(t.ID))
	report.Archived = err == nil

	logger.InfoContext(ctx, "simulation finished",
		slog.Int("tournament_id", t.ID),
		slog.Int("submissions", report.Submissions),
		slog.Uint64("seed", report.Seed),
	)
	return report, nil
}

func simulate(rng *gameconfig.RNG, cfg gameconfig.GameConfig, s *models.Session) *models.Result {
	if s.Phase == models.PhaseIndividualRanking {
		return gameconfig.SimulateIndividual(rng, cfg, s.ParticipantIDs)
	}
	return gameconfig.SimulateHeadToHead(rng, cfg, s.ParticipantIDs[0], s.ParticipantIDs[1], s.Phase == models.PhaseKnockout)
}
