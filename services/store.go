package services

import (
	"database/sql"
	"log/slog"

	"github.com/Dosada05/tournament-engine/repositories"
)

// Store bundles the repositories the services work with and the transaction runner
// they share.
type Store struct {
	Tx           repositories.TxManager
	Tournaments  repositories.TournamentRepository
	Participants repositories.ParticipantRepository
	Sessions     repositories.SessionRepository
	Rankings     repositories.RankingRepository
	Rewards      repositories.RewardRepository
}

func NewPostgresStore(db *sql.DB, logger *slog.Logger) Store {
	return Store{
		Tx:           repositories.NewTxManager(db, logger),
		Tournaments:  repositories.NewPostgresTournamentRepository(db),
		Participants: repositories.NewPostgresParticipantRepository(db),
		Sessions:     repositories.NewPostgresSessionRepository(db),
		Rankings:     repositories.NewPostgresRankingRepository(db),
		Rewards:      repositories.NewPostgresRewardRepository(db),
	}
}

func NewMemoryStore(m *repositories.MemoryStore) Store {
	return Store{
		Tx:           m,
		Tournaments:  m.Tournaments(),
		Participants: m.Participants(),
		Sessions:     m.Sessions(),
		Rankings:     m.Rankings(),
		Rewards:      m.Rewards(),
	}
}
