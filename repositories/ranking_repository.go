package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/tournament-engine/models"
)

var ErrRankingTournamentInvalid = errors.New("ranking tournament reference invalid")

type RankingRepository interface {
	// Upsert writes the entries keyed by (tournament, participant); running it twice
	// with the same entries leaves the same rows.
	Upsert(ctx context.Context, exec SQLExecutor, entries []*models.RankingEntry) error
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.RankingEntry, error)
}

type postgresRankingRepository struct {
	db *sql.DB
}

func NewPostgresRankingRepository(db *sql.DB) RankingRepository {
	return &postgresRankingRepository{db: db}
}

func (r *postgresRankingRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresRankingRepository) Upsert(ctx context.Context, exec SQLExecutor, entries []*models.RankingEntry) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO ranking_entries
			(tournament_id, participant_id, rank, points, played, wins, draws, losses,
			 goals_for, goals_against, goal_difference, score, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (tournament_id, participant_id) DO UPDATE SET
			rank = EXCLUDED.rank,
			points = EXCLUDED.points,
			played = EXCLUDED.played,
			wins = EXCLUDED.wins,
			draws = EXCLUDED.draws,
			losses = EXCLUDED.losses,
			goals_for = EXCLUDED.goals_for,
			goals_against = EXCLUDED.goals_against,
			goal_difference = EXCLUDED.goal_difference,
			score = EXCLUDED.score,
			updated_at = EXCLUDED.updated_at`

	now := time.Now().UTC()
	for _, e := range entries {
		if e.UpdatedAt.IsZero() {
			e.UpdatedAt = now
		}
		_, err := executor.ExecContext(ctx, query,
			e.TournamentID, e.ParticipantID, e.Rank, e.Points, e.Played, e.Wins, e.Draws, e.Losses,
			e.GoalsFor, e.GoalsAgainst, e.GoalDifference, e.Score, e.UpdatedAt,
		)
		if err != nil {
			if code, _ := pqCode(err); code == pqForeignKeyViolation {
				return ErrRankingTournamentInvalid
			}
			return fmt.Errorf("failed to upsert ranking for participant %d: %w", e.ParticipantID, err)
		}
	}
	return nil
}

func (r *postgresRankingRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.RankingEntry, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT tournament_id, participant_id, rank, points, played, wins, draws, losses,
		       goals_for, goals_against, goal_difference, score, updated_at
		FROM ranking_entries
		WHERE tournament_id = $1
		ORDER BY rank ASC`

	rows, err := executor.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]*models.RankingEntry, 0)
	for rows.Next() {
		var e models.RankingEntry
		if scanErr := rows.Scan(
			&e.TournamentID, &e.ParticipantID, &e.Rank, &e.Points, &e.Played, &e.Wins, &e.Draws, &e.Losses,
			&e.GoalsFor, &e.GoalsAgainst, &e.GoalDifference, &e.Score, &e.UpdatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		entries = append(entries, &e)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
