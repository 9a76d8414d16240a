package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/tournament-engine/models"
)

type RewardRepository interface {
	// Exists is the idempotency guard: a stored reward means the participant was paid.
	Exists(ctx context.Context, exec SQLExecutor, tournamentID, participantID int) (bool, error)
	// Create inserts the reward unless one already exists and reports whether it did.
	Create(ctx context.Context, exec SQLExecutor, reward *models.ParticipationReward) (bool, error)
	// CreateBadge inserts the badge unless the participant already holds that type for the tournament.
	CreateBadge(ctx context.Context, exec SQLExecutor, badge *models.Badge) (bool, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.ParticipationReward, error)
	ListBadgesByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Badge, error)
}

type postgresRewardRepository struct {
	db *sql.DB
}

func NewPostgresRewardRepository(db *sql.DB) RewardRepository {
	return &postgresRewardRepository{db: db}
}

func (r *postgresRewardRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresRewardRepository) Exists(ctx context.Context, exec SQLExecutor, tournamentID, participantID int) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM participation_rewards WHERE tournament_id = $1 AND participant_id = $2)`
	if err := r.getExecutor(exec).QueryRowContext(ctx, query, tournamentID, participantID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check reward for t:%d p:%d: %w", tournamentID, participantID, err)
	}
	return exists, nil
}

func (r *postgresRewardRepository) Create(ctx context.Context, exec SQLExecutor, reward *models.ParticipationReward) (bool, error) {
	query := `
		INSERT INTO participation_rewards
			(tournament_id, participant_id, placement, xp_awarded, credits_awarded, skill_points_awarded, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (tournament_id, participant_id) DO NOTHING
		RETURNING id`
	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		reward.TournamentID, reward.ParticipantID, reward.Placement, reward.XPAwarded,
		reward.CreditsAwarded, reward.SkillPoints, reward.CreatedAt,
	).Scan(&reward.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to create reward for t:%d p:%d: %w", reward.TournamentID, reward.ParticipantID, err)
	}
	return true, nil
}

func (r *postgresRewardRepository) CreateBadge(ctx context.Context, exec SQLExecutor, badge *models.Badge) (bool, error) {
	query := `
		INSERT INTO badges (tournament_id, participant_id, type, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (tournament_id, participant_id, type) DO NOTHING
		RETURNING id`
	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		badge.TournamentID, badge.ParticipantID, badge.Type, badge.Metadata, badge.CreatedAt,
	).Scan(&badge.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to award badge %s to p:%d: %w", badge.Type, badge.ParticipantID, err)
	}
	return true, nil
}

func (r *postgresRewardRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.ParticipationReward, error) {
	query := `
		SELECT id, tournament_id, participant_id, placement, xp_awarded, credits_awarded, skill_points_awarded, created_at
		FROM participation_rewards
		WHERE tournament_id = $1
		ORDER BY placement ASC`
	rows, err := r.getExecutor(exec).QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rewards := make([]*models.ParticipationReward, 0)
	for rows.Next() {
		var rw models.ParticipationReward
		if scanErr := rows.Scan(
			&rw.ID, &rw.TournamentID, &rw.ParticipantID, &rw.Placement,
			&rw.XPAwarded, &rw.CreditsAwarded, &rw.SkillPoints, &rw.CreatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		rewards = append(rewards, &rw)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return rewards, nil
}

func (r *postgresRewardRepository) ListBadgesByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Badge, error) {
	query := `
		SELECT id, tournament_id, participant_id, type, metadata, created_at
		FROM badges
		WHERE tournament_id = $1
		ORDER BY participant_id ASC, id ASC`
	rows, err := r.getExecutor(exec).QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	badges := make([]*models.Badge, 0)
	for rows.Next() {
		var b models.Badge
		if scanErr := rows.Scan(&b.ID, &b.TournamentID, &b.ParticipantID, &b.Type, &b.Metadata, &b.CreatedAt); scanErr != nil {
			return nil, scanErr
		}
		badges = append(badges, &b)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return badges, nil
}
