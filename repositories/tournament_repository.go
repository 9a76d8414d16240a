package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/tournament-engine/models"
)

var (
	ErrTournamentNotFound       = errors.New("tournament not found")
	ErrTournamentStatusConflict = errors.New("tournament status changed concurrently")
)

type ListTournamentsFilter struct {
	Status *models.TournamentStatus
	Format *models.Format
	Limit  int
	Offset int
}

type TournamentRepository interface {
	Create(ctx context.Context, exec SQLExecutor, tournament *models.Tournament) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error)
	// GetForUpdate locks the tournament row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error)
	List(ctx context.Context, exec SQLExecutor, filter ListTournamentsFilter) ([]*models.Tournament, error)
	// UpdateStatus moves the tournament from one status to another and fails with
	// ErrTournamentStatusConflict when it is no longer in the expected status.
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, from, to models.TournamentStatus) error
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const tournamentColumns = `
	id, name, format, status, winner_count, max_participants,
	game_config, reward_config, game_config_hash,
	created_at, updated_at, completed_at, rewards_distributed_at`

func (r *postgresTournamentRepository) Create(ctx context.Context, exec SQLExecutor, t *models.Tournament) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO tournaments (
			name, format, status, winner_count, max_participants,
			game_config, reward_config, game_config_hash
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`

	err := executor.QueryRowContext(ctx, query,
		t.Name, t.Format, t.Status, t.WinnerCount, t.MaxParticipants,
		[]byte(t.GameConfig), []byte(t.RewardConfig), t.GameConfigHash,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create tournament: %w", err)
	}
	return nil
}

func (r *postgresTournamentRepository) scanTournament(row rowScanner) (*models.Tournament, error) {
	t := &models.Tournament{}
	var gameConfig, rewardConfig []byte
	err := row.Scan(
		&t.ID, &t.Name, &t.Format, &t.Status, &t.WinnerCount, &t.MaxParticipants,
		&gameConfig, &rewardConfig, &t.GameConfigHash,
		&t.CreatedAt, &t.UpdatedAt, &t.CompletedAt, &t.RewardsDistributedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	t.GameConfig = gameConfig
	t.RewardConfig = rewardConfig
	return t, nil
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE id = $1`
	return r.scanTournament(r.getExecutor(exec).QueryRowContext(ctx, query, id))
}

func (r *postgresTournamentRepository) GetForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE id = $1 FOR UPDATE`
	return r.scanTournament(r.getExecutor(exec).QueryRowContext(ctx, query, id))
}

func (r *postgresTournamentRepository) List(ctx context.Context, exec SQLExecutor, filter ListTournamentsFilter) ([]*models.Tournament, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE 1=1`

	args := []interface{}{}
	argID := 1
	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argID)
		args = append(args, *filter.Status)
		argID++
	}
	if filter.Format != nil {
		query += fmt.Sprintf(" AND format = $%d", argID)
		args = append(args, *filter.Format)
		argID++
	}

	query += " ORDER BY created_at DESC, id DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argID)
		args = append(args, filter.Limit)
		argID++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argID)
		args = append(args, filter.Offset)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tournaments := make([]*models.Tournament, 0)
	for rows.Next() {
		t, scanErr := r.scanTournament(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		tournaments = append(tournaments, t)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return tournaments, nil
}

func (r *postgresTournamentRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, from, to models.TournamentStatus) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE tournaments SET
			status = $1,
			updated_at = NOW(),
			completed_at = CASE WHEN $1::text = 'COMPLETED' THEN NOW() ELSE completed_at END,
			rewards_distributed_at = CASE WHEN $1::text = 'REWARDS_DISTRIBUTED' THEN NOW() ELSE rewards_distributed_at END
		WHERE id = $2 AND status = $3`
	result, err := executor.ExecContext(ctx, query, to, id, from)
	if err != nil {
		return fmt.Errorf("failed to update status of tournament %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrTournamentStatusConflict)
}
