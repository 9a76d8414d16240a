package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/Dosada05/tournament-engine/models"
)

var (
	ErrSessionNotFound         = errors.New("session not found")
	ErrSessionAlreadyCompleted = errors.New("session already has a result")
	// ErrRoundAlreadyExists is returned when another writer created the same round first.
	ErrRoundAlreadyExists = errors.New("round already exists")
)

type SessionRepository interface {
	// CreateBatch inserts sessions and fills their ids. A slot collision on
	// (tournament, phase, round, slot) yields ErrRoundAlreadyExists.
	CreateBatch(ctx context.Context, exec SQLExecutor, sessions []*models.Session) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Session, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Session, error)
	ListRound(ctx context.Context, exec SQLExecutor, tournamentID int, phase models.Phase, round int) ([]*models.Session, error)
	// RecordResult completes a scheduled session. A session that already has a result is
	// left untouched and ErrSessionAlreadyCompleted is returned.
	RecordResult(ctx context.Context, exec SQLExecutor, id int, result *models.Result, completedAt time.Time) error
}

type postgresSessionRepository struct {
	db *sql.DB
}

func NewPostgresSessionRepository(db *sql.DB) SessionRepository {
	return &postgresSessionRepository{db: db}
}

func (r *postgresSessionRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const sessionColumns = `
	id, tournament_id, phase, round, slot, group_no, bye, bronze,
	participant_ids, result, status, created_at, completed_at`

func (r *postgresSessionRepository) CreateBatch(ctx context.Context, exec SQLExecutor, sessions []*models.Session) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO sessions
			(tournament_id, phase, round, slot, group_no, bye, bronze, participant_ids, result, status, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at`

	now := time.Now().UTC()
	for _, s := range sessions {
		var result interface{}
		if s.Result != nil {
			result = s.Result
		}
		if s.Status == models.SessionCompleted && s.CompletedAt == nil {
			s.CompletedAt = &now
		}
		err := executor.QueryRowContext(ctx, query,
			s.TournamentID, s.Phase, s.Round, s.Slot, s.GroupNo, s.Bye, s.Bronze,
			toInt64s(s.ParticipantIDs), result, s.Status, s.CompletedAt,
		).Scan(&s.ID, &s.CreatedAt)
		if err != nil {
			return r.handleSessionError(err, s)
		}
	}
	return nil
}

func (r *postgresSessionRepository) scanSession(row rowScanner) (*models.Session, error) {
	s := &models.Session{}
	var ids pq.Int64Array
	var result []byte
	err := row.Scan(
		&s.ID, &s.TournamentID, &s.Phase, &s.Round, &s.Slot, &s.GroupNo, &s.Bye, &s.Bronze,
		&ids, &result, &s.Status, &s.CreatedAt, &s.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	s.ParticipantIDs = toInts(ids)
	if len(result) > 0 {
		s.Result = &models.Result{}
		if err := json.Unmarshal(result, s.Result); err != nil {
			return nil, fmt.Errorf("session %d: malformed result: %w", s.ID, err)
		}
	}
	return s, nil
}

func (r *postgresSessionRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`
	return r.scanSession(r.getExecutor(exec).QueryRowContext(ctx, query, id))
}

func (r *postgresSessionRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions
		WHERE tournament_id = $1
		ORDER BY phase ASC, round ASC, slot ASC`
	return r.list(ctx, exec, query, tournamentID)
}

func (r *postgresSessionRepository) ListRound(ctx context.Context, exec SQLExecutor, tournamentID int, phase models.Phase, round int) ([]*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions
		WHERE tournament_id = $1 AND phase = $2 AND round = $3
		ORDER BY slot ASC`
	return r.list(ctx, exec, query, tournamentID, phase, round)
}

func (r *postgresSessionRepository) list(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) ([]*models.Session, error) {
	rows, err := r.getExecutor(exec).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := make([]*models.Session, 0)
	for rows.Next() {
		s, scanErr := r.scanSession(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		sessions = append(sessions, s)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *postgresSessionRepository) RecordResult(ctx context.Context, exec SQLExecutor, id int, result *models.Result, completedAt time.Time) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE sessions SET result = $1, status = $2, completed_at = $3
		WHERE id = $4 AND status = $5`
	res, err := executor.ExecContext(ctx, query, result, models.SessionCompleted, completedAt, id, models.SessionScheduled)
	if err != nil {
		return fmt.Errorf("failed to record result for session %d: %w", id, err)
	}
	return checkAffectedRows(res, ErrSessionAlreadyCompleted)
}

func (r *postgresSessionRepository) handleSessionError(err error, s *models.Session) error {
	switch code, constraint := pqCode(err); {
	case code == pqUniqueViolation && constraint == "uq_sessions_slot":
		return fmt.Errorf("%w: tournament %d %s round %d", ErrRoundAlreadyExists, s.TournamentID, s.Phase, s.Round)
	case code == pqForeignKeyViolation:
		return fmt.Errorf("%w: %v", ErrTournamentNotFound, err)
	}
	return fmt.Errorf("failed to create session: %w", err)
}
