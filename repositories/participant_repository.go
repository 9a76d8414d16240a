package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/tournament-engine/models"
)

var (
	ErrParticipantAlreadyEnrolled   = errors.New("participant already enrolled in this tournament")
	ErrParticipantTournamentInvalid = errors.New("participant tournament reference invalid")
)

type ParticipantRepository interface {
	// Enroll appends the participant with the next seed of the tournament.
	Enroll(ctx context.Context, exec SQLExecutor, participant *models.Participant) error
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Participant, error)
}

type postgresParticipantRepository struct {
	db *sql.DB
}

func NewPostgresParticipantRepository(db *sql.DB) ParticipantRepository {
	return &postgresParticipantRepository{db: db}
}

func (r *postgresParticipantRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresParticipantRepository) Enroll(ctx context.Context, exec SQLExecutor, p *models.Participant) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO tournament_participants (tournament_id, participant_id, seed)
		SELECT $1, $2, COALESCE(MAX(seed), 0) + 1
		FROM tournament_participants
		WHERE tournament_id = $1
		RETURNING id, seed, created_at`

	err := executor.QueryRowContext(ctx, query, p.TournamentID, p.ParticipantID).Scan(&p.ID, &p.Seed, &p.CreatedAt)
	return r.handleParticipantError(err)
}

func (r *postgresParticipantRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Participant, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, tournament_id, participant_id, seed, created_at
		FROM tournament_participants
		WHERE tournament_id = $1
		ORDER BY seed ASC`

	rows, err := executor.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants of tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	participants := make([]*models.Participant, 0)
	for rows.Next() {
		p := &models.Participant{}
		if scanErr := rows.Scan(&p.ID, &p.TournamentID, &p.ParticipantID, &p.Seed, &p.CreatedAt); scanErr != nil {
			return nil, scanErr
		}
		participants = append(participants, p)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return participants, nil
}

func (r *postgresParticipantRepository) handleParticipantError(err error) error {
	if err == nil {
		return nil
	}
	switch code, constraint := pqCode(err); code {
	case pqUniqueViolation:
		if constraint == "uq_tournament_participant" {
			return ErrParticipantAlreadyEnrolled
		}
	case pqForeignKeyViolation:
		return ErrParticipantTournamentInvalid
	}
	return err
}
