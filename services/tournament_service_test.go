package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/tournament-engine/apperrors"
	"github.com/Dosada05/tournament-engine/models"
	"github.com/Dosada05/tournament-engine/repositories"
)

func TestCreateTournamentValidatesInput(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	tests := []struct {
		name      string
		input     CreateTournamentInput
		wantErr   error
		invariant string
	}{
		{
			name:    "empty name",
			input:   CreateTournamentInput{Name: "  ", Format: models.FormatLeague},
			wantErr: ErrTournamentNameRequired,
		},
		{
			name:      "unknown format",
			input:     CreateTournamentInput{Name: "Cup", Format: "ROUND_ROBIN"},
			wantErr:   apperrors.ErrValidation,
			invariant: apperrors.InvariantFormatKnown,
		},
		{
			name:    "negative capacity",
			input:   CreateTournamentInput{Name: "Cup", Format: models.FormatLeague, MaxParticipants: -1},
			wantErr: ErrTournamentInvalidCapacity,
		},
		{
			name: "probabilities off",
			input: CreateTournamentInput{
				Name:       "Cup",
				Format:     models.FormatLeague,
				GameConfig: json.RawMessage(`{"version":1,"probabilities":{"home":0.5,"draw":0.2,"away":0.2}}`),
			},
			wantErr:   apperrors.ErrValidation,
			invariant: apperrors.InvariantProbabilitySum,
		},
		{
			name: "draws in knockout",
			input: CreateTournamentInput{
				Name:       "Cup",
				Format:     models.FormatKnockout,
				GameConfig: json.RawMessage(`{"version":1,"probabilities":{"home":0.4,"draw":0.2,"away":0.4}}`),
			},
			wantErr:   apperrors.ErrValidation,
			invariant: apperrors.InvariantKnockoutNoDraw,
		},
		{
			name: "skill points without enabled weight",
			input: CreateTournamentInput{
				Name:         "Cup",
				Format:       models.FormatLeague,
				RewardConfig: json.RawMessage(`{"version":1,"base_xp":100,"default_tier":{"xp_multiplier":1,"skill_points":2},"skill_weights":[{"skill":"aim","weight":1,"enabled":false}]}`),
			},
			wantErr:   apperrors.ErrValidation,
			invariant: apperrors.InvariantSkillWeights,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.tournaments.Create(ctx, tt.input)
			require.ErrorIs(t, err, tt.wantErr)
			if tt.invariant != "" {
				assert.Equal(t, tt.invariant, apperrors.InvariantOf(err))
			}
		})
	}

	list, err := env.tournaments.List(ctx, repositories.ListTournamentsFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCreateTournamentStoresNormalizedConfig(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	a, err := env.tournaments.Create(ctx, CreateTournamentInput{Name: "A", Format: models.FormatLeague})
	require.NoError(t, err)
	b, err := env.tournaments.Create(ctx, CreateTournamentInput{
		Name:       "B",
		Format:     models.FormatLeague,
		GameConfig: json.RawMessage(`{ "version": 1 }`),
	})
	require.NoError(t, err)

	assert.Equal(t, models.StatusDraft, a.Status)
	assert.Equal(t, 1, a.WinnerCount)
	assert.NotEmpty(t, a.GameConfigHash)
	assert.Equal(t, a.GameConfigHash, b.GameConfigHash)
	assert.JSONEq(t, string(a.GameConfig), string(b.GameConfig))
}

func TestEnrollRules(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	tour, err := env.tournaments.Create(ctx, CreateTournamentInput{Name: "Cup", Format: models.FormatKnockout, MaxParticipants: 2})
	require.NoError(t, err)

	_, err = env.tournaments.Enroll(ctx, tour.ID, playerA)
	require.ErrorIs(t, err, ErrRegistrationNotOpen)

	_, err = env.tournaments.OpenRegistration(ctx, tour.ID)
	require.NoError(t, err)

	p, err := env.tournaments.Enroll(ctx, tour.ID, playerC)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Seed)

	_, err = env.tournaments.Enroll(ctx, tour.ID, playerC)
	require.ErrorIs(t, err, ErrRegistrationConflict)

	_, err = env.tournaments.Enroll(ctx, tour.ID, 0)
	require.ErrorIs(t, err, ErrInvalidParticipantID)

	p, err = env.tournaments.Enroll(ctx, tour.ID, playerA)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Seed)

	_, err = env.tournaments.Enroll(ctx, tour.ID, playerB)
	require.ErrorIs(t, err, ErrTournamentFull)

	got, err := env.tournaments.Get(ctx, tour.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{playerC, playerA}, got.Participants)
}

func TestGenerateInitialRoundIsRepeatable(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	tour, first := env.start(t, models.FormatLeague, "", playerA, playerB, playerC, playerD)
	require.Len(t, first, 6)

	again, err := env.tournaments.GenerateInitialRound(ctx, tour.ID)
	require.NoError(t, err)
	require.Len(t, again, len(first))

	ids := map[int]bool{}
	for _, s := range first {
		ids[s.ID] = true
	}
	for _, s := range again {
		assert.True(t, ids[s.ID], "session %d was not created by the first call", s.ID)
	}
}

func TestGenerateInitialRoundNeedsParticipants(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	tour, err := env.tournaments.Create(ctx, CreateTournamentInput{Name: "Empty", Format: models.FormatSwiss})
	require.NoError(t, err)
	_, err = env.tournaments.OpenRegistration(ctx, tour.ID)
	require.NoError(t, err)

	_, err = env.tournaments.GenerateInitialRound(ctx, tour.ID)
	require.ErrorIs(t, err, apperrors.ErrValidation)

	got, err := env.tournaments.Get(ctx, tour.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRegistrationOpen, got.Status)
}

func TestStatusTransitionsMoveForwardOnly(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	tour := finishKnockout(t, env)

	_, err := env.tournaments.Cancel(ctx, tour.ID)
	require.ErrorIs(t, err, ErrTournamentInvalidStatusTransition)

	_, err = env.tournaments.OpenRegistration(ctx, tour.ID)
	require.ErrorIs(t, err, ErrTournamentInvalidStatusTransition)

	assert.True(t, isValidStatusTransition(models.StatusDraft, models.StatusCancelled))
	assert.False(t, isValidStatusTransition(models.StatusCompleted, models.StatusInProgress))
	assert.False(t, isValidStatusTransition(models.StatusCancelled, models.StatusRegistrationOpen))
}
