package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/tournament-engine/models"
)

func newTournament(t *testing.T, s *MemoryStore) *models.Tournament {
	t.Helper()
	tour := &models.Tournament{Name: "cup", Format: models.FormatKnockout, Status: models.StatusDraft}
	require.NoError(t, s.Tournaments().Create(context.Background(), nil, tour))
	return tour
}

func TestMemoryStoreRollbackRestoresSnapshot(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	tour := newTournament(t, s)

	boom := errors.New("boom")
	err := s.RunInTx(ctx, func(ctx context.Context, exec SQLExecutor) error {
		require.NoError(t, s.Tournaments().UpdateStatus(ctx, exec, tour.ID, models.StatusDraft, models.StatusRegistrationOpen))
		require.NoError(t, s.Participants().Enroll(ctx, exec, &models.Participant{TournamentID: tour.ID, ParticipantID: 5}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.Tournaments().GetByID(ctx, nil, tour.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDraft, got.Status)

	ps, err := s.Participants().ListByTournament(ctx, nil, tour.ID)
	require.NoError(t, err)
	assert.Empty(t, ps)
}

func TestMemoryStoreRollbackOnPanic(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	tour := newTournament(t, s)

	assert.Panics(t, func() {
		_ = s.RunInTx(ctx, func(ctx context.Context, exec SQLExecutor) error {
			_ = s.Tournaments().UpdateStatus(ctx, exec, tour.ID, models.StatusDraft, models.StatusCancelled)
			panic("mid-transaction")
		})
	})

	got, err := s.Tournaments().GetByID(ctx, nil, tour.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDraft, got.Status)
}

func TestMemoryStoreUpdateStatusIsConditional(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	tour := newTournament(t, s)

	err := s.Tournaments().UpdateStatus(ctx, nil, tour.ID, models.StatusInProgress, models.StatusCompleted)
	assert.ErrorIs(t, err, ErrTournamentStatusConflict)
}

func TestMemorySessionsRejectDuplicateSlot(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	tour := newTournament(t, s)

	first := []*models.Session{
		{TournamentID: tour.ID, Phase: models.PhaseKnockout, Round: 2, Slot: 1, ParticipantIDs: []int{1, 2}, Status: models.SessionScheduled},
	}
	require.NoError(t, s.Sessions().CreateBatch(ctx, nil, first))
	assert.NotZero(t, first[0].ID)

	again := []*models.Session{
		{TournamentID: tour.ID, Phase: models.PhaseKnockout, Round: 2, Slot: 1, ParticipantIDs: []int{1, 2}, Status: models.SessionScheduled},
	}
	assert.ErrorIs(t, s.Sessions().CreateBatch(ctx, nil, again), ErrRoundAlreadyExists)

	round, err := s.Sessions().ListRound(ctx, nil, tour.ID, models.PhaseKnockout, 2)
	require.NoError(t, err)
	assert.Len(t, round, 1)
}

func TestMemorySessionsRecordResultOnce(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	tour := newTournament(t, s)

	sess := &models.Session{TournamentID: tour.ID, Phase: models.PhaseKnockout, Round: 1, Slot: 1, ParticipantIDs: []int{1, 2}, Status: models.SessionScheduled}
	require.NoError(t, s.Sessions().CreateBatch(ctx, nil, []*models.Session{sess}))

	winner := 1
	res := &models.Result{WinnerID: &winner, Scores: []models.ParticipantScore{{ParticipantID: 1, Score: 2}, {ParticipantID: 2, Score: 0}}}
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.Sessions().RecordResult(ctx, nil, sess.ID, res, at))

	// Изменение исходного результата не должно затрагивать сохранённый.
	res.Scores[0].Score = 9
	assert.ErrorIs(t, s.Sessions().RecordResult(ctx, nil, sess.ID, res, at), ErrSessionAlreadyCompleted)

	got, err := s.Sessions().GetByID(ctx, nil, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionCompleted, got.Status)
	score, _ := got.Result.ScoreOf(1)
	assert.Equal(t, 2.0, score)
}

func TestMemoryParticipantsSeedInEnrollOrder(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	tour := newTournament(t, s)

	for _, pid := range []int{30, 10, 20} {
		require.NoError(t, s.Participants().Enroll(ctx, nil, &models.Participant{TournamentID: tour.ID, ParticipantID: pid}))
	}
	err := s.Participants().Enroll(ctx, nil, &models.Participant{TournamentID: tour.ID, ParticipantID: 10})
	assert.ErrorIs(t, err, ErrParticipantAlreadyEnrolled)

	ps, err := s.Participants().ListByTournament(ctx, nil, tour.ID)
	require.NoError(t, err)
	require.Len(t, ps, 3)
	for i, want := range []int{30, 10, 20} {
		assert.Equal(t, want, ps[i].ParticipantID)
		assert.Equal(t, i+1, ps[i].Seed)
	}
}

func TestMemoryRewardsCreateOnce(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	tour := newTournament(t, s)

	created, err := s.Rewards().Create(ctx, nil, &models.ParticipationReward{TournamentID: tour.ID, ParticipantID: 1, Placement: 1, XPAwarded: 300})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.Rewards().Create(ctx, nil, &models.ParticipationReward{TournamentID: tour.ID, ParticipantID: 1, Placement: 1, XPAwarded: 999})
	require.NoError(t, err)
	assert.False(t, created)

	exists, err := s.Rewards().Exists(ctx, nil, tour.ID, 1)
	require.NoError(t, err)
	assert.True(t, exists)

	list, err := s.Rewards().ListByTournament(ctx, nil, tour.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 300, list[0].XPAwarded)

	b := &models.Badge{TournamentID: tour.ID, ParticipantID: 1, Type: models.BadgeChampion}
	ok, err := s.Rewards().CreateBadge(ctx, nil, b)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.Rewards().CreateBadge(ctx, nil, &models.Badge{TournamentID: tour.ID, ParticipantID: 1, Type: models.BadgeChampion})
	require.NoError(t, err)
	assert.False(t, ok)
}
