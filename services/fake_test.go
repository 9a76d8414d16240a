package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Dosada05/tournament-engine/models"
	"github.com/Dosada05/tournament-engine/repositories"
)

// ------------------------
// Fake collaborators
// ------------------------

type fakeLedger struct {
	mu    sync.Mutex
	trace []string
	keys  map[string]int

	CreditFunc func(ctx context.Context, participantID, amount int, currency, reason, idempotencyKey string) error
}

func (f *fakeLedger) Credit(ctx context.Context, participantID, amount int, currency, reason, idempotencyKey string) error {
	f.mu.Lock()
	f.trace = append(f.trace, fmt.Sprintf("%d:%s:%d", participantID, currency, amount))
	if f.keys == nil {
		f.keys = make(map[string]int)
	}
	f.keys[idempotencyKey]++
	f.mu.Unlock()
	if f.CreditFunc != nil {
		return f.CreditFunc(ctx, participantID, amount, currency, reason, idempotencyKey)
	}
	return nil
}

func (f *fakeLedger) Trace() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []string
}

func (f *fakeNotifier) Publish(tournamentID int, event string, _ interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, fmt.Sprintf("%d:%s", tournamentID, event))
}

func (f *fakeNotifier) Events() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.events))
	copy(out, f.events)
	return out
}

type fakeArchive struct {
	mu      sync.Mutex
	objects map[string][]byte

	PutObjectFunc func(ctx context.Context, key string, body []byte, contentType string) error
}

func (f *fakeArchive) PutObject(ctx context.Context, key string, body []byte, contentType string) error {
	if f.PutObjectFunc != nil {
		if err := f.PutObjectFunc(ctx, key, body, contentType); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.objects == nil {
		f.objects = make(map[string][]byte)
	}
	f.objects[key] = body
	return nil
}

func (f *fakeArchive) Object(key string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.objects[key]
	return b, ok
}

type fakeMetrics struct {
	mu       sync.Mutex
	outcomes map[string]int
	written  int
	skipped  int
	failures map[string]int
}

func (f *fakeMetrics) ProgressionOutcome(state string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.outcomes == nil {
		f.outcomes = make(map[string]int)
	}
	f.outcomes[state]++
}

func (f *fakeMetrics) ObserveSubmit(time.Duration) {}

func (f *fakeMetrics) RewardsWritten(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.written += n
}

func (f *fakeMetrics) RewardsSkipped(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.skipped += n
}

func (f *fakeMetrics) SideEffectFailed(kind string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures == nil {
		f.failures = make(map[string]int)
	}
	f.failures[kind]++
}

func (f *fakeMetrics) Failures(kind string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failures[kind]
}

// FakeSessionRepository wraps a real repository and lets a test override single calls.
type FakeSessionRepository struct {
	repositories.SessionRepository

	ListRoundFunc func(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, phase models.Phase, round int) ([]*models.Session, error)
}

func (f *FakeSessionRepository) ListRound(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, phase models.Phase, round int) ([]*models.Session, error) {
	if f.ListRoundFunc != nil {
		return f.ListRoundFunc(ctx, exec, tournamentID, phase, round)
	}
	return f.SessionRepository.ListRound(ctx, exec, tournamentID, phase, round)
}

// ------------------------
// Test environment
// ------------------------

type testEnv struct {
	mem      *repositories.MemoryStore
	store    Store
	ledger   *fakeLedger
	notifier *fakeNotifier
	archive  *fakeArchive
	metrics  *fakeMetrics
	logger   *slog.Logger

	tournaments TournamentService
	progression ProgressionService
	standings   StandingsService
	rewards     RewardService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mem := repositories.NewMemoryStore()
	env := &testEnv{
		mem:      mem,
		store:    NewMemoryStore(mem),
		ledger:   &fakeLedger{},
		notifier: &fakeNotifier{},
		archive:  &fakeArchive{},
		metrics:  &fakeMetrics{},
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	env.rebuild()
	return env
}

// rebuild wires the services again, after a test replaced part of the store.
func (e *testEnv) rebuild() {
	e.tournaments = NewTournamentService(e.store, e.notifier, e.logger)
	e.progression = NewProgressionService(e.store, e.notifier, e.metrics, e.logger)
	e.standings = NewStandingsService(e.store, e.logger)
	e.rewards = NewRewardService(e.store, RewardDeps{
		Ledger:   e.ledger,
		Notifier: e.notifier,
		Archive:  e.archive,
		Metrics:  e.metrics,
	}, e.logger)
}

// start creates a tournament, enrolls participants in the given order and generates round 1.
func (e *testEnv) start(t *testing.T, format models.Format, gameConfig string, participants ...int) (*models.Tournament, []*models.Session) {
	t.Helper()
	ctx := context.Background()
	input := CreateTournamentInput{Name: "Spring Cup", Format: format, WinnerCount: 2}
	if gameConfig != "" {
		input.GameConfig = []byte(gameConfig)
	}
	tour, err := e.tournaments.Create(ctx, input)
	require.NoError(t, err)
	_, err = e.tournaments.OpenRegistration(ctx, tour.ID)
	require.NoError(t, err)
	for _, pid := range participants {
		_, err := e.tournaments.Enroll(ctx, tour.ID, pid)
		require.NoError(t, err)
	}
	sessions, err := e.tournaments.GenerateInitialRound(ctx, tour.ID)
	require.NoError(t, err)
	return tour, sessions
}

func sessionWith(t *testing.T, sessions []*models.Session, participantID int) *models.Session {
	t.Helper()
	for _, s := range sessions {
		if !s.Bye && s.HasParticipant(participantID) {
			return s
		}
	}
	t.Fatalf("no session with participant %d", participantID)
	return nil
}

// win builds a 2:0 result for winner.
func win(s *models.Session, winner int) *models.Result {
	w := winner
	loser, _ := s.Opponent(winner)
	return &models.Result{
		WinnerID: &w,
		Scores: []models.ParticipantScore{
			{ParticipantID: winner, Score: 2},
			{ParticipantID: loser, Score: 0},
		},
	}
}

func draw(s *models.Session) *models.Result {
	return &models.Result{Scores: []models.ParticipantScore{
		{ParticipantID: s.ParticipantIDs[0], Score: 1},
		{ParticipantID: s.ParticipantIDs[1], Score: 1},
	}}
}
