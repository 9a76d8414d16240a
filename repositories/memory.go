package repositories

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/Dosada05/tournament-engine/models"
)

// MemoryStore keeps every table in process memory. It backs the simulator and the
// service tests. Transactions are serialized and rolled back by restoring a snapshot,
// so writes made outside RunInTx while a transaction fails are lost as well.
type MemoryStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	data memoryData
	now  func() time.Time
}

type memoryData struct {
	nextID       int
	tournaments  map[int]*models.Tournament
	participants map[int][]*models.Participant
	sessions     map[int]*models.Session
	rankings     map[int]map[int]*models.RankingEntry
	rewards      map[int]map[int]*models.ParticipationReward
	badges       []*models.Badge
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: memoryData{
			tournaments:  make(map[int]*models.Tournament),
			participants: make(map[int][]*models.Participant),
			sessions:     make(map[int]*models.Session),
			rankings:     make(map[int]map[int]*models.RankingEntry),
			rewards:      make(map[int]map[int]*models.ParticipationReward),
		},
		now: func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the time source used for generated timestamps.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.now = now
	return s
}

// Now returns the store clock.
func (s *MemoryStore) Now() time.Time {
	return s.now()
}

func (s *MemoryStore) RunInTx(ctx context.Context, fn func(ctx context.Context, exec SQLExecutor) error) (txErr error) {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	snapshot := s.data.clone()
	s.mu.Unlock()

	defer func() {
		p := recover()
		if p != nil || txErr != nil {
			s.mu.Lock()
			s.data = snapshot
			s.mu.Unlock()
		}
		if p != nil {
			panic(p)
		}
	}()

	return fn(ctx, nil)
}

func (d memoryData) clone() memoryData {
	cp := memoryData{
		nextID:       d.nextID,
		tournaments:  make(map[int]*models.Tournament, len(d.tournaments)),
		participants: make(map[int][]*models.Participant, len(d.participants)),
		sessions:     make(map[int]*models.Session, len(d.sessions)),
		rankings:     make(map[int]map[int]*models.RankingEntry, len(d.rankings)),
		rewards:      make(map[int]map[int]*models.ParticipationReward, len(d.rewards)),
		badges:       make([]*models.Badge, 0, len(d.badges)),
	}
	for id, t := range d.tournaments {
		cp.tournaments[id] = t.Clone()
	}
	for id, ps := range d.participants {
		list := make([]*models.Participant, len(ps))
		for i, p := range ps {
			v := *p
			list[i] = &v
		}
		cp.participants[id] = list
	}
	for id, sess := range d.sessions {
		cp.sessions[id] = sess.Clone()
	}
	for tid, entries := range d.rankings {
		m := make(map[int]*models.RankingEntry, len(entries))
		for pid, e := range entries {
			m[pid] = e.Clone()
		}
		cp.rankings[tid] = m
	}
	for tid, rewards := range d.rewards {
		m := make(map[int]*models.ParticipationReward, len(rewards))
		for pid, rw := range rewards {
			m[pid] = rw.Clone()
		}
		cp.rewards[tid] = m
	}
	for _, b := range d.badges {
		v := *b
		cp.badges = append(cp.badges, &v)
	}
	return cp
}

func (s *MemoryStore) id() int {
	s.data.nextID++
	return s.data.nextID
}

func (s *MemoryStore) Tournaments() TournamentRepository { return memoryTournaments{s} }
func (s *MemoryStore) Participants() ParticipantRepository { return memoryParticipants{s} }
func (s *MemoryStore) Sessions() SessionRepository { return memorySessions{s} }
func (s *MemoryStore) Rankings() RankingRepository { return memoryRankings{s} }
func (s *MemoryStore) Rewards() RewardRepository { return memoryRewards{s} }

type memoryTournaments struct{ s *MemoryStore }

func (r memoryTournaments) Create(_ context.Context, _ SQLExecutor, t *models.Tournament) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := r.s.now()
	t.ID = r.s.id()
	t.CreatedAt = now
	t.UpdatedAt = now
	stored := t.Clone()
	stored.Participants = nil
	r.s.data.tournaments[t.ID] = stored
	return nil
}

func (r memoryTournaments) GetByID(_ context.Context, _ SQLExecutor, id int) (*models.Tournament, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.data.tournaments[id]
	if !ok {
		return nil, ErrTournamentNotFound
	}
	return t.Clone(), nil
}

// GetForUpdate relies on RunInTx serializing transactions.
func (r memoryTournaments) GetForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error) {
	return r.GetByID(ctx, exec, id)
}

func (r memoryTournaments) List(_ context.Context, _ SQLExecutor, filter ListTournamentsFilter) ([]*models.Tournament, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.Tournament, 0, len(r.s.data.tournaments))
	for _, t := range r.s.data.tournaments {
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		if filter.Format != nil && t.Format != *filter.Format {
			continue
		}
		out = append(out, t.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return []*models.Tournament{}, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r memoryTournaments) UpdateStatus(_ context.Context, _ SQLExecutor, id int, from, to models.TournamentStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.data.tournaments[id]
	if !ok || t.Status != from {
		return ErrTournamentStatusConflict
	}
	now := r.s.now()
	t.Status = to
	t.UpdatedAt = now
	switch to {
	case models.StatusCompleted:
		t.CompletedAt = &now
	case models.StatusRewardsDistributed:
		t.RewardsDistributedAt = &now
	}
	return nil
}

type memoryParticipants struct{ s *MemoryStore }

func (r memoryParticipants) Enroll(_ context.Context, _ SQLExecutor, p *models.Participant) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.tournaments[p.TournamentID]; !ok {
		return ErrParticipantTournamentInvalid
	}
	existing := r.s.data.participants[p.TournamentID]
	for _, e := range existing {
		if e.ParticipantID == p.ParticipantID {
			return ErrParticipantAlreadyEnrolled
		}
	}
	p.ID = r.s.id()
	p.Seed = len(existing) + 1
	p.CreatedAt = r.s.now()
	v := *p
	r.s.data.participants[p.TournamentID] = append(existing, &v)
	return nil
}

func (r memoryParticipants) ListByTournament(_ context.Context, _ SQLExecutor, tournamentID int) ([]*models.Participant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ps := r.s.data.participants[tournamentID]
	out := make([]*models.Participant, len(ps))
	for i, p := range ps {
		v := *p
		out[i] = &v
	}
	return out, nil
}

type memorySessions struct{ s *MemoryStore }

type slotKey struct {
	tournamentID int
	phase        models.Phase
	round, slot  int
}

func (r memorySessions) CreateBatch(_ context.Context, _ SQLExecutor, sessions []*models.Session) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	taken := make(map[slotKey]bool)
	for _, sess := range r.s.data.sessions {
		taken[slotKey{sess.TournamentID, sess.Phase, sess.Round, sess.Slot}] = true
	}
	for _, sess := range sessions {
		if _, ok := r.s.data.tournaments[sess.TournamentID]; !ok {
			return fmt.Errorf("session references unknown tournament %d", sess.TournamentID)
		}
		k := slotKey{sess.TournamentID, sess.Phase, sess.Round, sess.Slot}
		if taken[k] {
			return ErrRoundAlreadyExists
		}
		taken[k] = true
	}

	now := r.s.now()
	for _, sess := range sessions {
		sess.ID = r.s.id()
		sess.CreatedAt = now
		if sess.Status == models.SessionCompleted && sess.CompletedAt == nil {
			sess.CompletedAt = &now
		}
		r.s.data.sessions[sess.ID] = sess.Clone()
	}
	return nil
}

func (r memorySessions) GetByID(_ context.Context, _ SQLExecutor, id int) (*models.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sess, ok := r.s.data.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess.Clone(), nil
}

func (r memorySessions) ListByTournament(_ context.Context, _ SQLExecutor, tournamentID int) ([]*models.Session, error) {
	return r.filter(func(sess *models.Session) bool { return sess.TournamentID == tournamentID }), nil
}

func (r memorySessions) ListRound(_ context.Context, _ SQLExecutor, tournamentID int, phase models.Phase, round int) ([]*models.Session, error) {
	return r.filter(func(sess *models.Session) bool {
		return sess.TournamentID == tournamentID && sess.Phase == phase && sess.Round == round
	}), nil
}

func (r memorySessions) filter(keep func(*models.Session) bool) []*models.Session {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.Session, 0)
	for _, sess := range r.s.data.sessions {
		if keep(sess) {
			out = append(out, sess.Clone())
		}
	}
	// Тот же порядок, что и ORDER BY в postgres-репозитории.
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Phase != b.Phase {
			return a.Phase < b.Phase
		}
		if a.Round != b.Round {
			return a.Round < b.Round
		}
		return a.Slot < b.Slot
	})
	return out
}

func (r memorySessions) RecordResult(_ context.Context, _ SQLExecutor, id int, result *models.Result, completedAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sess, ok := r.s.data.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	if sess.Status != models.SessionScheduled {
		return ErrSessionAlreadyCompleted
	}
	sess.Result = result.Clone()
	sess.Status = models.SessionCompleted
	at := completedAt
	sess.CompletedAt = &at
	return nil
}

type memoryRankings struct{ s *MemoryStore }

func (r memoryRankings) Upsert(_ context.Context, _ SQLExecutor, entries []*models.RankingEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := r.s.now()
	for _, e := range entries {
		if _, ok := r.s.data.tournaments[e.TournamentID]; !ok {
			return ErrRankingTournamentInvalid
		}
		if e.UpdatedAt.IsZero() {
			e.UpdatedAt = now
		}
		m := r.s.data.rankings[e.TournamentID]
		if m == nil {
			m = make(map[int]*models.RankingEntry)
			r.s.data.rankings[e.TournamentID] = m
		}
		m[e.ParticipantID] = e.Clone()
	}
	return nil
}

func (r memoryRankings) ListByTournament(_ context.Context, _ SQLExecutor, tournamentID int) ([]*models.RankingEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.RankingEntry, 0, len(r.s.data.rankings[tournamentID]))
	for _, e := range r.s.data.rankings[tournamentID] {
		out = append(out, e.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rank < out[j].Rank })
	return out, nil
}

type memoryRewards struct{ s *MemoryStore }

func (r memoryRewards) Exists(_ context.Context, _ SQLExecutor, tournamentID, participantID int) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, ok := r.s.data.rewards[tournamentID][participantID]
	return ok, nil
}

func (r memoryRewards) Create(_ context.Context, _ SQLExecutor, reward *models.ParticipationReward) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m := r.s.data.rewards[reward.TournamentID]
	if m == nil {
		m = make(map[int]*models.ParticipationReward)
		r.s.data.rewards[reward.TournamentID] = m
	}
	if _, ok := m[reward.ParticipantID]; ok {
		return false, nil
	}
	reward.ID = r.s.id()
	m[reward.ParticipantID] = reward.Clone()
	return true, nil
}

func (r memoryRewards) CreateBadge(_ context.Context, _ SQLExecutor, badge *models.Badge) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if slices.ContainsFunc(r.s.data.badges, func(b *models.Badge) bool {
		return b.TournamentID == badge.TournamentID && b.ParticipantID == badge.ParticipantID && b.Type == badge.Type
	}) {
		return false, nil
	}
	badge.ID = r.s.id()
	v := *badge
	r.s.data.badges = append(r.s.data.badges, &v)
	return true, nil
}

func (r memoryRewards) ListByTournament(_ context.Context, _ SQLExecutor, tournamentID int) ([]*models.ParticipationReward, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.ParticipationReward, 0, len(r.s.data.rewards[tournamentID]))
	for _, rw := range r.s.data.rewards[tournamentID] {
		out = append(out, rw.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Placement < out[j].Placement })
	return out, nil
}

func (r memoryRewards) ListBadgesByTournament(_ context.Context, _ SQLExecutor, tournamentID int) ([]*models.Badge, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.Badge, 0)
	for _, b := range r.s.data.badges {
		if b.TournamentID == tournamentID {
			v := *b
			out = append(out, &v)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ParticipantID != out[j].ParticipantID {
			return out[i].ParticipantID < out[j].ParticipantID
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
