package gameconfig

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/tournament-engine/models"
)

func TestSeededStreamsAreReproducible(t *testing.T) {
	seed := int64(20240611)
	cfg := DefaultGameConfig(models.FormatLeague)

	run := func() []*models.Result {
		rng := NewRNG(&seed)
		var out []*models.Result
		for i := range 50 {
			out = append(out, SimulateHeadToHead(rng, cfg, 2*i+1, 2*i+2, i%3 == 0))
		}
		out = append(out, SimulateIndividual(rng, cfg, []int{1, 2, 3, 4, 5}))
		return out
	}

	first, second := run(), run()
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("seeded runs differ (-first +second):\n%s", diff)
	}
}

func TestUnseededStreamReportsItsSeed(t *testing.T) {
	rng := NewRNG(nil)
	seed := int64(rng.Seed())
	replay := NewRNG(&seed)

	for range 10 {
		assert.Equal(t, rng.IntN(1000), replay.IntN(1000))
	}
}

func TestSimulateHeadToHead(t *testing.T) {
	seed := int64(7)
	rng := NewRNG(&seed)
	cfg := DefaultGameConfig(models.FormatGroupKnockout)
	cfg.MaxGoals = 3

	for range 200 {
		res := SimulateHeadToHead(rng, cfg, 10, 20, true)
		require.NotNil(t, res.WinnerID, "decisive simulation must produce a winner")
		winner, _ := res.ScoreOf(*res.WinnerID)
		loserID := 10
		if *res.WinnerID == 10 {
			loserID = 20
		}
		loser, _ := res.ScoreOf(loserID)
		assert.Greater(t, winner, loser)
		assert.LessOrEqual(t, winner, 3.0)
	}
}

func TestSimulateIndividualPicksBestScore(t *testing.T) {
	seed := int64(99)
	cfg := DefaultGameConfig(models.FormatIndividualRanking)
	cfg.ScoreOrder = ScoreAscending

	res := SimulateIndividual(NewRNG(&seed), cfg, []int{4, 5, 6})
	require.NotNil(t, res.WinnerID)
	best, _ := res.ScoreOf(*res.WinnerID)
	for _, s := range res.Scores {
		assert.LessOrEqual(t, best, s.Score)
	}
}

func TestFingerprintIgnoresKeyOrder(t *testing.T) {
	a, err := ParseGameConfig([]byte(`{"version":1,"seed":1,"bronze_match":true}`), models.FormatKnockout)
	require.NoError(t, err)
	b, err := ParseGameConfig([]byte(`{"bronze_match":true,"seed":1,"version":1}`), models.FormatKnockout)
	require.NoError(t, err)

	fa, err := Fingerprint(a)
	require.NoError(t, err)
	fb, err := Fingerprint(b)
	require.NoError(t, err)
	assert.Equal(t, fa, fb)
	assert.Len(t, fa, 64)

	b.BronzeMatch = false
	fc, err := Fingerprint(b)
	require.NoError(t, err)
	assert.NotEqual(t, fa, fc)
}
