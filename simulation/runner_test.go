package simulation

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func scenario(t *testing.T, doc string) *Scenario {
	t.Helper()
	sc, err := ParseScenario([]byte(doc))
	require.NoError(t, err)
	return sc
}

func TestSameSeedSameReport(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"knockout", "format: KNOCKOUT\nseed: 7\nparticipant_count: 8\nwinner_count: 2\n"},
		{"league", "format: LEAGUE\nseed: 11\nparticipant_count: 5\n"},
		{"swiss", "format: SWISS\nseed: 3\nparticipant_count: 6\ngame_config:\n  version: 1\n  swiss_rounds: 3\n  probabilities: {home: 0.45, draw: 0.1, away: 0.45}\n  points: {win: 3, draw: 1, loss: 0}\n  score_order: DESC\n  qualifiers_per_group: 2\n  max_goals: 5\n"},
		{"individual", "format: INDIVIDUAL_RANKING\nseed: 5\nparticipants: [10, 20, 30, 40]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			first, err := Run(ctx, scenario(t, tt.doc), quietLogger())
			require.NoError(t, err)
			second, err := Run(ctx, scenario(t, tt.doc), quietLogger())
			require.NoError(t, err)

			if diff := cmp.Diff(first, second); diff != "" {
				t.Fatalf("reports differ (-first +second):\n%s", diff)
			}
			assert.Equal(t, len(first.Ranking), len(first.Rewards))
			assert.True(t, first.Archived)
			for i, row := range first.Ranking {
				assert.Equal(t, i+1, row.Rank)
			}
		})
	}
}

func TestKnockoutReportShape(t *testing.T) {
	report, err := Run(context.Background(), scenario(t, "format: KNOCKOUT\nseed: 1\nparticipant_count: 4\n"), quietLogger())
	require.NoError(t, err)

	assert.Equal(t, uint64(1), report.Seed)
	assert.Equal(t, 3, report.Submissions)
	assert.Equal(t, 1, report.Outcomes["TOURNAMENT_FINALIZED"])
	require.Len(t, report.Ranking, 4)
	// у чемпиона нет поражений
	assert.Equal(t, 0, report.Ranking[0].Losses)
	assert.Equal(t, 2, report.Ranking[0].Wins)
}

func TestParseScenarioRejects(t *testing.T) {
	for _, doc := range []string{
		"format: LADDER\nparticipant_count: 4\n",
		"format: LEAGUE\n",
		"format: [",
	} {
		_, err := ParseScenario([]byte(doc))
		assert.Error(t, err, doc)
	}
}
