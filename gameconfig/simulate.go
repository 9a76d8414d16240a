package gameconfig

import (
	"math"

	"github.com/Dosada05/tournament-engine/models"
)

// SimulateHeadToHead draws an outcome between home and away from the configured
// probabilities. With decisive set the draw probability is ignored and the outcome
// is conditioned on a winner, which is how knockout sessions are simulated.
func SimulateHeadToHead(rng *RNG, cfg GameConfig, home, away int, decisive bool) *models.Result {
	p := cfg.Probabilities
	pHome, pDraw := p.Home, p.Draw
	if decisive {
		pHome, pDraw = p.Home/(p.Home+p.Away), 0
	}

	x := rng.Float64()
	maxGoals := max(1, cfg.MaxGoals)
	switch {
	case x < pHome:
		w, l := decisiveScore(rng, maxGoals)
		return headToHeadResult(home, away, &home, w, l)
	case x < pHome+pDraw:
		g := float64(rng.IntN(maxGoals + 1))
		return headToHeadResult(home, away, nil, g, g)
	default:
		w, l := decisiveScore(rng, maxGoals)
		return headToHeadResult(home, away, &away, l, w)
	}
}

func decisiveScore(rng *RNG, maxGoals int) (winner, loser float64) {
	w := 1 + rng.IntN(maxGoals)
	return float64(w), float64(rng.IntN(w))
}

func headToHeadResult(home, away int, winner *int, homeScore, awayScore float64) *models.Result {
	res := &models.Result{Scores: []models.ParticipantScore{
		{ParticipantID: home, Score: homeScore},
		{ParticipantID: away, Score: awayScore},
	}}
	if winner != nil {
		w := *winner
		res.WinnerID = &w
	}
	return res
}

// SimulateIndividual draws one score per participant with two decimals of precision.
// The winner is the best score in the configured order, lowest id on ties.
func SimulateIndividual(rng *RNG, cfg GameConfig, participants []int) *models.Result {
	res := &models.Result{Scores: make([]models.ParticipantScore, 0, len(participants))}
	best, bestScore := 0, math.NaN()
	for _, id := range participants {
		score := float64(rng.IntN(100_000)) / 100
		res.Scores = append(res.Scores, models.ParticipantScore{ParticipantID: id, Score: score})
		if math.IsNaN(bestScore) || Better(cfg.ScoreOrder, score, bestScore) || (score == bestScore && id < best) {
			best, bestScore = id, score
		}
	}
	if len(participants) > 0 {
		res.WinnerID = &best
	}
	return res
}

// Better reports whether score a ranks ahead of b under order.
func Better(order ScoreOrder, a, b float64) bool {
	if order == ScoreAscending {
		return a < b
	}
	return a > b
}
