// Package rewards turns a final ranking and a reward config into the rewards and badges
// each participant receives. It does not write anything.
package rewards

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Dosada05/tournament-engine/apperrors"
	"github.com/Dosada05/tournament-engine/gameconfig"
	"github.com/Dosada05/tournament-engine/models"
)

// skillPrecision is the number of decimals skill points are rounded to.
const skillPrecision = 1

type Input struct {
	Tournament *models.Tournament
	Ranking    []*models.RankingEntry
	Config     gameconfig.RewardConfig
	AwardedAt  time.Time
}

// Award is everything one participant receives for a tournament.
type Award struct {
	Reward *models.ParticipationReward
	Badges []*models.Badge
}

// Plan computes one Award per ranking entry. Placement in rewards and badges is copied
// from the entry's rank.
func Plan(in Input) ([]Award, error) {
	t := in.Tournament
	if err := checkRanking(t.ID, in.Ranking); err != nil {
		return nil, err
	}

	total := len(in.Ranking)
	awards := make([]Award, 0, total)
	for _, e := range in.Ranking {
		tier := in.Config.TierFor(e.Rank)
		reward := &models.ParticipationReward{
			TournamentID:   t.ID,
			ParticipantID:  e.ParticipantID,
			Placement:      e.Rank,
			XPAwarded:      XP(in.Config.BaseXP, tier.XPMultiplier),
			CreditsAwarded: tier.Credits,
			SkillPoints:    SplitSkillPoints(tier.SkillPoints, in.Config.SkillWeights),
			CreatedAt:      in.AwardedAt,
		}

		meta := models.BadgeMetadata{
			TournamentID:      t.ID,
			Placement:         e.Rank,
			TotalParticipants: total,
			AwardedAt:         in.AwardedAt,
		}
		types := append(PlacementBadges(e.Rank, t.WinnerCount), models.BadgeParticipant)
		types = append(types, tier.Badges...)
		badges := make([]*models.Badge, 0, len(types))
		seen := make(map[models.BadgeType]bool, len(types))
		for _, bt := range types {
			if seen[bt] {
				continue
			}
			seen[bt] = true
			badges = append(badges, &models.Badge{
				TournamentID:  t.ID,
				ParticipantID: e.ParticipantID,
				Type:          bt,
				Metadata:      meta,
				CreatedAt:     in.AwardedAt,
			})
		}
		awards = append(awards, Award{Reward: reward, Badges: badges})
	}
	return awards, nil
}

// PlacementBadges returns the badge for rank when it is within the first winnerCount places.
func PlacementBadges(rank, winnerCount int) []models.BadgeType {
	if rank < 1 || rank > winnerCount {
		return nil
	}
	switch rank {
	case 1:
		return []models.BadgeType{models.BadgeChampion}
	case 2:
		return []models.BadgeType{models.BadgeRunnerUp}
	case 3:
		return []models.BadgeType{models.BadgeThirdPlace}
	}
	return []models.BadgeType{models.BadgeFinalist}
}

// XP = base x multiplier, rounded half away from zero.
func XP(base int, multiplier float64) int {
	return int(decimal.NewFromInt(int64(base)).Mul(decimal.NewFromFloat(multiplier)).Round(0).IntPart())
}

// SplitSkillPoints divides total over the enabled skills in proportion to their weight,
// rounding each share to one decimal. Disabled skills are left out of the result.
func SplitSkillPoints(total float64, weights []gameconfig.SkillWeight) models.SkillPoints {
	out := models.SkillPoints{}
	if total <= 0 {
		return out
	}
	sum := decimal.Zero
	for _, w := range weights {
		if w.Enabled {
			sum = sum.Add(decimal.NewFromFloat(w.Weight))
		}
	}
	if !sum.IsPositive() {
		return out
	}

	points := decimal.NewFromFloat(total)
	for _, w := range weights {
		if !w.Enabled {
			continue
		}
		share := points.Mul(decimal.NewFromFloat(w.Weight)).Div(sum).Round(skillPrecision)
		out[w.Skill] = share.InexactFloat64()
	}
	return out
}

func checkRanking(tournamentID int, ranking []*models.RankingEntry) error {
	if len(ranking) == 0 {
		return apperrors.DataIntegrity(tournamentID, 0, apperrors.InvariantRankingTotal, "ranking is empty")
	}
	ranks := make(map[int]bool, len(ranking))
	participants := make(map[int]bool, len(ranking))
	for _, e := range ranking {
		if e.Rank < 1 || e.Rank > len(ranking) || ranks[e.Rank] {
			return apperrors.DataIntegrity(tournamentID, 0, apperrors.InvariantRankingTotal, "rank %d of participant %d is out of range or shared", e.Rank, e.ParticipantID)
		}
		if participants[e.ParticipantID] {
			return apperrors.DataIntegrity(tournamentID, 0, apperrors.InvariantRankingTotal, "participant %d is ranked twice", e.ParticipantID)
		}
		ranks[e.Rank] = true
		participants[e.ParticipantID] = true
	}
	return nil
}
