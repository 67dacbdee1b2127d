package game

import (
	"math"
	"time"

	"github.com/detekoi/chatsage-sub000/internal/domain"
)

// ComputePoints turns round parameters into a point value: base points,
// optional difficulty multiplier, optional time bonus of up to +50%
// scaled by the fraction of time remaining, then a streak multiplier of
// 1 + 0.1x(streak-1) when the winner's pre-round streak exceeds 1.
// The result is floored to an integer.
func ComputePoints(cfg domain.ChannelConfig, difficulty string, elapsed time.Duration, total time.Duration, streak int) int {
	points := float64(cfg.BasePoints)

	if cfg.DifficultyMultiplier {
		switch difficulty {
		case domain.DifficultyNormal:
			points *= 1.5
		case domain.DifficultyHard:
			points *= 2
		}
	}

	if cfg.TimeBonus && total > 0 {
		remaining := 1 - elapsed.Seconds()/total.Seconds()
		if remaining < 0 {
			remaining = 0
		}
		if remaining > 1 {
			remaining = 1
		}
		points += points * 0.5 * remaining
	}

	if streak > 1 {
		points *= 1 + 0.1*float64(streak-1)
	}

	return int(math.Floor(points))
}
