package domain

// ScoreAnswer implements the definitive scoring rule, which no host can
// override:
//
//	base = max(round(P*(1 - t/(2T))), ceil(P/2))   for a correct answer
//	base = 0                                        for a wrong answer
//
// elapsedMs is clamped to [0, timeLimitMs] before the formula is applied,
// which is also what gives late-but-clamped submissions their minimum 50%
// floor.
func ScoreAnswer(correct bool, elapsedMs int64, timeLimitMs int64, points int) int {
	if !correct {
		return 0
	}
	if elapsedMs < 0 {
		elapsedMs = 0
	}
	if elapsedMs > timeLimitMs {
		elapsedMs = timeLimitMs
	}

	floor := ceilDiv(points, 2)

	if timeLimitMs <= 0 {
		return floor
	}

	raw := float64(points) * (1 - float64(elapsedMs)/(2*float64(timeLimitMs)))
	base := roundHalfAwayFromZero(raw)
	if base < floor {
		return floor
	}
	return base
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

func roundHalfAwayFromZero(f float64) int {
	if f >= 0 {
		return int(f + 0.5)
	}
	return -int(-f + 0.5)
}
