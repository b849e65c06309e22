package services

// DefaultCompletionThreshold is the watch ratio at which a lesson counts as completed.
const DefaultCompletionThreshold = 0.90

type CompletionPolicy struct {
	Threshold float64
}

func NewCompletionPolicy(threshold float64) CompletionPolicy {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultCompletionThreshold
	}
	return CompletionPolicy{Threshold: threshold}
}

func (p CompletionPolicy) IsComplete(watchedRatio float64) bool {
	return watchedRatio >= p.Threshold
}

// RatioFromPercentage converts a 0..100 percentage into a ratio clamped to [0, 1].
func RatioFromPercentage(pct float64) float64 {
	switch {
	case pct <= 0:
		return 0
	case pct >= 100:
		return 1
	default:
		return pct / 100
	}
}
