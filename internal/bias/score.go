package bias

import (
	"fmt"
	"math"
)

// Weights are the Bias Index component weights. They must be
// non-negative and sum to at most 1.
type Weights struct {
	Tone        float64
	Lexical     float64
	Omission    float64
	Consistency float64
}

// DefaultWeights are 0.4 tone, 0.25 lexical, 0.2 omission, 0.15 consistency.
var DefaultWeights = Weights{Tone: 0.4, Lexical: 0.25, Omission: 0.2, Consistency: 0.15}

// Validate checks the weight constraints.
func (w Weights) Validate() error {
	names := [...]string{"tone", "lexical", "omission", "consistency"}
	for i, v := range [...]float64{w.Tone, w.Lexical, w.Omission, w.Consistency} {
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("bias: %s weight %v is negative", names[i], v)
		}
	}
	if sum := w.Tone + w.Lexical + w.Omission + w.Consistency; sum > 1+1e-9 {
		return fmt.Errorf("bias: weights sum to %.4f, want <= 1", sum)
	}
	return nil
}

// BiasIndex combines an article's measurements into [0,100]. Tone enters
// as its distance from meanTone, the cluster tone baseline.
func BiasIndex(w Weights, tone, meanTone, lexical, omission, consistency float64) float64 {
	raw := w.Tone*math.Abs(tone-meanTone) +
		w.Lexical*lexical +
		w.Omission*omission +
		w.Consistency*consistency
	return clamp(100*raw/2, 0, 100)
}

// TransparencyScore is 100 minus penalties for omission (0.4),
// inconsistency (0.4) and loaded language (0.2), clamped to [0,100].
func TransparencyScore(omission, consistency, lexical float64) float64 {
	return clamp(100*(1-(0.4*omission+0.4*consistency+0.2*lexical)), 0, 100)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}
