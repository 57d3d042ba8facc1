package cluster

import (
	"math"

	"github.com/abelbrown/prism/internal/model"
)

// CanonicalScore rates how well an article can stand for its cluster:
// up to 0.3 for length (full at 1000 characters), 0.2 for an author and
// 0.2 for a publication time.
func CanonicalScore(a *model.Article) float64 {
	score := 0.3 * math.Min(float64(len(a.Text))/1000, 1)
	if a.HasAuthor() {
		score += 0.2
	}
	if a.HasTimestamp() {
		score += 0.2
	}
	return score
}

// Canonical returns the ID of the best-scoring article. Ties go to the
// earlier article; an empty slice yields "".
func Canonical(articles []model.Article) string {
	best, bestScore := "", -1.0
	for i := range articles {
		if s := CanonicalScore(&articles[i]); s > bestScore {
			best, bestScore = articles[i].ID, s
		}
	}
	return best
}
