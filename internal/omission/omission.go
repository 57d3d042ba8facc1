// Package omission measures how much of a cluster's fact ledger an
// article leaves out.
package omission

import (
	"strings"

	"github.com/abelbrown/prism/internal/model"
)

const maxKeywords = 10 // per fact

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
	"with": true, "by": true, "is": true, "was": true, "are": true,
	"were": true, "be": true, "been": true, "being": true,
}

// Result is the coverage verdict for one article.
type Result struct {
	Score   float64 // missing / total, 0 for an empty ledger
	Missing []model.Fact
	Present []model.Fact
}

// Detector checks articles against a fact ledger. The zero value is ready.
type Detector struct{}

// New returns a Detector.
func New() *Detector { return &Detector{} }

// Detect reports which facts text mentions. A fact counts as present when
// any of its keywords appears as a substring of the lower-cased text.
func (d *Detector) Detect(facts []model.Fact, text string) Result {
	if len(facts) == 0 {
		return Result{}
	}

	lower := strings.ToLower(text)
	var res Result
	for _, f := range facts {
		if mentions(lower, Keywords(f.Statement)) {
			res.Present = append(res.Present, f)
		} else {
			res.Missing = append(res.Missing, f)
		}
	}
	res.Score = float64(len(res.Missing)) / float64(len(facts))
	return res
}

func mentions(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// Keywords returns up to the first ten stop-word-filtered words of
// statement that are longer than three characters.
func Keywords(statement string) []string {
	var kept []string
	for _, w := range strings.Fields(strings.ToLower(statement)) {
		w = strings.Trim(w, ".,!?;:")
		if w == "" || stopWords[w] {
			continue
		}
		kept = append(kept, w)
		if len(kept) == maxKeywords {
			break
		}
	}

	out := kept[:0]
	for _, w := range kept {
		if len(w) > 3 {
			out = append(out, w)
		}
	}
	return out
}
