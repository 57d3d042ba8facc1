package facts

import "strings"

var groupStopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "to": true, "for": true,
}

// Group clusters candidates greedily: each unused candidate seeds a group
// and pulls in every later unused candidate sharing at least two keywords
// with the seed.
func Group(candidates []Candidate) [][]Candidate {
	keys := make([]map[string]bool, len(candidates))
	for i, c := range candidates {
		keys[i] = keywordSet(c.Text)
	}

	used := make([]bool, len(candidates))
	var groups [][]Candidate
	for i := range candidates {
		if used[i] {
			continue
		}
		used[i] = true
		group := []Candidate{candidates[i]}
		for j := i + 1; j < len(candidates); j++ {
			if used[j] || shared(keys[i], keys[j]) < minSharedKeywords {
				continue
			}
			used[j] = true
			group = append(group, candidates[j])
		}
		groups = append(groups, group)
	}
	return groups
}

// keywordSet keeps words longer than three bytes that are not stop
// words, then trims punctuation. Length and stop words are checked on the
// untrimmed word, so "war." is a keyword.
func keywordSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		if len(w) <= 3 || groupStopWords[w] {
			continue
		}
		if w = strings.Trim(w, ".,!?;:"); w != "" {
			set[w] = true
		}
	}
	return set
}

func shared(a, b map[string]bool) int {
	if len(b) < len(a) {
		a, b = b, a
	}
	n := 0
	for k := range a {
		if b[k] {
			n++
		}
	}
	return n
}
