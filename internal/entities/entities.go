// Package entities is a rule-based named-entity recognizer for English
// news text. No model required: places come from a gazetteer, dates
// from patterns, and people, organizations and events from capitalized
// spans with cue words.
package entities

import (
	"regexp"
	"strings"
	"unicode"
)

// Type is an entity label.
type Type string

const (
	Person Type = "PERSON"
	Org    Type = "ORG"
	Place  Type = "GPE"
	Event  Type = "EVENT"
	Date   Type = "DATE"
)

// Entity is one recognized mention.
type Entity struct {
	Text string
	Type Type
}

// Recognizer finds entities with heuristics. The zero value is ready to use.
type Recognizer struct{}

// New returns a Recognizer.
func New() *Recognizer {
	return &Recognizer{}
}

// Recognize returns the entities in text, deduplicated by text and type,
// in order of first appearance per rule.
func (r *Recognizer) Recognize(text string) []Entity {
	var out []Entity
	seen := make(map[Entity]bool)
	add := func(e Entity) {
		if e.Text == "" || seen[e] {
			return
		}
		seen[e] = true
		out = append(out, e)
	}

	for _, d := range datePatterns {
		for _, m := range d.FindAllString(text, -1) {
			add(Entity{Text: m, Type: Date})
		}
	}

	lower := strings.ToLower(text)
	for _, p := range placeNames {
		if containsWord(lower, p) {
			add(Entity{Text: p, Type: Place})
		}
	}

	for _, span := range capitalizedSpans(text) {
		if t, ok := classifySpan(span); ok {
			add(Entity{Text: span.text, Type: t})
		}
	}
	return out
}

// Has reports whether text contains at least one entity of the given types.
func (r *Recognizer) Has(text string, types ...Type) bool {
	want := make(map[Type]bool, len(types))
	for _, t := range types {
		want[t] = true
	}
	for _, e := range r.Recognize(text) {
		if want[e.Type] {
			return true
		}
	}
	return false
}

var months = `\b(?:January|February|March|April|May|June|July|August|September|October|November|December|Jan\.?|Feb\.?|Mar\.?|Apr\.?|Jun\.?|Jul\.?|Aug\.?|Sept?\.?|Oct\.?|Nov\.?|Dec\.?)`

var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(months + `\s+\d{1,2}(?:st|nd|rd|th)?(?:,\s*\d{4})?`),
	regexp.MustCompile(`\d{1,2}\s+` + months + `(?:\s+\d{4})?`),
	regexp.MustCompile(months + `\s+\d{4}`),
	regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`),
	regexp.MustCompile(`\b(?:Monday|Tuesday|Wednesday|Thursday|Friday|Saturday|Sunday)\b`),
	regexp.MustCompile(`\b(?:19|20)\d{2}\b`),
	regexp.MustCompile(`(?i)\b(?:yesterday|last (?:week|month|year)|next (?:week|month|year))\b`),
}

// placeNames are matched case-insensitively as whole words.
var placeNames = []string{
	"united states", "america", "china", "beijing", "russia", "moscow",
	"kremlin", "united kingdom", "britain", "england", "london", "germany",
	"berlin", "france", "paris", "japan", "tokyo", "india", "new delhi",
	"ukraine", "kyiv", "kiev", "israel", "tel aviv", "jerusalem", "gaza",
	"west bank", "iran", "tehran", "north korea", "pyongyang",
	"south korea", "seoul", "taiwan", "taipei", "syria", "damascus",
	"afghanistan", "kabul", "iraq", "baghdad", "canada", "ottawa",
	"australia", "sydney", "canberra", "brazil", "mexico", "italy", "rome",
	"spain", "madrid", "netherlands", "amsterdam", "switzerland", "geneva",
	"sweden", "norway", "poland", "warsaw", "turkey", "ankara",
	"saudi arabia", "riyadh", "dubai", "egypt", "cairo", "south africa",
	"nigeria", "indonesia", "jakarta", "singapore", "hong kong", "vietnam",
	"thailand", "bangkok", "philippines", "manila", "malaysia", "argentina",
	"chile", "colombia", "venezuela", "washington", "new york",
	"california", "texas", "florida", "brussels", "europe", "africa",
	"asia", "middle east",
}

// containsWord checks if text contains word as a whole word (not substring)
func containsWord(text, word string) bool {
	for {
		idx := strings.Index(text, word)
		if idx < 0 {
			return false
		}
		end := idx + len(word)
		leftOK := idx == 0 || !isAlphaNum(text[idx-1])
		rightOK := end == len(text) || !isAlphaNum(text[end])
		if leftOK && rightOK {
			return true
		}
		text = text[idx+1:]
	}
}

func isAlphaNum(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

var personTitles = map[string]bool{
	"mr": true, "mrs": true, "ms": true, "dr": true, "president": true,
	"prime": true, "minister": true, "senator": true, "sen": true,
	"rep": true, "gov": true, "governor": true, "judge": true,
	"chancellor": true, "secretary": true, "mayor": true, "ceo": true,
	"general": true, "gen": true, "king": true, "queen": true, "pope": true,
}

var orgCues = map[string]bool{
	"inc": true, "corp": true, "corporation": true, "company": true,
	"ltd": true, "llc": true, "group": true, "bank": true,
	"ministry": true, "department": true, "agency": true, "party": true,
	"council": true, "committee": true, "commission": true,
	"university": true, "institute": true, "court": true, "congress": true,
	"parliament": true, "senate": true, "association": true,
	"federation": true, "union": true, "police": true, "army": true,
	"reuters": true, "associated": true, "press": true, "times": true,
	"post": true, "news": true, "fund": true, "organization": true,
}

var eventCues = map[string]bool{
	"summit": true, "election": true, "elections": true, "war": true,
	"olympics": true, "games": true, "conference": true, "crisis": true,
	"protest": true, "protests": true, "attack": true, "agreement": true,
	"accord": true, "cup": true, "festival": true, "championship": true,
	"referendum": true, "earthquake": true, "hurricane": true, "storm": true,
}

// connectors may sit inside a capitalized span ("Bank of England").
var connectors = map[string]bool{"of": true, "the": true, "for": true, "and": true, "de": true}

var shortAcronyms = map[string]bool{
	"UN": true, "EU": true, "NATO": true, "FBI": true, "CIA": true,
	"WHO": true, "IMF": true, "OPEC": true, "BBC": true, "CNN": true,
	"AP": true, "AFP": true, "NASA": true, "FDA": true, "SEC": true,
	"ECB": true, "WTO": true, "ASEAN": true,
}

type span struct {
	text          string
	words         []string
	sentenceStart bool
}

// capitalizedSpans returns maximal runs of capitalized words, allowing
// lower-case connectors between them.
func capitalizedSpans(text string) []span {
	var spans []span
	var cur []string
	curStart := false
	prevEnd := true // start of text counts as sentence start

	flush := func() {
		// drop connectors at either edge ("The", "of")
		for len(cur) > 0 && connectors[strings.ToLower(cur[0])] {
			cur = cur[1:]
		}
		for len(cur) > 0 && connectors[strings.ToLower(cur[len(cur)-1])] {
			cur = cur[:len(cur)-1]
		}
		if len(cur) > 0 {
			spans = append(spans, span{text: strings.Join(cur, " "), words: cur, sentenceStart: curStart})
		}
		cur = nil
	}

	for _, raw := range strings.Fields(text) {
		w := strings.TrimFunc(raw, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '.' && r != '\''
		})
		w = strings.TrimSuffix(strings.TrimSuffix(w, "'s"), ".")
		endsSentence := strings.HasSuffix(raw, ".") || strings.HasSuffix(raw, "!") || strings.HasSuffix(raw, "?")

		switch {
		case w != "" && unicode.IsUpper([]rune(w)[0]):
			if len(cur) == 0 {
				curStart = prevEnd
			}
			cur = append(cur, w)
		case len(cur) > 0 && connectors[w]:
			cur = append(cur, w)
		default:
			flush()
		}

		if endsSentence || strings.HasSuffix(raw, ",") || strings.HasSuffix(raw, ";") || strings.HasSuffix(raw, ":") {
			// abbreviation titles ("Dr.") keep the span open
			if !(endsSentence && personTitles[strings.ToLower(w)]) {
				flush()
			}
		}
		prevEnd = endsSentence
	}
	flush()
	return spans
}

func classifySpan(s span) (Type, bool) {
	first := strings.ToLower(s.words[0])
	last := strings.ToLower(s.words[len(s.words)-1])

	if len(s.words) == 1 && shortAcronyms[s.words[0]] {
		return Org, true
	}
	for _, w := range s.words {
		if eventCues[strings.ToLower(w)] {
			return Event, true
		}
	}
	for _, w := range s.words {
		if orgCues[strings.ToLower(w)] {
			return Org, true
		}
	}
	if personTitles[first] && len(s.words) > 1 {
		return Person, true
	}
	if isPlace(s.text) {
		return "", false // already reported by the gazetteer
	}
	if len(s.words) >= 2 && !connectors[last] && looksLikeName(s.words) {
		return Person, true
	}
	// an all-caps token is most likely an organization acronym
	if len(s.words) == 1 && len(s.words[0]) >= 2 && len(s.words[0]) <= 5 && strings.ToUpper(s.words[0]) == s.words[0] && !s.sentenceStart {
		return Org, true
	}
	return "", false
}

func isPlace(text string) bool {
	lower := strings.ToLower(text)
	for _, p := range placeNames {
		if lower == p {
			return true
		}
	}
	return false
}

// looksLikeName accepts two or three capitalized words without connectors
// or digits, e.g. "Jane Doe".
func looksLikeName(words []string) bool {
	if len(words) > 3 {
		return false
	}
	for _, w := range words {
		if connectors[strings.ToLower(w)] {
			return false
		}
		for _, r := range w {
			if unicode.IsDigit(r) {
				return false
			}
		}
		if strings.ToUpper(w) == w {
			return false
		}
	}
	return true
}
