// Package facts builds a cluster's fact ledger: it pulls candidate factual
// sentences from articles, groups near-duplicates and asks a reasoning
// service whether each group is supported across sources.
package facts

import (
	"context"
	"fmt"
	"strings"

	"github.com/abelbrown/prism/internal/brain"
	"github.com/abelbrown/prism/internal/entities"
	"github.com/abelbrown/prism/internal/logging"
	"github.com/abelbrown/prism/internal/model"
)

const (
	maxCandidates     = 50
	maxGroups         = 20
	maxPromptSources  = 5
	maxExcerptLen     = 200
	maxFallbackQuote  = 100
	maxQuotes         = 2
	minEntitySentence = 20 // characters, recognizer path
	minPlainSentence  = 30 // characters, fallback path
	minSharedKeywords = 2
)

// factTypes are the entity labels that make a sentence look factual.
var factTypes = []entities.Type{entities.Person, entities.Org, entities.Place, entities.Event, entities.Date}

// Recognizer finds named entities in text.
type Recognizer interface {
	Recognize(text string) []entities.Entity
}

// Source is one article as seen by the engine.
type Source struct {
	ID   string
	Text string
	URL  string
	Name string
}

// Candidate is a sentence that may state a fact, with its origin.
type Candidate struct {
	Text       string
	SourceURL  string
	SourceName string
}

// Engine extracts and verifies facts. Both collaborators are optional:
// without a recognizer a punctuation heuristic picks candidates, and
// without a verifier every fact is unverified.
type Engine struct {
	recognizer Recognizer
	verifier   brain.Provider
}

// NewEngine returns an Engine.
func NewEngine(recognizer Recognizer, verifier brain.Provider) *Engine {
	return &Engine{recognizer: recognizer, verifier: verifier}
}

// Extract returns the verified ledger for sources, one Fact per candidate
// group in group order. It fails only when ctx is done.
func (e *Engine) Extract(ctx context.Context, sources []Source) ([]model.Fact, error) {
	candidates := e.Candidates(sources)
	groups := Group(candidates)
	if len(groups) > maxGroups {
		groups = groups[:maxGroups]
	}

	ledger := make([]model.Fact, 0, len(groups))
	for i, g := range groups {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("verify group %d: %w", i, err)
		}
		ledger = append(ledger, e.verify(ctx, g))
	}
	logging.Debug("facts extracted", "sources", len(sources), "candidates", len(candidates), "facts", len(ledger))
	return ledger, nil
}

// Candidates returns up to fifty candidate sentences across sources.
func (e *Engine) Candidates(sources []Source) []Candidate {
	var out []Candidate
	for _, src := range sources {
		var sentences []string
		if e.recognizer != nil {
			sentences = e.entitySentences(src.Text)
		} else {
			sentences = plainSentences(src.Text)
		}
		for _, s := range sentences {
			out = append(out, Candidate{Text: s, SourceURL: src.URL, SourceName: src.Name})
			if len(out) == maxCandidates {
				return out
			}
		}
	}
	return out
}

// entitySentences keeps sentences mentioning any fact-type entity found
// in the article.
func (e *Engine) entitySentences(text string) []string {
	var mentions []string
	for _, ent := range e.recognizer.Recognize(text) {
		for _, t := range factTypes {
			if ent.Type == t {
				mentions = append(mentions, strings.ToLower(ent.Text))
				break
			}
		}
	}
	if len(mentions) == 0 {
		return nil
	}

	var out []string
	for _, s := range splitSentences(text) {
		if len(s) <= minEntitySentence {
			continue
		}
		lower := strings.ToLower(s)
		for _, m := range mentions {
			if strings.Contains(lower, m) {
				out = append(out, s)
				break
			}
		}
	}
	return out
}

// plainSentences keeps '.'-separated sentences longer than thirty
// characters that hold a digit or start with a capital.
func plainSentences(text string) []string {
	var out []string
	for _, raw := range strings.Split(text, ".") {
		s := strings.TrimSpace(raw)
		if len(s) <= minPlainSentence {
			continue
		}
		head := raw
		if len(head) > 10 {
			head = head[:10]
		}
		if strings.ContainsAny(raw, "0123456789") || hasUpper(head) {
			out = append(out, s)
		}
	}
	return out
}

// splitSentences breaks text after '.', '!' or '?' followed by space.
func splitSentences(text string) []string {
	var out []string
	start := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '.', '!', '?':
			if i+1 == len(text) || text[i+1] == ' ' || text[i+1] == '\n' || text[i+1] == '\t' {
				if s := strings.TrimSpace(text[start : i+1]); s != "" {
					out = append(out, s)
				}
				start = i + 1
			}
		}
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		out = append(out, s)
	}
	return out
}

func hasUpper(s string) bool {
	for _, r := range s {
		if r >= 'A' && r <= 'Z' {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && s[n]&0xC0 == 0x80 {
		n--
	}
	return s[:n]
}
