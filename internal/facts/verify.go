package facts

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/abelbrown/prism/internal/brain"
	"github.com/abelbrown/prism/internal/logging"
	"github.com/abelbrown/prism/internal/model"
)

const verifySystemPrompt = "You are a fact verification assistant. Analyze candidate facts and determine their status across sources."

const verifyPromptTemplate = `You are a fact verification assistant. Given a candidate fact and excerpts from multiple sources, determine:

1. Is the fact (A) Supported - appears verbatim or clearly implied by at least one reliable source
2. (B) Contradicted - some sources claim the opposite
3. (C) Unverified - no sufficient evidence

Candidate fact: %s

Sources:
%s

Return your analysis in this format:
STATUS: [A/B/C]
JUSTIFICATION: [1-line explanation]
QUOTES: [up to 2 supporting quotes with source URLs, separated by |]
`

func (e *Engine) verify(ctx context.Context, group []Candidate) model.Fact {
	out := brain.Complete(ctx, e.verifier, brain.Request{
		SystemPrompt: verifySystemPrompt,
		UserPrompt:   VerificationPrompt(group),
		Temperature:  0.1,
		MaxTokens:    1000,
	})
	if !out.OK() {
		logging.Warn("fact verification failed", "fact", truncate(group[0].Text, 60), "err", out.Err)
		return unverified(group)
	}
	return ParseVerification(out.Text, group)
}

// VerificationPrompt renders the reasoning prompt for a candidate group.
func VerificationPrompt(group []Candidate) string {
	var b strings.Builder
	for i, c := range group {
		if i == maxPromptSources {
			break
		}
		name := c.SourceName
		if name == "" {
			name = "Unknown"
		}
		fmt.Fprintf(&b, "Source: %s (%s)\nExcerpt: %s\n\n", name, c.SourceURL, truncate(c.Text, maxExcerptLen))
	}
	return fmt.Sprintf(verifyPromptTemplate, group[0].Text, strings.TrimRight(b.String(), "\n"))
}

// ParseVerification reads the STATUS, JUSTIFICATION and QUOTES lines of
// a reply. Anything unrecognized leaves the fact unverified.
func ParseVerification(reply string, group []Candidate) model.Fact {
	f := model.Fact{
		Statement: group[0].Text,
		Sources:   groupURLs(group),
		Status:    model.FactUnverified,
	}

	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		key, val, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		val = strings.TrimSpace(val)
		switch strings.ToUpper(strings.TrimSpace(key)) {
		case "STATUS":
			f.Status = parseStatus(val)
		case "JUSTIFICATION":
			f.Justification = val
		case "QUOTES":
			f.Quotes = splitQuotes(val)
		}
	}

	if len(f.Quotes) == 0 {
		for i := 0; i < len(group) && i < maxQuotes; i++ {
			f.Quotes = append(f.Quotes, truncate(group[i].Text, maxFallbackQuote))
		}
	}
	return f
}

// parseStatus takes the first decisive word: A or SUPPORTED, B or
// CONTRADICTED. Whole words only, so UNSUPPORTED is not a match.
func parseStatus(val string) model.FactStatus {
	words := strings.FieldsFunc(strings.ToUpper(val), func(r rune) bool { return !unicode.IsLetter(r) })
	for _, w := range words {
		switch w {
		case "A", "SUPPORTED":
			return model.FactSupported
		case "B", "CONTRADICTED":
			return model.FactContradicted
		case "C", "UNVERIFIED":
			return model.FactUnverified
		}
	}
	return model.FactUnverified
}

func splitQuotes(val string) []string {
	var out []string
	for _, q := range strings.FieldsFunc(val, func(r rune) bool { return r == '|' || r == ';' }) {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		out = append(out, q)
		if len(out) == maxQuotes {
			break
		}
	}
	return out
}

func unverified(group []Candidate) model.Fact {
	f := model.Fact{
		Statement: group[0].Text,
		Sources:   groupURLs(group),
		Status:    model.FactUnverified,
	}
	for i := 0; i < len(group) && i < maxQuotes; i++ {
		f.Quotes = append(f.Quotes, group[i].Text)
	}
	return f
}

// groupURLs returns the distinct non-empty source URLs in group order.
func groupURLs(group []Candidate) []string {
	seen := make(map[string]bool, len(group))
	var out []string
	for _, c := range group {
		if c.SourceURL == "" || seen[c.SourceURL] {
			continue
		}
		seen[c.SourceURL] = true
		out = append(out, c.SourceURL)
	}
	return out
}
