package facts

import (
	"context"
	"fmt"
	"strings"

	"github.com/abelbrown/prism/internal/brain"
	"github.com/abelbrown/prism/internal/model"
)

// SummaryFailed is the summary text used when the reasoning call fails.
const SummaryFailed = "Fact summary generation failed."

const maxSummaryFacts = 10

// SummaryPrompt lists the first ten statements, each cut to 200 characters.
func SummaryPrompt(ledger []model.Fact) string {
	var b strings.Builder
	for i, f := range ledger {
		if i == maxSummaryFacts {
			break
		}
		fmt.Fprintf(&b, "- %s\n", truncate(f.Statement, maxExcerptLen))
	}
	return "Summarize the following verified facts into a concise fact summary (3-5 sentences):\n\n" +
		b.String() +
		"\nReturn only the summary, no additional commentary."
}

// Summarize asks p for a short prose summary of ledger. Callers usually
// take out.Or(SummaryFailed).
func Summarize(ctx context.Context, p brain.Provider, ledger []model.Fact) brain.Outcome {
	return brain.Complete(ctx, p, brain.Request{
		UserPrompt:  SummaryPrompt(ledger),
		Temperature: 0.1,
		MaxTokens:   300,
	})
}
