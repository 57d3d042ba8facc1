package brain

import (
	"context"
	"errors"
	"strings"
)

// Outcome is the result of a best-effort completion: either text or the
// reason it failed.
type Outcome struct {
	Text string
	Err  error
}

// OK reports whether the call produced usable text.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// Or returns the text, or fallback when the call failed.
func (o Outcome) Or(fallback string) string {
	if o.Err != nil {
		return fallback
	}
	return o.Text
}

var errEmptyCompletion = errors.New("brain: empty completion")

// Complete runs req against p and folds every failure, including an
// empty reply, into the Outcome. A nil provider fails with ErrNotConfigured.
func Complete(ctx context.Context, p Provider, req Request) Outcome {
	if p == nil || !p.Available() {
		return Outcome{Err: ErrNotConfigured}
	}
	resp, err := p.Generate(ctx, req)
	if err != nil {
		return Outcome{Err: err}
	}
	text := strings.TrimSpace(resp.Content)
	if text == "" {
		return Outcome{Err: errEmptyCompletion}
	}
	return Outcome{Text: text}
}
