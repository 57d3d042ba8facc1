package bias

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/jdkato/prose/v2"
)

// POS is a coarse part-of-speech tag.
type POS string

const (
	Adj   POS = "ADJ"
	Adv   POS = "ADV"
	Other POS = "X"
)

// Token is a tagged word.
type Token struct {
	Text string
	POS  POS
}

// Tagger assigns parts of speech to the words of a text.
type Tagger interface {
	Tag(text string) ([]Token, error)
}

// ProseTagger tags with prose's averaged perceptron and folds the Penn
// Treebank tags into Adj, Adv and Other.
type ProseTagger struct{}

// Tag implements Tagger. Text is lower-cased before tagging.
func (ProseTagger) Tag(text string) ([]Token, error) {
	doc, err := prose.NewDocument(strings.ToLower(text),
		prose.WithSegmentation(false),
		prose.WithExtraction(false))
	if err != nil {
		return nil, fmt.Errorf("tag: %w", err)
	}
	toks := doc.Tokens()
	out := make([]Token, len(toks))
	for i, t := range toks {
		out[i] = Token{Text: t.Text, POS: coarsePOS(t.Tag)}
	}
	return out, nil
}

func coarsePOS(tag string) POS {
	switch tag {
	case "JJ", "JJR", "JJS":
		return Adj
	case "RB", "RBR", "RBS", "WRB":
		return Adv
	}
	return Other
}

// Sentences splits text into sentences with prose's segmenter, falling
// back to '.' boundaries if the segmenter fails. Empty sentences are
// dropped.
func Sentences(text string) []string {
	var raw []string
	doc, err := prose.NewDocument(text,
		prose.WithTokenization(false),
		prose.WithTagging(false),
		prose.WithExtraction(false))
	if err == nil {
		for _, s := range doc.Sentences() {
			raw = append(raw, s.Text)
		}
	} else {
		raw = strings.Split(text, ".")
	}

	out := raw[:0]
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// isAlpha reports whether s is non-empty and all letters.
func isAlpha(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
