package bias

import (
	"context"
	"strings"
	"unicode"
)

// Label is a sentiment class.
type Label string

const (
	Positive Label = "positive"
	Negative Label = "negative"
	Neutral  Label = "neutral"
)

// Sentiment is a classifier verdict with confidence in [0,1].
type Sentiment struct {
	Label Label
	Score float64
}

// SentimentClassifier labels a sentence.
type SentimentClassifier interface {
	Classify(ctx context.Context, sentence string) (Sentiment, error)
}

// LexiconSentiment counts polarity words. Confidence is
// |pos-neg|/(pos+neg); ties and sentences without polarity words are
// neutral.
type LexiconSentiment struct{}

// Classify implements SentimentClassifier.
func (LexiconSentiment) Classify(_ context.Context, sentence string) (Sentiment, error) {
	var pos, neg int
	for _, w := range tokenize(sentence) {
		switch {
		case positiveWords[w]:
			pos++
		case negativeWords[w]:
			neg++
		}
	}
	if pos == neg {
		return Sentiment{Label: Neutral, Score: 0}, nil
	}
	conf := float64(abs(pos-neg)) / float64(pos+neg)
	if pos > neg {
		return Sentiment{Label: Positive, Score: conf}, nil
	}
	return Sentiment{Label: Negative, Score: conf}, nil
}

// tokenize lower-cases text and splits it into letter/digit/apostrophe runs.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
