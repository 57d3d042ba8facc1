// Package bias scores a single article's text for tone, loaded language
// and subjectivity, and combines article measurements into the Bias Index
// and Transparency Score.
package bias

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/abelbrown/prism/internal/model"
)

const (
	toneSentences      = 10  // sentences sampled for tone
	minToneSentenceLen = 10  // shorter fragments are skipped
	maxLoadedPhrases   = 8   // per article
	maxPhraseLen       = 100 // characters kept per flagged phrase
)

// Analysis is the per-text scoring result.
type Analysis struct {
	Tone          float64 // [-1, 1]
	LexicalBias   float64 // [0, 1]
	Subjectivity  float64 // [0, 1]
	LoadedPhrases []model.LoadedPhrase
}

// Analyzer scores texts. Tagger is optional and enables the
// part-of-speech weighted lexical score.
type Analyzer struct {
	classifier SentimentClassifier
	tagger     Tagger
}

// NewAnalyzer builds an Analyzer. A nil classifier selects LexiconSentiment.
func NewAnalyzer(classifier SentimentClassifier, tagger Tagger) *Analyzer {
	if classifier == nil {
		classifier = LexiconSentiment{}
	}
	return &Analyzer{classifier: classifier, tagger: tagger}
}

// Analyze scores text. It fails when ctx is done or the tagger fails.
func (a *Analyzer) Analyze(ctx context.Context, text string) (Analysis, error) {
	tone, err := a.Tone(ctx, text)
	if err != nil {
		return Analysis{}, err
	}
	lexical, err := a.LexicalBias(text)
	if err != nil {
		return Analysis{}, fmt.Errorf("lexical bias: %w", err)
	}
	return Analysis{
		Tone:          tone,
		LexicalBias:   lexical,
		Subjectivity:  Subjectivity(text),
		LoadedPhrases: LoadedPhrases(text),
	}, nil
}

// Tone is the mean signed sentiment of the first sentences of text.
// A sentence the classifier cannot handle is skipped.
func (a *Analyzer) Tone(ctx context.Context, text string) (float64, error) {
	sentences := strings.Split(text, ".")
	if len(sentences) > toneSentences {
		sentences = sentences[:toneSentences]
	}

	var sum float64
	var n int
	for _, s := range sentences {
		if err := ctx.Err(); err != nil {
			return 0, fmt.Errorf("tone: %w", err)
		}
		s = strings.TrimSpace(s)
		if len(s) < minToneSentenceLen {
			continue
		}
		res, err := a.classifier.Classify(ctx, s)
		if err != nil {
			continue
		}
		switch res.Label {
		case Positive:
			sum += res.Score
		case Negative:
			sum -= res.Score
		}
		n++
	}
	if n == 0 {
		return 0, nil
	}
	return sum / float64(n), nil
}

// LexicalBias measures loaded-language density.
//
// With a tagger: min((loaded*2 + modifiers*0.1) / alphaTokens, 1), where
// loaded counts lexicon occurrences as substrings and modifiers counts
// adjectives and adverbs. Without: min(loaded / words, 1) counting
// whitespace tokens equal to a lexicon term.
func (a *Analyzer) LexicalBias(text string) (float64, error) {
	lower := strings.ToLower(text)

	if a.tagger == nil {
		words := strings.Fields(lower)
		if len(words) == 0 {
			return 0, nil
		}
		loaded := 0
		for _, w := range words {
			if lexiconTerms[w] {
				loaded++
			}
		}
		return math.Min(float64(loaded)/float64(len(words)), 1), nil
	}

	loaded := 0
	for term := range lexiconTerms {
		loaded += strings.Count(lower, term)
	}

	toks, err := a.tagger.Tag(text)
	if err != nil {
		return 0, err
	}
	var alpha, modifiers int
	for _, tok := range toks {
		if !isAlpha(tok.Text) {
			continue
		}
		alpha++
		if tok.POS == Adj || tok.POS == Adv {
			modifiers++
		}
	}
	if alpha == 0 {
		return 0, nil
	}
	return math.Min((float64(loaded)*2+float64(modifiers)*0.1)/float64(alpha), 1), nil
}

// Subjectivity is the number of distinct opinion markers present divided
// by the sentence count, capped at 1.
func Subjectivity(text string) float64 {
	lower := strings.ToLower(text)
	present := 0
	for _, m := range SubjectivityMarkers {
		if strings.Contains(lower, m) {
			present++
		}
	}
	sentences := len(strings.Split(text, "."))
	return math.Min(float64(present)/float64(sentences), 1)
}

// LoadedPhrases flags sentences containing lexicon terms, one entry per
// term found, in lexicon order within a sentence, at most maxLoadedPhrases.
func LoadedPhrases(text string) []model.LoadedPhrase {
	var out []model.LoadedPhrase
	for _, s := range Sentences(text) {
		lower := strings.ToLower(s)
		for _, cat := range Lexicon {
			for _, term := range cat.Terms {
				if !strings.Contains(lower, term) {
					continue
				}
				out = append(out, model.LoadedPhrase{
					Phrase:      truncate(s, maxPhraseLen),
					Type:        cat.Name,
					Explanation: "Contains " + cat.Name + " language",
				})
				if len(out) == maxLoadedPhrases {
					return out
				}
			}
		}
	}
	return out
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
