// Package sentiment classifies free text as Positive, Negative or Neutral
// from a lexicon-based compound polarity score.
package sentiment

import (
	"github.com/jonreiter/govader"
)

// Labels and their presentation emoji.
const (
	Positive = "Positive"
	Negative = "Negative"
	Neutral  = "Neutral"

	PositiveEmoji = "😊"
	NegativeEmoji = "😢"
	NeutralEmoji  = "😐"
)

// Classification thresholds on the compound score, inclusive.
const (
	PositiveThreshold = 0.05
	NegativeThreshold = -0.05
)

// Scorer computes the compound polarity of a text in [-1, 1].
type Scorer interface {
	Compound(text string) float64
}

// VaderScorer scores text with the VADER lexicon. It is safe for concurrent
// use once constructed.
type VaderScorer struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

// NewVaderScorer loads the embedded VADER lexicon.
func NewVaderScorer() *VaderScorer {
	return &VaderScorer{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

func (v *VaderScorer) Compound(text string) float64 {
	return v.analyzer.PolarityScores(text).Compound
}

// Result is the outcome of one analysis.
type Result struct {
	Label string  `json:"prediction"`
	Emoji string  `json:"emoji"`
	Score float64 `json:"-"`
}

// Classify maps a compound score to its label and emoji.
func Classify(score float64) Result {
	switch {
	case score >= PositiveThreshold:
		return Result{Label: Positive, Emoji: PositiveEmoji, Score: score}
	case score <= NegativeThreshold:
		return Result{Label: Negative, Emoji: NegativeEmoji, Score: score}
	default:
		return Result{Label: Neutral, Emoji: NeutralEmoji, Score: score}
	}
}

// Analyzer classifies text with an injected Scorer.
type Analyzer struct {
	scorer Scorer
}

func NewAnalyzer(scorer Scorer) *Analyzer {
	return &Analyzer{scorer: scorer}
}

// Analyze returns the classification of text. Empty text yields an empty
// Result without consulting the scorer.
func (a *Analyzer) Analyze(text string) Result {
	if text == "" {
		return Result{}
	}
	return Classify(a.scorer.Compound(text))
}
