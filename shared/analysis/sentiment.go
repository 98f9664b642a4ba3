package analysis

import (
	"credibility-stack/internal/models"

	"github.com/jonreiter/govader"
)

// Compound-score bounds. Both are inclusive.
const (
	positiveThreshold = 0.05
	negativeThreshold = -0.05
)

// Scorer returns a compound polarity score in [-1, 1] for a text.
type Scorer interface {
	Score(text string) float64
}

// VaderScorer scores text with the VADER lexicon.
type VaderScorer struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

func NewVaderScorer() *VaderScorer {
	return &VaderScorer{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

func (v *VaderScorer) Score(text string) float64 {
	return v.analyzer.PolarityScores(text).Compound
}

// SentimentClassifier buckets texts into positive, neutral and negative.
type SentimentClassifier struct {
	scorer Scorer
}

func NewSentimentClassifier(scorer Scorer) *SentimentClassifier {
	return &SentimentClassifier{scorer: scorer}
}

func (c *SentimentClassifier) Classify(text string) models.Sentiment {
	return classifyScore(c.scorer.Score(text))
}

func classifyScore(score float64) models.Sentiment {
	switch {
	case score >= positiveThreshold:
		return models.SentimentPositive
	case score <= negativeThreshold:
		return models.SentimentNegative
	default:
		return models.SentimentNeutral
	}
}

// Tally classifies every comment independently.
func (c *SentimentClassifier) Tally(comments []string) models.SentimentTally {
	var tally models.SentimentTally
	for _, comment := range comments {
		switch c.Classify(comment) {
		case models.SentimentPositive:
			tally.Positive++
		case models.SentimentNegative:
			tally.Negative++
		default:
			tally.Neutral++
		}
	}
	return tally
}
