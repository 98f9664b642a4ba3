package models

import (
	"strings"
	"time"
)

type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// SentimentTally counts classified comments. Total always equals the number
// of comments that were classified.
type SentimentTally struct {
	Positive int `json:"positive"`
	Neutral  int `json:"neutral"`
	Negative int `json:"negative"`
}

func (t SentimentTally) Total() int {
	return t.Positive + t.Neutral + t.Negative
}

// Verdict is the outcome of checking one video against one reference source.
type Verdict string

const (
	VerdictAligns     Verdict = "aligns"
	VerdictUnreliable Verdict = "unreliable-warning"
	VerdictParseError Verdict = "parse-error"
	VerdictFetchError Verdict = "fetch-error"
)

// ComparisonLine is one (video, source) verdict.
type ComparisonLine struct {
	VideoTitle string  `json:"video_title"`
	Source     string  `json:"source"`
	Verdict    Verdict `json:"verdict"`
}

func (l ComparisonLine) String() string {
	switch l.Verdict {
	case VerdictAligns:
		return "Video '" + l.VideoTitle + "' aligns with " + l.Source + "."
	case VerdictUnreliable:
		return "Warning: Video '" + l.VideoTitle + "' may contain unreliable information according to " + l.Source + "."
	case VerdictParseError:
		return "Error: Unable to parse response from " + l.Source + " as JSON."
	default:
		return "Error: Unable to retrieve data from " + l.Source + "."
	}
}

// ComparisonReport accumulates verdict lines in video-major, source-minor order.
type ComparisonReport struct {
	Lines []ComparisonLine `json:"lines"`
}

// Text renders every line newline-terminated. An empty report renders as "".
func (r *ComparisonReport) Text() string {
	if r == nil {
		return ""
	}
	var b strings.Builder
	for _, line := range r.Lines {
		b.WriteString(line.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// Count returns how many lines carry the given verdict.
func (r *ComparisonReport) Count(v Verdict) int {
	if r == nil {
		return 0
	}
	n := 0
	for _, line := range r.Lines {
		if line.Verdict == v {
			n++
		}
	}
	return n
}

type TrendSummary struct {
	AvgViews           float64 `json:"avg_views"`
	AvgLikes           float64 `json:"avg_likes"`
	AvgComments        float64 `json:"avg_comments"`
	IncreasingViews    bool    `json:"increasing_views"`
	IncreasingLikes    bool    `json:"increasing_likes"`
	IncreasingComments bool    `json:"increasing_comments"`
	Narrative          string  `json:"narrative"`
}

// Conclusion is the reduced result of one analysis run. When NoComments is
// set every other field is zero.
type Conclusion struct {
	NoComments bool              `json:"no_comments"`
	Sentiment  Sentiment         `json:"sentiment"`
	AvgViews   float64           `json:"avg_views"`
	AvgLikes   float64           `json:"avg_likes"`
	Themes     []string          `json:"themes"`
	Comparison *ComparisonReport `json:"comparison"`
	Trend      *TrendSummary     `json:"trend"`
}

// SentimentLabel is what gets printed for the dominant sentiment.
func (c *Conclusion) SentimentLabel() string {
	if c.NoComments {
		return "No comments found."
	}
	return string(c.Sentiment)
}

func (c *Conclusion) ComparisonText() string {
	return c.Comparison.Text()
}

func (c *Conclusion) TrendText() string {
	if c.Trend == nil {
		return ""
	}
	return c.Trend.Narrative
}

// Assessment is the optional model-written credibility verdict for a run.
type Assessment struct {
	Verdict    string `json:"verdict"`
	Confidence int    `json:"confidence"` // 1-10
	Summary    string `json:"summary"`
	Reasoning  string `json:"reasoning"`
}

// RunRecord is a persisted summary of one analysis run.
type RunRecord struct {
	ID          string    `json:"id"`
	Keyword     string    `json:"keyword"`
	RanAt       time.Time `json:"ran_at"`
	Sentiment   string    `json:"sentiment"`
	Positive    int       `json:"positive"`
	Neutral     int       `json:"neutral"`
	Negative    int       `json:"negative"`
	VideoCount  int       `json:"video_count"`
	AvgViews    float64   `json:"avg_views"`
	AvgLikes    float64   `json:"avg_likes"`
	Themes      []string  `json:"themes"`
	Aligned     int       `json:"aligned"`
	FetchErrors int       `json:"fetch_errors"`
}

// Report is the payload handed to the email sender.
type Report struct {
	Date       time.Time      `json:"date"`
	Keyword    string         `json:"keyword"`
	Videos     []*Video       `json:"videos"`
	Tally      SentimentTally `json:"tally"`
	Conclusion *Conclusion    `json:"conclusion"`
	Assessment *Assessment    `json:"assessment,omitempty"`
	Previous   *RunRecord     `json:"previous,omitempty"`
}
