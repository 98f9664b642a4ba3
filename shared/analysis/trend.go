package analysis

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"credibility-stack/internal/models"
)

// ErrNoVideos is returned wherever an average over videos is requested for an
// empty result set.
var ErrNoVideos = errors.New("no videos to average")

// SummarizeTrend averages views, likes and comment counts and checks each
// series for a non-decreasing run, in the order the videos were fetched.
func SummarizeTrend(videos []*models.Video) (*models.TrendSummary, error) {
	if len(videos) == 0 {
		return nil, ErrNoVideos
	}

	views := make([]int64, len(videos))
	likes := make([]int64, len(videos))
	comments := make([]int64, len(videos))
	for i, v := range videos {
		views[i] = v.ViewCount
		likes[i] = v.LikeCount
		comments[i] = v.CommentCount
	}

	summary := &models.TrendSummary{
		AvgViews:           mean(views),
		AvgLikes:           mean(likes),
		AvgComments:        mean(comments),
		IncreasingViews:    nonDecreasing(views),
		IncreasingLikes:    nonDecreasing(likes),
		IncreasingComments: nonDecreasing(comments),
	}
	summary.Narrative = trendNarrative(summary)
	return summary, nil
}

func mean(values []int64) float64 {
	var sum int64
	for _, v := range values {
		sum += v
	}
	return float64(sum) / float64(len(values))
}

// nonDecreasing is vacuously true for zero or one value.
func nonDecreasing(values []int64) bool {
	for i := 1; i < len(values); i++ {
		if values[i] < values[i-1] {
			return false
		}
	}
	return true
}

// trendNarrative keeps the historical wording, including the trailing ", "
// left after the last increasing clause.
func trendNarrative(s *models.TrendSummary) string {
	var b strings.Builder
	b.WriteString("Trend Analysis:\n")
	b.WriteString("Average Views: " + FormatAverage(s.AvgViews) + "\n")
	b.WriteString("Average Likes: " + FormatAverage(s.AvgLikes) + "\n")
	b.WriteString("Average Comments: " + FormatAverage(s.AvgComments) + "\n")
	b.WriteString("There is ")
	if s.IncreasingViews {
		b.WriteString("an increasing trend in views, ")
	}
	if s.IncreasingLikes {
		b.WriteString("an increasing trend in likes, ")
	}
	if s.IncreasingComments {
		b.WriteString("an increasing trend in comments, ")
	}
	if !s.IncreasingViews && !s.IncreasingLikes && !s.IncreasingComments {
		b.WriteString("no significant trend observed in views, likes, or comments over time.")
	}
	return b.String()
}

// FormatAverage prints whole numbers with a trailing ".0" (150.0) and
// everything else in shortest form (15.5).
func FormatAverage(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e16 {
		return strconv.FormatFloat(v, 'f', 1, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
