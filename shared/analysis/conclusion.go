package analysis

import (
	"fmt"

	"credibility-stack/internal/models"
)

// Conclude reduces a pipeline result to the final summary. With no classified
// comments it returns the empty "no comments" conclusion without touching the
// videos; with comments but no videos it returns ErrNoVideos.
func Conclude(res *Result) (*models.Conclusion, error) {
	total := res.Tally.Total()
	if total == 0 {
		return &models.Conclusion{
			NoComments: true,
			Themes:     []string{},
			Comparison: &models.ComparisonReport{},
		}, nil
	}

	positivePct := float64(res.Tally.Positive) / float64(total) * 100
	negativePct := float64(res.Tally.Negative) / float64(total) * 100

	label := models.SentimentNeutral
	switch {
	case positivePct > negativePct:
		label = models.SentimentPositive
	case negativePct > positivePct:
		label = models.SentimentNegative
	}

	if len(res.Videos) == 0 {
		return nil, fmt.Errorf("failed to compute engagement averages: %w", ErrNoVideos)
	}

	var totalViews, totalLikes int64
	for _, v := range res.Videos {
		totalViews += v.ViewCount
		totalLikes += v.LikeCount
	}

	return &models.Conclusion{
		Sentiment:  label,
		AvgViews:   float64(totalViews) / float64(len(res.Videos)),
		AvgLikes:   float64(totalLikes) / float64(len(res.Videos)),
		Themes:     res.Themes,
		Comparison: res.Comparison,
		Trend:      res.Trend,
	}, nil
}
