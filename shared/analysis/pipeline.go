package analysis

import (
	"context"
	"errors"
	"fmt"
	"log"

	"credibility-stack/internal/models"

	"golang.org/x/sync/errgroup"
)

// Result bundles the four sub-analyses with the inputs they were run on.
type Result struct {
	Keyword    string
	Videos     []*models.Video
	Comments   []string
	Tally      models.SentimentTally
	Themes     []string
	Comparison *models.ComparisonReport
	Trend      *models.TrendSummary // nil when there were no videos
}

// Pipeline runs sentiment, theme, source and trend analysis over one fetched
// result set.
type Pipeline struct {
	classifier *SentimentClassifier
	extractor  *ThemeExtractor
	comparator *SourceComparator
	topThemes  int
}

func NewPipeline(classifier *SentimentClassifier, extractor *ThemeExtractor, comparator *SourceComparator) *Pipeline {
	return &Pipeline{
		classifier: classifier,
		extractor:  extractor,
		comparator: comparator,
		topThemes:  DefaultTopThemes,
	}
}

// Run executes all four sub-analyses concurrently. Each one always runs to
// completion; only a tagging failure is returned.
func (p *Pipeline) Run(ctx context.Context, videos []*models.Video, comments []string, keyword string) (*Result, error) {
	res := &Result{
		Keyword:  keyword,
		Videos:   videos,
		Comments: comments,
	}

	var g errgroup.Group

	g.Go(func() error {
		res.Tally = p.classifier.Tally(comments)
		return nil
	})

	g.Go(func() error {
		themes, err := p.extractor.Extract(comments, p.topThemes)
		if err != nil {
			return fmt.Errorf("failed to extract themes: %w", err)
		}
		res.Themes = themes
		return nil
	})

	g.Go(func() error {
		res.Comparison = p.comparator.Compare(ctx, videos, keyword)
		return nil
	})

	g.Go(func() error {
		trend, err := SummarizeTrend(videos)
		if errors.Is(err, ErrNoVideos) {
			log.Println("No videos fetched, skipping trend analysis")
			return nil
		}
		res.Trend = trend
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.Printf("Analysis complete: %d comments (%d positive, %d neutral, %d negative), themes %v",
		res.Tally.Total(), res.Tally.Positive, res.Tally.Neutral, res.Tally.Negative, res.Themes)

	return res, nil
}
