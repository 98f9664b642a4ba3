package credibilitychecker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"credibility-stack/agents/credibility-checker/youtube"
	"credibility-stack/internal/models"
	"credibility-stack/shared/ai"
	"credibility-stack/shared/analysis"
	"credibility-stack/shared/config"
	"credibility-stack/shared/email"
	"credibility-stack/shared/monitoring"
	"credibility-stack/shared/scheduler"
	"credibility-stack/shared/storage"
)

// ErrNoKeyword is returned by RunOnce when no search keyword is configured.
var ErrNoKeyword = errors.New("no search keyword configured")

// VideoSource fetches search results and their comments.
type VideoSource interface {
	SearchVideos(ctx context.Context, keyword string, maxResults int64) ([]*models.Video, error)
	CollectComments(ctx context.Context, videos []*models.Video, keyword string, perVideo int64) ([]string, int)
}

type Assessor interface {
	Assess(ctx context.Context, report *models.Report) (*models.Assessment, error)
}

type ReportSender interface {
	SendReport(report *models.Report) error
}

// RunHistory persists run summaries between runs.
type RunHistory interface {
	LastRun(keyword string) (*models.RunRecord, error)
	SaveRun(rec *models.RunRecord) error
}

// CredibilityMetrics describes one completed run.
type CredibilityMetrics struct {
	Keyword         string
	VideosFound     int
	Comments        int
	CommentFailures int
	Sentiment       string
	Aligned         int
	Unreliable      int
	LookupErrors    int
}

func (m CredibilityMetrics) GetSummary() string {
	return fmt.Sprintf("%q: found %d videos, classified %d comments (%s), %d/%d source checks aligned",
		m.Keyword, m.VideosFound, m.Comments, m.Sentiment, m.Aligned, m.Aligned+m.Unreliable+m.LookupErrors)
}

// CredibilityAgent implements the scheduler.Agent interface
type CredibilityAgent struct {
	config   *config.Config
	videos   VideoSource
	pipeline *analysis.Pipeline
	assessor Assessor
	sender   ReportSender
	history  RunHistory
	monitor  *monitoring.Monitor

	mu         sync.Mutex
	lastReport *models.Report
}

var _ scheduler.Agent = (*CredibilityAgent)(nil)

func NewCredibilityAgent(cfg *config.Config, monitor *monitoring.Monitor) *CredibilityAgent {
	if monitor == nil {
		monitor = monitoring.NewMonitor()
	}
	return &CredibilityAgent{
		config:  cfg,
		monitor: monitor,
	}
}

func (a *CredibilityAgent) Name() string {
	return "Credibility Checker"
}

func (a *CredibilityAgent) Initialize() error {
	log.Printf("Initializing %s...", a.Name())
	ctx := context.Background()

	if a.videos == nil {
		client, err := youtube.NewClient(ctx, &a.config.YouTube)
		if err != nil {
			return fmt.Errorf("failed to create YouTube client: %w", err)
		}
		a.videos = client
		log.Println("YouTube client initialized")
	}

	if a.pipeline == nil {
		querier := analysis.NewHTTPQuerier(a.config.Comparator.Timeout, a.config.Comparator.RequestsPerSecond)
		a.pipeline = analysis.NewPipeline(
			analysis.NewSentimentClassifier(analysis.NewVaderScorer()),
			analysis.NewThemeExtractor(analysis.NewProseTagger()),
			analysis.NewSourceComparator(a.config.Sources, querier, a.config.Comparator.Concurrency),
		)
		log.Printf("Analysis pipeline initialized (%d reference sources)", len(a.config.Sources))
	}

	if a.assessor == nil && a.config.AI.Enabled() {
		assessor, err := ai.NewAssessor(ctx, &a.config.AI)
		if err != nil {
			return fmt.Errorf("failed to create AI assessor: %w", err)
		}
		a.assessor = assessor
		log.Println("AI assessor initialized")
	}

	if a.sender == nil && a.config.Email.Enabled() {
		a.sender = email.NewSender(&a.config.Email)
		log.Println("Email sender initialized")
	}

	if a.history == nil {
		history, err := storage.NewHistory(a.config.Storage.DataDir, a.config.Storage.HistoryRetention)
		if err != nil {
			return fmt.Errorf("failed to open run history: %w", err)
		}
		a.history = history
		log.Printf("Run history opened in %s", a.config.Storage.DataDir)
	}

	return nil
}

// LastReport returns the report of the most recent successful run.
func (a *CredibilityAgent) LastReport() *models.Report {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastReport
}

func (a *CredibilityAgent) RunOnce(ctx context.Context, events *scheduler.AgentEvents) error {
	startTime := time.Now()

	keyword := a.config.Search.Keyword
	if keyword == "" {
		return ErrNoKeyword
	}
	maxResults := a.config.Search.MaxResults

	if refresher, ok := a.videos.(interface{ RefreshToken() error }); ok {
		if err := refresher.RefreshToken(); err != nil {
			log.Printf("Warning: Failed to refresh YouTube token: %v", err)
		}
	}

	log.Printf("Searching YouTube for %q (max %d videos)...", keyword, maxResults)
	videos, err := a.videos.SearchVideos(ctx, keyword, maxResults)
	if err != nil {
		return fmt.Errorf("failed to search videos: %w", err)
	}

	comments, commentFailures := a.videos.CollectComments(ctx, videos, keyword, maxResults)
	log.Printf("Collected %d comments from %d videos", len(comments), len(videos))
	if commentFailures > 0 {
		events.OnPartialFailure(fmt.Errorf("comments unavailable for %d of %d videos", commentFailures, len(videos)), time.Since(startTime))
	}

	res, err := a.pipeline.Run(ctx, videos, comments, keyword)
	if err != nil {
		return fmt.Errorf("failed to analyze results: %w", err)
	}

	conclusion, err := analysis.Conclude(res)
	if err != nil {
		return fmt.Errorf("failed to draw conclusion: %w", err)
	}

	report := &models.Report{
		Date:       startTime,
		Keyword:    keyword,
		Videos:     videos,
		Tally:      res.Tally,
		Conclusion: conclusion,
	}

	previous, err := a.history.LastRun(keyword)
	if err != nil {
		log.Printf("Warning: Failed to load previous run: %v", err)
	}
	report.Previous = previous

	if a.assessor != nil {
		assessment, err := a.assessor.Assess(ctx, report)
		if err != nil {
			events.OnPartialFailure(fmt.Errorf("AI assessment failed: %w", err), time.Since(startTime))
		} else {
			report.Assessment = assessment
			log.Printf("AI assessment: %s (confidence %d/10)", assessment.Verdict, assessment.Confidence)
		}
	}

	rec := newRunRecord(report)
	if previous != nil && previous.Sentiment != rec.Sentiment {
		log.Printf("Sentiment for %q shifted from %s to %s since %s",
			keyword, previous.Sentiment, rec.Sentiment, previous.RanAt.Format("Jan 2 15:04"))
	}
	if err := a.history.SaveRun(rec); err != nil {
		events.OnPartialFailure(fmt.Errorf("failed to save run history: %w", err), time.Since(startTime))
	}
	a.monitor.SetLastRun(rec)

	if a.sender != nil {
		if err := a.sender.SendReport(report); err != nil {
			events.OnPartialFailure(fmt.Errorf("failed to send email report: %w", err), time.Since(startTime))
		} else {
			log.Println("Email report sent successfully")
		}
	}

	a.mu.Lock()
	a.lastReport = report
	a.mu.Unlock()

	comparison := conclusion.Comparison
	events.OnSuccess(CredibilityMetrics{
		Keyword:         keyword,
		VideosFound:     len(videos),
		Comments:        res.Tally.Total(),
		CommentFailures: commentFailures,
		Sentiment:       conclusion.SentimentLabel(),
		Aligned:         comparison.Count(models.VerdictAligns),
		Unreliable:      comparison.Count(models.VerdictUnreliable),
		LookupErrors:    comparison.Count(models.VerdictFetchError) + comparison.Count(models.VerdictParseError),
	}, time.Since(startTime))

	return nil
}

// Close releases the run history if the agent opened one.
func (a *CredibilityAgent) Close() error {
	if closer, ok := a.history.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

func newRunRecord(report *models.Report) *models.RunRecord {
	c := report.Conclusion
	rec := &models.RunRecord{
		Keyword:    report.Keyword,
		RanAt:      report.Date,
		Sentiment:  c.SentimentLabel(),
		Positive:   report.Tally.Positive,
		Neutral:    report.Tally.Neutral,
		Negative:   report.Tally.Negative,
		VideoCount: len(report.Videos),
		AvgViews:   c.AvgViews,
		AvgLikes:   c.AvgLikes,
		Themes:     c.Themes,
	}
	rec.Aligned = c.Comparison.Count(models.VerdictAligns)
	rec.FetchErrors = c.Comparison.Count(models.VerdictFetchError)
	return rec
}
