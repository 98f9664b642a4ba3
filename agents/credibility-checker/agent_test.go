package credibilitychecker

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"credibility-stack/internal/models"
	"credibility-stack/shared/analysis"
	"credibility-stack/shared/config"
	"credibility-stack/shared/monitoring"
	"credibility-stack/shared/scheduler"
	"credibility-stack/shared/storage"
)

type fakeVideoSource struct {
	videos          []*models.Video
	comments        []string
	commentFailures int
	searchErr       error
	gotKeyword      string
	gotMax          int64
}

func (f *fakeVideoSource) SearchVideos(ctx context.Context, keyword string, maxResults int64) ([]*models.Video, error) {
	f.gotKeyword, f.gotMax = keyword, maxResults
	return f.videos, f.searchErr
}

func (f *fakeVideoSource) CollectComments(ctx context.Context, videos []*models.Video, keyword string, perVideo int64) ([]string, int) {
	return f.comments, f.commentFailures
}

// wordScorer scores comments containing "love" as positive and "hate" as negative.
type wordScorer struct{}

func (wordScorer) Score(text string) float64 {
	switch {
	case strings.Contains(text, "love"):
		return 0.8
	case strings.Contains(text, "hate"):
		return -0.8
	}
	return 0
}

// capitalTagger tags capitalized words longer than one letter as proper nouns.
type capitalTagger struct{}

func (capitalTagger) Tag(text string) ([]analysis.Token, error) {
	var tokens []analysis.Token
	for _, w := range strings.Fields(text) {
		tag := "X"
		if len(w) > 1 && w[0] >= 'A' && w[0] <= 'Z' {
			tag = analysis.TagProperNoun
		}
		tokens = append(tokens, analysis.Token{Text: w, Tag: tag})
	}
	return tokens, nil
}

type staticQuerier struct{ body string }

func (q staticQuerier) Query(ctx context.Context, baseURL string, params url.Values) (*analysis.QueryResponse, error) {
	return &analysis.QueryResponse{StatusCode: 200, Body: []byte(q.body)}, nil
}

type fakeAssessor struct {
	err error
	got *models.Report
}

func (f *fakeAssessor) Assess(ctx context.Context, report *models.Report) (*models.Assessment, error) {
	f.got = report
	if f.err != nil {
		return nil, f.err
	}
	return &models.Assessment{Verdict: "credible", Confidence: 7, Summary: "ok"}, nil
}

type fakeSender struct {
	sent []*models.Report
	err  error
}

func (f *fakeSender) SendReport(report *models.Report) error {
	f.sent = append(f.sent, report)
	return f.err
}

type recordedEvents struct {
	success  scheduler.Metrics
	partials []error
}

func (r *recordedEvents) events() *scheduler.AgentEvents {
	return &scheduler.AgentEvents{
		OnSuccess:         func(m scheduler.Metrics, d time.Duration) { r.success = m },
		OnPartialFailure:  func(err error, d time.Duration) { r.partials = append(r.partials, err) },
		OnCriticalFailure: func(err error, d time.Duration) {},
	}
}

func testConfig() *config.Config {
	return &config.Config{
		Search: config.SearchConfig{Keyword: "moon landing", MaxResults: 5},
		Sources: []config.Source{
			{Name: "Wikipedia", URL: "https://en.wikipedia.org/"},
			{Name: "Reuters", URL: "https://www.reuters.com/"},
		},
	}
}

func newTestAgent(t *testing.T, source *fakeVideoSource, reliability string) (*CredibilityAgent, *storage.History) {
	t.Helper()

	history, err := storage.NewHistory(t.TempDir(), 0)
	if err != nil {
		t.Fatalf("NewHistory: %v", err)
	}
	t.Cleanup(func() { history.Close() })

	cfg := testConfig()
	agent := NewCredibilityAgent(cfg, monitoring.NewMonitor())
	agent.videos = source
	agent.history = history
	agent.pipeline = analysis.NewPipeline(
		analysis.NewSentimentClassifier(wordScorer{}),
		analysis.NewThemeExtractor(capitalTagger{}),
		analysis.NewSourceComparator(cfg.Sources, staticQuerier{body: `{"reliability": "` + reliability + `"}`}, 2),
	)
	return agent, history
}

func testVideos() []*models.Video {
	return []*models.Video{
		{ID: "a", Title: "Apollo", ViewCount: 100, LikeCount: 10, CommentCount: 5},
		{ID: "b", Title: "Hoax", ViewCount: 200, LikeCount: 20, CommentCount: 5},
	}
}

func TestCredibilityAgentName(t *testing.T) {
	agent := NewCredibilityAgent(&config.Config{}, nil)
	if name := agent.Name(); name != "Credibility Checker" {
		t.Errorf("Agent.Name() = %s, want Credibility Checker", name)
	}
}

func TestCredibilityMetricsGetSummary(t *testing.T) {
	tests := []struct {
		name     string
		metrics  CredibilityMetrics
		expected string
	}{
		{
			name:     "All zeros",
			metrics:  CredibilityMetrics{Keyword: "k", Sentiment: "No comments found."},
			expected: `"k": found 0 videos, classified 0 comments (No comments found.), 0/0 source checks aligned`,
		},
		{
			name: "With lookups",
			metrics: CredibilityMetrics{
				Keyword:      "moon landing",
				VideosFound:  2,
				Comments:     3,
				Sentiment:    "positive",
				Aligned:      2,
				Unreliable:   1,
				LookupErrors: 1,
			},
			expected: `"moon landing": found 2 videos, classified 3 comments (positive), 2/4 source checks aligned`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := tt.metrics.GetSummary(); result != tt.expected {
				t.Errorf("GetSummary() = %s, want %s", result, tt.expected)
			}
		})
	}
}

func TestRunOnce(t *testing.T) {
	source := &fakeVideoSource{
		videos:   testVideos(),
		comments: []string{"I love NASA", "I hate Hoax videos", "NASA again"},
	}
	agent, history := newTestAgent(t, source, "high")
	assessor := &fakeAssessor{}
	sender := &fakeSender{}
	agent.assessor = assessor
	agent.sender = sender

	var rec recordedEvents
	if err := agent.RunOnce(context.Background(), rec.events()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}

	if source.gotKeyword != "moon landing" || source.gotMax != 5 {
		t.Errorf("search called with %q/%d", source.gotKeyword, source.gotMax)
	}
	if len(rec.partials) != 0 {
		t.Errorf("unexpected partial failures: %v", rec.partials)
	}

	metrics, ok := rec.success.(CredibilityMetrics)
	if !ok {
		t.Fatalf("OnSuccess metrics = %T, want CredibilityMetrics", rec.success)
	}
	if metrics.VideosFound != 2 || metrics.Comments != 3 || metrics.Aligned != 4 {
		t.Errorf("metrics = %+v", metrics)
	}
	if metrics.Sentiment != "neutral" {
		t.Errorf("Sentiment = %s, want neutral (one positive, one negative)", metrics.Sentiment)
	}

	report := agent.LastReport()
	if report == nil {
		t.Fatal("LastReport() = nil after a successful run")
	}
	if report.Conclusion.AvgViews != 150 || report.Conclusion.AvgLikes != 15 {
		t.Errorf("averages = %v/%v, want 150/15", report.Conclusion.AvgViews, report.Conclusion.AvgLikes)
	}
	if len(report.Conclusion.Themes) == 0 || report.Conclusion.Themes[0] != "NASA" {
		t.Errorf("Themes = %v, want NASA first", report.Conclusion.Themes)
	}
	if report.Assessment == nil || report.Assessment.Verdict != "credible" {
		t.Errorf("Assessment = %+v", report.Assessment)
	}
	if assessor.got != report {
		t.Error("assessor did not receive the report")
	}
	if len(sender.sent) != 1 || sender.sent[0] != report {
		t.Errorf("sender got %d reports", len(sender.sent))
	}

	last, err := history.LastRun("moon landing")
	if err != nil || last == nil {
		t.Fatalf("LastRun() = %v, %v", last, err)
	}
	if last.Aligned != 4 || last.VideoCount != 2 || last.Sentiment != "neutral" {
		t.Errorf("saved run = %+v", last)
	}
	if agent.monitor.LastRun() == nil {
		t.Error("monitor did not receive the last run")
	}
}

func TestRunOnceLinksPreviousRun(t *testing.T) {
	source := &fakeVideoSource{videos: testVideos(), comments: []string{"I love it"}}
	agent, _ := newTestAgent(t, source, "low")

	var rec recordedEvents
	for i := 0; i < 2; i++ {
		if err := agent.RunOnce(context.Background(), rec.events()); err != nil {
			t.Fatalf("RunOnce() #%d error = %v", i+1, err)
		}
	}

	report := agent.LastReport()
	if report.Previous == nil {
		t.Fatal("second run should see the first in history")
	}
	if report.Previous.Sentiment != "positive" {
		t.Errorf("Previous.Sentiment = %s, want positive", report.Previous.Sentiment)
	}
	if metrics := rec.success.(CredibilityMetrics); metrics.Unreliable != 2*len(testConfig().Sources) {
		t.Errorf("Unreliable = %d", metrics.Unreliable)
	}
}

func TestRunOnceNoComments(t *testing.T) {
	source := &fakeVideoSource{videos: testVideos(), commentFailures: 2}
	agent, _ := newTestAgent(t, source, "high")

	var rec recordedEvents
	if err := agent.RunOnce(context.Background(), rec.events()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}

	if len(rec.partials) != 1 || !strings.Contains(rec.partials[0].Error(), "comments unavailable for 2 of 2 videos") {
		t.Errorf("partials = %v", rec.partials)
	}
	report := agent.LastReport()
	if !report.Conclusion.NoComments || report.Conclusion.SentimentLabel() != "No comments found." {
		t.Errorf("conclusion = %+v", report.Conclusion)
	}
}

func TestRunOnceNoVideos(t *testing.T) {
	agent, _ := newTestAgent(t, &fakeVideoSource{videos: []*models.Video{}}, "high")

	var rec recordedEvents
	if err := agent.RunOnce(context.Background(), rec.events()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if got := rec.success.(CredibilityMetrics); got.VideosFound != 0 || got.Sentiment != "No comments found." {
		t.Errorf("metrics = %+v", got)
	}
}

func TestRunOnceFailures(t *testing.T) {
	t.Run("NoKeyword", func(t *testing.T) {
		agent, _ := newTestAgent(t, &fakeVideoSource{}, "high")
		agent.config.Search.Keyword = ""

		var rec recordedEvents
		if err := agent.RunOnce(context.Background(), rec.events()); !errors.Is(err, ErrNoKeyword) {
			t.Errorf("RunOnce() error = %v, want ErrNoKeyword", err)
		}
	})

	t.Run("SearchError", func(t *testing.T) {
		agent, _ := newTestAgent(t, &fakeVideoSource{searchErr: errors.New("quota exceeded")}, "high")

		var rec recordedEvents
		err := agent.RunOnce(context.Background(), rec.events())
		if err == nil || !strings.Contains(err.Error(), "quota exceeded") {
			t.Errorf("RunOnce() error = %v, want search failure", err)
		}
		if rec.success != nil {
			t.Error("OnSuccess should not fire on failure")
		}
	})

	t.Run("AssessmentAndEmailArePartial", func(t *testing.T) {
		agent, _ := newTestAgent(t, &fakeVideoSource{videos: testVideos(), comments: []string{"I love it"}}, "high")
		agent.assessor = &fakeAssessor{err: errors.New("model overloaded")}
		agent.sender = &fakeSender{err: errors.New("smtp down")}

		var rec recordedEvents
		if err := agent.RunOnce(context.Background(), rec.events()); err != nil {
			t.Fatalf("RunOnce() error = %v", err)
		}
		if len(rec.partials) != 2 {
			t.Errorf("partials = %v, want assessment and email failures", rec.partials)
		}
		if rec.success == nil {
			t.Error("OnSuccess should still fire")
		}
		if agent.LastReport().Assessment != nil {
			t.Error("failed assessment should leave Assessment nil")
		}
	})
}

func TestRunOnceThroughScheduler(t *testing.T) {
	agent, _ := newTestAgent(t, &fakeVideoSource{videos: testVideos(), comments: []string{"I love it"}}, "high")
	monitor := agent.monitor
	s := scheduler.New(agent.config, agent, monitor)

	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("scheduler RunOnce() error = %v", err)
	}
	if !monitor.IsHealthy() {
		t.Error("monitor should be healthy")
	}
	if !strings.Contains(monitor.GetStatusSummary(), `"moon landing": found 2 videos`) {
		t.Errorf("status = %q", monitor.GetStatusSummary())
	}
}

func TestInitializeWithoutCredential(t *testing.T) {
	agent := NewCredibilityAgent(testConfig(), nil)
	if err := agent.Initialize(); err == nil {
		t.Error("Initialize() expected error without a YouTube credential")
	}
}
