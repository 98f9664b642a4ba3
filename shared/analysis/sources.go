package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"credibility-stack/internal/models"
	"credibility-stack/shared/config"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// maxResponseBytes caps how much of a source response is read for parsing.
const maxResponseBytes = 1 << 20

// QueryResponse is the raw outcome of a successful round trip.
type QueryResponse struct {
	StatusCode int
	Body       []byte
}

// Querier issues a GET against a source's base URL with extra query params.
// A returned error means no response was obtained at all.
type Querier interface {
	Query(ctx context.Context, baseURL string, params url.Values) (*QueryResponse, error)
}

// HTTPQuerier is the production Querier. Requests are paced by a shared
// limiter and bounded by the client timeout.
type HTTPQuerier struct {
	client  *http.Client
	limiter *rate.Limiter
}

func NewHTTPQuerier(timeout time.Duration, requestsPerSecond float64) *HTTPQuerier {
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	return &HTTPQuerier{
		client: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(limit, 1),
	}
}

func (q *HTTPQuerier) Query(ctx context.Context, baseURL string, params url.Values) (*QueryResponse, error) {
	if err := q.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid source url %s: %w", baseURL, err)
	}
	query := u.Query()
	for k, vs := range params {
		for _, v := range vs {
			query.Add(k, v)
		}
	}
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create source request: %w", err)
	}

	resp, err := q.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", baseURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", baseURL, err)
	}

	return &QueryResponse{StatusCode: resp.StatusCode, Body: body}, nil
}

// SourceComparator checks every video against every registry entry. It has no
// failure exit: lookups that fail are recorded as report lines.
type SourceComparator struct {
	sources     []config.Source
	querier     Querier
	concurrency int
}

func NewSourceComparator(sources []config.Source, querier Querier, concurrency int) *SourceComparator {
	if concurrency < 1 {
		concurrency = 1
	}
	return &SourceComparator{
		sources:     sources,
		querier:     querier,
		concurrency: concurrency,
	}
}

// Compare returns one line per (video, source) pair, video-major in input
// order, source-minor in registry order.
func (c *SourceComparator) Compare(ctx context.Context, videos []*models.Video, keyword string) *models.ComparisonReport {
	report := &models.ComparisonReport{}
	if len(videos) == 0 || len(c.sources) == 0 {
		return report
	}

	log.Printf("Cross-checking %d videos for %q against %d sources", len(videos), keyword, len(c.sources))

	report.Lines = make([]models.ComparisonLine, len(videos)*len(c.sources))

	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for i, video := range videos {
		for j, source := range c.sources {
			slot := &report.Lines[i*len(c.sources)+j]
			g.Go(func() error {
				*slot = models.ComparisonLine{
					VideoTitle: video.Title,
					Source:     source.Name,
					Verdict:    c.check(ctx, video, source),
				}
				return nil
			})
		}
	}
	_ = g.Wait()

	log.Printf("Source comparison complete: %d aligned, %d warnings, %d unparseable, %d unreachable",
		report.Count(models.VerdictAligns), report.Count(models.VerdictUnreliable),
		report.Count(models.VerdictParseError), report.Count(models.VerdictFetchError))

	return report
}

func (c *SourceComparator) check(ctx context.Context, video *models.Video, source config.Source) models.Verdict {
	resp, err := c.querier.Query(ctx, source.URL, url.Values{"query": {video.Description}})
	if err != nil {
		return models.VerdictFetchError
	}
	if resp.StatusCode != http.StatusOK {
		return models.VerdictFetchError
	}

	var body map[string]any
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return models.VerdictParseError
	}

	if reliability, _ := body["reliability"].(string); reliability == "high" {
		return models.VerdictAligns
	}
	return models.VerdictUnreliable
}
