package analysis

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"

	"credibility-stack/internal/models"
)

// fixedScorer returns a canned compound score per text; unknown texts score 0.
type fixedScorer map[string]float64

func (f fixedScorer) Score(text string) float64 {
	return f[text]
}

// lexiconTagger splits on whitespace and tags words from a lookup table.
// Words missing from the table are tagged "X".
type lexiconTagger struct {
	tags map[string]string
	err  error
}

func (l *lexiconTagger) Tag(text string) ([]Token, error) {
	if l.err != nil {
		return nil, l.err
	}
	var tokens []Token
	for _, word := range strings.Fields(text) {
		word = strings.Trim(word, ".,!?")
		tag, ok := l.tags[word]
		if !ok {
			tag = "X"
		}
		tokens = append(tokens, Token{Text: word, Tag: tag})
	}
	return tokens, nil
}

type fakeResponse struct {
	status int
	body   string
	err    error
}

// fakeQuerier answers by base URL and records every query it sees.
type fakeQuerier struct {
	mu        sync.Mutex
	responses map[string]fakeResponse
	queries   []string
}

func (f *fakeQuerier) Query(ctx context.Context, baseURL string, params url.Values) (*QueryResponse, error) {
	f.mu.Lock()
	f.queries = append(f.queries, baseURL+"?"+params.Encode())
	f.mu.Unlock()

	resp, ok := f.responses[baseURL]
	if !ok {
		return nil, errors.New("connection refused")
	}
	if resp.err != nil {
		return nil, resp.err
	}
	return &QueryResponse{StatusCode: resp.status, Body: []byte(resp.body)}, nil
}

func video(title string, views, likes, comments int64) *models.Video {
	return &models.Video{
		ID:           strings.ReplaceAll(strings.ToLower(title), " ", "-"),
		Title:        title,
		Description:  title + " description",
		ViewCount:    views,
		LikeCount:    likes,
		CommentCount: comments,
	}
}
