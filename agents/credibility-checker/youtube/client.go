package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"credibility-stack/internal/models"
	"credibility-stack/shared/config"

	"golang.org/x/net/html"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// videosBatchSize is the maximum number of IDs videos.list accepts per call.
const videosBatchSize = 50

type Client struct {
	service     *youtube.Service
	config      *config.YouTubeConfig
	oauthConfig *oauth2.Config
	token       *oauth2.Token
}

// NewClient authenticates with a developer key when one is configured and
// falls back to the device authorization flow otherwise.
func NewClient(ctx context.Context, cfg *config.YouTubeConfig) (*Client, error) {
	if !cfg.UsesOAuth() {
		if cfg.APIKey == "" {
			return nil, config.ErrMissingCredential
		}
		service, err := youtube.NewService(ctx, option.WithAPIKey(cfg.APIKey))
		if err != nil {
			return nil, fmt.Errorf("failed to create YouTube service: %w", err)
		}
		return &Client{service: service, config: cfg}, nil
	}

	oauthConfig := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes:       []string{"https://www.googleapis.com/auth/youtube.force-ssl"},
		Endpoint:     google.Endpoint,
	}

	token, err := getToken(oauthConfig, cfg.TokenFile)
	if err != nil {
		return nil, fmt.Errorf("failed to get OAuth token: %w", err)
	}

	tokenSource := &tokenSaver{
		config:    oauthConfig,
		token:     token,
		tokenFile: cfg.TokenFile,
	}

	httpClient := oauth2.NewClient(ctx, tokenSource)

	service, err := youtube.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}

	return &Client{
		service:     service,
		config:      cfg,
		oauthConfig: oauthConfig,
		token:       token,
	}, nil
}

func newClientWithService(service *youtube.Service, cfg *config.YouTubeConfig) *Client {
	return &Client{service: service, config: cfg}
}

// tokenSaver wraps an oauth2.TokenSource so that refreshed tokens are written
// back to disk and survive restarts.
type tokenSaver struct {
	config    *oauth2.Config
	token     *oauth2.Token
	tokenFile string
	mu        sync.Mutex
}

func (ts *tokenSaver) Token() (*oauth2.Token, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	newToken, err := ts.config.TokenSource(context.Background(), ts.token).Token()
	if err != nil {
		return nil, err
	}

	if newToken.AccessToken != ts.token.AccessToken {
		log.Println("Token refreshed, saving to file")
		ts.token = newToken
		if err := saveToken(ts.tokenFile, newToken); err != nil {
			log.Printf("Warning: Failed to save refreshed token: %v", err)
		}
	}

	return newToken, nil
}

// getToken loads a cached token, keeping expired ones that carry a refresh
// token, and only starts the device flow when nothing usable is on disk.
func getToken(config *oauth2.Config, tokenFile string) (*oauth2.Token, error) {
	tok, err := tokenFromFile(tokenFile)
	if err == nil {
		if tok.RefreshToken != "" {
			log.Printf("Loaded token from file (expires: %v)", tok.Expiry)
			return tok, nil
		}
		if tok.Valid() {
			return tok, nil
		}
	}

	log.Println("Getting new token from web...")
	tok, err = getTokenWithDeviceFlow(config)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			log.Printf("Device authorization response failed (%s): %s", retrieveErr.Response.Status, strings.TrimSpace(string(retrieveErr.Body)))
		}
		return nil, fmt.Errorf("device authorization failed: %w", err)
	}

	if err := saveToken(tokenFile, tok); err != nil {
		log.Printf("Warning: Failed to save token: %v", err)
	}
	return tok, nil
}

func getTokenWithDeviceFlow(config *oauth2.Config) (*oauth2.Token, error) {
	ctx := context.Background()

	resp, err := config.DeviceAuth(ctx, oauth2.AccessTypeOffline)
	if err != nil {
		return nil, fmt.Errorf("unable to start device authorization: %w", err)
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 80))
	fmt.Printf("YOUTUBE DEVICE AUTHORIZATION REQUIRED\n")
	fmt.Printf("%s\n", strings.Repeat("=", 80))
	fmt.Printf("1. Visit %s in your browser (any device works).\n", resp.VerificationURI)
	fmt.Printf("2. Enter this code when prompted: %s\n\n", resp.UserCode)
	fmt.Printf("Waiting for authorization to complete... (Ctrl+C to cancel)\n")
	fmt.Printf("%s\n", strings.Repeat("-", 80))

	tok, err := config.DeviceAccessToken(ctx, resp, oauth2.AccessTypeOffline)
	if err != nil {
		return nil, fmt.Errorf("device authorization did not complete: %w", err)
	}

	fmt.Printf("\nAuthorization successful!\n")
	fmt.Printf("%s\n\n", strings.Repeat("=", 80))

	return tok, nil
}

func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}

func saveToken(path string, token *oauth2.Token) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("unable to create token directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("unable to cache oauth token: %w", err)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(token); err != nil {
		return fmt.Errorf("failed to encode oauth token: %w", err)
	}
	log.Printf("Token saved to: %s", path)
	return nil
}

// RefreshToken proactively refreshes the OAuth token before a scheduled run.
// It is a no-op for API-key clients.
func (c *Client) RefreshToken() error {
	if c.oauthConfig == nil {
		return nil
	}

	newToken, err := c.oauthConfig.TokenSource(context.Background(), c.token).Token()
	if err != nil {
		return fmt.Errorf("failed to refresh token: %w", err)
	}

	if newToken.AccessToken != c.token.AccessToken {
		log.Println("Token refreshed, saving to file")
		c.token = newToken
		if err := saveToken(c.config.TokenFile, newToken); err != nil {
			return fmt.Errorf("failed to save refreshed token: %w", err)
		}
	}

	return nil
}

// SearchVideos returns up to maxResults videos matching keyword, in the
// platform's ranking order, with their engagement statistics filled in.
func (c *Client) SearchVideos(ctx context.Context, keyword string, maxResults int64) ([]*models.Video, error) {
	searchResponse, err := c.service.Search.List([]string{"snippet"}).
		Q(keyword).
		Type("video").
		MaxResults(maxResults).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to search videos: %w", err)
	}

	var videos []*models.Video
	byID := make(map[string]*models.Video)
	for _, item := range searchResponse.Items {
		if item.Id == nil || item.Id.VideoId == "" || item.Snippet == nil {
			continue
		}
		video := &models.Video{
			ID:           item.Id.VideoId,
			Title:        html.UnescapeString(item.Snippet.Title),
			Description:  html.UnescapeString(item.Snippet.Description),
			ChannelTitle: html.UnescapeString(item.Snippet.ChannelTitle),
			URL:          models.WatchURL(item.Id.VideoId),
		}
		if publishedAt, err := time.Parse(time.RFC3339, item.Snippet.PublishedAt); err == nil {
			video.PublishedAt = publishedAt
		}
		videos = append(videos, video)
		byID[video.ID] = video
	}

	if len(videos) == 0 {
		log.Printf("No videos found for %q", keyword)
		return []*models.Video{}, nil
	}

	for i := 0; i < len(videos); i += videosBatchSize {
		end := i + videosBatchSize
		if end > len(videos) {
			end = len(videos)
		}

		ids := make([]string, 0, end-i)
		for _, v := range videos[i:end] {
			ids = append(ids, v.ID)
		}

		videosResponse, err := c.service.Videos.List([]string{"statistics"}).
			Id(strings.Join(ids, ",")).
			Context(ctx).
			Do()
		if err != nil {
			return nil, fmt.Errorf("failed to get video statistics: %w", err)
		}

		for _, item := range videosResponse.Items {
			video, ok := byID[item.Id]
			if !ok || item.Statistics == nil {
				continue
			}
			video.ViewCount = int64(item.Statistics.ViewCount)
			video.LikeCount = int64(item.Statistics.LikeCount)
			video.CommentCount = int64(item.Statistics.CommentCount)
		}
	}

	log.Printf("Found %d videos for %q", len(videos), keyword)

	return videos, nil
}

// GetComments returns up to maxResults top-level comments on a video that
// match keyword, with HTML entities decoded.
func (c *Client) GetComments(ctx context.Context, videoID, keyword string, maxResults int64) ([]string, error) {
	response, err := c.service.CommentThreads.List([]string{"snippet"}).
		VideoId(videoID).
		SearchTerms(keyword).
		MaxResults(maxResults).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get comments for video %s: %w", videoID, err)
	}

	comments := make([]string, 0, len(response.Items))
	for _, thread := range response.Items {
		if thread.Snippet == nil || thread.Snippet.TopLevelComment == nil || thread.Snippet.TopLevelComment.Snippet == nil {
			continue
		}
		comments = append(comments, html.UnescapeString(thread.Snippet.TopLevelComment.Snippet.TextDisplay))
	}

	return comments, nil
}

// CollectComments gathers comments for every video in order. A video whose
// comments cannot be read (comments disabled, say) is logged and
// skipped; the number of skipped videos is returned.
func (c *Client) CollectComments(ctx context.Context, videos []*models.Video, keyword string, perVideo int64) ([]string, int) {
	var all []string
	var failed int
	for _, video := range videos {
		comments, err := c.GetComments(ctx, video.ID, keyword, perVideo)
		if err != nil {
			log.Printf("Warning: Skipping comments for %s (%s): %v", video.ID, video.Title, err)
			failed++
			continue
		}
		all = append(all, comments...)
	}
	return all, failed
}
