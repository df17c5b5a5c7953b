package exercises

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/m3rciful/logobot/core/logger"
)

// YouTubeConfig configures the video search client.
type YouTubeConfig struct {
	APIKey string `yaml:"api_key" envconfig:"YOUTUBE_API_KEY"`
	// Endpoint overrides the API base URL. Tests point it at a local server.
	Endpoint   string `yaml:"endpoint" envconfig:"YOUTUBE_ENDPOINT"`
	Results    int    `yaml:"results" envconfig:"YOUTUBE_RESULTS"`
	Language   string `yaml:"language" envconfig:"YOUTUBE_LANGUAGE"`
	SafeSearch string `yaml:"safe_search" envconfig:"YOUTUBE_SAFE_SEARCH"`
	TimeoutMS  int    `yaml:"timeout_ms" envconfig:"YOUTUBE_TIMEOUT_MS"`
}

// Normalize fills defaults.
func (c *YouTubeConfig) Normalize() error {
	c.APIKey = strings.TrimSpace(c.APIKey)
	if c.Results == 0 {
		c.Results = 5
	}
	if c.Results < 1 || c.Results > 10 {
		return fmt.Errorf("youtube.results must be between 1 and 10")
	}
	if c.Language == "" {
		c.Language = "ru"
	}
	switch c.SafeSearch {
	case "":
		c.SafeSearch = "strict"
	case "strict", "moderate", "none":
	default:
		return fmt.Errorf("invalid youtube.safe_search %q; allowed: strict, moderate, none", c.SafeSearch)
	}
	if c.TimeoutMS <= 0 {
		c.TimeoutMS = 10000
	}
	return nil
}

// YouTube searches videos through the YouTube Data API.
type YouTube struct {
	svc *youtube.Service
	cfg YouTubeConfig
}

// NewYouTube builds a client.
func NewYouTube(ctx context.Context, cfg YouTubeConfig) (*YouTube, error) {
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	if cfg.APIKey == "" {
		return nil, errors.New("youtube: api key is empty")
	}
	opts := []option.ClientOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	svc, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("youtube: %w", err)
	}
	return &YouTube{svc: svc, cfg: cfg}, nil
}

// Search returns up to limit videos for query.
func (y *YouTube) Search(ctx context.Context, query string, limit int) ([]Video, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(y.cfg.TimeoutMS)*time.Millisecond)
	defer cancel()
	start := time.Now()
	resp, err := y.svc.Search.List([]string{"snippet"}).
		Q(query).
		Type("video").
		MaxResults(int64(limit)).
		RelevanceLanguage(y.cfg.Language).
		SafeSearch(y.cfg.SafeSearch).
		Order("relevance").
		Context(ctx).
		Do()
	attrs := []any{
		slog.String("event", "youtube.search"),
		slog.Int("limit", limit),
		slog.Duration("duration", logger.Took(start)),
	}
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) {
			attrs = append(attrs, slog.Int("http_status", apiErr.Code))
		}
		logger.SVCExercises.WarnContext(ctx, "search failed", append(attrs, slog.String("err", err.Error()))...)
		return nil, err
	}

	videos := make([]Video, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Id == nil || item.Id.VideoId == "" || item.Snippet == nil {
			continue
		}
		videos = append(videos, Video{
			ID:      item.Id.VideoId,
			Title:   html.UnescapeString(item.Snippet.Title),
			Channel: html.UnescapeString(item.Snippet.ChannelTitle),
		})
	}
	logger.SVCExercises.DebugContext(ctx, "search done", append(attrs, slog.Int("count", len(videos)))...)
	return videos, nil
}
