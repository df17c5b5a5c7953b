// Package exercises finds articulation exercise videos per category and
// remembers the last list each user saw.
package exercises

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"regexp"
	"sync"

	"github.com/m3rciful/logobot/core/logger"
	"github.com/m3rciful/logobot/internal/apperr"
)

var (
	ErrUnknownCategory = apperr.New(apperr.CodeNotFound, "unknown exercise category")
	ErrVideoExpired    = apperr.New(apperr.CodeNotFound, "video list expired, open the category again")
)

// Category groups exercises under one search query.
type Category struct {
	Code  string `yaml:"code"`
	Title string `yaml:"title"`
	Query string `yaml:"query"`
}

// DefaultCategories are used when the config lists none.
var DefaultCategories = []Category{
	{Code: "sound_r", Title: "Sound R", Query: "логопедические упражнения звук Р для детей"},
	{Code: "sound_l", Title: "Sound L", Query: "логопедические упражнения звук Л для детей"},
	{Code: "sound_sh", Title: "Sound Sh", Query: "логопедические упражнения звук Ш для детей"},
	{Code: "sound_s", Title: "Sound S", Query: "логопедические упражнения звук С для детей"},
	{Code: "articulation", Title: "Articulation gymnastics", Query: "артикуляционная гимнастика для детей логопед"},
}

// Codes travel in button payloads, so they stay short and separator free.
var codeRe = regexp.MustCompile(`^[a-z0-9_]{1,24}$`)

// ValidateCategories rejects empty, malformed or duplicate codes.
func ValidateCategories(cats []Category) error {
	seen := make(map[string]struct{}, len(cats))
	for i, c := range cats {
		if !codeRe.MatchString(c.Code) {
			return fmt.Errorf("exercises.categories[%d]: code %q must match %s", i, c.Code, codeRe)
		}
		if c.Title == "" || c.Query == "" {
			return fmt.Errorf("exercises.categories[%d]: title and query are required", i)
		}
		if _, dup := seen[c.Code]; dup {
			return fmt.Errorf("exercises.categories: duplicate code %q", c.Code)
		}
		seen[c.Code] = struct{}{}
	}
	return nil
}

// Video is one search hit.
type Video struct {
	ID      string
	Title   string
	Channel string
}

// URL is the watch link.
func (v Video) URL() string { return "https://www.youtube.com/watch?v=" + v.ID }

// Searcher runs a video search.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]Video, error)
}

// Service resolves categories to videos.
type Service struct {
	searcher Searcher
	cats     []Category
	byCode   map[string]Category
	limit    int
	offset   func() int

	mu    sync.Mutex
	cache map[int64]map[string][]Video
}

// NewService builds a Service. A nil searcher yields empty lists.
func NewService(searcher Searcher, cats []Category, limit int) *Service {
	if len(cats) == 0 {
		cats = DefaultCategories
	}
	if limit <= 0 {
		limit = 5
	}
	s := &Service{
		searcher: searcher,
		cats:     cats,
		byCode:   make(map[string]Category, len(cats)),
		limit:    limit,
		offset:   func() int { return 1 + rand.IntN(10) },
		cache:    make(map[int64]map[string][]Video),
	}
	for _, c := range cats {
		s.byCode[c.Code] = c
	}
	return s
}

// Categories returns the configured categories in order.
func (s *Service) Categories() []Category { return s.cats }

// Category looks up code.
func (s *Service) Category(code string) (Category, bool) {
	c, ok := s.byCode[code]
	return c, ok
}

// Search lists videos for a category and caches them for userID. With refresh
// a random number of top hits is skipped so the user sees different videos.
// Search failures are logged and give an empty list.
func (s *Service) Search(ctx context.Context, userID int64, code string, refresh bool) ([]Video, error) {
	cat, ok := s.byCode[code]
	if !ok {
		return nil, ErrUnknownCategory
	}
	if s.searcher == nil {
		logger.SVCExercises.WarnContext(ctx, "search disabled",
			slog.String("event", "exercises.search"),
			slog.String("category", code),
			slog.String("status", "skip"),
		)
		return nil, nil
	}

	skip := 0
	if refresh {
		skip = s.offset()
	}
	videos, err := s.searcher.Search(ctx, cat.Query, s.limit+skip)
	if err != nil {
		// The searcher logs the failure; users see an empty list.
		return nil, nil
	}
	if skip > 0 && len(videos) > skip {
		videos = videos[skip:]
	}
	if len(videos) > s.limit {
		videos = videos[:s.limit]
	}

	s.mu.Lock()
	byCat := s.cache[userID]
	if byCat == nil {
		byCat = make(map[string][]Video)
		s.cache[userID] = byCat
	}
	byCat[code] = videos
	s.mu.Unlock()

	cache := "miss"
	if refresh {
		cache = "refresh"
	}
	logger.SVCExercises.InfoContext(ctx, "videos listed",
		slog.String("event", "exercises.search"),
		slog.String("category", code),
		slog.String("cache", cache),
		slog.Int("count", len(videos)),
	)
	return videos, nil
}

// Video returns entry idx of the list userID last saw for code.
func (s *Service) Video(userID int64, code string, idx int) (Video, error) {
	if _, ok := s.byCode[code]; !ok {
		return Video{}, ErrUnknownCategory
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	videos := s.cache[userID][code]
	if idx < 0 || idx >= len(videos) {
		return Video{}, ErrVideoExpired
	}
	return videos[idx], nil
}
