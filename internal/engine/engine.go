package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/news-recommender/backend/internal/config"
	"github.com/news-recommender/backend/internal/fetcher"
	"github.com/news-recommender/backend/internal/metrics"
	"github.com/news-recommender/backend/internal/news"
	"github.com/news-recommender/backend/internal/provider"
	"github.com/news-recommender/backend/internal/recommend"
	"github.com/news-recommender/backend/internal/storage"
)

// ErrSearchUnavailable is returned by Search when no NewsAPI client is configured
var ErrSearchUnavailable = errors.New("article search is not configured")

// Engine wires the likes store and the candidate source to the ranking core
type Engine struct {
	Config  *config.Config
	Logger  *logrus.Entry
	Store   storage.Store
	Source  provider.ArticleSource
	Fetcher *fetcher.Fetcher

	mu    sync.RWMutex
	stats EngineStats
}

type EngineStats struct {
	Recommendations  int64     `json:"recommendations"`
	CandidatesScored int64     `json:"candidates_scored"`
	Likes            int64     `json:"likes"`
	Unlikes          int64     `json:"unlikes"`
	LastError        string    `json:"last_error,omitempty"`
	StartTime        time.Time `json:"start_time"`
}

func NewEngine(cfg *config.Config, logger *logrus.Entry, store storage.Store, source provider.ArticleSource, f *fetcher.Fetcher) (*Engine, error) {
	if store == nil {
		return nil, errors.New("engine: store is required")
	}
	if source == nil {
		return nil, errors.New("engine: candidate source is required")
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Engine{
		Config:  cfg,
		Logger:  logger.WithField("component", "engine"),
		Store:   store,
		Source:  source,
		Fetcher: f,
		stats:   EngineStats{StartTime: time.Now()},
	}, nil
}

func (e *Engine) Register(ctx context.Context, username, password string) error {
	if err := e.Store.Register(ctx, username, password); err != nil {
		return err
	}
	e.Logger.WithField("user", username).Info("Registered user")
	return nil
}

func (e *Engine) Login(ctx context.Context, username, password string) error {
	if err := e.Store.Authenticate(ctx, username, password); err != nil {
		e.Logger.WithField("user", username).Debug("Login rejected")
		return err
	}
	return nil
}

func (e *Engine) UserExists(ctx context.Context, username string) (bool, error) {
	if username == "" {
		return false, nil
	}
	return e.Store.Exists(ctx, username)
}

func (e *Engine) Likes(ctx context.Context, username string) ([]news.Article, error) {
	return e.Store.Likes(ctx, username)
}

// Like records a liked article and returns the user's like count
func (e *Engine) Like(ctx context.Context, username string, article news.Article) (int, error) {
	count, err := e.Store.Like(ctx, username, article)
	if err != nil {
		return 0, err
	}
	metrics.LikesTotal.WithLabelValues("like").Inc()
	e.mu.Lock()
	e.stats.Likes++
	e.mu.Unlock()
	e.Logger.WithFields(logrus.Fields{"user": username, "url": article.URL, "count": count}).Debug("Liked article")
	return count, nil
}

func (e *Engine) Unlike(ctx context.Context, username, url string) (int, error) {
	count, err := e.Store.Unlike(ctx, username, url)
	if err != nil {
		return 0, err
	}
	metrics.LikesTotal.WithLabelValues("unlike").Inc()
	e.mu.Lock()
	e.stats.Unlikes++
	e.mu.Unlock()
	e.Logger.WithFields(logrus.Fields{"user": username, "url": url, "count": count}).Debug("Unliked article")
	return count, nil
}

// Recommend ranks fresh candidates against a snapshot of the user's likes
func (e *Engine) Recommend(ctx context.Context, username string, q provider.Query) ([]news.ScoredArticle, error) {
	// 1. Snapshot likes
	liked, err := e.Store.Likes(ctx, username)
	if err != nil {
		return nil, err
	}

	// 2. Candidates
	candidates, err := e.Source.Candidates(ctx, q)
	if err != nil {
		metrics.UpstreamErrors.WithLabelValues(e.Source.Name()).Inc()
		e.recordError(err)
		return nil, fmt.Errorf("failed to fetch candidates from %s: %w", e.Source.Name(), err)
	}

	// 3. Rank
	start := time.Now()
	profile := recommend.BuildProfile(liked)
	ranked := recommend.RankWithProfile(profile, candidates)
	metrics.RecordRanking(len(profile), len(candidates), time.Since(start))

	e.mu.Lock()
	e.stats.Recommendations++
	e.stats.CandidatesScored += int64(len(candidates))
	e.mu.Unlock()

	e.Logger.WithFields(logrus.Fields{
		"user":       username,
		"likes":      len(liked),
		"terms":      len(profile),
		"candidates": len(candidates),
		"source":     e.Source.Name(),
	}).Info("Ranked recommendations")
	return ranked, nil
}

// Search proxies a keyword search to the NewsAPI archive
func (e *Engine) Search(ctx context.Context, q fetcher.EverythingQuery) (*news.Response, error) {
	if e.Fetcher == nil {
		return nil, ErrSearchUnavailable
	}
	resp, err := e.Fetcher.Everything(ctx, q)
	if err != nil {
		metrics.UpstreamErrors.WithLabelValues("newsapi").Inc()
		e.recordError(err)
		return nil, err
	}
	return resp, nil
}

// Stats returns a copy of the engine counters
func (e *Engine) Stats() EngineStats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.stats
}

func (e *Engine) recordError(err error) {
	e.mu.Lock()
	e.stats.LastError = err.Error()
	e.mu.Unlock()
	e.Logger.WithError(err).Warn("Upstream request failed")
}
