package provider

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/news-recommender/backend/internal/config"
	"github.com/news-recommender/backend/internal/fetcher"
	"github.com/news-recommender/backend/internal/news"
)

// ArticleSource supplies candidate articles for ranking
type ArticleSource interface {
	Candidates(ctx context.Context, q Query) ([]news.Article, error)
	Name() string
}

// Query narrows the candidate set
type Query struct {
	Country  string
	Category string
	Keywords string
	PageSize int
}

// New builds the source selected by cfg.Source.Provider
func New(cfg *config.Config, f *fetcher.Fetcher, logger *logrus.Entry) (ArticleSource, error) {
	switch cfg.Source.Provider {
	case "", "newsapi":
		return NewNewsAPIProvider(f, cfg.NewsAPI.Country), nil
	case "static":
		if cfg.Source.CandidatesFile == "" {
			return nil, fmt.Errorf("static provider requires CANDIDATES_FILE")
		}
		p, err := LoadStaticProvider(cfg.Source.CandidatesFile)
		if err != nil {
			return nil, err
		}
		if logger != nil {
			logger.WithField("articles", len(p.articles)).Info("Loaded static candidate articles")
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown candidate source %q", cfg.Source.Provider)
	}
}
