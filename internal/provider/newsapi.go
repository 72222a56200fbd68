package provider

import (
	"context"

	"github.com/news-recommender/backend/internal/fetcher"
	"github.com/news-recommender/backend/internal/news"
)

// NewsAPIProvider serves top headlines from NewsAPI
type NewsAPIProvider struct {
	Fetcher        *fetcher.Fetcher
	DefaultCountry string
}

func NewNewsAPIProvider(f *fetcher.Fetcher, defaultCountry string) *NewsAPIProvider {
	return &NewsAPIProvider{
		Fetcher:        f,
		DefaultCountry: defaultCountry,
	}
}

func (p *NewsAPIProvider) Name() string {
	return "newsapi"
}

func (p *NewsAPIProvider) Candidates(ctx context.Context, q Query) ([]news.Article, error) {
	country := q.Country
	if country == "" {
		country = p.DefaultCountry
	}
	resp, err := p.Fetcher.TopHeadlines(ctx, fetcher.HeadlinesQuery{
		Country:  country,
		Category: q.Category,
		Query:    q.Keywords,
		PageSize: q.PageSize,
	})
	if err != nil {
		return nil, err
	}
	return resp.Articles, nil
}
