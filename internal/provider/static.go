package provider

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/news-recommender/backend/internal/news"
)

// StaticProvider serves a fixed article list, for offline runs and tests
type StaticProvider struct {
	articles []news.Article
}

func NewStaticProvider(articles []news.Article) *StaticProvider {
	return &StaticProvider{articles: articles}
}

// LoadStaticProvider reads articles from a YAML or JSON file. The file holds
// either a bare list or a news API envelope with an "articles" key.
func LoadStaticProvider(path string) (*StaticProvider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read candidates file: %w", err)
	}

	var envelope struct {
		Articles []news.Article `json:"articles" yaml:"articles"`
	}
	var list []news.Article

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if strings.HasPrefix(strings.TrimSpace(string(data)), "[") {
			err = json.Unmarshal(data, &list)
		} else {
			err = json.Unmarshal(data, &envelope)
		}
	default:
		var node yaml.Node
		if err = yaml.Unmarshal(data, &node); err == nil && len(node.Content) > 0 && node.Content[0].Kind == yaml.SequenceNode {
			err = node.Decode(&list)
		} else if err == nil {
			err = yaml.Unmarshal(data, &envelope)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse candidates file %s: %w", path, err)
	}
	if list == nil {
		list = envelope.Articles
	}
	return NewStaticProvider(list), nil
}

func (p *StaticProvider) Name() string {
	return "static"
}

// Candidates returns a copy of the first PageSize articles
func (p *StaticProvider) Candidates(ctx context.Context, q Query) ([]news.Article, error) {
	n := len(p.articles)
	if q.PageSize > 0 && q.PageSize < n {
		n = q.PageSize
	}
	out := make([]news.Article, n)
	copy(out, p.articles[:n])
	return out, nil
}
