package news

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// Source identifies the publisher of an article
type Source struct {
	ID   string `json:"id,omitempty" yaml:"id,omitempty"`
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
}

// Article is a headline record as delivered by the upstream news API.
// Empty text fields are treated as absent.
type Article struct {
	Source      Source `json:"source" yaml:"source"`
	Author      string `json:"author,omitempty" yaml:"author,omitempty"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	URL         string `json:"url" yaml:"url"`
	URLToImage  string `json:"urlToImage,omitempty" yaml:"urlToImage,omitempty"`
	PublishedAt string `json:"publishedAt,omitempty" yaml:"publishedAt,omitempty"`
	Content     string `json:"content,omitempty" yaml:"content,omitempty"`
}

// Text joins title, description and content with single spaces.
// Absent fields still contribute their separator.
func (a Article) Text() string {
	return a.Title + " " + a.Description + " " + a.Content
}

// Published parses PublishedAt. It reports false when the value is empty
// or cannot be parsed.
func (a Article) Published() (time.Time, bool) {
	raw := strings.TrimSpace(a.PublishedAt)
	if raw == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, true
	}
	t, err := dateparse.ParseIn(raw, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ScoredArticle is an Article annotated with its ranking score
type ScoredArticle struct {
	Article
	Score float64 `json:"__score"`
}

// Response is the envelope returned by the news API
type Response struct {
	Status       string    `json:"status"`
	TotalResults int       `json:"totalResults"`
	Articles     []Article `json:"articles"`
	Code         string    `json:"code,omitempty"`
	Message      string    `json:"message,omitempty"`
}
