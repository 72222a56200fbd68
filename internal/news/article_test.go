package news_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/news-recommender/backend/internal/news"
)

func TestArticle_Text(t *testing.T) {
	a := news.Article{Title: "Title", Description: "Desc", Content: "Body"}
	assert.Equal(t, "Title Desc Body", a.Text())

	assert.Equal(t, "Title  ", news.Article{Title: "Title"}.Text())
	assert.Equal(t, "  ", news.Article{}.Text())
}

func TestArticle_Published(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		ok       bool
		expected time.Time
	}{
		{"RFC3339", "2024-05-01T10:30:00Z", true, time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)},
		{"Offset", "2024-05-01T12:30:00+02:00", true, time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)},
		{"Date only", "2024-05-01", true, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)},
		{"Empty", "", false, time.Time{}},
		{"Garbage", "yesterday-ish", false, time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := news.Article{PublishedAt: tt.raw}.Published()
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, tt.expected.Equal(got), "got %s", got)
			}
		})
	}
}

func TestScoredArticle_JSON(t *testing.T) {
	scored := news.ScoredArticle{
		Article: news.Article{Title: "Hello", URL: "https://example.com/a"},
		Score:   0.25,
	}

	data, err := json.Marshal(scored)
	require.NoError(t, err)

	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Equal(t, "Hello", fields["title"])
	assert.Equal(t, "https://example.com/a", fields["url"])
	assert.Equal(t, 0.25, fields["__score"])
}
