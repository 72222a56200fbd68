package recommend

import (
	"math"
	"sort"

	"github.com/news-recommender/backend/internal/news"
)

const (
	// milliseconds in a 30 day month
	boostPeriodMillis = 1000 * 3600 * 24 * 30
	boostPerPeriod    = 0.01
)

// Cosine calculates the cosine similarity between two term vectors.
// It returns 0 when either vector has no weight.
func Cosine(a, b TermVector) float64 {
	normA, normB := a.Norm2(), b.Norm2()
	if normA == 0 || normB == 0 {
		return 0
	}

	small, big := a, b
	if len(b) < len(a) {
		small, big = b, a
	}
	dot := 0
	for term, count := range small {
		if other, ok := big[term]; ok {
			dot += count * other
		}
	}
	return float64(dot) / (math.Sqrt(float64(normA)) * math.Sqrt(float64(normB)))
}

// ScoreArticle returns the similarity between a profile and one article
func ScoreArticle(profile TermVector, a news.Article) float64 {
	return Cosine(profile, ArticleVector(a))
}

// RecencyBoost grows with the absolute publish time, not with freshness
// relative to now. Missing, invalid and epoch timestamps get no boost.
func RecencyBoost(a news.Article) float64 {
	t, ok := a.Published()
	if !ok {
		return 0
	}
	ms := t.UnixMilli()
	if ms == 0 {
		return 0
	}
	return (float64(ms) / boostPeriodMillis) * boostPerPeriod
}

// Rank scores candidates against the profile built from liked articles and
// sorts them by descending score.
func Rank(liked, candidates []news.Article) []news.ScoredArticle {
	return RankWithProfile(BuildProfile(liked), candidates)
}

// RankWithProfile scores candidates against an existing profile. Exact ties
// keep their input order.
func RankWithProfile(profile TermVector, candidates []news.Article) []news.ScoredArticle {
	results := make([]news.ScoredArticle, len(candidates))
	for i, a := range candidates {
		results[i] = news.ScoredArticle{
			Article: a,
			Score:   ScoreArticle(profile, a) + RecencyBoost(a),
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}
