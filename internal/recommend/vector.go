package recommend

import (
	"github.com/news-recommender/backend/internal/news"
)

// TermVector maps a term to its occurrence count. Stored counts are always >= 1.
type TermVector map[string]int

// Vectorize counts term occurrences
func Vectorize(tokens []string) TermVector {
	v := make(TermVector, len(tokens))
	for _, t := range tokens {
		v[t]++
	}
	return v
}

// AddVectors adds every count of v into acc and returns acc.
// A nil acc is allocated.
func AddVectors(acc, v TermVector) TermVector {
	if acc == nil {
		acc = make(TermVector, len(v))
	}
	for term, count := range v {
		acc[term] += count
	}
	return acc
}

// ArticleVector builds the term vector of a single article's text
func ArticleVector(a news.Article) TermVector {
	return Vectorize(Tokenize(a.Text()))
}

// BuildProfile folds the vectors of all liked articles into one profile.
// An empty input yields an empty profile.
func BuildProfile(liked []news.Article) TermVector {
	profile := make(TermVector)
	for _, a := range liked {
		AddVectors(profile, ArticleVector(a))
	}
	return profile
}

// Clone returns an independent copy
func (v TermVector) Clone() TermVector {
	out := make(TermVector, len(v))
	for term, count := range v {
		out[term] = count
	}
	return out
}

// Norm2 returns the squared euclidean norm
func (v TermVector) Norm2() int {
	n := 0
	for _, count := range v {
		n += count * count
	}
	return n
}
