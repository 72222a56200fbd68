package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/news-recommender/backend/internal/config"
	"github.com/news-recommender/backend/internal/news"
)

var (
	ErrUserExists         = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidInput       = errors.New("invalid input")
	ErrPasswordTooLong    = fmt.Errorf("password must be at most %d bytes", MaxPasswordBytes)
)

// MaxPasswordBytes is the longest password bcrypt accepts
const MaxPasswordBytes = 72

// UserStore manages accounts
type UserStore interface {
	Register(ctx context.Context, username, password string) error
	Authenticate(ctx context.Context, username, password string) error
	Exists(ctx context.Context, username string) (bool, error)
}

// LikeStore holds the articles each user has liked. Likes are keyed by
// article URL and returned in the order they were added.
type LikeStore interface {
	Likes(ctx context.Context, username string) ([]news.Article, error)
	Like(ctx context.Context, username string, article news.Article) (int, error)
	Unlike(ctx context.Context, username, url string) (int, error)
}

// Store is the full persistence capability used by the engine
type Store interface {
	UserStore
	LikeStore
	Close() error
}

// New builds the backend selected by cfg.Backend
func New(cfg config.StorageConfig) (Store, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "memory":
		return NewMemoryStore(cfg.BcryptCost), nil
	case "file":
		return NewFileStorage(cfg.Dir, cfg.BcryptCost)
	case "sqlite":
		return NewSQLiteStore(cfg.SQLitePath, cfg.BcryptCost)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

func validateCredentials(username, password string) error {
	if strings.TrimSpace(username) == "" || password == "" {
		return fmt.Errorf("%w: username and password required", ErrInvalidInput)
	}
	if len(password) > MaxPasswordBytes {
		return fmt.Errorf("%w: %w", ErrInvalidInput, ErrPasswordTooLong)
	}
	return nil
}

func validateArticle(article news.Article) error {
	if strings.TrimSpace(article.URL) == "" {
		return fmt.Errorf("%w: article url required", ErrInvalidInput)
	}
	return nil
}

func hashPassword(password string, cost int) ([]byte, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	return hash, nil
}

func checkPassword(hash []byte, password string) error {
	if bcrypt.CompareHashAndPassword(hash, []byte(password)) != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// appendLike adds article unless its URL is already present
func appendLike(likes []news.Article, article news.Article) []news.Article {
	for _, a := range likes {
		if a.URL == article.URL {
			return likes
		}
	}
	return append(likes, article)
}

func removeLike(likes []news.Article, url string) []news.Article {
	kept := likes[:0]
	for _, a := range likes {
		if a.URL != url {
			kept = append(kept, a)
		}
	}
	return kept
}
