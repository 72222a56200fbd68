package storage

import (
	"context"
	"sync"

	"github.com/news-recommender/backend/internal/news"
)

type memoryUser struct {
	passwordHash []byte
	likes        []news.Article
}

// MemoryStore keeps users and likes in process memory. Nothing survives a restart.
type MemoryStore struct {
	users      map[string]*memoryUser
	bcryptCost int
	mu         sync.RWMutex
}

func NewMemoryStore(bcryptCost int) *MemoryStore {
	return &MemoryStore{
		users:      make(map[string]*memoryUser),
		bcryptCost: bcryptCost,
	}
}

func (s *MemoryStore) Register(ctx context.Context, username, password string) error {
	if err := validateCredentials(username, password); err != nil {
		return err
	}
	hash, err := hashPassword(password, s.bcryptCost)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[username]; ok {
		return ErrUserExists
	}
	s.users[username] = &memoryUser{passwordHash: hash}
	return nil
}

func (s *MemoryStore) Authenticate(ctx context.Context, username, password string) error {
	s.mu.RLock()
	user, ok := s.users[username]
	s.mu.RUnlock()
	if !ok {
		return ErrInvalidCredentials
	}
	return checkPassword(user.passwordHash, password)
}

func (s *MemoryStore) Exists(ctx context.Context, username string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.users[username]
	return ok, nil
}

// Likes returns a copy of the user's likes
func (s *MemoryStore) Likes(ctx context.Context, username string) ([]news.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[username]
	if !ok {
		return nil, ErrUserNotFound
	}
	likes := make([]news.Article, len(user.likes))
	copy(likes, user.likes)
	return likes, nil
}

func (s *MemoryStore) Like(ctx context.Context, username string, article news.Article) (int, error) {
	if err := validateArticle(article); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[username]
	if !ok {
		return 0, ErrUserNotFound
	}
	user.likes = appendLike(user.likes, article)
	return len(user.likes), nil
}

func (s *MemoryStore) Unlike(ctx context.Context, username, url string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[username]
	if !ok {
		return 0, ErrUserNotFound
	}
	user.likes = removeLike(user.likes, url)
	return len(user.likes), nil
}

// Close is a no-op for memory storage
func (s *MemoryStore) Close() error {
	return nil
}
