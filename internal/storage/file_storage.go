package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/news-recommender/backend/internal/news"
)

// userRecord is the on-disk document for one user
type userRecord struct {
	Username     string         `json:"username"`
	PasswordHash []byte         `json:"password_hash"`
	Likes        []news.Article `json:"likes"`
}

// FileStorage implements Store with one JSON file per user
type FileStorage struct {
	baseDir    string
	bcryptCost int
	mu         sync.RWMutex
}

// NewFileStorage creates a new file-based storage
func NewFileStorage(baseDir string, bcryptCost int) (*FileStorage, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &FileStorage{
		baseDir:    baseDir,
		bcryptCost: bcryptCost,
	}, nil
}

func (fs *FileStorage) Register(ctx context.Context, username, password string) error {
	if err := validateCredentials(username, password); err != nil {
		return err
	}
	hash, err := hashPassword(password, fs.bcryptCost)
	if err != nil {
		return err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if _, err := fs.read(username); err == nil {
		return ErrUserExists
	} else if !errors.Is(err, ErrUserNotFound) {
		return err
	}
	return fs.write(&userRecord{Username: username, PasswordHash: hash, Likes: []news.Article{}})
}

func (fs *FileStorage) Authenticate(ctx context.Context, username, password string) error {
	fs.mu.RLock()
	rec, err := fs.read(username)
	fs.mu.RUnlock()
	if errors.Is(err, ErrUserNotFound) {
		return ErrInvalidCredentials
	}
	if err != nil {
		return err
	}
	return checkPassword(rec.PasswordHash, password)
}

func (fs *FileStorage) Exists(ctx context.Context, username string) (bool, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	_, err := fs.read(username)
	if errors.Is(err, ErrUserNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (fs *FileStorage) Likes(ctx context.Context, username string) ([]news.Article, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	rec, err := fs.read(username)
	if err != nil {
		return nil, err
	}
	return rec.Likes, nil
}

func (fs *FileStorage) Like(ctx context.Context, username string, article news.Article) (int, error) {
	if err := validateArticle(article); err != nil {
		return 0, err
	}
	return fs.update(username, func(rec *userRecord) {
		rec.Likes = appendLike(rec.Likes, article)
	})
}

func (fs *FileStorage) Unlike(ctx context.Context, username, url string) (int, error) {
	return fs.update(username, func(rec *userRecord) {
		rec.Likes = removeLike(rec.Likes, url)
	})
}

// Close is a no-op for file storage
func (fs *FileStorage) Close() error {
	return nil
}

func (fs *FileStorage) update(username string, mutate func(*userRecord)) (int, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	rec, err := fs.read(username)
	if err != nil {
		return 0, err
	}
	mutate(rec)
	if err := fs.write(rec); err != nil {
		return 0, err
	}
	return len(rec.Likes), nil
}

// read must be called with fs.mu held
func (fs *FileStorage) read(username string) (*userRecord, error) {
	data, err := os.ReadFile(fs.path(username))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var rec userRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user record: %w", err)
	}
	if rec.Username != username {
		return nil, ErrUserNotFound
	}
	return &rec, nil
}

// write must be called with fs.mu held
func (fs *FileStorage) write(rec *userRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal user record: %w", err)
	}

	path := fs.path(rec.Username)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace file: %w", err)
	}
	return nil
}

func (fs *FileStorage) path(username string) string {
	return filepath.Join(fs.baseDir, safeFilename(username))
}

// safeFilename keeps alphanumerics of the username for readability and
// appends a hash so distinct names never share a file
func safeFilename(username string) string {
	safe := make([]rune, 0, len(username))
	for _, r := range username {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			safe = append(safe, r)
		} else {
			safe = append(safe, '_')
		}
	}
	if len(safe) > 64 {
		safe = safe[:64]
	}
	sum := sha256.Sum256([]byte(username))
	return string(safe) + "-" + hex.EncodeToString(sum[:6]) + ".json"
}
