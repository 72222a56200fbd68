package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/news-recommender/backend/internal/news"
)

const createTablesSQL = `
CREATE TABLE IF NOT EXISTS users (
	username TEXT PRIMARY KEY,
	password_hash BLOB NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS likes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT NOT NULL REFERENCES users(username),
	url TEXT NOT NULL,
	article TEXT NOT NULL,
	liked_at INTEGER NOT NULL,
	UNIQUE(username, url)
);
`

// SQLiteStore implements Store on a single SQLite database file
type SQLiteStore struct {
	db         *sql.DB
	bcryptCost int
}

// NewSQLiteStore opens the database at path and creates the tables if needed
func NewSQLiteStore(path string, bcryptCost int) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite: path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("sqlite: create dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// a single writer avoids SQLITE_BUSY between pooled connections
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: set WAL mode: %w", err)
	}
	if _, err := db.Exec(createTablesSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: migrate: %w", err)
	}
	return &SQLiteStore{db: db, bcryptCost: bcryptCost}, nil
}

func (s *SQLiteStore) Register(ctx context.Context, username, password string) error {
	if err := validateCredentials(username, password); err != nil {
		return err
	}
	hash, err := hashPassword(password, s.bcryptCost)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO users (username, password_hash, created_at) VALUES (?, ?, ?)",
		username, hash, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: insert user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserExists
	}
	return nil
}

func (s *SQLiteStore) Authenticate(ctx context.Context, username, password string) error {
	var hash []byte
	err := s.db.QueryRowContext(ctx, "SELECT password_hash FROM users WHERE username = ?", username).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrInvalidCredentials
	}
	if err != nil {
		return fmt.Errorf("sqlite: get user: %w", err)
	}
	return checkPassword(hash, password)
}

func (s *SQLiteStore) Exists(ctx context.Context, username string) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE username = ?", username).Scan(&n); err != nil {
		return false, fmt.Errorf("sqlite: count users: %w", err)
	}
	return n > 0, nil
}

func (s *SQLiteStore) Likes(ctx context.Context, username string) ([]news.Article, error) {
	if err := s.requireUser(ctx, username); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, "SELECT article FROM likes WHERE username = ? ORDER BY id", username)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list likes: %w", err)
	}
	defer rows.Close()

	likes := []news.Article{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("sqlite: scan like: %w", err)
		}
		var a news.Article
		if err := json.Unmarshal([]byte(raw), &a); err != nil {
			return nil, fmt.Errorf("sqlite: decode like: %w", err)
		}
		likes = append(likes, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate likes: %w", err)
	}
	return likes, nil
}

func (s *SQLiteStore) Like(ctx context.Context, username string, article news.Article) (int, error) {
	if err := validateArticle(article); err != nil {
		return 0, err
	}
	if err := s.requireUser(ctx, username); err != nil {
		return 0, err
	}
	raw, err := json.Marshal(article)
	if err != nil {
		return 0, fmt.Errorf("sqlite: encode like: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO likes (username, url, article, liked_at) VALUES (?, ?, ?, ?)",
		username, article.URL, string(raw), time.Now().Unix(),
	); err != nil {
		return 0, fmt.Errorf("sqlite: insert like: %w", err)
	}
	return s.countLikes(ctx, username)
}

func (s *SQLiteStore) Unlike(ctx context.Context, username, url string) (int, error) {
	if err := s.requireUser(ctx, username); err != nil {
		return 0, err
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM likes WHERE username = ? AND url = ?", username, url); err != nil {
		return 0, fmt.Errorf("sqlite: delete like: %w", err)
	}
	return s.countLikes(ctx, username)
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) requireUser(ctx context.Context, username string) error {
	ok, err := s.Exists(ctx, username)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUserNotFound
	}
	return nil
}

func (s *SQLiteStore) countLikes(ctx context.Context, username string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM likes WHERE username = ?", username).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: count likes: %w", err)
	}
	return n, nil
}
