package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/news-recommender/backend/internal/engine"
	"github.com/news-recommender/backend/internal/fetcher"
	"github.com/news-recommender/backend/internal/news"
	"github.com/news-recommender/backend/internal/politeness"
	"github.com/news-recommender/backend/internal/provider"
	"github.com/news-recommender/backend/internal/storage"
	"github.com/news-recommender/backend/internal/validation"
)

const maxBodyBytes = 1 << 20

// Requests

type credentialsRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required"`
}

type everythingParams struct {
	Query    string `json:"q"`
	PageSize int    `json:"pageSize" validate:"omitempty,min=1"`
}

type recommendParams struct {
	Query    string `json:"q"`
	Country  string `json:"country" validate:"omitempty,alpha,len=2"`
	Category string `json:"category"`
	PageSize int    `json:"pageSize" validate:"omitempty,min=1"`
}

// Responses

type AuthResponse struct {
	OK     bool   `json:"ok"`
	UserID string `json:"userId"`
}

type LikeResponse struct {
	OK    bool `json:"ok"`
	Count int  `json:"count"`
}

type LikesResponse struct {
	Likes []news.Article `json:"likes"`
}

type RecommendResponse struct {
	Articles []news.ScoredArticle `json:"articles"`
}

type StatusResponse struct {
	Engine       engine.EngineStats     `json:"engine"`
	Uptime       string                 `json:"uptime"`
	Source       string                 `json:"source"`
	NewsAPIKey   bool                   `json:"news_api_key"`
	BreakerState string                 `json:"breaker_state,omitempty"`
	Limiter      *politeness.Statistics `json:"limiter,omitempty"`
}

// Handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats := s.Engine.Stats()
	resp := StatusResponse{
		Engine: stats,
		Uptime: time.Since(stats.StartTime).Round(time.Second).String(),
		Source: s.Engine.Source.Name(),
	}
	if f := s.Engine.Fetcher; f != nil {
		limiter := f.LimiterStats()
		resp.NewsAPIKey = f.HasAPIKey()
		resp.BreakerState = f.BreakerState()
		resp.Limiter = &limiter
	}
	jsonResponse(w, http.StatusOK, resp)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeCredentials(w, r)
	if !ok {
		return
	}

	err := s.Engine.Register(r.Context(), req.Username, req.Password)
	switch {
	case err == nil:
		jsonResponse(w, http.StatusOK, AuthResponse{OK: true, UserID: req.Username})
	case errors.Is(err, storage.ErrUserExists):
		jsonError(w, http.StatusBadRequest, "user already exists")
	case errors.Is(err, storage.ErrPasswordTooLong):
		jsonError(w, http.StatusBadRequest, storage.ErrPasswordTooLong.Error())
	case errors.Is(err, storage.ErrInvalidInput):
		jsonError(w, http.StatusBadRequest, "username and password required")
	default:
		s.Logger.WithError(err).Error("Registration failed")
		jsonError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	err := s.Engine.Login(r.Context(), req.Username, req.Password)
	switch {
	case err == nil:
		jsonResponse(w, http.StatusOK, AuthResponse{OK: true, UserID: req.Username})
	case errors.Is(err, storage.ErrInvalidCredentials), errors.Is(err, storage.ErrUserNotFound):
		jsonError(w, http.StatusUnauthorized, "invalid credentials")
	default:
		s.Logger.WithError(err).Error("Login failed")
		jsonError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) handleLike(w http.ResponseWriter, r *http.Request) {
	article, ok := decodeArticle(w, r)
	if !ok {
		return
	}
	count, err := s.Engine.Like(r.Context(), userFromContext(r.Context()), article)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, LikeResponse{OK: true, Count: count})
}

func (s *Server) handleUnlike(w http.ResponseWriter, r *http.Request) {
	article, ok := decodeArticle(w, r)
	if !ok {
		return
	}
	count, err := s.Engine.Unlike(r.Context(), userFromContext(r.Context()), article.URL)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, LikeResponse{OK: true, Count: count})
}

func (s *Server) handleLikes(w http.ResponseWriter, r *http.Request) {
	likes, err := s.Engine.Likes(r.Context(), userFromContext(r.Context()))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	if likes == nil {
		likes = []news.Article{}
	}
	jsonResponse(w, http.StatusOK, LikesResponse{Likes: likes})
}

func (s *Server) handleEverything(w http.ResponseWriter, r *http.Request) {
	pageSize, ok := queryInt(w, r, "pageSize")
	if !ok {
		return
	}
	params := everythingParams{Query: r.URL.Query().Get("q"), PageSize: pageSize}
	if err := validation.ValidateStruct(params); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := s.Engine.Search(r.Context(), fetcher.EverythingQuery{
		Query:    params.Query,
		PageSize: params.PageSize,
	})
	if err != nil {
		s.writeUpstreamError(w, err)
		return
	}
	if resp.Articles == nil {
		resp.Articles = []news.Article{}
	}
	jsonResponse(w, http.StatusOK, resp)
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	pageSize, ok := queryInt(w, r, "pageSize")
	if !ok {
		return
	}
	q := r.URL.Query()
	params := recommendParams{
		Query:    q.Get("q"),
		Country:  q.Get("country"),
		Category: q.Get("category"),
		PageSize: pageSize,
	}
	if err := validation.ValidateStruct(params); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	ranked, err := s.Engine.Recommend(r.Context(), userFromContext(r.Context()), provider.Query{
		Country:  params.Country,
		Category: params.Category,
		Keywords: params.Query,
		PageSize: params.PageSize,
	})
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			jsonError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		s.writeUpstreamError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, RecommendResponse{Articles: ranked})
}

// Helpers

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v)
}

func (s *Server) decodeCredentials(w http.ResponseWriter, r *http.Request) (credentialsRequest, bool) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid JSON")
		return req, false
	}
	if err := validation.ValidateStruct(req); err != nil {
		var verrs validation.Errors
		if errors.As(err, &verrs) && verrs[0].Tag == "required" {
			jsonError(w, http.StatusBadRequest, "username and password required")
		} else {
			jsonError(w, http.StatusBadRequest, err.Error())
		}
		return req, false
	}
	return req, true
}

func decodeArticle(w http.ResponseWriter, r *http.Request) (news.Article, bool) {
	var article news.Article
	if err := decodeJSON(w, r, &article); err != nil || article.URL == "" {
		jsonError(w, http.StatusBadRequest, "missing article")
		return article, false
	}
	return article, true
}

// queryInt parses an optional integer query parameter; absent means zero
func queryInt(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		jsonError(w, http.StatusBadRequest, name+" must be a number")
		return 0, false
	}
	return n, true
}

func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrUserNotFound):
		jsonError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, storage.ErrInvalidInput):
		jsonError(w, http.StatusBadRequest, "missing article")
	default:
		s.Logger.WithError(err).Error("Store operation failed")
		jsonError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) writeUpstreamError(w http.ResponseWriter, err error) {
	var upstream *fetcher.UpstreamError
	switch {
	case errors.Is(err, fetcher.ErrMissingAPIKey):
		jsonError(w, http.StatusInternalServerError, fetcher.ErrMissingAPIKey.Error())
	case errors.Is(err, fetcher.ErrCircuitOpen), errors.Is(err, engine.ErrSearchUnavailable):
		jsonError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		jsonError(w, http.StatusGatewayTimeout, "news api timed out")
	case errors.As(err, &upstream):
		jsonError(w, http.StatusBadGateway, upstream.Error())
	default:
		s.Logger.WithError(err).Error("Candidate fetch failed")
		jsonError(w, http.StatusBadGateway, "failed to fetch articles")
	}
}
