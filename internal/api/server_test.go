package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/news-recommender/backend/internal/api"
	"github.com/news-recommender/backend/internal/config"
	"github.com/news-recommender/backend/internal/engine"
	"github.com/news-recommender/backend/internal/fetcher"
	"github.com/news-recommender/backend/internal/news"
	"github.com/news-recommender/backend/internal/provider"
	"github.com/news-recommender/backend/internal/storage"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Server.RateLimitDisabled = true
	cfg.NewsAPI.MinDelay = 0
	return cfg
}

func setupServer(t *testing.T, source provider.ArticleSource, f *fetcher.Fetcher) *api.Server {
	t.Helper()
	cfg := testConfig()
	logger := logrus.New().WithField("test", "api")
	logger.Logger.SetLevel(logrus.WarnLevel)

	eng, err := engine.NewEngine(cfg, logger, storage.NewMemoryStore(bcrypt.MinCost), source, f)
	require.NoError(t, err)
	return api.NewServer(eng, cfg.Server, logger)
}

func staticServer(t *testing.T, articles ...news.Article) *api.Server {
	return setupServer(t, provider.NewStaticProvider(articles), nil)
}

func do(s *api.Server, method, path, user, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if user != "" {
		req.Header.Set("x-user-id", user)
	}
	rr := httptest.NewRecorder()
	s.Router.ServeHTTP(rr, req)
	return rr
}

func errorOf(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var resp api.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp.Error
}

func register(t *testing.T, s *api.Server, user string) {
	t.Helper()
	rr := do(s, http.MethodPost, "/api/register", "", `{"username":"`+user+`","password":"pw"}`)
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestHandleHealth(t *testing.T) {
	s := staticServer(t)
	rr := do(s, http.MethodGet, "/api/health", "", "")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"ok":true}`, rr.Body.String())
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
}

func TestRequestIDPassthrough(t *testing.T) {
	s := staticServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rr := httptest.NewRecorder()
	s.Router.ServeHTTP(rr, req)

	assert.Equal(t, "abc-123", rr.Header().Get("X-Request-ID"))
}

func TestHandleStatus(t *testing.T) {
	s := staticServer(t)
	rr := do(s, http.MethodGet, "/api/status", "", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp api.StatusResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "static", resp.Source)
	assert.False(t, resp.NewsAPIKey)
	assert.Nil(t, resp.Limiter)
}

func TestRegisterAndLogin(t *testing.T) {
	s := staticServer(t)

	rr := do(s, http.MethodPost, "/api/register", "", `{"username":"alice","password":"pw"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	var auth api.AuthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &auth))
	assert.True(t, auth.OK)
	assert.Equal(t, "alice", auth.UserID)

	rr = do(s, http.MethodPost, "/api/register", "", `{"username":"alice","password":"pw"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "user already exists", errorOf(t, rr))

	rr = do(s, http.MethodPost, "/api/register", "", `{"username":"bob"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "username and password required", errorOf(t, rr))

	rr = do(s, http.MethodPost, "/api/register", "", `not json`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(s, http.MethodPost, "/api/login", "", `{"username":"alice","password":"pw"}`)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = do(s, http.MethodPost, "/api/login", "", `{"username":"alice","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "invalid credentials", errorOf(t, rr))

	rr = do(s, http.MethodPost, "/api/login", "", `{"username":"nobody","password":"pw"}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRegisterPasswordTooLong(t *testing.T) {
	s := staticServer(t)

	rr := do(s, http.MethodPost, "/api/register", "", `{"username":"alice","password":"`+strings.Repeat("é", 40)+`"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "password must be at most 72 bytes", errorOf(t, rr))

	rr = do(s, http.MethodPost, "/api/register", "", `{"username":"alice","password":"`+strings.Repeat("é", 36)+`"}`)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestLikesRequireUser(t *testing.T) {
	s := staticServer(t)

	for _, path := range []string{"/api/likes", "/api/recommend"} {
		rr := do(s, http.MethodGet, path, "", "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code, path)
		assert.Equal(t, "unauthorized", errorOf(t, rr))

		rr = do(s, http.MethodGet, path, "ghost", "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code, path)
	}

	rr := do(s, http.MethodPost, "/api/like", "ghost", `{"url":"https://a"}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestLikeUnlikeFlow(t *testing.T) {
	s := staticServer(t)
	register(t, s, "alice")

	rr := do(s, http.MethodPost, "/api/like", "alice", `{"title":"One","url":"https://one"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"ok":true,"count":1}`, rr.Body.String())

	// duplicate url is ignored
	rr = do(s, http.MethodPost, "/api/like", "alice", `{"title":"One again","url":"https://one"}`)
	assert.JSONEq(t, `{"ok":true,"count":1}`, rr.Body.String())

	rr = do(s, http.MethodPost, "/api/like", "alice", `{"title":"Two","url":"https://two"}`)
	assert.JSONEq(t, `{"ok":true,"count":2}`, rr.Body.String())

	rr = do(s, http.MethodPost, "/api/like", "alice", `{"title":"No url"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "missing article", errorOf(t, rr))

	rr = do(s, http.MethodGet, "/api/likes", "alice", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var likes api.LikesResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &likes))
	require.Len(t, likes.Likes, 2)
	assert.Equal(t, "One", likes.Likes[0].Title)
	assert.Equal(t, "https://two", likes.Likes[1].URL)

	rr = do(s, http.MethodPost, "/api/unlike", "alice", `{"url":"https://one"}`)
	assert.JSONEq(t, `{"ok":true,"count":1}`, rr.Body.String())

	rr = do(s, http.MethodPost, "/api/unlike", "alice", `{"url":"https://missing"}`)
	assert.JSONEq(t, `{"ok":true,"count":1}`, rr.Body.String())
}

func TestEmptyLikesIsArray(t *testing.T) {
	s := staticServer(t)
	register(t, s, "alice")

	rr := do(s, http.MethodGet, "/api/likes", "alice", "")
	assert.JSONEq(t, `{"likes":[]}`, rr.Body.String())
}

func TestRecommend(t *testing.T) {
	s := staticServer(t,
		news.Article{Title: "Sports scores today", URL: "https://sports"},
		news.Article{Title: "New machine learning model released", URL: "https://ml"},
	)
	register(t, s, "alice")
	do(s, http.MethodPost, "/api/like", "alice", `{"title":"AI breakthroughs in machine learning","url":"https://liked"}`)

	rr := do(s, http.MethodGet, "/api/recommend", "alice", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp api.RecommendResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Articles, 2)
	assert.Equal(t, "https://ml", resp.Articles[0].URL)
	assert.Greater(t, resp.Articles[0].Score, 0.0)
	assert.Equal(t, 0.0, resp.Articles[1].Score)
	assert.Contains(t, rr.Body.String(), `"__score"`)
}

func TestRecommendValidation(t *testing.T) {
	s := staticServer(t)
	register(t, s, "alice")

	rr := do(s, http.MethodGet, "/api/recommend?pageSize=abc", "alice", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "pageSize must be a number", errorOf(t, rr))

	rr = do(s, http.MethodGet, "/api/recommend?country=usa", "alice", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(s, http.MethodGet, "/api/recommend?pageSize=-1", "alice", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestEverythingWithoutFetcher(t *testing.T) {
	s := staticServer(t)
	rr := do(s, http.MethodGet, "/api/everything?q=go", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func newsAPIServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newsAPIFetcher(baseURL, key string) *fetcher.Fetcher {
	cfg := testConfig()
	cfg.NewsAPI.BaseURL = baseURL
	cfg.NewsAPI.APIKey = key
	return fetcher.NewFetcher(cfg.NewsAPI, nil, nil)
}

func TestNewsAPIRoutes(t *testing.T) {
	upstream := newsAPIServer(t, http.StatusOK, `{"status":"ok","totalResults":1,"articles":[{"title":"Go 2 released","url":"https://go.dev","publishedAt":"2024-01-01T00:00:00Z"}]}`)
	f := newsAPIFetcher(upstream.URL, "key")
	s := setupServer(t, provider.NewNewsAPIProvider(f, "us"), f)
	register(t, s, "alice")

	rr := do(s, http.MethodGet, "/api/everything?q=go&pageSize=5", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var envelope news.Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &envelope))
	assert.Equal(t, "ok", envelope.Status)
	require.Len(t, envelope.Articles, 1)

	rr = do(s, http.MethodGet, "/api/recommend?country=us", "alice", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var resp api.RecommendResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Articles, 1)
	assert.Greater(t, resp.Articles[0].Score, 0.0)
}

func TestMissingAPIKey(t *testing.T) {
	f := newsAPIFetcher("http://127.0.0.1:1", "")
	s := setupServer(t, provider.NewNewsAPIProvider(f, "us"), f)
	register(t, s, "alice")

	rr := do(s, http.MethodGet, "/api/everything", "", "")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "NEWS_API_KEY not set", errorOf(t, rr))

	rr = do(s, http.MethodGet, "/api/recommend", "alice", "")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "NEWS_API_KEY not set", errorOf(t, rr))
}

func TestUpstreamError(t *testing.T) {
	upstream := newsAPIServer(t, http.StatusUnauthorized, `{"status":"error","code":"apiKeyInvalid","message":"Your API key is invalid"}`)
	f := newsAPIFetcher(upstream.URL, "bad")
	s := setupServer(t, provider.NewNewsAPIProvider(f, "us"), f)
	register(t, s, "alice")

	rr := do(s, http.MethodGet, "/api/recommend", "alice", "")
	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Contains(t, errorOf(t, rr), "apiKeyInvalid")
}

func TestMetricsEndpoint(t *testing.T) {
	s := staticServer(t)
	do(s, http.MethodGet, "/api/health", "", "")

	rr := do(s, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "recommender_api_requests_total")
}

func TestCORSPreflight(t *testing.T) {
	s := staticServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/like", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "x-user-id")
	rr := httptest.NewRecorder()
	s.Router.ServeHTTP(rr, req)

	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}
