package handler_test

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"mangatrack/internal/config"
	"mangatrack/internal/http-api/handler"
	"mangatrack/internal/records"
)

const routerSecret = "router-test-secret-at-least-32-chars"

func routerConfig() *config.Config {
	return &config.Config{GoEnv: "development", APIRateLimit: 100, APIRateBurst: 100}
}

func TestNewRouter_AuthEnabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := routerConfig()
	cfg.JWTSecret = routerSecret

	s := new(MockStore)
	s.On("Ping", mock.Anything).Return(nil)
	s.On("GetAll", mock.Anything, records.KindMangaName).Return([]records.Record{}, nil)
	r := handler.NewRouter(cfg, s, slog.New(slog.DiscardHandler))

	// health check is open
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/healthz", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// api needs a token
	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/api/v1/records/manga_name", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "operator",
		"exp": time.Now().Add(time.Minute).Unix(),
	}).SignedString([]byte(routerSecret))
	require.NoError(t, err)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/api/v1/records/manga_name", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestNewRouter_AuthDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := new(MockStore)
	s.On("GetAll", mock.Anything, records.KindMangaName).Return([]records.Record{}, nil)
	r := handler.NewRouter(routerConfig(), s, slog.New(slog.DiscardHandler))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/records/manga_name", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestNewRouter_RateLimited(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := routerConfig()
	cfg.APIRateLimit, cfg.APIRateBurst = 1, 1

	s := new(MockStore)
	s.On("GetAll", mock.Anything, records.KindMangaName).Return([]records.Record{}, nil)
	r := handler.NewRouter(cfg, s, slog.New(slog.DiscardHandler))

	codes := make([]int, 0, 2)
	for range 2 {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/api/v1/records/manga_name", nil)
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)
}
