package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pinpoint-prep/backend/internal/logger"
	"github.com/pinpoint-prep/backend/internal/metrics"
)

func echoUser(w http.ResponseWriter, r *http.Request) {
	uid, ok := UserID(r.Context())
	if !ok {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Write([]byte(strconv.FormatInt(uid, 10)))
}

func TestAuthMiddleware(t *testing.T) {
	auth := NewAuthenticator("test-secret")
	handler := auth.Middleware(http.HandlerFunc(echoUser))

	valid, err := auth.IssueToken(42, time.Hour)
	require.NoError(t, err)
	expired, err := auth.IssueToken(42, -time.Minute)
	require.NoError(t, err)
	foreign, err := NewAuthenticator("other-secret").IssueToken(42, time.Hour)
	require.NoError(t, err)

	noUser := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()})
	noUserTok, err := noUser.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	noExp := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user_id": 42})
	noExpTok, err := noExp.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"valid token", "Bearer " + valid, http.StatusOK, "42"},
		{"missing header", "", http.StatusUnauthorized, "Missing bearer token"},
		{"wrong scheme", "Basic " + valid, http.StatusUnauthorized, "Missing bearer token"},
		{"expired", "Bearer " + expired, http.StatusUnauthorized, "Invalid or expired token"},
		{"wrong secret", "Bearer " + foreign, http.StatusUnauthorized, "Invalid or expired token"},
		{"no user_id", "Bearer " + noUserTok, http.StatusUnauthorized, "Invalid or expired token"},
		{"no exp", "Bearer " + noExpTok, http.StatusUnauthorized, "Invalid or expired token"},
		{"garbage", "Bearer not.a.jwt", http.StatusUnauthorized, "Invalid or expired token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/proficiency", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.body)
		})
	}
}

func TestParseTokenRejectsNoneAlg(t *testing.T) {
	tok := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"user_id": 1,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	s, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewAuthenticator("test-secret").ParseToken(s)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRequestLoggerRecordsRouteTemplate(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewManager(metrics.WithRegistry(reg))

	r := mux.NewRouter()
	r.Use(RequestLogger(logger.NewNop(), m))
	r.HandleFunc("/api/v1/quizzes/{session}/next", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}).Methods("GET")

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/quizzes/abc/next", nil))
	require.Equal(t, http.StatusTeapot, rec.Code)

	out := httptest.NewRecorder()
	m.Handler().ServeHTTP(out, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := out.Body.String()
	assert.True(t, strings.Contains(body,
		`pinpoint_http_requests_total{method="GET",route="/api/v1/quizzes/{session}/next",status="418"} 1`), body)
}
