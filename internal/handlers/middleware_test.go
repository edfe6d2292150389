package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/judge-dispatch.net/internal/adapter/crypto"
	"gitlab.com/judge-dispatch.net/internal/adapter/logging"
	"gitlab.com/judge-dispatch.net/internal/config"
)

func TestJWTMiddlewarePassesClaims(t *testing.T) {
	jwt := crypto.NewJWTService(&config.JwtConfig{Secret: "admin-secret"})
	token, err := jwt.GenerateTokenHMAC(context.Background(), map[string]interface{}{"sub": "ops", "role": AdminRole}, time.Minute)
	require.NoError(t, err)

	var subject string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		require.True(t, ok)
		subject, _ = claims["sub"].(string)
		w.WriteHeader(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/tasks/stats", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	New(jwt, logging.NewNopLogger()).JWTMiddleware(next).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "ops", subject)
}

func TestClaimsFromContextWithoutToken(t *testing.T) {
	_, ok := ClaimsFromContext(context.Background())
	assert.False(t, ok)
}
