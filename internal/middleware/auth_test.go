package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mercatokart/storefront/internal/config"
	"github.com/mercatokart/storefront/internal/token"
)

func TestOptionalAuthAttachesUserIdWhenTokenValid(t *testing.T) {
	cfg := config.Application{SecretKey: "test-secret"}
	userId := uuid.New()
	minted, err := token.Mint(cfg.SecretKey, userId, time.Now())
	require.NoError(t, err)

	var got uuid.UUID
	var gotErr error
	handler := OptionalAuth(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, gotErr = token.UserIdFromContext(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/carts", nil)
	r.Header.Set("Authorization", "Bearer "+minted)
	handler.ServeHTTP(httptest.NewRecorder(), r)

	require.NoError(t, gotErr)
	assert.Equal(t, userId, got)
}

func TestOptionalAuthLetsAnonymousRequestsThrough(t *testing.T) {
	cfg := config.Application{SecretKey: "test-secret"}

	for name, header := range map[string]string{
		"no header":     "",
		"invalid token": "Bearer not-a-token",
	} {
		t.Run(name, func(t *testing.T) {
			called := false
			handler := OptionalAuth(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				_, err := token.UserIdFromContext(r.Context())
				assert.Error(t, err)
			}))

			r := httptest.NewRequest(http.MethodGet, "/carts", nil)
			if header != "" {
				r.Header.Set("Authorization", header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, r)

			assert.True(t, called)
			assert.Equal(t, http.StatusOK, w.Code)
		})
	}
}
