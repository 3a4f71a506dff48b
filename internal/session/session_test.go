package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	testRedis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/mercatokart/storefront/internal/config"
	"github.com/mercatokart/storefront/internal/constants"
)

func setupCache(t *testing.T, c context.Context) (*redis.Client, func()) {
	redisContainer, err := testRedis.Run(c, "redis:7.4.2-alpine3.21")
	if err != nil {
		t.Fatalf("failed running redis container with error: %s", err)
	}

	redisConnStr, err := redisContainer.ConnectionString(c)
	if err != nil {
		t.Fatalf("failed getting redis connection string with error: %s", err)
	}

	redisOpt, err := redis.ParseURL(redisConnStr)
	if err != nil {
		t.Fatalf("failed parsing redis connection string with error: %s", err)
	}

	client := redis.NewClient(redisOpt)
	if err = client.Ping(c).Err(); err != nil {
		t.Fatalf("failed ping redis client with error: %s", err)
	}

	return client, func() {
		client.Close()
		if err := testcontainers.TerminateContainer(redisContainer); err != nil {
			t.Fatalf("failed to terminate container: %s", err)
		}
	}
}

func TestCartKeyCreatedOncePerSession(t *testing.T) {
	c := context.Background()
	cache, cleanup := setupCache(t, c)
	defer cleanup()

	provider := NewProvider(cache, config.Cache{SessionTTL: 60})

	// First request carries no cookie: a key is created and set.
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/carts", nil)
	first, err := provider.CartKey(w, r)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, constants.CookieSessionName, cookies[0].Name)
	assert.Equal(t, first, cookies[0].Value)

	// Second request carries the cookie back: same key, no new cookie.
	w = httptest.NewRecorder()
	r = httptest.NewRequest(http.MethodGet, "/carts", nil)
	r.AddCookie(cookies[0])
	second, err := provider.CartKey(w, r)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Empty(t, w.Result().Cookies())
}

func TestCartKeyReplacesUnknownToken(t *testing.T) {
	c := context.Background()
	cache, cleanup := setupCache(t, c)
	defer cleanup()

	provider := NewProvider(cache, config.Cache{SessionTTL: 60})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/carts", nil)
	r.AddCookie(&http.Cookie{Name: constants.CookieSessionName, Value: "stale-token"})

	key, err := provider.CartKey(w, r)
	require.NoError(t, err)
	assert.NotEqual(t, "stale-token", key)
	require.Len(t, w.Result().Cookies(), 1)
}

func TestCartKeyContextRoundTrip(t *testing.T) {
	c := AttachCartKeyToContext(context.Background(), "abc")
	assert.Equal(t, "abc", CartKeyFromContext(c))
	assert.Equal(t, "", CartKeyFromContext(context.Background()))
}
