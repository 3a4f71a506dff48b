package cmd

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cartService "github.com/mercatokart/storefront/internal/cart/service"
	catalogService "github.com/mercatokart/storefront/internal/catalog/service"
	"github.com/mercatokart/storefront/internal/config"
	"github.com/mercatokart/storefront/internal/session"
	userService "github.com/mercatokart/storefront/internal/user/service"
)

// The operational endpoints must answer without a reachable session
// store and without minting session cookies.
func TestOperationalEndpointsBypassSessionStore(t *testing.T) {
	// Nothing listens on this address, so any session lookup would fail.
	cache := redis.NewClient(&redis.Options{Addr: "localhost:1"})
	sessions := session.NewProvider(cache, config.Cache{SessionTTL: 60})

	router := newRouter(
		&config.Config{},
		sessions,
		cartService.NewCartService(nil, nil),
		catalogService.NewCatalogService(nil, cache),
		userService.NewUserService(nil, config.Application{}),
	)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Result().Cookies())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Result().Cookies())
}
