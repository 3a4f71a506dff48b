// Package session implements the session identity provider: it hands out
// the opaque cart key that identifies an anonymous visitor's cart. The
// key lives in a cookie and is backed by redis with a sliding TTL; it is
// created exactly once per session, by the session middleware, never by
// the cart engine itself.
package session

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/mercatokart/storefront/internal/config"
	"github.com/mercatokart/storefront/internal/constants"
	"github.com/mercatokart/storefront/internal/log"
	"github.com/mercatokart/storefront/internal/otel"
)

const keySession = "session:%s"

type cartKeyCtx struct{}

func AttachCartKeyToContext(c context.Context, key string) context.Context {
	return context.WithValue(c, cartKeyCtx{}, key)
}

func CartKeyFromContext(c context.Context) string {
	key, ok := c.Value(cartKeyCtx{}).(string)
	if !ok {
		return ""
	}
	return key
}

type Provider struct {
	cache *redis.Client
	ttl   time.Duration
}

func NewProvider(cache *redis.Client, cfg config.Cache) *Provider {
	ttl := time.Duration(cfg.SessionTTL) * time.Second
	if ttl <= 0 {
		ttl = 14 * 24 * time.Hour
	}
	return &Provider{cache: cache, ttl: ttl}
}

// CartKey returns the session-scoped cart key for the request, creating
// and persisting a fresh one when the request carries none or carries a
// token redis no longer knows about.
func (p *Provider) CartKey(w http.ResponseWriter, r *http.Request) (string, error) {
	c, span := otel.Tracer.Start(r.Context(), "SessionProvider CartKey")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "SessionProvider CartKey").
		Logger()

	cookie, err := r.Cookie(constants.CookieSessionName)
	if err == nil && cookie.Value != "" {
		exists, err := p.cache.Exists(c, fmt.Sprintf(keySession, cookie.Value)).Result()
		if err != nil {
			return "", fmt.Errorf("failed checking session in cache with error=%w", err)
		}
		if exists == 1 {
			err = p.cache.Expire(c, fmt.Sprintf(keySession, cookie.Value), p.ttl).Err()
			if err != nil {
				return "", fmt.Errorf("failed refreshing session ttl with error=%w", err)
			}
			return cookie.Value, nil
		}
	}

	token := uuid.NewString()
	logger = logger.With().Str(log.KeySessionToken, token).Logger()
	logger.Info().Msg("creating session")
	err = p.cache.Set(c, fmt.Sprintf(keySession, token), time.Now().Unix(), p.ttl).Err()
	if err != nil {
		return "", fmt.Errorf("failed creating session with error=%w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     constants.CookieSessionName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(p.ttl.Seconds()),
	})
	logger.Info().Msg("created session")
	return token, nil
}
