package middleware

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mercatokart/storefront/internal/config"
	inErrors "github.com/mercatokart/storefront/internal/errors"
	inHttp "github.com/mercatokart/storefront/internal/http"
	"github.com/mercatokart/storefront/internal/log"
	"github.com/mercatokart/storefront/internal/token"
)

func Auth(cfg config.Application) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := zerolog.Ctx(r.Context()).
				With().
				Str(log.KeyTag, "middleware auth").
				Logger()
			c := logger.WithContext(r.Context())

			authorization := r.Header.Get("Authorization")
			if authorization == "" || !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
				logger.Error().
					Err(inErrors.ErrEmptyAuth).
					Msg(inErrors.ErrEmptyAuth.Error())
				inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
					"status":     "failed",
					"statusCode": http.StatusUnauthorized,
					"message":    inErrors.ErrEmptyAuth.Error(),
				})
				return
			}

			userID, err := token.Verify(cfg.SecretKey, authorization[len("bearer "):])
			if err != nil {
				logger.Error().Err(err).Msg(err.Error())
				inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
					"status":     "failed",
					"statusCode": http.StatusUnauthorized,
					"message":    inErrors.ErrTokenInvalid.Error(),
				})
				return
			}

			c = token.AttachUserIdToContext(c, userID)
			next.ServeHTTP(w, r.WithContext(c))
		})
	}
}

// OptionalAuth attaches the authenticated user id to the request
// context when a valid bearer token is present and lets the request
// through anonymously otherwise. Routes that must reject anonymous
// requests use Auth instead.
func OptionalAuth(cfg config.Application) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authorization := r.Header.Get("Authorization")
			if authorization == "" || !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
				next.ServeHTTP(w, r)
				return
			}

			userID, err := token.Verify(cfg.SecretKey, authorization[len("bearer "):])
			if err != nil {
				zerolog.Ctx(r.Context()).
					Warn().
					Str(log.KeyTag, "middleware optionalAuth").
					Err(err).
					Msg(err.Error())
				next.ServeHTTP(w, r)
				return
			}

			c := token.AttachUserIdToContext(r.Context(), userID)
			next.ServeHTTP(w, r.WithContext(c))
		})
	}
}
