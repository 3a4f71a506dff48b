package middleware

import (
	"net/http"

	"github.com/rs/zerolog"

	inHttp "github.com/mercatokart/storefront/internal/http"
	"github.com/mercatokart/storefront/internal/log"
	"github.com/mercatokart/storefront/internal/session"
)

// Session resolves the request's cart key through the session identity
// provider and attaches it to the request context. Key creation happens
// only here, never in the cart engine.
func Session(provider *session.Provider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := zerolog.Ctx(r.Context()).
				With().
				Str(log.KeyTag, "middleware session").
				Logger()

			cartKey, err := provider.CartKey(w, r)
			if err != nil {
				logger.Error().Err(err).Msg(err.Error())
				inHttp.WriteJsonResponse(r.Context(), w, map[string]string{}, map[string]interface{}{
					"status":     "failed",
					"statusCode": http.StatusInternalServerError,
					"message":    "Internal Server Error",
				})
				return
			}

			c := session.AttachCartKeyToContext(r.Context(), cartKey)
			next.ServeHTTP(w, r.WithContext(c))
		})
	}
}
