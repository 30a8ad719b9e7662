package middleware

import (
	"net/http"
	"strings"

	"github.com/kledje/storefront-backend/api/responses"
	"github.com/kledje/storefront-backend/internal/identity"
	"github.com/kledje/storefront-backend/pkg/config"
	"github.com/kledje/storefront-backend/pkg/logger"
)

// CartSession makes sure every request carries an anonymous cart token. The
// token is read from the session header first, then the cookie. When neither is
// present a fresh token is minted, written to the cookie and echoed in the
// response header before the handler runs.
func CartSession(cfg config.SessionConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	headerName := cfg.HeaderName
	if headerName == "" {
		headerName = "X-Session-Token"
	}
	cookieName := cfg.CookieName
	if cookieName == "" {
		cookieName = "cart_session_id"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := strings.TrimSpace(r.Header.Get(headerName))
			if token == "" {
				if cookie, err := r.Cookie(cookieName); err == nil {
					token = strings.TrimSpace(cookie.Value)
				}
			}

			if token == "" {
				token = identity.NewSessionToken()
				http.SetCookie(w, &http.Cookie{
					Name:     cookieName,
					Value:    token,
					Path:     "/",
					MaxAge:   cfg.CookieMaxAge(),
					HttpOnly: true,
					Secure:   cfg.CookieSecure,
					SameSite: http.SameSiteLaxMode,
				})
				w.Header().Set(headerName, token)
			} else if err := identity.ValidateSessionToken(token); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSessionToken(r.Context(), token)))
		})
	}
}
