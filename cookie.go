package tokenguard

import (
	"net/http"
	"net/url"
	"strings"
)

// AccessCookie returns the cookie carrying an access token. The value is
// URL-encoded and the max-age equals the access window.
func (e *Engine) AccessCookie(token string) *http.Cookie {
	c := e.baseCookie()
	c.Value = url.QueryEscape(token)
	c.MaxAge = int(e.config.JWT.AccessTTL.Seconds())
	return c
}

// ClearCookie returns a cookie with the same attributes that deletes the
// access token on the client.
func (e *Engine) ClearCookie() *http.Cookie {
	c := e.baseCookie()
	c.MaxAge = -1
	return c
}

func (e *Engine) baseCookie() *http.Cookie {
	cfg := e.config.Cookie
	return &http.Cookie{
		Name:     cfg.Name,
		Path:     cfg.Path,
		Domain:   cfg.Domain,
		Secure:   cfg.Secure,
		HttpOnly: true,
		SameSite: cfg.SameSite,
	}
}

// CookieName is the configured access-token cookie name.
func (e *Engine) CookieName() string {
	return e.config.Cookie.Name
}

// TokenFromRequest reads the access token from the cookie, falling back to
// a bearer header when Cookie.AllowBearer is set. It returns "" when no
// token is present.
func (e *Engine) TokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(e.config.Cookie.Name); err == nil && c.Value != "" {
		if v, err := url.QueryUnescape(c.Value); err == nil {
			return v
		}
		return c.Value
	}

	if !e.config.Cookie.AllowBearer {
		return ""
	}
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
