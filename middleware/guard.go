package middleware

import (
	"context"
	"net/http"

	"github.com/MrEthical07/tokenguard"
	"github.com/MrEthical07/tokenguard/internal/httpx"
)

// Authenticator is the slice of *tokenguard.Engine the guard needs.
type Authenticator interface {
	httpx.CookieIssuer
	TokenFromRequest(r *http.Request) string
	Authenticate(ctx context.Context, token string) (*tokenguard.AuthResult, error)
}

type authResultContextKey struct{}

// AuthResultFromContext returns the result attached by [Guard], including
// the access token's expiry.
func AuthResultFromContext(ctx context.Context) (*tokenguard.AuthResult, bool) {
	res, ok := ctx.Value(authResultContextKey{}).(*tokenguard.AuthResult)
	return res, ok
}

// Guard authenticates every request not matched by bypass. A nil bypass
// protects every path.
func Guard(auth Authenticator, bypass *BypassPolicy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if bypass.Match(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			if _, ok := tokenguard.PrincipalFromContext(r.Context()); ok {
				next.ServeHTTP(w, r)
				return
			}
			if auth == nil {
				httpx.WriteError(w, nil, tokenguard.ErrEngineNotReady)
				return
			}

			res, err := auth.Authenticate(r.Context(), auth.TokenFromRequest(r))
			if err != nil {
				httpx.WriteError(w, auth, err)
				return
			}

			ctx := tokenguard.WithPrincipal(r.Context(), res.Principal)
			ctx = context.WithValue(ctx, authResultContextKey{}, res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GuardEngine is Guard with the bypass policy taken from the engine's
// configuration.
func GuardEngine(engine *tokenguard.Engine) func(http.Handler) http.Handler {
	if engine == nil {
		return Guard(nil, nil)
	}
	return Guard(engine, NewBypassPolicy(engine.Config().Bypass))
}
