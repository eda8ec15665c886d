package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/MrEthical07/tokenguard"
	"github.com/MrEthical07/tokenguard/internal/httpx"
)

// Handler serves the auth endpoints for one engine.
type Handler struct {
	engine    *tokenguard.Engine
	logger    *slog.Logger
	validator *formValidator
}

func New(engine *tokenguard.Engine, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		engine:    engine,
		logger:    logger.With("component", "handler"),
		validator: &formValidator{},
	}
}

// Login handles POST /api/auth/login. On success the access cookie is set
// and the body carries the principal; the refresh token never leaves the
// server.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var form LoginForm
	if msg, ok := decodeForm(r, h.validator, &form); !ok {
		httpx.WriteBadRequest(w, msg)
		return
	}

	res, err := h.engine.Login(r.Context(), form.Identifier, form.Secret)
	if err != nil {
		h.fail(w, r, "login", err)
		return
	}

	http.SetCookie(w, h.engine.AccessCookie(res.AccessToken))
	httpx.WriteJSON(w, http.StatusOK, httpx.PrincipalBody{Principal: res.Principal})
}

// Refresh handles POST /api/auth/refresh.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	res, err := h.engine.Renew(r.Context(), h.engine.TokenFromRequest(r))
	if err != nil {
		h.fail(w, r, "refresh", err)
		return
	}

	if res.Outcome == tokenguard.RenewStillValid {
		httpx.WriteJSON(w, http.StatusOK, httpx.Message{Message: res.Outcome.Message()})
		return
	}

	http.SetCookie(w, h.engine.AccessCookie(res.AccessToken))
	httpx.WriteJSON(w, http.StatusOK, httpx.Message{
		Message:   res.Outcome.Message(),
		Principal: res.Principal,
	})
}

// Logout handles POST /api/auth/logout.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Logout(r.Context(), h.engine.TokenFromRequest(r)); err != nil {
		h.fail(w, r, "logout", err)
		return
	}

	http.SetCookie(w, h.engine.ClearCookie())
	httpx.WriteJSON(w, http.StatusOK, httpx.Message{Message: "logged out"})
}

// Signup handles POST /api/auth/signup. It creates the account and mints
// nothing; the client logs in afterwards.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	if !h.engine.SignupEnabled() {
		httpx.WriteError(w, nil, tokenguard.ErrSignupDisabled)
		return
	}

	var form SignupForm
	if msg, ok := decodeForm(r, h.validator, &form); !ok {
		httpx.WriteBadRequest(w, msg)
		return
	}

	p, err := h.engine.Signup(r.Context(), tokenguard.SignupRequest{
		Identifier: form.Identifier,
		Secret:     form.Secret,
		Name:       form.Name,
	})
	if err != nil {
		h.fail(w, r, "signup", err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, httpx.PrincipalBody{Principal: *p})
}

// Me handles GET /api/me behind the guard.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := tokenguard.PrincipalFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, nil, tokenguard.ErrMissingToken)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, httpx.PrincipalBody{Principal: p})
}

type healthResponse struct {
	Status         string `json:"status"`
	RedisAvailable bool   `json:"redis_available"`
	RedisLatencyMS int64  `json:"redis_latency_ms"`
}

// Health handles GET /healthz with a Redis ping.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	hs := h.engine.Health(r.Context())

	resp := healthResponse{
		Status:         "ok",
		RedisAvailable: hs.RedisAvailable,
		RedisLatencyMS: hs.RedisLatency.Round(time.Millisecond).Milliseconds(),
	}
	status := http.StatusOK
	if !hs.RedisAvailable {
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}
	httpx.WriteJSON(w, status, resp)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	kind := tokenguard.KindOf(err)
	if kind == tokenguard.KindInternal || kind == tokenguard.KindStoreUnavailable {
		h.logger.ErrorContext(r.Context(), "request failed",
			"op", op,
			"code", kind.Code(),
			"error", err,
			"request_id", tokenguard.RequestIDFromContext(r.Context()),
		)
	}
	httpx.WriteError(w, h.engine, err)
}
