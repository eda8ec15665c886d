// Package httpx holds the JSON response helpers shared by the middleware and
// handler packages.
package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/MrEthical07/tokenguard"
)

// Envelope is the error body every failure carries.
type Envelope struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// CookieIssuer builds the access cookie and its clearing twin.
// *tokenguard.Engine satisfies it.
type CookieIssuer interface {
	AccessCookie(token string) *http.Cookie
	ClearCookie() *http.Cookie
}

// WriteJSON writes v as JSON with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // best-effort write; the client may be gone
		json.NewEncoder(w).Encode(v)
	}
}

// WriteError maps err to its status and envelope. When the error kind says
// so and cookies is non-nil, the access cookie is cleared in the same
// response.
func WriteError(w http.ResponseWriter, cookies CookieIssuer, err error) {
	e := tokenguard.AsError(err)
	if e == nil {
		e = tokenguard.ErrInternal
	}

	if cookies != nil && e.Kind.ClearsCookie() {
		http.SetCookie(w, cookies.ClearCookie())
	}

	WriteJSON(w, e.Kind.Status(), Envelope{
		Error: e.PublicMessage(),
		Code:  e.Kind.Code(),
	})
}

// WriteBadRequest writes a 400 envelope with message.
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteJSON(w, http.StatusBadRequest, Envelope{
		Error: message,
		Code:  tokenguard.KindBadRequest.Code(),
	})
}

// Message is the body of informational responses.
type Message struct {
	Message   string                `json:"message"`
	Principal *tokenguard.Principal `json:"principal,omitempty"`
}

// PrincipalBody wraps a principal as {"principal": {...}}.
type PrincipalBody struct {
	Principal tokenguard.Principal `json:"principal"`
}
