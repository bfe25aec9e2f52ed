package server

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/jrsteele09/planter-dashboard/auth"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeyBrowserID stores the browser's storage namespace
	ContextKeyBrowserID ContextKey = "browser_id"
	// ContextKeyAuthState stores the validated auth.AuthState
	ContextKeyAuthState ContextKey = "auth_state"
)

// WithBrowser makes sure the request carries a browser id, issuing a new cookie when needed.
func (s *Server) WithBrowser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		browserID, ok := browserIDFromCookie(r)
		if !ok {
			browserID = uuid.New().String()
			s.SetBrowserCookie(w, browserID, r)
		}
		ctx := context.WithValue(r.Context(), ContextKeyBrowserID, browserID)
		next(w, r.WithContext(ctx))
	}
}

// RequireLogin validates the browser's session and sends logged out browsers to the index page.
func (s *Server) RequireLogin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state := s.auth.CheckStatus(r.Context(), browserID(r))
		if !state.LoggedIn() {
			s.forgetLoggedOut(r, state)
			redirectSuccess(w, r, RouteIndex)
			return
		}
		ctx := context.WithValue(r.Context(), ContextKeyAuthState, state)
		next(w, r.WithContext(ctx))
	}
}

func browserID(r *http.Request) string {
	id, _ := r.Context().Value(ContextKeyBrowserID).(string)
	return id
}

func authState(r *http.Request) auth.AuthState {
	state, ok := r.Context().Value(ContextKeyAuthState).(auth.AuthState)
	if !ok {
		return auth.AuthState{State: auth.LoggedOut}
	}
	return state
}
