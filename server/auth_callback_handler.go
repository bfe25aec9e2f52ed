package server

import (
	"net/http"

	"github.com/rs/zerolog/log"

	apperrors "github.com/jrsteele09/planter-dashboard/internal/errors"
)

// LoginHandler starts the GitHub OAuth flow with a full-page redirect.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authURL, err := s.auth.InitiateLogin(r.Context(), browserID(r))
		if err != nil {
			if apperrors.Is(err, apperrors.ErrNotConfigured) {
				log.Error().Err(err).Msg("GitHub OAuth is not configured")
				redirectWithError(w, r, RouteIndex, ErrorCodeNotConfigured)
				return
			}
			log.Err(err).Msg("Failed to initiate login")
			redirectWithError(w, r, RouteIndex, ErrorCodeLoginFailed)
			return
		}
		redirectSuccess(w, r, authURL)
	}
}

// CallbackHandler completes the OAuth flow the provider redirected back to.
func (s *Server) CallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if providerErr := q.Get("error"); providerErr != "" {
			log.Warn().Str("error", providerErr).Str("description", q.Get("error_description")).Msg("GitHub OAuth error")
			redirectWithError(w, r, RouteIndex, providerErr)
			return
		}

		code, state := q.Get("code"), q.Get("state")
		if code == "" || state == "" {
			redirectSuccess(w, r, RouteIndex)
			return
		}

		if !s.auth.HandleCallback(r.Context(), browserID(r), code, state) {
			redirectWithError(w, r, RouteIndex, ErrorCodeAuthFailed)
			return
		}
		redirectSuccess(w, r, RouteIndex)
	}
}

// LogoutHandler forgets the browser's session. The backend is not contacted.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := browserID(r)
		s.auth.Logout(r.Context(), id)
		s.dropDirectory(id)
		redirectSuccess(w, r, RouteIndex)
	}
}
