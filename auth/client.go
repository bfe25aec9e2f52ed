// Package auth tracks whether a browser is signed in, backed by the GitHub OAuth flow
// the backend brokers.
package auth

import (
	"context"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/jrsteele09/planter-dashboard/backend"
	apperrors "github.com/jrsteele09/planter-dashboard/internal/errors"
	"github.com/jrsteele09/planter-dashboard/internal/observability"
	"github.com/jrsteele09/planter-dashboard/sessions"
	"github.com/jrsteele09/planter-dashboard/users"
)

type State string

const (
	LoggedOut      State = "logged_out"
	Authenticating State = "authenticating" // an OAuth redirect is in flight
	LoggedIn       State = "logged_in"
)

// AuthState is the resolved status of one browser. User, AccessToken and UserID
// are only set when State is LoggedIn.
type AuthState struct {
	State       State
	User        *users.User
	AccessToken string
	UserID      string
}

func (s AuthState) LoggedIn() bool {
	return s.State == LoggedIn
}

// API is the subset of the backend client used for authentication.
type API interface {
	AuthURL(ctx context.Context) (string, error)
	SignIn(ctx context.Context, code, state string) (*backend.SignInResponse, error)
	GetUser(ctx context.Context, accessToken, userID string) (*users.User, error)
}

type Client struct {
	api            API
	store          *sessions.Store
	githubClientID string
	checks         singleflight.Group
	now            func() time.Time
	log            zerolog.Logger
}

func NewClient(api API, store *sessions.Store, githubClientID string) *Client {
	return &Client{
		api:            api,
		store:          store,
		githubClientID: githubClientID,
		now:            time.Now,
		log:            log.With().Str("component", "auth_client").Logger(),
	}
}

// CheckStatus validates the stored session of ns against the backend. A failed validation
// logs the browser out and clears its session. Concurrent checks for one browser share a
// backend call, which is detached from any single caller's cancellation: a caller that
// gives up is reported LoggedOut while the shared check carries on for the others.
func (c *Client) CheckStatus(ctx context.Context, ns string) AuthState {
	shared := context.WithoutCancel(ctx)
	ch := c.checks.DoChan(ns, func() (any, error) {
		return c.checkStatus(shared, ns), nil
	})

	select {
	case res := <-ch:
		state := res.Val.(AuthState)
		observability.AuthChecksTotal.WithLabelValues(string(state.State)).Inc()
		return state
	case <-ctx.Done():
		return AuthState{State: LoggedOut}
	}
}

func (c *Client) checkStatus(ctx context.Context, ns string) AuthState {
	session, ok := c.store.Load(ctx, ns)
	if !ok {
		if c.store.HasOAuthState(ctx, ns) {
			return AuthState{State: Authenticating}
		}
		return AuthState{State: LoggedOut}
	}

	if c.tokenExpired(session.AccessToken) {
		c.log.Info().Str("user_id", session.UserID).Msg("Access token expired")
		c.store.Clear(ctx, ns)
		return AuthState{State: LoggedOut}
	}

	user, err := c.api.GetUser(ctx, session.AccessToken, session.UserID)
	if err != nil {
		if ctx.Err() != nil {
			// the request went away, the session was never judged
			c.log.Debug().Err(err).Str("user_id", session.UserID).Msg("Session validation abandoned")
			return AuthState{State: LoggedOut}
		}
		c.log.Warn().Err(err).Str("user_id", session.UserID).Msg("Session validation failed")
		c.store.Clear(ctx, ns)
		return AuthState{State: LoggedOut}
	}

	if err := c.store.SaveUser(ctx, ns, *user); err != nil {
		c.log.Err(err).Msg("Failed to cache user")
	}

	return AuthState{
		State:       LoggedIn,
		User:        user,
		AccessToken: session.AccessToken,
		UserID:      session.UserID,
	}
}

// tokenExpired reports whether token is a JWT whose exp claim has passed.
// Opaque tokens are left to the backend to judge.
func (c *Client) tokenExpired(token string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(c.now())
}

// InitiateLogin returns the GitHub authorization URL the browser must be redirected to and
// remembers its state parameter for the callback.
func (c *Client) InitiateLogin(ctx context.Context, ns string) (string, error) {
	if c.githubClientID == "" {
		return "", apperrors.Wrapf(apperrors.ErrNotConfigured, "GitHub client id")
	}

	authURL, err := c.api.AuthURL(ctx)
	if err != nil {
		return "", apperrors.Wrapf(err, "initiate login")
	}

	u, err := url.Parse(authURL)
	if err != nil {
		return "", apperrors.Wrapf(apperrors.ErrMalformedResponse, "auth url %q", authURL)
	}
	if state := u.Query().Get("state"); state != "" {
		if err := c.store.SaveOAuthState(ctx, ns, state); err != nil {
			return "", apperrors.Wrapf(err, "initiate login")
		}
	}
	return authURL, nil
}

// HandleCallback completes a login. It reports false on any failure and never returns an error.
func (c *Client) HandleCallback(ctx context.Context, ns, code, state string) bool {
	ok := c.handleCallback(ctx, ns, code, state)
	result := "success"
	if !ok {
		result = "failure"
	}
	observability.AuthCallbacksTotal.WithLabelValues(result).Inc()
	return ok
}

func (c *Client) handleCallback(ctx context.Context, ns, code, state string) bool {
	expected, pending := c.store.TakeOAuthState(ctx, ns)
	if code == "" {
		return false
	}
	if pending && expected != state {
		c.log.Warn().Err(apperrors.ErrStateMismatch).Msg("Rejecting OAuth callback")
		return false
	}

	resp, err := c.api.SignIn(ctx, code, state)
	if err != nil {
		c.log.Err(err).Msg("OAuth code exchange failed")
		return false
	}
	if resp.UserID == "" || resp.AccessToken == "" {
		c.log.Err(apperrors.ErrMalformedResponse).Msg("Sign in response is missing credentials")
		return false
	}

	session := sessions.Session{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		UserID:       resp.UserID,
	}
	if err := c.store.Save(ctx, ns, session); err != nil {
		c.log.Err(err).Msg("Failed to store session")
		return false
	}

	user, err := c.api.GetUser(ctx, resp.AccessToken, resp.UserID)
	if err != nil {
		c.log.Warn().Err(err).Str("user_id", resp.UserID).Msg("Failed to fetch user after sign in")
		return true
	}
	if err := c.store.SaveUser(ctx, ns, *user); err != nil {
		c.log.Err(err).Msg("Failed to cache user")
	}

	c.log.Info().Str("user_id", resp.UserID).Msg("User signed in")
	return true
}

// Logout forgets the session of ns. It does not contact the backend.
func (c *Client) Logout(ctx context.Context, ns string) {
	c.store.Clear(ctx, ns)
}
