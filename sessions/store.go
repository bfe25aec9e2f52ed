package sessions

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	apperrors "github.com/jrsteele09/planter-dashboard/internal/errors"
	"github.com/jrsteele09/planter-dashboard/internal/observability"
	"github.com/jrsteele09/planter-dashboard/users"
)

// Storage keys within a browser namespace.
const (
	KeyAccessToken  = "auth_token"
	KeyRefreshToken = "refresh_token"
	KeyUserID       = "user_id"
	KeyUser         = "user"
	KeyOAuthState   = "github_oauth_state"
)

var sessionKeys = []string{KeyAccessToken, KeyRefreshToken, KeyUserID, KeyUser}

// Store persists a Session in a KV. Load never returns an error: a missing, partial or
// corrupt session is reported as absent, and partial or corrupt state is cleared.
type Store struct {
	kv  KV
	log zerolog.Logger
}

func NewStore(kv KV) *Store {
	return &Store{
		kv:  kv,
		log: log.With().Str("component", "session_store").Logger(),
	}
}

// Save replaces the stored session.
func (s *Store) Save(ctx context.Context, ns string, session Session) error {
	if !session.Complete() {
		return apperrors.Wrapf(apperrors.ErrValidation, "save session: access token and user id are required")
	}

	if err := s.kv.Set(ctx, ns, KeyAccessToken, session.AccessToken); err != nil {
		return apperrors.Wrapf(err, "save session")
	}
	if err := s.kv.Set(ctx, ns, KeyUserID, session.UserID); err != nil {
		return apperrors.Wrapf(err, "save session")
	}
	if session.RefreshToken != "" {
		if err := s.kv.Set(ctx, ns, KeyRefreshToken, session.RefreshToken); err != nil {
			return apperrors.Wrapf(err, "save session")
		}
	} else if err := s.kv.Delete(ctx, ns, KeyRefreshToken); err != nil {
		return apperrors.Wrapf(err, "save session")
	}

	if session.CachedUser != nil {
		return s.SaveUser(ctx, ns, *session.CachedUser)
	}
	if err := s.kv.Delete(ctx, ns, KeyUser); err != nil {
		return apperrors.Wrapf(err, "save session")
	}
	return nil
}

// SaveUser updates the cached user profile.
func (s *Store) SaveUser(ctx context.Context, ns string, user users.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return apperrors.Wrapf(err, "save user")
	}
	if err := s.kv.Set(ctx, ns, KeyUser, string(data)); err != nil {
		return apperrors.Wrapf(err, "save user")
	}
	return nil
}

// Load returns the stored session, or false when there is none.
func (s *Store) Load(ctx context.Context, ns string) (Session, bool) {
	if ns == "" {
		return Session{}, false
	}

	var (
		session Session
		present int
	)
	for key, dst := range map[string]*string{
		KeyAccessToken:  &session.AccessToken,
		KeyRefreshToken: &session.RefreshToken,
		KeyUserID:       &session.UserID,
	} {
		v, ok, err := s.kv.Get(ctx, ns, key)
		if err != nil {
			return s.failLoad(ctx, ns, err)
		}
		if ok && v != "" {
			*dst = v
			if key != KeyRefreshToken {
				present++
			}
		}
	}

	switch {
	case present == 0:
		orphaned, err := s.hasOrphanedKeys(ctx, ns, session)
		if err != nil {
			return s.failLoad(ctx, ns, err)
		}
		if orphaned {
			return s.failLoad(ctx, ns, apperrors.Wrapf(apperrors.ErrStateCorruption, "session keys without credentials"))
		}
		return Session{}, false
	case !session.Complete():
		return s.failLoad(ctx, ns, apperrors.Wrapf(apperrors.ErrStateCorruption, "partial session"))
	}

	raw, ok, err := s.kv.Get(ctx, ns, KeyUser)
	if err != nil {
		return s.failLoad(ctx, ns, err)
	}
	if ok {
		var user users.User
		if err := json.Unmarshal([]byte(raw), &user); err != nil {
			return s.failLoad(ctx, ns, apperrors.Wrapf(apperrors.ErrStateCorruption, "cached user: %v", err))
		}
		session.CachedUser = &user
	}

	return session, true
}

// hasOrphanedKeys reports whether a refresh token or cached user outlived the credentials.
func (s *Store) hasOrphanedKeys(ctx context.Context, ns string, session Session) (bool, error) {
	if session.RefreshToken != "" {
		return true, nil
	}
	_, ok, err := s.kv.Get(ctx, ns, KeyUser)
	return ok, err
}

// failLoad clears corrupt state. Storage transport errors leave state in place.
func (s *Store) failLoad(ctx context.Context, ns string, err error) (Session, bool) {
	if !apperrors.Is(err, apperrors.ErrStateCorruption) {
		s.log.Err(err).Msg("Session storage unavailable")
		return Session{}, false
	}

	observability.StateCorruptionsTotal.Inc()
	s.log.Warn().Err(err).Msg("Clearing corrupt session")
	s.Clear(ctx, ns)
	return Session{}, false
}

// Clear removes the session and any pending OAuth state.
func (s *Store) Clear(ctx context.Context, ns string) {
	if ns == "" {
		return
	}
	if err := s.kv.Delete(ctx, ns, append(sessionKeys, KeyOAuthState)...); err != nil {
		s.log.Err(err).Msg("Failed to clear session")
	}
}

// SaveOAuthState remembers the anti-forgery state of a login in progress.
func (s *Store) SaveOAuthState(ctx context.Context, ns, state string) error {
	if err := s.kv.Set(ctx, ns, KeyOAuthState, state); err != nil {
		return apperrors.Wrapf(err, "save oauth state")
	}
	return nil
}

// HasOAuthState reports whether a login is in progress for ns.
func (s *Store) HasOAuthState(ctx context.Context, ns string) bool {
	v, ok, err := s.kv.Get(ctx, ns, KeyOAuthState)
	return err == nil && ok && v != ""
}

// TakeOAuthState returns and forgets the pending OAuth state.
func (s *Store) TakeOAuthState(ctx context.Context, ns string) (string, bool) {
	v, ok, err := s.kv.Get(ctx, ns, KeyOAuthState)
	if delErr := s.kv.Delete(ctx, ns, KeyOAuthState); delErr != nil {
		s.log.Err(delErr).Msg("Failed to clear oauth state")
	}
	if err != nil {
		s.log.Warn().Err(err).Msg("Discarding unreadable oauth state")
		return "", false
	}
	return v, ok && v != ""
}
