package sessions

import (
	"golang.org/x/oauth2"

	"github.com/jrsteele09/planter-dashboard/users"
)

// Session is the authenticated identity cached for one browser between page loads.
// AccessToken and UserID are both set or the session is treated as logged out.
type Session struct {
	AccessToken  string      // Bearer token issued by the backend
	RefreshToken string      // Stored for completeness; token refresh is not performed
	UserID       string      // Backend user id
	CachedUser   *users.User // Profile fetched after sign-in, nil until populated
}

// Complete reports whether both required fields are present.
func (s Session) Complete() bool {
	return s.AccessToken != "" && s.UserID != ""
}

// Token exposes the session credentials as an oauth2 bearer token.
func (s Session) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		TokenType:    "Bearer",
	}
}
