package backend

import (
	"errors"
	"fmt"
	"net/http"

	apperrors "github.com/jrsteele09/planter-dashboard/internal/errors"
)

type AuthURLResponse struct {
	AuthURL string `json:"auth_url"`
}

type SignInRequest struct {
	Code  string `json:"code"`
	State string `json:"state"`
}

type SignInResponse struct {
	UserID       string `json:"user_id"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type DeleteProjectRequest struct {
	GitHubUserID int64 `json:"github_user_id"`
}

type SetupAWSRequest struct {
	AccountID string `json:"accountId"`
}

type SetupAWSResponse struct {
	URL string `json:"url"`
}

// StatusError is returned when the backend answers with a non-2xx status.
// It matches apperrors.ErrNetworkFailure, and also ErrNotAuthenticated for 401/403
// and ErrNotFound for 404.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: backend returned %d %s", e.Op, e.StatusCode, http.StatusText(e.StatusCode))
}

func (e *StatusError) Is(target error) bool {
	switch target {
	case apperrors.ErrNetworkFailure:
		return true
	case apperrors.ErrNotAuthenticated:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	case apperrors.ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	}
	return false
}

// StatusCode returns the HTTP status carried by err, or 0 when err is not a StatusError.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}
