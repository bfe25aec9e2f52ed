package users

import (
	"time"

	"github.com/jrsteele09/planter-dashboard/internal/utils"
)

// User is the backend's view of a dashboard user. The dashboard only ever holds a read-only copy.
type User struct {
	ID                string  `json:"id"`                       // Backend user identifier
	GitHubUserID      int64   `json:"github_user_id"`           // Numeric GitHub account id
	AWSAccountID      *string `json:"aws_account_id,omitempty"` // Linked AWS account, if any
	AWSAccountEnabled bool    `json:"aws_account_enabled"`      // Linked account passed the backend's health check
	AvatarURL         string  `json:"avatar_url,omitempty"`     // GitHub avatar
	Name              string  `json:"name,omitempty"`           // Display name
	CreatedAt         int64   `json:"created_at"`               // Unix milliseconds
}

// Created returns CreatedAt as a time.Time.
func (u User) Created() time.Time {
	return time.UnixMilli(u.CreatedAt)
}

// DisplayName falls back to "User" when the backend has no name on record.
func (u User) DisplayName() string {
	if u.Name == "" {
		return "User"
	}
	return u.Name
}

// HasAWSAccount reports whether an AWS account id has been linked.
func (u User) HasAWSAccount() bool {
	return utils.Value(u.AWSAccountID) != ""
}
