// Package awsintegration derives the state of a user's AWS account link and drives the
// CloudFormation based linking flow.
package awsintegration

import (
	"fmt"

	"github.com/jrsteele09/planter-dashboard/internal/utils"
	"github.com/jrsteele09/planter-dashboard/users"
)

type Status string

const (
	StatusLoading        Status = "loading"
	StatusNotConfigured  Status = "not_configured"
	StatusConnected      Status = "connected"
	StatusNeedsAttention Status = "needs_attention"
)

type ResourceCounts struct {
	S3Buckets    int `json:"s3Buckets"`
	EC2Instances int `json:"ec2Instances"`
	RDSDatabases int `json:"rdsDatabases"`
}

// Integration is derived on every poll and never persisted.
type Integration struct {
	Status         Status
	AccountID      string
	ResourceCounts *ResourceCounts
}

// DeriveStatus maps what is known about the user onto a Status:
// no user id is not_configured, a failed fetch needs attention, and otherwise the
// backend's enabled flag decides between connected and needs_attention.
func DeriveStatus(hasUserID bool, fetchErr error, enabled bool) Status {
	switch {
	case !hasUserID:
		return StatusNotConfigured
	case fetchErr != nil:
		return StatusNeedsAttention
	case enabled:
		return StatusConnected
	default:
		return StatusNeedsAttention
	}
}

// FromUser builds the Integration for a freshly fetched user.
func FromUser(hasUserID bool, user *users.User, fetchErr error) Integration {
	var enabled bool
	if user != nil {
		enabled = user.AWSAccountEnabled
	}
	in := Integration{Status: DeriveStatus(hasUserID, fetchErr, enabled)}
	if fetchErr == nil && user != nil && user.HasAWSAccount() {
		in.AccountID = utils.Value(user.AWSAccountID)
	}
	if in.Status == StatusConnected {
		in.ResourceCounts = &ResourceCounts{}
	}
	return in
}

func (i Integration) Connected() bool {
	return i.Status == StatusConnected
}

// Label is the indicator's button text.
func (i Integration) Label() string {
	switch i.Status {
	case StatusLoading:
		return "Checking AWS..."
	case StatusConnected:
		return "AWS connected"
	default:
		return "Connect AWS"
	}
}

// Tooltip explains the status in a sentence.
func (i Integration) Tooltip() string {
	switch i.Status {
	case StatusConnected:
		if i.AccountID != "" {
			return fmt.Sprintf("Connected to AWS account %s", i.AccountID)
		}
		return "Connected to AWS"
	case StatusNeedsAttention:
		if i.AccountID != "" {
			return fmt.Sprintf("AWS account %s has not been verified yet", i.AccountID)
		}
		return "AWS status could not be checked"
	case StatusNotConfigured:
		return "Link an AWS account to deploy your projects"
	default:
		return ""
	}
}
