package projects

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/jrsteele09/planter-dashboard/internal/validation"
	"github.com/jrsteele09/planter-dashboard/users"
)

type ProjectType string

const (
	ProjectTypeEcommerce ProjectType = "ECOMMERCE"
	ProjectTypeBlog      ProjectType = "BLOG"
	ProjectTypePortfolio ProjectType = "PORTFOLIO"
	ProjectTypeUnknown   ProjectType = "UNKNOWN"
)

// CreatableTypes lists the types a user may pick in the creation form, in display order.
var CreatableTypes = []ProjectType{ProjectTypeEcommerce, ProjectTypeBlog, ProjectTypePortfolio}

// UnmarshalJSON maps any type the dashboard does not know about to ProjectTypeUnknown.
func (t *ProjectType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*t = ParseType(s)
	return nil
}

func ParseType(s string) ProjectType {
	switch pt := ProjectType(strings.ToUpper(strings.TrimSpace(s))); pt {
	case ProjectTypeEcommerce, ProjectTypeBlog, ProjectTypePortfolio:
		return pt
	default:
		return ProjectTypeUnknown
	}
}

// Label is the human readable name used in the creation form.
func (t ProjectType) Label() string {
	switch t {
	case ProjectTypeEcommerce:
		return "E-commerce"
	case ProjectTypeBlog:
		return "Blog"
	case ProjectTypePortfolio:
		return "Portfolio"
	default:
		return "Unknown"
	}
}

type Project struct {
	ID                 string          `json:"id"`
	Name               string          `json:"name"`
	GitHubRepositoryID int64           `json:"github_repository_id"`
	Type               ProjectType     `json:"type"`
	Infra              map[string]bool `json:"infra,omitempty"` // Provisioning status flags reported by the backend
	CreatedAt          int64           `json:"created_at"`      // Unix milliseconds
	User               users.User      `json:"user"`
}

func (p Project) Created() time.Time {
	return time.UnixMilli(p.CreatedAt)
}

type CreateProjectRequest struct {
	Name string      `json:"name" validate:"required,max=100"`
	Type ProjectType `json:"type" validate:"required,oneof=ECOMMERCE BLOG PORTFOLIO"`
}

// NewCreateProjectRequest trims the name and defaults an empty type to ECOMMERCE.
func NewCreateProjectRequest(name, projectType string) CreateProjectRequest {
	req := CreateProjectRequest{Name: strings.TrimSpace(name), Type: ProjectTypeEcommerce}
	if strings.TrimSpace(projectType) != "" {
		req.Type = ProjectType(strings.ToUpper(strings.TrimSpace(projectType)))
	}
	return req
}

func (r CreateProjectRequest) Validate() error {
	return validation.Default().Struct(r)
}
