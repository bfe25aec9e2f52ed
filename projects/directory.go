package projects

import (
	"context"
	"fmt"
	"sync"

	apperrors "github.com/jrsteele09/planter-dashboard/internal/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// API is the subset of the backend client the Directory needs.
type API interface {
	ListProjects(ctx context.Context, accessToken, userID string) ([]Project, error)
	CreateProject(ctx context.Context, accessToken, userID string, req CreateProjectRequest) (*Project, error)
	DeleteProject(ctx context.Context, accessToken, userID, projectID string, githubUserID int64) error
}

// Confirmer asks the user to approve a destructive action.
type Confirmer interface {
	Confirm(ctx context.Context, message string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, message string) bool

func (f ConfirmFunc) Confirm(ctx context.Context, message string) bool {
	return f(ctx, message)
}

// Owner identifies whose projects a Directory holds.
type Owner struct {
	UserID      string
	AccessToken string
}

// Directory caches one user's project list. The list is only ever replaced by a
// successful Load, so readers never observe a partially applied mutation.
// Loads and mutations are serialized per Directory.
type Directory struct {
	api   API
	owner Owner
	log   zerolog.Logger

	opMu sync.Mutex // serializes Load, Create and Delete

	mu       sync.RWMutex
	projects []Project
}

func NewDirectory(api API, owner Owner) *Directory {
	return &Directory{
		api:      api,
		owner:    owner,
		log:      log.With().Str("component", "project_directory").Str("user_id", owner.UserID).Logger(),
		projects: []Project{},
	}
}

func (d *Directory) Owner() Owner {
	return d.owner
}

// Projects returns a copy of the last successfully loaded list.
func (d *Directory) Projects() []Project {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Project, len(d.projects))
	copy(out, d.projects)
	return out
}

// Find returns the cached project with the given id.
func (d *Directory) Find(projectID string) (Project, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, p := range d.projects {
		if p.ID == projectID {
			return p, true
		}
	}
	return Project{}, false
}

// Load replaces the cached list with the backend's current list.
func (d *Directory) Load(ctx context.Context) ([]Project, error) {
	d.opMu.Lock()
	defer d.opMu.Unlock()
	return d.load(ctx)
}

func (d *Directory) load(ctx context.Context) ([]Project, error) {
	list, err := d.api.ListProjects(ctx, d.owner.AccessToken, d.owner.UserID)
	if err != nil {
		d.log.Err(err).Msg("Failed to load projects")
		return nil, apperrors.Wrapf(err, "load projects")
	}
	if list == nil {
		list = []Project{}
	}

	d.mu.Lock()
	d.projects = list
	d.mu.Unlock()

	return d.Projects(), nil
}

// Create validates and submits req, then reloads the list. When the create succeeds but the
// reload fails, the created project is returned together with the reload error.
func (d *Directory) Create(ctx context.Context, req CreateProjectRequest) (*Project, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	d.opMu.Lock()
	defer d.opMu.Unlock()

	created, err := d.api.CreateProject(ctx, d.owner.AccessToken, d.owner.UserID, req)
	if err != nil {
		d.log.Err(err).Str("name", req.Name).Msg("Failed to create project")
		return nil, apperrors.Wrapf(err, "create project %q", req.Name)
	}
	d.log.Info().Str("project_id", created.ID).Str("name", created.Name).Msg("Project created")

	if _, err := d.load(ctx); err != nil {
		return created, err
	}
	return created, nil
}

// DeleteMessage is the confirmation prompt shown before deleting p.
func DeleteMessage(p Project) string {
	return fmt.Sprintf("Are you sure you want to delete %q?", p.Name)
}

// Delete asks confirm for approval, deletes p and reloads the list.
// It reports false without calling the backend when the user declines.
func (d *Directory) Delete(ctx context.Context, p Project, confirm Confirmer) (bool, error) {
	if confirm == nil || !confirm.Confirm(ctx, DeleteMessage(p)) {
		return false, nil
	}

	d.opMu.Lock()
	defer d.opMu.Unlock()

	userID := p.User.ID
	if userID == "" {
		userID = d.owner.UserID
	}
	if err := d.api.DeleteProject(ctx, d.owner.AccessToken, userID, p.ID, p.User.GitHubUserID); err != nil {
		d.log.Err(err).Str("project_id", p.ID).Msg("Failed to delete project")
		return false, apperrors.Wrapf(err, "delete project %q", p.Name)
	}
	d.log.Info().Str("project_id", p.ID).Msg("Project deleted")

	if _, err := d.load(ctx); err != nil {
		return true, err
	}
	return true, nil
}
