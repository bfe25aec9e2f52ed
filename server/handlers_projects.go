package server

import (
	"context"
	"io"
	"net/http"
	"net/url"

	"github.com/rs/zerolog/log"

	apperrors "github.com/jrsteele09/planter-dashboard/internal/errors"
	"github.com/jrsteele09/planter-dashboard/projects"
	"github.com/jrsteele09/planter-dashboard/server/views"
)

// ProjectsListHandler reloads the project list fragment.
func (s *Server) ProjectsListHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dir := s.directory(browserID(r), authState(r))
		fragment := views.ProjectsState{}
		if _, err := dir.Load(r.Context()); err != nil {
			fragment.Error = msgLoadProjectsFailed
		}
		fragment.Projects = dir.Projects()
		s.renderProjects(w, fragment)
	}
}

// CreateProjectHandler validates and creates a project. HTMX callers get the refreshed
// list fragment, plain form posts are redirected back to the dashboard.
func (s *Server) CreateProjectHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "400 - Bad Request", http.StatusBadRequest)
			return
		}
		req := projects.NewCreateProjectRequest(r.PostFormValue("name"), r.PostFormValue("type"))
		dir := s.directory(browserID(r), authState(r))

		fragment := views.ProjectsState{}
		created, err := dir.Create(r.Context(), req)
		switch {
		case err == nil:
			fragment.Notice = msgProjectCreated
		case created != nil:
			fragment.Notice = msgProjectCreated
			fragment.Error = msgLoadProjectsFailed
		case apperrors.Is(err, apperrors.ErrValidation):
			fragment.Error = createValidationMessage(req, err)
		default:
			fragment.Error = msgCreateProjectFailed
		}
		if created == nil && fragment.Error != "" && !isHTMXRequest(r) {
			// keep the user's input for the re-rendered form
			q := url.Values{"error": {fragment.Error}, "name": {req.Name}, "type": {string(req.Type)}}
			redirectSuccess(w, r, RouteIndex+"?"+q.Encode())
			return
		}
		s.projectsResult(w, r, dir, fragment)
	}
}

func createValidationMessage(req projects.CreateProjectRequest, err error) string {
	if req.Name == "" {
		return msgProjectNameRequired
	}
	return err.Error()
}

// DeleteProjectHandler deletes a project once the user confirmed it. Unconfirmed plain
// form posts get a confirmation page; unconfirmed HTMX posts leave the list untouched.
func (s *Server) DeleteProjectHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "400 - Bad Request", http.StatusBadRequest)
			return
		}
		ctx := r.Context()
		dir := s.directory(browserID(r), authState(r))

		project, ok := dir.Find(r.PathValue("id"))
		if !ok {
			if _, err := dir.Load(ctx); err == nil {
				project, ok = dir.Find(r.PathValue("id"))
			}
		}
		if !ok {
			s.projectsResult(w, r, dir, views.ProjectsState{Error: msgProjectNotFound})
			return
		}

		confirmed := r.PostFormValue("confirmed") == "true"
		var prompt string
		deleted, err := dir.Delete(ctx, project, projects.ConfirmFunc(func(_ context.Context, message string) bool {
			prompt = message
			return confirmed
		}))

		fragment := views.ProjectsState{}
		switch {
		case err != nil && deleted:
			fragment.Notice = msgProjectDeleted
			fragment.Error = msgLoadProjectsFailed
		case err != nil:
			log.Err(err).Str("project_id", project.ID).Msg("Delete failed")
			fragment.Error = msgDeleteProjectFailed
		case deleted:
			fragment.Notice = msgProjectDeleted
		case !isHTMXRequest(r):
			s.render(w, http.StatusOK, func(out io.Writer) error {
				return views.ConfirmDelete(out, views.ConfirmDeleteState{
					AppName: s.config.GetAppName(),
					Project: project,
					Message: prompt,
				})
			})
			return
		}
		s.projectsResult(w, r, dir, fragment)
	}
}

// projectsResult answers a project mutation: the list fragment for HTMX, a redirect otherwise.
func (s *Server) projectsResult(w http.ResponseWriter, r *http.Request, dir *projects.Directory, fragment views.ProjectsState) {
	if !isHTMXRequest(r) {
		if fragment.Error != "" {
			redirectWithError(w, r, RouteIndex, fragment.Error)
			return
		}
		if fragment.Notice != "" {
			redirectSuccess(w, r, RouteIndex+"?notice="+url.QueryEscape(fragment.Notice))
			return
		}
		redirectSuccess(w, r, RouteIndex)
		return
	}
	fragment.Projects = dir.Projects()
	s.renderProjects(w, fragment)
}

func (s *Server) renderProjects(w http.ResponseWriter, fragment views.ProjectsState) {
	s.render(w, http.StatusOK, func(out io.Writer) error {
		return views.ProjectsList(out, fragment)
	})
}
