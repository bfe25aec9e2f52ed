package server

import (
	"bytes"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/jrsteele09/planter-dashboard/awsintegration"
	"github.com/jrsteele09/planter-dashboard/internal/utils"
	"github.com/jrsteele09/planter-dashboard/internal/version"
	"github.com/jrsteele09/planter-dashboard/projects"
	"github.com/jrsteele09/planter-dashboard/server/views"
)

const (
	msgLoadProjectsFailed  = "Failed to load projects"
	msgCreateProjectFailed = "Failed to create project"
	msgDeleteProjectFailed = "Failed to delete project"
	msgProjectNameRequired = "Please provide a project name"
	msgProjectNotFound     = "Project not found"
	msgAWSSetupFailed      = "Failed to start AWS setup"
	msgProjectCreated      = "Project created"
	msgProjectDeleted      = "Project deleted"
)

// IndexHandler renders the login page for logged out browsers and the dashboard otherwise.
// Projects and the AWS status are loaded concurrently.
func (s *Server) IndexHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		state := s.auth.CheckStatus(ctx, browserID(r))
		errMsg := r.URL.Query().Get("error")

		if !state.LoggedIn() {
			s.forgetLoggedOut(r, state)
			s.render(w, http.StatusOK, func(out io.Writer) error {
				return views.Login(out, views.LoginState{
					AppName: s.config.GetAppName(),
					Version: version.Short(),
					Error:   errMsg,
				})
			})
			return
		}

		dir := s.directory(browserID(r), state)
		var (
			projectsErr string
			aws         awsintegration.Integration
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			if _, err := dir.Load(gctx); err != nil {
				projectsErr = msgLoadProjectsFailed
			}
			return nil
		})
		g.Go(func() error {
			aws = s.aws.Resolve(gctx, state.AccessToken, state.UserID)
			return nil
		})
		_ = g.Wait()

		s.render(w, http.StatusOK, func(out io.Writer) error {
			return views.App(out, views.AppState{
				AppName:       s.config.GetAppName(),
				Version:       version.Short(),
				User:          utils.Value(state.User),
				Projects:      dir.Projects(),
				ProjectsError: projectsErr,
				AWS:           aws,
				Error:         errMsg,
				Notice:        r.URL.Query().Get("notice"),
				FormName:      r.URL.Query().Get("name"),
				FormType:      projects.ParseType(r.URL.Query().Get("type")),
			})
		})
	}
}

// render buffers a view and writes it with status, or a 500 if the view fails.
func (s *Server) render(w http.ResponseWriter, status int, view func(io.Writer) error) {
	var buf bytes.Buffer
	if err := view(&buf); err != nil {
		log.Err(err).Msg("Failed to render view")
		http.Error(w, "500 - Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
