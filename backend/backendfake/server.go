// Package backendfake is an in-memory stand-in for the Planter REST API, served over httptest.
package backendfake

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jrsteele09/planter-dashboard/internal/utils"
	"github.com/jrsteele09/planter-dashboard/projects"
	"github.com/jrsteele09/planter-dashboard/users"
)

// Operation names, matching the backend client's metric labels.
const (
	OpAuthURL       = "auth_url"
	OpSignIn        = "sign_in"
	OpGetUser       = "get_user"
	OpListUsers     = "list_users"
	OpListProjects  = "list_projects"
	OpCreateProject = "create_project"
	OpDeleteProject = "delete_project"
	OpSetupAWS      = "setup_aws"
)

const TemplateURL = "https://planter-templates.s3.amazonaws.com/integration.yaml"

type grant struct {
	userID string
	state  string
}

type Server struct {
	*httptest.Server

	lock        sync.RWMutex
	users       map[string]*users.User
	tokens      map[string]string // access token -> user id
	codes       map[string]grant  // oauth code -> pending sign in
	projects    map[string][]projects.Project
	failures    map[string]int // operation -> forced status
	calls       map[string]int
	nextProject int
	nextState   int
}

// New starts a fake backend. Close it when done.
func New() *Server {
	s := &Server{
		users:    make(map[string]*users.User),
		tokens:   make(map[string]string),
		codes:    make(map[string]grant),
		projects: make(map[string][]projects.Project),
		failures: make(map[string]int),
		calls:    make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /auth/github/url", s.track(OpAuthURL, s.handleAuthURL))
	mux.HandleFunc("POST /auth/github/signin", s.track(OpSignIn, s.handleSignIn))
	mux.HandleFunc("GET /users", s.track(OpListUsers, s.authed(s.handleListUsers)))
	mux.HandleFunc("GET /users/{id}", s.track(OpGetUser, s.authed(s.handleGetUser)))
	mux.HandleFunc("GET /users/{id}/projects", s.track(OpListProjects, s.authed(s.handleListProjects)))
	mux.HandleFunc("POST /users/{id}/projects", s.track(OpCreateProject, s.authed(s.handleCreateProject)))
	mux.HandleFunc("DELETE /users/{id}/projects/{projectID}", s.track(OpDeleteProject, s.authed(s.handleDeleteProject)))
	mux.HandleFunc("POST /users/{id}/aws/setup", s.track(OpSetupAWS, s.authed(s.handleSetupAWS)))

	s.Server = httptest.NewServer(mux)
	return s
}

// AddUser registers u and the access token that authenticates as u. A missing id is generated.
func (s *Server) AddUser(u users.User, accessToken string) users.User {
	s.lock.Lock()
	defer s.lock.Unlock()

	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	if u.CreatedAt == 0 {
		u.CreatedAt = time.Now().UnixMilli()
	}
	s.users[u.ID] = &u
	if accessToken != "" {
		s.tokens[accessToken] = u.ID
	}
	return u
}

// IssueCode makes code exchangeable for userID's credentials. An empty state accepts any state.
func (s *Server) IssueCode(code, userID, state string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.codes[code] = grant{userID: userID, state: state}
}

// RevokeToken makes accessToken unauthorized.
func (s *Server) RevokeToken(accessToken string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	delete(s.tokens, accessToken)
}

func (s *Server) SetAWSAccount(userID, accountID string, enabled bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if u, ok := s.users[userID]; ok {
		u.AWSAccountID = utils.Ptr(accountID)
		u.AWSAccountEnabled = enabled
	}
}

// Fail forces operation to answer with status until Recover is called.
func (s *Server) Fail(operation string, status int) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.failures[operation] = status
}

func (s *Server) Recover(operation string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	delete(s.failures, operation)
}

// Calls returns how many requests operation has received.
func (s *Server) Calls(operation string) int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.calls[operation]
}

func (s *Server) User(userID string) (users.User, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return users.User{}, false
	}
	return *u, true
}

func (s *Server) Projects(userID string) []projects.Project {
	s.lock.RLock()
	defer s.lock.RUnlock()
	out := make([]projects.Project, len(s.projects[userID]))
	copy(out, s.projects[userID])
	return out
}

// AddProject stores p for userID directly, bypassing the API.
func (s *Server) AddProject(userID string, p projects.Project) projects.Project {
	s.lock.Lock()
	defer s.lock.Unlock()
	if p.ID == "" {
		s.nextProject++
		p.ID = fmt.Sprintf("proj-%d", s.nextProject)
	}
	if u, ok := s.users[userID]; ok {
		p.User = *u
	}
	s.projects[userID] = append(s.projects[userID], p)
	return p
}

func (s *Server) track(operation string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.lock.Lock()
		s.calls[operation]++
		status, failing := s.failures[operation]
		s.lock.Unlock()

		if failing {
			http.Error(w, `{"error":"forced failure"}`, status)
			return
		}
		next(w, r)
	}
}

// authed requires a bearer token belonging to the user in the path, when the path has one.
func (s *Server) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		s.lock.RLock()
		userID, known := s.tokens[token]
		s.lock.RUnlock()

		if !ok || !known {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		if id := r.PathValue("id"); id != "" && id != userID {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
			return
		}
		next(w, r)
	}
}

func (s *Server) handleAuthURL(w http.ResponseWriter, _ *http.Request) {
	s.lock.Lock()
	s.nextState++
	state := fmt.Sprintf("state-%d", s.nextState)
	s.lock.Unlock()

	q := url.Values{"client_id": {"fake-client"}, "state": {state}, "scope": {"repo read:user"}}
	writeJSON(w, http.StatusOK, map[string]string{
		"auth_url": "https://github.com/login/oauth/authorize?" + q.Encode(),
	})
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code  string `json:"code"`
		State string `json:"state"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	g, ok := s.codes[req.Code]
	if !ok || (g.state != "" && g.state != req.State) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid code"})
		return
	}
	delete(s.codes, req.Code)

	token := "token-" + uuid.New().String()
	s.tokens[token] = g.userID
	writeJSON(w, http.StatusOK, map[string]string{
		"user_id":       g.userID,
		"access_token":  token,
		"refresh_token": "refresh-" + uuid.New().String(),
	})
}

func (s *Server) handleListUsers(w http.ResponseWriter, _ *http.Request) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	out := make([]users.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, *u)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	u, ok := s.User(r.PathValue("id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "user not found"})
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Projects(r.PathValue("id")))
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req projects.CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid project"})
		return
	}

	p := s.AddProject(r.PathValue("id"), projects.Project{
		Name:               req.Name,
		Type:               req.Type,
		GitHubRepositoryID: time.Now().UnixNano() % 1_000_000,
		CreatedAt:          time.Now().UnixMilli(),
	})
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	var req struct {
		GitHubUserID int64 `json:"github_user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}

	userID, projectID := r.PathValue("id"), r.PathValue("projectID")

	s.lock.Lock()
	defer s.lock.Unlock()

	list := s.projects[userID]
	for i, p := range list {
		if p.ID != projectID {
			continue
		}
		if p.User.GitHubUserID != req.GitHubUserID {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "github_user_id mismatch"})
			return
		}
		s.projects[userID] = append(list[:i:i], list[i+1:]...)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "project not found"})
}

func (s *Server) handleSetupAWS(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID string `json:"accountId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AccountID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "accountId is required"})
		return
	}

	userID := r.PathValue("id")
	s.SetAWSAccount(userID, req.AccountID, false)
	u, _ := s.User(userID)

	fragment := url.Values{
		"templateURL":                 {TemplateURL},
		"stackName":                   {"VitruviuxIntegrationStack"},
		"param_GitHubOwner":           {u.Name},
		"param_GitHubEnvironment":     {"production"},
		"param_ControlPlaneAccountId": {"111122223333"},
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"url": "https://console.aws.amazon.com/cloudformation/home?region=us-east-1#/stacks/quickcreate?" + fragment.Encode(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
