package server

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/planter-dashboard/auth"
	"github.com/jrsteele09/planter-dashboard/awsintegration"
	"github.com/jrsteele09/planter-dashboard/internal/config"
	"github.com/jrsteele09/planter-dashboard/projects"
)

// Services are the collaborators the handlers orchestrate.
type Services struct {
	Auth     *auth.Client
	Projects projects.API
	AWS      *awsintegration.Service
}

type Server struct {
	env         string // Environment (e.g., "DEV", "PROD")
	mux         *http.ServeMux
	routes      []string
	config      config.Config
	auth        *auth.Client
	projectsAPI projects.API
	aws         *awsintegration.Service
	limiter     *RateLimiter

	directories     map[string]*browserDirectory // browser id -> directory
	directoriesLock sync.Mutex
}

type browserDirectory struct {
	dir      *projects.Directory
	lastSeen time.Time
}

func New(config config.Config, services Services) (*Server, error) {
	if services.Auth == nil || services.Projects == nil || services.AWS == nil {
		return nil, fmt.Errorf("[Server New] auth, projects and aws services are required")
	}

	s := &Server{
		mux:         http.NewServeMux(),
		config:      config,
		auth:        services.Auth,
		projectsAPI: services.Projects,
		aws:         services.AWS,
		directories: make(map[string]*browserDirectory),
	}
	s.env = config.GetEnv()
	if config.GetEnableRateLimiting() {
		s.limiter = NewRateLimiter(config.GetRateLimitPerMinute())
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			log.Info().Msgf("[%s] %s", colorMethod(parts[0]), parts[1])
		} else {
			log.Info().Msgf("[%s] %s", colorMethod(""), parts[0])
		}
	}
}

// directory returns the project directory of a browser, replacing it when the signed in
// owner has changed.
func (s *Server) directory(browserID string, state auth.AuthState) *projects.Directory {
	owner := projects.Owner{UserID: state.UserID, AccessToken: state.AccessToken}

	s.directoriesLock.Lock()
	defer s.directoriesLock.Unlock()
	entry, ok := s.directories[browserID]
	if !ok || entry.dir.Owner() != owner {
		entry = &browserDirectory{dir: projects.NewDirectory(s.projectsAPI, owner)}
		s.directories[browserID] = entry
	}
	entry.lastSeen = time.Now()
	return entry.dir
}

func (s *Server) dropDirectory(browserID string) {
	s.directoriesLock.Lock()
	defer s.directoriesLock.Unlock()
	delete(s.directories, browserID)
}

// forgetLoggedOut drops the cached directory of a browser whose session did not validate.
// An abandoned request says nothing about the session, so it keeps the directory.
func (s *Server) forgetLoggedOut(r *http.Request, state auth.AuthState) {
	if state.LoggedIn() || r.Context().Err() != nil {
		return
	}
	s.dropDirectory(browserID(r))
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}

// SweepIdleClients forgets the rate limit buckets and project directories of clients
// idle for longer than idle.
func (s *Server) SweepIdleClients(idle time.Duration) {
	if s.limiter != nil {
		s.limiter.Sweep(idle)
	}

	s.directoriesLock.Lock()
	defer s.directoriesLock.Unlock()
	for id, entry := range s.directories {
		if time.Since(entry.lastSeen) > idle {
			delete(s.directories, id)
		}
	}
}
