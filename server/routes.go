package server

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/planter-dashboard/internal/observability"
)

func (s *Server) initRoutes() {
	s.RegisterRouteHandler("GET "+RouteIndex+"{$}", ChainMiddleware(s.IndexHandler(), s.HTMLMiddleWare(s.WithBrowser)...))

	// AUTH
	s.RegisterRouteHandler("GET "+RouteAuthLogin, ChainMiddleware(s.LoginHandler(), s.HTMLMiddleWare(s.WithBrowser)...))
	s.RegisterRouteHandler("GET "+RouteAuthCallback, ChainMiddleware(s.CallbackHandler(), s.HTMLMiddleWare(s.WithBrowser)...))
	s.RegisterRouteHandler("POST "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), s.HTMLMiddleWare(s.WithBrowser)...))

	// PROJECTS
	s.RegisterRouteHandler("GET "+RouteProjects, ChainMiddleware(s.ProjectsListHandler(), s.HTMLMiddleWare(s.WithBrowser, s.RequireLogin)...))
	s.RegisterRouteHandler("POST "+RouteProjects, ChainMiddleware(s.CreateProjectHandler(), s.HTMLMiddleWare(s.WithBrowser, s.RequireLogin)...))
	s.RegisterRouteHandler("POST "+RouteProjectDelete, ChainMiddleware(s.DeleteProjectHandler(), s.HTMLMiddleWare(s.WithBrowser, s.RequireLogin)...))

	// AWS
	s.RegisterRouteHandler("GET "+RouteAWSStatus, ChainMiddleware(s.AWSStatusHandler(), s.HTMLMiddleWare(s.WithBrowser, s.RequireLogin)...))
	s.RegisterRouteHandler("GET "+RouteAWSConnect, ChainMiddleware(s.AWSConnectHandler(), s.HTMLMiddleWare(s.WithBrowser, s.RequireLogin)...))
	s.RegisterRouteHandler("GET "+RouteAWSClose, ChainMiddleware(s.AWSCloseHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("POST "+RouteAWSSetup, ChainMiddleware(s.AWSSetupHandler(), s.HTMLMiddleWare(s.WithBrowser, s.RequireLogin)...))

	// SYSTEM
	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())
	s.RegisterRouteHandler("GET "+RouteMetrics, observability.Handler())

	s.RegisterRouteHandler("GET "+RouteStatic, ChainMiddleware(s.serveFileHandler(), s.HTMLMiddleWare(s.CacheMiddleware)...))
}

func (s *Server) serveFileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filePath := r.PathValue("file")
		if filePath == "" {
			http.Error(w, "404 - Page Not Found", http.StatusNotFound)
			return
		}
		err := StreamFile(w, r, filePath)
		if err != nil {
			log.Warn().Err(err).Msgf("[%s] %s", colorMethod(r.Method), filePath)
			http.Error(w, "404 - Page Not Found", http.StatusNotFound)
			return
		}
	}
}
