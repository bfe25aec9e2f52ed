package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	RouteIndex = "/"

	// Auth Routes
	RouteAuthLogin    = "/auth/login"
	RouteAuthCallback = "/auth/callback"
	RouteAuthLogout   = "/auth/logout"

	// Project Routes
	RouteProjects      = "/projects"
	RouteProjectDelete = "/projects/{id}/delete"

	// AWS Routes (HTMX fragments)
	RouteAWSStatus  = "/aws/status"
	RouteAWSConnect = "/aws/connect"
	RouteAWSClose   = "/aws/close"
	RouteAWSSetup   = "/aws/setup"

	// System Routes
	RouteHealth  = "/healthz"
	RouteMetrics = "/metrics"

	// Static Asset Routes (patterns)
	RouteStatic = "/static/{file}"
)

// Error codes passed to the index page in the error query parameter.
const (
	ErrorCodeAuthFailed    = "auth_failed"
	ErrorCodeLoginFailed   = "login_failed"
	ErrorCodeNotConfigured = "not_configured"
)
