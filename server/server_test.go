package server_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/planter-dashboard/auth"
	"github.com/jrsteele09/planter-dashboard/awsintegration"
	"github.com/jrsteele09/planter-dashboard/backend"
	"github.com/jrsteele09/planter-dashboard/backend/backendfake"
	"github.com/jrsteele09/planter-dashboard/internal/config"
	"github.com/jrsteele09/planter-dashboard/projects"
	"github.com/jrsteele09/planter-dashboard/server"
	"github.com/jrsteele09/planter-dashboard/sessions"
	"github.com/jrsteele09/planter-dashboard/users"
)

type testConfig struct {
	config.Config
	githubClientID string
	rateLimit      int
}

func (c testConfig) GetEnv() string { return "TEST" }
func (c testConfig) GetAppName() string { return "Planter" }
func (c testConfig) GetGitHubClientID() string { return c.githubClientID }
func (c testConfig) GetEnableRateLimiting() bool { return c.rateLimit > 0 }
func (c testConfig) GetRateLimitPerMinute() int { return c.rateLimit }
func (c testConfig) GetMaxSessionAge() time.Duration { return time.Hour }
func (c testConfig) GetTrustProxyHeaders() bool { return false }

type harness struct {
	t       *testing.T
	fake    *backendfake.Server
	store   *sessions.Store
	srv     *server.Server
	browser    string
	remoteAddr string
	user       users.User
}

func newHarness(t *testing.T, cfg testConfig) *harness {
	t.Helper()
	fake := backendfake.New()
	t.Cleanup(fake.Close)

	cfg.Config = config.New()
	api := backend.New(fake.URL, time.Second, backend.WithHTTPClient(fake.Client()))
	store := sessions.NewStore(sessions.NewInMemoryKV())

	srv, err := server.New(cfg, server.Services{
		Auth:     auth.NewClient(api, store, cfg.githubClientID),
		Projects: api,
		AWS:      awsintegration.NewService(api),
	})
	require.NoError(t, err)

	return &harness{
		t:       t,
		fake:    fake,
		store:   store,
		srv:     srv,
		browser: uuid.New().String(),
		user:    fake.AddUser(users.User{ID: "u1", GitHubUserID: 42, Name: "octocat"}, "token-1"),
	}
}

func newLoggedInHarness(t *testing.T) *harness {
	t.Helper()
	h := newHarness(t, testConfig{githubClientID: "client-id"})
	require.NoError(t, h.store.Save(context.Background(), h.browser, sessions.Session{AccessToken: "token-1", UserID: h.user.ID}))
	return h
}

func (h *harness) request(method, target string, form url.Values, htmx bool) *httptest.ResponseRecorder {
	h.t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req.AddCookie(&http.Cookie{Name: "planter_browser", Value: h.browser})
	if h.remoteAddr != "" {
		req.RemoteAddr = h.remoteAddr
	}
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	rec := httptest.NewRecorder()
	h.srv.ServeHTTP(rec, req)
	return rec
}

func (h *harness) get(target string) *httptest.ResponseRecorder {
	return h.request(http.MethodGet, target, nil, false)
}

func TestNew_RequiresServices(t *testing.T) {
	_, err := server.New(testConfig{Config: config.New()}, server.Services{})
	require.Error(t, err)
}

func TestIndex_LoggedOutShowsLogin(t *testing.T) {
	h := newHarness(t, testConfig{githubClientID: "client-id"})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Sign in with GitHub")
	assert.Equal(t, "SAMEORIGIN", rec.Header().Get("X-Frame-Options"))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "planter_browser", cookies[0].Name)
	_, err := uuid.Parse(cookies[0].Value)
	assert.NoError(t, err)
	assert.True(t, cookies[0].HttpOnly)
}

func TestIndex_KeepsValidBrowserCookie(t *testing.T) {
	h := newHarness(t, testConfig{githubClientID: "client-id"})

	rec := h.get("/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Result().Cookies())
}

func TestIndex_ShowsLoginError(t *testing.T) {
	h := newHarness(t, testConfig{githubClientID: "client-id"})

	rec := h.get("/?error=auth_failed")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Sign in failed: auth_failed")
}

func TestIndex_LoggedInShowsDashboard(t *testing.T) {
	h := newLoggedInHarness(t)
	h.fake.AddProject(h.user.ID, projects.Project{Name: "storefront", Type: projects.ProjectTypeEcommerce})

	rec := h.get("/")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "octocat")
	assert.Contains(t, body, "storefront")
	assert.Contains(t, body, "Connect AWS")
	assert.NotContains(t, body, "Sign in with GitHub")
}

func TestIndex_ProjectLoadFailureStillRendersDashboard(t *testing.T) {
	h := newLoggedInHarness(t)
	h.fake.Fail(backendfake.OpListProjects, http.StatusInternalServerError)

	rec := h.get("/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Failed to load projects")
	assert.Contains(t, rec.Body.String(), "octocat")
}

func TestLoginFlow(t *testing.T) {
	h := newHarness(t, testConfig{githubClientID: "client-id"})

	rec := h.get("/auth/login")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	location := rec.Header().Get("Location")
	require.True(t, strings.HasPrefix(location, "https://github.com/login/oauth/authorize"), location)

	authURL, err := url.Parse(location)
	require.NoError(t, err)
	state := authURL.Query().Get("state")
	require.NotEmpty(t, state)
	h.fake.IssueCode("code-1", h.user.ID, state)

	rec = h.get("/auth/callback?" + url.Values{"code": {"code-1"}, "state": {state}}.Encode())
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	rec = h.get("/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "octocat")
}

func TestLogin_HTMXUsesHXRedirect(t *testing.T) {
	h := newHarness(t, testConfig{githubClientID: "client-id"})

	rec := h.request(http.MethodGet, "/auth/login", nil, true)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("HX-Redirect"), "https://github.com/"))
}

func TestLogin_NotConfigured(t *testing.T) {
	h := newHarness(t, testConfig{})

	rec := h.get("/auth/login")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/?error=not_configured", rec.Header().Get("Location"))
	assert.Zero(t, h.fake.Calls(backendfake.OpAuthURL))
}

func TestLogin_BackendFailure(t *testing.T) {
	h := newHarness(t, testConfig{githubClientID: "client-id"})
	h.fake.Fail(backendfake.OpAuthURL, http.StatusBadGateway)

	rec := h.get("/auth/login")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/?error=login_failed", rec.Header().Get("Location"))
}

func TestCallback_ProviderError(t *testing.T) {
	h := newHarness(t, testConfig{githubClientID: "client-id"})

	rec := h.get("/auth/callback?error=access_denied&error_description=denied")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/?error=access_denied", rec.Header().Get("Location"))
	assert.Zero(t, h.fake.Calls(backendfake.OpSignIn))
}

func TestCallback_MissingCode(t *testing.T) {
	h := newHarness(t, testConfig{githubClientID: "client-id"})

	rec := h.get("/auth/callback?state=abc")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	assert.Zero(t, h.fake.Calls(backendfake.OpSignIn))
}

func TestCallback_ExchangeFailure(t *testing.T) {
	h := newHarness(t, testConfig{githubClientID: "client-id"})

	rec := h.get("/auth/callback?code=unknown&state=abc")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/?error=auth_failed", rec.Header().Get("Location"))

	rec = h.get("/")
	assert.Contains(t, rec.Body.String(), "Sign in with GitHub")
}

func TestLogout(t *testing.T) {
	h := newLoggedInHarness(t)

	rec := h.request(http.MethodPost, "/auth/logout", url.Values{}, false)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	_, ok := h.store.Load(context.Background(), h.browser)
	assert.False(t, ok)
	assert.Contains(t, h.get("/").Body.String(), "Sign in with GitHub")
}

func TestRequireLogin_RedirectsLoggedOutBrowsers(t *testing.T) {
	h := newHarness(t, testConfig{githubClientID: "client-id"})

	rec := h.get("/projects")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	rec = h.request(http.MethodGet, "/aws/status", nil, true)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("HX-Redirect"))
}

func TestRequireLogin_RevokedTokenLogsOut(t *testing.T) {
	h := newLoggedInHarness(t)
	h.fake.RevokeToken("token-1")

	rec := h.get("/projects")
	require.Equal(t, http.StatusSeeOther, rec.Code)

	_, ok := h.store.Load(context.Background(), h.browser)
	assert.False(t, ok)
}

func TestProjectsList(t *testing.T) {
	h := newLoggedInHarness(t)
	h.fake.AddProject(h.user.ID, projects.Project{Name: "blog", Type: projects.ProjectTypeEcommerce})

	rec := h.request(http.MethodGet, "/projects", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `id="projects"`)
	assert.Contains(t, rec.Body.String(), "blog")
}

func TestCreateProject_HTMX(t *testing.T) {
	h := newLoggedInHarness(t)

	rec := h.request(http.MethodPost, "/projects", url.Values{"name": {"shop"}, "type": {"ECOMMERCE"}}, true)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "shop")
	assert.Contains(t, body, "Project created")

	created := h.fake.Projects(h.user.ID)
	require.Len(t, created, 1)
	assert.Equal(t, "shop", created[0].Name)
}

func TestCreateProject_MissingName(t *testing.T) {
	h := newLoggedInHarness(t)

	rec := h.request(http.MethodPost, "/projects", url.Values{"name": {"  "}, "type": {"ECOMMERCE"}}, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Please provide a project name")
	assert.Zero(t, h.fake.Calls(backendfake.OpCreateProject))
}

func TestCreateProject_PlainFormRedirects(t *testing.T) {
	h := newLoggedInHarness(t)

	rec := h.request(http.MethodPost, "/projects", url.Values{"name": {"shop"}, "type": {"ECOMMERCE"}}, false)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/?notice=Project+created", rec.Header().Get("Location"))
}

func TestCreateProject_BackendFailure(t *testing.T) {
	h := newLoggedInHarness(t)
	h.fake.Fail(backendfake.OpCreateProject, http.StatusInternalServerError)

	rec := h.request(http.MethodPost, "/projects", url.Values{"name": {"shop"}, "type": {"ECOMMERCE"}}, false)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/?error=Failed+to+create+project&name=shop&type=ECOMMERCE", rec.Header().Get("Location"))
}

func TestCreateProject_FailedFormIsEchoed(t *testing.T) {
	h := newLoggedInHarness(t)

	rec := h.get("/?" + url.Values{"error": {"Failed to create project"}, "name": {"shop"}, "type": {"BLOG"}}.Encode())
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `value="shop"`)
	assert.Contains(t, body, `<option value="BLOG" selected>`)
	assert.Contains(t, body, "Failed to create project")
}

func TestDeleteProject_PlainFormAsksForConfirmation(t *testing.T) {
	h := newLoggedInHarness(t)
	p := h.fake.AddProject(h.user.ID, projects.Project{Name: "legacy", Type: projects.ProjectTypeEcommerce})
	target := "/projects/" + p.ID + "/delete"

	rec := h.request(http.MethodPost, target, url.Values{}, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Delete project")
	assert.Contains(t, rec.Body.String(), "legacy")
	assert.Zero(t, h.fake.Calls(backendfake.OpDeleteProject))
	assert.Len(t, h.fake.Projects(h.user.ID), 1)

	rec = h.request(http.MethodPost, target, url.Values{"confirmed": {"true"}}, false)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/?notice=Project+deleted", rec.Header().Get("Location"))
	assert.Empty(t, h.fake.Projects(h.user.ID))
}

func TestDeleteProject_HTMX(t *testing.T) {
	h := newLoggedInHarness(t)
	p := h.fake.AddProject(h.user.ID, projects.Project{Name: "legacy", Type: projects.ProjectTypeEcommerce})

	rec := h.request(http.MethodPost, "/projects/"+p.ID+"/delete", url.Values{"confirmed": {"true"}}, true)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Project deleted")
	assert.NotContains(t, body, "legacy")
	assert.Contains(t, body, "No projects generated yet")
}

func TestDeleteProject_UnknownProject(t *testing.T) {
	h := newLoggedInHarness(t)

	rec := h.request(http.MethodPost, "/projects/missing/delete", url.Values{"confirmed": {"true"}}, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Project not found")
	assert.Zero(t, h.fake.Calls(backendfake.OpDeleteProject))
}

func TestAWSStatus(t *testing.T) {
	h := newLoggedInHarness(t)

	rec := h.request(http.MethodGet, "/aws/status", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Connect AWS")

	h.fake.SetAWSAccount(h.user.ID, "123456789012", true)
	rec = h.request(http.MethodGet, "/aws/status", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "AWS connected")
}

func TestAWSConnect_ShowsAccountForm(t *testing.T) {
	h := newLoggedInHarness(t)

	rec := h.request(http.MethodGet, "/aws/connect", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Connect your AWS account")
	assert.Contains(t, rec.Body.String(), `name="accountId"`)
}

func TestAWSClose(t *testing.T) {
	h := newHarness(t, testConfig{})

	rec := h.request(http.MethodGet, "/aws/close", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestAWSSetup_InvalidAccountID(t *testing.T) {
	h := newLoggedInHarness(t)

	rec := h.request(http.MethodPost, "/aws/setup", url.Values{"accountId": {"12345"}}, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "aws-form-error")
	assert.Contains(t, rec.Body.String(), `value="12345"`)
	assert.Zero(t, h.fake.Calls(backendfake.OpSetupAWS))
}

func TestAWSSetup_ShowsStackLaunch(t *testing.T) {
	h := newLoggedInHarness(t)

	rec := h.request(http.MethodPost, "/aws/setup", url.Values{"accountId": {" 123456789012 "}}, true)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Open AWS CloudFormation Console")
	assert.Contains(t, body, "VitruviuxIntegrationStack")
	assert.Equal(t, 1, h.fake.Calls(backendfake.OpSetupAWS))
}

func TestAWSSetup_BackendFailure(t *testing.T) {
	h := newLoggedInHarness(t)
	h.fake.Fail(backendfake.OpSetupAWS, http.StatusInternalServerError)

	rec := h.request(http.MethodPost, "/aws/setup", url.Values{"accountId": {"123456789012"}}, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Failed to start AWS setup")
}

func TestHealth(t *testing.T) {
	h := newHarness(t, testConfig{})

	rec := h.get("/healthz")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "Planter", body["app"])
}

func TestMetrics(t *testing.T) {
	h := newLoggedInHarness(t)
	require.Equal(t, http.StatusOK, h.get("/").Code)

	rec := h.get("/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "backend_requests_total")
}

func TestStaticFiles(t *testing.T) {
	h := newHarness(t, testConfig{})

	rec := h.get("/static/style.css")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/css; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("Cache-Control"))

	rec = h.get("/static/missing.js")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStaticFiles_RevalidatesWithETag(t *testing.T) {
	h := newHarness(t, testConfig{})

	first := h.get("/static/style.css")
	require.Equal(t, http.StatusOK, first.Code)
	etag := first.Header().Get("ETag")
	require.NotEmpty(t, etag)
	assert.Equal(t, etag, h.get("/static/style.css").Header().Get("ETag"), "etag is stable")

	req := httptest.NewRequest(http.MethodGet, "/static/style.css", nil)
	req.Header.Set("If-None-Match", etag)
	rec := httptest.NewRecorder()
	h.srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotModified, rec.Code)
	assert.Empty(t, rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/static/style.css", nil)
	req.Header.Set("If-None-Match", `"stale"`)
	rec = httptest.NewRecorder()
	h.srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, first.Body.String(), rec.Body.String())
}

func TestRateLimit(t *testing.T) {
	h := newHarness(t, testConfig{rateLimit: 1})

	// burst is at least 10
	for i := 0; i < 10; i++ {
		require.Equal(t, http.StatusOK, h.get("/static/style.css").Code, "request %d", i)
	}
	rec := h.get("/static/style.css")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	h.remoteAddr = "198.51.100.20:4321"
	assert.Equal(t, http.StatusOK, h.get("/static/style.css").Code)
}

func TestRateLimit_RotatingCookiesShareTheAddressBucket(t *testing.T) {
	h := newHarness(t, testConfig{rateLimit: 1})

	limited := 0
	for i := 0; i < 50; i++ {
		h.browser = uuid.New().String()
		if h.get("/static/style.css").Code == http.StatusTooManyRequests {
			limited++
		}
	}
	assert.Equal(t, 40, limited)
}

func TestRateLimit_IgnoresUntrustedForwardedFor(t *testing.T) {
	h := newHarness(t, testConfig{rateLimit: 1})

	limited := 0
	for i := 0; i < 20; i++ {
		req := httptest.NewRequest(http.MethodGet, "/static/style.css", nil)
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i))
		rec := httptest.NewRecorder()
		h.srv.ServeHTTP(rec, req)
		if rec.Code == http.StatusTooManyRequests {
			limited++
		}
	}
	assert.Equal(t, 10, limited)
}

func TestFailedValidationDropsDirectory(t *testing.T) {
	h := newLoggedInHarness(t)
	require.Equal(t, http.StatusOK, h.get("/").Code)
	require.Equal(t, 1, h.srv.DirectoryCount())

	h.fake.RevokeToken("token-1")
	rec := h.request(http.MethodGet, "/projects", nil, true)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Zero(t, h.srv.DirectoryCount())
}

func TestLoggedOutIndexDropsDirectory(t *testing.T) {
	h := newLoggedInHarness(t)
	require.Equal(t, http.StatusOK, h.get("/").Code)
	require.Equal(t, 1, h.srv.DirectoryCount())

	h.fake.Fail(backendfake.OpGetUser, http.StatusUnauthorized)
	assert.Contains(t, h.get("/").Body.String(), "Sign in with GitHub")
	assert.Zero(t, h.srv.DirectoryCount())
}

func TestSweepIdleClients(t *testing.T) {
	h := newLoggedInHarness(t)
	require.Equal(t, http.StatusOK, h.get("/").Code)

	h.srv.SweepIdleClients(time.Hour)
	assert.Equal(t, 1, h.srv.DirectoryCount())

	time.Sleep(5 * time.Millisecond)
	h.srv.SweepIdleClients(time.Millisecond)
	assert.Zero(t, h.srv.DirectoryCount())

	// the next request rebuilds it
	require.Equal(t, http.StatusOK, h.get("/").Code)
	assert.Equal(t, 1, h.srv.DirectoryCount())
}
