// Package backend is a typed client for the Planter REST API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	apperrors "github.com/jrsteele09/planter-dashboard/internal/errors"
	"github.com/jrsteele09/planter-dashboard/internal/observability"
	"github.com/jrsteele09/planter-dashboard/projects"
	"github.com/jrsteele09/planter-dashboard/users"
)

const (
	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 1 << 20
	maxErrorBody   = 512
)

// Client issues requests against the backend. It holds no per-user state;
// callers pass the bearer token on every authenticated call.
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	log        zerolog.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client, e.g. with an httptest server's client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// New creates a client for the backend at baseURL. A zero timeout uses the default of 10s.
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		timeout:    timeout,
		httpClient: &http.Client{},
		log:        log.With().Str("component", "backend_client").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AuthURL returns the GitHub authorization URL the browser should be sent to.
func (c *Client) AuthURL(ctx context.Context) (string, error) {
	var resp AuthURLResponse
	if err := c.do(ctx, "auth_url", http.MethodGet, "/auth/github/url", "", nil, &resp); err != nil {
		return "", err
	}
	if resp.AuthURL == "" {
		return "", fmt.Errorf("auth_url: %w: empty auth_url", apperrors.ErrMalformedResponse)
	}
	return resp.AuthURL, nil
}

// SignIn exchanges an OAuth code for backend credentials.
func (c *Client) SignIn(ctx context.Context, code, state string) (*SignInResponse, error) {
	var resp SignInResponse
	if err := c.do(ctx, "sign_in", http.MethodPost, "/auth/github/signin", "", SignInRequest{Code: code, State: state}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) GetUser(ctx context.Context, accessToken, userID string) (*users.User, error) {
	var user users.User
	if err := c.do(ctx, "get_user", http.MethodGet, "/users/"+url.PathEscape(userID), accessToken, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) ListUsers(ctx context.Context, accessToken string) ([]users.User, error) {
	var list []users.User
	if err := c.do(ctx, "list_users", http.MethodGet, "/users", accessToken, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *Client) ListProjects(ctx context.Context, accessToken, userID string) ([]projects.Project, error) {
	var list []projects.Project
	if err := c.do(ctx, "list_projects", http.MethodGet, userPath(userID, "projects"), accessToken, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *Client) CreateProject(ctx context.Context, accessToken, userID string, req projects.CreateProjectRequest) (*projects.Project, error) {
	var p projects.Project
	if err := c.do(ctx, "create_project", http.MethodPost, userPath(userID, "projects"), accessToken, req, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) DeleteProject(ctx context.Context, accessToken, userID, projectID string, githubUserID int64) error {
	path := userPath(userID, "projects", projectID)
	return c.do(ctx, "delete_project", http.MethodDelete, path, accessToken, DeleteProjectRequest{GitHubUserID: githubUserID}, nil)
}

// SetupAWS asks the backend for the CloudFormation console link that links accountID.
func (c *Client) SetupAWS(ctx context.Context, accessToken, userID, accountID string) (string, error) {
	var resp SetupAWSResponse
	if err := c.do(ctx, "setup_aws", http.MethodPost, userPath(userID, "aws", "setup"), accessToken, SetupAWSRequest{AccountID: accountID}, &resp); err != nil {
		return "", err
	}
	if resp.URL == "" {
		return "", fmt.Errorf("setup_aws: %w: empty url", apperrors.ErrMalformedResponse)
	}
	return resp.URL, nil
}

func userPath(userID string, segments ...string) string {
	parts := []string{"/users", url.PathEscape(userID)}
	for _, s := range segments {
		parts = append(parts, url.PathEscape(s))
	}
	return strings.Join(parts, "/")
}

// httpClientFor returns a client that attaches accessToken as a bearer token.
func (c *Client) httpClientFor(ctx context.Context, accessToken string) *http.Client {
	if accessToken == "" {
		return c.httpClient
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}))
}

// do performs one JSON request. in is encoded as the body when non-nil; out is decoded from
// the response when non-nil.
func (c *Client) do(ctx context.Context, op, method, path, accessToken string, in, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encoding request: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: creating request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	started := time.Now()
	resp, err := c.httpClientFor(ctx, accessToken).Do(req)
	if err != nil {
		observability.ObserveBackendCall(op, 0, started)
		c.log.Warn().Err(err).Str("operation", op).Msg("Backend request failed")
		return fmt.Errorf("%s: %w: %v", op, apperrors.ErrNetworkFailure, err)
	}
	defer func() { _ = resp.Body.Close() }()
	observability.ObserveBackendCall(op, resp.StatusCode, started)

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%s: %w: reading response: %v", op, apperrors.ErrNetworkFailure, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Debug().Str("operation", op).Int("status_code", resp.StatusCode).Msg("Backend returned an error status")
		return &StatusError{Op: op, StatusCode: resp.StatusCode, Body: truncate(strings.TrimSpace(string(data)), maxErrorBody)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: %w: %v", op, apperrors.ErrMalformedResponse, err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
