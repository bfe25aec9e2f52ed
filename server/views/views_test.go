package views_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/planter-dashboard/awsintegration"
	"github.com/jrsteele09/planter-dashboard/internal/utils"
	"github.com/jrsteele09/planter-dashboard/projects"
	"github.com/jrsteele09/planter-dashboard/server/views"
	"github.com/jrsteele09/planter-dashboard/users"
)

func render(t *testing.T, fn func(*bytes.Buffer) error) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, fn(&buf))
	return buf.String()
}

func TestFormatDate(t *testing.T) {
	ms := time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC).UnixMilli()
	require.Equal(t, "Mar 5, 2024 14:30 UTC", views.FormatDate(ms))
	require.Empty(t, views.FormatDate(0))
}

func TestLogin(t *testing.T) {
	out := render(t, func(b *bytes.Buffer) error {
		return views.Login(b, views.LoginState{AppName: "Planter", Error: "<script>x</script>"})
	})
	require.Contains(t, out, `href="/auth/login"`)
	require.Contains(t, out, "&lt;script&gt;")
	require.NotContains(t, out, "<script>x</script>")
}

func TestApp(t *testing.T) {
	state := views.AppState{
		AppName: "Planter",
		Version: "1.2.3",
		User:    users.User{Name: "Octo Cat", AvatarURL: "https://avatars.example/1.png"},
		Projects: []projects.Project{
			{ID: "p1", Name: "Shop", Type: projects.ProjectTypeEcommerce, GitHubRepositoryID: 99, User: users.User{GitHubUserID: 42}},
		},
		AWS:   awsintegration.Integration{Status: awsintegration.StatusNotConfigured},
		Error: "Failed to create project",
	}

	out := render(t, func(b *bytes.Buffer) error { return views.App(b, state) })
	require.Contains(t, out, "Octo Cat")
	require.Contains(t, out, "v1.2.3")
	require.Contains(t, out, "Failed to create project")
	require.Contains(t, out, "Shop")
	require.Contains(t, out, "Repository ID: 99")
	require.Contains(t, out, "User #42")
	require.Contains(t, out, `action="/projects/p1/delete"`)
	require.Contains(t, out, "aws-indicator-not_configured")
	require.Contains(t, out, `hx-get="/aws/status"`)
	for _, pt := range projects.CreatableTypes {
		require.Contains(t, out, `value="`+string(pt)+`"`)
	}
	require.NotContains(t, out, "DASHBOARD")
}

func TestProjectsList(t *testing.T) {
	empty := render(t, func(b *bytes.Buffer) error { return views.ProjectsList(b, views.ProjectsState{}) })
	require.Contains(t, empty, "No projects generated yet")

	out := render(t, func(b *bytes.Buffer) error {
		return views.ProjectsList(b, views.ProjectsState{
			Projects: []projects.Project{
				{ID: "a", Name: "First", Infra: map[string]bool{"bucket": true, "database": false}},
				{ID: "b", Name: "Second", Type: projects.ProjectTypeUnknown},
			},
			Notice: "Project created",
		})
	})
	require.Less(t, strings.Index(out, "First"), strings.Index(out, "Second"))
	require.Contains(t, out, `class="infra-ready">bucket`)
	require.Contains(t, out, `class="infra-pending">database`)
	require.Contains(t, out, "Unknown")
	require.Contains(t, out, "Project created")
	require.Contains(t, out, "Are you sure you want to delete")
}

func TestAWSIndicator(t *testing.T) {
	for _, status := range []awsintegration.Status{
		awsintegration.StatusLoading,
		awsintegration.StatusNotConfigured,
		awsintegration.StatusConnected,
		awsintegration.StatusNeedsAttention,
	} {
		t.Run(string(status), func(t *testing.T) {
			in := awsintegration.Integration{Status: status}
			out := render(t, func(b *bytes.Buffer) error { return views.AWSIndicator(b, in) })
			require.Contains(t, out, "aws-indicator-"+string(status))
			require.Contains(t, out, in.Label())
			require.Equal(t, status == awsintegration.StatusLoading, strings.Contains(out, "disabled"))
		})
	}
}

func TestAWSModal(t *testing.T) {
	connected := render(t, func(b *bytes.Buffer) error {
		return views.AWSModal(b, views.AWSModalState{Integration: awsintegration.FromUser(true, &users.User{
			AWSAccountID: utils.Ptr("123456789012"), AWSAccountEnabled: true,
		}, nil)})
	})
	require.Contains(t, connected, "123456789012")
	require.Contains(t, connected, "S3 buckets")

	form := render(t, func(b *bytes.Buffer) error {
		return views.AWSModal(b, views.AWSModalState{
			Integration: awsintegration.Integration{Status: awsintegration.StatusNotConfigured},
			AccountID:   "123",
			Error:       "accountId must be a 12-digit AWS account ID",
		})
	})
	require.Contains(t, form, `name="accountId"`)
	require.Contains(t, form, `value="123"`)
	require.Contains(t, form, "12-digit AWS account ID")

	launch, err := awsintegration.ParseCloudFormationURL("https://console.aws.amazon.com/cloudformation/home#/stacks/quickcreate?stackName=S&param_GitHubOwner=octo")
	require.NoError(t, err)
	steps := render(t, func(b *bytes.Buffer) error {
		return views.AWSModal(b, views.AWSModalState{Launch: launch})
	})
	require.Contains(t, steps, "Open AWS CloudFormation Console")
	require.Contains(t, steps, "GitHubOwner")
	require.Contains(t, steps, "aws cloudformation create-stack")
}

func TestConfirmDelete(t *testing.T) {
	p := projects.Project{ID: "p1", Name: "Shop"}
	out := render(t, func(b *bytes.Buffer) error {
		return views.ConfirmDelete(b, views.ConfirmDeleteState{AppName: "Planter", Project: p, Message: projects.DeleteMessage(p)})
	})
	require.Contains(t, out, `name="confirmed" value="true"`)
	require.Contains(t, out, "Are you sure you want to delete &#34;Shop&#34;?")
}
