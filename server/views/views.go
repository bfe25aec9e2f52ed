// Package views renders the dashboard's pages and HTMX fragments. Every function takes
// the complete state it renders and has no other inputs.
package views

import (
	"embed"
	"html/template"
	"io"
	"io/fs"
	"time"

	"github.com/jrsteele09/planter-dashboard/awsintegration"
	"github.com/jrsteele09/planter-dashboard/projects"
	"github.com/jrsteele09/planter-dashboard/users"
)

//go:embed templates/*
var templateFiles embed.FS

var templates = template.Must(
	template.New("views").Funcs(funcs).ParseFS(templateFS(), "*.html"),
)

var funcs = template.FuncMap{
	"formatDate":    FormatDate,
	"typeLabel":     func(t projects.ProjectType) string { return t.Label() },
	"deleteMessage": projects.DeleteMessage,
	"creatableTypes": func() []projects.ProjectType {
		return projects.CreatableTypes
	},
	"projectsState": func(list []projects.Project, errMsg, notice string) ProjectsState {
		return ProjectsState{Projects: list, Error: errMsg, Notice: notice}
	},
}

func templateFS() fs.FS {
	subFS, err := fs.Sub(templateFiles, "templates")
	if err != nil {
		panic("Failed to create templates sub filesystem: " + err.Error())
	}
	return subFS
}

// FormatDate renders a unix-millisecond timestamp. Zero renders as an empty string.
func FormatDate(ms int64) string {
	if ms == 0 {
		return ""
	}
	return time.UnixMilli(ms).UTC().Format("Jan 2, 2006 15:04 UTC")
}

// LoginState is the signed-out landing page.
type LoginState struct {
	AppName string
	Version string
	Error   string // from the ?error= query parameter
}

// AppState is everything the signed-in shell shows.
type AppState struct {
	AppName       string
	Version       string
	User          users.User
	Projects      []projects.Project
	ProjectsError string
	AWS           awsintegration.Integration
	Error         string
	Notice        string
	FormName      string // echoed back after a failed create
	FormType      projects.ProjectType
}

// ProjectsState is the project list fragment.
type ProjectsState struct {
	Projects []projects.Project
	Error    string
	Notice   string
}

// AWSModalState drives the AWS modal. With a Launch it shows the CloudFormation steps,
// otherwise the connected summary or the account id form.
type AWSModalState struct {
	Integration awsintegration.Integration
	AccountID   string
	Launch      *awsintegration.StackLaunch
	Error       string
}

type ConfirmDeleteState struct {
	AppName string
	Project projects.Project
	Message string
}

func Login(w io.Writer, state LoginState) error {
	return templates.ExecuteTemplate(w, "login", state)
}

func App(w io.Writer, state AppState) error {
	return templates.ExecuteTemplate(w, "app", state)
}

func ProjectsList(w io.Writer, state ProjectsState) error {
	return templates.ExecuteTemplate(w, "projects", state)
}

func AWSIndicator(w io.Writer, in awsintegration.Integration) error {
	return templates.ExecuteTemplate(w, "aws_indicator", in)
}

func AWSModal(w io.Writer, state AWSModalState) error {
	return templates.ExecuteTemplate(w, "aws_modal", state)
}

func ConfirmDelete(w io.Writer, state ConfirmDeleteState) error {
	return templates.ExecuteTemplate(w, "confirm_delete", state)
}
