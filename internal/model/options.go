package model

import (
	"fmt"
	"strings"
)

const (
	DefaultAsanaHostPort = "app.asana.com"
	DefaultTitlePrefix   = "[Bug]"
	DefaultCDPEndpoint   = "http://127.0.0.1:9222"
	DefaultProjectFilter = "*"

	// LoginCookieName is the cookie the web app sets for a logged-in browser.
	LoginCookieName = "ticket"
)

// Options is the persisted preference set.
type Options struct {
	DefaultWorkspaceID int64  `json:"default_workspace_id,omitempty"`
	DefaultProjectID   int64  `json:"default_project_id,omitempty"`
	TrackingProjectID  int64  `json:"tracking_project_id,omitempty"`
	AsanaHostPort      string `json:"asana_host_port,omitempty"`
	TitlePrefix        string `json:"title_prefix,omitempty"`
	ProjectFilter      string `json:"project_filter,omitempty"`
	CDPEndpoint        string `json:"cdp_endpoint,omitempty"`
	AttachPageLink     bool   `json:"attach_page_link,omitempty"`

	// EstimatesEnabled is a pointer so an absent key means "on".
	EstimatesEnabled *bool `json:"estimates_enabled,omitempty"`

	LoginURLOverride  string `json:"login_url,omitempty"`
	SignupURLOverride string `json:"signup_url,omitempty"`
}

// DefaultOptions returns the options used when nothing has been saved yet.
func DefaultOptions() Options {
	on := true
	return Options{
		AsanaHostPort:    DefaultAsanaHostPort,
		TitlePrefix:      DefaultTitlePrefix,
		ProjectFilter:    DefaultProjectFilter,
		CDPEndpoint:      DefaultCDPEndpoint,
		EstimatesEnabled: &on,
	}
}

// WithDefaults fills unset fields from DefaultOptions.
func (o Options) WithDefaults() Options {
	d := DefaultOptions()
	if strings.TrimSpace(o.AsanaHostPort) == "" {
		o.AsanaHostPort = d.AsanaHostPort
	}
	if o.TitlePrefix == "" {
		o.TitlePrefix = d.TitlePrefix
	}
	if strings.TrimSpace(o.ProjectFilter) == "" {
		o.ProjectFilter = d.ProjectFilter
	}
	if strings.TrimSpace(o.CDPEndpoint) == "" {
		o.CDPEndpoint = d.CDPEndpoint
	}
	if o.EstimatesEnabled == nil {
		o.EstimatesEnabled = d.EstimatesEnabled
	}
	return o
}

func (o Options) Estimates() bool {
	return o.EstimatesEnabled == nil || *o.EstimatesEnabled
}

func (o Options) host() string {
	h := strings.TrimSpace(o.AsanaHostPort)
	if h == "" {
		return DefaultAsanaHostPort
	}
	return h
}

func (o Options) BaseURL() string {
	return "https://" + o.host()
}

func (o Options) APIBaseURL() string {
	return o.BaseURL() + "/api/1.0"
}

func (o Options) LoginURL() string {
	if o.LoginURLOverride != "" {
		return o.LoginURLOverride
	}
	return o.BaseURL() + "/"
}

func (o Options) SignupURL() string {
	if o.SignupURLOverride != "" {
		return o.SignupURLOverride
	}
	return "https://asana.com/?utm_source=bugshot"
}

// TaskViewURL links to a task. There is no way to know which project to view it in,
// so the task id doubles as the container id and the web app picks a default.
func (o Options) TaskViewURL(task Task) string {
	return fmt.Sprintf("%s/0/%d/%d", o.BaseURL(), task.ID, task.ID)
}

// SessionOptions is the per-login-session cache.
type SessionOptions struct {
	ClientProjects []Project `json:"client_projects"`
}
