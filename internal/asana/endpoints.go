package asana

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"

	"bugshot-cli/internal/model"
)

func (c *Client) Workspaces(ctx context.Context) ([]model.Workspace, error) {
	var out []model.Workspace
	if err := c.do(ctx, http.MethodGet, "/workspaces", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Projects lists the non-archived projects visible to the user.
func (c *Client) Projects(ctx context.Context) ([]model.Project, error) {
	q := url.Values{}
	q.Set("archived", "false")
	q.Set("opt_fields", "name,archived,workspace.name")
	var out []model.Project
	if err := c.do(ctx, http.MethodGet, "/projects", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Project fetches one project including its custom field settings.
func (c *Client) Project(ctx context.Context, projectID int64) (model.Project, error) {
	var out model.Project
	err := c.do(ctx, http.MethodGet, "/projects/"+strconv.FormatInt(projectID, 10), nil, nil, &out)
	return out, err
}

// CustomFields returns the descriptors attached to a project, in the order the server lists them.
func (c *Client) CustomFields(ctx context.Context, projectID int64) ([]model.CustomFieldDescriptor, error) {
	p, err := c.Project(ctx, projectID)
	if err != nil {
		return nil, err
	}
	out := make([]model.CustomFieldDescriptor, 0, len(p.CustomFieldSettings))
	for _, s := range p.CustomFieldSettings {
		out = append(out, s.CustomField)
	}
	return out, nil
}

func (c *Client) Users(ctx context.Context, workspaceID int64) ([]model.User, error) {
	q := url.Values{}
	q.Set("opt_fields", "name,photo.image_60x60")
	var out []model.User
	path := "/workspaces/" + strconv.FormatInt(workspaceID, 10) + "/users"
	if err := c.do(ctx, http.MethodGet, path, q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Me(ctx context.Context) (model.User, error) {
	var out model.User
	err := c.do(ctx, http.MethodGet, "/users/me", nil, nil, &out)
	return out, err
}

func (c *Client) CreateTask(ctx context.Context, workspaceID int64, task model.NewTask) (model.Task, error) {
	var out model.Task
	path := "/workspaces/" + strconv.FormatInt(workspaceID, 10) + "/tasks"
	err := c.do(ctx, http.MethodPost, path, nil, task, &out)
	return out, err
}

// UploadAttachment posts data as a multipart "file" part.
func (c *Client) UploadAttachment(ctx context.Context, taskID int64, filename, mimeType string, data []byte) (model.Attachment, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	if mimeType != "" {
		h.Set("Content-Type", mimeType)
	}
	part, err := mw.CreatePart(h)
	if err != nil {
		return model.Attachment{}, fmt.Errorf("create multipart part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return model.Attachment{}, fmt.Errorf("write multipart part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return model.Attachment{}, fmt.Errorf("close multipart body: %w", err)
	}

	path := "/tasks/" + strconv.FormatInt(taskID, 10) + "/attachments"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(path, nil), &buf)
	if err != nil {
		return model.Attachment{}, fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out model.Attachment
	err = c.send(req, &out)
	return out, err
}

// AttachURI attaches an external resource to a task by URI.
func (c *Client) AttachURI(ctx context.Context, taskID int64, uri, name string) (model.Attachment, error) {
	body := map[string]any{
		"uri":              uri,
		"url":              uri,
		"name":             name,
		"resource_subtype": "external",
	}
	var out model.Attachment
	path := "/tasks/" + strconv.FormatInt(taskID, 10) + "/attachments"
	err := c.do(ctx, http.MethodPost, path, nil, body, &out)
	return out, err
}

// LogEvent posts a usage event. The response body is ignored.
func (c *Client) LogEvent(ctx context.Context, ev model.Event) error {
	return c.do(ctx, http.MethodPost, "/logs", nil, ev, nil)
}
