package model

type Workspace struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Project struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Archived  bool       `json:"archived"`
	Workspace *Workspace `json:"workspace,omitempty"`

	// CustomFieldSettings is only populated by GET /projects/{id}.
	CustomFieldSettings []CustomFieldSetting `json:"custom_field_settings,omitempty"`
}

// WorkspaceID returns the id of the project's workspace, or 0 when the API omitted it.
func (p Project) WorkspaceID() int64 {
	if p.Workspace == nil {
		return 0
	}
	return p.Workspace.ID
}

type UserPhoto struct {
	Image60 string `json:"image_60x60,omitempty"`
}

type User struct {
	ID         int64       `json:"id"`
	Name       string      `json:"name"`
	Email      string      `json:"email,omitempty"`
	Photo      *UserPhoto  `json:"photo,omitempty"`
	Workspaces []Workspace `json:"workspaces,omitempty"`
}

type Task struct {
	ID       int64     `json:"id"`
	Name     string    `json:"name"`
	Notes    string    `json:"notes,omitempty"`
	Projects []Project `json:"projects,omitempty"`
}

type Attachment struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	ViewURL string `json:"view_url,omitempty"`
	Host    string `json:"host,omitempty"`
}

// Event is a usage event posted to /logs.
type Event struct {
	Name string `json:"name"`
}

// TabContext is what was captured from the active browser tab when the popup opened.
type TabContext struct {
	URL               string `json:"url"`
	Title             string `json:"title"`
	SelectedText      string `json:"selected_text,omitempty"`
	FaviconURL        string `json:"favicon_url,omitempty"`
	ScreenshotDataURI string `json:"-"`
}

func (t TabContext) HasScreenshot() bool {
	return t.ScreenshotDataURI != ""
}
