// Package popup drives one bug-report session: it reads the tab, checks login, loads projects
// and custom fields, and files the task.
package popup

import (
	"context"
	"errors"
	"sync"

	"bugshot-cli/internal/asana"
	"bugshot-cli/internal/bridge"
	"bugshot-cli/internal/logging"
	"bugshot-cli/internal/model"
	"bugshot-cli/internal/tab"

	"github.com/rs/zerolog"
)

type View int

const (
	ViewLoading View = iota
	ViewLogin
	ViewAdd
	ViewSubmitting
	ViewSuccess
)

func (v View) String() string {
	switch v {
	case ViewLoading:
		return "loading"
	case ViewLogin:
		return "login"
	case ViewAdd:
		return "add"
	case ViewSubmitting:
		return "submitting"
	case ViewSuccess:
		return "success"
	default:
		return "unknown"
	}
}

var (
	ErrSubmitInFlight = errors.New("a task is already being submitted")
	ErrNotReady       = errors.New("popup is not ready to add tasks")
	ErrNoTask         = errors.New("no task has been created yet")
)

// ValidationError blocks a submission before any request is made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// API is the subset of *asana.Client the controller uses.
type API interface {
	asana.EventSink
	Me(ctx context.Context) (model.User, error)
	Workspaces(ctx context.Context) ([]model.Workspace, error)
	Projects(ctx context.Context) ([]model.Project, error)
	CustomFields(ctx context.Context, projectID int64) ([]model.CustomFieldDescriptor, error)
	CreateTask(ctx context.Context, workspaceID int64, task model.NewTask) (model.Task, error)
	UploadAttachment(ctx context.Context, taskID int64, filename, mimeType string, data []byte) (model.Attachment, error)
	AttachURI(ctx context.Context, taskID int64, uri, name string) (model.Attachment, error)
}

type OptionStore interface {
	LoadOptions() (model.Options, error)
	SaveOptions(model.Options) error
}

type SessionStore interface {
	Load(ctx context.Context, key string) (model.SessionOptions, bool, error)
	Save(ctx context.Context, key string, so model.SessionOptions) error
}

// Opener opens url in a new browser tab.
type Opener func(url string) error

// Deps are the collaborators of a Controller. Tabs, Options and NewAPI are required.
type Deps struct {
	Tabs     tab.Reader
	Options  OptionStore
	Sessions SessionStore
	NewAPI   func(opts model.Options, auth asana.Auth) API
	Open     Opener
	// Hub delivers the page selection; nil disables the listener.
	Hub *bridge.Hub

	// Token is an access token; when set the login cookie is not consulted.
	Token string
	// QuickAdd replaces the tab read with context supplied by the caller.
	QuickAdd *model.TabContext

	// EventsPerSecond and EventBurst bound usage events. Zero uses 2/s with burst 10.
	EventsPerSecond float64
	EventBurst      int
}

// Controller is created once per popup. All methods are safe for concurrent use.
type Controller struct {
	deps Deps
	log  zerolog.Logger

	bg      context.Context
	cancel  context.CancelFunc
	uploads sync.WaitGroup

	mu sync.Mutex

	view     View
	errMsg   string
	opts     model.Options
	tab      model.TabContext
	quickAdd bool

	api        API
	events     *asana.EventLogger
	sessionKey string
	me         model.User
	workspaces []model.Workspace

	projects          *projectsFuture
	selectedProjectID int64

	fields    []model.CustomFieldDescriptor
	form      Form
	formBuilt bool

	draft      model.TaskDraft
	focusTitle bool
	submitting bool
	lastTask   *model.Task
	lastURL    string

	selection       string
	removeSelection func()

	hasEditedName   bool
	hasEditedNotes  bool
	hasReassigned   bool
	usedPageDetails bool
	isFirstAdd      bool
	closed          bool
}

func New(deps Deps) *Controller {
	if deps.EventsPerSecond <= 0 {
		deps.EventsPerSecond = 2
	}
	if deps.EventBurst <= 0 {
		deps.EventBurst = 10
	}
	bg, cancel := context.WithCancel(context.Background())
	return &Controller{
		deps:       deps,
		log:        logging.For("popup"),
		bg:         bg,
		cancel:     cancel,
		view:       ViewLoading,
		isFirstAdd: true,
	}
}

// State is a snapshot of everything a view needs to render.
type State struct {
	View       View
	Error      string
	Tab        model.TabContext
	Selection  string
	Options    model.Options
	LoginURL   string
	SignupURL  string
	User       model.User
	Form       Form
	Draft      model.TaskDraft
	FocusTitle bool

	ProjectsReady     bool
	Projects          ProjectSelector
	SelectedProjectID int64

	Task    *model.Task
	TaskURL string

	// PageDetails reports whether "use page details" is available for Draft.
	PageDetails bool
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := State{
		View:              c.view,
		Error:             c.errMsg,
		Tab:               c.tab,
		Selection:         c.selection,
		Options:           c.opts,
		LoginURL:          c.opts.LoginURL(),
		SignupURL:         c.opts.SignupURL(),
		User:              c.me,
		Form:              c.form,
		Draft:             c.draft.Clone(),
		FocusTitle:        c.focusTitle,
		SelectedProjectID: c.selectedProjectID,
		TaskURL:           c.lastURL,
		PageDetails:       pageDetailsAvailable(c.draft),
	}
	if c.lastTask != nil {
		t := *c.lastTask
		st.Task = &t
	}
	if c.projects != nil {
		if ps, ok := c.projects.Peek(); ok {
			st.ProjectsReady = true
			st.Projects = NewProjectSelector(ps)
		}
	}
	return st
}

func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

// reportError is the shared failure path for lookups: log, keep the message for inline display.
func (c *Controller) reportError(op string, err error) {
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	c.log.Error().Err(err).Str("op", op).Msg("request failed")
	msg := asana.UserMessage(err)
	c.mu.Lock()
	c.errMsg = msg
	c.mu.Unlock()
}

func (c *Controller) logEvent(name string) {
	c.mu.Lock()
	ev := c.events
	c.mu.Unlock()
	ev.Log(name)
}
