package popup

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"testing"
	"time"

	"bugshot-cli/internal/asana"
	"bugshot-cli/internal/bridge"
	"bugshot-cli/internal/model"
	"bugshot-cli/internal/tab"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	r.calls = append(r.calls, s)
	r.mu.Unlock()
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

type fakeAPI struct {
	rec *recorder

	mu          sync.Mutex
	me          model.User
	meErr       error
	workspaces  []model.Workspace
	projects    []model.Project
	fields      []model.CustomFieldDescriptor
	createErr   error
	createGate  chan struct{}
	createEnter chan struct{}
	created     []model.NewTask
	createdIn   []int64
	uploads     []string
	uris        []string
	events      []string
	projectHits int
}

func (f *fakeAPI) LogEvent(ctx context.Context, ev model.Event) error {
	f.mu.Lock()
	f.events = append(f.events, ev.Name)
	f.mu.Unlock()
	return nil
}

func (f *fakeAPI) Me(ctx context.Context) (model.User, error) {
	f.rec.add("me")
	return f.me, f.meErr
}

func (f *fakeAPI) Workspaces(ctx context.Context) ([]model.Workspace, error) {
	return f.workspaces, nil
}

func (f *fakeAPI) Projects(ctx context.Context) ([]model.Project, error) {
	f.mu.Lock()
	f.projectHits++
	f.mu.Unlock()
	return f.projects, nil
}

func (f *fakeAPI) CustomFields(ctx context.Context, projectID int64) ([]model.CustomFieldDescriptor, error) {
	return f.fields, nil
}

func (f *fakeAPI) CreateTask(ctx context.Context, workspaceID int64, task model.NewTask) (model.Task, error) {
	if f.createEnter != nil {
		f.createEnter <- struct{}{}
	}
	if f.createGate != nil {
		<-f.createGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, task)
	f.createdIn = append(f.createdIn, workspaceID)
	if f.createErr != nil {
		return model.Task{}, f.createErr
	}
	return model.Task{ID: 900 + int64(len(f.created)), Name: task.Name}, nil
}

func (f *fakeAPI) UploadAttachment(ctx context.Context, taskID int64, filename, mimeType string, data []byte) (model.Attachment, error) {
	f.mu.Lock()
	f.uploads = append(f.uploads, filename+"|"+mimeType+"|"+string(data))
	f.mu.Unlock()
	return model.Attachment{ID: 1, Name: filename}, nil
}

func (f *fakeAPI) AttachURI(ctx context.Context, taskID int64, uri, name string) (model.Attachment, error) {
	f.mu.Lock()
	f.uris = append(f.uris, uri)
	f.mu.Unlock()
	return model.Attachment{ID: 2, Name: name}, nil
}

func (f *fakeAPI) eventNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.events...)
}

type fakeOptions struct {
	rec   *recorder
	mu    sync.Mutex
	opts  model.Options
	saves []model.Options
}

func (o *fakeOptions) LoadOptions() (model.Options, error) {
	o.rec.add("options")
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.opts, nil
}

func (o *fakeOptions) SaveOptions(opts model.Options) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.opts = opts
	o.saves = append(o.saves, opts)
	return nil
}

type fakeSessions struct {
	mu sync.Mutex
	m  map[string]model.SessionOptions
}

func (s *fakeSessions) Load(ctx context.Context, key string) (model.SessionOptions, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	so, ok := s.m[key]
	return so, ok, nil
}

func (s *fakeSessions) Save(ctx context.Context, key string, so model.SessionOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = so
	return nil
}

type recordingTabs struct {
	tab.Static
	rec *recorder
}

func (r recordingTabs) Active(ctx context.Context) (model.TabContext, error) {
	r.rec.add("tab")
	return r.Static.Active(ctx)
}

func (r recordingTabs) Cookie(ctx context.Context, url, name string) (string, error) {
	r.rec.add("cookie:" + name)
	return r.Static.Cookie(ctx, url, name)
}

type harness struct {
	rec      *recorder
	api      *fakeAPI
	options  *fakeOptions
	sessions *fakeSessions
	opened   []string
	auth     asana.Auth
	deps     Deps
}

var screenshotURI = "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString([]byte("jpegbytes"))

func newHarness(t *testing.T, loggedIn bool) *harness {
	t.Helper()
	rec := &recorder{}
	h := &harness{
		rec: rec,
		api: &fakeAPI{
			rec:        rec,
			me:         model.User{ID: 1, Name: "Ada"},
			workspaces: []model.Workspace{{ID: 77, Name: "Acme"}},
			projects: []model.Project{
				{ID: 2, Name: "Web", Workspace: &model.Workspace{ID: 77}},
				{ID: 1, Name: "Bugs", Workspace: &model.Workspace{ID: 77}},
				{ID: 3, Name: "Gone", Archived: true},
			},
			fields: []model.CustomFieldDescriptor{
				severityField(),
				{ID: 20, Name: "Build", Type: model.FieldNumber},
			},
		},
		sessions: &fakeSessions{m: map[string]model.SessionOptions{}},
	}
	h.options = &fakeOptions{rec: rec, opts: model.Options{TrackingProjectID: 1}}
	cookies := map[string]string{}
	if loggedIn {
		cookies[model.LoginCookieName] = "ticket-value"
	}
	h.deps = Deps{
		Tabs: recordingTabs{rec: rec, Static: tab.Static{
			Tab: model.TabContext{
				URL:               "https://example.com/checkout",
				Title:             "Checkout",
				ScreenshotDataURI: screenshotURI,
			},
			Cookies: cookies,
		}},
		Options:  h.options,
		Sessions: h.sessions,
		NewAPI: func(opts model.Options, auth asana.Auth) API {
			h.auth = auth
			return h.api
		},
		Open: func(url string) error {
			h.opened = append(h.opened, url)
			return nil
		},
		EventsPerSecond: 1000,
		EventBurst:      1000,
	}
	return h
}

func (h *harness) start(t *testing.T) *Controller {
	t.Helper()
	c := New(h.deps)
	require.NoError(t, c.Init(context.Background()))
	t.Cleanup(func() { _ = c.Close(context.Background()) })
	return c
}

func waitProjects(t *testing.T, c *Controller) []model.Project {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	ps, err := c.Projects(ctx)
	require.NoError(t, err)
	return ps
}

func flushEvents(c *Controller) {
	c.mu.Lock()
	ev := c.events
	c.mu.Unlock()
	ev.Wait()
}

func TestInit_LoggedOutShowsLogin(t *testing.T) {
	h := newHarness(t, false)
	c := h.start(t)

	st := c.State()
	assert.Equal(t, ViewLogin, st.View)
	assert.Equal(t, "https://app.asana.com/", st.LoginURL)
	assert.Equal(t, []string{"tab", "options", "cookie:ticket"}, h.rec.list())

	require.NoError(t, c.OpenLogin())
	assert.Equal(t, []string{"https://app.asana.com/"}, h.opened)

	_, err := c.Submit(context.Background(), model.TaskDraft{Title: "x"})
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestInit_LoggedInBuildsFormAndLoadsProjects(t *testing.T) {
	h := newHarness(t, true)
	c := h.start(t)

	assert.Equal(t, []string{"tab", "options", "cookie:ticket", "me"}, h.rec.list())
	assert.Equal(t, "ticket-value", h.auth.Cookie)

	ps := waitProjects(t, c)
	require.Len(t, ps, 2)
	assert.Equal(t, "Bugs", ps[0].Name)

	st := c.State()
	assert.Equal(t, ViewAdd, st.View)
	assert.True(t, st.FocusTitle)
	assert.Len(t, st.Form.Rows, 2)
	assert.True(t, st.ProjectsReady)
	assert.True(t, st.Projects.Visible)
	assert.Equal(t, int64(1), st.SelectedProjectID, "tracking project is the fallback default")
	assert.Equal(t, "Checkout", st.Tab.Title)

	key := h.auth.Credential()
	require.NotEmpty(t, key)
	h.sessions.mu.Lock()
	assert.Len(t, h.sessions.m, 1)
	h.sessions.mu.Unlock()

	flushEvents(c)
	assert.Contains(t, h.api.eventNames(), "Bugshot-Open-Button")
}

func TestInit_ReusesSessionCache(t *testing.T) {
	h := newHarness(t, true)
	first := h.start(t)
	waitProjects(t, first)

	second := New(h.deps)
	require.NoError(t, second.Init(context.Background()))
	defer second.Close(context.Background())
	ps := waitProjects(t, second)

	assert.Len(t, ps, 2)
	h.api.mu.Lock()
	assert.Equal(t, 1, h.api.projectHits)
	h.api.mu.Unlock()
}

func TestInit_QuickAddUsesSuppliedContext(t *testing.T) {
	h := newHarness(t, false)
	h.deps.Token = "tok"
	h.deps.QuickAdd = &model.TabContext{URL: "https://q.example", Title: "Quick"}
	c := h.start(t)

	assert.Equal(t, []string{"tab", "options", "me"}, h.rec.list())
	assert.Equal(t, "tok", h.auth.Token)
	st := c.State()
	assert.Equal(t, "Quick", st.Tab.Title)
	assert.Equal(t, "https://q.example", st.Tab.URL)

	flushEvents(c)
	assert.Contains(t, h.api.eventNames(), "Bugshot-Open-QuickAdd")
}

func TestSubmit_QuickAddStillUploadsScreenshot(t *testing.T) {
	h := newHarness(t, true)
	h.deps.QuickAdd = &model.TabContext{URL: "https://q.example", Title: "Quick"}
	c := h.start(t)
	waitProjects(t, c)

	_, err := c.Submit(context.Background(), model.TaskDraft{Title: "x"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.WaitUploads(ctx))
	h.api.mu.Lock()
	assert.Equal(t, []string{"screenshot.jpg|image/jpeg|jpegbytes"}, h.api.uploads)
	h.api.mu.Unlock()
}

type failingTabs struct{ tab.Static }

func (failingTabs) Active(ctx context.Context) (model.TabContext, error) {
	return model.TabContext{}, tab.ErrNoActiveTab
}

func TestInit_QuickAddToleratesMissingBrowser(t *testing.T) {
	h := newHarness(t, false)
	h.deps.Token = "tok"
	h.deps.Tabs = failingTabs{}
	h.deps.QuickAdd = &model.TabContext{URL: "https://q.example", Title: "Quick"}
	c := h.start(t)

	st := c.State()
	assert.Equal(t, ViewAdd, st.View)
	assert.Empty(t, st.Tab.ScreenshotDataURI)
	assert.Equal(t, "Quick", st.Tab.Title)
}

func TestInit_LookupFailureIsReported(t *testing.T) {
	h := newHarness(t, true)
	h.api.meErr = &asana.APIError{Status: 401, Errors: []asana.ErrorDetail{{Message: "Not Authorized"}}}
	c := New(h.deps)
	defer c.Close(context.Background())

	err := c.Init(context.Background())
	require.Error(t, err)
	st := c.State()
	assert.Equal(t, ViewLoading, st.View)
	assert.Equal(t, "Not Authorized", st.Error)
}

func TestForm_IsBuiltOnce(t *testing.T) {
	h := newHarness(t, true)
	c := h.start(t)

	assert.False(t, c.RebuildForm([]model.CustomFieldDescriptor{{ID: 5, Name: "X", Type: model.FieldText}}))
	assert.Len(t, c.State().Form.Rows, 2)
}

func TestSubmit_SuccessResetsDraftAndUploadsScreenshot(t *testing.T) {
	h := newHarness(t, true)
	h.options.opts.AttachPageLink = true
	c := h.start(t)
	waitProjects(t, c)
	require.NoError(t, c.SelectProject(context.Background(), 2))

	res, err := c.Submit(context.Background(), model.TaskDraft{
		Title:             "Pay button dead",
		Notes:             "steps",
		EstimateOn:        true,
		Estimate:          "3",
		CustomFieldInputs: map[int64]string{10: "4", 20: ""},
	})
	require.NoError(t, err)
	assert.Equal(t, "https://app.asana.com/0/901/901", res.URL)

	h.api.mu.Lock()
	require.Len(t, h.api.created, 1)
	req := h.api.created[0]
	assert.Equal(t, int64(77), h.api.createdIn[0])
	h.api.mu.Unlock()
	assert.Equal(t, "[Bug] [3] Pay button dead", req.Name)
	assert.Equal(t, []int64{1, 2}, req.Projects)
	assert.Equal(t, map[string]any{"10": int64(4)}, req.CustomFields)

	st := c.State()
	assert.Equal(t, ViewSuccess, st.View)
	assert.True(t, st.Draft.IsBlank())
	assert.True(t, st.FocusTitle)
	assert.Empty(t, st.Error)
	assert.Equal(t, "[Bug] [3] Pay button dead", TaskLinkText(*st.Task))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.WaitUploads(ctx))
	h.api.mu.Lock()
	assert.Equal(t, []string{"screenshot.jpg|image/jpeg|jpegbytes"}, h.api.uploads)
	assert.Equal(t, []string{"https://example.com/checkout"}, h.api.uris)
	h.api.mu.Unlock()

	c.AddAnother()
	assert.Equal(t, ViewAdd, c.View())
	_, err = c.Submit(context.Background(), model.TaskDraft{Title: "second"})
	require.NoError(t, err)

	flushEvents(c)
	events := h.api.eventNames()
	assert.Contains(t, events, "Bugshot-CreateTask-Success")
	assert.Contains(t, events, "Bugshot-CreateTask-MultipleTasks")
	assert.Contains(t, events, "Bugshot-ChangedWorkspace")
}

func TestSubmit_FailurePreservesDraft(t *testing.T) {
	h := newHarness(t, true)
	h.api.createErr = &asana.APIError{Status: 400, Errors: []asana.ErrorDetail{{Message: "projects: Not a valid project"}}}
	c := h.start(t)
	waitProjects(t, c)

	draft := model.TaskDraft{Title: "Broken", Notes: "keep me", CustomFieldInputs: map[int64]string{20: "7"}}
	_, err := c.Submit(context.Background(), draft)
	require.Error(t, err)

	st := c.State()
	assert.Equal(t, ViewAdd, st.View)
	assert.Equal(t, "projects: Not a valid project", st.Error)
	assert.Equal(t, "Broken", st.Draft.Title)
	assert.Equal(t, "keep me", st.Draft.Notes)
	assert.Equal(t, "7", st.Draft.CustomFieldInputs[20])

	flushEvents(c)
	assert.Contains(t, h.api.eventNames(), "Bugshot-CreateTask-Failure")

	h.api.createErr = nil
	_, err = c.Submit(context.Background(), st.Draft)
	require.NoError(t, err)
	assert.Empty(t, c.State().Error, "a new submission clears the previous error")
}

func TestSubmit_ValidationErrorMakesNoRequest(t *testing.T) {
	h := newHarness(t, true)
	c := h.start(t)
	waitProjects(t, c)

	_, err := c.Submit(context.Background(), model.TaskDraft{Title: "Bad build", CustomFieldInputs: map[int64]string{20: "abc"}})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))

	h.api.mu.Lock()
	assert.Empty(t, h.api.created)
	h.api.mu.Unlock()
	st := c.State()
	assert.Equal(t, ViewAdd, st.View)
	assert.Contains(t, st.Error, "Build")
}

func TestSubmit_SecondCallWhileInFlightIsNoop(t *testing.T) {
	h := newHarness(t, true)
	h.api.createGate = make(chan struct{})
	h.api.createEnter = make(chan struct{}, 1)
	c := h.start(t)
	waitProjects(t, c)

	done := make(chan error, 1)
	go func() {
		_, err := c.Submit(context.Background(), model.TaskDraft{Title: "one"})
		done <- err
	}()
	<-h.api.createEnter
	assert.Equal(t, ViewSubmitting, c.View())

	_, err := c.Submit(context.Background(), model.TaskDraft{Title: "two"})
	assert.ErrorIs(t, err, ErrSubmitInFlight)

	close(h.api.createGate)
	require.NoError(t, <-done)
	h.api.mu.Lock()
	assert.Len(t, h.api.created, 1)
	h.api.mu.Unlock()
}

func TestSelectProject_PersistsDefault(t *testing.T) {
	h := newHarness(t, true)
	c := h.start(t)
	waitProjects(t, c)

	require.NoError(t, c.SelectProject(context.Background(), 2))
	h.options.mu.Lock()
	require.Len(t, h.options.saves, 1)
	assert.Equal(t, int64(2), h.options.saves[0].DefaultProjectID)
	assert.Equal(t, int64(77), h.options.saves[0].DefaultWorkspaceID)
	h.options.mu.Unlock()

	require.Error(t, c.SelectProject(context.Background(), 3), "archived projects are filtered out")
}

func TestSelectProject_AfterAddLogsNoWorkspaceChange(t *testing.T) {
	h := newHarness(t, true)
	c := h.start(t)
	waitProjects(t, c)

	_, err := c.Submit(context.Background(), model.TaskDraft{Title: "x"})
	require.NoError(t, err)
	require.NoError(t, c.SelectProject(context.Background(), 2))

	flushEvents(c)
	assert.NotContains(t, h.api.eventNames(), "Bugshot-ChangedWorkspace")
	h.options.mu.Lock()
	assert.Equal(t, int64(2), h.options.opts.DefaultProjectID, "the choice is still saved")
	h.options.mu.Unlock()
}

func TestUsePageDetails_OnlyWhenEmpty(t *testing.T) {
	h := newHarness(t, true)
	h.deps.Hub = bridge.NewHub()
	c := h.start(t)
	require.Equal(t, 1, h.deps.Hub.Len())

	h.deps.Hub.Dispatch(bridge.Message{Type: bridge.TypeSelection, Value: "Error 500"})
	h.deps.Hub.Dispatch(bridge.Message{Type: bridge.TypeSelection, Value: "ignored"})
	require.Eventually(t, func() bool { return c.State().Selection == "Error 500" }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, h.deps.Hub.Len())

	d := c.UsePageDetails(model.TaskDraft{})
	assert.Equal(t, "Checkout", d.Title)
	assert.Equal(t, "https://example.com/checkout\nError 500", d.Notes)

	kept := c.UsePageDetails(model.TaskDraft{Title: "mine"})
	assert.Equal(t, "mine", kept.Title)
	assert.Empty(t, kept.Notes)
}

func TestEditedFlags_LogOnce(t *testing.T) {
	h := newHarness(t, true)
	c := h.start(t)

	c.NoteTitleEdited("")
	c.NoteTitleEdited("a")
	c.NoteTitleEdited("ab")
	c.NoteNotesEdited("n")
	flushEvents(c)

	count := map[string]int{}
	for _, e := range h.api.eventNames() {
		count[e]++
	}
	assert.Equal(t, 1, count["Bugshot-ChangedTaskName"])
	assert.Equal(t, 1, count["Bugshot-ChangedTaskNotes"])
	assert.False(t, c.State().FocusTitle)
}

func TestClose_LogsAbortWhenNothingAdded(t *testing.T) {
	h := newHarness(t, true)
	c := New(h.deps)
	require.NoError(t, c.Init(context.Background()))
	require.NoError(t, c.Close(context.Background()))
	assert.Contains(t, h.api.eventNames(), "Bugshot-Abort")

	h2 := newHarness(t, true)
	c2 := New(h2.deps)
	require.NoError(t, c2.Init(context.Background()))
	waitProjects(t, c2)
	_, err := c2.Submit(context.Background(), model.TaskDraft{Title: "x"})
	require.NoError(t, err)
	require.NoError(t, c2.Close(context.Background()))
	assert.NotContains(t, h2.api.eventNames(), "Bugshot-Abort")
}

func TestOpenTask(t *testing.T) {
	h := newHarness(t, true)
	c := h.start(t)
	assert.ErrorIs(t, c.OpenTask(), ErrNoTask)

	waitProjects(t, c)
	res, err := c.Submit(context.Background(), model.TaskDraft{Title: "x"})
	require.NoError(t, err)
	require.NoError(t, c.OpenTask())
	assert.Equal(t, []string{res.URL}, h.opened)
}
