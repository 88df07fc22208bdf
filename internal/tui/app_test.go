package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	"bugshot-cli/internal/model"
	"bugshot-cli/internal/popup"

	tea "github.com/charmbracelet/bubbletea"
)

type fakeController struct {
	state     popup.State
	initErr   error
	submitErr error
	closeErr  error

	submitted   []model.TaskDraft
	selected    []int64
	titleEdits  []string
	opened      []string
	addAnother  int
	closed      int
	pageDetails int
}

func (f *fakeController) Init(ctx context.Context) error { return f.initErr }
func (f *fakeController) State() popup.State             { return f.state }
func (f *fakeController) Projects(ctx context.Context) ([]model.Project, error) {
	return f.state.Projects.Projects, nil
}

func (f *fakeController) Submit(ctx context.Context, d model.TaskDraft) (popup.SubmitResult, error) {
	f.submitted = append(f.submitted, d)
	if f.submitErr != nil {
		f.state.View = popup.ViewAdd
		f.state.Error = f.submitErr.Error()
		return popup.SubmitResult{}, f.submitErr
	}
	task := model.Task{ID: 5, Name: d.Title}
	f.state.View = popup.ViewSuccess
	f.state.Task = &task
	f.state.TaskURL = "https://app.asana.com/0/5/5"
	return popup.SubmitResult{Task: task, URL: f.state.TaskURL}, nil
}

func (f *fakeController) SelectProject(ctx context.Context, id int64) error {
	f.selected = append(f.selected, id)
	f.state.SelectedProjectID = id
	return nil
}

func (f *fakeController) NoteTitleEdited(title string) { f.titleEdits = append(f.titleEdits, title) }
func (f *fakeController) NoteNotesEdited(notes string) {}

func (f *fakeController) UsePageDetails(d model.TaskDraft) model.TaskDraft {
	f.pageDetails++
	d.Title, d.Notes = popup.PageDetails(f.state.Tab)
	return d
}

func (f *fakeController) OpenLogin() error  { f.opened = append(f.opened, f.state.LoginURL); return nil }
func (f *fakeController) OpenSignup() error { f.opened = append(f.opened, f.state.SignupURL); return nil }
func (f *fakeController) OpenTask() error {
	if f.state.TaskURL == "" {
		return popup.ErrNoTask
	}
	f.opened = append(f.opened, f.state.TaskURL)
	return nil
}

func (f *fakeController) AddAnother() {
	f.addAnother++
	f.state.View = popup.ViewAdd
}

func (f *fakeController) Close(ctx context.Context) error {
	f.closed++
	return f.closeErr
}

func addState() popup.State {
	form := popup.BuildForm([]model.CustomFieldDescriptor{
		{ID: 10, Name: "Severity", Type: model.FieldEnum, EnumOptions: []model.EnumOption{
			{ID: 1, Name: "Low", Enabled: true},
			{ID: 2, Name: "High", Enabled: true},
		}},
		{ID: 20, Name: "Build", Type: model.FieldNumber},
	})
	projects := []model.Project{{ID: 1, Name: "Bugs"}, {ID: 2, Name: "Web"}}
	return popup.State{
		View:              popup.ViewAdd,
		Tab:               model.TabContext{URL: "https://example.com/cart", Title: "Cart"},
		Options:           model.DefaultOptions(),
		Form:              form,
		ProjectsReady:     true,
		Projects:          popup.NewProjectSelector(projects),
		SelectedProjectID: 1,
		PageDetails:       true,
	}
}

// readyModel returns a model that has processed init and the project list.
func readyModel(t *testing.T, ctl *fakeController) appModel {
	t.Helper()
	m := newModel(ctl)
	mAny, _ := m.Update(initDoneMsg{})
	mAny, _ = mAny.(appModel).Update(projectsReadyMsg{})
	return mAny.(appModel)
}

func press(t *testing.T, m appModel, msg tea.KeyMsg) (appModel, tea.Cmd) {
	t.Helper()
	mAny, cmd := m.Update(msg)
	out, ok := mAny.(appModel)
	if !ok {
		t.Fatalf("expected appModel, got %T", mAny)
	}
	return out, cmd
}

func typeText(t *testing.T, m appModel, s string) appModel {
	t.Helper()
	for _, r := range s {
		m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

// findMsg runs cmd (expanding batches) and returns the first message of type T.
func findMsg[T any](cmd tea.Cmd) (T, bool) {
	var zero T
	if cmd == nil {
		return zero, false
	}
	msg := cmd()
	if v, ok := msg.(T); ok {
		return v, true
	}
	if batch, ok := msg.(tea.BatchMsg); ok {
		for _, c := range batch {
			if v, ok := findMsg[T](c); ok {
				return v, true
			}
		}
	}
	return zero, false
}

func TestApp_InitToAddFocusesTitleAndBuildsRing(t *testing.T) {
	ctl := &fakeController{state: addState()}
	m := readyModel(t, ctl)

	if got := m.current().kind; got != focusTitle {
		t.Fatalf("expected title focus, got %v", got)
	}
	if len(m.fields) != 2 {
		t.Fatalf("expected 2 field controls, got %d", len(m.fields))
	}
	// project, title, notes, page details, estimate toggle, estimate, 2 fields, add
	if len(m.ring) != 9 {
		t.Fatalf("expected 9 focus targets, got %d", len(m.ring))
	}
	if m.ring[0].kind != focusProject {
		t.Fatalf("expected project selector first in ring")
	}
}

func TestApp_TabRingWraps(t *testing.T) {
	ctl := &fakeController{state: addState()}
	m := readyModel(t, ctl)

	m.focusOn(focusAdd)
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.current().kind != focusProject {
		t.Fatalf("tab from the add button should wrap to the project selector, got %v", m.current().kind)
	}
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	if m.current().kind != focusAdd {
		t.Fatalf("shift+tab from the first control should wrap to the add button, got %v", m.current().kind)
	}
}

func TestApp_SingleProjectIsNotInRing(t *testing.T) {
	st := addState()
	st.Projects = popup.NewProjectSelector([]model.Project{{ID: 1, Name: "Bugs"}})
	m := readyModel(t, &fakeController{state: st})
	for _, tgt := range m.ring {
		if tgt.kind == focusProject {
			t.Fatalf("hidden selector must not take focus")
		}
	}
	if !strings.Contains(m.View(), "Bugs") {
		t.Fatalf("expected single project name in view")
	}
}

func TestApp_ProjectArrowSelects(t *testing.T) {
	ctl := &fakeController{state: addState()}
	m := readyModel(t, ctl)
	m.focusOn(focusProject)

	_, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyRight})
	if _, ok := findMsg[projectSelectedMsg](cmd); !ok {
		t.Fatalf("expected projectSelectedMsg")
	}
	if len(ctl.selected) != 1 || ctl.selected[0] != 2 {
		t.Fatalf("expected project 2 selected, got %v", ctl.selected)
	}
}

func TestApp_TypingTitleNotesEdit(t *testing.T) {
	ctl := &fakeController{state: addState()}
	m := readyModel(t, ctl)
	m = typeText(t, m, "ab")
	if m.title.Value() != "ab" {
		t.Fatalf("expected title %q, got %q", "ab", m.title.Value())
	}
	if len(ctl.titleEdits) != 2 || ctl.titleEdits[1] != "ab" {
		t.Fatalf("expected title edits to be reported, got %v", ctl.titleEdits)
	}
}

func TestApp_CtrlS_SubmitsDraftAndResetsOnSuccess(t *testing.T) {
	ctl := &fakeController{state: addState()}
	m := readyModel(t, ctl)
	m = typeText(t, m, "Cart empty")
	m.fields[0].choice = 2
	m.estOn = true
	m.estimate.SetValue("3")

	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	if m.state.View != popup.ViewSubmitting {
		t.Fatalf("expected submitting view, got %v", m.state.View)
	}
	done, ok := findMsg[submitDoneMsg](cmd)
	if !ok {
		t.Fatalf("expected submitDoneMsg")
	}
	if len(ctl.submitted) != 1 {
		t.Fatalf("expected one submission, got %d", len(ctl.submitted))
	}
	d := ctl.submitted[0]
	if d.Title != "Cart empty" || !d.EstimateOn || d.Estimate != "3" {
		t.Fatalf("unexpected draft: %+v", d)
	}
	if d.CustomFieldInputs[10] != "2" {
		t.Fatalf("expected enum choice id 2, got %q", d.CustomFieldInputs[10])
	}
	if _, ok := d.CustomFieldInputs[20]; ok {
		t.Fatalf("empty number field should be left out")
	}
	if len(d.ProjectIDs) != 1 || d.ProjectIDs[0] != 1 {
		t.Fatalf("expected the selected project, got %v", d.ProjectIDs)
	}

	m, _ = press2(t, m, done)
	if m.state.View != popup.ViewSuccess {
		t.Fatalf("expected success view, got %v", m.state.View)
	}
	if m.title.Value() != "" || m.fields[0].choice != 0 || m.estOn {
		t.Fatalf("expected inputs reset after success")
	}
	if m.current().kind != focusTitle {
		t.Fatalf("expected title focus after success")
	}
	if !strings.Contains(m.View(), "Task added: Cart empty") {
		t.Fatalf("expected success link text in view:\n%s", m.View())
	}
}

func press2(t *testing.T, m appModel, msg tea.Msg) (appModel, tea.Cmd) {
	t.Helper()
	mAny, cmd := m.Update(msg)
	return mAny.(appModel), cmd
}

func TestApp_SubmitFailureKeepsInputs(t *testing.T) {
	ctl := &fakeController{state: addState(), submitErr: errors.New("projects: Not a valid project")}
	m := readyModel(t, ctl)
	m = typeText(t, m, "Keep")

	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	done, _ := findMsg[submitDoneMsg](cmd)
	m, _ = press2(t, m, done)

	if m.state.View != popup.ViewAdd {
		t.Fatalf("expected add view, got %v", m.state.View)
	}
	if m.title.Value() != "Keep" {
		t.Fatalf("expected title kept, got %q", m.title.Value())
	}
	if !strings.Contains(m.View(), "Not a valid project") {
		t.Fatalf("expected error banner in view")
	}
}

func TestApp_PageDetailsOnlyWhenEmpty(t *testing.T) {
	ctl := &fakeController{state: addState()}
	m := readyModel(t, ctl)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlP})
	if m.title.Value() != "Cart" || m.notes.Value() != "https://example.com/cart" {
		t.Fatalf("expected page details, got %q / %q", m.title.Value(), m.notes.Value())
	}
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlP})
	if ctl.pageDetails != 1 {
		t.Fatalf("expected page details to be used once, got %d", ctl.pageDetails)
	}
}

func TestApp_SuccessKeys(t *testing.T) {
	var copied string
	orig := copyToClipboard
	copyToClipboard = func(s string) error { copied = s; return nil }
	t.Cleanup(func() { copyToClipboard = orig })

	st := addState()
	st.View = popup.ViewSuccess
	st.TaskURL = "https://app.asana.com/0/5/5"
	ctl := &fakeController{state: st}
	m := readyModel(t, ctl)
	m.state = st

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("y")})
	if copied != st.TaskURL || m.flash != "Link copied" {
		t.Fatalf("expected link copied, got %q (%q)", copied, m.flash)
	}

	_, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if len(ctl.opened) != 1 || ctl.opened[0] != st.TaskURL {
		t.Fatalf("expected task opened, got %v", ctl.opened)
	}
	if _, ok := findMsg[closedMsg](cmd); !ok {
		t.Fatalf("opening the task should close the popup")
	}

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("a")})
	if ctl.addAnother != 1 || m.state.View != popup.ViewAdd {
		t.Fatalf("expected add another to return to the add view")
	}
}

func TestApp_LoginViewOpensLoginAndCloses(t *testing.T) {
	st := popup.State{View: popup.ViewLogin, LoginURL: "https://app.asana.com/", SignupURL: "https://asana.com/signup"}
	ctl := &fakeController{state: st}
	m := newModel(ctl)
	mAny, _ := m.Update(initDoneMsg{})
	m = mAny.(appModel)

	if !strings.Contains(m.View(), "not logged in") {
		t.Fatalf("expected login view")
	}
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("s")})
	if len(ctl.opened) != 1 || ctl.opened[0] != st.SignupURL {
		t.Fatalf("expected signup opened, got %v", ctl.opened)
	}
	msg, ok := findMsg[closedMsg](cmd)
	if !ok {
		t.Fatalf("expected close")
	}
	_, quit := press2(t, m, msg)
	if quit == nil {
		t.Fatalf("expected quit cmd")
	}
	if ctl.closed != 1 {
		t.Fatalf("expected controller closed once, got %d", ctl.closed)
	}
}

func TestApp_EscClosesOnce(t *testing.T) {
	ctl := &fakeController{state: addState()}
	m := readyModel(t, ctl)
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if cmd == nil || !m.closing {
		t.Fatalf("expected close cmd")
	}
	_, cmd = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if cmd != nil {
		t.Fatalf("second esc should be ignored while closing")
	}
}

func TestApp_SubmitRightAfterProjectChangeUsesNewProject(t *testing.T) {
	st := addState()
	st.Options.TrackingProjectID = 1
	ctl := &fakeController{state: st}
	m := readyModel(t, ctl)
	m.focusOn(focusProject)

	// The selection command is not run, as if it were still in flight.
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyRight})
	m.focusOn(focusTitle)
	m = typeText(t, m, "x")
	_, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	if _, ok := findMsg[submitDoneMsg](cmd); !ok {
		t.Fatalf("expected submitDoneMsg")
	}
	if len(ctl.submitted) != 1 {
		t.Fatalf("expected one submission, got %d", len(ctl.submitted))
	}
	got := ctl.submitted[0].ProjectIDs
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("expected tracking project then project 2, got %v", got)
	}
}

func TestApp_CloseErrorStillQuits(t *testing.T) {
	ctl := &fakeController{state: addState(), closeErr: context.DeadlineExceeded}
	m := readyModel(t, ctl)
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	msg, ok := findMsg[closedMsg](cmd)
	if !ok {
		t.Fatalf("expected closedMsg even when close fails")
	}
	_, quit := press2(t, m, msg)
	if quit == nil || ctl.closed != 1 {
		t.Fatalf("expected quit after a failed close, closed=%d", ctl.closed)
	}
}
