// Package tui is the interactive popup.
package tui

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"bugshot-cli/internal/logging"
	"bugshot-cli/internal/model"
	"bugshot-cli/internal/popup"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// Controller is the popup session the model drives; *popup.Controller satisfies it.
type Controller interface {
	Init(ctx context.Context) error
	State() popup.State
	Projects(ctx context.Context) ([]model.Project, error)
	Submit(ctx context.Context, d model.TaskDraft) (popup.SubmitResult, error)
	SelectProject(ctx context.Context, id int64) error
	NoteTitleEdited(title string)
	NoteNotesEdited(notes string)
	UsePageDetails(d model.TaskDraft) model.TaskDraft
	OpenLogin() error
	OpenSignup() error
	OpenTask() error
	AddAnother()
	Close(ctx context.Context) error
}

const closeTimeout = 10 * time.Second

// Run shows the popup until it closes.
func Run(ctl Controller) error {
	applyThemePreference()
	applyColorProfilePreference()
	_, err := tea.NewProgram(newModel(ctl), tea.WithAltScreen()).Run()
	return err
}

type initDoneMsg struct{ err error }
type projectsReadyMsg struct{ err error }
type projectSelectedMsg struct{ err error }
type submitDoneMsg struct {
	res popup.SubmitResult
	err error
}
type closedMsg struct{}

type focusKind int

const (
	focusProject focusKind = iota
	focusTitle
	focusNotes
	focusPageDetails
	focusEstimateToggle
	focusEstimate
	focusField
	focusAdd
)

type focusTarget struct {
	kind focusKind
	row  int
}

type fieldControl struct {
	row    popup.Row
	input  textinput.Model
	choice int
}

type appModel struct {
	ctl  Controller
	keys keyMap

	width  int
	height int

	state    popup.State
	spinner  spinner.Model
	title    textinput.Model
	notes    textarea.Model
	estimate textinput.Model
	estOn    bool
	fields   []fieldControl
	project  int

	ring  []focusTarget
	focus int

	flash   string
	closing bool
}

func newModel(ctl Controller) appModel {
	sp := spinner.New(spinner.WithSpinner(spinner.Dot))

	title := textinput.New()
	title.Placeholder = "What is broken?"
	title.CharLimit = 512
	title.Prompt = ""

	notes := textarea.New()
	notes.Placeholder = "Steps to reproduce, expected and actual behavior"
	notes.ShowLineNumbers = false
	notes.SetHeight(4)

	est := textinput.New()
	est.Placeholder = "estimate"
	est.CharLimit = 8
	est.Width = 8
	est.Prompt = ""

	return appModel{
		ctl:      ctl,
		keys:     defaultKeyMap(),
		width:    80,
		spinner:  sp,
		title:    title,
		notes:    notes,
		estimate: est,
	}
}

func (m appModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, initCmd(m.ctl))
}

func initCmd(ctl Controller) tea.Cmd {
	return func() tea.Msg {
		return initDoneMsg{err: ctl.Init(context.Background())}
	}
}

func waitProjectsCmd(ctl Controller) tea.Cmd {
	return func() tea.Msg {
		_, err := ctl.Projects(context.Background())
		return projectsReadyMsg{err: err}
	}
}

func selectProjectCmd(ctl Controller, id int64) tea.Cmd {
	return func() tea.Msg {
		return projectSelectedMsg{err: ctl.SelectProject(context.Background(), id)}
	}
}

func submitCmd(ctl Controller, d model.TaskDraft) tea.Cmd {
	return func() tea.Msg {
		res, err := ctl.Submit(context.Background(), d)
		return submitDoneMsg{res: res, err: err}
	}
}

func closeCmd(ctl Controller) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		if err := ctl.Close(ctx); err != nil {
			log := logging.For("tui")
			log.Warn().Err(err).Msg("close did not finish cleanly")
		}
		return closedMsg{}
	}
}

func (m *appModel) refresh() {
	m.state = m.ctl.State()
}

// setupForm creates one control per custom-field row.
func (m *appModel) setupForm() {
	m.fields = m.fields[:0]
	for _, row := range m.state.Form.Rows {
		fc := fieldControl{row: row}
		if row.Control == popup.ControlInput {
			in := textinput.New()
			in.Prompt = ""
			in.Width = 24
			if row.InputType == "number" {
				in.Placeholder = "0"
			}
			fc.input = in
		}
		m.fields = append(m.fields, fc)
	}
	m.rebuildRing()
	m.focusOn(focusTitle)
}

func (m *appModel) syncProject() {
	m.project = 0
	for i, p := range m.state.Projects.Projects {
		if p.ID == m.state.SelectedProjectID {
			m.project = i
		}
	}
}

// rebuildRing lists focusable controls in tab order; tab and shift+tab wrap around it.
func (m *appModel) rebuildRing() {
	var cur focusTarget
	if m.focus < len(m.ring) {
		cur = m.ring[m.focus]
	}
	ring := []focusTarget{}
	if m.state.ProjectsReady && m.state.Projects.Visible {
		ring = append(ring, focusTarget{kind: focusProject})
	}
	ring = append(ring, focusTarget{kind: focusTitle}, focusTarget{kind: focusNotes}, focusTarget{kind: focusPageDetails})
	if m.state.Options.Estimates() {
		ring = append(ring, focusTarget{kind: focusEstimateToggle}, focusTarget{kind: focusEstimate})
	}
	for i := range m.fields {
		ring = append(ring, focusTarget{kind: focusField, row: i})
	}
	ring = append(ring, focusTarget{kind: focusAdd})
	m.ring = ring
	m.focus = 0
	for i, t := range ring {
		if t == cur {
			m.focus = i
			break
		}
	}
	m.applyFocus()
}

func (m appModel) current() focusTarget {
	if m.focus < 0 || m.focus >= len(m.ring) {
		return focusTarget{kind: focusTitle}
	}
	return m.ring[m.focus]
}

func (m *appModel) focusOn(kind focusKind) {
	for i, t := range m.ring {
		if t.kind == kind {
			m.focus = i
			break
		}
	}
	m.applyFocus()
}

func (m *appModel) move(delta int) {
	if len(m.ring) == 0 {
		return
	}
	m.focus = (m.focus + delta + len(m.ring)) % len(m.ring)
	m.applyFocus()
}

func (m *appModel) applyFocus() {
	cur := m.current()
	m.title.Blur()
	m.notes.Blur()
	m.estimate.Blur()
	for i := range m.fields {
		m.fields[i].input.Blur()
	}
	switch cur.kind {
	case focusTitle:
		m.title.Focus()
	case focusNotes:
		m.notes.Focus()
	case focusEstimate:
		m.estimate.Focus()
	case focusField:
		if cur.row < len(m.fields) && m.fields[cur.row].row.Control == popup.ControlInput {
			m.fields[cur.row].input.Focus()
		}
	}
}

// draft collects the form into a TaskDraft.
func (m appModel) draft() model.TaskDraft {
	d := model.TaskDraft{
		Title:      m.title.Value(),
		Notes:      m.notes.Value(),
		EstimateOn: m.estOn,
		Estimate:   strings.TrimSpace(m.estimate.Value()),
	}
	// The selection is saved asynchronously; file against what is on screen.
	if ps := m.state.Projects.Projects; m.state.ProjectsReady && m.project < len(ps) {
		d.ProjectIDs = popup.ProjectIDs(m.state.Options.TrackingProjectID, ps[m.project].ID)
	}
	for _, fc := range m.fields {
		v := ""
		switch fc.row.Control {
		case popup.ControlSelect:
			if fc.choice > 0 && fc.choice < len(fc.row.Choices) {
				v = strconv.FormatInt(fc.row.Choices[fc.choice].ID, 10)
			}
		case popup.ControlInput:
			v = fc.input.Value()
		}
		if v == "" {
			continue
		}
		if d.CustomFieldInputs == nil {
			d.CustomFieldInputs = map[int64]string{}
		}
		d.CustomFieldInputs[fc.row.FieldID] = v
	}
	return d
}

func (m *appModel) resetInputs() {
	m.title.Reset()
	m.notes.Reset()
	m.estimate.Reset()
	m.estOn = false
	for i := range m.fields {
		m.fields[i].input.Reset()
		m.fields[i].choice = 0
	}
	m.focusOn(focusTitle)
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		w := m.width - 4
		if w < 20 {
			w = 20
		}
		m.notes.SetWidth(w)
		m.title.Width = w
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case initDoneMsg:
		m.refresh()
		if m.state.View == popup.ViewAdd {
			m.setupForm()
			return m, waitProjectsCmd(m.ctl)
		}
		return m, nil

	case projectsReadyMsg:
		m.refresh()
		m.syncProject()
		m.rebuildRing()
		return m, nil

	case projectSelectedMsg:
		m.refresh()
		if msg.err != nil {
			m.flash = msg.err.Error()
		}
		return m, nil

	case submitDoneMsg:
		if errors.Is(msg.err, popup.ErrSubmitInFlight) {
			return m, nil
		}
		m.refresh()
		if msg.err == nil {
			m.resetInputs()
		}
		return m, nil

	case closedMsg:
		return m, tea.Quit

	case tea.KeyMsg:
		return m.updateKey(msg)
	}
	return m, nil
}

func (m appModel) close() (tea.Model, tea.Cmd) {
	if m.closing {
		return m, nil
	}
	m.closing = true
	return m, closeCmd(m.ctl)
}

func (m appModel) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m.close()
	}
	if m.closing {
		return m, nil
	}
	m.flash = ""

	switch m.state.View {
	case popup.ViewLogin:
		return m.updateLogin(msg)
	case popup.ViewAdd:
		return m.updateAdd(msg)
	case popup.ViewSuccess:
		return m.updateSuccess(msg)
	case popup.ViewLoading:
		if msg.String() == "esc" {
			return m.close()
		}
	}
	return m, nil
}

func (m appModel) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Login):
		if err := m.ctl.OpenLogin(); err != nil {
			m.flash = err.Error()
			return m, nil
		}
		return m.close()
	case key.Matches(msg, m.keys.Signup):
		if err := m.ctl.OpenSignup(); err != nil {
			m.flash = err.Error()
			return m, nil
		}
		return m.close()
	case key.Matches(msg, m.keys.Close):
		return m.close()
	}
	return m, nil
}

func (m appModel) updateSuccess(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.OpenTask):
		if err := m.ctl.OpenTask(); err != nil {
			m.flash = err.Error()
			return m, nil
		}
		return m.close()
	case key.Matches(msg, m.keys.CopyLink):
		if err := copyToClipboard(m.state.TaskURL); err != nil {
			m.flash = "Copy failed: " + err.Error()
		} else {
			m.flash = "Link copied"
		}
		return m, nil
	case key.Matches(msg, m.keys.AddAnother):
		m.ctl.AddAnother()
		m.refresh()
		m.focusOn(focusTitle)
		return m, nil
	case key.Matches(msg, m.keys.Close):
		return m.close()
	}
	return m, nil
}

func (m appModel) submit() (tea.Model, tea.Cmd) {
	d := m.draft()
	m.state.View = popup.ViewSubmitting
	m.state.Error = ""
	return m, tea.Batch(m.spinner.Tick, submitCmd(m.ctl, d))
}

func (m appModel) usePageDetails() appModel {
	d := m.draft()
	if d.Title != "" || d.Notes != "" {
		return m
	}
	d = m.ctl.UsePageDetails(d)
	m.title.SetValue(d.Title)
	m.notes.SetValue(d.Notes)
	m.refresh()
	return m
}

func (m appModel) updateAdd(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Close):
		return m.close()
	case key.Matches(msg, m.keys.Submit):
		return m.submit()
	case key.Matches(msg, m.keys.Next):
		m.move(1)
		return m, nil
	case key.Matches(msg, m.keys.Prev):
		m.move(-1)
		return m, nil
	case key.Matches(msg, m.keys.PageDetails):
		return m.usePageDetails(), nil
	}

	cur := m.current()
	switch cur.kind {
	case focusProject:
		n := len(m.state.Projects.Projects)
		if n == 0 {
			return m, nil
		}
		switch msg.String() {
		case "left", "up":
			m.project = (m.project - 1 + n) % n
		case "right", "down":
			m.project = (m.project + 1) % n
		default:
			return m, nil
		}
		return m, selectProjectCmd(m.ctl, m.state.Projects.Projects[m.project].ID)

	case focusTitle:
		if msg.String() == "enter" {
			m.move(1)
			return m, nil
		}
		before := m.title.Value()
		var cmd tea.Cmd
		m.title, cmd = m.title.Update(msg)
		if v := m.title.Value(); v != before {
			m.ctl.NoteTitleEdited(v)
			m.refresh()
		}
		return m, cmd

	case focusNotes:
		before := m.notes.Value()
		var cmd tea.Cmd
		m.notes, cmd = m.notes.Update(msg)
		if v := m.notes.Value(); v != before {
			m.ctl.NoteNotesEdited(v)
			m.refresh()
		}
		return m, cmd

	case focusPageDetails:
		if msg.String() == "enter" || msg.String() == " " {
			return m.usePageDetails(), nil
		}

	case focusEstimateToggle:
		if msg.String() == "enter" || msg.String() == " " {
			m.estOn = !m.estOn
		}

	case focusEstimate:
		var cmd tea.Cmd
		m.estimate, cmd = m.estimate.Update(msg)
		if strings.TrimSpace(m.estimate.Value()) != "" {
			m.estOn = true
		}
		return m, cmd

	case focusField:
		if cur.row >= len(m.fields) {
			return m, nil
		}
		fc := &m.fields[cur.row]
		if fc.row.Control == popup.ControlSelect {
			n := len(fc.row.Choices)
			switch msg.String() {
			case "left", "up":
				fc.choice = (fc.choice - 1 + n) % n
			case "right", "down", " ":
				fc.choice = (fc.choice + 1) % n
			}
			return m, nil
		}
		var cmd tea.Cmd
		fc.input, cmd = fc.input.Update(msg)
		return m, cmd

	case focusAdd:
		if msg.String() == "enter" || msg.String() == " " {
			return m.submit()
		}
	}
	return m, nil
}
