package tui

import (
	"fmt"
	"strings"

	"bugshot-cli/internal/model"
	"bugshot-cli/internal/popup"

	"github.com/charmbracelet/lipgloss"
)

func (m appModel) View() string {
	w := m.width
	if w <= 0 {
		w = 80
	}
	var b strings.Builder
	b.WriteString(m.viewHeader(w))
	b.WriteString("\n\n")

	switch m.state.View {
	case popup.ViewLoading:
		b.WriteString(m.spinner.View() + " Loading…")
		if m.state.Error != "" {
			b.WriteString("\n\n" + styleError().Render(truncate(m.state.Error, w-2)))
			b.WriteString("\n\n" + styleMuted().Render(helpLine(m.keys.Close)))
		}
	case popup.ViewLogin:
		b.WriteString(m.viewLogin(w))
	case popup.ViewAdd:
		b.WriteString(m.viewAdd(w))
	case popup.ViewSubmitting:
		b.WriteString(m.spinner.View() + " Adding task…")
	case popup.ViewSuccess:
		b.WriteString(m.viewSuccess(w))
	}
	if m.flash != "" {
		b.WriteString("\n\n" + styleMuted().Render(truncate(m.flash, w)))
	}
	return b.String()
}

func (m appModel) viewHeader(w int) string {
	left := styleHeader().Render("bugshot")
	if name := strings.TrimSpace(m.state.User.Name); name != "" {
		left += styleMuted().Render("  " + name)
	}
	return truncate(left, w)
}

func (m appModel) viewLogin(w int) string {
	lines := []string{
		"You are not logged in.",
		"",
		styleMuted().Render(truncate("Log in:  "+m.state.LoginURL, w)),
		styleMuted().Render(truncate("Sign up: "+m.state.SignupURL, w)),
		"",
		styleMuted().Render(helpLine(m.keys.Login, m.keys.Signup, m.keys.Close)),
	}
	return strings.Join(lines, "\n")
}

// pageMarkdown renders the captured tab as a short markdown card.
func pageMarkdown(tc model.TabContext, selection string) string {
	var b strings.Builder
	title := strings.TrimSpace(tc.Title)
	if title == "" {
		title = "Untitled page"
	}
	b.WriteString("**" + escapeMarkdown(title) + "**\n\n")
	if tc.URL != "" {
		b.WriteString(escapeMarkdown(tc.URL) + "\n")
	}
	if sel := strings.TrimSpace(selection); sel != "" {
		b.WriteString("\n> " + escapeMarkdown(strings.ReplaceAll(sel, "\n", " ")) + "\n")
	}
	if tc.HasScreenshot() {
		b.WriteString("\n_screenshot attached_\n")
	}
	return b.String()
}

func (m appModel) focused(kind focusKind, row int) bool {
	cur := m.current()
	return cur.kind == kind && (kind != focusField || cur.row == row)
}

func (m appModel) viewAdd(w int) string {
	inner := w - 4
	if inner < 10 {
		inner = 10
	}
	var out []string
	if m.state.Error != "" {
		out = append(out, styleError().Render(truncate(m.state.Error, w-2)), "")
	}

	sel := m.state.Selection
	if sel == "" {
		sel = m.state.Tab.SelectedText
	}
	page := renderMarkdown(pageMarkdown(m.state.Tab, sel), inner)
	out = append(out, stylePanel().Width(inner).Render(clampLines(page, inner)), "")

	out = append(out, m.viewProject(w))
	out = append(out,
		styleLabel(m.focused(focusTitle, 0)).Render("Title"),
		m.title.View(),
		styleLabel(m.focused(focusNotes, 0)).Render("Notes"),
		m.notes.View(),
		styleButton(m.focused(focusPageDetails, 0), m.state.PageDetails).Render("Use page details"),
	)

	if m.state.Options.Estimates() {
		box := "[ ]"
		if m.estOn {
			box = "[x]"
		}
		toggle := styleLabel(m.focused(focusEstimateToggle, 0)).Render(box + " Estimate")
		out = append(out, "", lipgloss.JoinHorizontal(lipgloss.Top, toggle, "  ", m.estimate.View()))
	}

	if len(m.fields) > 0 {
		out = append(out, "")
	}
	for i, fc := range m.fields {
		label := styleLabel(m.focused(focusField, i)).Render(fc.row.Label)
		var control string
		switch fc.row.Control {
		case popup.ControlSelect:
			choice := "--"
			if fc.choice >= 0 && fc.choice < len(fc.row.Choices) {
				choice = fc.row.Choices[fc.choice].Label
			}
			control = "‹ " + choice + " ›"
		default:
			control = fc.input.View()
		}
		out = append(out, truncate(label+"  "+control, w))
	}

	out = append(out, "", styleButton(m.focused(focusAdd, 0), true).Render("Add task"))
	out = append(out, "", styleMuted().Render(truncate(helpLine(m.keys.Next, m.keys.Submit, m.keys.PageDetails, m.keys.Close), w)))
	return strings.Join(out, "\n")
}

func (m appModel) viewProject(w int) string {
	label := styleLabel(m.focused(focusProject, 0)).Render("Project")
	if !m.state.ProjectsReady {
		return label + "  " + m.spinner.View()
	}
	sel := m.state.Projects
	if !sel.Visible {
		return truncate(label+"  "+styleMuted().Render(sel.Label), w)
	}
	name := ""
	if m.project < len(sel.Projects) {
		name = sel.Projects[m.project].Name
	}
	return truncate(fmt.Sprintf("%s  ‹ %s ›", label, name), w)
}

func (m appModel) viewSuccess(w int) string {
	text := "Task added"
	if m.state.Task != nil {
		text += ": " + popup.TaskLinkText(*m.state.Task)
	}
	lines := []string{
		styleSuccess().Render(truncate(text, w)),
		styleMuted().Render(truncate(m.state.TaskURL, w)),
		"",
		styleMuted().Render(truncate(helpLine(m.keys.OpenTask, m.keys.CopyLink, m.keys.AddAnother, m.keys.Close), w)),
	}
	return strings.Join(lines, "\n")
}
