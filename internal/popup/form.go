package popup

import (
	"regexp"
	"sort"
	"strings"

	"bugshot-cli/internal/model"

	"github.com/gobwas/glob"
)

type ControlKind int

const (
	ControlSelect ControlKind = iota
	ControlInput
)

// Choice is one entry of a select control. The leading "--" entry is a placeholder
// and never submits a value.
type Choice struct {
	ID          int64
	Label       string
	Placeholder bool
}

// Row is one rendered custom field: a label and one input control.
type Row struct {
	FieldID   int64
	FieldType model.CustomFieldType
	Label     string
	InputID   string
	Control   ControlKind
	// InputType is "number" or "text" for ControlInput rows.
	InputType string
	Choices   []Choice
}

// Options returns the selectable (non-placeholder) choices of a select row.
func (r Row) Options() []Choice {
	out := make([]Choice, 0, len(r.Choices))
	for _, c := range r.Choices {
		if !c.Placeholder {
			out = append(out, c)
		}
	}
	return out
}

type Form struct {
	Rows []Row
	// Skipped holds descriptors whose type has no control.
	Skipped []model.CustomFieldDescriptor
}

func (f Form) Row(fieldID int64) (Row, bool) {
	for _, r := range f.Rows {
		if r.FieldID == fieldID {
			return r, true
		}
	}
	return Row{}, false
}

var (
	nonWordRe   = regexp.MustCompile(`\W`)
	dashRunRe   = regexp.MustCompile(`-{2,}`)
	placeholder = Choice{Label: "--", Placeholder: true}
)

// Handelize turns a field name into an id-safe slug ("Browser Version" -> "browser-version").
func Handelize(name string) string {
	s := strings.ToLower(name)
	s = nonWordRe.ReplaceAllString(s, "-")
	return dashRunRe.ReplaceAllString(s, "-")
}

// BuildForm creates one row per descriptor, in order. Enum fields get a select of their
// enabled options; number and text fields get a typed input; anything else is skipped.
func BuildForm(descs []model.CustomFieldDescriptor) Form {
	var f Form
	for _, d := range descs {
		slug := Handelize(d.Name)
		row := Row{
			FieldID:   d.ID,
			FieldType: d.Type,
			Label:     d.Name,
			InputID:   slug + "-input",
		}
		switch d.Type {
		case model.FieldEnum:
			row.Control = ControlSelect
			row.Choices = append(row.Choices, placeholder)
			for _, o := range d.EnabledOptions() {
				row.Choices = append(row.Choices, Choice{ID: o.ID, Label: o.Name})
			}
		case model.FieldNumber, model.FieldText:
			row.Control = ControlInput
			row.InputType = string(d.Type)
		default:
			f.Skipped = append(f.Skipped, d)
			continue
		}
		f.Rows = append(f.Rows, row)
	}
	return f
}

// ProjectSelector describes how the project picker is shown.
type ProjectSelector struct {
	Visible  bool
	Label    string
	Projects []model.Project
}

// NewProjectSelector: no projects shows a hidden "N/A", one project shows its name hidden,
// more than one shows a dropdown.
func NewProjectSelector(projects []model.Project) ProjectSelector {
	switch len(projects) {
	case 0:
		return ProjectSelector{Visible: false, Label: "N/A"}
	case 1:
		return ProjectSelector{Visible: false, Label: projects[0].Name, Projects: projects}
	default:
		return ProjectSelector{Visible: true, Projects: projects}
	}
}

// FilterProjects drops archived projects and those whose name does not match pattern
// (case-insensitive glob), then sorts by name.
func FilterProjects(projects []model.Project, pattern string) ([]model.Project, error) {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		pattern = model.DefaultProjectFilter
	}
	g, err := glob.Compile(strings.ToLower(pattern))
	if err != nil {
		return nil, &ValidationError{Field: "project_filter", Message: "invalid pattern: " + err.Error()}
	}
	out := make([]model.Project, 0, len(projects))
	for _, p := range projects {
		if p.Archived {
			continue
		}
		if !g.Match(strings.ToLower(p.Name)) {
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := strings.ToLower(out[i].Name), strings.ToLower(out[j].Name)
		if a != b {
			return a < b
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
