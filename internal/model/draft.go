package model

// TaskDraft is the in-progress form state of a new task.
type TaskDraft struct {
	Title      string
	Notes      string
	ProjectIDs []int64

	// CustomFieldInputs holds raw form input keyed by field id. It is coerced into
	// FieldValue at submit time.
	CustomFieldInputs map[int64]string

	EstimateOn bool
	Estimate   string
}

func (d TaskDraft) IsBlank() bool {
	if d.Title != "" || d.Notes != "" || d.Estimate != "" || d.EstimateOn {
		return false
	}
	for _, v := range d.CustomFieldInputs {
		if v != "" {
			return false
		}
	}
	return true
}

// Clone returns a deep copy so a preserved draft cannot be mutated through the original.
func (d TaskDraft) Clone() TaskDraft {
	out := d
	if d.ProjectIDs != nil {
		out.ProjectIDs = append([]int64(nil), d.ProjectIDs...)
	}
	if d.CustomFieldInputs != nil {
		out.CustomFieldInputs = make(map[int64]string, len(d.CustomFieldInputs))
		for k, v := range d.CustomFieldInputs {
			out.CustomFieldInputs[k] = v
		}
	}
	return out
}

// NewTask is the create-task request body.
type NewTask struct {
	Name         string         `json:"name"`
	Notes        string         `json:"notes"`
	Projects     []int64        `json:"projects"`
	CustomFields map[string]any `json:"custom_fields,omitempty"`
}
