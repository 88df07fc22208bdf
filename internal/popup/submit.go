package popup

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"bugshot-cli/internal/asana"
	"bugshot-cli/internal/model"
	"bugshot-cli/internal/tab"
)

const attachmentTimeout = 2 * time.Minute

// A leading "[3]", "[0.5]" or "[?]" left over from an earlier normalization.
var estimateSegRe = regexp.MustCompile(`^\[(\?|\d+(\.\d+)?)\]\s*`)

// EstimateSegment is "[<estimate>]" when on, "[?]" otherwise.
func EstimateSegment(on bool, estimate string) string {
	estimate = strings.TrimSpace(estimate)
	if !on || estimate == "" {
		return "[?]"
	}
	return "[" + estimate + "]"
}

// NormalizeTitle returns "<prefix> <seg> <rest>", with empty parts left out. Leading copies of
// prefix are collapsed into one. A title that carries prefix elsewhere gets no second one, and
// becomes "<seg> <rest>".
func NormalizeTitle(title, prefix, seg string) string {
	t := strings.TrimSpace(title)
	p := strings.TrimSpace(prefix)

	// Leading prefixes (any case) and estimate segments may repeat or interleave.
	for {
		before := t
		for p != "" && hasPrefixFold(t, p) {
			t = strings.TrimSpace(t[len(p):])
		}
		if seg != "" {
			t = estimateSegRe.ReplaceAllString(t, "")
		}
		if t == before {
			break
		}
	}
	addPrefix := p != ""
	if addPrefix && strings.Contains(t, p) {
		addPrefix = false
	}

	parts := make([]string, 0, 3)
	if addPrefix {
		parts = append(parts, p)
	}
	if seg != "" {
		parts = append(parts, seg)
	}
	if t != "" {
		parts = append(parts, t)
	}
	return strings.Join(parts, " ")
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

// CoerceFields converts raw inputs for the form's rows into typed values. Empty inputs and
// inputs for fields not on the form are left out.
func CoerceFields(form Form, inputs map[int64]string) (map[int64]model.FieldValue, error) {
	out := map[int64]model.FieldValue{}
	for _, row := range form.Rows {
		raw := inputs[row.FieldID]
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}
		switch row.FieldType {
		case model.FieldEnum:
			n, err := strconv.ParseInt(trimmed, 10, 64)
			if err != nil {
				return nil, &ValidationError{Field: row.Label, Message: "choose one of the listed options"}
			}
			if n == 0 {
				continue
			}
			if !hasChoice(row, n) {
				return nil, &ValidationError{Field: row.Label, Message: "choose one of the listed options"}
			}
			out[row.FieldID] = model.EnumValue(n)
		case model.FieldNumber:
			n, err := strconv.ParseInt(trimmed, 10, 64)
			if err != nil {
				return nil, &ValidationError{Field: row.Label, Message: fmt.Sprintf("%q is not a whole number", trimmed)}
			}
			out[row.FieldID] = model.NumberValue(n)
		case model.FieldText:
			out[row.FieldID] = model.TextValue(raw)
		}
	}
	return out, nil
}

func hasChoice(row Row, id int64) bool {
	for _, c := range row.Options() {
		if c.ID == id {
			return true
		}
	}
	return false
}

// BuildTask turns a draft into the create-task request.
func BuildTask(d model.TaskDraft, form Form, opts model.Options) (model.NewTask, error) {
	if strings.TrimSpace(d.Title) == "" {
		return model.NewTask{}, &ValidationError{Field: "title", Message: "enter a title"}
	}
	if len(d.ProjectIDs) == 0 {
		return model.NewTask{}, &ValidationError{Field: "project", Message: "choose a project"}
	}
	seg := ""
	if opts.Estimates() {
		seg = EstimateSegment(d.EstimateOn, d.Estimate)
	}
	values, err := CoerceFields(form, d.CustomFieldInputs)
	if err != nil {
		return model.NewTask{}, err
	}
	return model.NewTask{
		Name:         NormalizeTitle(d.Title, opts.TitlePrefix, seg),
		Notes:        d.Notes,
		Projects:     d.ProjectIDs,
		CustomFields: model.CustomFieldPayload(values),
	}, nil
}

// ProjectIDs lists the tracking project first, then the selection, without zeros or repeats.
func ProjectIDs(ids ...int64) []int64 {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		dup := false
		for _, have := range out {
			if have == id {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, id)
		}
	}
	return out
}

type SubmitResult struct {
	Task model.Task
	URL  string
}

// Submit files d. Only one submission runs at a time; a concurrent call returns
// ErrSubmitInFlight without touching the API. On success the draft resets and the title gets
// focus; on failure the draft is kept and the message is shown inline.
func (c *Controller) Submit(ctx context.Context, d model.TaskDraft) (SubmitResult, error) {
	c.mu.Lock()
	if c.submitting {
		c.mu.Unlock()
		return SubmitResult{}, ErrSubmitInFlight
	}
	if c.api == nil || (c.view != ViewAdd && c.view != ViewSuccess) {
		c.mu.Unlock()
		return SubmitResult{}, ErrNotReady
	}
	c.submitting = true
	c.view = ViewSubmitting
	c.errMsg = ""
	d = d.Clone()
	c.draft = d.Clone()
	api := c.api
	opts := c.opts
	form := c.form
	tc := c.tab
	firstAdd := c.isFirstAdd
	if len(d.ProjectIDs) == 0 {
		d.ProjectIDs = ProjectIDs(opts.TrackingProjectID, c.selectedProjectID)
	}
	workspaceID := c.workspaceLocked(d.ProjectIDs)
	c.mu.Unlock()

	if !firstAdd {
		c.logEvent("CreateTask-MultipleTasks")
	}

	req, err := BuildTask(d, form, opts)
	if err == nil && workspaceID == 0 {
		err = &ValidationError{Field: "workspace", Message: "no workspace available"}
	}
	if err != nil {
		c.submitFailed(err)
		return SubmitResult{}, err
	}

	task, err := api.CreateTask(ctx, workspaceID, req)
	if err != nil {
		c.log.Error().Err(err).Int64("workspace", workspaceID).Msg("create task failed")
		c.logEvent("CreateTask-Failure")
		c.submitFailed(err)
		return SubmitResult{}, fmt.Errorf("create task: %w", err)
	}

	url := opts.TaskViewURL(task)
	c.mu.Lock()
	c.submitting = false
	c.view = ViewSuccess
	t := task
	c.lastTask = &t
	c.lastURL = url
	c.draft = model.TaskDraft{}
	c.focusTitle = true
	c.hasEditedName = true
	c.hasEditedNotes = true
	c.hasReassigned = true
	c.isFirstAdd = false
	c.mu.Unlock()

	c.log.Info().Int64("task", task.ID).Msg("task created")
	c.logEvent("CreateTask-Success")
	c.attach(task, tc, opts)
	return SubmitResult{Task: task, URL: url}, nil
}

func (c *Controller) submitFailed(err error) {
	msg := asana.UserMessage(err)
	c.mu.Lock()
	c.submitting = false
	c.view = ViewAdd
	c.errMsg = msg
	c.mu.Unlock()
}

// workspaceLocked resolves the workspace to create in from the selected projects, the saved
// default, then the first workspace of the account.
func (c *Controller) workspaceLocked(ids []int64) int64 {
	if c.projects != nil {
		if ps, ok := c.projects.Peek(); ok {
			for _, id := range ids {
				for _, p := range ps {
					if p.ID == id && p.WorkspaceID() != 0 {
						return p.WorkspaceID()
					}
				}
			}
		}
	}
	if c.opts.DefaultWorkspaceID != 0 {
		return c.opts.DefaultWorkspaceID
	}
	if len(c.workspaces) > 0 {
		return c.workspaces[0].ID
	}
	return 0
}

// attach uploads the screenshot (and the page link when enabled) in the background.
// Failures are logged only.
func (c *Controller) attach(task model.Task, tc model.TabContext, opts model.Options) {
	c.mu.Lock()
	api := c.api
	c.mu.Unlock()

	if tc.HasScreenshot() {
		c.uploads.Add(1)
		go func() {
			defer c.uploads.Done()
			ctx, cancel := context.WithTimeout(c.bg, attachmentTimeout)
			defer cancel()
			if err := uploadScreenshot(ctx, api, task.ID, tc.ScreenshotDataURI); err != nil {
				c.log.Warn().Err(err).Int64("task", task.ID).Msg("screenshot not attached")
			}
		}()
	}
	if opts.AttachPageLink && strings.TrimSpace(tc.URL) != "" {
		c.uploads.Add(1)
		go func() {
			defer c.uploads.Done()
			ctx, cancel := context.WithTimeout(c.bg, attachmentTimeout)
			defer cancel()
			name := strings.TrimSpace(tc.Title)
			if name == "" {
				name = tc.URL
			}
			if _, err := api.AttachURI(ctx, task.ID, tc.URL, name); err != nil {
				c.log.Warn().Err(err).Int64("task", task.ID).Msg("page link not attached")
			}
		}()
	}
}

func uploadScreenshot(ctx context.Context, api API, taskID int64, dataURI string) error {
	blob, err := tab.ParseDataURI(dataURI)
	if err != nil {
		return fmt.Errorf("decode screenshot: %w", err)
	}
	if blob.Len() == 0 {
		return errors.New("decode screenshot: empty image")
	}
	_, err = api.UploadAttachment(ctx, taskID, blob.Filename("screenshot"), blob.MIMEType, blob.Data)
	return err
}

// WaitUploads blocks until background attachment uploads finish or ctx is done.
func (c *Controller) WaitUploads(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.uploads.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AddAnother returns from the success view to a blank add form.
func (c *Controller) AddAnother() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.view != ViewSuccess {
		return
	}
	c.view = ViewAdd
	c.draft = model.TaskDraft{}
	c.focusTitle = true
	c.errMsg = ""
}
