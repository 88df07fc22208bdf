package popup

import (
	"context"
	"strings"
	"time"

	"bugshot-cli/internal/model"
)

// TaskLinkText is the label of the success link.
func TaskLinkText(t model.Task) string {
	if name := strings.TrimSpace(t.Name); name != "" {
		return name
	}
	return "Task"
}

// NoteTitleEdited records an edit of the title field. The first non-empty edit in a session
// logs ChangedTaskName.
func (c *Controller) NoteTitleEdited(title string) {
	c.mu.Lock()
	c.draft.Title = title
	c.focusTitle = false
	first := title != "" && !c.hasEditedName
	if first {
		c.hasEditedName = true
	}
	c.mu.Unlock()
	if first {
		c.logEvent("ChangedTaskName")
	}
}

func (c *Controller) NoteNotesEdited(notes string) {
	c.mu.Lock()
	c.draft.Notes = notes
	first := notes != "" && !c.hasEditedNotes
	if first {
		c.hasEditedNotes = true
	}
	c.mu.Unlock()
	if first {
		c.logEvent("ChangedTaskNotes")
	}
}

func pageDetailsAvailable(d model.TaskDraft) bool {
	return d.Title == "" && d.Notes == ""
}

// PageDetails returns the title and notes "use page details" would fill in: the page title,
// and the page URL followed by the selection when there is one.
func PageDetails(tc model.TabContext) (title, notes string) {
	notes = tc.URL
	if sel := strings.TrimSpace(tc.SelectedText); sel != "" {
		notes += "\n" + sel
	}
	return tc.Title, notes
}

// UsePageDetails fills d from the tab when its title and notes are both empty; otherwise d is
// returned unchanged.
func (c *Controller) UsePageDetails(d model.TaskDraft) model.TaskDraft {
	if !pageDetailsAvailable(d) {
		return d
	}
	c.mu.Lock()
	tc := c.tab
	first := !c.usedPageDetails
	c.usedPageDetails = true
	c.mu.Unlock()

	d = d.Clone()
	d.Title, d.Notes = PageDetails(tc)

	c.mu.Lock()
	c.draft = d.Clone()
	c.mu.Unlock()
	if first {
		c.logEvent("UsedPageDetails")
	}
	return d
}

func (c *Controller) open(url string) error {
	if c.deps.Open == nil || url == "" {
		return nil
	}
	return c.deps.Open(url)
}

// OpenLogin opens the login page in a new tab. The caller closes the popup afterwards.
func (c *Controller) OpenLogin() error {
	c.mu.Lock()
	u := c.opts.LoginURL()
	c.mu.Unlock()
	return c.open(u)
}

func (c *Controller) OpenSignup() error {
	c.mu.Lock()
	u := c.opts.SignupURL()
	c.mu.Unlock()
	return c.open(u)
}

// OpenTask opens the last created task.
func (c *Controller) OpenTask() error {
	c.mu.Lock()
	u := c.lastURL
	c.mu.Unlock()
	if u == "" {
		return ErrNoTask
	}
	return c.open(u)
}

// TaskURL is the view URL of the last created task, or "".
func (c *Controller) TaskURL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastURL
}

// Close ends the popup: logs Abort when nothing was added, drops the selection listener and
// waits (bounded by ctx) for attachment uploads and pending events.
func (c *Controller) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	abort := c.isFirstAdd && c.events != nil
	remove := c.removeSelection
	events := c.events
	c.mu.Unlock()

	if abort {
		c.logEvent("Abort")
	}
	if remove != nil {
		remove()
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
	}
	err := c.WaitUploads(ctx)
	done := make(chan struct{})
	go func() {
		events.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
	c.cancel()
	return err
}
