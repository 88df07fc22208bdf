package popup

import (
	"context"
	"sync"

	"bugshot-cli/internal/model"
)

// projectsFuture is resolved exactly once, by a cache hit or a fetch.
type projectsFuture struct {
	once     sync.Once
	done     chan struct{}
	projects []model.Project
	err      error
}

func newProjectsFuture() *projectsFuture {
	return &projectsFuture{done: make(chan struct{})}
}

func (f *projectsFuture) resolve(projects []model.Project, err error) {
	f.once.Do(func() {
		f.projects = projects
		f.err = err
		close(f.done)
	})
}

func (f *projectsFuture) Wait(ctx context.Context) ([]model.Project, error) {
	select {
	case <-f.done:
		return f.projects, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Peek returns the projects if the future resolved without error.
func (f *projectsFuture) Peek() ([]model.Project, bool) {
	select {
	case <-f.done:
		return f.projects, f.err == nil
	default:
		return nil, false
	}
}

// loadProjects resolves f from the session cache, or fetches, filters and caches the list.
func (c *Controller) loadProjects(ctx context.Context, f *projectsFuture, api API, opts model.Options, sessionKey string) {
	if c.deps.Sessions != nil && sessionKey != "" {
		so, ok, err := c.deps.Sessions.Load(ctx, sessionKey)
		switch {
		case err != nil:
			c.log.Warn().Err(err).Msg("session cache unreadable; fetching projects")
		case ok:
			c.log.Debug().Int("projects", len(so.ClientProjects)).Msg("projects from session cache")
			c.projectsLoaded(f, so.ClientProjects, opts)
			return
		}
	}

	all, err := api.Projects(ctx)
	if err != nil {
		f.resolve(nil, err)
		c.reportError("projects", err)
		return
	}
	projects, err := FilterProjects(all, opts.ProjectFilter)
	if err != nil {
		f.resolve(nil, err)
		c.reportError("projects", err)
		return
	}
	if c.deps.Sessions != nil && sessionKey != "" {
		if err := c.deps.Sessions.Save(ctx, sessionKey, model.SessionOptions{ClientProjects: projects}); err != nil {
			c.log.Warn().Err(err).Msg("session cache not saved")
		}
	}
	c.projectsLoaded(f, projects, opts)
}

func (c *Controller) projectsLoaded(f *projectsFuture, projects []model.Project, opts model.Options) {
	c.mu.Lock()
	if c.selectedProjectID == 0 {
		c.selectedProjectID = defaultProject(projects, opts)
	}
	c.mu.Unlock()
	f.resolve(projects, nil)
}

// defaultProject picks the saved default, then the tracking project, then the first listed.
func defaultProject(projects []model.Project, opts model.Options) int64 {
	for _, want := range []int64{opts.DefaultProjectID, opts.TrackingProjectID} {
		if want == 0 {
			continue
		}
		for _, p := range projects {
			if p.ID == want {
				return p.ID
			}
		}
	}
	if len(projects) > 0 {
		return projects[0].ID
	}
	return 0
}

// Projects waits for the project list.
func (c *Controller) Projects(ctx context.Context) ([]model.Project, error) {
	c.mu.Lock()
	f := c.projects
	c.mu.Unlock()
	if f == nil {
		return nil, ErrNotReady
	}
	return f.Wait(ctx)
}

// SelectProject makes id the selected and saved default project. Choosing a project other
// than the saved default logs ChangedWorkspace once per session.
func (c *Controller) SelectProject(ctx context.Context, id int64) error {
	projects, err := c.Projects(ctx)
	if err != nil {
		return err
	}
	var picked *model.Project
	for i := range projects {
		if projects[i].ID == id {
			picked = &projects[i]
			break
		}
	}
	if picked == nil {
		return &ValidationError{Field: "project", Message: "unknown project"}
	}

	c.mu.Lock()
	c.selectedProjectID = id
	changed := id != c.opts.DefaultProjectID
	logChange := changed && !c.hasReassigned
	if logChange {
		c.hasReassigned = true
	}
	c.opts.DefaultProjectID = id
	if ws := picked.WorkspaceID(); ws != 0 {
		c.opts.DefaultWorkspaceID = ws
	}
	opts := c.opts
	c.mu.Unlock()

	if logChange {
		c.logEvent("ChangedWorkspace")
	}
	if !changed {
		return nil
	}
	return c.deps.Options.SaveOptions(opts)
}
