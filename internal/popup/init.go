package popup

import (
	"context"
	"fmt"
	"strings"

	"bugshot-cli/internal/asana"
	"bugshot-cli/internal/bridge"
	"bugshot-cli/internal/model"
	"bugshot-cli/internal/store"

	"golang.org/x/sync/errgroup"
)

// Init runs the startup sequence: tab context, options, login check, then either the login
// view or the add view. It returns the first error; the message is also kept for display.
func (c *Controller) Init(ctx context.Context) error {
	c.mu.Lock()
	if c.view != ViewLoading || c.api != nil {
		c.mu.Unlock()
		return fmt.Errorf("init: already initialized")
	}
	c.mu.Unlock()

	tc, quick, err := c.readTab(ctx)
	if err != nil {
		c.reportError("tab", err)
		return fmt.Errorf("read tab: %w", err)
	}

	opts, err := c.deps.Options.LoadOptions()
	if err != nil {
		c.reportError("options", err)
		return fmt.Errorf("load options: %w", err)
	}
	opts = opts.WithDefaults()

	c.mu.Lock()
	c.tab = tc
	c.quickAdd = quick
	c.opts = opts
	c.draft = model.TaskDraft{}
	c.mu.Unlock()

	auth, err := c.checkLogin(ctx, opts)
	if err != nil {
		c.reportError("login", err)
		return fmt.Errorf("check login: %w", err)
	}
	if auth.Empty() {
		c.log.Info().Msg("not logged in")
		c.setView(ViewLogin)
		return nil
	}
	return c.startAdd(ctx, opts, auth, quick)
}

// readTab returns the active tab, or the quick-add context with the browser's screenshot when
// one can be taken.
func (c *Controller) readTab(ctx context.Context) (model.TabContext, bool, error) {
	if c.deps.QuickAdd != nil {
		tc := *c.deps.QuickAdd
		if c.deps.Tabs != nil && tc.ScreenshotDataURI == "" {
			active, err := c.deps.Tabs.Active(ctx)
			if err != nil {
				c.log.Debug().Err(err).Msg("no screenshot for quick-add")
			} else {
				tc.ScreenshotDataURI = active.ScreenshotDataURI
			}
		}
		return tc, true, nil
	}
	tc, err := c.deps.Tabs.Active(ctx)
	return tc, false, err
}

// checkLogin returns empty Auth when there is neither a token nor a login cookie.
func (c *Controller) checkLogin(ctx context.Context, opts model.Options) (asana.Auth, error) {
	if tok := strings.TrimSpace(c.deps.Token); tok != "" {
		return asana.Auth{Token: tok}, nil
	}
	if c.deps.Tabs == nil {
		return asana.Auth{}, nil
	}
	cookie, err := c.deps.Tabs.Cookie(ctx, opts.BaseURL(), model.LoginCookieName)
	if err != nil {
		return asana.Auth{}, err
	}
	return asana.Auth{Cookie: cookie}, nil
}

func (c *Controller) startAdd(ctx context.Context, opts model.Options, auth asana.Auth, quick bool) error {
	api := c.deps.NewAPI(opts, auth)
	events := asana.NewEventLogger(api, c.deps.EventsPerSecond, c.deps.EventBurst)
	key := store.SessionKey(auth.Credential())
	future := newProjectsFuture()

	c.mu.Lock()
	c.api = api
	c.events = events
	c.sessionKey = key
	c.projects = future
	c.mu.Unlock()

	if quick {
		events.Log("Open-QuickAdd")
	} else {
		events.Log("Open-Button")
		c.listenForSelection()
	}

	go c.loadProjects(c.bg, future, api, opts, key)

	var (
		me         model.User
		workspaces []model.Workspace
		fields     []model.CustomFieldDescriptor
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		u, err := api.Me(gctx)
		if err != nil {
			return fmt.Errorf("me: %w", err)
		}
		me = u
		return nil
	})
	g.Go(func() error {
		ws, err := api.Workspaces(gctx)
		if err != nil {
			return fmt.Errorf("workspaces: %w", err)
		}
		workspaces = ws
		return nil
	})
	if opts.TrackingProjectID != 0 {
		g.Go(func() error {
			fs, err := api.CustomFields(gctx, opts.TrackingProjectID)
			if err != nil {
				return fmt.Errorf("custom fields: %w", err)
			}
			fields = fs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		c.reportError("init", err)
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.me = me
	c.workspaces = workspaces
	c.buildFormLocked(fields)
	c.view = ViewAdd
	c.focusTitle = true
	return nil
}

// buildFormLocked builds the custom-field form once; later calls are ignored.
func (c *Controller) buildFormLocked(fields []model.CustomFieldDescriptor) {
	if c.formBuilt {
		return
	}
	c.fields = fields
	c.form = BuildForm(fields)
	c.formBuilt = true
	for _, d := range c.form.Skipped {
		c.log.Warn().Int64("field", d.ID).Str("name", d.Name).Str("type", string(d.Type)).Msg("custom field type not supported; skipped")
	}
}

// RebuildForm is a no-op once the form exists. It reports whether a form was built.
func (c *Controller) RebuildForm(fields []model.CustomFieldDescriptor) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	built := !c.formBuilt
	c.buildFormLocked(fields)
	return built
}

func (c *Controller) listenForSelection() {
	if c.deps.Hub == nil {
		return
	}
	ch, remove := bridge.OnceSelection(c.deps.Hub)
	c.mu.Lock()
	c.removeSelection = remove
	c.mu.Unlock()
	go func() {
		select {
		case v := <-ch:
			c.mu.Lock()
			c.selection = v
			c.tab.SelectedText = v
			c.mu.Unlock()
		case <-c.bg.Done():
		}
	}()
}

func (c *Controller) setView(v View) {
	c.mu.Lock()
	c.view = v
	c.mu.Unlock()
}
