package cli

import (
	"context"
	"io"
	"strings"

	"bugshot-cli/internal/asana"
	"bugshot-cli/internal/model"
	"bugshot-cli/internal/popup"
	"bugshot-cli/internal/store"
	"bugshot-cli/internal/tab"

	"github.com/pkg/browser"
)

func init() {
	// pkg/browser echoes the launcher's output; keep it off the terminal.
	browser.Stdout = io.Discard
	browser.Stderr = io.Discard
}

func openStore(app *App) (store.Store, error) {
	return store.Open(app.ConfigDir)
}

func loadOptions(app *App) (store.Store, model.Options, error) {
	s, err := openStore(app)
	if err != nil {
		return store.Store{}, model.Options{}, err
	}
	opts, err := s.LoadOptions()
	if err != nil {
		return s, model.Options{}, err
	}
	return s, opts.WithDefaults(), nil
}

func (app *App) apiBase(opts model.Options) string {
	if u := strings.TrimRight(strings.TrimSpace(app.APIURL), "/"); u != "" {
		return u
	}
	return opts.APIBaseURL()
}

func (app *App) newClient(opts model.Options, auth asana.Auth) *asana.Client {
	return asana.NewClient(app.apiBase(opts), auth)
}

// newReader returns the browser tab reader, or a static one when the browser is off.
func (app *App) newReader(opts model.Options) tab.Reader {
	if app.NoBrowser {
		return tab.Static{}
	}
	return tab.NewPlaywrightReader(opts.CDPEndpoint)
}

// authenticate resolves credentials the same way the popup does: token first, then the
// browser's login cookie.
func (app *App) authenticate(ctx context.Context, opts model.Options) (asana.Auth, error) {
	if tok := strings.TrimSpace(app.Token); tok != "" {
		return asana.Auth{Token: tok}, nil
	}
	if app.NoBrowser {
		return asana.Auth{}, errNotLoggedIn
	}
	r := app.newReader(opts)
	defer r.Close()
	cookie, err := r.Cookie(ctx, opts.BaseURL(), model.LoginCookieName)
	if err != nil {
		return asana.Auth{}, err
	}
	if cookie == "" {
		return asana.Auth{}, errNotLoggedIn
	}
	return asana.Auth{Cookie: cookie}, nil
}

// client loads options and returns an authenticated API client.
func (app *App) client(ctx context.Context) (*asana.Client, model.Options, asana.Auth, error) {
	_, opts, err := loadOptions(app)
	if err != nil {
		return nil, model.Options{}, asana.Auth{}, err
	}
	auth, err := app.authenticate(ctx, opts)
	if err != nil {
		return nil, opts, asana.Auth{}, err
	}
	return app.newClient(opts, auth), opts, auth, nil
}

func openURL(url string) error {
	return browser.OpenURL(url)
}

// popupDeps wires a popup controller to the config dir, the browser and the API.
func (app *App) popupDeps(s store.Store, reader tab.Reader) popup.Deps {
	return popup.Deps{
		Tabs:     reader,
		Options:  s,
		Sessions: s.SessionCache(),
		NewAPI: func(opts model.Options, auth asana.Auth) popup.API {
			return app.newClient(opts, auth)
		},
		Open:  openURL,
		Token: app.Token,
	}
}
