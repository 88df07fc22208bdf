// Package tab reads context from the user's active browser tab.
package tab

import (
	"context"
	"errors"

	"bugshot-cli/internal/model"
)

// Reader is the browser boundary: the active tab and the login cookie.
type Reader interface {
	// Active captures URL, title, selection, favicon and a screenshot of the active tab.
	Active(ctx context.Context) (model.TabContext, error)
	// Cookie returns the value of the named cookie for url, or "" when unset.
	Cookie(ctx context.Context, url, name string) (string, error)
	Close() error
}

var ErrNoActiveTab = errors.New("no active browser tab")

// Static serves a fixed tab context. It backs quick-add invocations (context supplied on the
// command line) and --no-browser runs.
type Static struct {
	Tab     model.TabContext
	Cookies map[string]string
}

func (s Static) Active(ctx context.Context) (model.TabContext, error) {
	if err := ctx.Err(); err != nil {
		return model.TabContext{}, err
	}
	return s.Tab, nil
}

func (s Static) Cookie(ctx context.Context, url, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.Cookies[name], nil
}

func (Static) Close() error { return nil }
