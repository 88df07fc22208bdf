package cli

import (
	"context"
	"strings"
	"time"

	"bugshot-cli/internal/bridge"
	"bugshot-cli/internal/logging"
	"bugshot-cli/internal/model"
	"bugshot-cli/internal/popup"
	"bugshot-cli/internal/tui"

	"github.com/spf13/cobra"
)

type tuiFlags struct {
	URL       string
	Title     string
	Selection string
	Favicon   string
	Bridge    string
}

// quickAdd returns the page context given on the command line, or nil when none was.
func (f tuiFlags) quickAdd() *model.TabContext {
	tc := model.TabContext{
		URL:          strings.TrimSpace(f.URL),
		Title:        strings.TrimSpace(f.Title),
		SelectedText: strings.TrimSpace(f.Selection),
		FaviconURL:   strings.TrimSpace(f.Favicon),
	}
	if tc == (model.TabContext{}) {
		return nil
	}
	return &tc
}

func runTUI(cmd *cobra.Command, app *App, tf tuiFlags) error {
	s, opts, err := loadOptions(app)
	if err != nil {
		return writeErr(cmd, err)
	}
	reader := app.newReader(opts)
	defer reader.Close()

	deps := app.popupDeps(s, reader)
	deps.QuickAdd = tf.quickAdd()

	if addr := strings.TrimSpace(tf.Bridge); addr != "" {
		hub := bridge.NewHub()
		srv, err := bridge.Listen(addr, hub)
		if err != nil {
			return writeErr(cmd, err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
		deps.Hub = hub
		log := logging.For("cli")
		log.Info().Str("bookmarklet", bridge.Bookmarklet(srv.Addr())).Msg("selection bridge ready")
	}

	return tui.Run(popup.New(deps))
}
