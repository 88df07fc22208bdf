package cli

import (
	"fmt"
	"os"
	"strings"

	"bugshot-cli/internal/format"

	"github.com/spf13/cobra"
)

type App struct {
	ConfigDir  string
	PrettyJSON bool
	Format     string

	// Token is an Asana personal access token. Without one the browser's login cookie is used.
	Token string
	// APIURL overrides the API base derived from asana_host_port.
	APIURL string
	// NoBrowser skips the CDP connection: no tab capture, no cookie login.
	NoBrowser bool
}

func NewRootCmd() *cobra.Command {
	app := &App{}
	var tf tuiFlags

	cmd := &cobra.Command{
		Use:          "bugshot",
		Short:        "File a bug about the page you are looking at",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Open the popup for the active browser tab
  bugshot

  # Quick-add with explicit page context
  bugshot --url https://example.com/cart --title "Cart" --selection "Error 500"

  # Scriptable filing
  bugshot file --title "Pay button dead" --notes "Steps..." --estimate 2
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, app, tf)
		},
	}

	cmd.PersistentFlags().StringVar(&app.ConfigDir, "config-dir", envOr("BUGSHOT_CONFIG_DIR", ""), "Config dir (default ~/.bugshot)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON/EDN output")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr("BUGSHOT_FORMAT", "json"), "Output format (json|edn|yaml)")
	cmd.PersistentFlags().StringVar(&app.Token, "token", envOr("BUGSHOT_ASANA_TOKEN", ""), "Asana access token (default: browser login cookie)")
	cmd.PersistentFlags().StringVar(&app.APIURL, "api-url", envOr("BUGSHOT_API_URL", ""), "API base URL override")
	cmd.PersistentFlags().BoolVar(&app.NoBrowser, "no-browser", false, "Do not connect to the browser")
	_ = cmd.PersistentFlags().MarkHidden("api-url")

	cmd.Flags().StringVar(&tf.URL, "url", "", "Quick-add: page URL")
	cmd.Flags().StringVar(&tf.Title, "title", "", "Quick-add: page title")
	cmd.Flags().StringVar(&tf.Selection, "selection", "", "Quick-add: selected text")
	cmd.Flags().StringVar(&tf.Favicon, "favicon", "", "Quick-add: favicon URL")
	cmd.Flags().StringVar(&tf.Bridge, "bridge", envOr("BUGSHOT_BRIDGE", ""), "Listen for page selections on this address (e.g. 127.0.0.1:7777)")

	cmd.AddCommand(newFileCmd(app))
	cmd.AddCommand(newProjectsCmd(app))
	cmd.AddCommand(newFieldsCmd(app))
	cmd.AddCommand(newWorkspacesCmd(app))
	cmd.AddCommand(newUsersCmd(app))
	cmd.AddCommand(newWhoamiCmd(app))
	cmd.AddCommand(newOptionsCmd(app))
	cmd.AddCommand(newLoginCmd(app))
	cmd.AddCommand(newSignupCmd(app))
	cmd.AddCommand(newDocsCmd(app))

	return cmd
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), v, app.Format, app.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
