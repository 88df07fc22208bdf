package cli

import (
	"strconv"

	"bugshot-cli/internal/model"

	"github.com/spf13/cobra"
)

func newWorkspacesCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "workspaces",
		Short: "List workspaces",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, _, err := app.client(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			ws, err := c.Workspaces(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": ws})
		},
	}
}

func newUsersCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "users <workspace-id>",
		Short: "List users of a workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return writeErr(cmd, errBadArg("workspace-id", strconv.Quote(args[0])))
			}
			c, _, _, err := app.client(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			users, err := c.Users(cmd.Context(), id)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": users})
		},
	}
}

func newWhoamiCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, auth, err := app.client(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			me, err := c.Me(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			via := "cookie"
			if auth.Token != "" {
				via = "token"
			}
			return writeOut(cmd, app, map[string]any{"data": me, "meta": map[string]any{"auth": via}})
		},
	}
}

func newLoginCmd(app *App) *cobra.Command {
	return newOpenPageCmd(app, "login", "Open the Asana login page", model.Options.LoginURL)
}

func newSignupCmd(app *App) *cobra.Command {
	return newOpenPageCmd(app, "signup", "Open the Asana signup page", model.Options.SignupURL)
}

func newOpenPageCmd(app *App, use, short string, pick func(model.Options) string) *cobra.Command {
	var printOnly bool
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, opts, err := loadOptions(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			u := pick(opts)
			opened := false
			if !printOnly && !app.NoBrowser {
				if err := openURL(u); err != nil {
					return writeErr(cmd, err)
				}
				opened = true
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"url": u, "opened": opened}})
		},
	}
	cmd.Flags().BoolVar(&printOnly, "print", false, "Print the URL without opening it")
	return cmd
}
