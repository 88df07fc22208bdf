package cli

import (
	"bugshot-cli/internal/model"
	"bugshot-cli/internal/popup"
	"bugshot-cli/internal/store"

	"github.com/spf13/cobra"
)

func newProjectsCmd(app *App) *cobra.Command {
	var (
		refresh bool
		all     bool
	)

	cmd := &cobra.Command{
		Use:   "projects",
		Short: "List the projects offered in the popup (filtered by project_filter)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, opts, err := loadOptions(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			auth, err := app.authenticate(ctx, opts)
			if err != nil {
				return writeErr(cmd, err)
			}
			key := store.SessionKey(auth.Credential())
			cache := s.SessionCache()

			if all {
				if !refresh {
					return writeErr(cmd, errBadArg("all", "only valid with --refresh"))
				}
				if err := cache.Clear(ctx); err != nil {
					return writeErr(cmd, err)
				}
			}

			if !refresh {
				so, ok, err := cache.Load(ctx, key)
				if err != nil {
					return writeErr(cmd, err)
				}
				if ok {
					return writeOut(cmd, app, map[string]any{
						"data": so.ClientProjects,
						"meta": map[string]any{"source": "cache"},
					})
				}
			}

			all, err := app.newClient(opts, auth).Projects(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			projects, err := popup.FilterProjects(all, opts.ProjectFilter)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := cache.Save(ctx, key, model.SessionOptions{ClientProjects: projects}); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{
				"data": projects,
				"meta": map[string]any{"source": "api"},
			})
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "Ignore the session cache and refetch")
	cmd.Flags().BoolVar(&all, "all", false, "With --refresh, also drop the cached lists of other login sessions")
	return cmd
}
