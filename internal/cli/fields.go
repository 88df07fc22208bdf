package cli

import (
	"strconv"

	"bugshot-cli/internal/popup"

	"github.com/spf13/cobra"
)

func newFieldsCmd(app *App) *cobra.Command {
	var projectID int64

	cmd := &cobra.Command{
		Use:   "fields",
		Short: "Show the custom fields of the tracking project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, opts, _, err := app.client(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			if projectID == 0 {
				projectID = opts.TrackingProjectID
			}
			if projectID == 0 {
				return writeErr(cmd, errBadArg("project", "no tracking_project_id set; pass --project"))
			}
			descs, err := c.CustomFields(cmd.Context(), projectID)
			if err != nil {
				return writeErr(cmd, err)
			}
			form := popup.BuildForm(descs)
			skipped := make([]string, 0, len(form.Skipped))
			for _, d := range form.Skipped {
				skipped = append(skipped, strconv.FormatInt(d.ID, 10))
			}
			return writeOut(cmd, app, map[string]any{
				"data": descs,
				"meta": map[string]any{"project_id": projectID, "skipped": skipped},
			})
		},
	}

	cmd.Flags().Int64Var(&projectID, "project", 0, "Project id (default: tracking_project_id)")
	return cmd
}
