package cli

import (
	"context"
	"strconv"
	"strings"
	"time"

	"bugshot-cli/internal/model"
	"bugshot-cli/internal/popup"

	"github.com/spf13/cobra"
)

// parseFieldArgs turns repeated --field id=value flags into raw custom field inputs.
func parseFieldArgs(args []string) (map[int64]string, error) {
	out := map[int64]string{}
	for _, a := range args {
		k, v, ok := strings.Cut(a, "=")
		if !ok {
			return nil, errBadArg("field", "expected <field-id>=<value>, got "+strconv.Quote(a))
		}
		id, err := strconv.ParseInt(strings.TrimSpace(k), 10, 64)
		if err != nil || id <= 0 {
			return nil, errBadArg("field", "field id must be numeric, got "+strconv.Quote(k))
		}
		out[id] = v
	}
	return out, nil
}

func newFileCmd(app *App) *cobra.Command {
	var (
		title       string
		notes       string
		estimate    string
		projects    []int64
		fields      []string
		pageDetails bool
		tf          tuiFlags
	)

	cmd := &cobra.Command{
		Use:   "file",
		Short: "File a task without the popup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			inputs, err := parseFieldArgs(fields)
			if err != nil {
				return writeErr(cmd, err)
			}

			s, opts, err := loadOptions(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			reader := app.newReader(opts)
			defer reader.Close()

			deps := app.popupDeps(s, reader)
			deps.Open = nil
			deps.QuickAdd = tf.quickAdd()
			c := popup.New(deps)
			defer func() {
				cctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
				defer cancel()
				_ = c.Close(cctx)
			}()

			if err := c.Init(ctx); err != nil {
				return writeErr(cmd, err)
			}
			if c.View() == popup.ViewLogin {
				return writeErr(cmd, errNotLoggedIn)
			}
			if _, err := c.Projects(ctx); err != nil {
				return writeErr(cmd, err)
			}

			d := model.TaskDraft{
				Title:             title,
				Notes:             notes,
				ProjectIDs:        projects,
				CustomFieldInputs: inputs,
				EstimateOn:        strings.TrimSpace(estimate) != "",
				Estimate:          estimate,
			}
			if pageDetails && d.Title == "" && d.Notes == "" {
				d = c.UsePageDetails(d)
			}
			res, err := c.Submit(ctx, d)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{
				"task": res.Task,
				"url":  res.URL,
			}})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Task title (the configured prefix and estimate are added)")
	cmd.Flags().StringVar(&notes, "notes", "", "Task notes")
	cmd.Flags().StringVar(&estimate, "estimate", "", "Estimate; empty files [?]")
	cmd.Flags().Int64SliceVar(&projects, "project", nil, "Project id (repeatable; default: tracking + default project)")
	cmd.Flags().StringArrayVar(&fields, "field", nil, "Custom field value as <field-id>=<value> (repeatable)")
	cmd.Flags().BoolVar(&pageDetails, "page-details", false, "Use the page title and URL when title and notes are empty")
	cmd.Flags().StringVar(&tf.URL, "url", "", "Page URL instead of the active tab")
	cmd.Flags().StringVar(&tf.Title, "page-title", "", "Page title instead of the active tab")
	cmd.Flags().StringVar(&tf.Selection, "selection", "", "Selected text")
	return cmd
}
