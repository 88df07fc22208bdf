package cli

import (
	"bugshot-cli/internal/store"

	"github.com/spf13/cobra"
)

func newOptionsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "options",
		Short: "Show or change saved options",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show options (defaults filled in)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, opts, err := loadOptions(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{
				"data": opts,
				"meta": map[string]any{"keys": store.OptionKeys},
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set one option",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, opts, err := loadOptions(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := store.SetOption(&opts, args[0], args[1]); err != nil {
				return writeErr(cmd, err)
			}
			if err := s.SaveOptions(opts); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": opts})
		},
	})
	return cmd
}
