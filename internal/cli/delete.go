package cli

import (
	"github.com/spf13/cobra"

	"hkiapp/internal/listing"
)

func deleteCmd(opts *globalOptions) *cobra.Command {
	var qf queryFlags
	cmd := &cobra.Command{
		Use:   "delete ID [ID...]",
		Short: "Hapus satu atau beberapa entri HKI",
		Long: `Deletes entries through the list cache: the rows disappear from the shown
page at once and come back if the server refuses. Several ids are sent as
one bulk delete.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			s, err := opts.open()
			if err != nil {
				return err
			}
			defer s.close()

			q := qf.query(s.env.Listing.DefaultPageSize)
			if _, err := s.list.Load(cmd.Context(), q); err != nil {
				return err
			}

			sel := listing.NewSelection(s.list)
			sel.ToggleMode()
			sel.SelectAllOnPage(ids)
			out, err := sel.BulkDelete(cmd.Context())
			if err != nil {
				return err
			}
			okColor.Fprintln(cmd.OutOrStdout(), out.Message)

			page, err := s.list.Load(cmd.Context(), out.Query)
			if err != nil {
				return err
			}
			renderPage(cmd.OutOrStdout(), out.Query, page)
			return nil
		},
	}
	qf.bind(cmd)
	return cmd
}
