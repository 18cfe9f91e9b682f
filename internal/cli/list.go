package cli

import (
	"github.com/spf13/cobra"
)

func listCmd(opts *globalOptions) *cobra.Command {
	var qf queryFlags
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Tampilkan daftar HKI",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open()
			if err != nil {
				return err
			}
			defer s.close()

			q := qf.query(s.env.Listing.DefaultPageSize)
			page, err := s.list.Load(cmd.Context(), q)
			if err != nil {
				return err
			}
			renderPage(cmd.OutOrStdout(), q, page)
			return nil
		},
	}
	qf.bind(cmd)
	return cmd
}
