package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func statusCmd(opts *globalOptions) *cobra.Command {
	var qf queryFlags
	cmd := &cobra.Command{
		Use:   "status ID STATUS_ID",
		Short: "Ubah status satu entri HKI",
		Args:  cobra.ExactArgs(2),
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

			ctx := cmd.Context()
			options, err := s.client.StatusOptions(ctx)
			if err != nil {
				return fmt.Errorf("gagal memuat daftar status: %w", err)
			}
			known := false
			for _, o := range options {
				if o.ID == ids[1] {
					known = true
				}
			}
			if !known {
				dimColor.Fprintf(cmd.ErrOrStderr(), "status %s tidak ada di daftar opsi\n", strconv.FormatInt(ids[1], 10))
			}

			q := qf.query(s.env.Listing.DefaultPageSize)
			if _, err := s.list.Load(ctx, q); err != nil {
				return err
			}
			out, err := s.list.OptimisticStatusChange(ctx, ids[0], ids[1], options)
			if err != nil {
				return err
			}
			okColor.Fprintln(cmd.OutOrStdout(), out.Message)
			return nil
		},
	}
	qf.bind(cmd)
	return cmd
}
