package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"hkiapp/internal/realtime"
)

const reconnectDelay = 3 * time.Second

func watchCmd(opts *globalOptions) *cobra.Command {
	var qf queryFlags
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Tampilkan daftar dan perbarui saat data berubah",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open()
			if err != nil {
				return err
			}
			defer s.close()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			q := qf.query(s.env.Listing.DefaultPageSize)

			show := func() {
				page, err := s.list.Load(ctx, q)
				if err != nil {
					errColor.Fprintln(out, err)
					return
				}
				fmt.Fprintln(out)
				dimColor.Fprintln(out, time.Now().Format("15:04:05"))
				renderPage(out, q, page)
			}
			show()

			for {
				err := s.client.Subscribe(ctx, func(evt realtime.ChangeEvent) {
					if evt.Type == realtime.EventReady {
						return
					}
					s.list.OnExternalChange(evt)
					show()
				})
				if ctx.Err() != nil || errors.Is(err, context.Canceled) {
					return nil
				}
				if err != nil {
					dimColor.Fprintf(out, "koneksi terputus (%v), mencoba lagi...\n", err)
				} else {
					dimColor.Fprintln(out, "server menutup koneksi, mencoba lagi...")
				}
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(reconnectDelay):
				}
				// changes may have been missed while disconnected
				s.list.OnExternalChange(realtime.ChangeEvent{Resource: "hki"})
				show()
			}
		},
	}
	qf.bind(cmd)
	return cmd
}
