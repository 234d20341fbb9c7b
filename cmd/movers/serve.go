package main

import (
	"github.com/spf13/cobra"

	"movers/internal/httpapi"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve stored snapshots and history over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.openStores(); err != nil {
				return err
			}
			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			api := httpapi.NewServer(httpapi.NewStoreProvider(a.cfg.Sources, a.snapshots, a.records), a.log)
			return api.Serve(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}
