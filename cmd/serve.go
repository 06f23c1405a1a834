package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/olusolaa/fleet-provisioner/internal/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the hook and lifecycle endpoints over HTTP.",
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		return reportRunError(application.Serve(cmd.Context()))
	},
}

func init() {
	serveCmd.Flags().String("listen-addr", config.DefaultConfig().Server.ListenAddr, "HTTP listen address")
	serveCmd.Flags().Bool("pprof", false, "Expose /debug/pprof")
	_ = viper.BindPFlag("server.listen_addr", serveCmd.Flags().Lookup("listen-addr"))
	_ = viper.BindPFlag("server.enable_pprof", serveCmd.Flags().Lookup("pprof"))
}
