package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/olusolaa/fleet-provisioner/internal/app"
)

var failOnDeny bool

var evaluateCmd = &cobra.Command{
	Use:   "evaluate FILE...",
	Short: "Dry-run admission for recorded hook payloads.",
	Long: `Dry-run admission for recorded hook payloads against the configured policy.
Each file holds one pre-provisioning hook payload or a JSON array of them.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := bootstrap(cmd.Context(), app.WithComponents(app.ComponentHook))
		if err != nil {
			return err
		}
		summary, err := application.EvaluateFiles(cmd.Context(), args)
		if err != nil {
			return reportRunError(err)
		}
		if summary.Errors > 0 {
			return fmt.Errorf("%d of %d payloads could not be evaluated", summary.Errors, summary.Total)
		}
		if failOnDeny && summary.Denied > 0 {
			return fmt.Errorf("%d of %d payloads denied", summary.Denied, summary.Total)
		}
		return nil
	},
}

func init() {
	evaluateCmd.Flags().BoolVar(&failOnDeny, "fail-on-deny", false, "Exit non-zero when any payload is denied")
}
