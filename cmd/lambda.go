package main

import (
	"github.com/spf13/cobra"

	"github.com/olusolaa/fleet-provisioner/internal/adapters/transport/lambda"
	"github.com/olusolaa/fleet-provisioner/internal/app"
)

var lifecycleMode string

var lambdaCmd = &cobra.Command{
	Use:   "lambda",
	Short: "Run as an AWS Lambda handler.",
}

var lambdaHookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Handle fleet provisioning pre-provisioning hook invocations.",
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := bootstrap(cmd.Context(), app.WithComponents(app.ComponentHook))
		if err != nil {
			return err
		}
		return reportRunError(application.StartLambdaHook())
	},
}

var lambdaLifecycleCmd = &cobra.Command{
	Use:   "lifecycle",
	Short: "Handle thing group custom resource events.",
	Long: `Handle thing group custom resource events.

In provider mode the handler sits behind a custom resource provider framework and
returns the result; a FAILED result becomes a handler error. In direct mode the
handler is the custom resource's service token and uploads the response document
to the event's ResponseURL itself.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := bootstrap(cmd.Context(), app.WithComponents(app.ComponentLifecycle))
		if err != nil {
			return err
		}
		return reportRunError(application.StartLambdaLifecycle(lifecycleMode))
	},
}

func init() {
	lambdaLifecycleCmd.Flags().StringVar(&lifecycleMode, "mode", lambda.ModeProvider, "Response mode (provider, direct)")
	lambdaCmd.AddCommand(lambdaHookCmd, lambdaLifecycleCmd)
}
