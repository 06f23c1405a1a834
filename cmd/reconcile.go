package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/olusolaa/fleet-provisioner/internal/app"
	"github.com/olusolaa/fleet-provisioner/internal/core/domain"
	apperrors "github.com/olusolaa/fleet-provisioner/internal/errors"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile EVENT_FILE",
	Short: "Apply one custom resource lifecycle event to the thing group registry.",
	Long: `Apply one custom resource lifecycle event to the thing group registry and print
the response that would be returned to the stack. Use "-" to read the event from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := readEvent(args[0])
		if err != nil {
			return reportRunError(err)
		}
		application, err := bootstrap(cmd.Context(), app.WithComponents(app.ComponentLifecycle))
		if err != nil {
			return err
		}
		result, err := application.Reconcile(cmd.Context(), raw)
		if err != nil {
			return reportRunError(err)
		}
		if result.Status == domain.StatusFailed {
			return fmt.Errorf("lifecycle event failed: %s", result.Reason)
		}
		return nil
	},
}

func init() {
	reconcileCmd.Flags().String("stack-id", "", "Owning stack ID used when the event carries none")
	_ = viper.BindPFlag("stack.id", reconcileCmd.Flags().Lookup("stack-id"))
}

func readEvent(path string) ([]byte, error) {
	var (
		raw []byte
		err error
	)
	if path == "-" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, apperrors.WrapUserFacing(err, apperrors.CodeConfigReadError,
			fmt.Sprintf("cannot read lifecycle event %s", path), "Check the event file path.")
	}
	return raw, nil
}
