package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/olusolaa/fleet-provisioner/internal/app"
	"github.com/olusolaa/fleet-provisioner/internal/config"
	apperrors "github.com/olusolaa/fleet-provisioner/internal/errors"
)

var (
	cfgFile   string
	logLevel  string
	logFormat string
	overrides string
)

var rootCmd = &cobra.Command{
	Use:   "fleet-provisioner",
	Short: "Admits IoT devices at fleet provisioning time and manages their stack-owned thing group.",
	Long: `fleet-provisioner answers AWS IoT fleet provisioning pre-provisioning hooks
(deciding whether a claiming device is admitted and which thing name it gets) and
reconciles the IoT thing group that a CloudFormation stack owns through a custom
resource. It runs as an HTTP server, as Lambda handlers, or as one-shot commands.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initializeConfig(cmd)
	},
}

func Execute(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Configuration file path (default is .fleet-provisioner.yaml in . or $HOME)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", string(config.DefaultConfig().Settings.LogLevel), "Override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", string(config.DefaultConfig().Settings.LogFormat), "Override log format (text, json)")
	rootCmd.PersistentFlags().StringVar(&overrides, "override", "", "Force template parameters on admitted devices (e.g., 'Env=prod;Tier=gold')")
	rootCmd.PersistentFlags().String("registry", config.DefaultConfig().Server.Registry, "Thing group registry backend (aws, memory)")
	rootCmd.PersistentFlags().String("region", "", "Default AWS region for the thing group registry")

	_ = viper.BindPFlag("settings.log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("settings.log_format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag(app.OverridesKey, rootCmd.PersistentFlags().Lookup("override"))
	_ = viper.BindPFlag("server.registry", rootCmd.PersistentFlags().Lookup("registry"))
	_ = viper.BindPFlag("aws.region", rootCmd.PersistentFlags().Lookup("region"))

	viper.SetEnvPrefix("FLEET")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	rootCmd.AddCommand(serveCmd, lambdaCmd, evaluateCmd, reconcileCmd)
}

func initializeConfig(cmd *cobra.Command) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigName(".fleet-provisioner")
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return apperrors.Wrap(err, apperrors.CodeConfigReadError, "failed to read config file")
		}
	}
	return nil
}

func bootstrap(ctx context.Context, opts ...app.Option) (*app.Application, error) {
	application, err := app.BuildApplicationFromViper(ctx, viper.GetViper(), opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Application initialization failed: %v\n", err)
		if appErr := (*apperrors.AppError)(nil); errors.As(err, &appErr) && appErr.IsUserFacing {
			fmt.Fprintf(os.Stderr, "Error Details: %s\n", appErr.Message)
			if appErr.SuggestedAction != "" {
				fmt.Fprintf(os.Stderr, "Suggestion: %s\n", appErr.SuggestedAction)
			}
		}
		return nil, err
	}
	return application, nil
}

func reportRunError(err error) error {
	if err == nil {
		return nil
	}
	userMsg, suggestion, _ := apperrors.GetUserFacingMessage(err)
	fmt.Fprintf(os.Stderr, "ERROR: %s\n", userMsg)
	if suggestion != "" {
		fmt.Fprintf(os.Stderr, "Suggestion: %s\n", suggestion)
	}
	return err
}
