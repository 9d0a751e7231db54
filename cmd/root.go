package cmd

import (
	"os"

	"github.com/spf13/cobra"

	srvErrors "github.com/kubev2v/testrail-reporter/pkg/errors"
)

// Exit codes of the reporter. CI pipelines rely on them to tell a broken
// setup from a failed upload.
const (
	ExitCodeSuccess = 0
	// ExitCodeError is any other failure, including failed tests with --fail-on-test-failure.
	ExitCodeError         = 1
	ExitCodeConfiguration = 2
	ExitCodeValidation    = 3
	ExitCodeSubmission    = 4
)

var rootCmd *cobra.Command

func init() {
	rootCmd = newRootCmd()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "testrail-reporter",
		Short: "Synchronize end-to-end test results with TestRail",
		Long: `testrail-reporter replays the results of an end-to-end test run and
publishes them to TestRail: it creates or reuses a test plan with one run per
execution configuration, uploads one result per case and optionally closes it.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "YAML configuration file")
	root.PersistentFlags().String("env-file", ".env", "dotenv file loaded before reading the environment")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().String("log-format", "console", "log format (console, json)")

	root.AddCommand(newSyncCmd())
	root.AddCommand(newVersionCmd())
	return root
}

// SetVersion sets the version reported by --version and the version command.
func SetVersion(v string) {
	rootCmd.Version = v
}

func GetVersion() string {
	return rootCmd.Version
}

// Execute runs the root command and exits with the code matching the error.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "testrail-reporter version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(getExitCode(err))
	}
}

func getExitCode(err error) int {
	switch {
	case err == nil:
		return ExitCodeSuccess
	case srvErrors.IsConfigurationError(err):
		return ExitCodeConfiguration
	case srvErrors.IsValidationError(err):
		return ExitCodeValidation
	case srvErrors.IsSubmissionError(err):
		return ExitCodeSubmission
	default:
		return ExitCodeError
	}
}
