package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/kubev2v/testrail-reporter/internal/config"
	"github.com/kubev2v/testrail-reporter/internal/engine"
	"github.com/kubev2v/testrail-reporter/internal/models"
	"github.com/kubev2v/testrail-reporter/internal/services"
	srvErrors "github.com/kubev2v/testrail-reporter/pkg/errors"
	"github.com/kubev2v/testrail-reporter/pkg/testrail"
)

const (
	formatPlaywright = "playwright"
	formatGoTest     = "gotest"
)

var errTestsFailed = errors.New("the test run failed")

// flagKeys maps flags to the configuration keys they override.
var flagKeys = map[string]string{
	"log-level":     "loglevel",
	"log-format":    "logformat",
	"enable":        "enabled",
	"host":          "testrail.host",
	"username":      "testrail.username",
	"project-id":    "testrail.projectid",
	"suite-name":    "testrail.suitename",
	"config-group":  "testrail.configgroup",
	"single-suite":  "testrail.singlesuite",
	"timeout":       "testrail.timeout",
	"mode":          "plan.mode",
	"plan-id":       "plan.id",
	"plan-name":     "plan.name",
	"branch":        "plan.branch",
	"include-all":   "plan.includeall",
	"extract-mode":  "plan.extractmode",
	"workers":       "submission.workers",
	"close":         "submission.close",
	"configuration": "configurations",
}

type syncOptions struct {
	input             string
	format            string
	label             string
	parallel          int
	failOnTestFailure bool
}

func newSyncCmd() *cobra.Command {
	opts := &syncOptions{}

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Replay a test report and publish its results to TestRail",
		Long: `Replay a Playwright JSON report or a go test -json stream and publish
the results to TestRail.

Configuration is read from the environment (TESTRAIL_HOST, TESTRAIL_USERNAME,
TESTRAIL_PASSWORD, TESTRAIL_PLAN_ID, ...), the dotenv file, the optional YAML
configuration file and the flags below, flags winning. Nothing is published
unless the integration is enabled with TESTRAIL_REPORT=true or --enable.`,
		Example: `  testrail-reporter sync --input report.json --enable
  go test -json ./... | testrail-reporter sync --format gotest --input - --label Chrome`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.input, "input", "i", "", `report to replay, "-" for stdin`)
	cmd.Flags().StringVar(&opts.format, "format", formatPlaywright, "report format (playwright, gotest)")
	cmd.Flags().StringVar(&opts.label, "label", "", "configuration label of go test results (default: the first configuration)")
	cmd.Flags().IntVar(&opts.parallel, "parallel", 4, "tests delivered concurrently while replaying a Playwright report")
	cmd.Flags().BoolVar(&opts.failOnTestFailure, "fail-on-test-failure", false, "exit with 1 when the replayed run failed")
	_ = cmd.MarkFlagRequired("input")

	cmd.Flags().Bool("enable", false, "enable the TestRail integration")
	cmd.Flags().String("host", "", "TestRail host")
	cmd.Flags().String("username", "", "TestRail username")
	cmd.Flags().Int64("project-id", 0, "TestRail project id")
	cmd.Flags().String("suite-name", "", "name of the suite new runs are created from")
	cmd.Flags().String("config-group", "", "config group holding the configuration labels")
	cmd.Flags().Bool("single-suite", false, "require the project to have a single suite")
	cmd.Flags().Duration("timeout", 0, "timeout of a TestRail API call")
	cmd.Flags().String("mode", "", "plan: one run per configuration in a plan, run: a single standalone run")
	cmd.Flags().Int64("plan-id", 0, "existing plan to publish to instead of creating one")
	cmd.Flags().String("plan-name", "", "name of the created plan")
	cmd.Flags().String("branch", "", "branch written in the plan description")
	cmd.Flags().Bool("include-all", true, "scope created runs to every case of the suite")
	cmd.Flags().String("extract-mode", "", "where case ids are read from (auto, annotation, title)")
	cmd.Flags().Int("workers", 0, "concurrent result submissions")
	cmd.Flags().Bool("close", false, "close the plan or run once results are published")
	cmd.Flags().StringSlice("configuration", nil, "configuration labels (browsers)")

	return cmd
}

func runSync(cmd *cobra.Command, opts *syncOptions) error {
	cfg, err := loadConfiguration(cmd)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return srvErrors.NewInvalidConfigurationError("log", err.Error())
	}
	defer func() { _ = logger.Sync() }()
	undo := zap.ReplaceGlobals(logger)
	defer undo()

	log := zap.S().Named("sync")
	log.Debugw("loaded configuration", "configuration", cfg.DebugMap())

	if !cfg.Enabled {
		log.Infow("TestRail reporting is disabled, nothing to publish", "env", config.EnvVar("enabled"))
		return nil
	}

	in, err := openInput(cmd, opts.input)
	if err != nil {
		return err
	}
	defer in.Close()

	client, err := testrail.NewClient(cfg.TestRail.Host, cfg.TestRail.Username, cfg.TestRail.Password,
		testrail.WithTimeout(cfg.TestRail.Timeout))
	if err != nil {
		return srvErrors.NewInvalidConfigurationError("testrail.host", err.Error())
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	reporter := services.NewReporter(cfg, client)
	status, err := replay(ctx, opts, cfg, in, reporter)
	printSummary(cmd.OutOrStdout(), reporter.Report(), status)
	if err != nil {
		return err
	}

	if opts.failOnTestFailure && status == models.RunStatusFailed {
		return errTestsFailed
	}
	return nil
}

func replay(ctx context.Context, opts *syncOptions, cfg *config.Configuration, in io.Reader, l engine.Listener) (models.RunStatus, error) {
	switch opts.format {
	case formatPlaywright:
		return engine.NewPlaywright(opts.parallel).Replay(ctx, in, l)
	case formatGoTest:
		label := opts.label
		if label == "" && len(cfg.Configurations) > 0 {
			label = cfg.Configurations[0]
		}
		return engine.NewGoTest(label).Replay(ctx, in, l)
	default:
		return models.RunStatusInterrupted, fmt.Errorf("unknown report format %q: must be %s or %s", opts.format, formatPlaywright, formatGoTest)
	}
}

// loadConfiguration layers the dotenv file, the environment, the optional
// configuration file and the flags set on the command line.
func loadConfiguration(cmd *cobra.Command) (*config.Configuration, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	v := config.NewViper(envFile)

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, srvErrors.NewInvalidConfigurationError("config", err.Error())
		}
	}

	applyChangedFlags(cmd.Flags(), v)
	return config.Load(v)
}

// applyChangedFlags copies the flags given on the command line into v. Flags
// left to their default are skipped so they do not hide the environment.
func applyChangedFlags(flags *pflag.FlagSet, v *viper.Viper) {
	flags.Visit(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok {
			return
		}
		if s, ok := f.Value.(pflag.SliceValue); ok {
			v.Set(key, s.GetSlice())
			return
		}
		v.Set(key, f.Value.String())
	})
}

func openInput(cmd *cobra.Command, path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(cmd.InOrStdin()), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open report: %w", err)
	}
	return f, nil
}

func printSummary(w io.Writer, report *services.SyncReport, status models.RunStatus) {
	if report == nil {
		return
	}

	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	bold.Fprintf(w, "TestRail sync %s (run %s)\n", report.SyncID, status)
	if report.PlanID > 0 {
		fmt.Fprintf(w, "  plan %d %s\n", report.PlanID, report.PlanURL)
	}
	if report.RunID > 0 {
		fmt.Fprintf(w, "  run %d\n", report.RunID)
	}
	for _, s := range report.Submitted {
		green.Fprintf(w, "  ✓ run %d %v: %d results\n", s.RunID, s.Labels, s.Results)
	}
	for _, label := range report.Skipped {
		yellow.Fprintf(w, "  ! %s: no run in plan, results skipped\n", label)
	}
	if report.Closed {
		fmt.Fprintln(w, "  closed")
	}
}
