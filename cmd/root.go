package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/teemow/gmailer/internal/instrumentation"
	"github.com/teemow/gmailer/internal/logging"
)

// version will be set by main
var version = "dev"

// SetVersion sets the version reported by the CLI
func SetVersion(v string) {
	version = v
}

// Environment variables that provide defaults for the persistent flags.
const (
	envConfig          = "GMAILER_CONFIG"
	envLogLevel        = "LOG_LEVEL"
	envLogFormat       = "LOG_FORMAT"
	envMetricsTextfile = "METRICS_TEXTFILE"
	envAPIEndpoint     = "GMAILER_API_ENDPOINT"
	envUploadEndpoint  = "GMAILER_UPLOAD_ENDPOINT"
)

type rootOptions struct {
	configPath      string
	envFile         string
	logLevel        string
	logFormat       string
	metricsTextfile string
}

// Execute is the main entry point for the CLI application
func Execute() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}

// run executes the command line in args and then flushes telemetry.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	a := &app{out: stdout}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if closeErr := a.close(shutdownCtx); closeErr != nil {
		a.log().Warn("failed to flush telemetry", logging.Err(closeErr))
	}
	return err
}

func newRootCmd(a *app) *cobra.Command {
	opts := &a.opts

	rootCmd := &cobra.Command{
		Use:   "gmailer",
		Short: "Send, read and manage Gmail messages from the command line",
		Long: `gmailer talks to the Gmail REST API on behalf of a single account.

Run "gmailer init" with the OAuth client credentials of a Google Cloud
project, then "gmailer auth login" to authorize. Afterwards the access token
is refreshed automatically whenever it has expired.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	rootCmd.SetVersionTemplate(`{{printf "gmailer version %s\n" .Version}}`)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "Path to the config file (env: GMAILER_CONFIG, default: $XDG_CONFIG_HOME/gmailer/gmail.json)")
	flags.StringVar(&opts.envFile, "env-file", ".env", "Optional dotenv file loaded before the environment is read")
	flags.StringVar(&opts.logLevel, "log-level", "info", "Log level: debug, info, warn, error (env: LOG_LEVEL)")
	flags.StringVar(&opts.logFormat, "log-format", logging.FormatText, "Log format: text, json (env: LOG_FORMAT)")
	flags.StringVar(&opts.metricsTextfile, "metrics-textfile", "", "Write prometheus metrics to this file on exit (env: METRICS_TEXTFILE)")

	rootCmd.AddCommand(newInitCmd(a))
	rootCmd.AddCommand(newAuthCmd(a))
	rootCmd.AddCommand(newSendCmd(a))
	rootCmd.AddCommand(newListCmd(a))
	rootCmd.AddCommand(newGetCmd(a))
	rootCmd.AddCommand(newReadCmd(a))
	rootCmd.AddCommand(newLabelsCmd(a))
	rootCmd.AddCommand(newDeleteCmd(a))
	rootCmd.AddCommand(newAttachmentsCmd(a))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// setup loads the dotenv file, resolves flag defaults from the environment
// and builds the logger and the instrumentation provider.
func (a *app) setup(cmd *cobra.Command) error {
	opts := &a.opts

	if err := godotenv.Load(opts.envFile); err != nil {
		if cmd.Flags().Changed("env-file") || !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load env file %s: %w", opts.envFile, err)
		}
	}

	envDefault(cmd, "config", envConfig, &opts.configPath)
	envDefault(cmd, "log-level", envLogLevel, &opts.logLevel)
	envDefault(cmd, "log-format", envLogFormat, &opts.logFormat)
	envDefault(cmd, "metrics-textfile", envMetricsTextfile, &opts.metricsTextfile)

	logger, err := logging.New(cmd.ErrOrStderr(), opts.logLevel, opts.logFormat)
	if err != nil {
		return err
	}
	a.logger = logger
	slog.SetDefault(logger)

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	instrConfig.MetricsTextfile = opts.metricsTextfile
	instrConfig.ExportOutput = cmd.ErrOrStderr()
	if err := instrConfig.Validate(); err != nil {
		return fmt.Errorf("invalid instrumentation config: %w", err)
	}

	provider, err := instrumentation.NewProvider(cmd.Context(), instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	a.provider = provider
	a.metricsTextfile = instrConfig.MetricsTextfile

	logger.Debug("instrumentation configured",
		"enabled", provider.Enabled(),
		"metrics_exporter", instrConfig.MetricsExporter,
		"tracing_exporter", instrConfig.TracingExporter)

	return nil
}

// envDefault copies the environment variable into target unless the flag
// was given on the command line.
func envDefault(cmd *cobra.Command, flag, env string, target *string) {
	if cmd.Flags().Changed(flag) {
		return
	}
	if v := os.Getenv(env); v != "" {
		*target = v
	}
}
