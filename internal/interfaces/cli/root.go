// Package cli implements the ctsbroker command line. Commands run the broker
// in process, or against a running API server when --server is set.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/CTS-Broker/internal/config"
	"github.com/turtacn/CTS-Broker/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CTS-Broker/pkg/errors"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

type cliContextKey struct{}

// RootOptions holds global CLI flags.
type RootOptions struct {
	ConfigPath   string
	EnvFile      string
	LogLevel     string
	OutputFormat string
	Timeout      time.Duration
	ServerAddr   string
}

// BackendFactory builds the backend for a command invocation.
type BackendFactory func(opts *RootOptions, cfg *config.Config, logger logging.Logger) (Backend, error)

// CLIContext carries initialized dependencies through the command tree. The
// backend is built on first use so commands such as version need no config.
type CLIContext struct {
	Options *RootOptions
	Logger  logging.Logger

	factory BackendFactory
	once    sync.Once
	backend Backend
	err     error
}

// Backend returns the backend, building it on first call.
func (c *CLIContext) Backend() (Backend, error) {
	c.once.Do(func() {
		var cfg *config.Config
		if c.Options.ServerAddr == "" {
			cfg, c.err = loadConfig(c.Options)
			if c.err != nil {
				return
			}
		}
		c.backend, c.err = c.factory(c.Options, cfg, c.Logger)
	})
	return c.backend, c.err
}

func (c *CLIContext) close() error {
	if c.backend == nil {
		return nil
	}
	return c.backend.Close()
}

// RootOption configures NewRootCommand.
type RootOption func(*rootSettings)

type rootSettings struct {
	factory BackendFactory
	logger  logging.Logger
}

// WithBackendFactory replaces the default local/remote backend selection.
func WithBackendFactory(f BackendFactory) RootOption {
	return func(s *rootSettings) { s.factory = f }
}

// WithCLILogger uses l instead of a stderr logger built from --log-level.
func WithCLILogger(l logging.Logger) RootOption {
	return func(s *rootSettings) { s.logger = l }
}

// NewRootCommand creates the root command with its global flags and
// subcommands.
func NewRootCommand(options ...RootOption) *cobra.Command {
	settings := &rootSettings{factory: defaultBackend}
	for _, o := range options {
		o(settings)
	}
	opts := &RootOptions{}
	var cliCtx *CLIContext

	cmd := &cobra.Command{
		Use:   "ctsbroker",
		Short: "CTS chemistry calculation broker",
		Long: "ctsbroker filters SMILES structures through the standardization pipeline\n" +
			"and requests physicochemical properties from the configured calculators.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch strings.ToLower(opts.OutputFormat) {
			case "text", "json", "table":
			default:
				return errors.InvalidParam("unsupported output format").WithDetail(opts.OutputFormat)
			}
			logger := settings.logger
			if logger == nil {
				l, err := logging.NewLogger(logging.LogConfig{Level: opts.LogLevel, Format: "console", Output: "stderr"})
				if err != nil {
					return fmt.Errorf("logger initialization failed: %w", err)
				}
				logger = l
			}
			cliCtx = &CLIContext{Options: opts, Logger: logger, factory: settings.factory}
			cmd.SetContext(context.WithValue(cmd.Context(), cliContextKey{}, cliCtx))
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if cliCtx == nil {
				return nil
			}
			_ = cliCtx.Logger.Sync()
			return cliCtx.close()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "config file path")
	pf.StringVar(&opts.EnvFile, "env-file", "", "dotenv file loaded before the config")
	pf.StringVar(&opts.LogLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	pf.StringVarP(&opts.OutputFormat, "output", "o", "text", "output format (text, json, table)")
	pf.DurationVar(&opts.Timeout, "timeout", 30*time.Second, "per command timeout")
	pf.StringVar(&opts.ServerAddr, "server", "", "broker API address; empty runs the broker in process")

	cmd.AddCommand(
		newFilterCmd(),
		newValidateCmd(),
		newPchemCmd(),
		newCalculatorsCmd(),
		newVersionCmd(),
	)
	return cmd
}

func loadConfig(opts *RootOptions) (*config.Config, error) {
	var lo []config.LoadOption
	if opts.ConfigPath != "" {
		lo = append(lo, config.WithConfigPath(opts.ConfigPath))
	}
	if opts.EnvFile != "" {
		lo = append(lo, config.WithEnvFile(opts.EnvFile))
	}
	return config.Load(lo...)
}

// GetCLIContext extracts the CLIContext stored by the root command.
func GetCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	ctx := cmd.Context()
	if ctx == nil {
		return nil, errors.Internal("command context is nil")
	}
	cliCtx, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok || cliCtx == nil {
		return nil, errors.Internal("CLIContext not found in command context")
	}
	return cliCtx, nil
}

// commandContext returns the backend and a context bounded by --timeout.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc, Backend, error) {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	backend, err := cliCtx.Backend()
	if err != nil {
		return nil, nil, nil, err
	}
	ctx, cancel := cmd.Context(), context.CancelFunc(func() {})
	if cliCtx.Options.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, cliCtx.Options.Timeout)
	}
	return ctx, cancel, backend, nil
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		PrintError(rootCmd, err)
		return err
	}
	return nil
}

// PrintResult outputs data in the --output format.
func PrintResult(cmd *cobra.Command, data interface{}) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return printJSON(cmd, data)
	}
	switch strings.ToLower(cliCtx.Options.OutputFormat) {
	case "json":
		return printJSON(cmd, data)
	case "table":
		return printTable(cmd, data)
	default:
		return printText(cmd, data)
	}
}

func printJSON(cmd *cobra.Command, data interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func printText(cmd *cobra.Command, data interface{}) error {
	switch v := data.(type) {
	case string:
		fmt.Fprintln(cmd.OutOrStdout(), v)
	case fmt.Stringer:
		fmt.Fprintln(cmd.OutOrStdout(), v.String())
	default:
		fmt.Fprintf(cmd.OutOrStdout(), "%+v\n", v)
	}
	return nil
}

type tableProvider interface {
	TableHeaders() []string
	TableRows() [][]string
}

// printTable renders table providers and falls back to text.
func printTable(cmd *cobra.Command, data interface{}) error {
	if tp, ok := data.(tableProvider); ok {
		fmt.Fprint(cmd.OutOrStdout(), FormatTable(tp.TableHeaders(), tp.TableRows()))
		return nil
	}
	return printText(cmd, data)
}

// PrintError writes err to stderr.
func PrintError(cmd *cobra.Command, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err.Error())
}

// FormatTable renders headers and rows as an aligned ASCII table.
func FormatTable(headers []string, rows [][]string) string {
	if len(headers) == 0 {
		return ""
	}

	colWidths := make([]int, len(headers))
	for i, h := range headers {
		colWidths[i] = len(h)
	}
	for _, row := range rows {
		for i := 0; i < len(row) && i < len(colWidths); i++ {
			if len(row[i]) > colWidths[i] {
				colWidths[i] = len(row[i])
			}
		}
	}

	var sb strings.Builder
	writeRow := func(cells []string) {
		for i := range headers {
			if i > 0 {
				sb.WriteString("  ")
			}
			val := ""
			if i < len(cells) {
				val = cells[i]
			}
			sb.WriteString(padRight(val, colWidths[i]))
		}
		sb.WriteString("\n")
	}

	writeRow(headers)
	sep := make([]string, len(colWidths))
	for i, w := range colWidths {
		sep[i] = strings.Repeat("-", w)
	}
	writeRow(sep)
	for _, row := range rows {
		writeRow(row)
	}
	return sb.String()
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
