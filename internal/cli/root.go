// Package cli implements the scope3 command-line tool.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/scope3-tracker/internal/app"
	"github.com/joseph-ayodele/scope3-tracker/internal/common"
)

// RootOptions holds global CLI flags. Empty values keep the environment configuration.
type RootOptions struct {
	LogLevel    string
	LogFormat   string
	Store       string
	FactorsPath string
	Provider    string
}

type cliContextKey struct{}

// CLIContext carries the config and logger built by the root command.
type CLIContext struct {
	Config *common.Config
	Logger *slog.Logger
	Out    io.Writer
}

// NewRootCommand wires every subcommand. Results go to out, logs to stderr.
func NewRootCommand(out io.Writer) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "scope3",
		Short:         "Estimate Scope 3 emissions from supplier invoices",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg := common.LoadConfig()
			opts.apply(cfg)
			logger := common.NewLogger(cmd.ErrOrStderr(), cfg.Log)
			slog.SetDefault(logger)
			cmd.SetContext(context.WithValue(cmd.Context(), cliContextKey{}, &CLIContext{Config: cfg, Logger: logger, Out: out}))
			return nil
		},
	}
	cmd.SetOut(out)

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.LogLevel, "log-level", "", "log level: debug|info|warn|error (default $LOG_LEVEL or warn)")
	pf.StringVar(&opts.LogFormat, "log-format", "", "log format: text|json")
	pf.StringVar(&opts.Store, "store", "", "analysis store: memory|sqlite|redis|postgres")
	pf.StringVar(&opts.FactorsPath, "factors", "", "emission factors file (.json or .yaml)")
	pf.StringVar(&opts.Provider, "llm", "", "completion provider: gemini|openai")

	cmd.AddCommand(newAnalyzeCmd(), newBatchCmd(), newFactorsCmd())
	return cmd
}

func (o *RootOptions) apply(cfg *common.Config) {
	if o.LogLevel != "" {
		cfg.Log.Level = o.LogLevel
	} else if os.Getenv("LOG_LEVEL") == "" {
		// quiet unless asked
		cfg.Log.Level = "warn"
	}
	if o.LogFormat != "" {
		cfg.Log.Format = o.LogFormat
	}
	if o.Store != "" {
		cfg.Store.Driver = o.Store
	}
	if o.FactorsPath != "" {
		cfg.Pipeline.FactorsPath = o.FactorsPath
	}
	if o.Provider != "" {
		cfg.LLM.Provider = o.Provider
	}
}

// GetCLIContext returns the context installed by the root command.
func GetCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	c, ok := cmd.Context().Value(cliContextKey{}).(*CLIContext)
	if !ok || c == nil {
		return nil, fmt.Errorf("cli context not initialized")
	}
	return c, nil
}

func openApp(ctx context.Context, c *CLIContext) (*app.App, error) {
	return app.New(ctx, c.Config, c.Logger, false)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeJSONFile(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := writeJSON(f, v); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Execute runs the root command against the process arguments.
func Execute(ctx context.Context) error {
	return NewRootCommand(os.Stdout).ExecuteContext(ctx)
}
