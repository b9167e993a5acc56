package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aluiziolira/tire-quoter/config"
	"github.com/aluiziolira/tire-quoter/pipeline"
	"github.com/aluiziolira/tire-quoter/pricing"
	"github.com/aluiziolira/tire-quoter/report"
	"github.com/aluiziolira/tire-quoter/scraper"
)

type rootOptions struct {
	configPath string
	verbose    bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	configDefault, _ := config.EnvString("QUOTER_CONFIG")

	cmd := &cobra.Command{
		Use:           "quoter",
		Short:         "Tire price quotes from the catalog, over Telegram or the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", configDefault, "Path to a YAML config file (env QUOTER_CONFIG)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(newServeCmd(opts), newQuoteCmd(opts))
	return cmd
}

// loadConfig reads the config and installs the process logger.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		setupLogger("info", o.verbose)
		slog.Error("invalid configuration", slog.Any("error", err))
		return nil, err
	}
	cfg.Verbose = o.verbose
	setupLogger(cfg.LogLevel, cfg.Verbose)
	return cfg, nil
}

// buildQuoter wires the scraper, pricing engine and formatter behind a Quoter.
func buildQuoter(cfg *config.Config) (*pipeline.Quoter, *scraper.Metrics, error) {
	metrics := scraper.NewMetrics()
	engine := pricing.NewEngine(cfg.Pricing)

	s, err := scraper.NewScraper(cfg, engine, metrics)
	if err != nil {
		return nil, nil, fmt.Errorf("initialise scraper: %w", err)
	}
	opts, err := report.OptionsFromConfig(cfg.Report, engine.MarginPercent())
	if err != nil {
		return nil, nil, err
	}
	return pipeline.NewQuoter(s, report.NewFormatter(opts), metrics), metrics, nil
}

func setupLogger(level string, verbose bool) {
	logger, lv := newLogger(level, verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(lv.Level())
}

// newLogger writes to stderr so stdout stays clean for quote output.
func newLogger(level string, verbose bool) (*slog.Logger, *slog.LevelVar) {
	lv := &slog.LevelVar{}
	switch {
	case verbose:
		lv.Set(slog.LevelDebug)
	default:
		var parsed slog.Level
		if err := parsed.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
			parsed = slog.LevelInfo
		}
		lv.Set(parsed)
	}

	opts := &slog.HandlerOptions{Level: lv}
	var handler slog.Handler
	if isTerminal(os.Stderr) {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	return slog.New(handler), lv
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
