package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aluiziolira/tire-quoter/bot"
	"github.com/aluiziolira/tire-quoter/pipeline"
	"github.com/aluiziolira/tire-quoter/report"
)

func newQuoteCmd(root *rootOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "quote <size...>",
		Short: "Quote one tire size and print the result",
		Example: `  # Both reports, as the bot would send them
  quoter quote 175 65 14

  # Sorted products as JSON lines
  quoter quote 205/55R16 --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch format {
			case "text", "json", "csv":
			default:
				return fmt.Errorf("unsupported format %q: use text, json or csv", format)
			}

			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			quoter, _, err := buildQuoter(cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if cfg.Bot.QuoteTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, cfg.Bot.QuoteTimeout)
				defer cancel()
			}

			return runQuote(ctx, cmd.OutOrStdout(), quoter, strings.Join(args, " "), format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json or csv")
	return cmd
}

func runQuote(ctx context.Context, out io.Writer, quoter *pipeline.Quoter, query, format string) error {
	quote, err := quoter.Quote(ctx, query)
	if err != nil {
		slog.Debug("quote failed", slog.Any("error", err))
		fmt.Fprintln(out, pipeline.UserMessage(err))
		return err
	}

	if format == "text" {
		fmt.Fprintln(out, quote.Internal)
		fmt.Fprintln(out)
		fmt.Fprintln(out, bot.Separator)
		fmt.Fprintln(out)
		fmt.Fprintln(out, quote.Customer)
		return nil
	}

	writer, err := report.NewProductWriter(format, out)
	if err != nil {
		return err
	}
	if err := writer.Write(quote.Products); err != nil {
		return err
	}
	return writer.Flush()
}
