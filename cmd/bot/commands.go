package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ykvlv/remind-bot/internal/app"
	"github.com/ykvlv/remind-bot/internal/config"
	"github.com/ykvlv/remind-bot/internal/domain"
	"github.com/ykvlv/remind-bot/internal/logger"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "remind-bot",
		Short:        "Telegram bot that delivers one-shot reminders",
		SilenceUsage: true,
		RunE:         runServe,
		Args:         cobra.NoArgs,
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the bot, the scheduler and the health/metrics server (default)",
			Args:  cobra.NoArgs,
			RunE:  runServe,
		},
		newParseCmd(time.Now),
	)
	return root
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("logger init error: %w", err)
	}
	// Ensure logger flush; ignore sync error (common on some platforms).
	defer func() { _ = log.Sync() }()

	application, err := app.New(cfg, log)
	if err != nil {
		log.Error("app init failed", zap.Error(err))
		return err
	}
	if err := application.Run(cmd.Context()); err != nil {
		log.Error("app run failed", zap.Error(err))
		return err
	}
	return nil
}

// newParseCmd resolves a time expression offline, the same way /remind does.
func newParseCmd(now func() time.Time) *cobra.Command {
	var tz, policy string
	cmd := &cobra.Command{
		Use:   "parse <expression>",
		Short: "Show the instant a time expression resolves to",
		Example: `  remind-bot parse --tz Europe/Berlin "next friday at 5pm"
  remind-bot parse "in 90 minutes"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := domain.ParseWeekdayPolicy(policy)
			if err != nil {
				return err
			}
			at, err := domain.Parser{Weekday: p}.Parse(strings.Join(args, " "), tz, now())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "local: %s\n", domain.FormatLocal(at, tz))
			fmt.Fprintf(out, "utc:   %s\n", at.Format(time.RFC3339))
			fmt.Fprintf(out, "unix:  %.3f\n", domain.UnixSeconds(at))
			return nil
		},
	}
	cmd.Flags().StringVar(&tz, "tz", "UTC", "IANA timezone the expression is read in")
	cmd.Flags().StringVar(&policy, "weekday-policy", "noon", "noon|next-week|today-if-future")
	return cmd
}
