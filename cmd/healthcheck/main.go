// Command pvpq-health-check checks how long ago each region/bracket activity
// page on pvpq.net was updated and alerts a Telegram chat about stale ones.
//
// It runs once and exits; schedule it externally (cron, CronJob, CI).
//
// Usage:
//
//	pvpq-health-check --chat-id=-100123456 --token=123456:ABC
//	pvpq-health-check -c @pvpq_alerts -t 123456:ABC --config checks.yaml
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"pvpq_health_check/internal/app"
	"pvpq_health_check/internal/domain/activity"
	domainTelegram "pvpq_health_check/internal/domain/telegram"
	"pvpq_health_check/internal/infra/config"
	"pvpq_health_check/internal/infra/logger"
	"pvpq_health_check/internal/infra/metrics"
	"pvpq_health_check/internal/infra/pvpq"
	"pvpq_health_check/internal/infra/telegram"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var chatID, token, checksPath string

	cmd := &cobra.Command{
		Use:          "pvpq-health-check",
		Short:        "Alert a Telegram chat when pvpq.net activity stops updating",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(checksPath)
			if err != nil {
				return fmt.Errorf("could not load application configuration: %w", err)
			}
			if chatID != "" {
				cfg.TelegramChatID = chatID
			}
			if token != "" {
				cfg.TelegramToken = token
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger.Init(cfg)
			logger.Log.WithFields(logrus.Fields{
				"regions":           cfg.Checks.Regions,
				"brackets":          cfg.Checks.Brackets,
				"threshold_minutes": cfg.Checks.ThresholdMinutes,
				"telegram_client":   cfg.TelegramClient,
				"environment":       cfg.Environment,
			}).Info("Configuration loaded")

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}

	cmd.Flags().StringVarP(&chatID, "chat-id", "c", "", "Telegram chat to alert (falls back to TELEGRAM_CHAT_ID)")
	cmd.Flags().StringVarP(&token, "token", "t", "", "Telegram bot token (falls back to TELEGRAM_TOKEN)")
	cmd.Flags().StringVar(&checksPath, "config", "", "YAML file with regions, brackets and threshold_minutes (falls back to CHECKS_FILE)")
	return cmd
}

func run(ctx context.Context, cfg *config.AppConfig) error {
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	source := pvpq.NewClient(cfg.ActivityAPIURL, httpClient, logger.Component("activity_source"))

	tgClient, err := newTelegramClient(cfg, httpClient)
	if err != nil {
		return err
	}

	var recorder app.ResultRecorder
	var pusher *metrics.Pusher
	if cfg.PushgatewayURL != "" {
		pusher = metrics.NewPusher(cfg.PushgatewayURL, httpClient)
		recorder = pusher
	}

	svc := app.NewHealthCheckService(source, tgClient, recorder, app.HealthCheckConfig{
		Regions:   cfg.Checks.Regions,
		Brackets:  cfg.Checks.Brackets,
		Threshold: activity.Threshold(cfg.Checks.ThresholdMinutes),
		ChatID:    cfg.TelegramChatID,
		SiteURL:   cfg.SiteURL,
	}, logger.Component("healthcheck"))

	report := svc.Run(ctx)
	runErr := report.Err()

	var pushErr error
	if pusher != nil {
		// Metrics of an interrupted run are still worth pushing.
		if pushErr = pusher.Push(context.WithoutCancel(ctx)); pushErr != nil {
			logger.Component("metrics").WithError(pushErr).Error("Failed to push metrics")
		}
	}

	return errors.Join(runErr, pushErr)
}

func newTelegramClient(cfg *config.AppConfig, httpClient *http.Client) (domainTelegram.Client, error) {
	limiter := rate.NewLimiter(rate.Limit(cfg.TelegramRatePerSec), 1)
	log := logger.Component("notifier")

	switch cfg.TelegramClient {
	case "telebot":
		return telegram.NewTelebotAdapter(cfg.TelegramAPIURL, cfg.TelegramToken, httpClient, limiter, log)
	default:
		return telegram.NewHTTPClient(cfg.TelegramAPIURL, cfg.TelegramToken, httpClient, limiter, log), nil
	}
}
