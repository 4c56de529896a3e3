// internal/app/healthcheck_service.go
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pvpq_health_check/internal/domain/activity"
	domainTelegram "pvpq_health_check/internal/domain/telegram"

	"github.com/sirupsen/logrus"
)

// Outcome is the result of checking a single pair.
type Outcome string

const (
	OutcomeFresh         Outcome = "FRESH"
	OutcomeStaleNotified Outcome = "STALE_NOTIFIED"
	OutcomeFetchFailed   Outcome = "FETCH_FAILED"
	OutcomeNotifyFailed  Outcome = "NOTIFY_FAILED" // stale, but the alert was not delivered
)

// PairResult records what happened to one pair during a run.
type PairResult struct {
	Pair           activity.Pair
	Outcome        Outcome
	LastUpdated    time.Time // zero when the fetch failed
	ElapsedMinutes int64
	Err            error
}

// Stale reports whether the pair was evaluated and found stale.
func (r PairResult) Stale() bool {
	return r.Outcome == OutcomeStaleNotified || r.Outcome == OutcomeNotifyFailed
}

// Report aggregates every pair result of a run, in processing order.
type Report struct {
	Results []PairResult
}

// Count returns how many pairs ended with the given outcome.
func (r *Report) Count(o Outcome) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == o {
			n++
		}
	}
	return n
}

// Failed is true when at least one pair could not be evaluated or its alert was not delivered.
func (r *Report) Failed() bool {
	return r.Count(OutcomeFetchFailed)+r.Count(OutcomeNotifyFailed) > 0
}

// Err joins the errors of all failed pairs, nil if none failed.
func (r *Report) Err() error {
	var errs []error
	for _, res := range r.Results {
		if res.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", res.Pair, res.Err))
		}
	}
	return errors.Join(errs...)
}

// ResultRecorder receives every pair result as soon as it is known.
type ResultRecorder interface {
	Record(result PairResult)
}

// HealthCheckConfig holds the checks to run and where alerts go.
type HealthCheckConfig struct {
	Regions   []string
	Brackets  []string
	Threshold activity.Threshold
	ChatID    string
	SiteURL   string
}

// HealthCheckService checks every configured region/bracket pair once.
type HealthCheckService struct {
	source   activity.Source
	client   domainTelegram.Client
	recorder ResultRecorder
	cfg      HealthCheckConfig
	now      func() time.Time
	logger   *logrus.Entry
}

func NewHealthCheckService(
	source activity.Source,
	client domainTelegram.Client,
	recorder ResultRecorder, // may be nil
	cfg HealthCheckConfig,
	logger *logrus.Entry,
) *HealthCheckService {
	return &HealthCheckService{
		source:   source,
		client:   client,
		recorder: recorder,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger,
	}
}

// Run processes every pair sequentially. A failing pair never stops the others;
// only a cancelled context does, and the unprocessed pairs are reported as failed.
func (s *HealthCheckService) Run(ctx context.Context) *Report {
	pairs := activity.Pairs(s.cfg.Regions, s.cfg.Brackets)
	s.logger.WithField("pairs", pairs).Info("Starting health check")

	report := &Report{Results: make([]PairResult, 0, len(pairs))}
	for _, pair := range pairs {
		var res PairResult
		if err := ctx.Err(); err != nil {
			res = PairResult{Pair: pair, Outcome: OutcomeFetchFailed, Err: fmt.Errorf("not checked: %w", err)}
		} else {
			res = s.checkPair(ctx, pair)
		}
		report.Results = append(report.Results, res)
		if s.recorder != nil {
			s.recorder.Record(res)
		}
	}

	s.logger.WithFields(logrus.Fields{
		"fresh":         report.Count(OutcomeFresh),
		"stale":         report.Count(OutcomeStaleNotified),
		"fetch_failed":  report.Count(OutcomeFetchFailed),
		"notify_failed": report.Count(OutcomeNotifyFailed),
	}).Info("Health check finished")
	return report
}

func (s *HealthCheckService) checkPair(ctx context.Context, pair activity.Pair) PairResult {
	logCtx := s.logger.WithFields(logrus.Fields{"region": pair.Region, "bracket": pair.Bracket})
	res := PairResult{Pair: pair}

	lastUpdated, err := s.source.LastUpdated(ctx, pair.Region, pair.Bracket)
	if err != nil {
		logCtx.WithError(err).Error("Failed to fetch last update")
		res.Outcome = OutcomeFetchFailed
		res.Err = err
		return res
	}
	res.LastUpdated = lastUpdated
	res.ElapsedMinutes = activity.ElapsedMinutes(lastUpdated, s.now())
	logCtx = logCtx.WithField("elapsed_minutes", res.ElapsedMinutes)
	logCtx.Infof("Last updated: %d minutes ago", res.ElapsedMinutes)

	if !s.cfg.Threshold.IsStale(res.ElapsedMinutes) {
		logCtx.Info("Everything is fine, not sending any notifications")
		res.Outcome = OutcomeFresh
		return res
	}

	logCtx.Warnf("%d minutes since last update exceeds %d minute limit", res.ElapsedMinutes, s.cfg.Threshold)
	text := FormatStaleMessage(s.cfg.SiteURL, pair, res.ElapsedMinutes)
	if err := s.client.SendMessage(ctx, s.cfg.ChatID, text); err != nil {
		logCtx.WithError(err).Error("Failed to deliver stale alert")
		res.Outcome = OutcomeNotifyFailed
		res.Err = err
		return res
	}
	logCtx.Info("Stale alert delivered")
	res.Outcome = OutcomeStaleNotified
	return res
}
