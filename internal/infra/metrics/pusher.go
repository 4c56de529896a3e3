// internal/infra/metrics/pusher.go
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"pvpq_health_check/internal/app"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// JobName groups this program's metrics on the Pushgateway.
const JobName = "pvpq_health_check"

// Pusher collects per-pair results of one run and pushes them to a Prometheus Pushgateway.
type Pusher struct {
	registry   *prometheus.Registry
	pusher     *push.Pusher
	lastUpdate *prometheus.GaugeVec
	stale      *prometheus.GaugeVec
	failed     *prometheus.GaugeVec
	lastRun    prometheus.Gauge
}

func NewPusher(gatewayURL string, client *http.Client) *Pusher {
	p := &Pusher{
		registry: prometheus.NewRegistry(),
		lastUpdate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pvpq_activity_last_update_age_minutes",
			Help: "Minutes since the activity page of a region/bracket was last updated.",
		}, []string{"region", "bracket"}),
		stale: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pvpq_activity_stale",
			Help: "1 if the region/bracket exceeded the staleness threshold, 0 otherwise.",
		}, []string{"region", "bracket"}),
		failed: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pvpq_healthcheck_pair_failed",
			Help: "1 if the check of a region/bracket failed at the given stage.",
		}, []string{"region", "bracket", "stage"}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pvpq_healthcheck_last_run_timestamp_seconds",
			Help: "Unix time of the last completed health check run.",
		}),
	}
	p.registry.MustRegister(p.lastUpdate, p.stale, p.failed, p.lastRun)

	p.pusher = push.New(gatewayURL, JobName).Gatherer(p.registry)
	if client != nil {
		p.pusher = p.pusher.Client(client)
	}
	return p
}

// Record implements app.ResultRecorder.
func (p *Pusher) Record(res app.PairResult) {
	region, bracket := res.Pair.Region, res.Pair.Bracket
	switch res.Outcome {
	case app.OutcomeFetchFailed:
		p.failed.WithLabelValues(region, bracket, "fetch").Set(1)
		return
	case app.OutcomeNotifyFailed:
		p.failed.WithLabelValues(region, bracket, "notify").Set(1)
	}
	p.lastUpdate.WithLabelValues(region, bracket).Set(float64(res.ElapsedMinutes))
	if res.Stale() {
		p.stale.WithLabelValues(region, bracket).Set(1)
	} else {
		p.stale.WithLabelValues(region, bracket).Set(0)
	}
}

// Push replaces this job's metric group on the gateway.
func (p *Pusher) Push(ctx context.Context) error {
	p.lastRun.Set(float64(time.Now().Unix()))
	if err := p.pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to gateway: %w", err)
	}
	return nil
}
