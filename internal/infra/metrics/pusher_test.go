package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"pvpq_health_check/internal/app"
	"pvpq_health_check/internal/domain/activity"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPusher_Record(t *testing.T) {
	p := NewPusher("http://localhost:9091", nil)

	p.Record(app.PairResult{Pair: activity.Pair{Region: "en-gb", Bracket: "shuffle"}, Outcome: app.OutcomeStaleNotified, ElapsedMinutes: 240})
	p.Record(app.PairResult{Pair: activity.Pair{Region: "en-us", Bracket: "rbg"}, Outcome: app.OutcomeFresh, ElapsedMinutes: 60})
	p.Record(app.PairResult{Pair: activity.Pair{Region: "en-us", Bracket: "2v2"}, Outcome: app.OutcomeFetchFailed})
	p.Record(app.PairResult{Pair: activity.Pair{Region: "en-gb", Bracket: "3v3"}, Outcome: app.OutcomeNotifyFailed, ElapsedMinutes: 300})

	if got := testutil.ToFloat64(p.lastUpdate.WithLabelValues("en-gb", "shuffle")); got != 240 {
		t.Errorf("age(en-gb, shuffle) = %v, want 240", got)
	}
	if got := testutil.ToFloat64(p.stale.WithLabelValues("en-gb", "shuffle")); got != 1 {
		t.Errorf("stale(en-gb, shuffle) = %v, want 1", got)
	}
	if got := testutil.ToFloat64(p.stale.WithLabelValues("en-us", "rbg")); got != 0 {
		t.Errorf("stale(en-us, rbg) = %v, want 0", got)
	}
	if got := testutil.ToFloat64(p.failed.WithLabelValues("en-us", "2v2", "fetch")); got != 1 {
		t.Errorf("failed(en-us, 2v2, fetch) = %v, want 1", got)
	}
	if got := testutil.ToFloat64(p.failed.WithLabelValues("en-gb", "3v3", "notify")); got != 1 {
		t.Errorf("failed(en-gb, 3v3, notify) = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(p.lastUpdate); got != 3 {
		t.Errorf("age series = %d, want 3 (failed fetch has no age)", got)
	}
}

func TestPusher_Push(t *testing.T) {
	var method, path, body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		path = r.URL.Path
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewPusher(srv.URL, srv.Client())
	p.Record(app.PairResult{Pair: activity.Pair{Region: "en-gb", Bracket: "shuffle"}, Outcome: app.OutcomeFresh, ElapsedMinutes: 12})

	if err := p.Push(context.Background()); err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	if method != http.MethodPut {
		t.Errorf("method = %s, want PUT", method)
	}
	if path != "/metrics/job/"+JobName {
		t.Errorf("path = %s", path)
	}
	if body == "" {
		t.Error("pushed body is empty")
	}
}

func TestPusher_PushError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := NewPusher(srv.URL, srv.Client()).Push(context.Background())
	if err == nil || !strings.Contains(err.Error(), "push metrics") {
		t.Fatalf("Push() error = %v", err)
	}
}
