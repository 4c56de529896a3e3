package main

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

type telegramRecorder struct {
	mu    sync.Mutex
	texts []string
	fail  bool
}

func (r *telegramRecorder) handler(w http.ResponseWriter, req *http.Request) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.texts = append(r.texts, req.URL.Query().Get("text"))
	if r.fail {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":403,"description":"Forbidden: bot was kicked"}`))
		return
	}
	_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1}}`))
}

// activityServer answers with a timestamp age per bracket.
func activityServer(t *testing.T, ages map[string]time.Duration) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/") // api/{region}/activity/{bracket}
		age, ok := ages[parts[len(parts)-1]]
		if !ok {
			_, _ = w.Write([]byte("not json"))
			return
		}
		fmt.Fprintf(w, `{"timestamp":%d}`, time.Now().Add(-age).UnixMilli())
	}))
	t.Cleanup(srv.Close)
	return srv
}

func setTestEnv(t *testing.T, activityURL, telegramURL, brackets string) {
	t.Helper()
	for _, k := range []string{"TELEGRAM_TOKEN", "TELEGRAM_CHAT_ID", "TELEGRAM_CLIENT", "SITE_URL",
		"HTTP_TIMEOUT", "PUSHGATEWAY_URL", "STALE_THRESHOLD_MINUTES", "CHECKS_FILE", "ENVIRONMENT"} {
		t.Setenv(k, "")
	}
	t.Setenv("ACTIVITY_API_URL", activityURL)
	t.Setenv("TELEGRAM_API_URL", telegramURL)
	t.Setenv("TELEGRAM_RATE_PER_SECOND", "1000")
	t.Setenv("CHECK_REGIONS", "en-gb")
	t.Setenv("CHECK_BRACKETS", brackets)
	t.Setenv("LOG_LEVEL", "error")
}

func TestRootCmd_AlertsStalePairs(t *testing.T) {
	tg := &telegramRecorder{}
	tgSrv := httptest.NewServer(http.HandlerFunc(tg.handler))
	defer tgSrv.Close()
	src := activityServer(t, map[string]time.Duration{"shuffle": 4 * time.Hour, "2v2": time.Hour})
	setTestEnv(t, src.URL, tgSrv.URL, "shuffle,2v2")

	cmd := newRootCmd()
	cmd.SetArgs([]string{"--chat-id", "42", "--token", "1:abc"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if len(tg.texts) != 1 {
		t.Fatalf("messages = %d, want 1", len(tg.texts))
	}
	if !strings.Contains(tg.texts[0], "`4 hours` and `0 minutes` in EU shuffle") {
		t.Errorf("message = %q", tg.texts[0])
	}
}

func TestRootCmd_FailsAfterCheckingEveryPair(t *testing.T) {
	tg := &telegramRecorder{}
	tgSrv := httptest.NewServer(http.HandlerFunc(tg.handler))
	defer tgSrv.Close()
	src := activityServer(t, map[string]time.Duration{"3v3": 5 * time.Hour})
	setTestEnv(t, src.URL, tgSrv.URL, "rbg,3v3")

	cmd := newRootCmd()
	cmd.SetArgs([]string{"-c", "42", "-t", "1:abc"})
	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "en-gb/rbg") {
		t.Fatalf("Execute() error = %v, want failure for en-gb/rbg", err)
	}
	if len(tg.texts) != 1 {
		t.Errorf("messages = %d, want 1 (3v3 still checked)", len(tg.texts))
	}
}

func TestRootCmd_DeliveryFailureFailsRun(t *testing.T) {
	tg := &telegramRecorder{fail: true}
	tgSrv := httptest.NewServer(http.HandlerFunc(tg.handler))
	defer tgSrv.Close()
	src := activityServer(t, map[string]time.Duration{"shuffle": 4 * time.Hour})
	setTestEnv(t, src.URL, tgSrv.URL, "shuffle")

	cmd := newRootCmd()
	cmd.SetArgs([]string{"-c", "42", "-t", "1:abc"})
	if err := cmd.Execute(); err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("Execute() error = %v, want delivery failure", err)
	}
}

func TestRootCmd_RequiresCredentials(t *testing.T) {
	setTestEnv(t, "http://127.0.0.1:1", "http://127.0.0.1:1", "shuffle")

	cmd := newRootCmd()
	cmd.SetArgs([]string{"--chat-id", "42"})
	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "TelegramToken is required") {
		t.Fatalf("Execute() error = %v, want missing token", err)
	}
}

func TestRootCmd_TokenFromEnv(t *testing.T) {
	tg := &telegramRecorder{}
	tgSrv := httptest.NewServer(http.HandlerFunc(tg.handler))
	defer tgSrv.Close()
	src := activityServer(t, map[string]time.Duration{"rbg": time.Hour})
	setTestEnv(t, src.URL, tgSrv.URL, "rbg")
	t.Setenv("TELEGRAM_TOKEN", "1:abc")
	t.Setenv("TELEGRAM_CHAT_ID", "42")

	cmd := newRootCmd()
	cmd.SetArgs([]string{})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(tg.texts) != 0 {
		t.Errorf("messages = %d, want 0", len(tg.texts))
	}
}
