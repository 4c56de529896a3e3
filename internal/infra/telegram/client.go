// internal/infra/telegram/client.go
package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	domainTelegram "pvpq_health_check/internal/domain/telegram"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
	"gopkg.in/telebot.v3"
)

// TelebotAdapter implements the Client interface using the gopkg.in/telebot.v3 library.
type TelebotAdapter struct {
	bot     *telebot.Bot
	status  *statusRecorder
	limiter *rate.Limiter
	logger  *logrus.Entry

	// sendMu keeps the recorded status paired with the request that produced it.
	sendMu sync.Mutex
}

// NewTelebotAdapter creates an offline bot: no getMe call is made, so construction
// never touches the network.
func NewTelebotAdapter(apiURL, token string, client *http.Client, limiter *rate.Limiter, logger *logrus.Entry) (*TelebotAdapter, error) {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	status := &statusRecorder{next: client.Transport}
	recording := *client
	recording.Transport = status

	bot, err := telebot.NewBot(telebot.Settings{
		URL:     apiURL,
		Token:   token,
		Client:  &recording,
		Offline: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create telebot bot: %w", err)
	}
	return &TelebotAdapter{
		bot:     bot,
		status:  status,
		limiter: limiter,
		logger:  logger.WithField("telegram_client", "telebot"),
	}, nil
}

// SendMessage sends text to chatID with MarkdownV2 parsing.
func (tba *TelebotAdapter) SendMessage(ctx context.Context, chatID string, text string) error {
	if err := waitLimiter(ctx, tba.limiter); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", domainTelegram.ErrTransport, err)
	}

	logCtx := tba.logger.WithField("chat_id", chatID)
	params := map[string]string{
		"chat_id":    chatID,
		"text":       text,
		"parse_mode": string(telebot.ModeMarkdownV2),
	}

	tba.sendMu.Lock()
	tba.status.reset()
	data, err := tba.bot.Raw("sendMessage", params)
	status := tba.status.last()
	tba.sendMu.Unlock()

	logCtx = logCtx.WithField("status", status)
	classified := classifyTelebotResponse(status, data, err, tba.bot.Token)
	if classified == nil {
		logCtx.Debug("sendMessage accepted")
		return nil
	}
	logCtx.WithFields(logrus.Fields{
		"body":  truncateBody(data),
		"error": classified.Error(),
	}).Error("Error sending notification")
	return classified
}

// classifyTelebotResponse maps the outcome of a raw sendMessage call onto the
// notifier errors. status is the HTTP status seen on the wire, zero if no
// response arrived.
func classifyTelebotResponse(status int, data []byte, err error, token string) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%w: %s", domainTelegram.ErrTransport, redactToken(err.Error(), token))
	}

	var reply struct {
		Ok          bool   `json:"ok"`
		Code        int    `json:"error_code"`
		Description string `json:"description"`
	}
	decodeErr := json.Unmarshal(data, &reply)

	statusOK := status == 0 || (status >= 200 && status <= 299)
	if err == nil && statusOK && decodeErr == nil && reply.Ok {
		return nil
	}

	code := status
	var flood telebot.FloodError
	var apiErr *telebot.Error
	switch {
	case code != 0:
	case errors.As(err, &flood):
		code = http.StatusTooManyRequests
	case errors.As(err, &apiErr):
		code = apiErr.Code
	case decodeErr == nil:
		code = reply.Code
	}
	if code == 0 && err != nil {
		// No response was read at all.
		return fmt.Errorf("%w: %s", domainTelegram.ErrTransport, redactToken(err.Error(), token))
	}

	description := reply.Description
	if decodeErr != nil || description == "" {
		description = truncateBody(data)
	}
	if description == "" && err != nil {
		description = redactToken(err.Error(), token)
	}
	return &domainTelegram.DeliveryError{StatusCode: code, Description: description}
}

func truncateBody(data []byte) string {
	if len(data) > maxErrorBodyBytes {
		data = data[:maxErrorBodyBytes]
	}
	return string(data)
}

// statusRecorder remembers the status code of the last response it carried.
type statusRecorder struct {
	next http.RoundTripper

	mu     sync.Mutex
	status int
}

func (s *statusRecorder) RoundTrip(req *http.Request) (*http.Response, error) {
	next := s.next
	if next == nil {
		next = http.DefaultTransport
	}
	resp, err := next.RoundTrip(req)
	if err == nil {
		s.mu.Lock()
		s.status = resp.StatusCode
		s.mu.Unlock()
	}
	return resp, err
}

func (s *statusRecorder) reset() {
	s.mu.Lock()
	s.status = 0
	s.mu.Unlock()
}

func (s *statusRecorder) last() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}
