// internal/infra/telegram/http_client.go
package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	domainTelegram "pvpq_health_check/internal/domain/telegram"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// DefaultAPIURL is the public Bot API endpoint.
const DefaultAPIURL = "https://api.telegram.org"

const maxErrorBodyBytes = 64 << 10

// HTTPClient implements the Client interface with a plain GET to the sendMessage method,
// passing every parameter in the query string.
type HTTPClient struct {
	apiURL  string
	token   string
	client  *http.Client
	limiter *rate.Limiter
	logger  *logrus.Entry
}

func NewHTTPClient(apiURL, token string, client *http.Client, limiter *rate.Limiter, logger *logrus.Entry) *HTTPClient {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPClient{
		apiURL:  strings.TrimRight(apiURL, "/"),
		token:   token,
		client:  client,
		limiter: limiter,
		logger:  logger.WithField("telegram_client", "http"),
	}
}

// SendMessage sends text to chatID with MarkdownV2 parsing.
func (c *HTTPClient) SendMessage(ctx context.Context, chatID string, text string) error {
	if err := waitLimiter(ctx, c.limiter); err != nil {
		return err
	}

	query := url.Values{}
	query.Set("chat_id", chatID)
	query.Set("parse_mode", domainTelegram.ParseModeMarkdownV2)
	query.Set("text", text)
	endpoint := c.apiURL + "/bot" + c.token + "/sendMessage?" + query.Encode()
	redacted := c.apiURL + "/bot<redacted>/sendMessage"

	logCtx := c.logger.WithFields(logrus.Fields{"url": redacted, "chat_id": chatID})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: build request: %s", domainTelegram.ErrTransport, redactToken(err.Error(), c.token))
	}

	resp, err := c.client.Do(req)
	if err != nil {
		logCtx.WithField("error", redactToken(err.Error(), c.token)).Error("sendMessage request failed")
		return fmt.Errorf("%w: GET %s: %s", domainTelegram.ErrTransport, redacted, redactToken(err.Error(), c.token))
	}
	defer resp.Body.Close()

	logCtx = logCtx.WithField("status", resp.StatusCode)
	logCtx.Debug("sendMessage response received")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		description := string(body)
		if readErr != nil {
			logCtx = logCtx.WithField("body_read_error", readErr.Error())
			description = fmt.Sprintf("%s (body read failed: %v)", description, readErr)
		}
		logCtx.WithField("body", string(body)).Error("Error sending notification")
		return &domainTelegram.DeliveryError{StatusCode: resp.StatusCode, Description: description}
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func waitLimiter(ctx context.Context, limiter *rate.Limiter) error {
	if limiter == nil {
		return nil
	}
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: rate limiter: %v", domainTelegram.ErrTransport, err)
	}
	return nil
}

// redactToken keeps the bot token out of logs and error strings.
func redactToken(s, token string) string {
	if token == "" {
		return s
	}
	return strings.ReplaceAll(s, token, "<redacted>")
}
