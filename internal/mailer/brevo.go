package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// DefaultBrevoURL — endpoint transactional API.
const DefaultBrevoURL = "https://api.brevo.com/v3/smtp/email"

// ErrTransportRejected — провайдер отклонил письмо (4xx).
var ErrTransportRejected = errors.New("transport rejected message")

// Contact — отправитель или получатель.
type Contact struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

// brevoEmail — тело запроса POST /v3/smtp/email.
type brevoEmail struct {
	Sender      Contact   `json:"sender"`
	To          []Contact `json:"to"`
	ReplyTo     *Contact  `json:"replyTo,omitempty"`
	Subject     string    `json:"subject"`
	HTMLContent string    `json:"htmlContent"`
	Tags        []string  `json:"tags,omitempty"`
}

// BrevoTransport отправляет письма через Brevo API.
type BrevoTransport struct {
	apiURL  string
	apiKey  string
	sender  Contact
	replyTo *Contact
	tags    []string
	client  *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// BrevoConfig — конфигурация BrevoTransport.
type BrevoConfig struct {
	APIURL  string // default: DefaultBrevoURL
	APIKey  string
	Sender  Contact
	ReplyTo *Contact
	Tags    []string

	Timeout    time.Duration // default: 15s
	RatePerSec float64       // <= 0 — без ограничения
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// NewBrevoTransport создаёт транспорт.
func NewBrevoTransport(cfg BrevoConfig) *BrevoTransport {
	apiURL := cfg.APIURL
	if apiURL == "" {
		apiURL = DefaultBrevoURL
	}

	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RatePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), 1)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &BrevoTransport{
		apiURL:  apiURL,
		apiKey:  cfg.APIKey,
		sender:  cfg.Sender,
		replyTo: cfg.ReplyTo,
		tags:    cfg.Tags,
		client:  client,
		limiter: limiter,
		logger:  logger,
	}
}

// Send отправляет одно письмо.
//
// (true, nil) — письмо принято провайдером.
// (false, err) — отклонено (ErrTransportRejected) или сетевая ошибка.
func (t *BrevoTransport) Send(ctx context.Context, to, subject, html string) (bool, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return false, fmt.Errorf("rate limiter: %w", err)
	}

	payload := brevoEmail{
		Sender:      t.sender,
		To:          []Contact{{Email: to}},
		ReplyTo:     t.replyTo,
		Subject:     subject,
		HTMLContent: html,
		Tags:        t.tags,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return false, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.apiURL, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("api-key", t.apiKey)

	resp, err := t.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		var accepted struct {
			MessageID string `json:"messageId"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&accepted)
		t.logger.Debug("email accepted by brevo", "to", to, "message_id", accepted.MessageID)
		return true, nil
	}

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return false, fmt.Errorf("%w: status %d: %s", ErrTransportRejected, resp.StatusCode, respBody)
	}
	return false, fmt.Errorf("brevo API error (status %d): %s", resp.StatusCode, respBody)
}
