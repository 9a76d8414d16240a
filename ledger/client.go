// Package ledger начисляет XP и кредиты во внешнем сервисе учёта.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

var ErrLedgerRejected = errors.New("ledger rejected credit")

type creditRequest struct {
	ParticipantID int    `json:"participant_id"`
	Amount        int    `json:"amount"`
	Currency      string `json:"currency"`
	Reason        string `json:"reason"`
}

// HTTPClient posts credits to the ledger service. The idempotency key travels in
// the Idempotency-Key header; the ledger answers 409 for a key it already applied.
type HTTPClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	logger     *slog.Logger
}

func NewHTTPClient(baseURL, token string, logger *slog.Logger) *HTTPClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger.With(slog.String("component", "ledger")),
	}
}

func (c *HTTPClient) Credit(ctx context.Context, participantID, amount int, currency, reason, idempotencyKey string) error {
	body, err := json.Marshal(creditRequest{
		ParticipantID: participantID,
		Amount:        amount,
		Currency:      currency,
		Reason:        reason,
	})
	if err != nil {
		return fmt.Errorf("failed to encode credit request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/v1/credits", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", idempotencyKey)
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call ledger service: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusConflict:
		// ключ уже применён
		c.logger.DebugContext(ctx, "credit already applied", slog.String("key", idempotencyKey))
		return nil
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	default:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%w: status %d: %s", ErrLedgerRejected, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
}

// LogLedger только пишет начисления в лог. Используется, когда LEDGER_URL не задан.
type LogLedger struct {
	logger *slog.Logger
}

func NewLogLedger(logger *slog.Logger) *LogLedger {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogLedger{logger: logger.With(slog.String("component", "ledger"))}
}

func (l *LogLedger) Credit(ctx context.Context, participantID, amount int, currency, reason, idempotencyKey string) error {
	l.logger.InfoContext(ctx, "credit",
		slog.Int("participant_id", participantID),
		slog.Int("amount", amount),
		slog.String("currency", currency),
		slog.String("reason", reason),
		slog.String("key", idempotencyKey),
	)
	return nil
}
