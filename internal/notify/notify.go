// Package notify delivers settlement results to the chat-platform
// collaborator. Delivery is best effort; the ledger transaction has already
// committed by the time anything here runs.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/MarkoPoloResearchLab/wagerbook/pkg/wager"
	"go.uber.org/zap"
)

const defaultRequestTimeout = 3 * time.Second

// Payload is the JSON body posted to the chat gateway.
type Payload struct {
	UserID       string `json:"user_id"`
	WagerID      string `json:"wager_id"`
	EventID      string `json:"event_id"`
	Selection    string `json:"selection"`
	State        string `json:"state"`
	StakeCents   int64  `json:"stake_cents"`
	ProfitCents  int64  `json:"profit_cents"`
	PayoutCents  int64  `json:"payout_cents"`
	BalanceCents int64  `json:"balance_cents"`
}

// WebhookNotifier posts settlement results to the chat gateway endpoint.
type WebhookNotifier struct {
	endpoint string
	client   *http.Client
}

// NewWebhookNotifier wires a notifier against the chat gateway.
func NewWebhookNotifier(endpoint string) *WebhookNotifier {
	return &WebhookNotifier{
		endpoint: endpoint,
		client:   &http.Client{Timeout: defaultRequestTimeout},
	}
}

func (notifier *WebhookNotifier) Notify(ctx context.Context, userID wager.UserID, result wager.SettlementResult) error {
	payload := Payload{
		UserID:       userID.String(),
		WagerID:      result.WagerID.String(),
		EventID:      result.EventID.String(),
		Selection:    result.Selection.String(),
		State:        result.State.String(),
		StakeCents:   result.StakeCents.Int64(),
		ProfitCents:  result.ProfitCents.Int64(),
		PayoutCents:  result.PayoutCents.Int64(),
		BalanceCents: result.BalanceCents.Int64(),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, notifier.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := notifier.client.Do(request)
	if err != nil {
		return fmt.Errorf("deliver notification: %w", err)
	}
	defer response.Body.Close()
	if response.StatusCode < 200 || response.StatusCode > 299 {
		return fmt.Errorf("deliver notification: gateway returned %d", response.StatusCode)
	}
	return nil
}

// LogNotifier records results to the log instead of delivering them. Used
// when no chat gateway is configured.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier wires a log-only notifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

func (notifier *LogNotifier) Notify(_ context.Context, userID wager.UserID, result wager.SettlementResult) error {
	notifier.logger.Info("settlement result",
		zap.String("user_id", userID.String()),
		zap.String("wager_id", result.WagerID.String()),
		zap.String("state", result.State.String()),
		zap.Int64("payout_cents", result.PayoutCents.Int64()),
		zap.Int64("balance_cents", result.BalanceCents.Int64()),
	)
	return nil
}
