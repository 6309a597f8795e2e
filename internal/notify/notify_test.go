package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MarkoPoloResearchLab/wagerbook/pkg/wager"
)

func TestWebhookNotifierPostsPayload(test *testing.T) {
	test.Parallel()
	var received Payload
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.Method != http.MethodPost {
			test.Errorf("expected POST, got %s", request.Method)
		}
		if contentType := request.Header.Get("Content-Type"); contentType != "application/json" {
			test.Errorf("expected json content type, got %q", contentType)
		}
		if err := json.NewDecoder(request.Body).Decode(&received); err != nil {
			test.Errorf("decode payload: %v", err)
		}
		writer.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier := NewWebhookNotifier(server.URL)
	userID := mustUserID(test, "notified-user")
	result := settlementResult(test, userID)

	if err := notifier.Notify(context.Background(), userID, result); err != nil {
		test.Fatalf("notify: %v", err)
	}
	if received.UserID != "notified-user" || received.State != "won" {
		test.Fatalf("unexpected payload: %+v", received)
	}
	if received.PayoutCents != 250 || received.BalanceCents != 1150 {
		test.Fatalf("unexpected amounts: %+v", received)
	}
}

func TestWebhookNotifierRejectsGatewayError(test *testing.T) {
	test.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	notifier := NewWebhookNotifier(server.URL)
	userID := mustUserID(test, "unlucky-user")

	if err := notifier.Notify(context.Background(), userID, settlementResult(test, userID)); err == nil {
		test.Fatalf("expected error on gateway 500")
	}
}

func TestWebhookNotifierUnreachableEndpoint(test *testing.T) {
	test.Parallel()
	notifier := NewWebhookNotifier("http://127.0.0.1:1/unreachable")
	userID := mustUserID(test, "offline-user")

	if err := notifier.Notify(context.Background(), userID, settlementResult(test, userID)); err == nil {
		test.Fatalf("expected connection error")
	}
}

func TestLogNotifierNeverFails(test *testing.T) {
	test.Parallel()
	notifier := NewLogNotifier(nil)
	userID := mustUserID(test, "logged-user")

	if err := notifier.Notify(context.Background(), userID, settlementResult(test, userID)); err != nil {
		test.Fatalf("log notifier: %v", err)
	}
}

func mustUserID(test *testing.T, raw string) wager.UserID {
	test.Helper()
	userID, err := wager.NewUserID(raw)
	if err != nil {
		test.Fatalf("user id: %v", err)
	}
	return userID
}

func settlementResult(test *testing.T, userID wager.UserID) wager.SettlementResult {
	test.Helper()
	wagerID, err := wager.NewWagerID("w-1")
	if err != nil {
		test.Fatalf("wager id: %v", err)
	}
	eventID, err := wager.NewEventID("event-1")
	if err != nil {
		test.Fatalf("event id: %v", err)
	}
	selection, err := wager.NewSelection("home")
	if err != nil {
		test.Fatalf("selection: %v", err)
	}
	stake, err := wager.NewStakeCents(100)
	if err != nil {
		test.Fatalf("stake: %v", err)
	}
	return wager.SettlementResult{
		WagerID:      wagerID,
		UserID:       userID,
		EventID:      eventID,
		Selection:    selection,
		State:        wager.WagerStateWon,
		StakeCents:   stake,
		ProfitCents:  150,
		PayoutCents:  250,
		BalanceCents: 1150,
	}
}
