package odds

import (
	"context"
	"errors"
	"testing"

	"github.com/MarkoPoloResearchLab/wagerbook/pkg/wager"
)

func TestDecodeQuotes(test *testing.T) {
	test.Parallel()
	raw := []byte(`{"event_id":"event-1","quotes":[{"selection":"home","price":150},{"selection":"away","price":-170}]}`)

	quotes, err := decodeQuotes(raw)
	if err != nil {
		test.Fatalf("decode: %v", err)
	}
	if len(quotes) != 2 {
		test.Fatalf("expected 2 quotes, got %d", len(quotes))
	}
	if quotes[0].Selection.String() != "home" || quotes[0].Price.Int64() != 150 {
		test.Fatalf("unexpected first quote: %+v", quotes[0])
	}
	if quotes[1].Selection.String() != "away" || quotes[1].Price.Int64() != -170 {
		test.Fatalf("unexpected second quote: %+v", quotes[1])
	}
}

func TestDecodeQuotesRejectsMalformedJSON(test *testing.T) {
	test.Parallel()
	if _, err := decodeQuotes([]byte(`{broken`)); err == nil {
		test.Fatalf("expected decode error")
	}
}

func TestDecodeQuotesRejectsInvalidPrice(test *testing.T) {
	test.Parallel()
	raw := []byte(`{"event_id":"event-1","quotes":[{"selection":"home","price":50}]}`)
	if _, err := decodeQuotes(raw); !errors.Is(err, wager.ErrInvalidPrice) {
		test.Fatalf("expected ErrInvalidPrice, got %v", err)
	}
}

func TestDecodeQuotesRejectsEmptySelection(test *testing.T) {
	test.Parallel()
	raw := []byte(`{"event_id":"event-1","quotes":[{"selection":"","price":150}]}`)
	if _, err := decodeQuotes(raw); !errors.Is(err, wager.ErrInvalidSelection) {
		test.Fatalf("expected ErrInvalidSelection, got %v", err)
	}
}

func TestStaticSourceUnknownEvent(test *testing.T) {
	test.Parallel()
	source := NewStaticSource(nil)
	eventID, err := wager.NewEventID("missing")
	if err != nil {
		test.Fatalf("event id: %v", err)
	}
	if _, err := source.GetOdds(context.Background(), eventID); !errors.Is(err, wager.ErrUnknownEvent) {
		test.Fatalf("expected ErrUnknownEvent, got %v", err)
	}
}

func TestStaticSourceServesSeededQuotes(test *testing.T) {
	test.Parallel()
	selection, err := wager.NewSelection("home")
	if err != nil {
		test.Fatalf("selection: %v", err)
	}
	price, err := wager.NewPrice(120)
	if err != nil {
		test.Fatalf("price: %v", err)
	}
	source := NewStaticSource(map[string][]wager.Quote{
		"event-1": {{Selection: selection, Price: price}},
	})
	eventID, err := wager.NewEventID("event-1")
	if err != nil {
		test.Fatalf("event id: %v", err)
	}

	quotes, err := source.GetOdds(context.Background(), eventID)
	if err != nil {
		test.Fatalf("get odds: %v", err)
	}
	if len(quotes) != 1 || quotes[0].Price.Int64() != 120 {
		test.Fatalf("unexpected quotes: %+v", quotes)
	}
}
