// Package odds adapts the external odds feed to the wager.OddsSource
// contract. The feed itself is an external collaborator; this package only
// reads the quotes it publishes.
package odds

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/MarkoPoloResearchLab/wagerbook/pkg/wager"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "odds:event:"

// feedQuote is the wire shape the odds feed caches per event.
type feedQuote struct {
	Selection string `json:"selection"`
	Price     int64  `json:"price"`
}

type feedPayload struct {
	EventID string      `json:"event_id"`
	Quotes  []feedQuote `json:"quotes"`
}

// RedisSource reads moneyline quotes the odds feed keeps cached in redis.
type RedisSource struct {
	client *redis.Client
}

// NewRedisSource wires a RedisSource.
func NewRedisSource(client *redis.Client) *RedisSource {
	return &RedisSource{client: client}
}

func (source *RedisSource) GetOdds(ctx context.Context, eventID wager.EventID) ([]wager.Quote, error) {
	raw, err := source.client.Get(ctx, keyPrefix+eventID.String()).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("%w: %s", wager.ErrUnknownEvent, eventID.String())
	}
	if err != nil {
		return nil, fmt.Errorf("read odds for event %s: %w", eventID.String(), err)
	}
	return decodeQuotes(raw)
}

func decodeQuotes(raw []byte) ([]wager.Quote, error) {
	var payload feedPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode odds payload: %w", err)
	}
	quotes := make([]wager.Quote, 0, len(payload.Quotes))
	for _, entry := range payload.Quotes {
		selection, err := wager.NewSelection(entry.Selection)
		if err != nil {
			return nil, fmt.Errorf("decode odds payload: %w", err)
		}
		price, err := wager.NewPrice(entry.Price)
		if err != nil {
			return nil, fmt.Errorf("decode odds payload: %w", err)
		}
		quotes = append(quotes, wager.Quote{Selection: selection, Price: price})
	}
	return quotes, nil
}

// StaticSource serves a fixed quote table. Used in tests and when no feed is
// configured.
type StaticSource struct {
	quotes map[string][]wager.Quote
}

// NewStaticSource wires a StaticSource over a per-event quote table.
func NewStaticSource(quotes map[string][]wager.Quote) *StaticSource {
	if quotes == nil {
		quotes = map[string][]wager.Quote{}
	}
	return &StaticSource{quotes: quotes}
}

func (source *StaticSource) GetOdds(_ context.Context, eventID wager.EventID) ([]wager.Quote, error) {
	quotes, ok := source.quotes[eventID.String()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", wager.ErrUnknownEvent, eventID.String())
	}
	return quotes, nil
}
