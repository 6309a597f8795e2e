package wager

import (
	"errors"
	"testing"
)

func TestNewUserIDTrimsWhitespace(test *testing.T) {
	test.Parallel()
	value, err := NewUserID("  user-7  ")
	if err != nil {
		test.Fatalf("user id: %v", err)
	}
	if value.String() != "user-7" {
		test.Fatalf("expected trimmed id, got %q", value.String())
	}
}

func TestNewUserIDRejectsEmpty(test *testing.T) {
	test.Parallel()
	if _, err := NewUserID("   "); !errors.Is(err, ErrInvalidUserID) {
		test.Fatalf("expected ErrInvalidUserID, got %v", err)
	}
}

func TestNewEventIDRejectsEmpty(test *testing.T) {
	test.Parallel()
	if _, err := NewEventID(""); !errors.Is(err, ErrInvalidEventID) {
		test.Fatalf("expected ErrInvalidEventID, got %v", err)
	}
}

func TestNewSelectionRejectsEmpty(test *testing.T) {
	test.Parallel()
	if _, err := NewSelection(" "); !errors.Is(err, ErrInvalidSelection) {
		test.Fatalf("expected ErrInvalidSelection, got %v", err)
	}
}

func TestNewStakeCentsRejectsNonPositive(test *testing.T) {
	test.Parallel()
	if _, err := NewStakeCents(0); !errors.Is(err, ErrInvalidStakeCents) {
		test.Fatalf("expected ErrInvalidStakeCents for zero, got %v", err)
	}
	if _, err := NewStakeCents(-5); !errors.Is(err, ErrInvalidStakeCents) {
		test.Fatalf("expected ErrInvalidStakeCents for negative, got %v", err)
	}
}

func TestNewAmountCentsRejectsNegative(test *testing.T) {
	test.Parallel()
	if _, err := NewAmountCents(-1); !errors.Is(err, ErrInvalidAmountCents) {
		test.Fatalf("expected ErrInvalidAmountCents, got %v", err)
	}
}

func TestNewPriceRejectsShortMoneylines(test *testing.T) {
	test.Parallel()
	for _, raw := range []int64{0, 1, 99, -1, -99} {
		if _, err := NewPrice(raw); !errors.Is(err, ErrInvalidPrice) {
			test.Fatalf("expected ErrInvalidPrice for %d, got %v", raw, err)
		}
	}
	for _, raw := range []int64{100, -100, 150, -200, 10000} {
		if _, err := NewPrice(raw); err != nil {
			test.Fatalf("expected %d to be a valid price, got %v", raw, err)
		}
	}
}

func TestNewMetadataJSONDefaultsToEmptyObject(test *testing.T) {
	test.Parallel()
	value, err := NewMetadataJSON("")
	if err != nil {
		test.Fatalf("metadata: %v", err)
	}
	if value.String() != "{}" {
		test.Fatalf("expected {} default, got %q", value.String())
	}
}

func TestNewMetadataJSONRejectsMalformed(test *testing.T) {
	test.Parallel()
	if _, err := NewMetadataJSON("{not json"); !errors.Is(err, ErrInvalidMetadataJSON) {
		test.Fatalf("expected ErrInvalidMetadataJSON, got %v", err)
	}
}

func TestParseWagerState(test *testing.T) {
	test.Parallel()
	for _, raw := range []string{"pending", "won", "lost", "pushed", "cancelled"} {
		if _, err := ParseWagerState(raw); err != nil {
			test.Fatalf("expected %q to parse, got %v", raw, err)
		}
	}
	if _, err := ParseWagerState("settled"); !errors.Is(err, ErrInvalidWagerState) {
		test.Fatalf("expected ErrInvalidWagerState, got %v", err)
	}
}

func TestWagerStateTerminal(test *testing.T) {
	test.Parallel()
	if WagerStatePending.Terminal() {
		test.Fatalf("pending must not be terminal")
	}
	for _, state := range []WagerState{WagerStateWon, WagerStateLost, WagerStatePushed, WagerStateCancelled} {
		if !state.Terminal() {
			test.Fatalf("expected %s to be terminal", state)
		}
	}
}

func TestParseOutcomeNormalizesCase(test *testing.T) {
	test.Parallel()
	outcome, err := ParseOutcome("  WON ")
	if err != nil {
		test.Fatalf("outcome: %v", err)
	}
	if outcome != OutcomeWon {
		test.Fatalf("expected won, got %s", outcome)
	}
	if _, err := ParseOutcome("void"); !errors.Is(err, ErrInvalidOutcome) {
		test.Fatalf("expected ErrInvalidOutcome, got %v", err)
	}
}

func TestOutcomeState(test *testing.T) {
	test.Parallel()
	if OutcomeWon.State() != WagerStateWon {
		test.Fatalf("won outcome must settle to won state")
	}
	if OutcomeLost.State() != WagerStateLost {
		test.Fatalf("lost outcome must settle to lost state")
	}
	if OutcomePushed.State() != WagerStatePushed {
		test.Fatalf("pushed outcome must settle to pushed state")
	}
}

func TestStatsWinRate(test *testing.T) {
	test.Parallel()
	stats := Stats{TotalWon: 3, TotalLost: 1}
	if got := stats.WinRate(); got != 75 {
		test.Fatalf("expected 75 win rate, got %v", got)
	}
	if got := (Stats{}).WinRate(); got != 0 {
		test.Fatalf("expected 0 win rate with no decided wagers, got %v", got)
	}
}
