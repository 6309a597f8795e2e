package wager

import "math"

// DecimalOdds converts an American moneyline price to decimal odds.
// A positive price is the profit on a 100 stake; a negative price is the
// stake required to profit 100.
func DecimalOdds(price Price) float64 {
	raw := float64(price.Int64())
	if raw > 0 {
		return raw/100 + 1
	}
	return 100/math.Abs(raw) + 1
}

// ProfitCents computes the winnings (excluding the returned stake) for a
// winning wager, rounded to the nearest cent.
func ProfitCents(stake StakeCents, price Price) AmountCents {
	decimal := DecimalOdds(price)
	return AmountCents(math.Round((decimal - 1) * float64(stake.Int64())))
}

// PayoutCents is the total credited on a win: stake plus profit.
func PayoutCents(stake StakeCents, price Price) AmountCents {
	return stake.ToAmountCents() + ProfitCents(stake, price)
}
