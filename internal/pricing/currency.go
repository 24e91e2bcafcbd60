package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/sylvain-nomadays/nomadays-api-sub000/internal/domain"
	"github.com/sylvain-nomadays/nomadays-api-sub000/internal/money"
)

// MissingExchangeRateError reports a currency with no rate in the trip table.
// It is recoverable: callers price the item at an identity rate.
type MissingExchangeRateError struct {
	From string
	To   string
}

func (e *MissingExchangeRateError) Error() string {
	return fmt.Sprintf("exchange rate required: %s -> %s", e.From, e.To)
}

// ExchangeRate returns how many units of the trip currency one unit of from is worth.
func ExchangeRate(trip domain.Trip, from string) (decimal.Decimal, error) {
	to := trip.SellingCurrency()
	if from == "" || from == to {
		return money.One, nil
	}
	rate, ok := trip.CurrencyRates[from]
	if !ok || !rate.Rate.IsPositive() {
		return money.One, &MissingExchangeRateError{From: from, To: to}
	}
	return rate.Rate, nil
}

// Convert converts amount with rate and rounds.
func Convert(amount, rate decimal.Decimal) decimal.Decimal {
	return money.Round(amount.Mul(rate))
}
