package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

var ErrNegativeAmount = errors.New("amount must not be negative")

type Money struct {
	Amount   decimal.Decimal
	Currency currency.Unit
}

// MinorUnits converts the amount to integer minor units of its currency
// (paise for INR), rounding half away from zero. Gateways reject fractional
// amounts, so this is the only form an amount is submitted in.
func (m Money) MinorUnits() (int64, error) {
	if m.Amount.IsNegative() {
		return 0, ErrNegativeAmount
	}
	scale, _ := currency.Standard.Rounding(m.Currency)
	return m.Amount.Shift(int32(scale)).Round(0).IntPart(), nil
}

// String formats the amount with the currency's standard number of decimals,
// e.g. "INR 1250.00".
func (m Money) String() string {
	scale, _ := currency.Standard.Rounding(m.Currency)
	return fmt.Sprintf("%s %s", m.Currency, m.Amount.StringFixed(int32(scale)))
}

// ParseCurrency parses an ISO 4217 code.
func ParseCurrency(code string) (currency.Unit, error) {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return currency.Unit{}, fmt.Errorf("currency[%s] is not valid: %w", code, err)
	}
	return unit, nil
}
