package types

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xraph/licensing/fault"
)

// Money is an amount in the smallest unit of its currency. The registry only
// stores it as the configured issuance fee; collecting the fee is left to the
// host's FeeChecker.
type Money struct {
	Amount   int64  `json:"amount"`   // Smallest unit (cents, pence, etc)
	Currency string `json:"currency"` // ISO 4217 lowercase: "usd", "eur", "gbp"
}

// NewMoney returns amount in the given currency.
func NewMoney(amount int64, currency string) Money {
	return Money{Amount: amount, Currency: strings.ToLower(currency)}
}

// Zero returns a zero Money value in the specified currency.
func Zero(currency string) Money { return NewMoney(0, currency) }

// IsZero returns true if the amount is zero.
func (m Money) IsZero() bool { return m.Amount == 0 }

// IsNegative returns true if the amount is less than zero.
func (m Money) IsNegative() bool { return m.Amount < 0 }

// Equal returns true if both values have the same amount and currency.
func (m Money) Equal(other Money) bool {
	return m.Amount == other.Amount && m.Currency == other.Currency
}

// Validate rejects negative amounts and a missing currency on a non-zero amount.
func (m Money) Validate() error {
	if m.IsNegative() {
		return fault.InvalidError("fee amount is negative")
	}
	if !m.IsZero() && m.Currency == "" {
		return fault.InvalidError("fee currency is required")
	}
	return nil
}

// FormatMajor returns the amount in major units without a symbol:
// "49.00" for 4900 usd, "100" for 100 jpy.
func (m Money) FormatMajor() string {
	decimals := currencyDecimals(m.Currency)
	if decimals == 0 {
		return fmt.Sprintf("%d", m.Amount)
	}

	sign := ""
	abs := m.Amount
	if abs < 0 {
		sign = "-"
		abs = -abs
	}
	return fmt.Sprintf("%s%d.%02d", sign, abs/100, abs%100)
}

// String returns the amount followed by its upper-case currency code.
func (m Money) String() string {
	if m.Currency == "" {
		return m.FormatMajor()
	}
	return m.FormatMajor() + " " + strings.ToUpper(m.Currency)
}

// MarshalJSON implements json.Marshaler.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
		Display  string `json:"display"`
	}{
		Amount:   m.Amount,
		Currency: m.Currency,
		Display:  m.String(),
	})
}

// currencyDecimals returns the number of decimal places for a currency.
func currencyDecimals(currency string) int {
	switch strings.ToLower(currency) {
	case "jpy", "krw", "vnd", "clp", "pyg", "idr":
		return 0
	default:
		return 2
	}
}
