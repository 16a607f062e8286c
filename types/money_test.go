package types

import (
	"encoding/json"
	"testing"
)

func TestMoneyFormatting(t *testing.T) {
	tests := []struct {
		name    string
		money   Money
		major   string
		display string
	}{
		{"USD", NewMoney(4900, "USD"), "49.00", "49.00 USD"},
		{"EUR cents", NewMoney(5, "eur"), "0.05", "0.05 EUR"},
		{"JPY", NewMoney(100, "jpy"), "100", "100 JPY"},
		{"Zero", Zero("gbp"), "0.00", "0.00 GBP"},
		{"Negative", NewMoney(-250, "usd"), "-2.50", "-2.50 USD"},
		{"No currency", Money{}, "0.00", "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.money.FormatMajor(); got != tt.major {
				t.Errorf("FormatMajor: got %s, want %s", got, tt.major)
			}
			if got := tt.money.String(); got != tt.display {
				t.Errorf("String: got %s, want %s", got, tt.display)
			}
		})
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := Zero("").Validate(); err != nil {
		t.Errorf("zero fee without currency should be valid: %v", err)
	}
	if err := NewMoney(100, "usd").Validate(); err != nil {
		t.Errorf("positive fee should be valid: %v", err)
	}
	if err := NewMoney(-1, "usd").Validate(); err == nil {
		t.Error("negative fee should be rejected")
	}
	if err := (Money{Amount: 5}).Validate(); err == nil {
		t.Error("non-zero fee without currency should be rejected")
	}
}

func TestMoneyJSON(t *testing.T) {
	data, err := json.Marshal(NewMoney(1999, "usd"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded struct {
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
		Display  string `json:"display"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Amount != 1999 || decoded.Currency != "usd" || decoded.Display != "19.99 USD" {
		t.Errorf("unexpected JSON: %s", data)
	}
}
