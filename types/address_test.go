package types

import (
	"strings"
	"testing"
)

func TestParseAddress(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Address
		wantErr bool
	}{
		{"plain", "alice", "alice", false},
		{"trimmed", "  0xabc  ", "0xabc", false},
		{"empty is null", "", Null, false},
		{"inner space", "al ice", Null, true},
		{"control", "bob\x00", Null, true},
		{"too long", strings.Repeat("a", maxAddressLength+1), Null, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAddress(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNullAddress(t *testing.T) {
	var a Address
	if !a.IsNull() {
		t.Error("zero-value address should be null")
	}
	if a.String() != "null" {
		t.Errorf("expected \"null\", got %q", a.String())
	}
	if Address("alice").IsNull() {
		t.Error("non-empty address reported as null")
	}
}
