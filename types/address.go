// Package types provides value types shared across the license registry.
package types

import (
	"strings"
	"unicode"

	"github.com/xraph/licensing/fault"
)

// Address identifies a party that can hold, transfer or reclaim licenses.
// The zero value is the Null address.
type Address string

// Null is the reserved "no one" identity. Units credited to Null are
// destroyed: no operation ever debits from it, and it can never act as a
// caller or hold a recall right.
const Null Address = ""

// maxAddressLength bounds the size of an address accepted from outside.
const maxAddressLength = 256

// ParseAddress validates s and returns it as an Address. Surrounding space
// is trimmed; an empty string parses to Null.
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if len(s) > maxAddressLength {
		return Null, fault.InvalidError("address is too long")
	}
	for _, r := range s {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return Null, fault.InvalidError("address contains whitespace or control characters")
		}
	}
	return Address(s), nil
}

// MustParseAddress is like ParseAddress but panics on error.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic("types: " + err.Error())
	}
	return a
}

// IsNull reports whether a is the reserved Null identity.
func (a Address) IsNull() bool { return a == Null }

// String returns the address text, or "null" for the Null address.
func (a Address) String() string {
	if a.IsNull() {
		return "null"
	}
	return string(a)
}
