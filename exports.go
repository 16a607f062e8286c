package licensing

import "github.com/xraph/licensing/types"

// Re-export common types for convenience so users don't have to import types package.

// Address is re-exported from types package.
type Address = types.Address

// Money is re-exported from types package.
type Money = types.Money

// Null is the reserved "no one" address. Transfers to it destroy units.
const Null = types.Null

// Re-export constructors
var (
	ParseAddress = types.ParseAddress
	NewMoney     = types.NewMoney
)
