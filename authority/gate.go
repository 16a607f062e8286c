// Package authority implements the issuer authority gate of a license
// contract.
//
// The gate holds two identities and two monotonic flags. The issuer is
// fixed at construction and alone may sign the contract, create issuances
// and revoke them. The root authority administers the contract: it may
// hand its role to another address, change the issuance fee and disable
// the contract (which the issuer may also do). Issuance creation needs the
// contract signed and not disabled.
//
// Every transition has a Can variant that checks without changing state.
package authority

import (
	"fmt"

	"github.com/xraph/licensing/fault"
	"github.com/xraph/licensing/types"
)

// Gate is the authority state of one contract. It is not safe for
// concurrent use; the registry serializes access.
type Gate struct {
	issuer        types.Address
	rootAuthority types.Address
	signed        bool
	disabled      bool
	fee           types.Money
}

// State is a read-only snapshot of a Gate.
type State struct {
	Issuer        types.Address `json:"issuer"`
	RootAuthority types.Address `json:"root_authority"`
	Signed        bool          `json:"signed"`
	Disabled      bool          `json:"disabled"`
	Fee           types.Money   `json:"fee"`
}

// New returns an unsigned, enabled gate with a zero fee. A Null root
// authority defaults to the issuer.
func New(issuer, rootAuthority types.Address) (*Gate, error) {
	if issuer.IsNull() {
		return nil, fmt.Errorf("authority: issuer: %w", fault.ErrRequiredAddress)
	}
	if rootAuthority.IsNull() {
		rootAuthority = issuer
	}
	return &Gate{issuer: issuer, rootAuthority: rootAuthority}, nil
}

// Issuer returns the fixed issuer identity.
func (g *Gate) Issuer() types.Address { return g.issuer }

// RootAuthority returns the current root authority.
func (g *Gate) RootAuthority() types.Address { return g.rootAuthority }

// Signed reports whether the issuer has signed the contract.
func (g *Gate) Signed() bool { return g.signed }

// Disabled reports whether the contract has been disabled.
func (g *Gate) Disabled() bool { return g.disabled }

// Fee returns the configured issuance fee.
func (g *Gate) Fee() types.Money { return g.fee }

// State returns a snapshot of the gate.
func (g *Gate) State() State {
	return State{
		Issuer:        g.issuer,
		RootAuthority: g.rootAuthority,
		Signed:        g.signed,
		Disabled:      g.disabled,
		Fee:           g.fee,
	}
}

// ──────────────────────────────────────────────────
// Checks
// ──────────────────────────────────────────────────

// CanIssue reports whether caller may create an issuance now.
func (g *Gate) CanIssue(caller types.Address) error {
	if err := g.requireIssuer(caller); err != nil {
		return err
	}
	if !g.signed {
		return fault.ErrNotSigned
	}
	if g.disabled {
		return fault.ErrDisabled
	}
	return nil
}

// CanRevoke reports whether caller may revoke issuances.
func (g *Gate) CanRevoke(caller types.Address) error {
	return g.requireIssuer(caller)
}

// CanSign reports whether caller may sign the contract.
func (g *Gate) CanSign(caller types.Address) error {
	if err := g.requireIssuer(caller); err != nil {
		return err
	}
	if g.signed {
		return fault.ErrAlreadySigned
	}
	return nil
}

// CanDisable reports whether caller may disable the contract.
func (g *Gate) CanDisable(caller types.Address) error {
	if caller.IsNull() {
		return fault.ErrNullCaller
	}
	if caller != g.rootAuthority && caller != g.issuer {
		return fault.ErrNotAdministrator
	}
	if g.disabled {
		return fault.ErrAlreadyDisabled
	}
	return nil
}

// CanSetRootAuthority reports whether caller may hand the root authority
// role to next.
func (g *Gate) CanSetRootAuthority(caller, next types.Address) error {
	if err := g.requireRootAuthority(caller); err != nil {
		return err
	}
	if next.IsNull() {
		return fmt.Errorf("authority: next root authority: %w", fault.ErrRequiredAddress)
	}
	return nil
}

// CanSetFee reports whether caller may set the issuance fee to fee.
func (g *Gate) CanSetFee(caller types.Address, fee types.Money) error {
	if err := g.requireRootAuthority(caller); err != nil {
		return err
	}
	return fee.Validate()
}

func (g *Gate) requireIssuer(caller types.Address) error {
	if caller.IsNull() {
		return fault.ErrNullCaller
	}
	if caller != g.issuer {
		return fault.ErrNotIssuer
	}
	return nil
}

func (g *Gate) requireRootAuthority(caller types.Address) error {
	if caller.IsNull() {
		return fault.ErrNullCaller
	}
	if caller != g.rootAuthority {
		return fault.ErrNotRootAuthority
	}
	return nil
}

// ──────────────────────────────────────────────────
// Transitions
// ──────────────────────────────────────────────────

// Sign marks the contract signed. It succeeds exactly once.
func (g *Gate) Sign(caller types.Address) error {
	if err := g.CanSign(caller); err != nil {
		return err
	}
	g.signed = true
	return nil
}

// Disable marks the contract disabled. There is no way back.
func (g *Gate) Disable(caller types.Address) error {
	if err := g.CanDisable(caller); err != nil {
		return err
	}
	g.disabled = true
	return nil
}

// SetRootAuthority hands the root authority role to next.
func (g *Gate) SetRootAuthority(caller, next types.Address) error {
	if err := g.CanSetRootAuthority(caller, next); err != nil {
		return err
	}
	g.rootAuthority = next
	return nil
}

// SetFee replaces the issuance fee.
func (g *Gate) SetFee(caller types.Address, fee types.Money) error {
	if err := g.CanSetFee(caller, fee); err != nil {
		return err
	}
	g.fee = fee
	return nil
}
