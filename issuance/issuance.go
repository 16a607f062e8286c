// Package issuance implements the per-issuance ownership ledger.
//
// An Issuance keeps a balance matrix keyed by (holder, reclaimer). The cell
// balance[x][x] is what x owns outright; balance[x][y] with x != y is what x
// holds but y may unilaterally reclaim. The per-holder reclaimable cache is
// the sum of a holder's non-outright cells and is only ever changed by move,
// together with the cells it summarises.
//
// Every state change validates completely before writing anything, so a
// failed call leaves the issuance exactly as it was.
package issuance

import (
	"fmt"
	"math/bits"
	"sort"
	"time"

	"github.com/xraph/licensing/fault"
	"github.com/xraph/licensing/types"
)

// Issuance is one batch of licenses and its ownership ledger.
// It is not safe for concurrent use; the registry serializes access.
type Issuance struct {
	types.Entity
	id      uint64
	meta    Metadata
	revoked bool
	minted  bool

	balance     map[types.Address]map[types.Address]uint64
	reclaimable map[types.Address]uint64
}

// New returns an issuance with the given position and metadata and an
// empty balance matrix. Call Mint to credit the original supply.
func New(id uint64, meta Metadata, createdAt time.Time) *Issuance {
	return &Issuance{
		Entity:      types.NewEntity(createdAt),
		id:          id,
		meta:        meta.Normalize(),
		balance:     make(map[types.Address]map[types.Address]uint64),
		reclaimable: make(map[types.Address]uint64),
	}
}

// ID returns the issuance's position in its registry.
func (iss *Issuance) ID() uint64 { return iss.id }

// Metadata returns the immutable description.
func (iss *Issuance) Metadata() Metadata { return iss.meta }

// Revoked reports whether the issuance has been revoked.
func (iss *Issuance) Revoked() bool { return iss.revoked }

// Info returns a snapshot for callers outside the registry.
func (iss *Issuance) Info() Info {
	return Info{
		Entity:            iss.Entity,
		ID:                iss.id,
		Metadata:          iss.meta,
		Revoked:           iss.revoked,
		CirculatingSupply: iss.CirculatingSupply(),
	}
}

// ──────────────────────────────────────────────────
// Queries
// ──────────────────────────────────────────────────

// BalanceOf returns every unit owner holds, outright or reclaimable.
func (iss *Issuance) BalanceOf(owner types.Address) uint64 {
	return iss.cell(owner, owner) + iss.reclaimable[owner]
}

// OutrightBalanceOf returns the units owner holds with no recall right.
func (iss *Issuance) OutrightBalanceOf(owner types.Address) uint64 {
	return iss.cell(owner, owner)
}

// ReclaimableBalanceOf returns the units owner holds that someone else may reclaim.
func (iss *Issuance) ReclaimableBalanceOf(owner types.Address) uint64 {
	return iss.reclaimable[owner]
}

// ReclaimableBalanceBy returns balance[owner][reclaimer] directly.
func (iss *Issuance) ReclaimableBalanceBy(owner, reclaimer types.Address) uint64 {
	return iss.cell(owner, reclaimer)
}

// DestroyedSupply returns the units transferred to the Null address.
func (iss *Issuance) DestroyedSupply() uint64 {
	return iss.cell(types.Null, types.Null)
}

// CirculatingSupply returns the original supply minus destroyed units.
func (iss *Issuance) CirculatingSupply() uint64 {
	if !iss.minted {
		return 0
	}
	return iss.meta.OriginalSupply - iss.DestroyedSupply()
}

// Holders returns every non-null address with a non-zero balance, sorted.
func (iss *Issuance) Holders() []types.Address {
	holders := make([]types.Address, 0, len(iss.balance))
	for holder := range iss.balance {
		if !holder.IsNull() {
			holders = append(holders, holder)
		}
	}
	sort.Slice(holders, func(i, j int) bool { return holders[i] < holders[j] })
	return holders
}

// Cells returns the non-zero cells of the balance matrix ordered by holder
// then reclaimer.
func (iss *Issuance) Cells() []Cell {
	var cells []Cell
	for holder, row := range iss.balance {
		for reclaimer, amount := range row {
			cells = append(cells, Cell{Holder: holder, Reclaimer: reclaimer, Amount: amount})
		}
	}
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].Holder != cells[j].Holder {
			return cells[i].Holder < cells[j].Holder
		}
		return cells[i].Reclaimer < cells[j].Reclaimer
	})
	return cells
}

// Verify recomputes conservation and the reclaimable cache from the matrix
// and reports the first discrepancy. It never repairs anything.
func (iss *Issuance) Verify() error {
	var total uint64
	sums := make(map[types.Address]uint64)
	for holder, row := range iss.balance {
		for reclaimer, amount := range row {
			var carry uint64
			total, carry = bits.Add64(total, amount, 0)
			if carry != 0 {
				return fmt.Errorf("issuance %d: matrix total: %w", iss.id, fault.ErrOverflow)
			}
			if holder != reclaimer {
				sums[holder] += amount
			}
		}
	}

	var want uint64
	if iss.minted {
		want = iss.meta.OriginalSupply
	}
	if total != want {
		return fmt.Errorf("issuance %d: matrix holds %d units, original supply %d: %w",
			iss.id, total, want, fault.ErrInvalidRecord)
	}

	for holder, cached := range iss.reclaimable {
		if sums[holder] != cached {
			return fmt.Errorf("issuance %d: reclaimable cache for %s is %d, cells sum to %d: %w",
				iss.id, holder, cached, sums[holder], fault.ErrInvalidRecord)
		}
	}
	for holder, sum := range sums {
		if iss.reclaimable[holder] != sum {
			return fmt.Errorf("issuance %d: reclaimable cache for %s is %d, cells sum to %d: %w",
				iss.id, holder, iss.reclaimable[holder], sum, fault.ErrInvalidRecord)
		}
	}
	return nil
}

// ──────────────────────────────────────────────────
// State transitions
// ──────────────────────────────────────────────────

// Mint credits the full original supply to owner as outright ownership.
// It may only happen once, before any other transition.
func (iss *Issuance) Mint(owner types.Address) error {
	if err := iss.CanMint(owner); err != nil {
		return err
	}
	iss.minted = true
	if iss.meta.OriginalSupply > 0 {
		iss.setCell(owner, owner, iss.meta.OriginalSupply)
	}
	return nil
}

// CanMint reports whether Mint(owner) would succeed.
func (iss *Issuance) CanMint(owner types.Address) error {
	if owner.IsNull() {
		return fault.ErrRequiredInitialOwner
	}
	if iss.minted {
		return fmt.Errorf("issuance %d: %w", iss.id, fault.StateError("issuance is already minted"))
	}
	return nil
}

// Transfer moves amount of caller's outright units into to's outright
// ownership. A transfer to Null destroys the units.
func (iss *Issuance) Transfer(caller, to types.Address, amount uint64) error {
	src, dst, err := iss.planTransfer(caller, to, false)
	if err != nil {
		return err
	}
	return iss.move(src, dst, amount)
}

// CanTransfer reports whether Transfer would succeed, without changing state.
func (iss *Issuance) CanTransfer(caller, to types.Address, amount uint64) error {
	src, dst, err := iss.planTransfer(caller, to, false)
	if err != nil {
		return err
	}
	return iss.checkMove(src, dst, amount)
}

// TransferAndAllowReclaim moves amount of caller's outright units to to,
// keeping a recall right for caller over exactly that amount.
func (iss *Issuance) TransferAndAllowReclaim(caller, to types.Address, amount uint64) error {
	src, dst, err := iss.planTransfer(caller, to, true)
	if err != nil {
		return err
	}
	return iss.move(src, dst, amount)
}

// CanTransferAndAllowReclaim reports whether TransferAndAllowReclaim would succeed.
func (iss *Issuance) CanTransferAndAllowReclaim(caller, to types.Address, amount uint64) error {
	src, dst, err := iss.planTransfer(caller, to, true)
	if err != nil {
		return err
	}
	return iss.checkMove(src, dst, amount)
}

// Reclaim returns amount units held by from, and recallable by caller, to
// caller's outright ownership. Partial reclaims leave the remainder
// recallable.
func (iss *Issuance) Reclaim(caller, from types.Address, amount uint64) error {
	src, dst, err := iss.planReclaim(caller, from)
	if err != nil {
		return err
	}
	return iss.move(src, dst, amount)
}

// CanReclaim reports whether Reclaim would succeed.
func (iss *Issuance) CanReclaim(caller, from types.Address, amount uint64) error {
	src, dst, err := iss.planReclaim(caller, from)
	if err != nil {
		return err
	}
	return iss.checkMove(src, dst, amount)
}

// Revoke marks the issuance revoked. Balances stay queryable; every
// transfer, reclaim and destroy fails from then on.
func (iss *Issuance) Revoke() error {
	if err := iss.CanRevoke(); err != nil {
		return err
	}
	iss.revoked = true
	return nil
}

// CanRevoke reports whether Revoke would succeed.
func (iss *Issuance) CanRevoke() error {
	if iss.revoked {
		return fmt.Errorf("issuance %d: %w", iss.id, fault.ErrAlreadyRevoked)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// cellRef addresses balance[holder][reclaimer].
type cellRef struct {
	holder    types.Address
	reclaimer types.Address
}

func (c cellRef) outright() bool { return c.holder == c.reclaimer }

func (iss *Issuance) planTransfer(caller, to types.Address, allowReclaim bool) (cellRef, cellRef, error) {
	if err := iss.checkActive(caller); err != nil {
		return cellRef{}, cellRef{}, err
	}
	src := cellRef{holder: caller, reclaimer: caller}
	if !allowReclaim {
		return src, cellRef{holder: to, reclaimer: to}, nil
	}
	if to.IsNull() {
		return cellRef{}, cellRef{}, fault.ErrNullRecipient
	}
	if to == caller {
		return cellRef{}, cellRef{}, fault.ErrSelfRecall
	}
	return src, cellRef{holder: to, reclaimer: caller}, nil
}

func (iss *Issuance) planReclaim(caller, from types.Address) (cellRef, cellRef, error) {
	if err := iss.checkActive(caller); err != nil {
		return cellRef{}, cellRef{}, err
	}
	if from.IsNull() {
		return cellRef{}, cellRef{}, fault.ErrRequiredAddress
	}
	if from == caller {
		return cellRef{}, cellRef{}, fault.ErrSelfRecall
	}
	return cellRef{holder: from, reclaimer: caller}, cellRef{holder: caller, reclaimer: caller}, nil
}

func (iss *Issuance) checkActive(caller types.Address) error {
	if caller.IsNull() {
		return fault.ErrNullCaller
	}
	if iss.revoked {
		return fmt.Errorf("issuance %d: %w", iss.id, fault.ErrRevoked)
	}
	return nil
}

// checkMove validates a move without writing anything.
func (iss *Issuance) checkMove(src, dst cellRef, amount uint64) error {
	have := iss.cell(src.holder, src.reclaimer)
	if have < amount {
		if src.outright() {
			return fmt.Errorf("issuance %d: %s owns %d outright, needs %d: %w",
				iss.id, src.holder, have, amount, fault.ErrInsufficientBalance)
		}
		return fmt.Errorf("issuance %d: %s holds %d reclaimable by %s, needs %d: %w",
			iss.id, src.holder, have, src.reclaimer, amount, fault.ErrInsufficientReclaimable)
	}
	if !src.outright() && iss.reclaimable[src.holder] < amount {
		return fmt.Errorf("issuance %d: reclaimable cache of %s: %w", iss.id, src.holder, fault.ErrUnderflow)
	}
	if src == dst {
		return nil
	}
	if _, carry := bits.Add64(iss.cell(dst.holder, dst.reclaimer), amount, 0); carry != 0 {
		return fmt.Errorf("issuance %d: balance of %s: %w", iss.id, dst.holder, fault.ErrOverflow)
	}
	if !dst.outright() {
		cached := iss.reclaimable[dst.holder]
		if dst.holder == src.holder && !src.outright() {
			cached -= amount
		}
		if _, carry := bits.Add64(cached, amount, 0); carry != 0 {
			return fmt.Errorf("issuance %d: reclaimable cache of %s: %w", iss.id, dst.holder, fault.ErrOverflow)
		}
	}
	return nil
}

// move is the only primitive that changes the balance matrix. It debits src,
// credits dst and keeps the reclaimable cache of both holders in step.
func (iss *Issuance) move(src, dst cellRef, amount uint64) error {
	if err := iss.checkMove(src, dst, amount); err != nil {
		return err
	}
	if src == dst || amount == 0 {
		return nil
	}

	iss.setCell(src.holder, src.reclaimer, iss.cell(src.holder, src.reclaimer)-amount)
	if !src.outright() {
		iss.setReclaimable(src.holder, iss.reclaimable[src.holder]-amount)
	}

	iss.setCell(dst.holder, dst.reclaimer, iss.cell(dst.holder, dst.reclaimer)+amount)
	if !dst.outright() {
		iss.setReclaimable(dst.holder, iss.reclaimable[dst.holder]+amount)
	}
	return nil
}

func (iss *Issuance) cell(holder, reclaimer types.Address) uint64 {
	return iss.balance[holder][reclaimer]
}

// setCell writes a cell, deleting it (and an emptied row) at zero so that
// an absent entry always means a zero balance.
func (iss *Issuance) setCell(holder, reclaimer types.Address, amount uint64) {
	row := iss.balance[holder]
	if amount == 0 {
		if row == nil {
			return
		}
		delete(row, reclaimer)
		if len(row) == 0 {
			delete(iss.balance, holder)
		}
		return
	}
	if row == nil {
		row = make(map[types.Address]uint64)
		iss.balance[holder] = row
	}
	row[reclaimer] = amount
}

func (iss *Issuance) setReclaimable(holder types.Address, amount uint64) {
	if amount == 0 {
		delete(iss.reclaimable, holder)
		return
	}
	iss.reclaimable[holder] = amount
}
