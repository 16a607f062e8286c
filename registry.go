package licensing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/licensing/authority"
	"github.com/xraph/licensing/fault"
	"github.com/xraph/licensing/id"
	"github.com/xraph/licensing/issuance"
	"github.com/xraph/licensing/plugin"
	"github.com/xraph/licensing/record"
	"github.com/xraph/licensing/store"
	"github.com/xraph/licensing/types"
)

// DefaultReplayPageSize is the number of records read per store call while
// replaying the log.
const DefaultReplayPageSize = 500

// FeeChecker confirms that caller has paid fee before an issuance is
// created. Return an error wrapping fault.ErrFeeNotPaid to block it.
type FeeChecker interface {
	CheckFee(ctx context.Context, caller types.Address, fee types.Money) error
}

// FeeCheckerFunc is an adapter to use a plain function as a FeeChecker.
type FeeCheckerFunc func(ctx context.Context, caller types.Address, fee types.Money) error

// CheckFee implements FeeChecker.
func (f FeeCheckerFunc) CheckFee(ctx context.Context, caller types.Address, fee types.Money) error {
	return f(ctx, caller, fee)
}

// Registry is the license registry of one contract: its authority gate and
// its ordered issuances.
//
// All state lives in memory and is rebuilt by Start from the contract's
// record log. Every state-changing call validates completely, appends its
// records to the store in one call and only then applies them, so a
// rejected or failed call changes nothing.
type Registry struct {
	mu      sync.RWMutex
	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger
	now     func() time.Time

	// Configuration
	contractID     id.ContractID
	issuer         types.Address
	rootAuthority  types.Address
	feeChecker     FeeChecker
	replayPageSize int
	skipMigrate    bool

	// State rebuilt from the record log
	started   bool
	gate      *authority.Gate
	issuances []*issuance.Issuance
	seq       uint64
	mint      *pendingMint
}

// New creates a registry over s. Configure at least the contract and the
// issuer, then call Start.
func New(s store.Store, opts ...Option) *Registry {
	r := &Registry{
		store:          s,
		plugins:        plugin.NewRegistry(),
		logger:         slog.Default(),
		now:            time.Now,
		replayPageSize: DefaultReplayPageSize,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Option configures a Registry instance.
type Option func(*Registry)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
		r.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(r *Registry) {
		_ = r.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithPluginTimeout bounds each plugin hook call (default:
// plugin.DefaultTimeout).
func WithPluginTimeout(d time.Duration) Option {
	return func(r *Registry) { r.plugins.WithTimeout(d) }
}

// WithContractID selects the contract whose record log the registry
// replays and appends to. Without it a fresh contract is created on every
// start.
func WithContractID(contractID id.ContractID) Option {
	return func(r *Registry) { r.contractID = contractID }
}

// WithIssuer sets the issuer identity. It cannot change afterwards.
func WithIssuer(issuer types.Address) Option {
	return func(r *Registry) { r.issuer = issuer }
}

// WithRootAuthority sets the initial root authority (default: the issuer).
func WithRootAuthority(root types.Address) Option {
	return func(r *Registry) { r.rootAuthority = root }
}

// WithFeeChecker sets the collaborator that confirms fee payment.
func WithFeeChecker(fc FeeChecker) Option {
	return func(r *Registry) { r.feeChecker = fc }
}

// WithReplayPageSize sets how many records are read per store call while
// replaying.
func WithReplayPageSize(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.replayPageSize = n
		}
	}
}

// WithClock sets the time source used to stamp records.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// WithSkipMigrate makes Start skip store migrations.
func WithSkipMigrate() Option {
	return func(r *Registry) { r.skipMigrate = true }
}

// ──────────────────────────────────────────────────
// Lifecycle
// ──────────────────────────────────────────────────

// Start migrates the store, replays the contract's record log and checks
// every issuance's invariants.
func (r *Registry) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return nil
	}

	if !r.skipMigrate {
		if err := r.store.Migrate(ctx); err != nil {
			r.mu.Unlock()
			return err
		}
	}

	if r.contractID.IsNil() {
		r.contractID = id.NewContractID()
		r.logger.Warn("licensing: no contract id configured, starting a new contract",
			"contract_id", r.contractID.String(),
		)
	}

	gate, err := authority.New(r.issuer, r.rootAuthority)
	if err != nil {
		r.mu.Unlock()
		return err
	}
	r.gate = gate
	r.issuances = nil
	r.seq = 0
	r.mint = nil

	start := time.Now()
	replayed, err := r.catchUp(ctx)
	if err != nil {
		r.mu.Unlock()
		return err
	}
	if r.mint != nil {
		r.mu.Unlock()
		return fmt.Errorf("licensing: issuance %d has no mint record: %w: %w",
			r.mint.issuanceID, fault.ErrReplayFailed, fault.ErrInvalidRecord)
	}
	if err := r.verify(); err != nil {
		r.mu.Unlock()
		return fmt.Errorf("licensing: replayed state: %w: %w", fault.ErrReplayFailed, err)
	}
	r.started = true
	count := len(r.issuances)
	r.mu.Unlock()

	if replayed > 0 {
		r.plugins.EmitReplayed(ctx, replayed, time.Since(start))
	}
	r.plugins.EmitInit(ctx, r)

	r.logger.Info("licensing registry started",
		"contract_id", r.contractID.String(),
		"issuer", r.issuer.String(),
		"records", replayed,
		"issuances", count,
	)

	return nil
}

// Stop shuts down the registry and closes the store.
func (r *Registry) Stop() error {
	r.mu.Lock()
	r.started = false
	r.mu.Unlock()

	ctx := context.Background()
	r.plugins.EmitShutdown(ctx)

	return r.store.Close()
}

// Sync applies records appended to the store by other processes since the
// last write or sync.
func (r *Registry) Sync(ctx context.Context) error {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return fault.ErrNotStarted
	}
	start := time.Now()
	n, err := r.catchUp(ctx)
	r.mu.Unlock()

	if n > 0 {
		r.plugins.EmitReplayed(ctx, n, time.Since(start))
	}
	return err
}

// ContractID returns the contract the registry serves.
func (r *Registry) ContractID() id.ContractID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.contractID
}

// ──────────────────────────────────────────────────
// Issuer authority gate
// ──────────────────────────────────────────────────

// Contract returns a snapshot of the authority gate.
func (r *Registry) Contract() (authority.State, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.started {
		return authority.State{}, fault.ErrNotStarted
	}
	return r.gate.State(), nil
}

// Sign records the issuer's signature. It succeeds exactly once.
func (r *Registry) Sign(ctx context.Context, caller types.Address) error {
	_, err := r.commit(ctx, "sign", caller, func() ([]*record.Record, error) {
		if err := r.gate.CanSign(caller); err != nil {
			return nil, err
		}
		return []*record.Record{{Kind: record.KindContractSigned, Caller: caller}}, nil
	})
	return err
}

// Disable permanently blocks new issuances. The root authority or the
// issuer may call it.
func (r *Registry) Disable(ctx context.Context, caller types.Address) error {
	_, err := r.commit(ctx, "disable", caller, func() ([]*record.Record, error) {
		if err := r.gate.CanDisable(caller); err != nil {
			return nil, err
		}
		return []*record.Record{{Kind: record.KindContractDisabled, Caller: caller}}, nil
	})
	return err
}

// SetRootAuthority hands the root authority role to next.
func (r *Registry) SetRootAuthority(ctx context.Context, caller, next types.Address) error {
	_, err := r.commit(ctx, "set_root_authority", caller, func() ([]*record.Record, error) {
		if err := r.gate.CanSetRootAuthority(caller, next); err != nil {
			return nil, err
		}
		return []*record.Record{{Kind: record.KindAuthorityChanged, Caller: caller, Authority: next}}, nil
	})
	return err
}

// SetFee changes the fee charged per issuance.
func (r *Registry) SetFee(ctx context.Context, caller types.Address, fee types.Money) error {
	fee = types.NewMoney(fee.Amount, fee.Currency)
	_, err := r.commit(ctx, "set_fee", caller, func() ([]*record.Record, error) {
		if err := r.gate.CanSetFee(caller, fee); err != nil {
			return nil, err
		}
		return []*record.Record{{Kind: record.KindFeeChanged, Caller: caller, Fee: &fee}}, nil
	})
	return err
}

// ──────────────────────────────────────────────────
// Issuances
// ──────────────────────────────────────────────────

// Issue creates an issuance and credits its whole supply to
// p.InitialOwner. The caller must be the issuer of a signed, enabled
// contract and must have paid the fee. It returns the new issuance's ID.
func (r *Registry) Issue(ctx context.Context, caller types.Address, p issuance.Params) (uint64, error) {
	checked, feeErr := r.payFee(ctx, caller, p)

	var issuanceID uint64
	_, err := r.commit(ctx, "issue", caller, func() ([]*record.Record, error) {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if err := r.gate.CanIssue(caller); err != nil {
			return nil, err
		}
		if fee := r.gate.Fee(); !fee.Equal(checked) && !(fee.IsZero() && checked.IsZero()) {
			return nil, fmt.Errorf("fee is %s, %s was checked: %w", fee, checked, fault.ErrFeeChanged)
		}
		if feeErr != nil {
			return nil, feeErr
		}

		issuanceID = uint64(len(r.issuances))
		meta := p.Metadata.Normalize()
		return []*record.Record{
			{
				Kind:       record.KindIssuanceCreated,
				Caller:     caller,
				IssuanceID: issuanceID,
				To:         p.InitialOwner,
				Issuance:   &meta,
			},
			{
				Kind:       record.KindTransfer,
				Caller:     caller,
				IssuanceID: issuanceID,
				From:       types.Null,
				To:         p.InitialOwner,
				Amount:     meta.OriginalSupply,
			},
		}, nil
	})
	if err != nil {
		return 0, err
	}
	return issuanceID, nil
}

// Transfer moves amount of caller's outright units to to. A transfer to
// the Null address destroys the units.
func (r *Registry) Transfer(ctx context.Context, issuanceID uint64, caller, to types.Address, amount uint64) error {
	op := "transfer"
	if to.IsNull() {
		op = "destroy"
	}
	_, err := r.commit(ctx, op, caller, func() ([]*record.Record, error) {
		iss, err := r.lookup(issuanceID)
		if err != nil {
			return nil, err
		}
		if err := iss.CanTransfer(caller, to, amount); err != nil {
			return nil, err
		}
		return []*record.Record{{
			Kind:       record.KindTransfer,
			Caller:     caller,
			IssuanceID: issuanceID,
			From:       caller,
			To:         to,
			Amount:     amount,
		}}, nil
	})
	return err
}

// TransferAndAllowReclaim moves amount of caller's outright units to to,
// keeping caller's right to reclaim them.
func (r *Registry) TransferAndAllowReclaim(ctx context.Context, issuanceID uint64, caller, to types.Address, amount uint64) error {
	_, err := r.commit(ctx, "transfer_and_allow_reclaim", caller, func() ([]*record.Record, error) {
		iss, err := r.lookup(issuanceID)
		if err != nil {
			return nil, err
		}
		if err := iss.CanTransferAndAllowReclaim(caller, to, amount); err != nil {
			return nil, err
		}
		return []*record.Record{{
			Kind:        record.KindTransfer,
			Caller:      caller,
			IssuanceID:  issuanceID,
			From:        caller,
			To:          to,
			Amount:      amount,
			Reclaimable: true,
		}}, nil
	})
	return err
}

// Reclaim returns amount units that caller delegated to from back to
// caller's outright ownership.
func (r *Registry) Reclaim(ctx context.Context, issuanceID uint64, caller, from types.Address, amount uint64) error {
	_, err := r.commit(ctx, "reclaim", caller, func() ([]*record.Record, error) {
		iss, err := r.lookup(issuanceID)
		if err != nil {
			return nil, err
		}
		if err := iss.CanReclaim(caller, from, amount); err != nil {
			return nil, err
		}
		return []*record.Record{{
			Kind:       record.KindReclaim,
			Caller:     caller,
			IssuanceID: issuanceID,
			From:       from,
			To:         caller,
			Amount:     amount,
		}}, nil
	})
	return err
}

// Destroy burns amount of caller's outright units.
func (r *Registry) Destroy(ctx context.Context, issuanceID uint64, caller types.Address, amount uint64) error {
	return r.Transfer(ctx, issuanceID, caller, types.Null, amount)
}

// Revoke irreversibly freezes an issuance. Only the issuer may revoke.
func (r *Registry) Revoke(ctx context.Context, issuanceID uint64, caller types.Address) error {
	_, err := r.commit(ctx, "revoke", caller, func() ([]*record.Record, error) {
		if err := r.gate.CanRevoke(caller); err != nil {
			return nil, err
		}
		iss, err := r.lookup(issuanceID)
		if err != nil {
			return nil, err
		}
		if err := iss.CanRevoke(); err != nil {
			return nil, err
		}
		return []*record.Record{{Kind: record.KindRevoke, Caller: caller, IssuanceID: issuanceID}}, nil
	})
	return err
}

// ──────────────────────────────────────────────────
// Queries
// ──────────────────────────────────────────────────

// BalanceOf returns every unit owner holds in an issuance, outright or
// reclaimable.
func (r *Registry) BalanceOf(issuanceID uint64, owner types.Address) (uint64, error) {
	return readIssuance(r, issuanceID, func(iss *issuance.Issuance) uint64 { return iss.BalanceOf(owner) })
}

// ReclaimableBalanceOf returns the units owner holds that others may reclaim.
func (r *Registry) ReclaimableBalanceOf(issuanceID uint64, owner types.Address) (uint64, error) {
	return readIssuance(r, issuanceID, func(iss *issuance.Issuance) uint64 { return iss.ReclaimableBalanceOf(owner) })
}

// ReclaimableBalanceBy returns the units owner holds that reclaimer may reclaim.
func (r *Registry) ReclaimableBalanceBy(issuanceID uint64, owner, reclaimer types.Address) (uint64, error) {
	return readIssuance(r, issuanceID, func(iss *issuance.Issuance) uint64 {
		return iss.ReclaimableBalanceBy(owner, reclaimer)
	})
}

// IsRevoked reports whether an issuance has been revoked.
func (r *Registry) IsRevoked(issuanceID uint64) (bool, error) {
	return readIssuance(r, issuanceID, func(iss *issuance.Issuance) bool { return iss.Revoked() })
}

// Issuance returns a snapshot of an issuance's metadata and status.
func (r *Registry) Issuance(issuanceID uint64) (issuance.Info, error) {
	return readIssuance(r, issuanceID, func(iss *issuance.Issuance) issuance.Info { return iss.Info() })
}

// CirculatingSupply returns an issuance's supply minus destroyed units.
func (r *Registry) CirculatingSupply(issuanceID uint64) (uint64, error) {
	return readIssuance(r, issuanceID, func(iss *issuance.Issuance) uint64 { return iss.CirculatingSupply() })
}

// Holders returns every address with a non-zero balance, sorted.
func (r *Registry) Holders(issuanceID uint64) ([]types.Address, error) {
	return readIssuance(r, issuanceID, func(iss *issuance.Issuance) []types.Address { return iss.Holders() })
}

// Cells returns the non-zero cells of an issuance's balance matrix.
func (r *Registry) Cells(issuanceID uint64) ([]issuance.Cell, error) {
	return readIssuance(r, issuanceID, func(iss *issuance.Issuance) []issuance.Cell { return iss.Cells() })
}

// Count returns the number of issuances.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.issuances)
}

// Records lists the contract's record log.
func (r *Registry) Records(ctx context.Context, opts record.ListOpts) ([]*record.Record, error) {
	r.mu.RLock()
	started, contractID := r.started, r.contractID
	r.mu.RUnlock()

	if !started {
		return nil, fault.ErrNotStarted
	}
	return r.store.ListRecords(ctx, contractID, opts)
}

// Verify recomputes every issuance's conservation and cache invariants.
func (r *Registry) Verify() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.verify()
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

// readIssuance runs fn on an issuance under the read lock.
func readIssuance[T any](r *Registry, issuanceID uint64, fn func(*issuance.Issuance) T) (T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var zero T
	if !r.started {
		return zero, fault.ErrNotStarted
	}
	iss, err := r.lookup(issuanceID)
	if err != nil {
		return zero, err
	}
	return fn(iss), nil
}

func (r *Registry) lookup(issuanceID uint64) (*issuance.Issuance, error) {
	if issuanceID >= uint64(len(r.issuances)) {
		return nil, fmt.Errorf("issuance %d: %w", issuanceID, fault.ErrIssuanceNotFound)
	}
	return r.issuances[issuanceID], nil
}

func (r *Registry) verify() error {
	var errs []error
	for _, iss := range r.issuances {
		if err := iss.Verify(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// payFee checks the fee an issuance by caller would pay. It runs outside
// the registry lock so that fee checkers may read the registry and a slow
// checker holds up nobody else. It returns the fee it checked, or a zero
// fee when Issue is going to be rejected anyway.
func (r *Registry) payFee(ctx context.Context, caller types.Address, p issuance.Params) (types.Money, error) {
	r.mu.RLock()
	if !r.started || p.Validate() != nil || r.gate.CanIssue(caller) != nil {
		r.mu.RUnlock()
		return types.Money{}, nil
	}
	fee := r.gate.Fee()
	r.mu.RUnlock()

	return fee, r.checkFee(ctx, caller, fee)
}

// checkFee asks every fee checker to confirm payment of fee. A zero fee
// needs no payment; a non-zero fee needs at least one checker.
func (r *Registry) checkFee(ctx context.Context, caller types.Address, fee types.Money) error {
	if fee.IsZero() {
		return nil
	}

	checkers := 0
	if r.feeChecker != nil {
		checkers++
		if err := r.feeChecker.CheckFee(ctx, caller, fee); err != nil {
			return fmt.Errorf("fee %s: %w", fee, err)
		}
	}
	n, err := r.plugins.CheckFee(ctx, caller, fee)
	if err != nil {
		return err
	}
	if checkers+n == 0 {
		return fmt.Errorf("fee %s: no fee checker configured: %w", fee, fault.ErrFeeNotPaid)
	}
	return nil
}
