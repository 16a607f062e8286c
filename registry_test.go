package licensing_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/licensing"
	"github.com/xraph/licensing/fault"
	"github.com/xraph/licensing/id"
	"github.com/xraph/licensing/issuance"
	"github.com/xraph/licensing/record"
	"github.com/xraph/licensing/store"
	"github.com/xraph/licensing/store/memory"
	"github.com/xraph/licensing/types"
)

const (
	issuer types.Address = "issuer"
	root   types.Address = "root"
	alice  types.Address = "alice"
	bob    types.Address = "bob"
	carol  types.Address = "carol"
	dave   types.Address = "dave"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func seats(supply uint64, owner types.Address) issuance.Params {
	return issuance.Params{
		Metadata: issuance.Metadata{
			Description:    "Team seats",
			Code:           "SEAT-2024",
			OriginalOwner:  "Acme Corp",
			OriginalSupply: supply,
			AuditTime:      time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC),
			AuditRemark:    "annual audit",
		},
		InitialOwner: owner,
	}
}

func newRegistry(t *testing.T, s store.Store, contract id.ContractID, opts ...licensing.Option) *licensing.Registry {
	t.Helper()
	opts = append([]licensing.Option{
		licensing.WithLogger(quiet),
		licensing.WithContractID(contract),
		licensing.WithIssuer(issuer),
		licensing.WithRootAuthority(root),
	}, opts...)
	reg := licensing.New(s, opts...)
	require.NoError(t, reg.Start(context.Background()))
	return reg
}

func signedRegistry(t *testing.T, opts ...licensing.Option) (*licensing.Registry, *memory.Store) {
	t.Helper()
	s := memory.New()
	reg := newRegistry(t, s, id.NewContractID(), opts...)
	require.NoError(t, reg.Sign(context.Background(), issuer))
	return reg, s
}

func balance(t *testing.T, reg *licensing.Registry, issuanceID uint64, owner types.Address) uint64 {
	t.Helper()
	n, err := reg.BalanceOf(issuanceID, owner)
	require.NoError(t, err)
	return n
}

func TestIssue(t *testing.T) {
	ctx := context.Background()
	reg, _ := signedRegistry(t)

	first, err := reg.Issue(ctx, issuer, seats(100, alice))
	require.NoError(t, err)
	second, err := reg.Issue(ctx, issuer, seats(5, bob))
	require.NoError(t, err)

	assert.Equal(t, uint64(0), first)
	assert.Equal(t, uint64(1), second)
	assert.Equal(t, 2, reg.Count())
	assert.Equal(t, uint64(100), balance(t, reg, first, alice))

	info, err := reg.Issuance(first)
	require.NoError(t, err)
	assert.Equal(t, "SEAT-2024", info.Code)
	assert.Equal(t, uint64(100), info.OriginalSupply)
	assert.Equal(t, int64(1709296200), info.AuditTime.Unix())
	assert.False(t, info.Revoked)

	recs, err := reg.Records(ctx, record.ListOpts{IssuanceID: &first})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, record.KindIssuanceCreated, recs[0].Kind)
	assert.Equal(t, record.KindTransfer, recs[1].Kind)
	assert.Equal(t, types.Null, recs[1].From)
	assert.Equal(t, alice, recs[1].To)
	assert.Equal(t, uint64(100), recs[1].Amount)
	assert.False(t, recs[1].Reclaimable)

	_, err = reg.Issuance(7)
	assert.ErrorIs(t, err, fault.ErrIssuanceNotFound)
}

func TestIssuePreconditions(t *testing.T) {
	ctx := context.Background()
	reg := newRegistry(t, memory.New(), id.NewContractID())

	_, err := reg.Issue(ctx, issuer, seats(10, alice))
	assert.ErrorIs(t, err, fault.ErrNotSigned)

	require.NoError(t, reg.Sign(ctx, issuer))

	_, err = reg.Issue(ctx, root, seats(10, alice))
	assert.ErrorIs(t, err, fault.ErrNotIssuer)
	assert.True(t, fault.IsErrAuthorization(err))

	_, err = reg.Issue(ctx, issuer, seats(10, types.Null))
	assert.ErrorIs(t, err, fault.ErrRequiredInitialOwner)

	bad := seats(10, alice)
	bad.Code = " "
	_, err = reg.Issue(ctx, issuer, bad)
	assert.ErrorIs(t, err, fault.ErrRequiredCode)

	require.NoError(t, reg.Disable(ctx, root))
	_, err = reg.Issue(ctx, issuer, seats(10, alice))
	assert.ErrorIs(t, err, fault.ErrDisabled)

	assert.Equal(t, 0, reg.Count())
}

func TestSpecScenarios(t *testing.T) {
	ctx := context.Background()
	reg, _ := signedRegistry(t)

	lic, err := reg.Issue(ctx, issuer, seats(100, alice))
	require.NoError(t, err)

	require.NoError(t, reg.Transfer(ctx, lic, alice, bob, 30))
	assert.Equal(t, uint64(70), balance(t, reg, lic, alice))
	assert.Equal(t, uint64(30), balance(t, reg, lic, bob))

	require.NoError(t, reg.TransferAndAllowReclaim(ctx, lic, alice, carol, 20))
	assert.Equal(t, uint64(50), balance(t, reg, lic, alice))
	assert.Equal(t, uint64(20), balance(t, reg, lic, carol))
	reclaimable, err := reg.ReclaimableBalanceOf(lic, carol)
	require.NoError(t, err)
	assert.Equal(t, uint64(20), reclaimable)
	by, err := reg.ReclaimableBalanceBy(lic, carol, alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(20), by)

	require.NoError(t, reg.Reclaim(ctx, lic, alice, carol, 20))
	assert.Equal(t, uint64(70), balance(t, reg, lic, alice))
	assert.Equal(t, uint64(0), balance(t, reg, lic, carol))

	require.NoError(t, reg.Destroy(ctx, lic, alice, 70))
	assert.Equal(t, uint64(0), balance(t, reg, lic, alice))
	circulating, err := reg.CirculatingSupply(lic)
	require.NoError(t, err)
	assert.Equal(t, uint64(30), circulating)
	info, err := reg.Issuance(lic)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), info.OriginalSupply)

	holders, err := reg.Holders(lic)
	require.NoError(t, err)
	assert.Equal(t, []types.Address{bob}, holders)

	require.NoError(t, reg.Revoke(ctx, lic, issuer))
	err = reg.Transfer(ctx, lic, bob, dave, 10)
	assert.True(t, fault.IsErrState(err), "transfer after revoke: %v", err)
	revoked, err := reg.IsRevoked(lic)
	require.NoError(t, err)
	assert.True(t, revoked)
	assert.Equal(t, uint64(30), balance(t, reg, lic, bob))

	require.NoError(t, reg.Verify())
}

func TestRevoke(t *testing.T) {
	ctx := context.Background()
	reg, _ := signedRegistry(t)

	lic, err := reg.Issue(ctx, issuer, seats(10, alice))
	require.NoError(t, err)

	assert.ErrorIs(t, reg.Revoke(ctx, lic, alice), fault.ErrNotIssuer)
	assert.ErrorIs(t, reg.Revoke(ctx, 9, issuer), fault.ErrIssuanceNotFound)
	require.NoError(t, reg.Revoke(ctx, lic, issuer))
	assert.ErrorIs(t, reg.Revoke(ctx, lic, issuer), fault.ErrAlreadyRevoked)
}

func TestZeroAmountEmitsRecord(t *testing.T) {
	ctx := context.Background()
	reg, _ := signedRegistry(t)

	lic, err := reg.Issue(ctx, issuer, seats(10, alice))
	require.NoError(t, err)
	require.NoError(t, reg.Transfer(ctx, lic, alice, bob, 0))

	recs, err := reg.Records(ctx, record.ListOpts{Kind: record.KindTransfer, Address: bob})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, uint64(0), recs[0].Amount)
	assert.Equal(t, uint64(10), balance(t, reg, lic, alice))
}

func TestGateOperations(t *testing.T) {
	ctx := context.Background()
	reg := newRegistry(t, memory.New(), id.NewContractID())

	assert.ErrorIs(t, reg.Sign(ctx, root), fault.ErrNotIssuer)
	require.NoError(t, reg.Sign(ctx, issuer))
	assert.ErrorIs(t, reg.Sign(ctx, issuer), fault.ErrAlreadySigned)

	assert.ErrorIs(t, reg.SetRootAuthority(ctx, issuer, dave), fault.ErrNotRootAuthority)
	require.NoError(t, reg.SetRootAuthority(ctx, root, dave))
	require.NoError(t, reg.SetFee(ctx, dave, types.NewMoney(2500, "USD")))
	assert.ErrorIs(t, reg.SetFee(ctx, root, types.NewMoney(1, "usd")), fault.ErrNotRootAuthority)

	assert.ErrorIs(t, reg.Disable(ctx, alice), fault.ErrNotAdministrator)
	require.NoError(t, reg.Disable(ctx, issuer))
	assert.ErrorIs(t, reg.Disable(ctx, dave), fault.ErrAlreadyDisabled)

	state, err := reg.Contract()
	require.NoError(t, err)
	assert.Equal(t, issuer, state.Issuer)
	assert.Equal(t, dave, state.RootAuthority)
	assert.True(t, state.Signed)
	assert.True(t, state.Disabled)
	assert.Equal(t, types.NewMoney(2500, "usd"), state.Fee)
}

func TestFeeChecking(t *testing.T) {
	ctx := context.Background()

	t.Run("no checker", func(t *testing.T) {
		reg, _ := signedRegistry(t)
		require.NoError(t, reg.SetFee(ctx, root, types.NewMoney(500, "usd")))
		_, err := reg.Issue(ctx, issuer, seats(1, alice))
		assert.ErrorIs(t, err, fault.ErrFeeNotPaid)
	})

	t.Run("paid", func(t *testing.T) {
		var charged []types.Money
		reg, _ := signedRegistry(t, licensing.WithFeeChecker(licensing.FeeCheckerFunc(
			func(_ context.Context, caller types.Address, fee types.Money) error {
				assert.Equal(t, issuer, caller)
				charged = append(charged, fee)
				return nil
			})))
		require.NoError(t, reg.SetFee(ctx, root, types.NewMoney(500, "usd")))
		_, err := reg.Issue(ctx, issuer, seats(1, alice))
		require.NoError(t, err)
		assert.Equal(t, []types.Money{types.NewMoney(500, "usd")}, charged)
	})

	t.Run("unpaid", func(t *testing.T) {
		reg, _ := signedRegistry(t, licensing.WithFeeChecker(licensing.FeeCheckerFunc(
			func(context.Context, types.Address, types.Money) error { return fault.ErrFeeNotPaid })))
		require.NoError(t, reg.SetFee(ctx, root, types.NewMoney(500, "usd")))
		_, err := reg.Issue(ctx, issuer, seats(1, alice))
		assert.ErrorIs(t, err, fault.ErrFeeNotPaid)
		assert.Equal(t, 0, reg.Count())
	})

	t.Run("checker may read the registry", func(t *testing.T) {
		var reg *licensing.Registry
		reg, _ = signedRegistry(t, licensing.WithFeeChecker(licensing.FeeCheckerFunc(
			func(context.Context, types.Address, types.Money) error {
				state, err := reg.Contract()
				if err != nil {
					return err
				}
				if !state.Signed {
					return fault.ErrNotSigned
				}
				return nil
			})))
		require.NoError(t, reg.SetFee(ctx, root, types.NewMoney(500, "usd")))

		done := make(chan error, 1)
		go func() {
			_, err := reg.Issue(ctx, issuer, seats(1, alice))
			done <- err
		}()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("Issue did not return while the fee checker read the registry")
		}
		assert.Equal(t, 1, reg.Count())
	})

	t.Run("fee changed while checking", func(t *testing.T) {
		var reg *licensing.Registry
		reg, _ = signedRegistry(t, licensing.WithFeeChecker(licensing.FeeCheckerFunc(
			func(ctx context.Context, _ types.Address, fee types.Money) error {
				if fee.Amount == 500 {
					return reg.SetFee(ctx, root, types.NewMoney(900, "usd"))
				}
				return nil
			})))
		require.NoError(t, reg.SetFee(ctx, root, types.NewMoney(500, "usd")))

		_, err := reg.Issue(ctx, issuer, seats(1, alice))
		assert.ErrorIs(t, err, fault.ErrFeeChanged)
		assert.True(t, fault.IsRetryable(err))
		assert.Equal(t, 0, reg.Count())

		_, err = reg.Issue(ctx, issuer, seats(1, alice))
		require.NoError(t, err)
		assert.Equal(t, 1, reg.Count())
	})

	t.Run("slow plugin checker is bounded", func(t *testing.T) {
		reg, _ := signedRegistry(t,
			licensing.WithPlugin(slowFeeChecker{delay: 500 * time.Millisecond}),
			licensing.WithPluginTimeout(20*time.Millisecond),
		)
		require.NoError(t, reg.SetFee(ctx, root, types.NewMoney(500, "usd")))

		start := time.Now()
		_, err := reg.Issue(ctx, issuer, seats(1, alice))
		assert.Error(t, err)
		assert.Less(t, time.Since(start), 400*time.Millisecond)
		assert.Equal(t, 0, reg.Count())
	})

	t.Run("zero fee needs no checker", func(t *testing.T) {
		reg, _ := signedRegistry(t)
		_, err := reg.Issue(ctx, issuer, seats(1, alice))
		assert.NoError(t, err)
	})
}

type slowFeeChecker struct{ delay time.Duration }

func (slowFeeChecker) Name() string { return "slow-fees" }

func (c slowFeeChecker) CheckFee(context.Context, types.Address, types.Money) error {
	time.Sleep(c.delay)
	return nil
}

func TestNotStarted(t *testing.T) {
	reg := licensing.New(memory.New(), licensing.WithLogger(quiet), licensing.WithIssuer(issuer))

	assert.ErrorIs(t, reg.Sign(context.Background(), issuer), fault.ErrNotStarted)
	_, err := reg.BalanceOf(0, alice)
	assert.ErrorIs(t, err, fault.ErrNotStarted)
	_, err = reg.Records(context.Background(), record.ListOpts{})
	assert.ErrorIs(t, err, fault.ErrNotStarted)
}

func TestStartRequiresIssuer(t *testing.T) {
	reg := licensing.New(memory.New(), licensing.WithLogger(quiet))
	assert.ErrorIs(t, reg.Start(context.Background()), fault.ErrRequiredAddress)
}

// populate drives a registry through every kind of record.
func populate(t *testing.T, reg *licensing.Registry) {
	t.Helper()
	ctx := context.Background()

	first, err := reg.Issue(ctx, issuer, seats(100, alice))
	require.NoError(t, err)
	second, err := reg.Issue(ctx, issuer, seats(40, bob))
	require.NoError(t, err)

	require.NoError(t, reg.Transfer(ctx, first, alice, bob, 30))
	require.NoError(t, reg.TransferAndAllowReclaim(ctx, first, alice, carol, 25))
	require.NoError(t, reg.Reclaim(ctx, first, alice, carol, 10))
	require.NoError(t, reg.Destroy(ctx, first, bob, 5))
	require.NoError(t, reg.TransferAndAllowReclaim(ctx, second, bob, dave, 15))
	require.NoError(t, reg.Revoke(ctx, second, issuer))
	require.NoError(t, reg.SetRootAuthority(ctx, root, dave))
	require.NoError(t, reg.SetFee(ctx, dave, types.NewMoney(0, "usd")))
	require.NoError(t, reg.Disable(ctx, dave))
}

func snapshot(t *testing.T, reg *licensing.Registry) map[uint64][]issuance.Cell {
	t.Helper()
	out := make(map[uint64][]issuance.Cell)
	for i := 0; i < reg.Count(); i++ {
		cells, err := reg.Cells(uint64(i))
		require.NoError(t, err)
		out[uint64(i)] = cells
	}
	return out
}

func TestReplayReproducesState(t *testing.T) {
	s := memory.New()
	contract := id.NewContractID()

	reg := newRegistry(t, s, contract, licensing.WithReplayPageSize(3))
	require.NoError(t, reg.Sign(context.Background(), issuer))
	populate(t, reg)

	replayed := newRegistry(t, s, contract, licensing.WithReplayPageSize(3))

	assert.Equal(t, reg.Count(), replayed.Count())
	assert.Equal(t, snapshot(t, reg), snapshot(t, replayed))

	want, err := reg.Contract()
	require.NoError(t, err)
	got, err := replayed.Contract()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	for i := 0; i < reg.Count(); i++ {
		a, err := reg.Issuance(uint64(i))
		require.NoError(t, err)
		b, err := replayed.Issuance(uint64(i))
		require.NoError(t, err)
		assert.Equal(t, a, b)
	}
	require.NoError(t, replayed.Verify())
}

func TestReplayRejectsInvalidLog(t *testing.T) {
	meta := seats(40, bob).Metadata.Normalize()

	tests := []struct {
		name    string
		records func(lic uint64) []*record.Record
		wantErr error
	}{
		{
			name: "overspend",
			records: func(lic uint64) []*record.Record {
				return []*record.Record{{
					Kind: record.KindTransfer, Caller: alice, IssuanceID: lic,
					From: alice, To: bob, Amount: 11,
				}}
			},
			wantErr: fault.ErrInsufficientBalance,
		},
		{
			name: "mint long after creation",
			records: func(lic uint64) []*record.Record {
				return []*record.Record{{
					Kind: record.KindTransfer, Caller: dave, IssuanceID: lic,
					From: types.Null, To: dave, Amount: 10,
				}}
			},
			wantErr: fault.ErrInvalidRecord,
		},
		{
			name: "mint to someone other than the initial owner",
			records: func(lic uint64) []*record.Record {
				return []*record.Record{
					{Kind: record.KindIssuanceCreated, Caller: issuer, IssuanceID: lic + 1, To: bob, Issuance: &meta},
					{Kind: record.KindTransfer, Caller: issuer, IssuanceID: lic + 1, From: types.Null, To: dave, Amount: 40},
				}
			},
			wantErr: fault.ErrInvalidRecord,
		},
		{
			name: "reclaimable mint",
			records: func(lic uint64) []*record.Record {
				return []*record.Record{
					{Kind: record.KindIssuanceCreated, Caller: issuer, IssuanceID: lic + 1, To: bob, Issuance: &meta},
					{Kind: record.KindTransfer, Caller: issuer, IssuanceID: lic + 1, From: types.Null, To: bob, Amount: 40, Reclaimable: true},
				}
			},
			wantErr: fault.ErrInvalidRecord,
		},
		{
			name: "creation without mint",
			records: func(lic uint64) []*record.Record {
				return []*record.Record{
					{Kind: record.KindIssuanceCreated, Caller: issuer, IssuanceID: lic + 1, To: bob, Issuance: &meta},
				}
			},
			wantErr: fault.ErrInvalidRecord,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			s := memory.New()
			contract := id.NewContractID()

			reg := newRegistry(t, s, contract)
			require.NoError(t, reg.Sign(ctx, issuer))
			lic, err := reg.Issue(ctx, issuer, seats(10, alice))
			require.NoError(t, err)

			last, err := s.LastSeq(ctx, contract)
			require.NoError(t, err)
			forged := tt.records(lic)
			for i, rec := range forged {
				rec.Entity = types.NewEntity(time.Now())
				rec.ID = id.NewRecordID()
				rec.ContractID = contract
				rec.Seq = last + uint64(i) + 1
			}
			require.NoError(t, s.AppendRecords(ctx, forged))

			replayed := licensing.New(s,
				licensing.WithLogger(quiet),
				licensing.WithContractID(contract),
				licensing.WithIssuer(issuer),
				licensing.WithRootAuthority(root),
			)
			err = replayed.Start(ctx)
			assert.ErrorIs(t, err, fault.ErrReplayFailed)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSyncRejectsForgedMint(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	contract := id.NewContractID()

	reg := newRegistry(t, s, contract)
	require.NoError(t, reg.Sign(ctx, issuer))
	lic, err := reg.Issue(ctx, issuer, seats(100, alice))
	require.NoError(t, err)

	last, err := s.LastSeq(ctx, contract)
	require.NoError(t, err)
	require.NoError(t, s.AppendRecords(ctx, []*record.Record{{
		Entity:     types.NewEntity(time.Now()),
		ID:         id.NewRecordID(),
		ContractID: contract,
		Seq:        last + 1,
		Kind:       record.KindTransfer,
		Caller:     dave,
		IssuanceID: lic,
		From:       types.Null,
		To:         dave,
		Amount:     100,
	}}))

	err = reg.Sync(ctx)
	assert.ErrorIs(t, err, fault.ErrInvalidRecord)
	assert.Equal(t, uint64(0), balance(t, reg, lic, dave))
	assert.Equal(t, uint64(100), balance(t, reg, lic, alice))

	// The registry refuses to write past a record it cannot apply.
	err = reg.Transfer(ctx, lic, alice, bob, 1)
	assert.ErrorIs(t, err, fault.ErrInvalidRecord)
	assert.Equal(t, uint64(0), balance(t, reg, lic, bob))
}

func TestReplayWithDifferentIssuerFails(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	contract := id.NewContractID()

	reg := newRegistry(t, s, contract)
	require.NoError(t, reg.Sign(ctx, issuer))

	other := licensing.New(s,
		licensing.WithLogger(quiet),
		licensing.WithContractID(contract),
		licensing.WithIssuer("someone-else"),
	)
	err := other.Start(ctx)
	assert.ErrorIs(t, err, fault.ErrReplayFailed)
	assert.ErrorIs(t, err, fault.ErrNotIssuer)
}

func TestCatchUpBetweenRegistries(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	contract := id.NewContractID()

	a := newRegistry(t, s, contract)
	b := newRegistry(t, s, contract)

	require.NoError(t, a.Sign(ctx, issuer))
	lic, err := a.Issue(ctx, issuer, seats(50, alice))
	require.NoError(t, err)

	// b has not seen a's records; a write catches it up first.
	assert.Equal(t, 0, b.Count())
	require.NoError(t, b.Transfer(ctx, lic, alice, bob, 20))
	assert.Equal(t, uint64(20), balance(t, b, lic, bob))

	require.NoError(t, a.Sync(ctx))
	assert.Equal(t, uint64(30), balance(t, a, lic, alice))
	assert.Equal(t, snapshot(t, a), snapshot(t, b))
}

// racingStore lets another writer append just before the next append.
type racingStore struct {
	*memory.Store
	race func()
}

func (s *racingStore) AppendRecords(ctx context.Context, recs []*record.Record) error {
	if race := s.race; race != nil {
		s.race = nil
		race()
	}
	return s.Store.AppendRecords(ctx, recs)
}

func TestConcurrentWriterConflict(t *testing.T) {
	ctx := context.Background()
	s := &racingStore{Store: memory.New()}
	contract := id.NewContractID()

	a := newRegistry(t, s, contract)
	b := newRegistry(t, s, contract)
	require.NoError(t, a.Sign(ctx, issuer))
	lic, err := a.Issue(ctx, issuer, seats(50, alice))
	require.NoError(t, err)
	require.NoError(t, b.Sync(ctx))

	s.race = func() {
		require.NoError(t, a.Transfer(ctx, lic, alice, carol, 40))
	}
	err = b.Transfer(ctx, lic, alice, bob, 20)
	assert.ErrorIs(t, err, fault.ErrConflict)
	assert.True(t, fault.IsRetryable(err))
	assert.Equal(t, uint64(50), balance(t, b, lic, alice), "a conflicting write changes nothing")

	err = b.Transfer(ctx, lic, alice, bob, 20)
	assert.ErrorIs(t, err, fault.ErrInsufficientBalance, "the retry sees the other writer's transfer")
	require.NoError(t, b.Verify())
}

// failingStore fails every append.
type failingStore struct {
	*memory.Store
}

func (failingStore) AppendRecords(context.Context, []*record.Record) error {
	return errors.New("disk full")
}

func TestStoreFailureLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	reg := newRegistry(t, failingStore{Store: memory.New()}, id.NewContractID())

	err := reg.Sign(ctx, issuer)
	require.Error(t, err)
	state, err := reg.Contract()
	require.NoError(t, err)
	assert.False(t, state.Signed)
}

type capturePlugin struct {
	mu       sync.Mutex
	kinds    []record.Kind
	rejected []string
}

func (p *capturePlugin) Name() string { return "capture" }

func (p *capturePlugin) add(k record.Kind) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.kinds = append(p.kinds, k)
}

func (p *capturePlugin) OnIssuanceCreated(_ context.Context, rec *record.Record) error {
	p.add(rec.Kind)
	return nil
}

func (p *capturePlugin) OnTransfer(_ context.Context, rec *record.Record) error {
	p.add(rec.Kind)
	return nil
}

func (p *capturePlugin) OnContractSigned(_ context.Context, rec *record.Record) error {
	p.add(rec.Kind)
	return nil
}

func (p *capturePlugin) OnOperationRejected(_ context.Context, op string, _ types.Address, _ error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rejected = append(p.rejected, op)
	return nil
}

func TestPluginsSeeCommittedRecords(t *testing.T) {
	ctx := context.Background()
	p := &capturePlugin{}
	reg, _ := signedRegistry(t, licensing.WithPlugin(p))

	lic, err := reg.Issue(ctx, issuer, seats(10, alice))
	require.NoError(t, err)
	assert.Error(t, reg.Transfer(ctx, lic, bob, alice, 1))
	assert.Error(t, reg.Destroy(ctx, lic, bob, 1))

	assert.Equal(t, []record.Kind{
		record.KindContractSigned,
		record.KindIssuanceCreated,
		record.KindTransfer,
	}, p.kinds)
	assert.Equal(t, []string{"transfer", "destroy"}, p.rejected)
}
