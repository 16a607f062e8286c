package observability_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/licensing/fault"
	"github.com/xraph/licensing/issuance"
	"github.com/xraph/licensing/observability"
	"github.com/xraph/licensing/record"
	"github.com/xraph/licensing/types"
)

type metric struct {
	mu     sync.Mutex
	total  float64
	values []float64
}

func (m *metric) Inc() { m.Add(1) }

func (m *metric) Add(v float64) {
	m.mu.Lock()
	m.total += v
	m.mu.Unlock()
}

func (m *metric) Observe(v float64) {
	m.mu.Lock()
	m.values = append(m.values, v)
	m.mu.Unlock()
}

type factory struct {
	metrics map[string]*metric
}

func newFactory() *factory { return &factory{metrics: make(map[string]*metric)} }

func (f *factory) get(name string) *metric {
	if m, ok := f.metrics[name]; ok {
		return m
	}
	m := &metric{}
	f.metrics[name] = m
	return m
}

func (f *factory) Counter(name string) observability.Counter     { return f.get(name) }
func (f *factory) Histogram(name string) observability.Histogram { return f.get(name) }

func TestOwnershipMetrics(t *testing.T) {
	f := newFactory()
	m := observability.NewMetricsExtension(f)
	ctx := context.Background()

	require.NoError(t, m.OnIssuanceCreated(ctx, &record.Record{Issuance: &issuance.Metadata{OriginalSupply: 100}}))
	require.NoError(t, m.OnTransfer(ctx, &record.Record{From: types.Null, To: "alice", Amount: 100}))
	require.NoError(t, m.OnTransfer(ctx, &record.Record{From: "alice", To: "bob", Amount: 30}))
	require.NoError(t, m.OnTransfer(ctx, &record.Record{From: "alice", To: "carol", Amount: 20, Reclaimable: true}))
	require.NoError(t, m.OnReclaim(ctx, &record.Record{From: "carol", To: "alice", Amount: 5}))
	require.NoError(t, m.OnTransfer(ctx, &record.Record{From: "alice", To: types.Null, Amount: 7}))

	assert.Equal(t, 1.0, f.get("licensing.issuance.created").total)
	assert.Equal(t, []float64{100}, f.get("licensing.issuance.supply").values)
	assert.Equal(t, 1.0, f.get("licensing.transfer.outright").total)
	assert.Equal(t, 1.0, f.get("licensing.transfer.reclaimable").total)
	assert.Equal(t, 1.0, f.get("licensing.reclaim").total)
	assert.Equal(t, 55.0, f.get("licensing.units.moved").total)
	assert.Equal(t, 7.0, f.get("licensing.units.destroyed").total)
}

func TestRejectionMetrics(t *testing.T) {
	f := newFactory()
	m := observability.NewMetricsExtension(f)
	ctx := context.Background()

	require.NoError(t, m.OnOperationRejected(ctx, "revoke", "mallory", fault.ErrNotIssuer))
	require.NoError(t, m.OnOperationRejected(ctx, "transfer", "alice", fault.ErrInsufficientReclaimable))
	require.NoError(t, m.OnOperationRejected(ctx, "sign", "issuer", fault.ErrAlreadySigned))

	assert.Equal(t, 3.0, f.get("licensing.rejected").total)
	assert.Equal(t, 1.0, f.get("licensing.rejected.authorization").total)
	assert.Equal(t, 1.0, f.get("licensing.rejected.balance").total)
}

func TestReplayMetrics(t *testing.T) {
	f := newFactory()
	m := observability.NewMetricsExtension(f)

	require.NoError(t, m.OnReplayed(context.Background(), 42, 15*time.Millisecond))
	assert.Equal(t, 42.0, f.get("licensing.replay.records").total)
	assert.Equal(t, []float64{15}, f.get("licensing.replay.latency_ms").values)
}
