package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/xraph/licensing/record"
	"github.com/xraph/licensing/types"
)

// DefaultTimeout bounds a single plugin call.
const DefaultTimeout = 5 * time.Second

// Registry manages all registered plugins and dispatches events to them.
// Implemented hook interfaces are discovered once, at registration.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	// Type-cached plugin lists for dispatch
	onInit              []OnInit
	onShutdown          []OnShutdown
	onReplayed          []OnReplayed
	onIssuanceCreated   []OnIssuanceCreated
	onTransfer          []OnTransfer
	onReclaim           []OnReclaim
	onRevoke            []OnRevoke
	onContractSigned    []OnContractSigned
	onContractDisabled  []OnContractDisabled
	onAuthorityChanged  []OnAuthorityChanged
	onFeeChanged        []OnFeeChanged
	onOperationRejected []OnOperationRejected
	feeCheckers         []FeeChecker
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets the per-call plugin timeout.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	if d > 0 {
		r.timeout = d
	}
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnReplayed); ok {
		r.onReplayed = append(r.onReplayed, v)
	}
	if v, ok := p.(OnIssuanceCreated); ok {
		r.onIssuanceCreated = append(r.onIssuanceCreated, v)
	}
	if v, ok := p.(OnTransfer); ok {
		r.onTransfer = append(r.onTransfer, v)
	}
	if v, ok := p.(OnReclaim); ok {
		r.onReclaim = append(r.onReclaim, v)
	}
	if v, ok := p.(OnRevoke); ok {
		r.onRevoke = append(r.onRevoke, v)
	}
	if v, ok := p.(OnContractSigned); ok {
		r.onContractSigned = append(r.onContractSigned, v)
	}
	if v, ok := p.(OnContractDisabled); ok {
		r.onContractDisabled = append(r.onContractDisabled, v)
	}
	if v, ok := p.(OnAuthorityChanged); ok {
		r.onAuthorityChanged = append(r.onAuthorityChanged, v)
	}
	if v, ok := p.(OnFeeChanged); ok {
		r.onFeeChanged = append(r.onFeeChanged, v)
	}
	if v, ok := p.(OnOperationRejected); ok {
		r.onOperationRejected = append(r.onOperationRejected, v)
	}
	if v, ok := p.(FeeChecker); ok {
		r.feeCheckers = append(r.feeCheckers, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", implementedInterfaces(p),
	)

	return nil
}

var hookTypes = []struct {
	name string
	typ  reflect.Type
}{
	{"OnInit", reflect.TypeOf((*OnInit)(nil)).Elem()},
	{"OnShutdown", reflect.TypeOf((*OnShutdown)(nil)).Elem()},
	{"OnReplayed", reflect.TypeOf((*OnReplayed)(nil)).Elem()},
	{"OnIssuanceCreated", reflect.TypeOf((*OnIssuanceCreated)(nil)).Elem()},
	{"OnTransfer", reflect.TypeOf((*OnTransfer)(nil)).Elem()},
	{"OnReclaim", reflect.TypeOf((*OnReclaim)(nil)).Elem()},
	{"OnRevoke", reflect.TypeOf((*OnRevoke)(nil)).Elem()},
	{"OnContractSigned", reflect.TypeOf((*OnContractSigned)(nil)).Elem()},
	{"OnContractDisabled", reflect.TypeOf((*OnContractDisabled)(nil)).Elem()},
	{"OnAuthorityChanged", reflect.TypeOf((*OnAuthorityChanged)(nil)).Elem()},
	{"OnFeeChanged", reflect.TypeOf((*OnFeeChanged)(nil)).Elem()},
	{"OnOperationRejected", reflect.TypeOf((*OnOperationRejected)(nil)).Elem()},
	{"FeeChecker", reflect.TypeOf((*FeeChecker)(nil)).Elem()},
}

// implementedInterfaces returns the hook interfaces p implements.
func implementedInterfaces(p Plugin) []string {
	var interfaces []string
	v := reflect.TypeOf(p)
	for _, h := range hookTypes {
		if v.Implements(h.typ) {
			interfaces = append(interfaces, h.name)
		}
	}
	return interfaces
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// FeeCheckers returns all registered fee checkers.
func (r *Registry) FeeCheckers() []FeeChecker {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]FeeChecker, len(r.feeCheckers))
	copy(result, r.feeCheckers)
	return result
}

// CheckFee asks every FeeChecker plugin to confirm that caller paid fee.
// Each call is bounded by the plugin timeout; the first failure is
// returned. It also returns the number of checkers consulted.
func (r *Registry) CheckFee(ctx context.Context, caller types.Address, fee types.Money) (int, error) {
	checkers := r.FeeCheckers()
	for _, fc := range checkers {
		err := r.callWithTimeout(ctx, fc.Name(), func() error {
			return fc.CheckFee(ctx, caller, fee)
		})
		if err != nil {
			return len(checkers), fmt.Errorf("fee %s (%s): %w", fee, fc.Name(), err)
		}
	}
	return len(checkers), nil
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, registry interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, p.Name(), "OnInit", func() error {
			return p.OnInit(ctx, registry)
		})
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, p.Name(), "OnShutdown", func() error {
			return p.OnShutdown(ctx)
		})
	}
}

// EmitReplayed emits a replay event.
func (r *Registry) EmitReplayed(ctx context.Context, records int, elapsed time.Duration) {
	r.mu.RLock()
	plugins := r.onReplayed
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, p.Name(), "OnReplayed", func() error {
			return p.OnReplayed(ctx, records, elapsed)
		})
	}
}

// EmitRecords dispatches each committed record to the hooks for its kind.
func (r *Registry) EmitRecords(ctx context.Context, records []*record.Record) {
	for _, rec := range records {
		r.EmitRecord(ctx, rec)
	}
}

// EmitRecord dispatches one committed record to the hooks for its kind.
func (r *Registry) EmitRecord(ctx context.Context, rec *record.Record) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	switch rec.Kind {
	case record.KindIssuanceCreated:
		for _, p := range r.onIssuanceCreated {
			r.call(ctx, p.Name(), "OnIssuanceCreated", func() error { return p.OnIssuanceCreated(ctx, rec) })
		}
	case record.KindTransfer:
		for _, p := range r.onTransfer {
			r.call(ctx, p.Name(), "OnTransfer", func() error { return p.OnTransfer(ctx, rec) })
		}
	case record.KindReclaim:
		for _, p := range r.onReclaim {
			r.call(ctx, p.Name(), "OnReclaim", func() error { return p.OnReclaim(ctx, rec) })
		}
	case record.KindRevoke:
		for _, p := range r.onRevoke {
			r.call(ctx, p.Name(), "OnRevoke", func() error { return p.OnRevoke(ctx, rec) })
		}
	case record.KindContractSigned:
		for _, p := range r.onContractSigned {
			r.call(ctx, p.Name(), "OnContractSigned", func() error { return p.OnContractSigned(ctx, rec) })
		}
	case record.KindContractDisabled:
		for _, p := range r.onContractDisabled {
			r.call(ctx, p.Name(), "OnContractDisabled", func() error { return p.OnContractDisabled(ctx, rec) })
		}
	case record.KindAuthorityChanged:
		for _, p := range r.onAuthorityChanged {
			r.call(ctx, p.Name(), "OnAuthorityChanged", func() error { return p.OnAuthorityChanged(ctx, rec) })
		}
	case record.KindFeeChanged:
		for _, p := range r.onFeeChanged {
			r.call(ctx, p.Name(), "OnFeeChanged", func() error { return p.OnFeeChanged(ctx, rec) })
		}
	}
}

// EmitOperationRejected emits a rejected operation event.
func (r *Registry) EmitOperationRejected(ctx context.Context, op string, caller types.Address, opErr error) {
	r.mu.RLock()
	plugins := r.onOperationRejected
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, p.Name(), "OnOperationRejected", func() error {
			return p.OnOperationRejected(ctx, op, caller, opErr)
		})
	}
}

// call runs one hook with a timeout and logs its failure.
func (r *Registry) call(ctx context.Context, pluginName, hook string, fn func() error) {
	if err := r.callWithTimeout(ctx, pluginName, fn); err != nil {
		r.logger.Warn("plugin "+hook+" failed",
			"plugin", pluginName,
			"error", err,
		)
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the registry.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
