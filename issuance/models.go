package issuance

import (
	"strings"
	"time"

	"github.com/xraph/licensing/fault"
	"github.com/xraph/licensing/types"
)

// Metadata is the immutable description of an issuance, fixed at creation.
type Metadata struct {
	Description    string    `json:"description"`
	Code           string    `json:"code"`
	OriginalOwner  string    `json:"original_owner"`
	OriginalSupply uint64    `json:"original_supply"`
	AuditTime      time.Time `json:"audit_time"`
	AuditRemark    string    `json:"audit_remark"`
}

// Params are the arguments of an issuance request.
type Params struct {
	Metadata
	InitialOwner types.Address `json:"initial_owner"`
}

// Validate checks the request before any gate or fee checks run.
func (p Params) Validate() error {
	if strings.TrimSpace(p.Code) == "" {
		return fault.ErrRequiredCode
	}
	if p.InitialOwner.IsNull() {
		return fault.ErrRequiredInitialOwner
	}
	if p.AuditTime.IsZero() || p.AuditTime.Unix() < 0 {
		return fault.ErrInvalidAuditTime
	}
	return nil
}

// Normalize returns m with AuditTime reduced to whole seconds in UTC, the
// precision at which it is persisted.
func (m Metadata) Normalize() Metadata {
	m.AuditTime = time.Unix(m.AuditTime.Unix(), 0).UTC()
	return m
}

// Info is a read-only snapshot of an issuance.
type Info struct {
	types.Entity
	ID                uint64 `json:"id"`
	Metadata          `json:"metadata"`
	Revoked           bool   `json:"revoked"`
	CirculatingSupply uint64 `json:"circulating_supply"`
}

// Cell is one non-zero entry of the balance matrix: Holder holds Amount
// units which Reclaimer may recall. Holder == Reclaimer is outright
// ownership.
type Cell struct {
	Holder    types.Address `json:"holder"`
	Reclaimer types.Address `json:"reclaimer"`
	Amount    uint64        `json:"amount"`
}

// Outright reports whether the cell is held with no recall right.
func (c Cell) Outright() bool { return c.Holder == c.Reclaimer }
