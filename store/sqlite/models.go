package sqlite

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/licensing/fault"
	"github.com/xraph/licensing/id"
	"github.com/xraph/licensing/issuance"
	"github.com/xraph/licensing/record"
	"github.com/xraph/licensing/types"
)

// recordModel is one row of licensing_records. Unit counts are unsigned
// 64-bit and are stored as decimal text; JSON columns are TEXT.
type recordModel struct {
	grove.BaseModel `grove:"table:licensing_records"`

	ID          string    `grove:"id,pk"`
	ContractID  string    `grove:"contract_id"`
	Seq         int64     `grove:"seq"`
	Kind        string    `grove:"kind"`
	Caller      string    `grove:"caller"`
	IssuanceID  *int64    `grove:"issuance_id"`
	FromAddr    string    `grove:"from_addr"`
	ToAddr      string    `grove:"to_addr"`
	Amount      string    `grove:"amount"`
	Reclaimable bool      `grove:"reclaimable"`
	Issuance    string    `grove:"issuance"`
	Authority   string    `grove:"authority"`
	Fee         string    `grove:"fee"`
	CreatedAt   time.Time `grove:"created_at"`
}

func toRecordModel(r *record.Record) (*recordModel, error) {
	m := &recordModel{
		ID:          r.ID.String(),
		ContractID:  r.ContractID.String(),
		Seq:         int64(r.Seq), //nolint:gosec // sequence numbers stay far below MaxInt64
		Kind:        string(r.Kind),
		Caller:      string(r.Caller),
		FromAddr:    string(r.From),
		ToAddr:      string(r.To),
		Amount:      strconv.FormatUint(r.Amount, 10),
		Reclaimable: r.Reclaimable,
		Authority:   string(r.Authority),
		CreatedAt:   r.CreatedAt,
	}
	if r.Kind.IssuanceScoped() {
		issuanceID := int64(r.IssuanceID) //nolint:gosec // issuance ids are positions in a slice
		m.IssuanceID = &issuanceID
	}
	if r.Issuance != nil {
		raw, err := json.Marshal(r.Issuance)
		if err != nil {
			return nil, fmt.Errorf("licensing/sqlite: encode issuance metadata: %w", err)
		}
		m.Issuance = string(raw)
	}
	if r.Fee != nil {
		raw, err := json.Marshal(r.Fee)
		if err != nil {
			return nil, fmt.Errorf("licensing/sqlite: encode fee: %w", err)
		}
		m.Fee = string(raw)
	}
	return m, nil
}

func fromRecordModel(m *recordModel) (*record.Record, error) {
	recordID, err := id.ParseRecordID(m.ID)
	if err != nil {
		return nil, err
	}
	contractID, err := id.ParseContractID(m.ContractID)
	if err != nil {
		return nil, err
	}
	amount, err := strconv.ParseUint(m.Amount, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("licensing/sqlite: record %s: amount %q: %w", m.ID, m.Amount, fault.ErrInvalidRecord)
	}

	r := &record.Record{
		Entity:      types.Entity{CreatedAt: m.CreatedAt.UTC()},
		ID:          recordID,
		ContractID:  contractID,
		Seq:         uint64(m.Seq), //nolint:gosec // written from a uint64
		Kind:        record.Kind(m.Kind),
		Caller:      types.Address(m.Caller),
		From:        types.Address(m.FromAddr),
		To:          types.Address(m.ToAddr),
		Amount:      amount,
		Reclaimable: m.Reclaimable,
		Authority:   types.Address(m.Authority),
	}
	if m.IssuanceID != nil {
		r.IssuanceID = uint64(*m.IssuanceID) //nolint:gosec // written from a uint64
	}
	if m.Issuance != "" {
		meta := new(issuance.Metadata)
		if err := json.Unmarshal([]byte(m.Issuance), meta); err != nil {
			return nil, fmt.Errorf("licensing/sqlite: record %s: issuance metadata: %w", m.ID, err)
		}
		r.Issuance = meta
	}
	if m.Fee != "" {
		fee := new(types.Money)
		if err := json.Unmarshal([]byte(m.Fee), fee); err != nil {
			return nil, fmt.Errorf("licensing/sqlite: record %s: fee: %w", m.ID, err)
		}
		r.Fee = fee
	}
	return r, nil
}
