package mongo

import (
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

// ==================== Record batch models ====================

// batchModel holds the records of one AppendRecords call. Seq is the first
// record's sequence number and carries the unique index; a document write
// is atomic, so a batch is never half persisted.
type batchModel struct {
	grove.BaseModel `grove:"table:licensing_record_batches"`

	ID         string        `grove:"id,pk"       bson:"_id"`
	ContractID string        `grove:"contract_id" bson:"contract_id"`
	Seq        int64         `grove:"seq"         bson:"seq"`
	LastSeq    int64         `grove:"last_seq"    bson:"last_seq"`
	Records    []recordModel `grove:"records"     bson:"records"`
	CreatedAt  time.Time     `grove:"created_at"  bson:"created_at"`
}

type recordModel struct {
	ID          string         `bson:"id"`
	Seq         int64          `bson:"seq"`
	Kind        string         `bson:"kind"`
	Caller      string         `bson:"caller,omitempty"`
	IssuanceID  *int64         `bson:"issuance_id,omitempty"`
	FromAddr    string         `bson:"from_addr,omitempty"`
	ToAddr      string         `bson:"to_addr,omitempty"`
	Amount      string         `bson:"amount"`
	Reclaimable bool           `bson:"reclaimable"`
	Issuance    *issuanceModel `bson:"issuance,omitempty"`
	Authority   string         `bson:"authority,omitempty"`
	Fee         *feeModel      `bson:"fee,omitempty"`
	CreatedAt   time.Time      `bson:"created_at"`
}

type issuanceModel struct {
	Description    string    `bson:"description"`
	Code           string    `bson:"code"`
	OriginalOwner  string    `bson:"original_owner"`
	OriginalSupply string    `bson:"original_supply"`
	AuditTime      time.Time `bson:"audit_time"`
	AuditRemark    string    `bson:"audit_remark"`
}

type feeModel struct {
	AmountCents int64  `bson:"amount_cents"`
	Currency    string `bson:"currency"`
}

func toBatchModel(records []*record.Record) *batchModel {
	first, last := records[0], records[len(records)-1]
	entries := make([]recordModel, len(records))
	for i, r := range records {
		entries[i] = toRecordModel(r)
	}
	return &batchModel{
		ID:         first.ID.String(),
		ContractID: first.ContractID.String(),
		Seq:        int64(first.Seq), //nolint:gosec // sequence numbers stay far below MaxInt64
		LastSeq:    int64(last.Seq),  //nolint:gosec // sequence numbers stay far below MaxInt64
		Records:    entries,
		CreatedAt:  first.CreatedAt,
	}
}

func toRecordModel(r *record.Record) recordModel {
	m := recordModel{
		ID:          r.ID.String(),
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
		m.Issuance = &issuanceModel{
			Description:    r.Issuance.Description,
			Code:           r.Issuance.Code,
			OriginalOwner:  r.Issuance.OriginalOwner,
			OriginalSupply: strconv.FormatUint(r.Issuance.OriginalSupply, 10),
			AuditTime:      r.Issuance.AuditTime,
			AuditRemark:    r.Issuance.AuditRemark,
		}
	}
	if r.Fee != nil {
		m.Fee = &feeModel{AmountCents: r.Fee.Amount, Currency: r.Fee.Currency}
	}
	return m
}

func fromBatchModel(b *batchModel) ([]*record.Record, error) {
	contractID, err := id.ParseContractID(b.ContractID)
	if err != nil {
		return nil, err
	}
	out := make([]*record.Record, len(b.Records))
	for i := range b.Records {
		r, err := fromRecordModel(contractID, &b.Records[i])
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

func fromRecordModel(contractID id.ContractID, m *recordModel) (*record.Record, error) {
	recordID, err := id.ParseRecordID(m.ID)
	if err != nil {
		return nil, err
	}
	amount, err := strconv.ParseUint(m.Amount, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("licensing/mongo: record %s: amount %q: %w", m.ID, m.Amount, fault.ErrInvalidRecord)
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
	if m.Issuance != nil {
		supply, err := strconv.ParseUint(m.Issuance.OriginalSupply, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("licensing/mongo: record %s: supply %q: %w", m.ID, m.Issuance.OriginalSupply, fault.ErrInvalidRecord)
		}
		r.Issuance = &issuance.Metadata{
			Description:    m.Issuance.Description,
			Code:           m.Issuance.Code,
			OriginalOwner:  m.Issuance.OriginalOwner,
			OriginalSupply: supply,
			AuditTime:      m.Issuance.AuditTime.UTC(),
			AuditRemark:    m.Issuance.AuditRemark,
		}
	}
	if m.Fee != nil {
		fee := types.Money{Amount: m.Fee.AmountCents, Currency: m.Fee.Currency}
		r.Fee = &fee
	}
	return r, nil
}
