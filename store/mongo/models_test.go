package mongo

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/licensing/id"
	"github.com/xraph/licensing/issuance"
	"github.com/xraph/licensing/record"
	"github.com/xraph/licensing/types"
)

func TestBatchModelRoundTrip(t *testing.T) {
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	contract := id.NewContractID()
	entity := types.NewEntity(created)

	records := []*record.Record{
		{
			Entity:     entity,
			ID:         id.NewRecordID(),
			ContractID: contract,
			Seq:        3,
			Kind:       record.KindIssuanceCreated,
			Caller:     "issuer",
			IssuanceID: 1,
			To:         "alice",
			Issuance: &issuance.Metadata{
				Code:           "SEAT",
				OriginalSupply: 1 << 63,
				AuditTime:      created,
			},
		},
		{
			Entity:     entity,
			ID:         id.NewRecordID(),
			ContractID: contract,
			Seq:        4,
			Kind:       record.KindTransfer,
			Caller:     "issuer",
			IssuanceID: 1,
			To:         "alice",
			Amount:     1 << 63,
		},
	}

	b := toBatchModel(records)
	assert.Equal(t, records[0].ID.String(), b.ID)
	assert.Equal(t, int64(3), b.Seq)
	assert.Equal(t, int64(4), b.LastSeq)

	got, err := fromBatchModel(b)
	require.NoError(t, err)
	assert.Equal(t, records, got)
}

func TestSeqIndexIsUnique(t *testing.T) {
	models := migrationIndexes()[colBatches]
	require.NotEmpty(t, models)
	assert.NotNil(t, models[0].Options, "the (contract_id, seq) index must be unique")
}

func TestListFilterMatchesOneRecord(t *testing.T) {
	contract := id.NewContractID()
	iss := uint64(2)
	f := listFilter(contract, record.ListOpts{
		IssuanceID: &iss,
		Kind:       record.KindTransfer,
		Address:    types.Address("alice"),
		AfterSeq:   7,
		Limit:      3,
	})

	assert.Equal(t, contract.String(), f["contract_id"])
	assert.Equal(t, bson.M{"$gt": int64(7)}, f["last_seq"])

	// A batch with a transfer by bob and a reclaim by alice must not match.
	records, ok := f["records"].(bson.M)
	require.True(t, ok)
	match, ok := records["$elemMatch"].(bson.M)
	require.True(t, ok)
	assert.Equal(t, bson.M{"$gt": int64(7)}, match["seq"])
	assert.Equal(t, string(record.KindTransfer), match["kind"])
	assert.Equal(t, int64(2), match["issuance_id"])
	assert.Len(t, match["$or"], 4)
}

func TestListFilterWithoutOptions(t *testing.T) {
	f := listFilter(id.NewContractID(), record.ListOpts{})
	match := f["records"].(bson.M)["$elemMatch"].(bson.M)
	assert.Len(t, match, 1, "only the seq bound applies")
}
