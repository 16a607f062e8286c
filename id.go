package licensing

import "github.com/xraph/licensing/id"

// ContractID identifies a license contract.
type ContractID = id.ContractID

// RecordID identifies an entry of the record log.
type RecordID = id.RecordID

// NewContractID and ParseContractID are re-exported from the id package.
var (
	NewContractID   = id.NewContractID
	ParseContractID = id.ParseContractID
)
