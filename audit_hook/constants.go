package audithook

// Action constants for audit events.
const (
	// Issuance actions
	ActionIssuanceCreated = "issuance.created"
	ActionTransfer        = "issuance.transferred"
	ActionDelegate        = "issuance.delegated"
	ActionDestroy         = "issuance.destroyed"
	ActionReclaim         = "issuance.reclaimed"
	ActionRevoke          = "issuance.revoked"

	// Contract actions
	ActionContractSigned   = "contract.signed"
	ActionContractDisabled = "contract.disabled"
	ActionAuthorityChanged = "authority.changed"
	ActionFeeChanged       = "fee.changed"

	// Rejections
	ActionOperationRejected = "operation.rejected"
)

// Resource constants for audit events.
const (
	ResourceIssuance = "issuance"
	ResourceContract = "contract"
)

// Category constants for audit events.
const (
	CategoryOwnership  = "ownership"
	CategoryLifecycle  = "lifecycle"
	CategoryGovernance = "governance"
	CategoryAccess     = "access"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
