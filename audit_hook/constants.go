package audithook

// Action constants for audit events.
const (
	// Protocol configuration actions
	ActionConfigInitialized = "config.initialized"
	ActionConfigUpdated     = "config.updated"

	// Stream lifecycle actions
	ActionStreamCreated   = "stream.created"
	ActionStreamToppedUp  = "stream.topped_up"
	ActionStreamWithdrawn = "stream.withdrawn"
	ActionStreamCancelled = "stream.cancelled"

	// Fee actions
	ActionFeeCollected = "fee.collected"
)

// Resource constants for audit events.
const (
	ResourceConfig = "config"
	ResourceStream = "stream"
	ResourceFee    = "fee"
)

// Category constants for audit events.
const (
	CategoryGovernance = "governance"
	CategoryStreaming  = "streaming"
	CategoryPayment    = "payment"
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
