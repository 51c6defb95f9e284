package notify

// Event types emitted by the trading pipelines.
const (
	EventOrderPlaced    = "order_placed"
	EventPositionClosed = "position_closed"
	EventWorkflowFailed = "workflow_failed"
)
