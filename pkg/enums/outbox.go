package enums

// OutboxAggregateType identifies the ledger entity an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateDistributionBatch OutboxAggregateType = "distribution_batch"
	AggregateInventoryItem     OutboxAggregateType = "inventory_item"
)

func (a OutboxAggregateType) IsValid() bool {
	switch a {
	case AggregateDistributionBatch, AggregateInventoryItem:
		return true
	}
	return false
}

// OutboxEventType names a ledger domain event. The value doubles as the
// event_type attribute on the published Pub/Sub message.
type OutboxEventType string

const (
	EventBatchCreated   OutboxEventType = "batch_created"
	EventBenefitClaimed OutboxEventType = "benefit_claimed"
	EventItemDeleted    OutboxEventType = "inventory_item_deleted"
)

func (e OutboxEventType) IsValid() bool {
	switch e {
	case EventBatchCreated, EventBenefitClaimed, EventItemDeleted:
		return true
	}
	return false
}

// OutboxDLQErrorReason records why the publisher gave up on an event.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)
