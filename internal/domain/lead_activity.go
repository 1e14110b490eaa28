package domain

import "time"

// LeadActivityAction enumerates recorded mutation kinds.
type LeadActivityAction string

const (
	LeadActivityCreated LeadActivityAction = "created"
	LeadActivityUpdated LeadActivityAction = "updated"
	LeadActivityDeleted LeadActivityAction = "deleted"
)

// LeadActivity is an audit entry for a lead mutation.
type LeadActivity struct {
	ID         string
	LeadID     string
	OwnerID    string
	Action     LeadActivityAction
	Detail     string
	OccurredAt time.Time
}
