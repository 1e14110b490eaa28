package events

import (
	"time"

	"github.com/leadstack/lead-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventLeadCreated EventType = "lead_created"
	EventLeadUpdated EventType = "lead_updated"
	EventLeadDeleted EventType = "lead_deleted"
)

// Event represents a lead mutation emitted by the lead service.
type Event struct {
	ID        string             `json:"id"`
	Type      EventType          `json:"type"`
	LeadID    string             `json:"lead_id"`
	OwnerID   string             `json:"owner_id"`
	Timestamp time.Time          `json:"timestamp"`
	Detail    string             `json:"detail,omitempty"`
	Status    *domain.LeadStatus `json:"status,omitempty"`
}
