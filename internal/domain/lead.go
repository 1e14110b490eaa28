package domain

import "time"

// LeadSource enumerates acquisition channels.
type LeadSource string

const (
	LeadSourceWebsite     LeadSource = "website"
	LeadSourceFacebookAds LeadSource = "facebook_ads"
	LeadSourceGoogleAds   LeadSource = "google_ads"
	LeadSourceReferral    LeadSource = "referral"
	LeadSourceEvents      LeadSource = "events"
	LeadSourceOther       LeadSource = "other"
)

// LeadStatus enumerates pipeline states. Any status may follow any other;
// the pipeline order is advisory, not enforced.
type LeadStatus string

const (
	LeadStatusNew       LeadStatus = "new"
	LeadStatusContacted LeadStatus = "contacted"
	LeadStatusQualified LeadStatus = "qualified"
	LeadStatusLost      LeadStatus = "lost"
	LeadStatusWon       LeadStatus = "won"
)

// ValidSources lists the accepted source values in display order.
var ValidSources = []LeadSource{
	LeadSourceWebsite,
	LeadSourceFacebookAds,
	LeadSourceGoogleAds,
	LeadSourceReferral,
	LeadSourceEvents,
	LeadSourceOther,
}

// ValidStatuses lists the accepted status values in pipeline order.
var ValidStatuses = []LeadStatus{
	LeadStatusNew,
	LeadStatusContacted,
	LeadStatusQualified,
	LeadStatusLost,
	LeadStatusWon,
}

// IsValid reports whether the source is one of the enumerated values.
func (s LeadSource) IsValid() bool {
	for _, v := range ValidSources {
		if s == v {
			return true
		}
	}
	return false
}

// IsValid reports whether the status is one of the enumerated values.
func (s LeadStatus) IsValid() bool {
	for _, v := range ValidStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Lead is a prospective customer record owned by exactly one user.
// Email is unique per owner, not globally. Score is not range-checked
// server-side.
type Lead struct {
	ID             string
	OwnerID        string
	FirstName      string
	LastName       string
	Email          string
	Phone          *string
	Company        *string
	City           *string
	State          *string
	Source         LeadSource
	Status         LeadStatus
	Score          int
	LeadValue      *float64
	IsQualified    bool
	CreatedAt      time.Time
	LastActivityAt time.Time
}
