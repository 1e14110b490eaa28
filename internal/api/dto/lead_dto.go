package dto

import (
	"time"

	"github.com/leadstack/lead-service/internal/domain"
)

// CreateLeadRequest payload.
type CreateLeadRequest struct {
	FirstName   string   `json:"firstName"`
	LastName    string   `json:"lastName"`
	Email       string   `json:"email"`
	Phone       *string  `json:"phone"`
	Company     *string  `json:"company"`
	City        *string  `json:"city"`
	State       *string  `json:"state"`
	Source      string   `json:"source"`
	Status      string   `json:"status"`
	Score       *int     `json:"score"`
	LeadValue   *float64 `json:"leadValue"`
	IsQualified *bool    `json:"isQualified"`
}

// UpdateLeadRequest is a partial patch; absent fields stay unchanged.
type UpdateLeadRequest struct {
	FirstName   *string  `json:"firstName"`
	LastName    *string  `json:"lastName"`
	Email       *string  `json:"email"`
	Phone       *string  `json:"phone"`
	Company     *string  `json:"company"`
	City        *string  `json:"city"`
	State       *string  `json:"state"`
	Source      *string  `json:"source"`
	Status      *string  `json:"status"`
	Score       *int     `json:"score"`
	LeadValue   *float64 `json:"leadValue"`
	IsQualified *bool    `json:"isQualified"`
}

// LeadResponse is the wire shape of a lead.
type LeadResponse struct {
	ID             string            `json:"id"`
	FirstName      string            `json:"firstName"`
	LastName       string            `json:"lastName"`
	Email          string            `json:"email"`
	Phone          *string           `json:"phone"`
	Company        *string           `json:"company"`
	City           *string           `json:"city"`
	State          *string           `json:"state"`
	Source         domain.LeadSource `json:"source"`
	Status         domain.LeadStatus `json:"status"`
	Score          int               `json:"score"`
	LeadValue      *float64          `json:"leadValue"`
	IsQualified    bool              `json:"isQualified"`
	CreatedAt      time.Time         `json:"createdAt"`
	LastActivityAt time.Time         `json:"lastActivityAt"`
}

// LeadListResponse is the pagination envelope for lead listings.
type LeadListResponse struct {
	Success    bool           `json:"success"`
	Data       []LeadResponse `json:"data"`
	Page       int            `json:"page"`
	Limit      int            `json:"limit"`
	Total      int64          `json:"total"`
	TotalPages int            `json:"totalPages"`
}

// LeadActivityResponse is one entry of a lead's mutation trail.
type LeadActivityResponse struct {
	ID         string                    `json:"id"`
	Action     domain.LeadActivityAction `json:"action"`
	Detail     string                    `json:"detail"`
	OccurredAt time.Time                 `json:"occurredAt"`
}

// NewLeadResponse maps a domain lead to its wire shape.
func NewLeadResponse(lead *domain.Lead) LeadResponse {
	return LeadResponse{
		ID:             lead.ID,
		FirstName:      lead.FirstName,
		LastName:       lead.LastName,
		Email:          lead.Email,
		Phone:          lead.Phone,
		Company:        lead.Company,
		City:           lead.City,
		State:          lead.State,
		Source:         lead.Source,
		Status:         lead.Status,
		Score:          lead.Score,
		LeadValue:      lead.LeadValue,
		IsQualified:    lead.IsQualified,
		CreatedAt:      lead.CreatedAt,
		LastActivityAt: lead.LastActivityAt,
	}
}

// NewLeadActivityResponse maps an activity entry to its wire shape.
func NewLeadActivityResponse(activity *domain.LeadActivity) LeadActivityResponse {
	return LeadActivityResponse{
		ID:         activity.ID,
		Action:     activity.Action,
		Detail:     activity.Detail,
		OccurredAt: activity.OccurredAt,
	}
}
