package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/leadstack/lead-service/internal/domain"
	"github.com/leadstack/lead-service/internal/events"
	"github.com/leadstack/lead-service/internal/filter"
	"github.com/leadstack/lead-service/internal/repository"
	apperrors "github.com/leadstack/lead-service/pkg/util"
)

// Pagination bounds for lead listings.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// LeadService coordinates lead CRUD and the filtered listing flow.
type LeadService struct {
	leads      repository.LeadRepository
	activities repository.LeadActivityRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// LeadDependencies bundles requirements for the lead service.
type LeadDependencies struct {
	LeadRepo     repository.LeadRepository
	ActivityRepo repository.LeadActivityRepository
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
}

// NewLeadService constructs the service.
func NewLeadService(deps LeadDependencies) *LeadService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeadService{
		leads:      deps.LeadRepo,
		activities: deps.ActivityRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
}

// LeadCreateInput describes lead creation payload. Empty Source and Status
// take their defaults.
type LeadCreateInput struct {
	FirstName   string
	LastName    string
	Email       string
	Phone       *string
	Company     *string
	City        *string
	State       *string
	Source      domain.LeadSource
	Status      domain.LeadStatus
	Score       *int
	LeadValue   *float64
	IsQualified *bool
}

// LeadUpdateInput is a partial patch; nil fields stay unchanged.
type LeadUpdateInput struct {
	FirstName   *string
	LastName    *string
	Email       *string
	Phone       *string
	Company     *string
	City        *string
	State       *string
	Source      *domain.LeadSource
	Status      *domain.LeadStatus
	Score       *int
	LeadValue   *float64
	IsQualified *bool
}

// ListParams captures pagination plus raw filter descriptors.
type ListParams struct {
	Page    int
	Limit   int
	Filters map[string]filter.Descriptor
}

// LeadPage is the pagination envelope for list responses.
type LeadPage struct {
	Records    []domain.Lead
	Page       int
	Limit      int
	Total      int64
	TotalPages int
}

// Create validates and persists a new lead for the owner.
func (s *LeadService) Create(ctx context.Context, ownerID string, input LeadCreateInput) (*domain.Lead, error) {
	if input.FirstName == "" || input.LastName == "" || input.Email == "" {
		return nil, apperrors.NewValidationError("First name, last name, and email are required")
	}
	if input.Source != "" && !input.Source.IsValid() {
		return nil, invalidEnumError("source", sourceNames())
	}
	if input.Status != "" && !input.Status.IsValid() {
		return nil, invalidEnumError("status", statusNames())
	}

	exists, err := s.leads.EmailExistsForOwner(ctx, ownerID, input.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperrors.NewValidationError("Email already exists for your account")
	}

	lead := &domain.Lead{
		OwnerID:        ownerID,
		FirstName:      input.FirstName,
		LastName:       input.LastName,
		Email:          input.Email,
		Phone:          input.Phone,
		Company:        input.Company,
		City:           input.City,
		State:          input.State,
		Source:         input.Source,
		Status:         input.Status,
		Score:          0,
		LeadValue:      input.LeadValue,
		IsQualified:    false,
		LastActivityAt: time.Now().UTC(),
	}
	if lead.Source == "" {
		lead.Source = domain.LeadSourceOther
	}
	if lead.Status == "" {
		lead.Status = domain.LeadStatusNew
	}
	if input.Score != nil {
		lead.Score = *input.Score
	}
	if input.IsQualified != nil {
		lead.IsQualified = *input.IsQualified
	}

	if err := s.leads.Create(ctx, lead); err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventLeadCreated, lead, "lead created")
	return lead, nil
}

// Get returns the lead only when it belongs to the owner. Missing and
// not-owned are the same outcome.
func (s *LeadService) Get(ctx context.Context, ownerID, id string) (*domain.Lead, error) {
	lead, err := s.leads.GetForOwner(ctx, ownerID, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("Lead")
		}
		return nil, err
	}
	return lead, nil
}

// Update applies a partial patch. Every update counts as activity, so
// lastActivityAt is stamped even for single-field edits.
func (s *LeadService) Update(ctx context.Context, ownerID, id string, input LeadUpdateInput) (*domain.Lead, error) {
	if input.Source != nil && !input.Source.IsValid() {
		return nil, invalidEnumError("source", sourceNames())
	}
	if input.Status != nil && !input.Status.IsValid() {
		return nil, invalidEnumError("status", statusNames())
	}

	lead, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	changed := applyPatch(lead, input)
	lead.LastActivityAt = time.Now().UTC()

	if err := s.leads.Update(ctx, lead); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("Lead")
		}
		return nil, err
	}

	detail := "lead updated"
	if len(changed) > 0 {
		detail = "changed " + strings.Join(changed, ", ")
	}
	s.publish(ctx, events.EventLeadUpdated, lead, detail)
	return lead, nil
}

// Delete removes the lead permanently.
func (s *LeadService) Delete(ctx context.Context, ownerID, id string) error {
	lead, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if err := s.leads.DeleteForOwner(ctx, ownerID, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("Lead")
		}
		return err
	}
	s.publish(ctx, events.EventLeadDeleted, lead, "lead deleted")
	return nil
}

// List serves one page of the owner's leads, newest first. Compiled filter
// conditions are merged with the owner predicate inside the repository; the
// owner clause can never be overridden by client filters.
func (s *LeadService) List(ctx context.Context, ownerID string, params ListParams) (*LeadPage, error) {
	page := params.Page
	if page < 1 {
		page = 1
	}
	limit := params.Limit
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	offset := (page - 1) * limit

	conditions, rejected := filter.Compile(params.Filters)
	for _, rej := range rejected {
		s.logger.Debug("ignoring lead filter",
			zap.String("field", rej.Field),
			zap.String("reason", rej.Reason))
	}

	total, err := s.leads.CountForOwner(ctx, ownerID, conditions)
	if err != nil {
		return nil, err
	}
	records, err := s.leads.ListForOwner(ctx, ownerID, conditions, limit, offset)
	if err != nil {
		return nil, err
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	if totalPages < 1 {
		totalPages = 1
	}

	return &LeadPage{
		Records:    records,
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
	}, nil
}

// ListActivity returns the owner-scoped mutation trail for a lead.
func (s *LeadService) ListActivity(ctx context.Context, ownerID, leadID string) ([]domain.LeadActivity, error) {
	if _, err := s.Get(ctx, ownerID, leadID); err != nil {
		return nil, err
	}
	return s.activities.ListForOwner(ctx, ownerID, leadID, 50)
}

func (s *LeadService) publish(ctx context.Context, eventType events.EventType, lead *domain.Lead, detail string) {
	if s.dispatcher == nil {
		return
	}
	status := lead.Status
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		LeadID:    lead.ID,
		OwnerID:   lead.OwnerID,
		Timestamp: time.Now().UTC(),
		Detail:    detail,
		Status:    &status,
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("lead event handling failed",
			zap.String("type", string(eventType)),
			zap.String("lead_id", lead.ID),
			zap.Error(err))
	}
}

func applyPatch(lead *domain.Lead, input LeadUpdateInput) []string {
	var changed []string
	if input.FirstName != nil && *input.FirstName != lead.FirstName {
		lead.FirstName = *input.FirstName
		changed = append(changed, "firstName")
	}
	if input.LastName != nil && *input.LastName != lead.LastName {
		lead.LastName = *input.LastName
		changed = append(changed, "lastName")
	}
	if input.Email != nil && *input.Email != lead.Email {
		lead.Email = *input.Email
		changed = append(changed, "email")
	}
	if input.Phone != nil {
		lead.Phone = input.Phone
		changed = append(changed, "phone")
	}
	if input.Company != nil {
		lead.Company = input.Company
		changed = append(changed, "company")
	}
	if input.City != nil {
		lead.City = input.City
		changed = append(changed, "city")
	}
	if input.State != nil {
		lead.State = input.State
		changed = append(changed, "state")
	}
	if input.Source != nil && *input.Source != lead.Source {
		lead.Source = *input.Source
		changed = append(changed, "source")
	}
	if input.Status != nil && *input.Status != lead.Status {
		lead.Status = *input.Status
		changed = append(changed, "status")
	}
	if input.Score != nil && *input.Score != lead.Score {
		lead.Score = *input.Score
		changed = append(changed, "score")
	}
	if input.LeadValue != nil {
		lead.LeadValue = input.LeadValue
		changed = append(changed, "leadValue")
	}
	if input.IsQualified != nil && *input.IsQualified != lead.IsQualified {
		lead.IsQualified = *input.IsQualified
		changed = append(changed, "isQualified")
	}
	return changed
}

func invalidEnumError(field string, values []string) error {
	return apperrors.NewValidationError(
		fmt.Sprintf("Invalid %s value. Must be one of: %s", field, strings.Join(values, ", ")))
}

func sourceNames() []string {
	names := make([]string, len(domain.ValidSources))
	for i, v := range domain.ValidSources {
		names[i] = string(v)
	}
	return names
}

func statusNames() []string {
	names := make([]string, len(domain.ValidStatuses))
	for i, v := range domain.ValidStatuses {
		names[i] = string(v)
	}
	return names
}
