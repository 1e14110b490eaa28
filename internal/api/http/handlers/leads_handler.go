package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/leadstack/lead-service/internal/api/dto"
	"github.com/leadstack/lead-service/internal/auth"
	"github.com/leadstack/lead-service/internal/domain"
	"github.com/leadstack/lead-service/internal/filter"
	"github.com/leadstack/lead-service/internal/service"
	apperrors "github.com/leadstack/lead-service/pkg/util"
)

// LeadsHandler manages the owner-scoped lead endpoints.
type LeadsHandler struct {
	service *service.LeadService
}

// NewLeadsHandler constructs handler.
func NewLeadsHandler(leadService *service.LeadService) *LeadsHandler {
	return &LeadsHandler{service: leadService}
}

// List handles GET /api/leads. Every query parameter other than page and
// limit is treated as a filter descriptor for the matching field.
func (h *LeadsHandler) List(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("Access token required")
	}

	params := service.ListParams{
		Page:    queryInt(c, "page", 1),
		Limit:   queryInt(c, "limit", service.DefaultPageSize),
		Filters: map[string]filter.Descriptor{},
	}
	for key, values := range c.Queries() {
		if key == "page" || key == "limit" {
			continue
		}
		params.Filters[key] = filter.ParseDescriptor(values)
	}

	page, err := h.service.List(c.Context(), principal.UserID, params)
	if err != nil {
		return err
	}

	// Lead lists change on every inline edit; intermediaries must not cache.
	c.Set(fiber.HeaderCacheControl, "no-cache, no-store, must-revalidate")
	c.Set("Pragma", "no-cache")
	c.Set("Expires", "0")

	records := make([]dto.LeadResponse, 0, len(page.Records))
	for i := range page.Records {
		records = append(records, dto.NewLeadResponse(&page.Records[i]))
	}
	return c.JSON(dto.LeadListResponse{
		Success:    true,
		Data:       records,
		Page:       page.Page,
		Limit:      page.Limit,
		Total:      page.Total,
		TotalPages: page.TotalPages,
	})
}

// Get handles GET /api/leads/:id.
func (h *LeadsHandler) Get(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("Access token required")
	}

	lead, err := h.service.Get(c.Context(), principal.UserID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "lead": dto.NewLeadResponse(lead)})
}

// Create handles POST /api/leads.
func (h *LeadsHandler) Create(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("Access token required")
	}

	var req dto.CreateLeadRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("Invalid payload")
	}

	lead, err := h.service.Create(c.Context(), principal.UserID, service.LeadCreateInput{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		Phone:       req.Phone,
		Company:     req.Company,
		City:        req.City,
		State:       req.State,
		Source:      domain.LeadSource(req.Source),
		Status:      domain.LeadStatus(req.Status),
		Score:       req.Score,
		LeadValue:   req.LeadValue,
		IsQualified: req.IsQualified,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"success": true, "lead": dto.NewLeadResponse(lead)})
}

// Update handles PUT /api/leads/:id.
func (h *LeadsHandler) Update(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("Access token required")
	}

	var req dto.UpdateLeadRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("Invalid payload")
	}

	input := service.LeadUpdateInput{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		Phone:       req.Phone,
		Company:     req.Company,
		City:        req.City,
		State:       req.State,
		Score:       req.Score,
		LeadValue:   req.LeadValue,
		IsQualified: req.IsQualified,
	}
	if req.Source != nil {
		source := domain.LeadSource(*req.Source)
		input.Source = &source
	}
	if req.Status != nil {
		status := domain.LeadStatus(*req.Status)
		input.Status = &status
	}

	lead, err := h.service.Update(c.Context(), principal.UserID, c.Params("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "lead": dto.NewLeadResponse(lead)})
}

// Delete handles DELETE /api/leads/:id.
func (h *LeadsHandler) Delete(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("Access token required")
	}

	if err := h.service.Delete(c.Context(), principal.UserID, c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "Lead deleted successfully"})
}

// Activity handles GET /api/leads/:id/activity.
func (h *LeadsHandler) Activity(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("Access token required")
	}

	activities, err := h.service.ListActivity(c.Context(), principal.UserID, c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.LeadActivityResponse, 0, len(activities))
	for i := range activities {
		items = append(items, dto.NewLeadActivityResponse(&activities[i]))
	}
	return c.JSON(fiber.Map{"success": true, "activity": items})
}

func queryInt(c *fiber.Ctx, key string, def int) int {
	val := c.Query(key)
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed < 1 {
		return def
	}
	return parsed
}
