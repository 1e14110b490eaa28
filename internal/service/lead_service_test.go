package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/leadstack/lead-service/internal/domain"
	"github.com/leadstack/lead-service/internal/events"
	"github.com/leadstack/lead-service/internal/filter"
	apperrors "github.com/leadstack/lead-service/pkg/util"
)

// fakeLeadRepo is an in-memory LeadRepository that evaluates compiled
// filter conditions the way the SQL layer would.
type fakeLeadRepo struct {
	leads map[string]*domain.Lead
}

func newFakeLeadRepo() *fakeLeadRepo {
	return &fakeLeadRepo{leads: make(map[string]*domain.Lead)}
}

func (r *fakeLeadRepo) Create(_ context.Context, lead *domain.Lead) error {
	lead.ID = uuid.NewString()
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = time.Now().UTC()
	}
	stored := *lead
	r.leads[lead.ID] = &stored
	return nil
}

func (r *fakeLeadRepo) Update(_ context.Context, lead *domain.Lead) error {
	existing, ok := r.leads[lead.ID]
	if !ok || existing.OwnerID != lead.OwnerID {
		return pgx.ErrNoRows
	}
	stored := *lead
	r.leads[lead.ID] = &stored
	return nil
}

func (r *fakeLeadRepo) GetForOwner(_ context.Context, ownerID, id string) (*domain.Lead, error) {
	lead, ok := r.leads[id]
	if !ok || lead.OwnerID != ownerID {
		return nil, pgx.ErrNoRows
	}
	copied := *lead
	return &copied, nil
}

func (r *fakeLeadRepo) DeleteForOwner(_ context.Context, ownerID, id string) error {
	lead, ok := r.leads[id]
	if !ok || lead.OwnerID != ownerID {
		return pgx.ErrNoRows
	}
	delete(r.leads, id)
	return nil
}

func (r *fakeLeadRepo) EmailExistsForOwner(_ context.Context, ownerID, email string) (bool, error) {
	for _, lead := range r.leads {
		if lead.OwnerID == ownerID && lead.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeLeadRepo) CountForOwner(_ context.Context, ownerID string, conditions []filter.Condition) (int64, error) {
	return int64(len(r.matching(ownerID, conditions))), nil
}

func (r *fakeLeadRepo) ListForOwner(_ context.Context, ownerID string, conditions []filter.Condition, limit, offset int) ([]domain.Lead, error) {
	matched := r.matching(ownerID, conditions)
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (r *fakeLeadRepo) matching(ownerID string, conditions []filter.Condition) []domain.Lead {
	var result []domain.Lead
	for _, lead := range r.leads {
		if lead.OwnerID != ownerID {
			continue
		}
		ok := true
		for _, cond := range conditions {
			if !matchCondition(lead, cond) {
				ok = false
				break
			}
		}
		if ok {
			result = append(result, *lead)
		}
	}
	return result
}

func matchCondition(lead *domain.Lead, cond filter.Condition) bool {
	value := columnValue(lead, cond.Column)
	switch cond.Kind {
	case filter.KindEquals:
		return value == cond.Args[0]
	case filter.KindContains:
		s, _ := value.(string)
		needle, _ := cond.Args[0].(string)
		return strings.Contains(strings.ToLower(s), strings.ToLower(needle))
	case filter.KindIn:
		for _, arg := range cond.Args {
			if value == arg {
				return true
			}
		}
		return false
	case filter.KindGreaterThan:
		return compare(value, cond.Args[0]) > 0
	case filter.KindLessThan:
		return compare(value, cond.Args[0]) < 0
	case filter.KindRangeClosed:
		return compare(value, cond.Args[0]) >= 0 && compare(value, cond.Args[1]) <= 0
	case filter.KindRangeHalfOpen:
		return compare(value, cond.Args[0]) >= 0 && compare(value, cond.Args[1]) < 0
	}
	return false
}

func columnValue(lead *domain.Lead, column string) any {
	switch column {
	case "email":
		return lead.Email
	case "company":
		if lead.Company == nil {
			return ""
		}
		return *lead.Company
	case "city":
		if lead.City == nil {
			return ""
		}
		return *lead.City
	case "status":
		return string(lead.Status)
	case "source":
		return string(lead.Source)
	case "score":
		return float64(lead.Score)
	case "lead_value":
		if lead.LeadValue == nil {
			return float64(0)
		}
		return *lead.LeadValue
	case "created_at":
		return lead.CreatedAt
	case "last_activity_at":
		return lead.LastActivityAt
	case "is_qualified":
		return lead.IsQualified
	}
	return nil
}

func compare(a, b any) int {
	switch av := a.(type) {
	case float64:
		bv := b.(float64)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	case time.Time:
		bv := b.(time.Time)
		switch {
		case av.Before(bv):
			return -1
		case av.After(bv):
			return 1
		}
		return 0
	}
	return 0
}

type fakeActivityRepo struct {
	entries []domain.LeadActivity
}

func (r *fakeActivityRepo) Create(_ context.Context, activity *domain.LeadActivity) error {
	r.entries = append(r.entries, *activity)
	return nil
}

func (r *fakeActivityRepo) ListForOwner(_ context.Context, ownerID, leadID string, limit int) ([]domain.LeadActivity, error) {
	var result []domain.LeadActivity
	for i := len(r.entries) - 1; i >= 0 && len(result) < limit; i-- {
		entry := r.entries[i]
		if entry.OwnerID == ownerID && entry.LeadID == leadID {
			result = append(result, entry)
		}
	}
	return result, nil
}

func newTestLeadService(repo *fakeLeadRepo) *LeadService {
	return NewLeadService(LeadDependencies{LeadRepo: repo, ActivityRepo: &fakeActivityRepo{}})
}

func strptr(s string) *string { return &s }

func TestCreateAppliesDefaults(t *testing.T) {
	svc := newTestLeadService(newFakeLeadRepo())

	lead, err := svc.Create(context.Background(), "owner-1", LeadCreateInput{
		FirstName: "A", LastName: "B", Email: "a@b.com",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if lead.Source != domain.LeadSourceOther {
		t.Errorf("source = %q, want other", lead.Source)
	}
	if lead.Status != domain.LeadStatusNew {
		t.Errorf("status = %q, want new", lead.Status)
	}
	if lead.Score != 0 || lead.IsQualified {
		t.Errorf("score/qualified defaults wrong: %d %v", lead.Score, lead.IsQualified)
	}
	if lead.LastActivityAt.IsZero() {
		t.Error("lastActivityAt not stamped")
	}
	if lead.ID == "" {
		t.Error("no identifier assigned")
	}
}

func TestCreateValidation(t *testing.T) {
	svc := newTestLeadService(newFakeLeadRepo())
	ctx := context.Background()

	if _, err := svc.Create(ctx, "owner-1", LeadCreateInput{FirstName: "A"}); err == nil {
		t.Fatal("expected error for missing required fields")
	}

	_, err := svc.Create(ctx, "owner-1", LeadCreateInput{
		FirstName: "A", LastName: "B", Email: "a@b.com", Source: "carrier_pigeon",
	})
	assertStatus(t, err, 400)

	_, err = svc.Create(ctx, "owner-1", LeadCreateInput{
		FirstName: "A", LastName: "B", Email: "a@b.com", Status: "frozen",
	})
	assertStatus(t, err, 400)
}

func TestCreateDuplicateEmailPerOwner(t *testing.T) {
	svc := newTestLeadService(newFakeLeadRepo())
	ctx := context.Background()

	if _, err := svc.Create(ctx, "owner-1", LeadCreateInput{FirstName: "A", LastName: "B", Email: "a@b.com"}); err != nil {
		t.Fatalf("first create: %v", err)
	}

	_, err := svc.Create(ctx, "owner-1", LeadCreateInput{FirstName: "C", LastName: "D", Email: "a@b.com"})
	assertStatus(t, err, 400)
	if !strings.Contains(err.Error(), "already exists") {
		t.Errorf("message = %q, want email-exists error", err.Error())
	}

	// Same email under a different owner is fine: uniqueness is per owner.
	if _, err := svc.Create(ctx, "owner-2", LeadCreateInput{FirstName: "C", LastName: "D", Email: "a@b.com"}); err != nil {
		t.Fatalf("cross-owner create: %v", err)
	}
}

func TestOwnershipIsolation(t *testing.T) {
	repo := newFakeLeadRepo()
	svc := newTestLeadService(repo)
	ctx := context.Background()

	lead, err := svc.Create(ctx, "owner-1", LeadCreateInput{FirstName: "A", LastName: "B", Email: "a@b.com"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Another user must get "not found" on every operation, never "forbidden".
	if _, err := svc.Get(ctx, "owner-2", lead.ID); err == nil {
		t.Fatal("expected not found")
	} else {
		assertStatus(t, err, 404)
	}
	if _, err := svc.Update(ctx, "owner-2", lead.ID, LeadUpdateInput{FirstName: strptr("X")}); err == nil {
		t.Fatal("expected not found")
	} else {
		assertStatus(t, err, 404)
	}
	if err := svc.Delete(ctx, "owner-2", lead.ID); err == nil {
		t.Fatal("expected not found")
	} else {
		assertStatus(t, err, 404)
	}

	// The owner still sees the untouched record.
	got, err := svc.Get(ctx, "owner-1", lead.ID)
	if err != nil {
		t.Fatalf("owner get: %v", err)
	}
	if got.FirstName != "A" {
		t.Errorf("record mutated across tenants: %q", got.FirstName)
	}
}

func TestUpdateStampsActivityAndIsIdempotent(t *testing.T) {
	svc := newTestLeadService(newFakeLeadRepo())
	ctx := context.Background()

	lead, err := svc.Create(ctx, "owner-1", LeadCreateInput{FirstName: "A", LastName: "B", Email: "a@b.com"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	before := lead.LastActivityAt

	patch := LeadUpdateInput{Company: strptr("Acme")}
	first, err := svc.Update(ctx, "owner-1", lead.ID, patch)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if first.LastActivityAt.Before(before) {
		t.Error("lastActivityAt went backwards")
	}

	second, err := svc.Update(ctx, "owner-1", lead.ID, patch)
	if err != nil {
		t.Fatalf("second update: %v", err)
	}
	if second.LastActivityAt.Before(first.LastActivityAt) {
		t.Error("lastActivityAt went backwards on repeat update")
	}
	if *second.Company != "Acme" || second.FirstName != "A" || second.Email != "a@b.com" {
		t.Errorf("repeat update changed fields: %+v", second)
	}
}

func TestStatusTransitionsAreUnconstrained(t *testing.T) {
	svc := newTestLeadService(newFakeLeadRepo())
	ctx := context.Background()

	lead, err := svc.Create(ctx, "owner-1", LeadCreateInput{FirstName: "A", LastName: "B", Email: "a@b.com"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Any enumerated status may follow any other; there is deliberately no
	// transition rule. won -> new is as legal as new -> contacted.
	sequence := []domain.LeadStatus{
		domain.LeadStatusWon,
		domain.LeadStatusNew,
		domain.LeadStatusLost,
		domain.LeadStatusQualified,
	}
	for _, status := range sequence {
		status := status
		updated, err := svc.Update(ctx, "owner-1", lead.ID, LeadUpdateInput{Status: &status})
		if err != nil {
			t.Fatalf("transition to %q rejected: %v", status, err)
		}
		if updated.Status != status {
			t.Fatalf("status = %q, want %q", updated.Status, status)
		}
	}
}

func TestListPaginationEnvelope(t *testing.T) {
	repo := newFakeLeadRepo()
	svc := newTestLeadService(repo)
	ctx := context.Background()

	base := time.Now().UTC()
	for i := 0; i < 25; i++ {
		lead := &domain.Lead{
			OwnerID:        "owner-1",
			FirstName:      "F",
			LastName:       "L",
			Email:          fmt.Sprintf("lead%d@x.com", i),
			Source:         domain.LeadSourceOther,
			Status:         domain.LeadStatusNew,
			CreatedAt:      base.Add(time.Duration(i) * time.Second),
			LastActivityAt: base,
		}
		if err := repo.Create(ctx, lead); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	page1, err := svc.List(ctx, "owner-1", ListParams{Page: 1, Limit: 20})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page1.Total != 25 || page1.TotalPages != 2 || len(page1.Records) != 20 {
		t.Fatalf("page1 = total %d pages %d records %d", page1.Total, page1.TotalPages, len(page1.Records))
	}

	page2, err := svc.List(ctx, "owner-1", ListParams{Page: 2, Limit: 20})
	if err != nil {
		t.Fatalf("list page 2: %v", err)
	}
	if len(page2.Records) != 5 {
		t.Fatalf("page2 records = %d, want 5", len(page2.Records))
	}

	// Newest first across the page boundary.
	if !page1.Records[0].CreatedAt.After(page2.Records[0].CreatedAt) {
		t.Error("ordering is not newest-first")
	}
}

func TestListClampsLimitAndPage(t *testing.T) {
	svc := newTestLeadService(newFakeLeadRepo())
	ctx := context.Background()

	page, err := svc.List(ctx, "owner-1", ListParams{Page: -3, Limit: 5000})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Page != 1 {
		t.Errorf("page = %d, want 1", page.Page)
	}
	if page.Limit != MaxPageSize {
		t.Errorf("limit = %d, want %d", page.Limit, MaxPageSize)
	}
	// Empty result still reports one page.
	if page.TotalPages != 1 || page.Total != 0 {
		t.Errorf("empty listing envelope = total %d pages %d", page.Total, page.TotalPages)
	}
}

func TestListScoreBetweenFilter(t *testing.T) {
	repo := newFakeLeadRepo()
	svc := newTestLeadService(repo)
	ctx := context.Background()

	scores := []int{5, 10, 30, 50, 51}
	for i, score := range scores {
		lead := &domain.Lead{
			OwnerID:        "owner-1",
			FirstName:      "F",
			LastName:       "L",
			Email:          fmt.Sprintf("s%d@x.com", i),
			Source:         domain.LeadSourceOther,
			Status:         domain.LeadStatusNew,
			Score:          score,
			CreatedAt:      time.Now().UTC().Add(time.Duration(i) * time.Second),
			LastActivityAt: time.Now().UTC(),
		}
		if err := repo.Create(ctx, lead); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	page, err := svc.List(ctx, "owner-1", ListParams{
		Filters: map[string]filter.Descriptor{
			"score": {Operator: "between", Value: []any{float64(10), float64(50)}},
		},
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	// Inclusive bounds: 10, 30 and 50 match.
	if page.Total != 3 || page.TotalPages != 1 {
		t.Fatalf("total = %d pages = %d, want 3/1", page.Total, page.TotalPages)
	}
	for _, lead := range page.Records {
		if lead.Score < 10 || lead.Score > 50 {
			t.Errorf("score %d outside [10,50]", lead.Score)
		}
	}
}

func TestMutationsRecordActivity(t *testing.T) {
	repo := newFakeLeadRepo()
	activities := &fakeActivityRepo{}
	dispatcher := events.NewInMemoryDispatcher()
	svc := NewLeadService(LeadDependencies{
		LeadRepo:     repo,
		ActivityRepo: activities,
		Dispatcher:   dispatcher,
	})
	recordActivities(dispatcher, activities)
	ctx := context.Background()

	lead, err := svc.Create(ctx, "owner-1", LeadCreateInput{FirstName: "A", LastName: "B", Email: "a@b.com"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Update(ctx, "owner-1", lead.ID, LeadUpdateInput{Company: strptr("Acme")}); err != nil {
		t.Fatalf("update: %v", err)
	}

	trail, err := svc.ListActivity(ctx, "owner-1", lead.ID)
	if err != nil {
		t.Fatalf("list activity: %v", err)
	}
	if len(trail) != 2 {
		t.Fatalf("trail length = %d, want 2", len(trail))
	}
	// Most recent first.
	if trail[0].Action != domain.LeadActivityUpdated || trail[1].Action != domain.LeadActivityCreated {
		t.Errorf("trail order wrong: %+v", trail)
	}
	if !strings.Contains(trail[0].Detail, "company") {
		t.Errorf("update detail = %q, want changed-field names", trail[0].Detail)
	}

	// A different owner cannot read the trail.
	if _, err := svc.ListActivity(ctx, "owner-2", lead.ID); err == nil {
		t.Fatal("expected not found for foreign owner")
	}
}

// recordActivities mirrors the worker wiring without importing it, to keep
// this package free of an import cycle with worker's test helpers.
func recordActivities(dispatcher events.Dispatcher, activities *fakeActivityRepo) {
	handler := func(action domain.LeadActivityAction) events.EventHandler {
		return func(ctx context.Context, event events.Event) error {
			return activities.Create(ctx, &domain.LeadActivity{
				ID:         uuid.NewString(),
				LeadID:     event.LeadID,
				OwnerID:    event.OwnerID,
				Action:     action,
				Detail:     event.Detail,
				OccurredAt: event.Timestamp,
			})
		}
	}
	dispatcher.Subscribe(events.EventLeadCreated, handler(domain.LeadActivityCreated))
	dispatcher.Subscribe(events.EventLeadUpdated, handler(domain.LeadActivityUpdated))
	dispatcher.Subscribe(events.EventLeadDeleted, handler(domain.LeadActivityDeleted))
}

func assertStatus(t *testing.T, err error, status int) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error")
	}
	domainErr := apperrors.ToDomainError(err)
	if domainErr.HTTPStatus != status {
		t.Fatalf("status = %d (%s), want %d", domainErr.HTTPStatus, domainErr.Message, status)
	}
}
