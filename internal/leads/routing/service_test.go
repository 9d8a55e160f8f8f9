package routing

import (
	"context"
	"errors"
	"testing"
	"time"

	"directory_backend/internal/businesses"
	"directory_backend/internal/events"
	"directory_backend/internal/identity"
	"directory_backend/internal/leads/domain"
	"directory_backend/internal/leads/repository"
	"directory_backend/internal/leads/transport"
	"directory_backend/platform/apperr"
	"directory_backend/platform/logger"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

type fakeLeadStore struct {
	leads map[uuid.UUID]repository.Lead

	createdVolume int
	openCounts    map[uuid.UUID]int

	// conflictsLeft makes the next N conditional updates fail with ErrConflict.
	conflictsLeft int
	updateErr     error

	updateRoutingCalls int
	updateStatusCalls  int
	persistLog         []string
}

func newFakeLeadStore() *fakeLeadStore {
	return &fakeLeadStore{
		leads:      make(map[uuid.UUID]repository.Lead),
		openCounts: make(map[uuid.UUID]int),
	}
}

func (f *fakeLeadStore) Create(ctx context.Context, params repository.CreateLeadParams) (repository.Lead, error) {
	now := time.Now()
	lead := repository.Lead{
		ID:         uuid.New(),
		BusinessID: params.BusinessID,
		Name:       params.Name,
		Email:      params.Email,
		Phone:      params.Phone,
		Message:    params.Message,
		Source:     params.Source,
		Status:     domain.StatusNew,
		Priority:   params.Priority,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	f.leads[lead.ID] = lead
	f.persistLog = append(f.persistLog, "create")
	return lead, nil
}

func (f *fakeLeadStore) GetByID(ctx context.Context, id uuid.UUID) (repository.Lead, error) {
	lead, ok := f.leads[id]
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	return lead, nil
}

func (f *fakeLeadStore) UpdateRouting(ctx context.Context, id uuid.UUID, params repository.UpdateRoutingParams) (repository.Lead, error) {
	f.updateRoutingCalls++
	if f.updateErr != nil {
		return repository.Lead{}, f.updateErr
	}
	lead, ok := f.leads[id]
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	if f.conflictsLeft > 0 {
		f.conflictsLeft--
		// Simulate the concurrent writer the conditional update lost to.
		lead.UpdatedAt = lead.UpdatedAt.Add(time.Millisecond)
		f.leads[id] = lead
		return repository.Lead{}, repository.ErrConflict
	}
	if !lead.UpdatedAt.Equal(params.ExpectedUpdatedAt) {
		return repository.Lead{}, repository.ErrConflict
	}
	lead.AssignedTo = params.AssignedTo
	lead.Priority = params.Priority
	if params.AssignedTo != nil && lead.AssignedAt == nil {
		now := time.Now()
		lead.AssignedAt = &now
	}
	if params.AssignedTo == nil {
		lead.AssignedAt = nil
	}
	lead.UpdatedAt = time.Now()
	f.leads[id] = lead
	f.persistLog = append(f.persistLog, "routing")
	return lead, nil
}

func (f *fakeLeadStore) UpdateStatus(ctx context.Context, id uuid.UUID, params repository.UpdateStatusParams) (repository.Lead, error) {
	f.updateStatusCalls++
	lead, ok := f.leads[id]
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	if f.conflictsLeft > 0 {
		f.conflictsLeft--
		lead.UpdatedAt = lead.UpdatedAt.Add(time.Millisecond)
		f.leads[id] = lead
		return repository.Lead{}, repository.ErrConflict
	}
	if !lead.UpdatedAt.Equal(params.ExpectedUpdatedAt) {
		return repository.Lead{}, repository.ErrConflict
	}
	lead.Status = params.Status
	if params.StampFirstResponse && lead.FirstResponseAt == nil {
		now := time.Now()
		lead.FirstResponseAt = &now
	}
	lead.UpdatedAt = time.Now()
	f.leads[id] = lead
	f.persistLog = append(f.persistLog, "status")
	return lead, nil
}

func (f *fakeLeadStore) CountCreatedSince(ctx context.Context, businessID uuid.UUID, since time.Time) (int, error) {
	return f.createdVolume, nil
}

func (f *fakeLeadStore) CountOpenAssigned(ctx context.Context, userID uuid.UUID) (int, error) {
	return f.openCounts[userID], nil
}

func (f *fakeLeadStore) List(ctx context.Context, filter repository.ListFilter) ([]repository.Lead, int, error) {
	out := make([]repository.Lead, 0, len(f.leads))
	for _, lead := range f.leads {
		out = append(out, lead)
	}
	return out, len(out), nil
}

type fakeBusinessReader struct {
	business businesses.Business
	err      error
}

func (f *fakeBusinessReader) GetByID(ctx context.Context, id uuid.UUID) (businesses.Business, error) {
	if f.err != nil {
		return businesses.Business{}, f.err
	}
	return f.business, nil
}

type notifierCall struct {
	kind string
	lead transport.LeadResponse
}

type fakeNotifier struct {
	calls []notifierCall
}

func (f *fakeNotifier) LeadCreated(lead transport.LeadResponse) {
	f.calls = append(f.calls, notifierCall{kind: "created", lead: lead})
}

func (f *fakeNotifier) LeadRouted(lead transport.LeadResponse, decision transport.RoutingDecision) {
	f.calls = append(f.calls, notifierCall{kind: "routed", lead: lead})
}

func (f *fakeNotifier) LeadStatusChanged(lead transport.LeadResponse) {
	f.calls = append(f.calls, notifierCall{kind: "status", lead: lead})
}

type fakeBus struct {
	published []events.Event
}

func (f *fakeBus) Publish(ctx context.Context, event events.Event) {
	f.published = append(f.published, event)
}

func (f *fakeBus) PublishSync(ctx context.Context, event events.Event) error {
	f.published = append(f.published, event)
	return nil
}

func (f *fakeBus) Subscribe(eventName string, handler events.Handler) {}

type testRoutingConfig struct{}

func (testRoutingConfig) GetPersistTimeout() time.Duration     { return time.Second }
func (testRoutingConfig) GetConflictRetryDelay() time.Duration { return time.Millisecond }
func (testRoutingConfig) GetFollowUpAfter() time.Duration      { return 4 * time.Hour }

// ---------------------------------------------------------------------------
// Fixture
// ---------------------------------------------------------------------------

type fixture struct {
	service  *Service
	store    *fakeLeadStore
	notifier *fakeNotifier
	bus      *fakeBus
	business businesses.Business
	owner    uuid.UUID
	admin    uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	owner := uuid.New()
	admin := uuid.New()
	business := businesses.Business{
		ID:      uuid.New(),
		Name:    "Riverside Plumbing",
		OwnerID: owner,
		Status:  businesses.StatusActive,
	}

	store := newFakeLeadStore()
	notifier := &fakeNotifier{}
	bus := &fakeBus{}
	directory := &fakeDirectory{admins: []identity.User{{ID: admin}}}
	selector := NewSelector(directory, store)

	service := New(store, &fakeBusinessReader{business: business}, selector, notifier, bus,
		testRoutingConfig{}, logger.New("test"))

	return &fixture{
		service:  service,
		store:    store,
		notifier: notifier,
		bus:      bus,
		business: business,
		owner:    owner,
		admin:    admin,
	}
}

func (f *fixture) seedLead(t *testing.T, mutate func(*repository.Lead)) repository.Lead {
	t.Helper()
	now := time.Now().Add(-time.Minute)
	lead := repository.Lead{
		ID:         uuid.New(),
		BusinessID: f.business.ID,
		Name:       "Ada Lovelace",
		Email:      "ada@example.com",
		Source:     domain.SourceWebsite,
		Status:     domain.StatusNew,
		Priority:   domain.PriorityMedium,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if mutate != nil {
		mutate(&lead)
	}
	f.store.leads[lead.ID] = lead
	return lead
}

// ---------------------------------------------------------------------------
// CreateLead
// ---------------------------------------------------------------------------

func TestCreateLeadPersistsBeforePublishing(t *testing.T) {
	f := newFixture(t)
	f.store.createdVolume = 50

	req := transport.CreateLeadRequest{
		BusinessID: f.business.ID,
		Name:       "Grace Hopper",
		Email:      "grace@example.com",
	}

	lead, err := f.service.CreateLead(context.Background(), req)
	if err != nil {
		t.Fatalf("CreateLead() error = %v", err)
	}
	if lead.Status != domain.StatusNew {
		t.Errorf("status = %s, want NEW", lead.Status)
	}
	if lead.Source != domain.SourceWebsite {
		t.Errorf("source = %s, want default WEBSITE", lead.Source)
	}
	if len(f.notifier.calls) == 0 || f.notifier.calls[0].kind != "created" {
		t.Fatalf("expected a created notification first, got %+v", f.notifier.calls)
	}
	if len(f.store.persistLog) == 0 || f.store.persistLog[0] != "create" {
		t.Fatalf("persist log = %v, want create first", f.store.persistLog)
	}
	if len(f.bus.published) == 0 {
		t.Fatal("expected a bus event after creation")
	}
	if _, ok := f.bus.published[0].(events.LeadCreated); !ok {
		t.Fatalf("first bus event = %T, want LeadCreated", f.bus.published[0])
	}
}

func TestCreateLeadAutoRoutesByDefault(t *testing.T) {
	f := newFixture(t)
	f.store.createdVolume = 3 // low volume forces HIGH
	f.store.openCounts[f.owner] = 2
	f.store.openCounts[f.admin] = 1

	lead, err := f.service.CreateLead(context.Background(), transport.CreateLeadRequest{
		BusinessID: f.business.ID,
		Name:       "Grace Hopper",
		Email:      "grace@example.com",
	})
	if err != nil {
		t.Fatalf("CreateLead() error = %v", err)
	}
	if lead.Priority != domain.PriorityHigh {
		t.Errorf("priority = %s, want HIGH for low-volume business", lead.Priority)
	}
	if lead.AssignedTo == nil || *lead.AssignedTo != f.admin {
		t.Errorf("assignedTo = %v, want least-loaded admin %v", lead.AssignedTo, f.admin)
	}
}

func TestCreateLeadSkipsRoutingWhenOptedOut(t *testing.T) {
	f := newFixture(t)
	optOut := false

	lead, err := f.service.CreateLead(context.Background(), transport.CreateLeadRequest{
		BusinessID: f.business.ID,
		Name:       "Grace Hopper",
		Email:      "grace@example.com",
		AutoRoute:  &optOut,
	})
	if err != nil {
		t.Fatalf("CreateLead() error = %v", err)
	}
	if lead.AssignedTo != nil {
		t.Errorf("assignedTo = %v, want nil without auto-route", lead.AssignedTo)
	}
	if f.store.updateRoutingCalls != 0 {
		t.Errorf("routing update calls = %d, want 0", f.store.updateRoutingCalls)
	}
}

func TestCreateLeadRejectsInactiveBusiness(t *testing.T) {
	f := newFixture(t)
	inactive := f.business
	inactive.Status = businesses.StatusSuspended
	f.service.businesses = &fakeBusinessReader{business: inactive}

	_, err := f.service.CreateLead(context.Background(), transport.CreateLeadRequest{
		BusinessID: f.business.ID,
		Name:       "Grace Hopper",
		Email:      "grace@example.com",
	})
	if !apperr.Is(err, apperr.KindUnprocessable) {
		t.Fatalf("CreateLead() error = %v, want unprocessable", err)
	}
	if len(f.store.persistLog) != 0 {
		t.Errorf("persist log = %v, want nothing persisted", f.store.persistLog)
	}
}

func TestCreateLeadUnknownBusiness(t *testing.T) {
	f := newFixture(t)
	f.service.businesses = &fakeBusinessReader{err: businesses.ErrNotFound}

	_, err := f.service.CreateLead(context.Background(), transport.CreateLeadRequest{
		BusinessID: uuid.New(),
		Name:       "Grace Hopper",
		Email:      "grace@example.com",
	})
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("CreateLead() error = %v, want not found", err)
	}
}

func TestCreateLeadSurvivesRoutingFailure(t *testing.T) {
	f := newFixture(t)
	f.store.updateErr = errors.New("connection reset")

	lead, err := f.service.CreateLead(context.Background(), transport.CreateLeadRequest{
		BusinessID: f.business.ID,
		Name:       "Grace Hopper",
		Email:      "grace@example.com",
	})
	if err != nil {
		t.Fatalf("CreateLead() error = %v, creation must survive a routing failure", err)
	}
	if lead.ID == uuid.Nil {
		t.Fatal("expected the created lead back")
	}
}

// ---------------------------------------------------------------------------
// RouteLead
// ---------------------------------------------------------------------------

func TestRouteLeadScoresAndAssigns(t *testing.T) {
	f := newFixture(t)
	f.store.createdVolume = 40
	f.store.openCounts[f.owner] = 0
	f.store.openCounts[f.admin] = 4
	lead := f.seedLead(t, func(l *repository.Lead) {
		l.Source = domain.SourceReferral
	})

	resp, err := f.service.RouteLead(context.Background(), lead.ID,
		transport.RouteLeadRequest{AssignmentType: transport.AssignmentAuto}, nil)
	if err != nil {
		t.Fatalf("RouteLead() error = %v", err)
	}
	if resp.Lead.Priority != domain.PriorityHigh {
		t.Errorf("priority = %s, want HIGH for referral", resp.Lead.Priority)
	}
	if resp.Lead.AssignedTo == nil || *resp.Lead.AssignedTo != f.owner {
		t.Errorf("assignedTo = %v, want least-loaded owner %v", resp.Lead.AssignedTo, f.owner)
	}
	if resp.Routing.AssignmentType != transport.AssignmentAuto {
		t.Errorf("assignmentType = %s, want auto", resp.Routing.AssignmentType)
	}
}

func TestRouteLeadExplicitOverrides(t *testing.T) {
	f := newFixture(t)
	f.store.createdVolume = 40
	lead := f.seedLead(t, nil)

	target := uuid.New()
	urgent := domain.PriorityUrgent
	resp, err := f.service.RouteLead(context.Background(), lead.ID, transport.RouteLeadRequest{
		AssignmentType: transport.AssignmentManual,
		AssignedTo:     transport.OptionalUUID{Set: true, Value: &target},
		Priority:       &urgent,
	}, nil)
	if err != nil {
		t.Fatalf("RouteLead() error = %v", err)
	}
	if resp.Lead.AssignedTo == nil || *resp.Lead.AssignedTo != target {
		t.Errorf("assignedTo = %v, want explicit %v", resp.Lead.AssignedTo, target)
	}
	if resp.Lead.Priority != domain.PriorityUrgent {
		t.Errorf("priority = %s, want explicit URGENT", resp.Lead.Priority)
	}
}

func TestRouteLeadExplicitNullUnassigns(t *testing.T) {
	f := newFixture(t)
	f.store.createdVolume = 40
	previous := uuid.New()
	lead := f.seedLead(t, func(l *repository.Lead) {
		l.AssignedTo = &previous
	})

	resp, err := f.service.RouteLead(context.Background(), lead.ID, transport.RouteLeadRequest{
		AssignmentType: transport.AssignmentManual,
		AssignedTo:     transport.OptionalUUID{Set: true, Value: nil},
	}, nil)
	if err != nil {
		t.Fatalf("RouteLead() error = %v", err)
	}
	if resp.Lead.AssignedTo != nil {
		t.Errorf("assignedTo = %v, want unassigned", resp.Lead.AssignedTo)
	}
}

func TestRouteLeadManualWithoutAssigneeKeepsCurrent(t *testing.T) {
	f := newFixture(t)
	f.store.createdVolume = 40
	previous := uuid.New()
	lead := f.seedLead(t, func(l *repository.Lead) {
		l.AssignedTo = &previous
	})

	resp, err := f.service.RouteLead(context.Background(), lead.ID,
		transport.RouteLeadRequest{AssignmentType: transport.AssignmentManual}, nil)
	if err != nil {
		t.Fatalf("RouteLead() error = %v", err)
	}
	if resp.Lead.AssignedTo == nil || *resp.Lead.AssignedTo != previous {
		t.Errorf("assignedTo = %v, want unchanged %v", resp.Lead.AssignedTo, previous)
	}
}

func TestRouteLeadRetriesOnceOnConflict(t *testing.T) {
	f := newFixture(t)
	f.store.createdVolume = 40
	f.store.conflictsLeft = 1
	lead := f.seedLead(t, nil)

	_, err := f.service.RouteLead(context.Background(), lead.ID,
		transport.RouteLeadRequest{AssignmentType: transport.AssignmentAuto}, nil)
	if err != nil {
		t.Fatalf("RouteLead() error = %v, want success after one retry", err)
	}
	if f.store.updateRoutingCalls != 2 {
		t.Errorf("update calls = %d, want 2", f.store.updateRoutingCalls)
	}
}

func TestRouteLeadGivesUpAfterSecondConflict(t *testing.T) {
	f := newFixture(t)
	f.store.createdVolume = 40
	f.store.conflictsLeft = 2
	lead := f.seedLead(t, nil)

	_, err := f.service.RouteLead(context.Background(), lead.ID,
		transport.RouteLeadRequest{AssignmentType: transport.AssignmentAuto}, nil)
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("RouteLead() error = %v, want conflict", err)
	}
	if f.store.updateRoutingCalls != 2 {
		t.Errorf("update calls = %d, want exactly 2", f.store.updateRoutingCalls)
	}
}

func TestRouteLeadPublishesExactlyOneRoutedEvent(t *testing.T) {
	f := newFixture(t)
	f.store.createdVolume = 40
	lead := f.seedLead(t, nil)

	_, err := f.service.RouteLead(context.Background(), lead.ID,
		transport.RouteLeadRequest{AssignmentType: transport.AssignmentAuto}, nil)
	if err != nil {
		t.Fatalf("RouteLead() error = %v", err)
	}

	routed := 0
	for _, ev := range f.bus.published {
		if _, ok := ev.(events.LeadRouted); ok {
			routed++
		}
	}
	if routed != 1 {
		t.Errorf("published %d LeadRouted events, want 1", routed)
	}
	if len(f.store.persistLog) != 1 || f.store.persistLog[0] != "routing" {
		t.Errorf("persist log = %v, want a single routing persist", f.store.persistLog)
	}
}

func TestRouteLeadUnknownLead(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.RouteLead(context.Background(), uuid.New(),
		transport.RouteLeadRequest{AssignmentType: transport.AssignmentAuto}, nil)
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("RouteLead() error = %v, want not found", err)
	}
}

// ---------------------------------------------------------------------------
// UpdateStatus
// ---------------------------------------------------------------------------

func TestUpdateStatusStampsFirstResponse(t *testing.T) {
	f := newFixture(t)
	lead := f.seedLead(t, nil)

	resp, err := f.service.UpdateStatus(context.Background(), lead.ID,
		transport.UpdateLeadStatusRequest{Status: domain.StatusContacted})
	if err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}
	if resp.Status != domain.StatusContacted {
		t.Errorf("status = %s, want CONTACTED", resp.Status)
	}
	if resp.FirstResponseAt == nil {
		t.Fatal("firstResponseAt not stamped on first contact")
	}
	if len(f.notifier.calls) != 1 || f.notifier.calls[0].kind != "status" {
		t.Errorf("notifier calls = %+v, want one status notification", f.notifier.calls)
	}
}

func TestUpdateStatusRejectsIllegalTransition(t *testing.T) {
	f := newFixture(t)
	lead := f.seedLead(t, func(l *repository.Lead) {
		l.Status = domain.StatusConverted
	})

	_, err := f.service.UpdateStatus(context.Background(), lead.ID,
		transport.UpdateLeadStatusRequest{Status: domain.StatusContacted})
	if !apperr.Is(err, apperr.KindUnprocessable) {
		t.Fatalf("UpdateStatus() error = %v, want unprocessable", err)
	}
	if f.store.updateStatusCalls != 0 {
		t.Errorf("persist attempted %d times for an illegal transition", f.store.updateStatusCalls)
	}
}

func TestUpdateStatusRetriesConflictWithFreshRead(t *testing.T) {
	f := newFixture(t)
	lead := f.seedLead(t, nil)
	f.store.conflictsLeft = 1

	resp, err := f.service.UpdateStatus(context.Background(), lead.ID,
		transport.UpdateLeadStatusRequest{Status: domain.StatusContacted})
	if err != nil {
		t.Fatalf("UpdateStatus() error = %v, want success after retry", err)
	}
	if resp.Status != domain.StatusContacted {
		t.Errorf("status = %s, want CONTACTED", resp.Status)
	}
	if f.store.updateStatusCalls != 2 {
		t.Errorf("update calls = %d, want 2", f.store.updateStatusCalls)
	}
}

func TestUpdateStatusPublishesTransition(t *testing.T) {
	f := newFixture(t)
	lead := f.seedLead(t, func(l *repository.Lead) {
		l.Status = domain.StatusContacted
		now := time.Now()
		l.FirstResponseAt = &now
	})

	_, err := f.service.UpdateStatus(context.Background(), lead.ID,
		transport.UpdateLeadStatusRequest{Status: domain.StatusQualified})
	if err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}

	var found bool
	for _, ev := range f.bus.published {
		change, ok := ev.(events.LeadStatusChanged)
		if !ok {
			continue
		}
		found = true
		if change.OldStatus != string(domain.StatusContacted) || change.NewStatus != string(domain.StatusQualified) {
			t.Errorf("transition event = %s -> %s, want CONTACTED -> QUALIFIED", change.OldStatus, change.NewStatus)
		}
	}
	if !found {
		t.Fatal("no LeadStatusChanged event published")
	}
}
