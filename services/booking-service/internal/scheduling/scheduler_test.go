package scheduling

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/lxiscxstillo/cobamovil-backend/services/booking-service/internal/model"
)

type fakeStore struct {
	appts map[string]*model.Appointment
	plans map[string]model.DayRoutePlan
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		appts: map[string]*model.Appointment{},
		plans: map[string]model.DayRoutePlan{},
	}
}

func (f *fakeStore) Create(_ context.Context, appt *model.Appointment) error {
	cp := *appt
	f.appts[appt.ID] = &cp
	return nil
}

func (f *fakeStore) Get(_ context.Context, id string) (model.Appointment, error) {
	a, ok := f.appts[id]
	if !ok {
		return model.Appointment{}, fmt.Errorf("booking %s: %w", id, ErrNotFound)
	}
	return *a, nil
}

func (f *fakeStore) UpdateStatus(_ context.Context, id string, status model.Status) error {
	a, ok := f.appts[id]
	if !ok {
		return fmt.Errorf("booking %s: %w", id, ErrNotFound)
	}
	a.Status = status
	return nil
}

func (f *fakeStore) Approve(ctx context.Context, id string) error {
	return f.UpdateStatus(ctx, id, model.StatusApproved)
}

func (f *fakeStore) Reschedule(_ context.Context, appt *model.Appointment) error {
	cp := *appt
	f.appts[appt.ID] = &cp
	return nil
}

func (f *fakeStore) ListApprovedForDate(_ context.Context, date time.Time, groomerID string) ([]model.Appointment, error) {
	var out []model.Appointment
	for _, a := range f.appts {
		if a.Status == model.StatusApproved && a.Date.Equal(date) &&
			(groomerID == "" || a.GroomerID == groomerID) {
			out = append(out, *a)
		}
	}
	sortAppointments(out)
	return out, nil
}

// sortAppointments mirrors the repository's ORDER BY start_minute, id.
func sortAppointments(appts []model.Appointment) {
	sort.Slice(appts, func(i, j int) bool {
		if appts[i].StartMinute != appts[j].StartMinute {
			return appts[i].StartMinute < appts[j].StartMinute
		}
		return appts[i].ID < appts[j].ID
	})
}

func (f *fakeStore) ListForCustomer(_ context.Context, customerID string) ([]model.Appointment, error) {
	var out []model.Appointment
	for _, a := range f.appts {
		if a.CustomerID == customerID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeStore) ListForDate(_ context.Context, date time.Time, groomerID string) ([]model.Appointment, error) {
	var out []model.Appointment
	for _, a := range f.appts {
		if a.Date.Equal(date) && (groomerID == "" || a.GroomerID == groomerID) {
			out = append(out, *a)
		}
	}
	sortAppointments(out)
	return out, nil
}

func (f *fakeStore) LatestForPet(_ context.Context, petID string) (model.Appointment, error) {
	var latest *model.Appointment
	for _, a := range f.appts {
		if a.PetID != petID {
			continue
		}
		if latest == nil || a.Date.After(latest.Date) ||
			(a.Date.Equal(latest.Date) && a.StartMinute > latest.StartMinute) {
			latest = a
		}
	}
	if latest == nil {
		return model.Appointment{}, fmt.Errorf("pet %s: %w", petID, ErrNotFound)
	}
	return *latest, nil
}

func (f *fakeStore) Save(_ context.Context, plan model.DayRoutePlan) error {
	f.plans[model.FormatDate(plan.Date)] = plan
	return nil
}

func (f *fakeStore) GetPlan(_ context.Context, date time.Time) (model.DayRoutePlan, error) {
	p, ok := f.plans[model.FormatDate(date)]
	if !ok {
		return model.DayRoutePlan{}, ErrNotFound
	}
	return p, nil
}

type planStore struct{ *fakeStore }

func (p planStore) Get(ctx context.Context, date time.Time) (model.DayRoutePlan, error) {
	return p.GetPlan(ctx, date)
}

type fakePets struct{ pets map[string]model.Pet }

func (f fakePets) Get(_ context.Context, id string) (model.Pet, error) {
	p, ok := f.pets[id]
	if !ok {
		return model.Pet{}, fmt.Errorf("pet %s: %w", id, ErrNotFound)
	}
	return p, nil
}

type fakeGroomers struct{ groomers []model.Groomer }

func (f fakeGroomers) List(_ context.Context) ([]model.Groomer, error) {
	return f.groomers, nil
}

type fakeHistory struct{ records []model.CutRecord }

func (f *fakeHistory) Record(_ context.Context, rec model.CutRecord) error {
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeHistory) ListForPet(_ context.Context, petName string) ([]model.CutRecord, error) {
	var out []model.CutRecord
	for _, rec := range f.records {
		if rec.PetName == petName {
			out = append(out, rec)
		}
	}
	return out, nil
}

type sentEvent struct {
	UserID  string
	Event   string
	Channel string
}

type fakeNotifier struct{ sent []sentEvent }

func (f *fakeNotifier) Notify(_ context.Context, userID, event, channel string) {
	f.sent = append(f.sent, sentEvent{UserID: userID, Event: event, Channel: channel})
}

type allowAll struct{}

func (allowAll) Contains(*model.GeoPoint) bool { return true }

type failingEstimator struct{}

func (failingEstimator) Estimate(context.Context, model.GeoPoint, model.GeoPoint) (int, error) {
	return 0, errors.New("estimator down")
}

type fixedEstimator struct {
	minutes int
}

func (e fixedEstimator) Estimate(context.Context, model.GeoPoint, model.GeoPoint) (int, error) {
	return e.minutes, nil
}

type fixture struct {
	store    *fakeStore
	history  *fakeHistory
	notifier *fakeNotifier
	sched    *Scheduler
}

var testDay = time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newFakeStore()
	history := &fakeHistory{}
	notifier := &fakeNotifier{}
	sched := New(Deps{
		Store: store,
		Plans: planStore{store},
		Pets: fakePets{pets: map[string]model.Pet{
			"pet-1": {ID: "pet-1", OwnerID: "cust-1", Name: "Firulais"},
		}},
		Groomers:  fakeGroomers{groomers: []model.Groomer{{ID: "groomer-1"}, {ID: "groomer-2"}}},
		History:   history,
		Notifier:  notifier,
		Coverage:  allowAll{},
		Estimator: failingEstimator{},
		Now:       func() time.Time { return time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC) },
	})
	return &fixture{store: store, history: history, notifier: notifier, sched: sched}
}

func (f *fixture) seedApproved(t *testing.T, id string, startMinute int, svc model.ServiceType, loc *model.GeoPoint) {
	t.Helper()
	f.store.appts[id] = &model.Appointment{
		ID:          id,
		CustomerID:  "cust-1",
		PetID:       "pet-1",
		Service:     svc,
		Date:        testDay,
		StartMinute: startMinute,
		Location:    loc,
		Status:      model.StatusApproved,
	}
}

func TestCreate_AssignsGroomerAndNotifies(t *testing.T) {
	f := newFixture(t)

	appt, err := f.sched.Create(context.Background(), CreateRequest{
		CustomerID:  "cust-1",
		PetID:       "pet-1",
		Service:     model.ServiceBath,
		Date:        testDay,
		StartMinute: 600,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if appt.Status != model.StatusPending {
		t.Fatalf("new booking must be PENDING, got %s", appt.Status)
	}
	if appt.GroomerID != "groomer-1" {
		t.Fatalf("expected first groomer assigned, got %q", appt.GroomerID)
	}
	if len(f.notifier.sent) != 2 {
		t.Fatalf("expected customer and groomer notified, got %d events", len(f.notifier.sent))
	}
	if f.notifier.sent[0].Event != EventCreated {
		t.Fatalf("expected %s, got %s", EventCreated, f.notifier.sent[0].Event)
	}
}

func TestCreate_ConflictWithApproved(t *testing.T) {
	f := newFixture(t)
	// 10:00 FULL_GROOMING occupies 10:00-11:30.
	f.seedApproved(t, "a1", 600, model.ServiceFullGrooming, nil)

	_, err := f.sched.Create(context.Background(), CreateRequest{
		CustomerID:  "cust-1",
		PetID:       "pet-1",
		Service:     model.ServiceHaircut,
		Date:        testDay,
		StartMinute: 660, // 11:00, overlaps
	})
	if !errors.Is(err, ErrSchedulingConflict) {
		t.Fatalf("expected scheduling conflict, got %v", err)
	}

	// 11:35 NAIL_TRIM is clear of the 11:30 end.
	if _, err := f.sched.Create(context.Background(), CreateRequest{
		CustomerID:  "cust-1",
		PetID:       "pet-1",
		Service:     model.ServiceNailTrim,
		Date:        testDay,
		StartMinute: 695,
	}); err != nil {
		t.Fatalf("expected disjoint slot to succeed, got %v", err)
	}
}

func TestCreate_Guards(t *testing.T) {
	f := newFixture(t)

	if _, err := f.sched.Create(context.Background(), CreateRequest{
		CustomerID: "cust-1", PetID: "pet-1", Service: model.ServiceBath,
		Date: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), StartMinute: 600,
	}); err == nil {
		t.Fatalf("expected past slot to be rejected")
	}

	if _, err := f.sched.Create(context.Background(), CreateRequest{
		CustomerID: "cust-2", PetID: "pet-1", Service: model.ServiceBath,
		Date: testDay, StartMinute: 600,
	}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden for foreign pet, got %v", err)
	}

	if _, err := f.sched.Create(context.Background(), CreateRequest{
		CustomerID: "cust-1", PetID: "missing", Service: model.ServiceBath,
		Date: testDay, StartMinute: 600,
	}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found for unknown pet, got %v", err)
	}
}

func TestCancel_PendingOnly(t *testing.T) {
	f := newFixture(t)
	f.store.appts["p1"] = &model.Appointment{
		ID: "p1", CustomerID: "cust-1", PetID: "pet-1",
		Service: model.ServiceBath, Date: testDay, StartMinute: 600,
		Status: model.StatusPending,
	}
	f.seedApproved(t, "a1", 800, model.ServiceBath, nil)

	appt, err := f.sched.Cancel(context.Background(), "cust-1", "p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if appt.Status != model.StatusRejected {
		t.Fatalf("canceled booking must be REJECTED, got %s", appt.Status)
	}

	var illegal *IllegalOperation
	if _, err := f.sched.Cancel(context.Background(), "cust-1", "a1"); !errors.As(err, &illegal) {
		t.Fatalf("expected IllegalOperation for approved booking, got %v", err)
	}

	if _, err := f.sched.Cancel(context.Background(), "cust-2", "a1"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden for foreign booking, got %v", err)
	}
}

func TestUpdateStatus_StateMachine(t *testing.T) {
	f := newFixture(t)
	f.store.appts["p1"] = &model.Appointment{
		ID: "p1", CustomerID: "cust-1", PetID: "pet-1",
		Service: model.ServiceHaircut, Date: testDay, StartMinute: 600,
		Status: model.StatusPending, GroomerID: "groomer-1",
	}

	var illegal *IllegalOperation
	if _, err := f.sched.UpdateStatus(context.Background(), "p1", model.StatusCompleted); !errors.As(err, &illegal) {
		t.Fatalf("expected IllegalOperation for PENDING -> COMPLETED, got %v", err)
	}

	for _, next := range []model.Status{model.StatusApproved, model.StatusOnRoute, model.StatusCompleted} {
		if _, err := f.sched.UpdateStatus(context.Background(), "p1", next); err != nil {
			t.Fatalf("transition to %s: %v", next, err)
		}
	}

	if len(f.history.records) != 1 {
		t.Fatalf("expected one grooming-history record, got %d", len(f.history.records))
	}
	if f.history.records[0].PetName != "Firulais" {
		t.Fatalf("expected pet name on record, got %q", f.history.records[0].PetName)
	}

	if _, err := f.sched.UpdateStatus(context.Background(), "p1", model.StatusApproved); !errors.As(err, &illegal) {
		t.Fatalf("expected IllegalOperation on terminal state, got %v", err)
	}
}

func TestHistoryForPet(t *testing.T) {
	f := newFixture(t)
	f.store.appts["p1"] = &model.Appointment{
		ID: "p1", CustomerID: "cust-1", PetID: "pet-1",
		Service: model.ServiceHaircut, Date: testDay, StartMinute: 600,
		Status: model.StatusPending, GroomerID: "groomer-1",
	}
	for _, next := range []model.Status{model.StatusApproved, model.StatusOnRoute, model.StatusCompleted} {
		if _, err := f.sched.UpdateStatus(context.Background(), "p1", next); err != nil {
			t.Fatalf("transition to %s: %v", next, err)
		}
	}

	recs, err := f.sched.HistoryForPet(context.Background(), "pet-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recs) != 1 || recs[0].AppointmentID != "p1" || recs[0].Service != model.ServiceHaircut {
		t.Fatalf("unexpected history: %+v", recs)
	}

	if _, err := f.sched.HistoryForPet(context.Background(), "pet-unknown"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown pet, got %v", err)
	}
}

func TestReschedule(t *testing.T) {
	f := newFixture(t)
	f.seedApproved(t, "a1", 600, model.ServiceFullGrooming, nil)
	f.store.appts["a2"] = &model.Appointment{
		ID: "a2", CustomerID: "cust-1", PetID: "pet-1",
		Service: model.ServiceBath, Date: testDay, StartMinute: 800,
		Status: model.StatusApproved,
	}

	// Moving a2 onto a1's slot must conflict.
	_, err := f.sched.Reschedule(context.Background(), "a2", RescheduleRequest{
		ActorID: "cust-1", Date: testDay, StartMinute: 630,
	})
	if !errors.Is(err, ErrSchedulingConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	// Moving a2 within its own former slot must not conflict with itself.
	appt, err := f.sched.Reschedule(context.Background(), "a2", RescheduleRequest{
		ActorID: "cust-1", Date: testDay, StartMinute: 810, Service: model.ServiceNailTrim,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if appt.Status != model.StatusPending {
		t.Fatalf("reschedule must reset status to PENDING, got %s", appt.Status)
	}
	if appt.Service != model.ServiceNailTrim || appt.StartMinute != 810 {
		t.Fatalf("reschedule did not apply new slot: %+v", appt)
	}

	// Terminal bookings stay put.
	f.store.appts["done"] = &model.Appointment{
		ID: "done", CustomerID: "cust-1", Status: model.StatusCompleted,
		Service: model.ServiceBath, Date: testDay, StartMinute: 540,
	}
	var illegal *IllegalOperation
	if _, err := f.sched.Reschedule(context.Background(), "done", RescheduleRequest{
		ActorID: "cust-1", Date: testDay, StartMinute: 900,
	}); !errors.As(err, &illegal) {
		t.Fatalf("expected IllegalOperation for completed booking, got %v", err)
	}
}

func TestCheckAvailability(t *testing.T) {
	f := newFixture(t)
	f.seedApproved(t, "a1", 600, model.ServiceFullGrooming, nil)

	res, err := f.sched.CheckAvailability(context.Background(), testDay, 660, model.ServiceHaircut)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Available {
		t.Fatalf("expected unavailable for overlapping slot")
	}
	if res.Message == "" {
		t.Fatalf("expected a human-readable message")
	}

	res, err = f.sched.CheckAvailability(context.Background(), testDay, 695, model.ServiceNailTrim)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Available {
		t.Fatalf("expected available, got %q", res.Message)
	}
	if len(res.GroomerIDs) != 2 || res.GroomerIDs[0] != "groomer-1" {
		t.Fatalf("expected candidate groomers in stable order, got %v", res.GroomerIDs)
	}
}

func TestPlanDay_GreedyOrderAndETAs(t *testing.T) {
	f := newFixture(t)
	f.seedApproved(t, "A", 540, model.ServiceBath, &model.GeoPoint{Lat: 0, Lng: 0})
	f.seedApproved(t, "B", 600, model.ServiceBath, &model.GeoPoint{Lat: 0, Lng: 1})
	f.seedApproved(t, "C", 660, model.ServiceBath, &model.GeoPoint{Lat: 0, Lng: 0.5})

	plan, err := f.sched.PlanDay(context.Background(), testDay, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"A", "C", "B"}
	for i, id := range want {
		if plan.OrderedIDs[i] != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, plan.OrderedIDs[i])
		}
	}

	if plan.ETAMinutes[0] != 0 {
		t.Fatalf("first ETA must be 0, got %d", plan.ETAMinutes[0])
	}
	for i := 1; i < len(plan.ETAMinutes); i++ {
		if plan.ETAMinutes[i] < plan.ETAMinutes[i-1] {
			t.Fatalf("ETAs must be non-decreasing: %v", plan.ETAMinutes)
		}
	}

	// The estimator always fails, so legs use the 30 km/h fallback over
	// ~55.6 km (0.5 degrees longitude at the equator): 111 minutes each.
	if plan.ETAMinutes[1] != 111 || plan.ETAMinutes[2] != 222 {
		t.Fatalf("expected fallback ETAs [0 111 222], got %v", plan.ETAMinutes)
	}

	// Idempotence: re-planning without mutations yields the identical plan.
	again, err := f.sched.PlanDay(context.Background(), testDay, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(again.OrderedIDs) != len(plan.OrderedIDs) || len(again.ETAMinutes) != len(plan.ETAMinutes) {
		t.Fatalf("replanning changed the plan shape")
	}
	for i := range plan.OrderedIDs {
		if again.OrderedIDs[i] != plan.OrderedIDs[i] || again.ETAMinutes[i] != plan.ETAMinutes[i] {
			t.Fatalf("replanning changed the plan: %v vs %v", again, plan)
		}
	}
}

func TestPlanDay_LiveEstimatorETAs(t *testing.T) {
	f := newFixture(t)
	f.sched.estimator = fixedEstimator{minutes: 7}
	f.seedApproved(t, "A", 540, model.ServiceBath, &model.GeoPoint{Lat: 0, Lng: 0})
	f.seedApproved(t, "B", 600, model.ServiceBath, &model.GeoPoint{Lat: 0, Lng: 1})
	f.seedApproved(t, "C", 660, model.ServiceBath, &model.GeoPoint{Lat: 0, Lng: 0.5})

	plan, err := f.sched.PlanDay(context.Background(), testDay, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []int{0, 7, 14}
	for i, eta := range want {
		if plan.ETAMinutes[i] != eta {
			t.Fatalf("expected estimator ETAs %v, got %v", want, plan.ETAMinutes)
		}
	}
}

func TestPlanDay_EmptyDate(t *testing.T) {
	f := newFixture(t)
	plan, err := f.sched.PlanDay(context.Background(), testDay, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan.OrderedIDs) != 0 || len(plan.ETAMinutes) != 0 {
		t.Fatalf("expected empty plan, got %+v", plan)
	}
}

func TestSaveRoutePlan_RoundTripFilteredToApproved(t *testing.T) {
	f := newFixture(t)
	f.seedApproved(t, "A", 540, model.ServiceBath, &model.GeoPoint{Lat: 0, Lng: 0})
	f.seedApproved(t, "B", 600, model.ServiceBath, &model.GeoPoint{Lat: 0, Lng: 1})
	f.store.appts["P"] = &model.Appointment{
		ID: "P", CustomerID: "cust-1", Service: model.ServiceBath,
		Date: testDay, StartMinute: 700, Status: model.StatusPending,
	}

	// Save an order naming a pending booking and a stale id; reading the
	// plan back drops both, preserving the relative order of the rest.
	if err := f.sched.SaveRoutePlan(context.Background(), testDay, []string{"B", "P", "stale", "A"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	plan, err := f.sched.PlanDay(context.Background(), testDay, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"B", "A"}
	if len(plan.OrderedIDs) != len(want) {
		t.Fatalf("expected %v, got %v", want, plan.OrderedIDs)
	}
	for i, id := range want {
		if plan.OrderedIDs[i] != id {
			t.Fatalf("expected %v, got %v", want, plan.OrderedIDs)
		}
	}
}

func TestStartRoute_PersistsPlan(t *testing.T) {
	f := newFixture(t)
	f.seedApproved(t, "A", 540, model.ServiceBath, &model.GeoPoint{Lat: 0, Lng: 0})
	f.seedApproved(t, "B", 600, model.ServiceBath, &model.GeoPoint{Lat: 0, Lng: 1})

	plan, err := f.sched.StartRoute(context.Background(), testDay, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	saved, ok := f.store.plans[model.FormatDate(testDay)]
	if !ok {
		t.Fatalf("expected route plan persisted")
	}
	if len(saved.OrderedID) != len(plan.OrderedIDs) {
		t.Fatalf("persisted plan does not match computed plan")
	}
}
