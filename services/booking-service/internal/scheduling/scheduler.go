package scheduling

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lxiscxstillo/cobamovil-backend/services/booking-service/internal/availability"
	"github.com/lxiscxstillo/cobamovil-backend/services/booking-service/internal/model"
	"github.com/lxiscxstillo/cobamovil-backend/services/booking-service/internal/routing"
	"github.com/lxiscxstillo/cobamovil-backend/services/booking-service/internal/travel"
)

// Booking event names carried to the notification collaborator.
const (
	EventCreated     = "BOOKING_CREATED"
	EventApproved    = "BOOKING_APPROVED"
	EventRejected    = "BOOKING_REJECTED"
	EventOnRoute     = "BOOKING_ON_ROUTE"
	EventCompleted   = "BOOKING_COMPLETED"
	EventRescheduled = "BOOKING_RESCHEDULED"
	EventCanceled    = "BOOKING_CANCELED"
)

// Notification channel hints.
const (
	ChannelWhatsApp = "WHATSAPP"
	ChannelEmail    = "EMAIL"
	ChannelInternal = "INTERNAL"
)

// Scheduler owns the booking lifecycle: creation, status transitions,
// rescheduling, cancellation and day-route planning. All appointment and
// route-plan mutations go through it.
type Scheduler struct {
	store     Store
	plans     RoutePlanStore
	pets      PetDirectory
	groomers  GroomerDirectory
	history   History
	notifier  Notifier
	coverage  CoverageChecker
	estimator travel.Estimator
	assign    AssignmentPolicy
	logger    *slog.Logger
	now       func() time.Time
}

type Deps struct {
	Store     Store
	Plans     RoutePlanStore
	Pets      PetDirectory
	Groomers  GroomerDirectory
	History   History
	Notifier  Notifier
	Coverage  CoverageChecker
	Estimator travel.Estimator
	Assign    AssignmentPolicy
	Logger    *slog.Logger
	Now       func() time.Time
}

func New(deps Deps) *Scheduler {
	if deps.Assign == nil {
		deps.Assign = FirstAvailable
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Scheduler{
		store:     deps.Store,
		plans:     deps.Plans,
		pets:      deps.Pets,
		groomers:  deps.Groomers,
		history:   deps.History,
		notifier:  deps.Notifier,
		coverage:  deps.Coverage,
		estimator: deps.Estimator,
		assign:    deps.Assign,
		logger:    deps.Logger,
		now:       deps.Now,
	}
}

type CreateRequest struct {
	CustomerID  string
	PetID       string
	Service     model.ServiceType
	Date        time.Time
	StartMinute int
	Address     string
	Location    *model.GeoPoint
	Notes       string
	GroomerID   string
}

func (s *Scheduler) Create(ctx context.Context, req CreateRequest) (model.Appointment, error) {
	if !req.Service.Valid() {
		return model.Appointment{}, fmt.Errorf("invalid service type %q", req.Service)
	}
	if s.slotInPast(req.Date, req.StartMinute) {
		return model.Appointment{}, errors.New("scheduled date and time must not be in the past")
	}

	pet, err := s.pets.Get(ctx, req.PetID)
	if err != nil {
		return model.Appointment{}, err
	}
	if pet.OwnerID != req.CustomerID {
		return model.Appointment{}, fmt.Errorf("pet %s: %w", req.PetID, ErrForbidden)
	}

	if !s.coverage.Contains(req.Location) {
		return model.Appointment{}, ErrOutOfCoverage
	}

	if err := s.checkSlot(ctx, req.Date, req.StartMinute, req.Service, ""); err != nil {
		return model.Appointment{}, err
	}

	groomerID := req.GroomerID
	if groomerID == "" {
		candidates, err := s.groomers.List(ctx)
		if err != nil {
			return model.Appointment{}, err
		}
		appt := model.Appointment{CustomerID: req.CustomerID, PetID: req.PetID, Service: req.Service, Date: req.Date, StartMinute: req.StartMinute}
		groomerID = s.assign(candidates, &appt)
	}

	now := s.now().UTC()
	appt := model.Appointment{
		ID:          uuid.NewString(),
		CustomerID:  req.CustomerID,
		PetID:       req.PetID,
		Service:     req.Service,
		Date:        req.Date,
		StartMinute: req.StartMinute,
		Address:     req.Address,
		Location:    req.Location,
		Notes:       req.Notes,
		Status:      model.StatusPending,
		GroomerID:   groomerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Create(ctx, &appt); err != nil {
		return model.Appointment{}, err
	}

	s.notifier.Notify(ctx, appt.CustomerID, EventCreated, ChannelEmail)
	if appt.GroomerID != "" {
		s.notifier.Notify(ctx, appt.GroomerID, EventCreated, ChannelInternal)
	}
	return appt, nil
}

func (s *Scheduler) UpdateStatus(ctx context.Context, id string, next model.Status) (model.Appointment, error) {
	appt, err := s.store.Get(ctx, id)
	if err != nil {
		return model.Appointment{}, err
	}
	if !appt.Status.CanTransition(next) {
		return model.Appointment{}, &IllegalOperation{
			Reason: fmt.Sprintf("cannot move booking from %s to %s", appt.Status, next),
		}
	}

	if next == model.StatusApproved {
		err = s.store.Approve(ctx, id)
	} else {
		err = s.store.UpdateStatus(ctx, id, next)
	}
	if err != nil {
		return model.Appointment{}, err
	}
	appt.Status = next

	switch next {
	case model.StatusApproved:
		s.notifier.Notify(ctx, appt.CustomerID, EventApproved, ChannelEmail)
	case model.StatusRejected:
		s.notifier.Notify(ctx, appt.CustomerID, EventRejected, ChannelEmail)
	case model.StatusOnRoute:
		s.notifier.Notify(ctx, appt.CustomerID, EventOnRoute, ChannelWhatsApp)
	case model.StatusCompleted:
		s.recordCompletion(ctx, appt)
		s.notifier.Notify(ctx, appt.CustomerID, EventCompleted, ChannelWhatsApp)
	}
	return appt, nil
}

type RescheduleRequest struct {
	ActorID     string
	Date        time.Time
	StartMinute int
	Service     model.ServiceType // "" keeps the current service
}

func (s *Scheduler) Reschedule(ctx context.Context, id string, req RescheduleRequest) (model.Appointment, error) {
	appt, err := s.store.Get(ctx, id)
	if err != nil {
		return model.Appointment{}, err
	}
	if appt.CustomerID != req.ActorID {
		return model.Appointment{}, fmt.Errorf("booking %s: %w", id, ErrForbidden)
	}
	if appt.Status.Terminal() {
		return model.Appointment{}, &IllegalOperation{
			Reason: fmt.Sprintf("booking in status %s cannot be rescheduled", appt.Status),
		}
	}

	service := appt.Service
	if req.Service != "" {
		if !req.Service.Valid() {
			return model.Appointment{}, fmt.Errorf("invalid service type %q", req.Service)
		}
		service = req.Service
	}
	if s.slotInPast(req.Date, req.StartMinute) {
		return model.Appointment{}, errors.New("scheduled date and time must not be in the past")
	}
	if err := s.checkSlot(ctx, req.Date, req.StartMinute, service, appt.ID); err != nil {
		return model.Appointment{}, err
	}

	appt.Date = req.Date
	appt.StartMinute = req.StartMinute
	appt.Service = service
	appt.Status = model.StatusPending
	appt.UpdatedAt = s.now().UTC()
	if err := s.store.Reschedule(ctx, &appt); err != nil {
		return model.Appointment{}, err
	}

	s.notifier.Notify(ctx, appt.CustomerID, EventRescheduled, ChannelEmail)
	if appt.GroomerID != "" {
		s.notifier.Notify(ctx, appt.GroomerID, EventRescheduled, ChannelInternal)
	}
	return appt, nil
}

// Cancel lets the customer withdraw a booking that has not been accepted yet.
// Cancellation is a transition to REJECTED; the record is kept for history.
func (s *Scheduler) Cancel(ctx context.Context, actorID, id string) (model.Appointment, error) {
	appt, err := s.store.Get(ctx, id)
	if err != nil {
		return model.Appointment{}, err
	}
	if appt.CustomerID != actorID {
		return model.Appointment{}, fmt.Errorf("booking %s: %w", id, ErrForbidden)
	}
	if appt.Status != model.StatusPending {
		return model.Appointment{}, &IllegalOperation{
			Reason: "booking already accepted, cannot be modified",
		}
	}

	if err := s.store.UpdateStatus(ctx, id, model.StatusRejected); err != nil {
		return model.Appointment{}, err
	}
	appt.Status = model.StatusRejected
	s.notifier.Notify(ctx, appt.CustomerID, EventCanceled, ChannelEmail)
	return appt, nil
}

type AvailabilityResult struct {
	Available  bool
	Message    string
	GroomerIDs []string
}

// CheckAvailability is the non-fatal variant of the slot validator: a
// conflict is reported as unavailable instead of an error.
func (s *Scheduler) CheckAvailability(ctx context.Context, date time.Time, startMinute int, service model.ServiceType) (AvailabilityResult, error) {
	if !service.Valid() {
		return AvailabilityResult{}, fmt.Errorf("invalid service type %q", service)
	}
	approved, err := s.store.ListApprovedForDate(ctx, date, "")
	if err != nil {
		return AvailabilityResult{}, err
	}
	if err := availability.Check(startMinute, service, approved, ""); err != nil {
		return AvailabilityResult{Available: false, Message: err.Error()}, nil
	}

	candidates, err := s.groomers.List(ctx)
	if err != nil {
		return AvailabilityResult{}, err
	}
	ids := make([]string, 0, len(candidates))
	for _, g := range candidates {
		ids = append(ids, g.ID)
	}
	return AvailabilityResult{Available: true, Message: "slot available", GroomerIDs: ids}, nil
}

type DayPlan struct {
	Date       time.Time
	OrderedIDs []string
	ETAMinutes []int
}

// PlanDay sequences the approved appointments of a date into a visiting
// order with cumulative ETAs. A saved DayRoutePlan for the date takes
// precedence, filtered at read time to ids that are still approved; without
// one the greedy nearest-neighbor order is computed. Travel-time lookups
// that fail fall back to the haversine estimate and never fail the plan.
func (s *Scheduler) PlanDay(ctx context.Context, date time.Time, groomerID string) (DayPlan, error) {
	appts, err := s.store.ListApprovedForDate(ctx, date, groomerID)
	if err != nil {
		return DayPlan{}, err
	}
	plan := DayPlan{Date: date, OrderedIDs: []string{}, ETAMinutes: []int{}}
	if len(appts) == 0 {
		return plan, nil
	}

	byID := make(map[string]model.Appointment, len(appts))
	for _, a := range appts {
		byID[a.ID] = a
	}

	var ordered []routing.Stop
	if override, err := s.plans.Get(ctx, date); err == nil {
		for _, id := range override.OrderedID {
			if a, ok := byID[id]; ok {
				ordered = append(ordered, stopFor(a))
			}
		}
	} else if !errors.Is(err, ErrNotFound) {
		return DayPlan{}, err
	}
	if ordered == nil {
		stops := make([]routing.Stop, 0, len(appts))
		for _, a := range appts {
			stops = append(stops, stopFor(a))
		}
		ordered = routing.Order(stops)
	}

	cumulative := 0
	for i, stop := range ordered {
		if i > 0 {
			cumulative += s.legMinutes(ctx, ordered[i-1].Location, stop.Location)
		}
		plan.OrderedIDs = append(plan.OrderedIDs, stop.AppointmentID)
		plan.ETAMinutes = append(plan.ETAMinutes, cumulative)
	}
	return plan, nil
}

// legMinutes prefers the live estimator and substitutes the straight-line
// fallback on any failure, so a plan is always produced.
func (s *Scheduler) legMinutes(ctx context.Context, from, to model.GeoPoint) int {
	if s.estimator != nil {
		if minutes, err := s.estimator.Estimate(ctx, from, to); err == nil {
			return minutes
		}
	}
	return travel.FallbackMinutes(from, to)
}

// SaveRoutePlan stores the visiting order verbatim; staleness against the
// live appointment set is resolved when the plan is read back.
func (s *Scheduler) SaveRoutePlan(ctx context.Context, date time.Time, orderedIDs []string) error {
	return s.plans.Save(ctx, model.DayRoutePlan{
		Date:      date,
		OrderedID: orderedIDs,
		UpdatedAt: s.now().UTC(),
	})
}

// StartRoute computes the day plan and persists it as the route plan of
// record for the date, so later reads replay the same order.
func (s *Scheduler) StartRoute(ctx context.Context, date time.Time, groomerID string) (DayPlan, error) {
	plan, err := s.PlanDay(ctx, date, groomerID)
	if err != nil {
		return DayPlan{}, err
	}
	if len(plan.OrderedIDs) > 0 {
		if err := s.SaveRoutePlan(ctx, date, plan.OrderedIDs); err != nil {
			return DayPlan{}, err
		}
	}
	return plan, nil
}

func (s *Scheduler) ListForCustomer(ctx context.Context, customerID string) ([]model.Appointment, error) {
	return s.store.ListForCustomer(ctx, customerID)
}

func (s *Scheduler) ListForDate(ctx context.Context, date time.Time, groomerID string) ([]model.Appointment, error) {
	return s.store.ListForDate(ctx, date, groomerID)
}

func (s *Scheduler) LatestForPet(ctx context.Context, petID string) (model.Appointment, error) {
	return s.store.LatestForPet(ctx, petID)
}

// HistoryForPet lists the pet's completed grooming sessions, newest first.
func (s *Scheduler) HistoryForPet(ctx context.Context, petID string) ([]model.CutRecord, error) {
	pet, err := s.pets.Get(ctx, petID)
	if err != nil {
		return nil, err
	}
	return s.history.ListForPet(ctx, pet.Name)
}

func (s *Scheduler) checkSlot(ctx context.Context, date time.Time, startMinute int, service model.ServiceType, excludeID string) error {
	approved, err := s.store.ListApprovedForDate(ctx, date, "")
	if err != nil {
		return err
	}
	if err := availability.Check(startMinute, service, approved, excludeID); err != nil {
		return fmt.Errorf("%w: %s", ErrSchedulingConflict, err.Error())
	}
	return nil
}

func (s *Scheduler) slotInPast(date time.Time, startMinute int) bool {
	start := date.Add(time.Duration(startMinute) * time.Minute)
	return start.Before(s.now().UTC())
}

func (s *Scheduler) recordCompletion(ctx context.Context, appt model.Appointment) {
	pet, err := s.pets.Get(ctx, appt.PetID)
	if err != nil {
		s.logger.Warn("grooming history: pet lookup failed", "pet_id", appt.PetID, "err", err)
	}
	rec := model.CutRecord{
		ID:            uuid.NewString(),
		AppointmentID: appt.ID,
		GroomerID:     appt.GroomerID,
		PetName:       pet.Name,
		Service:       appt.Service,
		Date:          appt.Date,
		StartMinute:   appt.StartMinute,
		Notes:         appt.Notes,
		CreatedAt:     s.now().UTC(),
	}
	if err := s.history.Record(ctx, rec); err != nil {
		s.logger.Warn("grooming history append failed", "appointment_id", appt.ID, "err", err)
	}
}

func stopFor(a model.Appointment) routing.Stop {
	stop := routing.Stop{AppointmentID: a.ID}
	if a.Location != nil {
		stop.Location = *a.Location
	}
	return stop
}
