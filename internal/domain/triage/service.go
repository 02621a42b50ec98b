package triage

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Notifier receives queue change events. Implementations must not block;
// the service calls it outside any storage critical section.
type Notifier interface {
	PatientEvent(event string, p *Patient)
}

// Queue event names published to the Notifier.
const (
	EventCreated = "patient.created"
	EventUpdated = "patient.updated"
	EventStatus  = "patient.status"
	EventRemoved = "patient.removed"
)

// allowedTransitions is the forward-only status policy: a transition absent
// from this table is rejected with ErrTransition. Waiting may jump straight
// to completed; in that case the treatment start time is deliberately left
// unset.
var allowedTransitions = map[Status]map[Status]bool{
	StatusWaiting:     {StatusInTreatment: true, StatusCompleted: true},
	StatusInTreatment: {StatusCompleted: true},
	StatusCompleted:   {},
}

// Service mediates all queue operations: validation, scoring, status
// stamping and the display ordering.
type Service struct {
	repo     Repository
	scorer   *Scorer
	notifier Notifier
}

// NewService wires a Service over the given repository and scorer.
func NewService(repo Repository, scorer *Scorer) *Service {
	return &Service{repo: repo, scorer: scorer}
}

// SetNotifier attaches an optional queue event sink.
func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

func (s *Service) notify(event string, p *Patient) {
	if s.notifier != nil {
		s.notifier.PatientEvent(event, p)
	}
}

// Register validates the intake, scores it and stores a new waiting patient.
// The returned record carries the generated id, arrival time and computed
// priority.
func (s *Service) Register(ctx context.Context, in Intake) (*Patient, error) {
	if in.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if in.Condition == "" {
		return nil, fmt.Errorf("%w: condition is required", ErrValidation)
	}
	if in.Severity == "" {
		return nil, fmt.Errorf("%w: severity is required", ErrValidation)
	}
	if !in.Severity.Known() {
		return nil, fmt.Errorf("%w: unknown severity %q", ErrValidation, in.Severity)
	}
	if in.Age == nil {
		return nil, fmt.Errorf("%w: age is required", ErrValidation)
	}
	if *in.Age < 0 {
		return nil, fmt.Errorf("%w: age must be non-negative", ErrValidation)
	}

	p := &Patient{
		ID:          uuid.New(),
		Name:        in.Name,
		Age:         *in.Age,
		Condition:   in.Condition,
		Severity:    in.Severity,
		VitalSigns:  in.VitalSigns,
		ArrivalTime: time.Now(),
		Status:      StatusWaiting,
	}
	p.Priority = s.scorer.Score(p.Severity, p.Condition, p.Age, p.VitalSigns)

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	s.notify(EventCreated, p)
	return p, nil
}

// Get returns a single patient by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

// Update merges the provided fields into the existing record and recomputes
// the priority when any scoring-relevant field changed. The record's id and
// arrival time are preserved unconditionally.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdateRequest) (*Patient, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.Age != nil {
		if *req.Age < 0 {
			return nil, fmt.Errorf("%w: age must be non-negative", ErrValidation)
		}
		p.Age = *req.Age
	}
	if req.Condition != nil {
		p.Condition = *req.Condition
	}
	if req.Severity != nil {
		if !req.Severity.Known() {
			return nil, fmt.Errorf("%w: unknown severity %q", ErrValidation, *req.Severity)
		}
		p.Severity = *req.Severity
	}
	if req.VitalSigns != nil {
		p.VitalSigns = req.VitalSigns
	}
	if req.touchesScore() {
		p.Priority = s.scorer.Score(p.Severity, p.Condition, p.Age, p.VitalSigns)
	}

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	s.notify(EventUpdated, p)
	return p, nil
}

// Remove deletes a patient and returns the removed record so callers can
// roll back optimistic local state.
func (s *Service) Remove(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := s.repo.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	s.notify(EventRemoved, p)
	return p, nil
}

// SetStatus moves a patient through the treatment pipeline. Transitions are
// validated against the forward-only table; the treatment start and end
// times are stamped exactly once, on the first entry into their status.
func (s *Service) SetStatus(ctx context.Context, id uuid.UUID, status Status) (*Patient, error) {
	if !status.Known() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if status == p.Status {
		return p, nil
	}
	if !allowedTransitions[p.Status][status] {
		return nil, fmt.Errorf("%w: %s -> %s", ErrTransition, p.Status, status)
	}

	p.Status = status
	now := time.Now()
	switch status {
	case StatusInTreatment:
		if p.TreatmentStartTime == nil {
			p.TreatmentStartTime = &now
		}
	case StatusCompleted:
		if p.TreatmentEndTime == nil {
			p.TreatmentEndTime = &now
		}
	}

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	s.notify(EventStatus, p)
	return p, nil
}

// List returns the queue snapshot, optionally filtered by exact status,
// always sorted by priority descending with earlier arrivals first on ties.
// The order is computed on every read because priorities move on update.
func (s *Service) List(ctx context.Context, status Status) ([]*Patient, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	out := all
	if status != "" {
		out = out[:0]
		for _, p := range all {
			if p.Status == status {
				out = append(out, p)
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].ArrivalTime.Before(out[j].ArrivalTime)
	})
	return out, nil
}

// Score answers "what would this patient's priority be" without creating a
// record.
func (s *Service) Score(severity Severity, condition string, age int, vitals *VitalSigns) int {
	return s.scorer.Score(severity, condition, age, vitals)
}
