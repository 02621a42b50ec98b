package triage

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

func newTestService() *Service {
	return NewService(NewMemoryRepo(), newTestScorer())
}

func mustRegister(t *testing.T, svc *Service, in Intake) *Patient {
	t.Helper()
	p, err := svc.Register(context.Background(), in)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return p
}

func basicIntake(severity Severity) Intake {
	return Intake{Name: "Jo Doe", Age: intPtr(30), Condition: "headache", Severity: severity}
}

func TestService_Register(t *testing.T) {
	svc := newTestService()
	p := mustRegister(t, svc, basicIntake(SeverityHigh))

	if p.ID == uuid.Nil {
		t.Error("expected id to be assigned")
	}
	if p.Status != StatusWaiting {
		t.Errorf("expected waiting status, got %s", p.Status)
	}
	if p.ArrivalTime.IsZero() {
		t.Error("expected arrival time to be set")
	}
	want := svc.Score(SeverityHigh, "headache", 30, nil)
	if p.Priority != want {
		t.Errorf("priority %d, want %d", p.Priority, want)
	}
}

func TestService_Register_Validation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	cases := []struct {
		name string
		in   Intake
	}{
		{"missing name", Intake{Age: intPtr(30), Condition: "headache", Severity: SeverityLow}},
		{"missing age", Intake{Name: "Jo", Condition: "headache", Severity: SeverityLow}},
		{"negative age", Intake{Name: "Jo", Age: intPtr(-1), Condition: "x", Severity: SeverityLow}},
		{"missing condition", Intake{Name: "Jo", Age: intPtr(30), Severity: SeverityLow}},
		{"missing severity", Intake{Name: "Jo", Age: intPtr(30), Condition: "headache"}},
		{"unknown severity", Intake{Name: "Jo", Age: intPtr(30), Condition: "headache", Severity: "catastrophic"}},
	}
	for _, tc := range cases {
		if _, err := svc.Register(ctx, tc.in); !errors.Is(err, ErrValidation) {
			t.Errorf("%s: expected validation error, got %v", tc.name, err)
		}
	}
}

func TestService_ListOrdering(t *testing.T) {
	svc := newTestService()
	low := mustRegister(t, svc, basicIntake(SeverityLow))
	critical := mustRegister(t, svc, basicIntake(SeverityCritical))

	list, err := svc.List(context.Background(), "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 patients, got %d", len(list))
	}
	if list[0].ID != critical.ID || list[1].ID != low.ID {
		t.Error("expected critical patient ahead of low despite later arrival")
	}
}

func TestService_ListTieBreakByArrival(t *testing.T) {
	svc := newTestService()
	first := mustRegister(t, svc, basicIntake(SeverityMedium))
	second := mustRegister(t, svc, basicIntake(SeverityMedium))
	third := mustRegister(t, svc, basicIntake(SeverityMedium))

	list, err := svc.List(context.Background(), "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []uuid.UUID{first.ID, second.ID, third.ID}
	for i, id := range want {
		if list[i].ID != id {
			t.Fatalf("position %d: earlier arrival should come first", i)
		}
	}
}

func TestService_ListOrderInvariant(t *testing.T) {
	svc := newTestService()
	mustRegister(t, svc, basicIntake(SeverityLow))
	mustRegister(t, svc, basicIntake(SeverityCritical))
	mustRegister(t, svc, basicIntake(SeverityMedium))
	mustRegister(t, svc, basicIntake(SeverityMedium))

	list, _ := svc.List(context.Background(), "")
	for i := 1; i < len(list); i++ {
		a, b := list[i-1], list[i]
		if a.Priority < b.Priority {
			t.Fatalf("priority order violated at %d", i)
		}
		if a.Priority == b.Priority && a.ArrivalTime.After(b.ArrivalTime) {
			t.Fatalf("arrival tie-break violated at %d", i)
		}
	}
}

func TestService_ListStatusFilter(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	waiting := mustRegister(t, svc, basicIntake(SeverityLow))
	treated := mustRegister(t, svc, basicIntake(SeverityHigh))
	if _, err := svc.SetStatus(ctx, treated.ID, StatusInTreatment); err != nil {
		t.Fatalf("set status: %v", err)
	}

	list, err := svc.List(ctx, StatusWaiting)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].ID != waiting.ID {
		t.Error("expected only the waiting patient")
	}
}

func TestService_UpdateRecomputesPriority(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	p := mustRegister(t, svc, basicIntake(SeverityLow))
	mustRegister(t, svc, basicIntake(SeverityMedium))

	sev := SeverityCritical
	updated, err := svc.Update(ctx, p.ID, UpdateRequest{Severity: &sev})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Priority <= p.Priority {
		t.Errorf("expected priority to increase, got %d -> %d", p.Priority, updated.Priority)
	}
	if updated.ID != p.ID {
		t.Error("update must preserve id")
	}
	if !updated.ArrivalTime.Equal(p.ArrivalTime) {
		t.Error("update must preserve arrival time")
	}

	list, _ := svc.List(ctx, "")
	if list[0].ID != p.ID {
		t.Error("expected updated patient to move to the front")
	}
}

func TestService_UpdateIdempotentRescore(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	p := mustRegister(t, svc, basicIntake(SeverityHigh))

	sev := p.Severity
	cond := p.Condition
	age := p.Age
	updated, err := svc.Update(ctx, p.ID, UpdateRequest{Severity: &sev, Condition: &cond, Age: &age})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Priority != p.Priority {
		t.Errorf("re-scoring identical fields changed priority %d -> %d", p.Priority, updated.Priority)
	}
}

func TestService_UpdateNonScoringField(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	p := mustRegister(t, svc, basicIntake(SeverityHigh))

	name := "Renamed"
	updated, err := svc.Update(ctx, p.ID, UpdateRequest{Name: &name})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "Renamed" {
		t.Errorf("name not merged, got %q", updated.Name)
	}
	if updated.Priority != p.Priority {
		t.Error("name-only update must not change priority")
	}
}

func TestService_UpdateUnknownSeverity(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	p := mustRegister(t, svc, basicIntake(SeverityHigh))

	bad := Severity("catastrophic")
	if _, err := svc.Update(ctx, p.ID, UpdateRequest{Severity: &bad}); !errors.Is(err, ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}

	// The stored record is untouched.
	got, err := svc.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Severity != SeverityHigh {
		t.Errorf("severity changed to %s after rejected update", got.Severity)
	}
}

func TestService_UpdateNotFound(t *testing.T) {
	svc := newTestService()
	if _, err := svc.Update(context.Background(), uuid.New(), UpdateRequest{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestService_SetStatusStampsOnce(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	p := mustRegister(t, svc, basicIntake(SeverityHigh))

	started, err := svc.SetStatus(ctx, p.ID, StatusInTreatment)
	if err != nil {
		t.Fatalf("set status: %v", err)
	}
	if started.TreatmentStartTime == nil {
		t.Fatal("expected treatment start time to be stamped")
	}
	firstStamp := *started.TreatmentStartTime

	// Same-status transition is a no-op and must not re-stamp.
	again, err := svc.SetStatus(ctx, p.ID, StatusInTreatment)
	if err != nil {
		t.Fatalf("set status again: %v", err)
	}
	if !again.TreatmentStartTime.Equal(firstStamp) {
		t.Error("treatment start time must be set exactly once")
	}

	done, err := svc.SetStatus(ctx, p.ID, StatusCompleted)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.TreatmentEndTime == nil {
		t.Error("expected treatment end time to be stamped")
	}
}

func TestService_SetStatusSkipTreatment(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	p := mustRegister(t, svc, basicIntake(SeverityLow))

	done, err := svc.SetStatus(ctx, p.ID, StatusCompleted)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.TreatmentEndTime == nil {
		t.Error("expected treatment end time to be stamped")
	}
	if done.TreatmentStartTime != nil {
		t.Error("start time must remain unset when treatment was skipped")
	}
}

func TestService_SetStatusBackwardRejected(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	p := mustRegister(t, svc, basicIntake(SeverityLow))

	if _, err := svc.SetStatus(ctx, p.ID, StatusCompleted); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := svc.SetStatus(ctx, p.ID, StatusWaiting); !errors.Is(err, ErrTransition) {
		t.Errorf("expected ErrTransition going backward, got %v", err)
	}
	if _, err := svc.SetStatus(ctx, p.ID, StatusInTreatment); !errors.Is(err, ErrTransition) {
		t.Errorf("expected ErrTransition from completed, got %v", err)
	}
}

func TestService_SetStatusUnknown(t *testing.T) {
	svc := newTestService()
	p := mustRegister(t, svc, basicIntake(SeverityLow))
	if _, err := svc.SetStatus(context.Background(), p.ID, Status("triaged")); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for unknown status, got %v", err)
	}
}

func TestService_RemoveThenList(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	p := mustRegister(t, svc, basicIntake(SeverityLow))

	removed, err := svc.Remove(ctx, p.ID)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if removed.ID != p.ID {
		t.Error("remove must return the deleted record")
	}

	list, _ := svc.List(ctx, "")
	for _, got := range list {
		if got.ID == p.ID {
			t.Error("removed patient still listed")
		}
	}

	if _, err := svc.Remove(ctx, p.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on double remove, got %v", err)
	}
}

type captureNotifier struct {
	events []string
}

func (n *captureNotifier) PatientEvent(event string, _ *Patient) {
	n.events = append(n.events, event)
}

func TestService_NotifierEvents(t *testing.T) {
	svc := newTestService()
	sink := &captureNotifier{}
	svc.SetNotifier(sink)
	ctx := context.Background()

	p := mustRegister(t, svc, basicIntake(SeverityLow))
	name := "New Name"
	if _, err := svc.Update(ctx, p.ID, UpdateRequest{Name: &name}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := svc.SetStatus(ctx, p.ID, StatusInTreatment); err != nil {
		t.Fatalf("set status: %v", err)
	}
	if _, err := svc.Remove(ctx, p.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}

	want := []string{EventCreated, EventUpdated, EventStatus, EventRemoved}
	if len(sink.events) != len(want) {
		t.Fatalf("got %d events, want %d", len(sink.events), len(want))
	}
	for i := range want {
		if sink.events[i] != want[i] {
			t.Errorf("event %d: got %s, want %s", i, sink.events[i], want[i])
		}
	}
}
