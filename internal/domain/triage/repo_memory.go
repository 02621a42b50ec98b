package triage

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryRepo is the reference Repository backed by a process-local map. One
// store-wide mutex serializes all mutations, which makes every operation
// atomic with respect to List and subsumes per-id serialization: two
// concurrent status updates to the same patient are applied one after the
// other, never interleaved.
type MemoryRepo struct {
	mu       sync.RWMutex
	patients map[uuid.UUID]*Patient
}

// NewMemoryRepo returns an empty in-memory store.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{patients: make(map[uuid.UUID]*Patient)}
}

func (r *MemoryRepo) Create(_ context.Context, p *Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.patients[p.ID] = clone(p)
	return nil
}

func (r *MemoryRepo) GetByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.patients[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(p), nil
}

func (r *MemoryRepo) Update(_ context.Context, p *Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.patients[p.ID]; !ok {
		return ErrNotFound
	}
	r.patients[p.ID] = clone(p)
	return nil
}

func (r *MemoryRepo) Delete(_ context.Context, id uuid.UUID) (*Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.patients[id]
	if !ok {
		return nil, ErrNotFound
	}
	delete(r.patients, id)
	return p, nil
}

func (r *MemoryRepo) List(_ context.Context) ([]*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Patient, 0, len(r.patients))
	for _, p := range r.patients {
		out = append(out, clone(p))
	}
	return out, nil
}

// clone deep-copies a record so callers can never mutate stored state
// without going through the repository.
func clone(p *Patient) *Patient {
	cp := *p
	if p.VitalSigns != nil {
		vs := *p.VitalSigns
		if vs.HeartRate != nil {
			hr := *vs.HeartRate
			vs.HeartRate = &hr
		}
		if vs.BloodPressure != nil {
			bp := *vs.BloodPressure
			vs.BloodPressure = &bp
		}
		if vs.OxygenSaturation != nil {
			o2 := *vs.OxygenSaturation
			vs.OxygenSaturation = &o2
		}
		if vs.Temperature != nil {
			tmp := *vs.Temperature
			vs.Temperature = &tmp
		}
		cp.VitalSigns = &vs
	}
	if p.TreatmentStartTime != nil {
		t := *p.TreatmentStartTime
		cp.TreatmentStartTime = &t
	}
	if p.TreatmentEndTime != nil {
		t := *p.TreatmentEndTime
		cp.TreatmentEndTime = &t
	}
	return &cp
}
