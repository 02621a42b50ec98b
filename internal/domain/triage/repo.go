package triage

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// Domain error taxonomy. Handlers map these onto HTTP status codes; nothing
// here is fatal to the process.
var (
	// ErrNotFound means the referenced patient id is absent from the queue.
	ErrNotFound = errors.New("patient not found")
	// ErrValidation means a required intake field is missing or malformed.
	ErrValidation = errors.New("invalid intake")
	// ErrTransition means a status change is not permitted from the
	// patient's current status.
	ErrTransition = errors.New("invalid status transition")
)

// Repository is the storage contract for patient records. Implementations
// must make each mutation atomic with respect to List: a concurrent reader
// never observes a half-applied record.
type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	// Delete removes the record and returns the deleted value so callers
	// can run compensating actions.
	Delete(ctx context.Context, id uuid.UUID) (*Patient, error)
	List(ctx context.Context) ([]*Patient, error)
}
