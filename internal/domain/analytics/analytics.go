// Package analytics computes read-only statistics over the current triage
// queue snapshot. It never mutates queue state.
package analytics

import (
	"context"
	"time"

	"github.com/triageflow/triageflow/internal/domain/triage"
)

// Priority range buckets used for the distribution report. A patient falls
// into the highest bucket whose floor its priority reaches.
const (
	rangeCriticalFloor = 150
	rangeHighFloor     = 100
	rangeMediumFloor   = 50
)

// Snapshot is the aggregated view of the queue at one point in time.
type Snapshot struct {
	GeneratedAt          time.Time               `json:"generatedAt"`
	TotalPatients        int                     `json:"totalPatients"`
	AveragePriority      float64                 `json:"averagePriority"`
	PriorityDistribution map[string]int          `json:"priorityDistribution"`
	SeverityBreakdown    map[triage.Severity]int `json:"severityBreakdown"`
	StatusBreakdown      map[triage.Status]int   `json:"statusBreakdown"`
	AverageWaitMinutes   float64                 `json:"averageWaitMinutes"`
}

// QueueReader is the slice of the triage service the reporter needs.
type QueueReader interface {
	List(ctx context.Context, status triage.Status) ([]*triage.Patient, error)
}

// Reporter builds snapshots from the live queue.
type Reporter struct {
	queue QueueReader
}

func NewReporter(queue QueueReader) *Reporter {
	return &Reporter{queue: queue}
}

// Snapshot aggregates the full queue. Wait time is measured from arrival to
// treatment start for treated patients, and to now for those still waiting.
func (r *Reporter) Snapshot(ctx context.Context) (*Snapshot, error) {
	patients, err := r.queue.List(ctx, "")
	if err != nil {
		return nil, err
	}

	now := time.Now()
	snap := &Snapshot{
		GeneratedAt:          now,
		TotalPatients:        len(patients),
		PriorityDistribution: map[string]int{},
		SeverityBreakdown: map[triage.Severity]int{
			triage.SeverityCritical: 0,
			triage.SeverityHigh:     0,
			triage.SeverityMedium:   0,
			triage.SeverityLow:      0,
		},
		StatusBreakdown: map[triage.Status]int{
			triage.StatusWaiting:     0,
			triage.StatusInTreatment: 0,
			triage.StatusCompleted:   0,
		},
	}
	if len(patients) == 0 {
		return snap, nil
	}

	var prioritySum int
	var waitSum time.Duration
	var waited int
	for _, p := range patients {
		prioritySum += p.Priority
		snap.PriorityDistribution[priorityRange(p.Priority)]++
		snap.SeverityBreakdown[p.Severity]++
		snap.StatusBreakdown[p.Status]++

		switch {
		case p.TreatmentStartTime != nil:
			waitSum += p.TreatmentStartTime.Sub(p.ArrivalTime)
			waited++
		case p.Status == triage.StatusWaiting:
			waitSum += now.Sub(p.ArrivalTime)
			waited++
		}
	}

	snap.AveragePriority = float64(prioritySum) / float64(len(patients))
	if waited > 0 {
		snap.AverageWaitMinutes = waitSum.Minutes() / float64(waited)
	}
	return snap, nil
}

func priorityRange(priority int) string {
	switch {
	case priority >= rangeCriticalFloor:
		return "critical"
	case priority >= rangeHighFloor:
		return "high"
	case priority >= rangeMediumFloor:
		return "medium"
	}
	return "low"
}
