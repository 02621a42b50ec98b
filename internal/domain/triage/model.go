package triage

import (
	"time"

	"github.com/google/uuid"
)

// Severity is the clinician-assigned coarse urgency tier.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Known reports whether s is one of the four recognized tiers.
func (s Severity) Known() bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow:
		return true
	}
	return false
}

// Status tracks a patient through the treatment pipeline.
type Status string

const (
	StatusWaiting     Status = "waiting"
	StatusInTreatment Status = "in-treatment"
	StatusCompleted   Status = "completed"
)

// Known reports whether st is a recognized status value.
func (st Status) Known() bool {
	switch st {
	case StatusWaiting, StatusInTreatment, StatusCompleted:
		return true
	}
	return false
}

// VitalSigns holds optional structured measurements taken at intake. Every
// field is independent; any subset may be present.
type VitalSigns struct {
	HeartRate        *int     `db:"heart_rate" json:"heartRate,omitempty"`
	BloodPressure    *string  `db:"blood_pressure" json:"bloodPressure,omitempty"` // "systolic/diastolic"
	OxygenSaturation *float64 `db:"oxygen_saturation" json:"oxygenSaturation,omitempty"`
	Temperature      *float64 `db:"temperature" json:"temperature,omitempty"` // degrees Fahrenheit
}

// Patient is the unit of work in the triage queue. Priority is derived; it is
// only ever written by a scoring call, never by a caller.
type Patient struct {
	ID                 uuid.UUID   `db:"id" json:"id"`
	Name               string      `db:"name" json:"name"`
	Age                int         `db:"age" json:"age"`
	Condition          string      `db:"condition" json:"condition"`
	Severity           Severity    `db:"severity" json:"severity"`
	VitalSigns         *VitalSigns `db:"-" json:"vitalSigns,omitempty"`
	Priority           int         `db:"priority" json:"priority"`
	ArrivalTime        time.Time   `db:"arrival_time" json:"arrivalTime"`
	Status             Status      `db:"status" json:"status"`
	TreatmentStartTime *time.Time  `db:"treatment_start_time" json:"treatmentStartTime,omitempty"`
	TreatmentEndTime   *time.Time  `db:"treatment_end_time" json:"treatmentEndTime,omitempty"`
}

// Intake carries the caller-supplied fields for registering a patient.
type Intake struct {
	Name       string      `json:"name"`
	Age        *int        `json:"age"`
	Condition  string      `json:"condition"`
	Severity   Severity    `json:"severity"`
	VitalSigns *VitalSigns `json:"vitalSigns,omitempty"`
}

// UpdateRequest carries a partial edit. Nil fields are left untouched.
// ID and arrival time are never taken from an update payload.
type UpdateRequest struct {
	Name       *string     `json:"name,omitempty"`
	Age        *int        `json:"age,omitempty"`
	Condition  *string     `json:"condition,omitempty"`
	Severity   *Severity   `json:"severity,omitempty"`
	VitalSigns *VitalSigns `json:"vitalSigns,omitempty"`
}

// touchesScore reports whether the update includes any scoring-relevant field.
func (u UpdateRequest) touchesScore() bool {
	return u.Age != nil || u.Condition != nil || u.Severity != nil || u.VitalSigns != nil
}
