package triage

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGRepo is the Postgres-backed Repository. Vital signs are flattened onto
// the patient row; every mutation is a single statement, so List never sees
// a half-applied record.
type PGRepo struct {
	pool *pgxpool.Pool
}

func NewPGRepo(pool *pgxpool.Pool) *PGRepo {
	return &PGRepo{pool: pool}
}

const patientCols = `id, name, age, condition, severity, priority,
	heart_rate, blood_pressure, oxygen_saturation, temperature,
	arrival_time, status, treatment_start_time, treatment_end_time`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	var vs VitalSigns
	err := row.Scan(&p.ID, &p.Name, &p.Age, &p.Condition, &p.Severity, &p.Priority,
		&vs.HeartRate, &vs.BloodPressure, &vs.OxygenSaturation, &vs.Temperature,
		&p.ArrivalTime, &p.Status, &p.TreatmentStartTime, &p.TreatmentEndTime)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if vs.HeartRate != nil || vs.BloodPressure != nil || vs.OxygenSaturation != nil || vs.Temperature != nil {
		p.VitalSigns = &vs
	}
	return &p, nil
}

func vitalsCols(p *Patient) (hr *int, bp *string, spo2, temp *float64) {
	if p.VitalSigns == nil {
		return nil, nil, nil, nil
	}
	return p.VitalSigns.HeartRate, p.VitalSigns.BloodPressure,
		p.VitalSigns.OxygenSaturation, p.VitalSigns.Temperature
}

func (r *PGRepo) Create(ctx context.Context, p *Patient) error {
	hr, bp, spo2, temp := vitalsCols(p)
	_, err := r.pool.Exec(ctx, `
		INSERT INTO patient (id, name, age, condition, severity, priority,
			heart_rate, blood_pressure, oxygen_saturation, temperature,
			arrival_time, status, treatment_start_time, treatment_end_time)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		p.ID, p.Name, p.Age, p.Condition, p.Severity, p.Priority,
		hr, bp, spo2, temp,
		p.ArrivalTime, p.Status, p.TreatmentStartTime, p.TreatmentEndTime)
	return err
}

func (r *PGRepo) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return scanPatient(r.pool.QueryRow(ctx, `SELECT `+patientCols+` FROM patient WHERE id = $1`, id))
}

// Update writes every mutable column. Arrival time is deliberately not in
// the SET list.
func (r *PGRepo) Update(ctx context.Context, p *Patient) error {
	hr, bp, spo2, temp := vitalsCols(p)
	tag, err := r.pool.Exec(ctx, `
		UPDATE patient SET name=$2, age=$3, condition=$4, severity=$5, priority=$6,
			heart_rate=$7, blood_pressure=$8, oxygen_saturation=$9, temperature=$10,
			status=$11, treatment_start_time=$12, treatment_end_time=$13
		WHERE id = $1`,
		p.ID, p.Name, p.Age, p.Condition, p.Severity, p.Priority,
		hr, bp, spo2, temp,
		p.Status, p.TreatmentStartTime, p.TreatmentEndTime)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) Delete(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return scanPatient(r.pool.QueryRow(ctx,
		`DELETE FROM patient WHERE id = $1 RETURNING `+patientCols, id))
}

func (r *PGRepo) List(ctx context.Context) ([]*Patient, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+patientCols+` FROM patient`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var patients []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		patients = append(patients, p)
	}
	return patients, rows.Err()
}
