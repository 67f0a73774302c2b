package db

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"

	"medical-alert-service/internal/models"
)

var ErrIncidentNotFound = errors.New("incident not found")

// IncidentStore is implemented by the Postgres and in-memory stores.
type IncidentStore interface {
	Store(ctx context.Context, inc models.Incident) error
	List(ctx context.Context, limit int) ([]models.Incident, error)
	Get(ctx context.Context, id string) (models.Incident, error)
}

// Store inserts an incident. Re-storing an id is a no-op.
func (d *DB) Store(ctx context.Context, inc models.Incident) error {
	query := `
        INSERT INTO incidents (
            id, title, severity, priority, patient_safety_impact, affected_services,
            medical_specialty, persona, created_at, response_teams, status, actions
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
        ON CONFLICT (id) DO NOTHING`
	_, err := d.Pool.Exec(ctx, query,
		inc.ID, inc.Title, string(inc.Severity), inc.Priority.String(), inc.PatientSafetyImpact,
		nonNil(inc.AffectedServices), inc.MedicalSpecialty, inc.Persona, inc.Timestamp,
		nonNil(inc.ResponseTeams), inc.Status, nonNil(inc.Actions))
	if err != nil {
		return fmt.Errorf("failed to store incident %s: %w", inc.ID, err)
	}
	return nil
}

const selectIncident = `
        SELECT id, title, severity, priority, patient_safety_impact, affected_services,
               medical_specialty, persona, created_at, response_teams, status, actions
        FROM incidents`

// List returns the most recent incidents, newest first. A non-positive
// limit returns all of them.
func (d *DB) List(ctx context.Context, limit int) ([]models.Incident, error) {
	var lim any
	if limit > 0 {
		lim = limit
	}
	rows, err := d.Pool.Query(ctx, selectIncident+` ORDER BY created_at DESC LIMIT $1`, lim)
	if err != nil {
		return nil, fmt.Errorf("failed to query incidents: %w", err)
	}
	defer rows.Close()

	var incidents []models.Incident
	for rows.Next() {
		inc, err := scanIncident(rows)
		if err != nil {
			return nil, err
		}
		incidents = append(incidents, inc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate incidents: %w", err)
	}
	return incidents, nil
}

func (d *DB) Get(ctx context.Context, id string) (models.Incident, error) {
	inc, err := scanIncident(d.Pool.QueryRow(ctx, selectIncident+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Incident{}, fmt.Errorf("%w: %s", ErrIncidentNotFound, id)
	}
	return inc, err
}

func scanIncident(row pgx.Row) (models.Incident, error) {
	var (
		inc      models.Incident
		severity string
		priority string
	)
	err := row.Scan(
		&inc.ID, &inc.Title, &severity, &priority, &inc.PatientSafetyImpact, &inc.AffectedServices,
		&inc.MedicalSpecialty, &inc.Persona, &inc.Timestamp, &inc.ResponseTeams, &inc.Status, &inc.Actions,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Incident{}, err
		}
		return models.Incident{}, fmt.Errorf("failed to scan incident: %w", err)
	}
	inc.Severity = models.Severity(severity)
	if inc.Priority, err = models.ParseTier(priority); err != nil {
		return models.Incident{}, fmt.Errorf("incident %s: %w", inc.ID, err)
	}
	return inc, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Memory keeps incidents in process. Used when no database is configured.
type Memory struct {
	mu        sync.RWMutex
	incidents []models.Incident
	index     map[string]int
}

func NewMemory() *Memory {
	return &Memory{index: make(map[string]int)}
}

func (m *Memory) Store(_ context.Context, inc models.Incident) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.index[inc.ID]; ok {
		return nil
	}
	m.index[inc.ID] = len(m.incidents)
	m.incidents = append(m.incidents, inc)
	return nil
}

func (m *Memory) List(_ context.Context, limit int) ([]models.Incident, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if limit <= 0 {
		limit = len(m.incidents)
	}
	out := make([]models.Incident, 0, min(limit, len(m.incidents)))
	for i := len(m.incidents) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.incidents[i])
	}
	return out, nil
}

func (m *Memory) Get(_ context.Context, id string) (models.Incident, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i, ok := m.index[id]
	if !ok {
		return models.Incident{}, fmt.Errorf("%w: %s", ErrIncidentNotFound, id)
	}
	return m.incidents[i], nil
}
