package models

import "time"

const IncidentStatusOpen = "open"

// Incident is the structured record handed to incident storage for P0 alerts.
type Incident struct {
	ID                  string    `json:"id"`
	Title               string    `json:"title"`
	Severity            Severity  `json:"severity"`
	Priority            Tier      `json:"priority"`
	PatientSafetyImpact bool      `json:"patient_safety_impact"`
	AffectedServices    []string  `json:"affected_services"`
	MedicalSpecialty    string    `json:"medical_specialty"`
	Persona             string    `json:"persona"`
	Timestamp           time.Time `json:"timestamp"`
	ResponseTeams       []string  `json:"response_teams"`
	Status              string    `json:"status"`
	Actions             []string  `json:"actions"`
}

// MonitoringEvent is published to the monitoring sink.
type MonitoringEvent struct {
	Source              string    `json:"source"`
	Type                string    `json:"type"`
	Priority            Tier      `json:"priority"`
	PatientSafetyImpact bool      `json:"patient_safety_impact"`
	Timestamp           time.Time `json:"timestamp"`
	AlertID             string    `json:"alert_id"`
}
