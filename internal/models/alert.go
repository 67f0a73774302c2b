package models

import "time"

// ErrorSummary is the part of the upstream error kept on the alert.
type ErrorSummary struct {
	Message          string   `json:"message"`
	Name             string   `json:"name"`
	CorrelationID    string   `json:"correlation_id,omitempty"`
	ReportedSeverity Severity `json:"reported_severity,omitempty"`
}

// Escalation describes who an alert is routed to.
type Escalation struct {
	Teams         []string `json:"teams"`
	Immediate     bool     `json:"immediate"`
	PatientSafety bool     `json:"patient_safety"`
}

// AlertPayload is the unit flowing through the pipeline.
type AlertPayload struct {
	ID          string       `json:"id"`
	Timestamp   time.Time    `json:"timestamp"`
	Tier        Tier         `json:"tier"`
	Category    string       `json:"category"`
	Severity    Severity     `json:"severity"`
	Error       ErrorSummary `json:"error"`
	Context     Context      `json:"context"`
	Escalation  Escalation   `json:"escalation"`
	Processed   bool         `json:"processed"`
	ProcessedAt *time.Time   `json:"processed_at,omitempty"`
}

// Archived returns a copy stamped as processed at t.
func (a AlertPayload) Archived(t time.Time) AlertPayload {
	a.Processed = true
	a.ProcessedAt = &t
	a.Escalation.Teams = append([]string(nil), a.Escalation.Teams...)
	return a
}
