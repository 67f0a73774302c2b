package models

import "time"

// Severity is the medical-risk severity attached to an error category.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// ErrorCategory describes one class of application error and how it is escalated.
type ErrorCategory struct {
	Code                   string        `json:"code" yaml:"code"`
	Name                   string        `json:"name" yaml:"name"`
	Severity               Severity      `json:"severity" yaml:"severity"`
	TargetResponseTime     time.Duration `json:"target_response_time" yaml:"target_response_time"`
	PatientSafetyImpact    bool          `json:"patient_safety_impact" yaml:"patient_safety_impact"`
	DefaultEscalationTeams []string      `json:"default_escalation_teams" yaml:"default_escalation_teams"`
	FallbackAction         string        `json:"fallback_action" yaml:"fallback_action"`
}

// UserPersona is a lookup key into the priority matrix.
type UserPersona struct {
	Code               string `json:"code"`
	StressLevel        string `json:"stress_level"`
	TechnicalExpertise string `json:"technical_expertise"`
	AccessibilityNeeds bool   `json:"accessibility_needs"`
}

// Persona codes recognised by the pipeline.
const (
	PersonaPatient                = "patient"
	PersonaHealthcareProfessional = "healthcare_professional"
	PersonaEmergencyUser          = "emergency_user"
	PersonaCaregiver              = "caregiver"
	PersonaAdministrator          = "administrator"
)
