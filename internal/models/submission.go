package models

// ErrorReport is the upstream error as seen by the error-reporting layer.
type ErrorReport struct {
	Message       string `json:"message"`
	Name          string `json:"name"`
	CorrelationID string `json:"correlation_id"`
}

// Hints are optional caller-supplied classification values. Nil pointers mean "not supplied".
type Hints struct {
	Severity            Severity       `json:"severity,omitempty"`
	Category            string         `json:"category,omitempty"`
	PersonaHint         string         `json:"persona_hint,omitempty"`
	EmergencyHint       *bool          `json:"emergency_hint,omitempty"`
	PatientSafetyImpact *bool          `json:"patient_safety_impact,omitempty"`
	SpecialtyHint       string         `json:"specialty_hint,omitempty"`
	ComponentName       string         `json:"component_name,omitempty"`
	Route               string         `json:"route,omitempty"`
	SessionID           string         `json:"session_id,omitempty"`
	Extra               map[string]any `json:"extra,omitempty"`
}

// Environment carries signals sniffed from the reporting client. Every field may be absent.
type Environment struct {
	Route          string   `json:"route,omitempty"`
	ComponentName  string   `json:"component_name,omitempty"`
	UserAgent      string   `json:"user_agent,omitempty"`
	Viewport       string   `json:"viewport,omitempty"`
	Language       string   `json:"language,omitempty"`
	ConnectionType string   `json:"connection_type,omitempty"`
	Online         *bool    `json:"online,omitempty"`
	ScreenReader   *bool    `json:"screen_reader,omitempty"`
	ReducedMotion  *bool    `json:"reduced_motion,omitempty"`
	HighContrast   *bool    `json:"high_contrast,omitempty"`
	FontScale      *float64 `json:"font_scale,omitempty"`
}

// Submission is one incoming error with its hints, as accepted by SubmitError.
type Submission struct {
	Error       ErrorReport `json:"error"`
	Hints       Hints       `json:"hints"`
	Environment Environment `json:"environment"`
}
