package models

// Journey stages.
const (
	StageDiscovery    = "discovery"
	StageSelection    = "selection"
	StageConsultation = "consultation"
	StageFollowUp     = "follow_up"
	StageEmergency    = "emergency"
)

// SpecialtyUnknown is used when no specialty could be detected.
const SpecialtyUnknown = "unknown"

// DeviceContext is best-effort information about the reporting device.
type DeviceContext struct {
	Type           string `json:"type,omitempty"`
	Viewport       string `json:"viewport,omitempty"`
	ConnectionType string `json:"connection_type,omitempty"`
	Online         *bool  `json:"online,omitempty"`
}

// AccessibilityContext captures assistive settings active in the reporting client.
type AccessibilityContext struct {
	ScreenReader  *bool    `json:"screen_reader,omitempty"`
	ReducedMotion *bool    `json:"reduced_motion,omitempty"`
	HighContrast  *bool    `json:"high_contrast,omitempty"`
	FontScale     *float64 `json:"font_scale,omitempty"`
}

// Context is the anonymized situational record attached to an alert.
type Context struct {
	SessionID     string                `json:"session_id"`
	Specialty     string                `json:"specialty"`
	Persona       string                `json:"persona"`
	JourneyStage  string                `json:"journey_stage"`
	Emergency     bool                  `json:"emergency"`
	Route         string                `json:"route,omitempty"`
	ComponentName string                `json:"component_name,omitempty"`
	Language      string                `json:"language,omitempty"`
	Device        *DeviceContext        `json:"device,omitempty"`
	Accessibility *AccessibilityContext `json:"accessibility,omitempty"`
	Extra         map[string]any        `json:"extra,omitempty"`
}
