package enrichment

import (
	"strings"

	"medical-alert-service/internal/models"
	"medical-alert-service/internal/taxonomy"
)

// Detector resolves situational fields from hints and environment signals.
// Hosts can substitute stricter detection by supplying their own implementation.
type Detector interface {
	Emergency(h models.Hints, env models.Environment) bool
	Specialty(h models.Hints, env models.Environment) string
	Persona(h models.Hints, env models.Environment, emergency bool) string
	JourneyStage(h models.Hints, env models.Environment, emergency bool) string
}

// KeywordRule maps a set of substrings to a value.
type KeywordRule struct {
	Value    string
	Keywords []string
}

// KeywordDetector is the default best-effort substring matcher.
type KeywordDetector struct {
	Specialties        []KeywordRule
	Personas           []KeywordRule
	Journey            []KeywordRule
	EmergencyRoute     []string
	EmergencyComponent []string
}

// NewKeywordDetector returns a detector with the built-in keyword tables.
func NewKeywordDetector() *KeywordDetector {
	return &KeywordDetector{
		Specialties: []KeywordRule{
			{Value: "cardiology", Keywords: []string{"cardiology", "cardio", "heart", "kardiologie"}},
			{Value: "dermatology", Keywords: []string{"dermatology", "derma", "skin"}},
			{Value: "pediatrics", Keywords: []string{"pediatrics", "pediatric", "paediatric", "kinderarzt"}},
			{Value: "dentistry", Keywords: []string{"dentistry", "dental", "dentist", "orthodont", "zahnarzt"}},
			{Value: "orthopedics", Keywords: []string{"orthopedics", "orthopaedics", "orthopedic"}},
			{Value: "neurology", Keywords: []string{"neurology", "neuro"}},
			{Value: "psychiatry", Keywords: []string{"psychiatry", "psychology", "mental-health", "mental"}},
			{Value: "oncology", Keywords: []string{"oncology", "cancer"}},
			{Value: "gynecology", Keywords: []string{"gynecology", "gynaecology", "gyn"}},
			{Value: "ophthalmology", Keywords: []string{"ophthalmology", "ophthalm", "augenarzt"}},
			{Value: "general_medicine", Keywords: []string{"general-practice", "family-medicine", "allgemeinmedizin"}},
		},
		Personas: []KeywordRule{
			{Value: models.PersonaHealthcareProfessional, Keywords: []string{"professional", "doctor"}},
			{Value: models.PersonaEmergencyUser, Keywords: []string{"emergency", "urgent"}},
			{Value: models.PersonaCaregiver, Keywords: []string{"caregiver"}},
		},
		Journey: []KeywordRule{
			{Value: models.StageConsultation, Keywords: []string{"booking", "appointment", "consult", "telemedicine", "video", "termin"}},
			{Value: models.StageFollowUp, Keywords: []string{"follow-up", "followup", "results", "prescription", "aftercare", "nachsorge"}},
			{Value: models.StageSelection, Keywords: []string{"specialists", "compare", "search", "find", "aerzte"}},
			{Value: models.StageDiscovery, Keywords: []string{"home", "about", "services", "blog"}},
		},
		EmergencyRoute:     []string{"emergency", "urgent", "notfall", "dringend", "urgence", "urgencia", "emergencia"},
		EmergencyComponent: []string{"emergency", "urgent", "notfall", "sos", "crisis", "triage"},
	}
}

func route(h models.Hints, env models.Environment) string {
	if h.Route != "" {
		return strings.ToLower(h.Route)
	}
	return strings.ToLower(env.Route)
}

func component(h models.Hints, env models.Environment) string {
	if h.ComponentName != "" {
		return strings.ToLower(h.ComponentName)
	}
	return strings.ToLower(env.ComponentName)
}

func containsAny(s string, keywords []string) bool {
	if s == "" {
		return false
	}
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

func matchRule(s string, rules []KeywordRule) (string, bool) {
	for _, r := range rules {
		if containsAny(s, r.Keywords) {
			return r.Value, true
		}
	}
	return "", false
}

// Emergency is true if any one signal says so.
func (d *KeywordDetector) Emergency(h models.Hints, env models.Environment) bool {
	if h.EmergencyHint != nil && *h.EmergencyHint {
		return true
	}
	if containsAny(route(h, env), d.EmergencyRoute) {
		return true
	}
	return containsAny(component(h, env), d.EmergencyComponent)
}

func (d *KeywordDetector) Specialty(h models.Hints, env models.Environment) string {
	if h.SpecialtyHint != "" {
		return h.SpecialtyHint
	}
	if s, ok := matchRule(route(h, env), d.Specialties); ok {
		return s
	}
	if s, ok := matchRule(component(h, env), d.Specialties); ok {
		return s
	}
	return models.SpecialtyUnknown
}

func (d *KeywordDetector) Persona(h models.Hints, env models.Environment, emergency bool) string {
	if emergency {
		return models.PersonaEmergencyUser
	}
	if taxonomy.IsPersona(h.PersonaHint) {
		return h.PersonaHint
	}
	if p, ok := matchRule(route(h, env), d.Personas); ok {
		return p
	}
	return models.PersonaPatient
}

func (d *KeywordDetector) JourneyStage(h models.Hints, env models.Environment, emergency bool) string {
	if emergency {
		return models.StageEmergency
	}
	if s, ok := matchRule(route(h, env), d.Journey); ok {
		return s
	}
	return models.StageDiscovery
}
