package taxonomy

import "medical-alert-service/internal/models"

var personas = map[string]models.UserPersona{
	models.PersonaPatient: {
		Code:               models.PersonaPatient,
		StressLevel:        "medium",
		TechnicalExpertise: "low",
	},
	models.PersonaHealthcareProfessional: {
		Code:               models.PersonaHealthcareProfessional,
		StressLevel:        "medium",
		TechnicalExpertise: "high",
	},
	models.PersonaEmergencyUser: {
		Code:               models.PersonaEmergencyUser,
		StressLevel:        "high",
		TechnicalExpertise: "low",
		AccessibilityNeeds: true,
	},
	models.PersonaCaregiver: {
		Code:               models.PersonaCaregiver,
		StressLevel:        "high",
		TechnicalExpertise: "medium",
	},
	models.PersonaAdministrator: {
		Code:               models.PersonaAdministrator,
		StressLevel:        "low",
		TechnicalExpertise: "high",
	},
}

// Persona returns the persona record for code.
func Persona(code string) (models.UserPersona, bool) {
	p, ok := personas[code]
	return p, ok
}

// IsPersona reports whether code is a recognised persona.
func IsPersona(code string) bool {
	_, ok := personas[code]
	return ok
}
