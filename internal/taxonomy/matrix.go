package taxonomy

import "medical-alert-service/internal/models"

type matrixKey struct {
	persona  string
	category string
}

// Matrix maps (persona, category) to a tier. Missing pairs fall back to category severity.
type Matrix struct {
	entries map[matrixKey]models.Tier
}

// NewMatrix builds a matrix from persona -> category -> tier.
func NewMatrix(rows map[string]map[string]models.Tier) *Matrix {
	m := &Matrix{entries: make(map[matrixKey]models.Tier)}
	for persona, row := range rows {
		for category, tier := range row {
			m.entries[matrixKey{persona, category}] = tier
		}
	}
	return m
}

// Get returns the tier for a pair, if one is defined.
func (m *Matrix) Get(persona, category string) (models.Tier, bool) {
	t, ok := m.entries[matrixKey{persona, category}]
	return t, ok
}

// DefaultMatrix is the production priority matrix.
func DefaultMatrix() *Matrix {
	return NewMatrix(map[string]map[string]models.Tier{
		models.PersonaPatient: {
			"emergency_component": models.P0,
			"medical_data":        models.P0,
			"prescription":        models.P0,
			"telemedicine":        models.P1,
			"booking_system":      models.P1,
			"accessibility":       models.P1,
			"payment_processing":  models.P2,
		},
		models.PersonaHealthcareProfessional: {
			"medical_data":    models.P0,
			"prescription":    models.P0,
			"telemedicine":    models.P0,
			"api_integration": models.P1,
			"booking_system":  models.P2,
			"performance":     models.P2,
		},
		models.PersonaEmergencyUser: {
			"emergency_component": models.P0,
			"booking_system":      models.P0,
			"telemedicine":        models.P0,
			"performance":         models.P1,
			DefaultCategoryCode:   models.P1,
		},
		models.PersonaCaregiver: {
			"medical_data":   models.P1,
			"booking_system": models.P1,
			"accessibility":  models.P1,
		},
	})
}
