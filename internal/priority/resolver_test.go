package priority

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"medical-alert-service/internal/models"
	"medical-alert-service/internal/taxonomy"
)

var personas = []string{
	models.PersonaPatient,
	models.PersonaHealthcareProfessional,
	models.PersonaEmergencyUser,
	models.PersonaCaregiver,
	models.PersonaAdministrator,
	"",
	"unknown_persona",
}

func TestResolve_EmergencyAlwaysP0(t *testing.T) {
	r := NewResolver(nil)
	codes := append(taxonomy.Codes(), "", "nope")
	for _, code := range codes {
		for _, persona := range personas {
			assert.Equal(t, models.P0, r.Resolve(code, persona, true), "%s/%s", persona, code)
		}
	}
}

func TestResolve_MatrixEntriesWin(t *testing.T) {
	m := taxonomy.DefaultMatrix()
	r := NewResolver(m)
	for _, code := range taxonomy.Codes() {
		for _, persona := range personas {
			want, ok := m.Get(persona, code)
			if !ok {
				continue
			}
			assert.Equal(t, want, r.Resolve(code, persona, false), "%s/%s", persona, code)
		}
	}
}

func TestResolve_SeverityFallback(t *testing.T) {
	r := NewResolver(taxonomy.NewMatrix(nil))

	tests := []struct {
		category string
		want     models.Tier
	}{
		{"emergency_component", models.P0},
		{"booking_system", models.P1},
		{"payment_processing", models.P2},
		{"performance", models.P3},
		{"unrecognised", models.P3},
	}
	for _, tt := range tests {
		t.Run(tt.category, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Resolve(tt.category, models.PersonaPatient, false))
		})
	}
}

func TestResolve_PatientPerformanceIsP3(t *testing.T) {
	assert.Equal(t, models.P3, NewResolver(nil).Resolve("performance", models.PersonaPatient, false))
}
