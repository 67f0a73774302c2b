// Package priority maps a classified error to an urgency tier.
package priority

import (
	"medical-alert-service/internal/models"
	"medical-alert-service/internal/taxonomy"
)

// Resolver is pure and safe for concurrent use.
type Resolver struct {
	matrix *taxonomy.Matrix
}

// NewResolver returns a resolver over matrix. A nil matrix uses the default one.
func NewResolver(matrix *taxonomy.Matrix) *Resolver {
	if matrix == nil {
		matrix = taxonomy.DefaultMatrix()
	}
	return &Resolver{matrix: matrix}
}

// Resolve returns P0 for emergencies, the matrix entry when present,
// else the tier derived from the category's severity.
func (r *Resolver) Resolve(categoryCode, personaCode string, emergency bool) models.Tier {
	if emergency {
		return models.P0
	}
	if tier, ok := r.matrix.Get(personaCode, categoryCode); ok {
		return tier
	}
	return models.TierForSeverity(taxonomy.Lookup(categoryCode).Severity)
}
