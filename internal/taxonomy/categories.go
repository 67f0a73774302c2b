// Package taxonomy holds the static medical error taxonomy: categories, personas,
// the priority matrix and the escalation team directory.
package taxonomy

import (
	"time"

	"medical-alert-service/internal/models"
)

// DefaultCategoryCode is returned by Lookup for unrecognised codes.
const DefaultCategoryCode = "ui_component"

var categories = map[string]models.ErrorCategory{
	"emergency_component": {
		Code:                   "emergency_component",
		Name:                   "Emergency Component Failure",
		Severity:               models.SeverityCritical,
		TargetResponseTime:     5 * time.Minute,
		PatientSafetyImpact:    true,
		DefaultEscalationTeams: []string{"medical_safety", "engineering_oncall", "frontend"},
		FallbackAction:         "show_cached_emergency_info",
	},
	"medical_data": {
		Code:                   "medical_data",
		Name:                   "Medical Data Integrity Error",
		Severity:               models.SeverityCritical,
		TargetResponseTime:     5 * time.Minute,
		PatientSafetyImpact:    true,
		DefaultEscalationTeams: []string{"medical_safety", "compliance", "engineering_oncall"},
		FallbackAction:         "hide_medical_data_and_show_notice",
	},
	"prescription": {
		Code:                   "prescription",
		Name:                   "Prescription Workflow Error",
		Severity:               models.SeverityCritical,
		TargetResponseTime:     10 * time.Minute,
		PatientSafetyImpact:    true,
		DefaultEscalationTeams: []string{"clinical_operations", "medical_safety", "engineering_oncall"},
		FallbackAction:         "show_pharmacy_contact",
	},
	"telemedicine": {
		Code:                   "telemedicine",
		Name:                   "Telemedicine Session Failure",
		Severity:               models.SeverityHigh,
		TargetResponseTime:     15 * time.Minute,
		PatientSafetyImpact:    false,
		DefaultEscalationTeams: []string{"clinical_operations", "platform"},
		FallbackAction:         "offer_phone_consultation",
	},
	"booking_system": {
		Code:                   "booking_system",
		Name:                   "Appointment Booking Error",
		Severity:               models.SeverityHigh,
		TargetResponseTime:     15 * time.Minute,
		PatientSafetyImpact:    false,
		DefaultEscalationTeams: []string{"engineering_oncall", "customer_support"},
		FallbackAction:         "show_phone_booking",
	},
	"authentication": {
		Code:                   "authentication",
		Name:                   "Authentication Failure",
		Severity:               models.SeverityHigh,
		TargetResponseTime:     30 * time.Minute,
		PatientSafetyImpact:    false,
		DefaultEscalationTeams: []string{"platform", "engineering_oncall"},
		FallbackAction:         "show_login_help",
	},
	"payment_processing": {
		Code:                   "payment_processing",
		Name:                   "Payment Processing Error",
		Severity:               models.SeverityMedium,
		TargetResponseTime:     time.Hour,
		PatientSafetyImpact:    false,
		DefaultEscalationTeams: []string{"platform", "customer_support"},
		FallbackAction:         "show_invoice_option",
	},
	"api_integration": {
		Code:                   "api_integration",
		Name:                   "Third-Party Integration Error",
		Severity:               models.SeverityMedium,
		TargetResponseTime:     time.Hour,
		PatientSafetyImpact:    false,
		DefaultEscalationTeams: []string{"platform"},
		FallbackAction:         "serve_cached_response",
	},
	"accessibility": {
		Code:                   "accessibility",
		Name:                   "Accessibility Regression",
		Severity:               models.SeverityMedium,
		TargetResponseTime:     2 * time.Hour,
		PatientSafetyImpact:    false,
		DefaultEscalationTeams: []string{"frontend", "customer_support"},
		FallbackAction:         "enable_simplified_layout",
	},
	"search": {
		Code:                   "search",
		Name:                   "Doctor Search Error",
		Severity:               models.SeverityMedium,
		TargetResponseTime:     2 * time.Hour,
		PatientSafetyImpact:    false,
		DefaultEscalationTeams: []string{"frontend", "platform"},
		FallbackAction:         "show_specialty_directory",
	},
	"performance": {
		Code:                   "performance",
		Name:                   "Performance Degradation",
		Severity:               models.SeverityLow,
		TargetResponseTime:     4 * time.Hour,
		PatientSafetyImpact:    false,
		DefaultEscalationTeams: []string{"frontend", "platform"},
		FallbackAction:         "reduce_page_weight",
	},
	DefaultCategoryCode: {
		Code:                   DefaultCategoryCode,
		Name:                   "Generic UI Component Error",
		Severity:               models.SeverityLow,
		TargetResponseTime:     24 * time.Hour,
		PatientSafetyImpact:    false,
		DefaultEscalationTeams: []string{"frontend"},
		FallbackAction:         "render_component_placeholder",
	},
}

// Lookup returns the category for code. Unknown codes yield the default category.
func Lookup(code string) models.ErrorCategory {
	c, ok := categories[code]
	if !ok {
		c = categories[DefaultCategoryCode]
	}
	return cloneCategory(c)
}

// Known reports whether code is a defined category.
func Known(code string) bool {
	_, ok := categories[code]
	return ok
}

// Codes returns all category codes.
func Codes() []string {
	codes := make([]string, 0, len(categories))
	for code := range categories {
		codes = append(codes, code)
	}
	return codes
}

func cloneCategory(c models.ErrorCategory) models.ErrorCategory {
	c.DefaultEscalationTeams = append([]string(nil), c.DefaultEscalationTeams...)
	return c
}
