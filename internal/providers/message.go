// Package providers implements the concrete transports behind the email,
// voice, chat and webhook channels.
package providers

import (
	"fmt"
	"strings"

	"medical-alert-service/internal/channels"
	"medical-alert-service/internal/models"
)

// Subject is the one-line summary used as email subject and chat header.
func Subject(a models.AlertPayload) string {
	prefix := fmt.Sprintf("[%s]", a.Tier)
	if a.Escalation.PatientSafety {
		prefix += "[PATIENT SAFETY]"
	}
	return fmt.Sprintf("%s %s: %s", prefix, a.Category, a.Error.Message)
}

// Body renders the alert as plain text lines.
func Body(d channels.Delivery) string {
	a := d.Alert
	lines := []string{
		"Alert: " + a.ID,
		"Tier: " + a.Tier.String(),
		"Category: " + a.Category,
		"Severity: " + string(a.Severity),
		"Error: " + a.Error.Message,
	}
	if a.Error.Name != "" {
		lines = append(lines, "Type: "+a.Error.Name)
	}
	if a.Error.CorrelationID != "" {
		lines = append(lines, "Correlation: "+a.Error.CorrelationID)
	}
	c := a.Context
	lines = append(lines,
		"Specialty: "+c.Specialty,
		"Persona: "+c.Persona,
		"Journey: "+c.JourneyStage,
	)
	if c.Emergency {
		lines = append(lines, "Emergency: yes")
	}
	if c.Route != "" {
		lines = append(lines, "Route: "+c.Route)
	}
	if c.ComponentName != "" {
		lines = append(lines, "Component: "+c.ComponentName)
	}
	lines = append(lines,
		"Team: "+d.Team,
		"Escalated to: "+strings.Join(a.Escalation.Teams, ", "),
		"Time: "+a.Timestamp.UTC().Format("2006-01-02 15:04:05 UTC"),
	)
	return strings.Join(lines, "\n")
}

// Spoken is the short sentence read out on voice calls.
func Spoken(a models.AlertPayload) string {
	s := fmt.Sprintf("Priority %d medical platform alert. Category %s. %s.",
		int(a.Tier), strings.ReplaceAll(a.Category, "_", " "), a.Error.Message)
	if a.Escalation.PatientSafety {
		s += " Patient safety may be affected."
	}
	return s
}
