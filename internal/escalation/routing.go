package escalation

import (
	"github.com/sirupsen/logrus"

	"medical-alert-service/internal/models"
)

// channelForKind maps a contact kind to the dispatcher channel that serves it.
var channelForKind = map[models.ContactKind]string{
	models.ContactEmail:   "email",
	models.ContactVoice:   "voice",
	models.ContactChat:    "chat",
	models.ContactWebhook: "webhook",
}

type target struct {
	team    string
	contact models.ContactMethod
	channel string
}

// escalationTeams picks the team list for an alert. P0 goes to the
// directory's escalation set, everything else to the category defaults.
func (s *Service) escalationTeams(tier models.Tier, category models.ErrorCategory, patientSafety bool) []string {
	if tier == models.P0 {
		return s.directory.EscalationSet(patientSafety)
	}
	return append([]string(nil), category.DefaultEscalationTeams...)
}

// targets expands teams into concrete deliveries for the tier's strategy:
// P0 reaches every contact of every team, P1 the primary contact of every
// team, P2 and P3 only the primary contact of the first team.
func (s *Service) targets(alertID string, tier models.Tier, teams []string) []target {
	if tier >= models.P2 && len(teams) > 1 {
		teams = teams[:1]
	}
	var out []target
	for _, id := range teams {
		team, ok := s.directory.Team(id)
		if !ok {
			s.logger.WithFields(logrus.Fields{"alert_id": alertID, "team": id}).Warn("Escalation team not in directory")
			continue
		}
		var contacts []models.ContactMethod
		if tier == models.P0 {
			contacts = team.Contacts
		} else if c, ok := team.PrimaryContact(); ok {
			contacts = []models.ContactMethod{c}
		}
		if len(contacts) == 0 {
			s.logger.WithFields(logrus.Fields{"alert_id": alertID, "team": id}).Warn("Escalation team has no contacts")
		}
		for _, c := range contacts {
			out = append(out, target{team: id, contact: c, channel: channelForKind[c.Kind]})
		}
	}
	return out
}
