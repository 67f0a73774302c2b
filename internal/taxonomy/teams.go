package taxonomy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"medical-alert-service/internal/models"
)

// Directory resolves escalation team ids to teams and holds the P0 escalation sets.
type Directory struct {
	teams              map[string]models.Team
	PatientSafetyTeams []string
	CriticalTeams      []string
}

type directoryFile struct {
	Teams              []models.Team `yaml:"teams"`
	PatientSafetyTeams []string      `yaml:"patient_safety_teams"`
	CriticalTeams      []string      `yaml:"critical_teams"`
}

// NewDirectory builds a directory from a list of teams.
func NewDirectory(teams []models.Team, patientSafety, critical []string) *Directory {
	d := &Directory{
		teams:              make(map[string]models.Team, len(teams)),
		PatientSafetyTeams: patientSafety,
		CriticalTeams:      critical,
	}
	for _, t := range teams {
		d.teams[t.ID] = t
	}
	return d
}

// Team returns the team registered under id.
func (d *Directory) Team(id string) (models.Team, bool) {
	t, ok := d.teams[id]
	return t, ok
}

// EscalationSet returns the P0 team list.
func (d *Directory) EscalationSet(patientSafety bool) []string {
	if patientSafety {
		return append([]string(nil), d.PatientSafetyTeams...)
	}
	return append([]string(nil), d.CriticalTeams...)
}

// LoadDirectory reads a YAML team directory file.
func LoadDirectory(path string) (*Directory, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read team directory %s: %w", path, err)
	}
	var f directoryFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse team directory %s: %w", path, err)
	}
	for _, t := range f.Teams {
		if t.ID == "" {
			return nil, fmt.Errorf("team directory %s: team without id", path)
		}
		for _, c := range t.Contacts {
			if !c.Kind.Valid() {
				return nil, fmt.Errorf("team %s: unknown contact kind %q", t.ID, c.Kind)
			}
		}
	}
	def := DefaultDirectory()
	if len(f.PatientSafetyTeams) == 0 {
		f.PatientSafetyTeams = def.PatientSafetyTeams
	}
	if len(f.CriticalTeams) == 0 {
		f.CriticalTeams = def.CriticalTeams
	}
	return NewDirectory(f.Teams, f.PatientSafetyTeams, f.CriticalTeams), nil
}

// DefaultDirectory is the built-in directory used when no TEAMS_FILE is configured.
func DefaultDirectory() *Directory {
	teams := []models.Team{
		{
			ID:   "medical_safety",
			Name: "Medical Safety Board",
			Contacts: []models.ContactMethod{
				{Kind: models.ContactVoice, Target: "+15550100100", Primary: true},
				{Kind: models.ContactEmail, Target: "medical-safety@clinic.example"},
				{Kind: models.ContactChat, Target: "-1001000000001"},
			},
		},
		{
			ID:   "clinical_operations",
			Name: "Clinical Operations",
			Contacts: []models.ContactMethod{
				{Kind: models.ContactEmail, Target: "clinical-ops@clinic.example", Primary: true},
				{Kind: models.ContactChat, Target: "-1001000000002"},
			},
		},
		{
			ID:   "engineering_oncall",
			Name: "Engineering On-Call",
			Contacts: []models.ContactMethod{
				{Kind: models.ContactWebhook, Target: "https://oncall.clinic.example/hooks/alerts", Primary: true},
				{Kind: models.ContactChat, Target: "-1001000000003"},
				{Kind: models.ContactVoice, Target: "+15550100300"},
			},
		},
		{
			ID:   "compliance",
			Name: "Compliance Office",
			Contacts: []models.ContactMethod{
				{Kind: models.ContactEmail, Target: "compliance@clinic.example"},
			},
		},
		{
			ID:   "frontend",
			Name: "Frontend Team",
			Contacts: []models.ContactMethod{
				{Kind: models.ContactChat, Target: "-1001000000005", Primary: true},
				{Kind: models.ContactEmail, Target: "frontend@clinic.example"},
			},
		},
		{
			ID:   "platform",
			Name: "Platform Team",
			Contacts: []models.ContactMethod{
				{Kind: models.ContactWebhook, Target: "https://platform.clinic.example/hooks/alerts", Primary: true},
				{Kind: models.ContactEmail, Target: "platform@clinic.example"},
			},
		},
		{
			ID:   "customer_support",
			Name: "Patient Support Desk",
			Contacts: []models.ContactMethod{
				{Kind: models.ContactEmail, Target: "support@clinic.example", Primary: true},
			},
		},
	}
	return NewDirectory(
		teams,
		[]string{"medical_safety", "clinical_operations", "engineering_oncall", "compliance"},
		[]string{"engineering_oncall", "platform"},
	)
}
