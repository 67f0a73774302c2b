package models

import "fmt"

// ContactKind is the closed set of ways a team can be reached.
type ContactKind string

const (
	ContactEmail   ContactKind = "email"
	ContactVoice   ContactKind = "voice"
	ContactChat    ContactKind = "chat"
	ContactWebhook ContactKind = "webhook"
)

// ContactKinds lists every supported kind in a stable order.
var ContactKinds = []ContactKind{ContactEmail, ContactVoice, ContactChat, ContactWebhook}

// Valid reports whether k is one of the supported kinds.
func (k ContactKind) Valid() bool {
	for _, known := range ContactKinds {
		if k == known {
			return true
		}
	}
	return false
}

func (k *ContactKind) UnmarshalText(text []byte) error {
	kind := ContactKind(text)
	if !kind.Valid() {
		return fmt.Errorf("unknown contact kind %q", text)
	}
	*k = kind
	return nil
}

// ContactMethod is a single reachable address for a team.
type ContactMethod struct {
	Kind    ContactKind `json:"kind" yaml:"kind"`
	Target  string      `json:"target" yaml:"target"`
	Primary bool        `json:"primary,omitempty" yaml:"primary,omitempty"`
}

// Team is a named escalation group.
type Team struct {
	ID       string          `json:"id" yaml:"id"`
	Name     string          `json:"name" yaml:"name"`
	Contacts []ContactMethod `json:"contacts" yaml:"contacts"`
}

// PrimaryContact returns the contact marked primary, or the first listed one.
func (t Team) PrimaryContact() (ContactMethod, bool) {
	if len(t.Contacts) == 0 {
		return ContactMethod{}, false
	}
	for _, c := range t.Contacts {
		if c.Primary {
			return c, true
		}
	}
	return t.Contacts[0], true
}
