package models

import "fmt"

// Tier is the urgency classification of an alert.
type Tier int

const (
	P0 Tier = iota
	P1
	P2
	P3
)

var tierNames = [...]string{"P0", "P1", "P2", "P3"}

func (t Tier) String() string {
	if t >= P0 && t <= P3 {
		return tierNames[t]
	}
	return "unknown"
}

func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Tier) UnmarshalText(text []byte) error {
	tier, err := ParseTier(string(text))
	if err != nil {
		return err
	}
	*t = tier
	return nil
}

// ParseTier converts "P0".."P3" into a Tier.
func ParseTier(s string) (Tier, error) {
	for i, name := range tierNames {
		if name == s {
			return Tier(i), nil
		}
	}
	return P3, fmt.Errorf("unknown tier %q", s)
}

// TierForSeverity is the fallback used when the priority matrix has no entry.
func TierForSeverity(s Severity) Tier {
	switch s {
	case SeverityCritical:
		return P0
	case SeverityHigh:
		return P1
	case SeverityMedium:
		return P2
	default:
		return P3
	}
}
