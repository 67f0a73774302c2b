package enrichment

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"medical-alert-service/internal/models"
)

const (
	redactedEmail = "[REDACTED_EMAIL]"
	redactedPhone = "[REDACTED_PHONE]"
	redactedID    = "[REDACTED_ID]"
)

var (
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	phonePattern = regexp.MustCompile(`(?:\+\d{1,3}[\s.\-]?)?(?:\(\d{2,5}\)[\s.\-]?|\d{2,5}[\s.\-])\d{3,4}[\s.\-]?\d{3,5}`)
	idPattern    = regexp.MustCompile(`\d{6,}`)

	// sessionPattern matches ids produced by SessionID.
	sessionPattern = regexp.MustCompile(`^sess_[0-9a-f]{16}$`)
)

// deniedFields are removed from free-form maps at any depth. Keys are compared
// after normalizeKey.
var deniedFields = map[string]struct{}{
	"patientid":            {},
	"userid":               {},
	"name":                 {},
	"firstname":            {},
	"lastname":             {},
	"fullname":             {},
	"email":                {},
	"emailaddress":         {},
	"phone":                {},
	"phonenumber":          {},
	"mobile":               {},
	"address":              {},
	"streetaddress":        {},
	"street":               {},
	"postalcode":           {},
	"zip":                  {},
	"dateofbirth":          {},
	"birthdate":            {},
	"dob":                  {},
	"insuranceid":          {},
	"insurancenumber":      {},
	"ssn":                  {},
	"socialsecuritynumber": {},
	"medicalrecordnumber":  {},
	"mrn":                  {},
}

func normalizeKey(k string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '_', '-', ' ', '.':
			return -1
		}
		return r
	}, strings.ToLower(k))
}

// IsDeniedField reports whether a free-form field name is dropped by the scrubber.
func IsDeniedField(key string) bool {
	_, ok := deniedFields[normalizeKey(key)]
	return ok
}

// RedactString replaces email, phone-number and long digit-run substrings.
func RedactString(s string) string {
	if s == "" {
		return s
	}
	s = emailPattern.ReplaceAllString(s, redactedEmail)
	s = phonePattern.ReplaceAllString(s, redactedPhone)
	return idPattern.ReplaceAllString(s, redactedID)
}

// ScrubValue walks v and returns a scrubbed copy: denied keys are removed from
// maps and every string leaf is redacted. Numbers whose integer part has six or
// more digits become the redacted id marker; other scalars are returned
// unchanged. Remaining composite values are normalized through their JSON form
// first and dropped if that fails.
func ScrubValue(v any) any {
	switch t := v.(type) {
	case nil, bool:
		return v
	case int:
		return scrubNumber(v, strconv.FormatInt(int64(t), 10))
	case int8:
		return scrubNumber(v, strconv.FormatInt(int64(t), 10))
	case int16:
		return scrubNumber(v, strconv.FormatInt(int64(t), 10))
	case int32:
		return scrubNumber(v, strconv.FormatInt(int64(t), 10))
	case int64:
		return scrubNumber(v, strconv.FormatInt(t, 10))
	case uint:
		return scrubNumber(v, strconv.FormatUint(uint64(t), 10))
	case uint8:
		return scrubNumber(v, strconv.FormatUint(uint64(t), 10))
	case uint16:
		return scrubNumber(v, strconv.FormatUint(uint64(t), 10))
	case uint32:
		return scrubNumber(v, strconv.FormatUint(uint64(t), 10))
	case uint64:
		return scrubNumber(v, strconv.FormatUint(t, 10))
	case float32:
		return scrubNumber(v, integerDigits(float64(t)))
	case float64:
		return scrubNumber(v, integerDigits(t))
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return RedactString(t.String())
		}
		return scrubNumber(v, integerDigits(f))
	case string:
		return RedactString(t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if IsDeniedField(k) {
				continue
			}
			out[k] = ScrubValue(val)
		}
		return out
	case map[string]string:
		out := make(map[string]string, len(t))
		for k, val := range t {
			if IsDeniedField(k) {
				continue
			}
			out[k] = RedactString(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = ScrubValue(val)
		}
		return out
	case []string:
		out := make([]string, len(t))
		for i, val := range t {
			out[i] = RedactString(val)
		}
		return out
	default:
		normalized, ok := normalize(v)
		if !ok {
			return nil
		}
		return ScrubValue(normalized)
	}
}

func scrubNumber(v any, digits string) any {
	if idPattern.MatchString(digits) {
		return redactedID
	}
	return v
}

// integerDigits renders the integer part of |f| in decimal.
func integerDigits(f float64) string {
	return strconv.FormatFloat(math.Trunc(math.Abs(f)), 'f', 0, 64)
}

func normalize(v any) (any, bool) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, false
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, false
	}
	return out, true
}

// Scrub returns c with every string field redacted and Extra scrubbed recursively.
// Session ids in the SessionID form are kept as is. Scrub is idempotent.
func Scrub(c models.Context) models.Context {
	if !sessionPattern.MatchString(c.SessionID) {
		c.SessionID = RedactString(c.SessionID)
	}
	c.Specialty = RedactString(c.Specialty)
	c.Persona = RedactString(c.Persona)
	c.JourneyStage = RedactString(c.JourneyStage)
	c.Route = RedactString(c.Route)
	c.ComponentName = RedactString(c.ComponentName)
	c.Language = RedactString(c.Language)
	if c.Device != nil {
		d := *c.Device
		d.Type = RedactString(d.Type)
		d.Viewport = RedactString(d.Viewport)
		d.ConnectionType = RedactString(d.ConnectionType)
		c.Device = &d
	}
	if c.Extra != nil {
		c.Extra = ScrubValue(c.Extra).(map[string]any)
	}
	return c
}
