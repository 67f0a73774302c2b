// Package enrichment builds the anonymized situational context attached to alerts.
package enrichment

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"

	"medical-alert-service/internal/models"
)

// Collector builds scrubbed contexts. It holds no mutable state.
type Collector struct {
	detector Detector
}

// NewCollector returns a collector using d, or the keyword detector when d is nil.
func NewCollector(d Detector) *Collector {
	if d == nil {
		d = NewKeywordDetector()
	}
	return &Collector{detector: d}
}

// BuildContext resolves every field independently, then scrubs the result.
func (c *Collector) BuildContext(h models.Hints, env models.Environment) models.Context {
	emergency := c.detector.Emergency(h, env)
	ctx := models.Context{
		SessionID:     SessionID(h.SessionID),
		Specialty:     c.detector.Specialty(h, env),
		Persona:       c.detector.Persona(h, env, emergency),
		JourneyStage:  c.detector.JourneyStage(h, env, emergency),
		Emergency:     emergency,
		Route:         firstNonEmpty(h.Route, env.Route),
		ComponentName: firstNonEmpty(h.ComponentName, env.ComponentName),
		Language:      env.Language,
		Device:        deviceContext(env),
		Accessibility: accessibilityContext(env),
		Extra:         h.Extra,
	}
	return Scrub(ctx)
}

// SessionID returns an opaque id. A caller-supplied id is hashed so the raw value never leaves the process.
func SessionID(hint string) string {
	if hint != "" {
		sum := sha256.Sum256([]byte(hint))
		return "sess_" + hex.EncodeToString(sum[:8])
	}
	return "sess_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func deviceContext(env models.Environment) *models.DeviceContext {
	if env.UserAgent == "" && env.Viewport == "" && env.ConnectionType == "" && env.Online == nil {
		return nil
	}
	return &models.DeviceContext{
		Type:           deviceType(env.UserAgent),
		Viewport:       env.Viewport,
		ConnectionType: env.ConnectionType,
		Online:         env.Online,
	}
}

func deviceType(ua string) string {
	ua = strings.ToLower(ua)
	switch {
	case ua == "":
		return ""
	case strings.Contains(ua, "ipad") || strings.Contains(ua, "tablet"):
		return "tablet"
	case strings.Contains(ua, "mobi") || strings.Contains(ua, "iphone") || strings.Contains(ua, "android"):
		return "mobile"
	default:
		return "desktop"
	}
}

func accessibilityContext(env models.Environment) *models.AccessibilityContext {
	if env.ScreenReader == nil && env.ReducedMotion == nil && env.HighContrast == nil && env.FontScale == nil {
		return nil
	}
	return &models.AccessibilityContext{
		ScreenReader:  env.ScreenReader,
		ReducedMotion: env.ReducedMotion,
		HighContrast:  env.HighContrast,
		FontScale:     env.FontScale,
	}
}
