package metrics

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medical-alert-service/internal/channels"
	"medical-alert-service/internal/models"
)

func TestCollector_Counts(t *testing.T) {
	c := NewCollector()
	c.ObserveAlert(models.P0, "emergency_component")
	c.ObserveAlert(models.P0, "emergency_component")
	c.ObserveDelivery("email", channels.OutcomeSuppressed)
	require.NoError(t, c.Publish(context.Background(), models.MonitoringEvent{Priority: models.P0}))

	assert.Equal(t, 2.0, testutil.ToFloat64(c.Alerts.WithLabelValues("P0", "emergency_component")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Deliveries.WithLabelValues("email", "suppressed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.MonitoringPings.WithLabelValues("P0")))
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector()
	c.ObserveDelivery("chat", channels.OutcomeDelivered)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `medical_deliveries_total{channel="chat",outcome="delivered"} 1`)
}
