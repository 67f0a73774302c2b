package escalation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medical-alert-service/internal/channels"
	"medical-alert-service/internal/logging"
	"medical-alert-service/internal/models"
	"medical-alert-service/internal/ratelimit"
	"medical-alert-service/internal/taxonomy"
)

type recorder struct {
	mu    sync.Mutex
	calls []channels.Delivery
}

func (r *recorder) Handle(_ context.Context, d channels.Delivery) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, d)
	return nil
}

func (r *recorder) targets() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, d := range r.calls {
		out = append(out, d.Team+"/"+d.Contact.Target)
	}
	sort.Strings(out)
	return out
}

type fallbackSpy struct {
	mu     sync.Mutex
	calls  []string
	alerts []models.AlertPayload
}

func (f *fallbackSpy) TriggerFallback(c models.ErrorCategory, a models.AlertPayload) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c.FallbackAction)
	f.alerts = append(f.alerts, a)
}

func (f *fallbackSpy) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type blockingFallback struct {
	release chan struct{}
	done    chan struct{}
}

func (b *blockingFallback) TriggerFallback(models.ErrorCategory, models.AlertPayload) {
	<-b.release
	close(b.done)
}

type monitorSpy struct {
	mu     sync.Mutex
	events []models.MonitoringEvent
}

func (m *monitorSpy) Publish(_ context.Context, e models.MonitoringEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

type incidentSpy struct {
	mu        sync.Mutex
	incidents []models.Incident
}

func (s *incidentSpy) Store(_ context.Context, inc models.Incident) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.incidents = append(s.incidents, inc)
	return nil
}

type alertCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

func (a *alertCounter) ObserveAlert(tier models.Tier, category string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.counts == nil {
		a.counts = map[string]int{}
	}
	a.counts[tier.String()+"/"+category]++
}

type harness struct {
	svc       *Service
	clock     *clock.Mock
	handler   *recorder
	fallback  *fallbackSpy
	monitor   *monitorSpy
	incidents *incidentSpy
	counter   *alertCounter
	limiter   *ratelimit.Limiter
	dispatch  *channels.Dispatcher
}

func newHarness(t *testing.T, cfg Config, dir *taxonomy.Directory) *harness {
	t.Helper()
	if dir == nil {
		dir = taxonomy.DefaultDirectory()
	}
	h := &harness{
		clock:     clock.NewMock(),
		handler:   &recorder{},
		fallback:  &fallbackSpy{},
		monitor:   &monitorSpy{},
		incidents: &incidentSpy{},
		counter:   &alertCounter{},
		limiter:   ratelimit.New(nil),
	}
	h.clock.Set(time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC))
	logger := logging.NewNop()
	h.dispatch = channels.New(h.limiter, logger, channels.WithClock(h.clock), channels.WithTimeout(time.Second))
	for _, id := range []string{"email", "voice", "chat", "webhook"} {
		h.dispatch.Register(id, h.handler)
	}
	h.svc = New(Dependencies{
		Dispatcher: h.dispatch,
		Directory:  dir,
		Monitor:    h.monitor,
		Incidents:  h.incidents,
		Fallback:   h.fallback,
		Recorder:   h.counter,
		Clock:      h.clock,
		Logger:     logger,
	}, cfg)
	return h
}

func boolPtr(b bool) *bool { return &b }

func submission(category, persona string, emergency bool) models.Submission {
	return models.Submission{
		Error: models.ErrorReport{Message: "component crashed", Name: "Error"},
		Hints: models.Hints{
			Category:      category,
			PersonaHint:   persona,
			EmergencyHint: boolPtr(emergency),
		},
	}
}

func outcomes(results []channels.Result) map[channels.Outcome]int {
	out := map[channels.Outcome]int{}
	for _, r := range results {
		out[r.Outcome]++
	}
	return out
}

func TestProcess_EmergencyComponentIsP0(t *testing.T) {
	h := newHarness(t, Config{}, nil)

	res := h.svc.Process(context.Background(), submission("emergency_component", models.PersonaPatient, true))

	assert.Equal(t, models.P0, res.Alert.Tier)
	assert.Equal(t, StateArchived, res.State)
	assert.Equal(t, []State{StateReceived, StateClassified, StateEnriched, StateDispatching, StateArchived}, res.Trail)
	assert.Equal(t, models.PersonaEmergencyUser, res.Alert.Context.Persona)
	assert.True(t, res.Alert.Escalation.Immediate)
	assert.True(t, res.Alert.Escalation.PatientSafety)
	assert.Equal(t, []string{"medical_safety", "clinical_operations", "engineering_oncall", "compliance"}, res.Alert.Escalation.Teams)

	require.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]string{"show_cached_emergency_info"}, h.fallback.Calls())
	}, time.Second, 5*time.Millisecond)

	var want []string
	dir := taxonomy.DefaultDirectory()
	for _, id := range dir.PatientSafetyTeams {
		team, ok := dir.Team(id)
		require.True(t, ok)
		for _, c := range team.Contacts {
			want = append(want, id+"/"+c.Target)
		}
	}
	sort.Strings(want)
	assert.Equal(t, want, h.handler.targets())
	assert.Equal(t, len(want), outcomes(res.Deliveries)[channels.OutcomeDelivered])

	require.Len(t, h.monitor.events, 1)
	ev := h.monitor.events[0]
	assert.Equal(t, res.Alert.ID, ev.AlertID)
	assert.Equal(t, models.P0, ev.Priority)
	assert.True(t, ev.PatientSafetyImpact)
	assert.Equal(t, "critical_medical_error", ev.Type)

	require.Len(t, h.incidents.incidents, 1)
	inc := h.incidents.incidents[0]
	assert.Equal(t, models.IncidentStatusOpen, inc.Status)
	assert.True(t, strings.HasPrefix(inc.ID, "incident_"))
	assert.Equal(t, res.Alert.Escalation.Teams, inc.ResponseTeams)
	assert.Contains(t, inc.Actions, "fallback:show_cached_emergency_info")

	snap := h.svc.History().Snapshot()
	require.Len(t, snap, 1)
	assert.True(t, snap[0].Processed)
	require.NotNil(t, snap[0].ProcessedAt)
	assert.Equal(t, 1, h.counter.counts["P0/emergency_component"])
}

func TestProcess_PerformanceIsP3FirstTeamPrimaryOnly(t *testing.T) {
	h := newHarness(t, Config{}, nil)

	res := h.svc.Process(context.Background(), submission("performance", models.PersonaPatient, false))

	assert.Equal(t, models.P3, res.Alert.Tier)
	assert.False(t, res.Alert.Escalation.Immediate)
	assert.Equal(t, []string{"frontend/-1001000000005"}, h.handler.targets())
	require.Len(t, res.Deliveries, 1)
	assert.Equal(t, "chat", res.Deliveries[0].Channel)

	assert.Empty(t, h.fallback.Calls())
	assert.Empty(t, h.monitor.events)
	assert.Empty(t, h.incidents.incidents)
	assert.Equal(t, StateArchived, res.State)
}

func TestProcess_P1NotifiesPrimaryOfEveryTeam(t *testing.T) {
	h := newHarness(t, Config{}, nil)

	res := h.svc.Process(context.Background(), submission("booking_system", models.PersonaPatient, false))

	assert.Equal(t, models.P1, res.Alert.Tier)
	assert.Equal(t, []string{
		"customer_support/support@clinic.example",
		"engineering_oncall/https://oncall.clinic.example/hooks/alerts",
	}, h.handler.targets())
}

func TestProcess_EmergencyWithoutPatientSafetyUsesCriticalTeams(t *testing.T) {
	h := newHarness(t, Config{}, nil)

	res := h.svc.Process(context.Background(), submission("performance", models.PersonaPatient, true))

	assert.Equal(t, models.P0, res.Alert.Tier)
	assert.False(t, res.Alert.Escalation.PatientSafety)
	assert.Equal(t, []string{"engineering_oncall", "platform"}, res.Alert.Escalation.Teams)
	assert.Len(t, res.Deliveries, 5)
}

func TestProcess_PatientSafetyHintSelectsSafetyTeams(t *testing.T) {
	h := newHarness(t, Config{}, nil)
	sub := submission("performance", models.PersonaPatient, true)
	sub.Hints.PatientSafetyImpact = boolPtr(true)

	res := h.svc.Process(context.Background(), sub)

	assert.True(t, res.Alert.Escalation.PatientSafety)
	assert.Equal(t, taxonomy.DefaultDirectory().PatientSafetyTeams, res.Alert.Escalation.Teams)
}

func TestProcess_FailingChannelDoesNotBlockOthers(t *testing.T) {
	h := newHarness(t, Config{}, nil)
	h.dispatch.Register("voice", channels.HandlerFunc(func(context.Context, channels.Delivery) error {
		return errors.New("carrier unavailable")
	}))

	res := h.svc.Process(context.Background(), submission("emergency_component", models.PersonaPatient, true))

	got := map[string]channels.Outcome{}
	for _, r := range res.Deliveries {
		if r.Outcome == channels.OutcomeFailed {
			assert.Equal(t, "voice", r.Channel)
			assert.Error(t, r.Err)
		}
		got[r.Channel] = r.Outcome
	}
	assert.Equal(t, channels.OutcomeFailed, got["voice"])
	assert.Equal(t, channels.OutcomeDelivered, got["email"])
	assert.Equal(t, channels.OutcomeDelivered, got["chat"])
	assert.Equal(t, channels.OutcomeDelivered, got["webhook"])
	assert.Equal(t, StateArchived, res.State)
	assert.Equal(t, 1, h.svc.History().Len())
}

func TestProcess_FansOutConcurrently(t *testing.T) {
	h := newHarness(t, Config{}, nil)
	const want = 9 // contacts in the patient-safety set
	var (
		mu      sync.Mutex
		arrived int
		all     = make(chan struct{})
	)
	barrier := channels.HandlerFunc(func(ctx context.Context, _ channels.Delivery) error {
		mu.Lock()
		arrived++
		if arrived == want {
			close(all)
		}
		mu.Unlock()
		select {
		case <-all:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	for _, id := range []string{"email", "voice", "chat", "webhook"} {
		h.dispatch.Register(id, barrier)
	}

	res := h.svc.Process(context.Background(), submission("emergency_component", "", true))

	require.Len(t, res.Deliveries, want)
	assert.Equal(t, want, outcomes(res.Deliveries)[channels.OutcomeDelivered])
}

func TestProcess_StalledFallbackDoesNotDelayPaging(t *testing.T) {
	h := newHarness(t, Config{}, nil)
	bf := &blockingFallback{release: make(chan struct{}), done: make(chan struct{})}
	h.svc.fallback = bf

	finished := make(chan Result, 1)
	go func() {
		finished <- h.svc.Process(context.Background(), submission("emergency_component", models.PersonaPatient, true))
	}()

	var res Result
	select {
	case res = <-finished:
	case <-time.After(time.Second):
		t.Fatal("Process waited on the fallback trigger")
	}
	assert.Equal(t, StateArchived, res.State)
	assert.Equal(t, len(res.Deliveries), outcomes(res.Deliveries)[channels.OutcomeDelivered])

	stopped := make(chan struct{})
	go func() {
		h.svc.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
		t.Fatal("Stop returned before the fallback trigger finished")
	case <-time.After(20 * time.Millisecond):
	}

	close(bf.release)
	<-bf.done
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return after the fallback trigger finished")
	}
}

func TestProcess_RateLimitedDeliveriesAreSuppressed(t *testing.T) {
	h := newHarness(t, Config{}, nil)
	h.limiter.Configure("chat", ratelimit.Limit{Limit: 1, Window: time.Minute})

	first := h.svc.Process(context.Background(), submission("performance", "", false))
	second := h.svc.Process(context.Background(), submission("performance", "", false))

	assert.Equal(t, channels.OutcomeDelivered, first.Deliveries[0].Outcome)
	assert.Equal(t, channels.OutcomeSuppressed, second.Deliveries[0].Outcome)
	assert.Equal(t, 2, h.svc.History().Len())

	h.clock.Add(time.Minute)
	third := h.svc.Process(context.Background(), submission("performance", "", false))
	assert.Equal(t, channels.OutcomeDelivered, third.Deliveries[0].Outcome)
}

func TestProcess_UnknownCategoryUsesDefault(t *testing.T) {
	h := newHarness(t, Config{}, nil)

	res := h.svc.Process(context.Background(), submission("no_such_category", "", false))

	assert.Equal(t, taxonomy.DefaultCategoryCode, res.Alert.Category)
	assert.Equal(t, models.P3, res.Alert.Tier)
	assert.Equal(t, StateArchived, res.State)
}

func TestProcess_ReportedSeverityIsRecordedOnly(t *testing.T) {
	h := newHarness(t, Config{}, nil)
	sub := submission("performance", models.PersonaPatient, false)
	sub.Hints.Severity = models.SeverityCritical

	res := h.svc.Process(context.Background(), sub)

	assert.Equal(t, models.P3, res.Alert.Tier)
	assert.Equal(t, models.SeverityCritical, res.Alert.Error.ReportedSeverity)
	assert.Equal(t, models.SeverityLow, res.Alert.Severity)
}

func TestProcess_RedactsErrorMessage(t *testing.T) {
	h := newHarness(t, Config{}, nil)
	sub := submission("performance", "", false)
	sub.Error.Message = "lookup failed for jane.doe@example.com"

	res := h.svc.Process(context.Background(), sub)

	assert.Equal(t, "lookup failed for [REDACTED_EMAIL]", res.Alert.Error.Message)
}

func TestProcess_MissingTeamIsSkipped(t *testing.T) {
	dir := taxonomy.NewDirectory(nil, nil, nil)
	h := newHarness(t, Config{}, dir)

	res := h.svc.Process(context.Background(), submission("performance", "", false))

	assert.Empty(t, res.Deliveries)
	assert.Equal(t, StateArchived, res.State)
	assert.Equal(t, 1, h.svc.History().Len())
}

func TestProcess_AlertIDsAreUnique(t *testing.T) {
	h := newHarness(t, Config{}, nil)
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		res := h.svc.Process(context.Background(), submission("performance", "", false))
		require.False(t, seen[res.Alert.ID], "duplicate id %s", res.Alert.ID)
		seen[res.Alert.ID] = true
		assert.True(t, strings.HasPrefix(res.Alert.ID, fmt.Sprintf("alert_%d_", h.clock.Now().UnixMilli())))
	}
}

func TestSubmitError_WorkersArchiveEverything(t *testing.T) {
	h := newHarness(t, Config{QueueSize: 8, MaxWorkers: 4}, nil)
	var wg sync.WaitGroup
	h.svc.Start(&wg)

	for i := 0; i < 60; i++ {
		h.svc.SubmitError(submission("performance", "", false))
	}
	h.svc.Stop()
	wg.Wait()

	assert.Equal(t, 60, h.svc.History().Len())
}

func TestSubmitError_FullQueueNeverDrops(t *testing.T) {
	h := newHarness(t, Config{QueueSize: 1, MaxWorkers: 1}, nil)

	for i := 0; i < 5; i++ {
		h.svc.SubmitError(submission("search", "", false))
	}
	h.svc.Stop()

	assert.Equal(t, 5, h.svc.History().Len())
}

func TestLifecycle_ForwardOnly(t *testing.T) {
	lc := newLifecycle()
	require.NoError(t, lc.advance(StateClassified))
	assert.Error(t, lc.advance(StateReceived))
	assert.Error(t, lc.advance(StateDispatching))
	require.NoError(t, lc.advance(StateEnriched))
	assert.Equal(t, StateEnriched, lc.state)
}
