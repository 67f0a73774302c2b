// Package escalation runs submitted errors through classification,
// enrichment, tiered dispatch and archiving.
package escalation

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"medical-alert-service/internal/channels"
	"medical-alert-service/internal/enrichment"
	"medical-alert-service/internal/history"
	"medical-alert-service/internal/logging"
	"medical-alert-service/internal/models"
	"medical-alert-service/internal/monitoring"
	"medical-alert-service/internal/priority"
	"medical-alert-service/internal/taxonomy"
)

const (
	monitoringSource = "medical-alert-service"
	monitoringType   = "critical_medical_error"

	defaultQueueSize         = 500
	defaultMaxWorkers        = 10
	defaultSideEffectTimeout = 5 * time.Second
)

// IncidentStore receives the incident record of every P0 alert.
type IncidentStore interface {
	Store(ctx context.Context, inc models.Incident) error
}

// FallbackTrigger tells user-facing surfaces to switch to degraded mode.
type FallbackTrigger interface {
	TriggerFallback(category models.ErrorCategory, alert models.AlertPayload)
}

// Recorder counts archived alerts.
type Recorder interface {
	ObserveAlert(tier models.Tier, category string)
}

// Dependencies are the collaborators of a Service. Dispatcher, Directory and
// Logger are required; the rest may be nil.
type Dependencies struct {
	Dispatcher *channels.Dispatcher
	Directory  *taxonomy.Directory
	Collector  *enrichment.Collector
	Resolver   *priority.Resolver
	History    *history.History
	Monitor    monitoring.Sink
	Incidents  IncidentStore
	Fallback   FallbackTrigger
	Recorder   Recorder
	Clock      clock.Clock
	Logger     *logging.Logger
}

type Config struct {
	QueueSize         int
	MaxWorkers        int
	SideEffectTimeout time.Duration
}

// Result describes a fully processed submission.
type Result struct {
	Alert      models.AlertPayload `json:"alert"`
	State      State               `json:"state"`
	Trail      []State             `json:"trail"`
	Deliveries []channels.Result   `json:"deliveries"`
}

// Service processes submissions. Every accepted submission reaches the
// archive exactly once.
type Service struct {
	dispatcher *channels.Dispatcher
	directory  *taxonomy.Directory
	collector  *enrichment.Collector
	resolver   *priority.Resolver
	history    *history.History
	monitor    monitoring.Sink
	incidents  IncidentStore
	fallback   FallbackTrigger
	recorder   Recorder
	clock      clock.Clock
	logger     *logging.Logger
	config     Config

	tasks    chan models.Submission
	ctx      context.Context
	cancel   context.CancelFunc
	wg       *sync.WaitGroup
	workers  sync.WaitGroup
	overflow sync.WaitGroup
}

func New(deps Dependencies, cfg Config) *Service {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = defaultMaxWorkers
	}
	if cfg.SideEffectTimeout <= 0 {
		cfg.SideEffectTimeout = defaultSideEffectTimeout
	}
	if deps.Collector == nil {
		deps.Collector = enrichment.NewCollector(nil)
	}
	if deps.Resolver == nil {
		deps.Resolver = priority.NewResolver(nil)
	}
	if deps.History == nil {
		deps.History = history.New(history.DefaultCapacity)
	}
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		dispatcher: deps.Dispatcher,
		directory:  deps.Directory,
		collector:  deps.Collector,
		resolver:   deps.Resolver,
		history:    deps.History,
		monitor:    deps.Monitor,
		incidents:  deps.Incidents,
		fallback:   deps.Fallback,
		recorder:   deps.Recorder,
		clock:      deps.Clock,
		logger:     deps.Logger,
		config:     cfg,
		tasks:      make(chan models.Submission, cfg.QueueSize),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// History returns the archive of processed alerts.
func (s *Service) History() *history.History {
	return s.history
}

// Start launches the worker pool
func (s *Service) Start(wg *sync.WaitGroup) {
	s.wg = wg
	for i := 0; i < s.config.MaxWorkers; i++ {
		s.wg.Add(1)
		s.workers.Add(1)
		go s.worker(i)
	}
}

// Stop signals workers to finish the queued submissions and exit, then waits
// for them, for submissions that overflowed the queue and for pending fallback
// triggers. Callers should stop
// feeding SubmitError first.
func (s *Service) Stop() {
	s.cancel()
	s.workers.Wait()
	s.drain()
	s.overflow.Wait()
}

// SubmitError accepts a submission for asynchronous processing. It never
// blocks and never drops: when the queue is full the submission is processed
// on its own goroutine.
func (s *Service) SubmitError(sub models.Submission) {
	if s.ctx.Err() == nil {
		select {
		case s.tasks <- sub:
			return
		default:
			s.logger.Warnf("Queue full (%d), processing submission out of band", cap(s.tasks))
		}
	}
	s.overflow.Add(1)
	go func() {
		defer s.overflow.Done()
		s.Process(context.Background(), sub)
	}()
}

// worker processes submissions until the service is stopped, then drains
// whatever is still queued.
func (s *Service) worker(id int) {
	defer s.wg.Done()
	defer s.workers.Done()
	for {
		select {
		case <-s.ctx.Done():
			s.drain()
			s.logger.Debugf("Worker %d stopped", id)
			return
		case sub := <-s.tasks:
			s.Process(context.Background(), sub)
		}
	}
}

func (s *Service) drain() {
	for {
		select {
		case sub := <-s.tasks:
			s.Process(context.Background(), sub)
		default:
			return
		}
	}
}

// Process runs one submission through the whole pipeline and returns the
// archived alert with its delivery outcomes. Channel failures never stop the
// alert from being archived.
func (s *Service) Process(ctx context.Context, sub models.Submission) Result {
	lc := newLifecycle()
	now := s.clock.Now()
	alertID := newAlertID(now)
	log := s.logger.WithField("alert_id", alertID)
	step := func(next State) {
		if err := lc.advance(next); err != nil {
			log.Errorf("Lifecycle: %v", err)
			return
		}
		log.WithField("state", next.String()).Debug("Alert state changed")
	}

	category := taxonomy.Lookup(sub.Hints.Category)
	patientSafety := category.PatientSafetyImpact ||
		(sub.Hints.PatientSafetyImpact != nil && *sub.Hints.PatientSafetyImpact)
	step(StateClassified)

	alertCtx := s.collector.BuildContext(sub.Hints, sub.Environment)
	tier := s.resolver.Resolve(category.Code, alertCtx.Persona, alertCtx.Emergency)
	alert := models.AlertPayload{
		ID:        alertID,
		Timestamp: now,
		Tier:      tier,
		Category:  category.Code,
		Severity:  category.Severity,
		Error: models.ErrorSummary{
			Message:          enrichment.RedactString(sub.Error.Message),
			Name:             sub.Error.Name,
			CorrelationID:    sub.Error.CorrelationID,
			ReportedSeverity: sub.Hints.Severity,
		},
		Context: alertCtx,
		Escalation: models.Escalation{
			Teams:         s.escalationTeams(tier, category, patientSafety),
			Immediate:     tier == models.P0,
			PatientSafety: patientSafety,
		},
	}
	step(StateEnriched)

	step(StateDispatching)
	if tier == models.P0 && s.fallback != nil {
		s.triggerFallback(category, alert)
	}
	deliveries := s.dispatch(ctx, alert)
	if tier == models.P0 {
		s.criticalSideEffects(ctx, category, alert, deliveries)
	}

	archived := alert.Archived(s.clock.Now())
	s.history.Append(archived)
	step(StateArchived)
	if s.recorder != nil {
		s.recorder.ObserveAlert(tier, category.Code)
	}
	log.WithFields(logrus.Fields{
		"tier":       tier.String(),
		"category":   category.Code,
		"deliveries": len(deliveries),
		"delivered":  countOutcome(deliveries, channels.OutcomeDelivered),
	}).Info("Alert archived")

	return Result{Alert: archived, State: lc.state, Trail: lc.trail, Deliveries: deliveries}
}

// triggerFallback runs the category's fallback action alongside dispatch.
// Stop waits for it.
func (s *Service) triggerFallback(category models.ErrorCategory, alert models.AlertPayload) {
	s.overflow.Add(1)
	go func() {
		defer s.overflow.Done()
		s.fallback.TriggerFallback(category, alert)
	}()
}

// dispatch sends to every target concurrently and returns the outcomes in
// target order.
func (s *Service) dispatch(ctx context.Context, alert models.AlertPayload) []channels.Result {
	targets := s.targets(alert.ID, alert.Tier, alert.Escalation.Teams)
	results := make([]channels.Result, len(targets))
	var wg sync.WaitGroup
	for i, t := range targets {
		wg.Add(1)
		go func(i int, t target) {
			defer wg.Done()
			results[i] = s.dispatcher.Dispatch(ctx, t.channel, channels.Delivery{
				Alert:   alert,
				Team:    t.team,
				Contact: t.contact,
			})
		}(i, t)
	}
	wg.Wait()
	return results
}

func (s *Service) criticalSideEffects(ctx context.Context, category models.ErrorCategory, alert models.AlertPayload, deliveries []channels.Result) {
	log := s.logger.WithField("alert_id", alert.ID)
	if s.monitor != nil {
		ctx, cancel := context.WithTimeout(ctx, s.config.SideEffectTimeout)
		err := s.monitor.Publish(ctx, models.MonitoringEvent{
			Source:              monitoringSource,
			Type:                monitoringType,
			Priority:            alert.Tier,
			PatientSafetyImpact: alert.Escalation.PatientSafety,
			Timestamp:           alert.Timestamp,
			AlertID:             alert.ID,
		})
		cancel()
		if err != nil {
			log.Errorf("Monitoring ping failed: %v", err)
		}
	}
	if s.incidents != nil {
		ctx, cancel := context.WithTimeout(ctx, s.config.SideEffectTimeout)
		err := s.incidents.Store(ctx, buildIncident(category, alert, deliveries))
		cancel()
		if err != nil {
			log.Errorf("Incident creation failed: %v", err)
		}
	}
}

func buildIncident(category models.ErrorCategory, alert models.AlertPayload, deliveries []channels.Result) models.Incident {
	services := []string{category.Code}
	if c := alert.Context.ComponentName; c != "" {
		services = append(services, c)
	}
	var actions []string
	if category.FallbackAction != "" {
		actions = append(actions, "fallback:"+category.FallbackAction)
	}
	for _, d := range deliveries {
		actions = append(actions, fmt.Sprintf("%s:%s:%s", d.Outcome, d.Team, d.Channel))
	}
	return models.Incident{
		ID:                  "incident_" + strings.TrimPrefix(alert.ID, "alert_"),
		Title:               fmt.Sprintf("[%s] %s: %s", alert.Tier, category.Name, alert.Error.Message),
		Severity:            alert.Severity,
		Priority:            alert.Tier,
		PatientSafetyImpact: alert.Escalation.PatientSafety,
		AffectedServices:    services,
		MedicalSpecialty:    alert.Context.Specialty,
		Persona:             alert.Context.Persona,
		Timestamp:           alert.Timestamp,
		ResponseTeams:       append([]string(nil), alert.Escalation.Teams...),
		Status:              models.IncidentStatusOpen,
		Actions:             actions,
	}
}

func newAlertID(now time.Time) string {
	return fmt.Sprintf("alert_%d_%s", now.UnixMilli(), strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}

func countOutcome(results []channels.Result, o channels.Outcome) int {
	n := 0
	for _, r := range results {
		if r.Outcome == o {
			n++
		}
	}
	return n
}
