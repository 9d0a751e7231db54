package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kubev2v/testrail-reporter/internal/config"
	"github.com/kubev2v/testrail-reporter/internal/models"
)

// Reporter observes the test execution lifecycle and synchronizes the results
// with TestRail when the run ends.
type Reporter struct {
	cfg          *config.Configuration
	extractor    *Extractor
	buffer       *ResultBuffer
	resolver     *PlanResolver
	orchestrator *Orchestrator
	syncID       uuid.UUID

	mu      sync.Mutex
	labels  []string
	dropped int
	report  *SyncReport
}

func NewReporter(cfg *config.Configuration, client TrackingClient) *Reporter {
	syncID := uuid.New()
	resolver := NewPlanResolver(client, cfg, syncID)
	return &Reporter{
		cfg:          cfg,
		extractor:    NewExtractor(cfg.Plan.ExtractMode),
		buffer:       NewResultBuffer(),
		resolver:     resolver,
		orchestrator: NewOrchestrator(client, cfg, resolver, syncID),
		syncID:       syncID,
	}
}

func (r *Reporter) SyncID() uuid.UUID {
	return r.syncID
}

func (r *Reporter) Buffer() *ResultBuffer {
	return r.buffer
}

func (r *Reporter) Resolver() *PlanResolver {
	return r.resolver
}

// Report returns the report of the last synchronization, nil before OnEnd.
func (r *Reporter) Report() *SyncReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.report
}

// OnBegin stores the execution configuration labels and validates the
// TestRail project. Labels default to the configured ones when the engine
// declares none.
func (r *Reporter) OnBegin(ctx context.Context, labels []string, totalTests int) error {
	if len(labels) == 0 {
		labels = r.cfg.Configurations
	}

	r.mu.Lock()
	r.labels = append([]string(nil), labels...)
	r.mu.Unlock()

	zap.S().Named("reporter").Infow("starting the run",
		"tests", totalTests,
		"configurations", labels,
		"sync_id", r.syncID.String())

	return r.resolver.Validate(ctx, labels)
}

// OnTestEnd records one case result per case id of the test. It may be called
// concurrently by several workers.
func (r *Reporter) OnTestEnd(tc models.TestCase, res models.TestResult) {
	log := zap.S().Named("reporter")

	ids := r.extractor.Extract(tc)
	if len(ids) == 0 {
		log.Debugw("test has no case id, not synchronized", "title", tc.Title)
		return
	}

	status, err := models.MapOutcome(res.Outcome)
	if err != nil {
		log.Errorw("dropping test result", "title", tc.Title, "label", tc.Label, "error", err)
		r.mu.Lock()
		r.dropped += len(ids)
		r.mu.Unlock()
		return
	}

	comment := fmt.Sprintf("Test: %s; Configuration: %s; Duration: %dms", tc.Title, tc.Label, res.Duration.Milliseconds())
	if res.Retry > 0 {
		comment += fmt.Sprintf("; Retry: %d", res.Retry)
	}
	for _, id := range ids {
		r.buffer.Record(tc.Label, models.CaseResult{
			CaseID:   id,
			StatusID: status,
			Comment:  comment,
		})
	}
}

// OnEnd seals the buffer and synchronizes it with TestRail.
func (r *Reporter) OnEnd(ctx context.Context, status models.RunStatus) error {
	r.buffer.Seal()

	r.mu.Lock()
	labels := r.labels
	dropped := r.dropped
	r.mu.Unlock()

	zap.S().Named("reporter").Infow("finished the run",
		"status", status,
		"results", r.buffer.Len(),
		"dropped", dropped)

	report, err := r.orchestrator.Synchronize(ctx, r.buffer, labels)

	r.mu.Lock()
	r.report = report
	r.mu.Unlock()

	return err
}
