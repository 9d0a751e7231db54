package services

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kubev2v/testrail-reporter/internal/config"
	"github.com/kubev2v/testrail-reporter/internal/models"
	srvErrors "github.com/kubev2v/testrail-reporter/pkg/errors"
	"github.com/kubev2v/testrail-reporter/pkg/scheduler"
)

// RunSubmission describes one batch accepted by TestRail.
type RunSubmission struct {
	RunID   int64
	Labels  []string
	Results int
}

// SyncReport summarizes one synchronization pass.
type SyncReport struct {
	SyncID    uuid.UUID
	PlanID    int64
	PlanURL   string
	RunID     int64
	Submitted []RunSubmission
	// Skipped holds the labels whose run could not be resolved.
	Skipped []string
	Closed  bool
}

type batch struct {
	runID   int64
	labels  []string
	results []models.CaseResult
}

// Orchestrator pushes the buffered results to TestRail at run end.
type Orchestrator struct {
	client   TrackingClient
	cfg      *config.Configuration
	resolver *PlanResolver
	syncID   uuid.UUID
}

func NewOrchestrator(client TrackingClient, cfg *config.Configuration, resolver *PlanResolver, syncID uuid.UUID) *Orchestrator {
	return &Orchestrator{
		client:   client,
		cfg:      cfg,
		resolver: resolver,
		syncID:   syncID,
	}
}

// Synchronize resolves the plan, submits one deduplicated batch per run and
// optionally closes the plan or run. The first failing call aborts the pass;
// batches accepted before it stay in TestRail and are listed in the report.
func (o *Orchestrator) Synchronize(ctx context.Context, buffer *ResultBuffer, labels []string) (*SyncReport, error) {
	log := zap.S().Named("orchestrator").With("sync_id", o.syncID.String())
	report := &SyncReport{SyncID: o.syncID}

	groups := buffer.GroupByConfiguration()
	if len(groups) == 0 {
		log.Info("no case results recorded, nothing to synchronize")
		return report, nil
	}

	batches, err := o.plan(ctx, buffer, groups, labels, report)
	if err != nil {
		return report, err
	}

	if err := o.submit(ctx, batches, report); err != nil {
		return report, err
	}

	if o.cfg.Submission.Close {
		if err := o.close(ctx, report); err != nil {
			return report, err
		}
	}

	log.Infow("synchronization finished",
		"plan_id", report.PlanID,
		"runs", len(report.Submitted),
		"skipped", report.Skipped,
		"closed", report.Closed)
	return report, nil
}

// plan resolves the target run of every label and merges labels sharing a run
// into one batch.
func (o *Orchestrator) plan(ctx context.Context, buffer *ResultBuffer, groups map[string][]models.CaseResult, labels []string, report *SyncReport) ([]*batch, error) {
	log := zap.S().Named("orchestrator")

	bufferLabels := make([]string, 0, len(groups))
	for label := range groups {
		bufferLabels = append(bufferLabels, label)
	}
	sort.Strings(bufferLabels)

	if o.cfg.Plan.Mode == config.PlanModeRun {
		run, err := o.resolver.CreateRun(ctx, buffer)
		if err != nil {
			return nil, err
		}
		report.RunID = run.ID
		b := &batch{runID: run.ID}
		for _, label := range bufferLabels {
			b.labels = append(b.labels, label)
			b.results = append(b.results, groups[label]...)
		}
		b.results = Dedupe(b.results)
		return []*batch{b}, nil
	}

	plan, err := o.resolver.Resolve(ctx, buffer, mergeLabels(labels, bufferLabels))
	if err != nil {
		return nil, err
	}
	report.PlanID = plan.ID
	report.PlanURL = plan.URL

	byRun := make(map[int64]*batch)
	var batches []*batch
	for _, label := range bufferLabels {
		run, err := RunFor(plan, label)
		if err != nil {
			log.Warnw("skipping results of configuration without run",
				"label", label, "plan_id", plan.ID, "results", len(groups[label]), "error", err)
			report.Skipped = append(report.Skipped, label)
			continue
		}
		b, ok := byRun[run.ID]
		if !ok {
			b = &batch{runID: run.ID}
			byRun[run.ID] = b
			batches = append(batches, b)
		}
		b.labels = append(b.labels, label)
		b.results = append(b.results, groups[label]...)
	}
	for _, b := range batches {
		b.results = Dedupe(b.results)
	}
	return batches, nil
}

func (o *Orchestrator) submit(ctx context.Context, batches []*batch, report *SyncReport) error {
	log := zap.S().Named("orchestrator")

	sched := scheduler.NewScheduler(o.cfg.Submission.Workers)
	defer sched.Close()

	// abortCtx is cancelled by the first failing batch before its future
	// resolves, so a worker picking up the next batch sees it.
	abortCtx, abort := context.WithCancel(ctx)
	defer abort()

	var (
		failOnce sync.Once
		failed   *batch
		failErr  error
	)

	futures := make([]*scheduler.Future[scheduler.Result[any]], 0, len(batches))
	for _, b := range batches {
		futures = append(futures, sched.AddWork(func(workCtx context.Context) (any, error) {
			if err := abortCtx.Err(); err != nil {
				log.Debugw("batch skipped after earlier failure", "run_id", b.runID)
				return nil, err
			}

			callCtx, cancel := context.WithCancel(ctx)
			defer cancel()
			stop := context.AfterFunc(workCtx, cancel)
			defer stop()

			log.Infow("submitting results", "run_id", b.runID, "labels", b.labels, "results", len(b.results))
			if err := o.client.AddResultsForCases(callCtx, b.runID, b.results); err != nil {
				failOnce.Do(func() {
					failed, failErr = b, err
					abort()
				})
				return nil, err
			}
			return nil, nil
		}))
	}

	var firstErr error
	for i, f := range futures {
		result := <-f.C()
		if result.Err != nil {
			if firstErr == nil {
				firstErr = srvErrors.NewSubmissionError("submit results", batches[i].runID, result.Err)
				for _, rest := range futures[i+1:] {
					rest.Stop()
				}
			}
			continue
		}
		report.Submitted = append(report.Submitted, RunSubmission{
			RunID:   batches[i].runID,
			Labels:  batches[i].labels,
			Results: len(batches[i].results),
		})
	}

	// a batch skipped by the abort may resolve before the one that failed
	if failed != nil {
		return srvErrors.NewSubmissionError("submit results", failed.runID, failErr)
	}
	return firstErr
}

func (o *Orchestrator) close(ctx context.Context, report *SyncReport) error {
	log := zap.S().Named("orchestrator")

	if report.RunID > 0 {
		if err := o.client.CloseRun(ctx, report.RunID); err != nil {
			return srvErrors.NewSubmissionError("close run", report.RunID, err)
		}
		log.Infow("closed TestRail run", "run_id", report.RunID)
		report.Closed = true
		return nil
	}

	if report.PlanID > 0 {
		if err := o.client.ClosePlan(ctx, report.PlanID); err != nil {
			return srvErrors.NewSubmissionError("close plan", 0, err)
		}
		log.Infow("closed TestRail plan", "plan_id", report.PlanID)
		report.Closed = true
	}
	return nil
}

// mergeLabels returns the configured labels followed by the recorded labels
// that were not configured. Labels differing only by case are kept once.
func mergeLabels(configured, recorded []string) []string {
	seen := make(map[string]bool, len(configured))
	out := make([]string, 0, len(configured)+len(recorded))
	for _, l := range append(append([]string{}, configured...), recorded...) {
		key := strings.ToLower(l)
		if !seen[key] {
			seen[key] = true
			out = append(out, l)
		}
	}
	return out
}
