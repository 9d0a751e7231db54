// Package services implements the result aggregation and TestRail
// synchronization logic of the reporter.
//
// # Architecture Overview
//
//	Execution engine (internal/engine)
//	    │  OnBegin / OnTestEnd / OnEnd
//	    ▼
//	Reporter
//	    ├── Extractor ──────► case ids from annotations or title
//	    ├── MapOutcome ─────► TestRail status (internal/models)
//	    ├── ResultBuffer ───► (label, CaseResult) in recording order
//	    └── Orchestrator ───► PlanResolver ──► TrackingClient (pkg/testrail)
//
// Data flows one way: test end events fill the buffer, the run end reads it
// once and pushes one batch per TestRail run.
//
// # Extractor
//
// Case ids are read from annotations typed "testRailId" or from the part of
// the title after "=>":
//
//	"checkout works => 1201 C1202"   → [1201, 1202]
//	"checkout works"                 → []   (not synchronized)
//
// Invalid tokens and descriptions are skipped. In auto mode annotations win.
//
// # ResultBuffer
//
// Record is guarded by a mutex so test end events may come from parallel
// workers. Seal is called at run end; later records are dropped with a
// warning. Dedupe keeps the last recorded result of each case id.
//
// # PlanResolver
//
// State Machine:
//
//	┌────────┐  plan id configured   ┌──────────┐
//	│ NoPlan │──────────────────────►│ Attached │
//	└────────┘                       └──────────┘
//	     │
//	     │ no plan id
//	     ▼
//	┌──────────┐    add_plan    ┌─────────┐
//	│ Creating │───────────────►│ Created │
//	└──────────┘                └─────────┘
//
// Begin phase (Validate):
//   - get_project must succeed
//   - with SingleSuite, the project must have at most one suite
//   - with a plan id, the plan is fetched here so a bad id aborts before tests run
//   - otherwise the config group ("web browsers") must exist and contain the labels
//
// End phase (Resolve):
//   - the suite is looked up by name; when missing the default suite id is used
//     and a warning is logged
//   - the plan has one entry with one run per label known to the config group
//   - runs include every case of the suite or only the recorded ones (IncludeAll)
//
// RunFor matches the run "config" field against a label, ignoring case.
//
// # Orchestrator
//
//  1. Resolve the plan (or create the standalone run in run mode).
//  2. Resolve the run of each recorded label. A label without run is skipped
//     with a warning and reported in SyncReport.Skipped.
//  3. Merge labels resolving to the same run, dedupe, and submit one batch per
//     run through pkg/scheduler. One worker keeps the submissions sequential.
//  4. Close the plan or run when Submission.Close is set.
//
// Any failing TestRail call aborts the pass with a SubmissionError. Batches
// accepted before the failure are not rolled back.
//
// Usage:
//
//	reporter := services.NewReporter(cfg, client)
//	if err := reporter.OnBegin(ctx, []string{"Chrome", "Firefox"}, 12); err != nil {
//	    return err
//	}
//	reporter.OnTestEnd(testCase, testResult)
//	err := reporter.OnEnd(ctx, models.RunStatusPassed)
//	report := reporter.Report()
package services
