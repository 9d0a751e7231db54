// Package scheduler implements a small worker pool returning futures.
//
// The orchestrator uses it to push one result batch per TestRail run. A
// scheduler created with one worker executes the batches strictly in the order
// they were added; with more workers batches for different runs are sent
// concurrently. Work for a single run is always a single unit, so submissions
// to the same run are never interleaved.
//
//	┌──────────────────────────────────────────────────────────┐
//	│                        Scheduler                         │
//	│                                                          │
//	│   AddWork(fn) ──► work chan ──► run() ──► workQueue      │
//	│                                   │                      │
//	│                                   ▼                      │
//	│                              dispatch()                  │
//	│                                   │                      │
//	│                    ┌──────────────┼──────────────┐       │
//	│                    ▼              ▼              ▼       │
//	│                worker 1       worker 2       worker N    │
//	│                    │              │              │       │
//	│                    └──────── done chan ──────────┘       │
//	└──────────────────────────────────────────────────────────┘
//
// Every future receives exactly one Result:
//   - the value and error returned by the work function,
//   - an error if the work function panicked,
//   - context.Canceled if the future was stopped before the work started,
//     or if the scheduler was closed while the work was still queued.
//
// Usage:
//
//	sched := scheduler.NewScheduler(1)
//	defer sched.Close()
//
//	future := sched.AddWork(func(ctx context.Context) (any, error) {
//	    return nil, client.AddResultsForCases(ctx, runID, batch)
//	})
//	result := <-future.C()
//	if result.Err != nil {
//	    // fail fast: stop the remaining futures
//	}
package scheduler
