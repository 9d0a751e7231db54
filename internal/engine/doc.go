// Package engine adapts test execution engines to the reporter lifecycle.
//
// An engine source drives a Listener through three callbacks:
//
//	OnBegin(labels, total) ──► OnTestEnd(test, attempt) ... ──► OnEnd(status)
//
// Two sources are provided:
//
//   - Playwright replays a Playwright JSON report. Project names become the
//     configuration labels. Tests are delivered concurrently on an errgroup,
//     the attempts of a single test in order.
//   - GoTest replays a go test -json stream under one fixed label.
package engine
