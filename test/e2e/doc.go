/*
Package main provides the end-to-end tests of the testrail-reporter binary.

# Package Structure

	test/e2e/
	├── main.go   Entry point: flags, binary build with gexec, Ginkgo runner
	├── tests.go  Ginkgo specs running "testrail-reporter sync" against a fake TestRail
	└── doc.go    This file

# Running

	go run ./test/e2e                       # builds the reporter first
	go run ./test/e2e -binary ./bin/testrail-reporter

Every spec starts a fresh in-process fake TestRail (test/fakerail) on an
httptest server and runs the binary as a child process with a clean
environment. The specs assert on the exit code, the printed summary and the
calls recorded by the fake:

	┌──────────────────────┐  HTTP basic auth  ┌──────────────────┐
	│  testrail-reporter   │──────────────────▶│  fakerail.Server │
	│  (gexec session)     │                   │  (httptest)      │
	└──────────────────────┘                   └──────────────────┘

Exit codes checked: 0 success or disabled, 2 configuration, 3 validation,
4 submission.
*/
package main
