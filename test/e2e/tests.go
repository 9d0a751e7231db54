package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/gbytes"
	"github.com/onsi/gomega/gexec"

	v2 "github.com/kubev2v/testrail-reporter/api/v2"
	"github.com/kubev2v/testrail-reporter/test/fakerail"
)

const report = `{
  "config": {"projects": [{"name": "Chrome"}, {"name": "Firefox"}]},
  "suites": [{
    "title": "login.spec.ts",
    "specs": [
      {"title": "logs in => 501", "tests": [
        {"projectName": "Chrome", "status": "flaky", "results": [
          {"status": "failed", "duration": 2000, "retry": 0},
          {"status": "passed", "duration": 1000, "retry": 1}
        ]},
        {"projectName": "Firefox", "status": "expected", "results": [
          {"status": "passed", "duration": 1000, "retry": 0}
        ]}
      ]},
      {"title": "logs out", "tests": [
        {"projectName": "Chrome", "status": "skipped",
         "annotations": [{"type": "testRailId", "description": "502"}, {"type": "testRailId", "description": "503"}],
         "results": [{"status": "skipped", "duration": 0, "retry": 0}]}
      ]}
    ]
  }]
}`

var _ = Describe("testrail-reporter sync", Ordered, func() {
	var (
		fake       *fakerail.Server
		srv        *httptest.Server
		reportPath string
	)

	BeforeAll(func() {
		dir := GinkgoT().TempDir()
		reportPath = filepath.Join(dir, "report.json")
		Expect(os.WriteFile(reportPath, []byte(report), 0o600)).To(Succeed())
	})

	BeforeEach(func() {
		fake = fakerail.New("bot@example.com", "secret")
		srv = httptest.NewServer(fake.Handler())
		DeferCleanup(srv.Close)
	})

	start := func(env map[string]string, args ...string) *gexec.Session {
		cmd := exec.Command(binaryPath, append([]string{"sync", "--env-file", "", "--input", reportPath}, args...)...)
		cmd.Env = []string{"PATH=" + os.Getenv("PATH")}
		for k, v := range env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
		session, err := gexec.Start(cmd, GinkgoWriter, GinkgoWriter)
		Expect(err).NotTo(HaveOccurred())
		return session
	}

	enabledEnv := func() map[string]string {
		return map[string]string{
			"TESTRAIL_REPORT":   "true",
			"TESTRAIL_HOST":     srv.URL,
			"TESTRAIL_USERNAME": "bot@example.com",
			"TESTRAIL_PASSWORD": "secret",
			"BRANCH_NAME":       "main",
			"E2E_TESTS":         "login",
			"FL_ENV":            "staging",
		}
	}

	// Given a disabled integration
	// When the reporter runs
	// Then it exits successfully without calling TestRail
	It("should exit 0 without calling TestRail when disabled", func() {
		session := start(map[string]string{"TESTRAIL_HOST": srv.URL})

		Eventually(session).Should(gexec.Exit(0))
		Expect(fake.Calls()).To(BeEmpty())
	})

	// Given an enabled integration and a two browser report
	// When the reporter runs
	// Then a plan with two runs receives the deduplicated results
	It("should create a plan and publish one batch per browser", func() {
		session := start(enabledEnv())

		Eventually(session).Should(gexec.Exit(0))
		Expect(session.Out).To(gbytes.Say("TestRail sync"))

		plans := fake.Plans()
		Expect(plans).To(HaveLen(1))
		plan, _ := fake.Plan(plans[0])
		Expect(plan.Name).To(HavePrefix("Generated on "))
		Expect(plan.Name).To(HaveSuffix("for login tests with staging backend"))
		Expect(plan.Description).To(ContainSubstring("Branch: main"))

		chrome := plan.Entries[0].Runs[0]
		firefox := plan.Entries[0].Runs[1]
		Expect(chrome.Config).To(Equal("Chrome"))
		Expect(firefox.Config).To(Equal("Firefox"))

		chromeResults := make(map[int64]v2.CaseResult)
		for _, r := range fake.Results(chrome.ID) {
			chromeResults[r.CaseID] = r
		}
		Expect(chromeResults).To(HaveLen(3))
		Expect(chromeResults[501].StatusID).To(Equal(1))
		Expect(chromeResults[501].Comment).To(ContainSubstring("Retry: 1"))
		Expect(chromeResults[502].StatusID).To(Equal(3))
		Expect(chromeResults[503].StatusID).To(Equal(3))
		Expect(fake.Results(firefox.ID)).To(HaveLen(1))
		Expect(fake.CallCount("add_results_for_cases")).To(Equal(2))
	})

	It("should exit 3 when the configured plan does not exist", func() {
		env := enabledEnv()
		env["TESTRAIL_PLAN_ID"] = "4242"

		session := start(env)

		Eventually(session).Should(gexec.Exit(3))
		Expect(fake.CallCount("add_plan")).To(BeZero())
		Expect(fake.CallCount("add_results_for_cases")).To(BeZero())
	})

	It("should skip browsers without a run in an existing plan", func() {
		planID := fake.AddPlan("Nightly", "Chrome")
		env := enabledEnv()
		env["TESTRAIL_PLAN_ID"] = strconv.FormatInt(planID, 10)

		session := start(env)

		Eventually(session).Should(gexec.Exit(0))
		Expect(session.Out).To(gbytes.Say("Firefox: no run in plan"))
		Expect(fake.CallCount("add_results_for_cases")).To(Equal(1))
	})

	It("should exit 2 when credentials are missing", func() {
		session := start(map[string]string{"TESTRAIL_REPORT": "true"})

		Eventually(session).Should(gexec.Exit(2))
		Expect(session.Err).To(gbytes.Say("TESTRAIL_HOST"))
	})

	It("should exit 4 when TestRail rejects the results", func() {
		fake.Fail("add_results_for_cases", http.StatusInternalServerError)

		session := start(enabledEnv())

		Eventually(session).Should(gexec.Exit(4))
	})

	It("should close the plan when asked to", func() {
		session := start(enabledEnv(), "--close")

		Eventually(session).Should(gexec.Exit(0))
		plan, _ := fake.Plan(fake.Plans()[0])
		Expect(plan.IsCompleted).To(BeTrue())
	})
})
