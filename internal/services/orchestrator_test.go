package services_test

import (
	"context"
	"errors"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kubev2v/testrail-reporter/internal/config"
	"github.com/kubev2v/testrail-reporter/internal/models"
	"github.com/kubev2v/testrail-reporter/internal/services"
	srvErrors "github.com/kubev2v/testrail-reporter/pkg/errors"
	"github.com/kubev2v/testrail-reporter/test"
)

var _ = Describe("Orchestrator", func() {
	var (
		ctx    context.Context
		client *test.MockTrackingClient
		buffer *services.ResultBuffer
		syncID uuid.UUID
	)

	newOrchestrator := func(cfg *config.Configuration) *services.Orchestrator {
		resolver := services.NewPlanResolver(client, cfg, syncID)
		return services.NewOrchestrator(client, cfg, resolver, syncID)
	}

	BeforeEach(func() {
		ctx = context.Background()
		client = test.NewMockTrackingClient()
		buffer = services.NewResultBuffer()
		syncID = uuid.New()
	})

	It("should do nothing when no result was recorded", func() {
		report, err := newOrchestrator(newConfig(nil)).Synchronize(ctx, buffer, []string{"Chrome"})

		Expect(err).NotTo(HaveOccurred())
		Expect(report.SyncID).To(Equal(syncID))
		Expect(client.Calls).To(BeEmpty())
	})

	// Given results for Chrome and Firefox and a new plan
	// When the buffer is synchronized
	// Then each run receives exactly one batch with its own results
	It("should submit one batch per configuration run", func() {
		buffer.Record("Chrome", models.CaseResult{CaseID: 1, StatusID: models.StatusPassed})
		buffer.Record("Firefox", models.CaseResult{CaseID: 1, StatusID: models.StatusFailed})
		buffer.Record("Chrome", models.CaseResult{CaseID: 2, StatusID: models.StatusPassed})

		report, err := newOrchestrator(newConfig(nil)).Synchronize(ctx, buffer, []string{"Chrome", "Firefox"})

		Expect(err).NotTo(HaveOccurred())
		Expect(client.Submissions).To(HaveLen(2))
		plan := client.Plans[report.PlanID]
		Expect(plan).NotTo(BeNil())

		chrome, err := services.RunFor(plan, "Chrome")
		Expect(err).NotTo(HaveOccurred())
		firefox, err := services.RunFor(plan, "Firefox")
		Expect(err).NotTo(HaveOccurred())

		Expect(client.Submissions[0].RunID).To(Equal(chrome.ID))
		Expect(client.Submissions[0].Results).To(Equal([]models.CaseResult{
			{CaseID: 1, StatusID: models.StatusPassed},
			{CaseID: 2, StatusID: models.StatusPassed},
		}))
		Expect(client.Submissions[1].RunID).To(Equal(firefox.ID))
		Expect(client.Submissions[1].Results).To(Equal([]models.CaseResult{
			{CaseID: 1, StatusID: models.StatusFailed},
		}))
		Expect(report.Submitted).To(HaveLen(2))
		Expect(report.Skipped).To(BeEmpty())
	})

	It("should send the last result of a repeated case", func() {
		buffer.Record("Chrome", models.CaseResult{CaseID: 3, StatusID: models.StatusFailed})
		buffer.Record("Chrome", models.CaseResult{CaseID: 3, StatusID: models.StatusPassed})

		_, err := newOrchestrator(newConfig(nil)).Synchronize(ctx, buffer, []string{"Chrome"})

		Expect(err).NotTo(HaveOccurred())
		Expect(client.Submissions).To(HaveLen(1))
		Expect(client.Submissions[0].Results).To(Equal([]models.CaseResult{
			{CaseID: 3, StatusID: models.StatusPassed},
		}))
	})

	// Given an existing plan without a Firefox run
	// When results for Chrome and Firefox are synchronized
	// Then the Firefox results are skipped and Chrome still gets its batch
	It("should skip configurations without a run", func() {
		client.WithPlan(77, 500, "Chrome")
		buffer.Record("Chrome", models.CaseResult{CaseID: 1, StatusID: models.StatusPassed})
		buffer.Record("Firefox", models.CaseResult{CaseID: 1, StatusID: models.StatusPassed})

		report, err := newOrchestrator(newConfig(map[string]any{"plan.id": 77})).Synchronize(ctx, buffer, []string{"Chrome", "Firefox"})

		Expect(err).NotTo(HaveOccurred())
		Expect(client.Submissions).To(HaveLen(1))
		Expect(client.Submissions[0].RunID).To(Equal(int64(500)))
		Expect(report.PlanID).To(Equal(int64(77)))
		Expect(report.Skipped).To(Equal([]string{"Firefox"}))
		Expect(client.CallCount("add_plan")).To(BeZero())
	})

	It("should merge labels resolving to the same run", func() {
		client.WithPlan(77, 500, "Chrome")
		buffer.Record("Chrome", models.CaseResult{CaseID: 1, StatusID: models.StatusFailed})
		buffer.Record("chrome", models.CaseResult{CaseID: 1, StatusID: models.StatusPassed})
		buffer.Record("chrome", models.CaseResult{CaseID: 2, StatusID: models.StatusPassed})

		report, err := newOrchestrator(newConfig(map[string]any{"plan.id": 77})).Synchronize(ctx, buffer, nil)

		Expect(err).NotTo(HaveOccurred())
		Expect(client.Submissions).To(HaveLen(1))
		Expect(client.Submissions[0].Results).To(HaveLen(2))
		Expect(report.Submitted[0].Labels).To(Equal([]string{"Chrome", "chrome"}))
	})

	It("should return a SubmissionError when a batch is rejected", func() {
		client.WithPlan(77, 500, "Chrome", "Firefox")
		client.AddResultsErrs[500] = errors.New("server error")
		buffer.Record("Chrome", models.CaseResult{CaseID: 1, StatusID: models.StatusPassed})
		buffer.Record("Firefox", models.CaseResult{CaseID: 1, StatusID: models.StatusPassed})

		report, err := newOrchestrator(newConfig(map[string]any{"plan.id": 77})).Synchronize(ctx, buffer, []string{"Chrome", "Firefox"})

		Expect(srvErrors.IsSubmissionError(err)).To(BeTrue())
		var subErr *srvErrors.SubmissionError
		Expect(errors.As(err, &subErr)).To(BeTrue())
		Expect(subErr.RunID).To(Equal(int64(500)))
		Expect(report.Closed).To(BeFalse())
	})

	// Given three runs and a single worker
	// When the first run rejects its batch
	// Then the remaining batches are never sent
	It("should not send later batches once a batch is rejected", func() {
		client.WithPlan(77, 500, "Chrome", "Edge", "Firefox")
		client.AddResultsErrs[500] = errors.New("server error")
		for _, label := range []string{"Chrome", "Edge", "Firefox"} {
			buffer.Record(label, models.CaseResult{CaseID: 1, StatusID: models.StatusPassed})
		}

		report, err := newOrchestrator(newConfig(map[string]any{"plan.id": 77})).Synchronize(ctx, buffer, nil)

		var subErr *srvErrors.SubmissionError
		Expect(errors.As(err, &subErr)).To(BeTrue())
		Expect(subErr.RunID).To(Equal(int64(500)))
		Expect(client.CallCount("add_results_for_cases")).To(Equal(1))
		Expect(client.Submissions).To(BeEmpty())
		Expect(report.Submitted).To(BeEmpty())
	})

	It("should submit batches in parallel when several workers are configured", func() {
		client.WithPlan(77, 500, "Chrome", "Edge", "Firefox")
		for _, label := range []string{"Chrome", "Edge", "Firefox"} {
			buffer.Record(label, models.CaseResult{CaseID: 1, StatusID: models.StatusPassed})
		}

		report, err := newOrchestrator(newConfig(map[string]any{"plan.id": 77, "submission.workers": 3})).Synchronize(ctx, buffer, nil)

		Expect(err).NotTo(HaveOccurred())
		Expect(client.Submissions).To(HaveLen(3))
		runIDs := []int64{}
		for _, s := range report.Submitted {
			runIDs = append(runIDs, s.RunID)
		}
		Expect(runIDs).To(ConsistOf(int64(500), int64(501), int64(502)))
	})

	Context("close", func() {
		It("should close the plan", func() {
			client.WithPlan(77, 500, "Chrome")
			buffer.Record("Chrome", models.CaseResult{CaseID: 1, StatusID: models.StatusPassed})

			report, err := newOrchestrator(newConfig(map[string]any{"plan.id": 77, "submission.close": true})).Synchronize(ctx, buffer, nil)

			Expect(err).NotTo(HaveOccurred())
			Expect(report.Closed).To(BeTrue())
			Expect(client.ClosedPlans).To(Equal([]int64{77}))
			Expect(client.ClosedRuns).To(BeEmpty())
		})

		It("should not close anything by default", func() {
			client.WithPlan(77, 500, "Chrome")
			buffer.Record("Chrome", models.CaseResult{CaseID: 1, StatusID: models.StatusPassed})

			report, err := newOrchestrator(newConfig(map[string]any{"plan.id": 77})).Synchronize(ctx, buffer, nil)

			Expect(err).NotTo(HaveOccurred())
			Expect(report.Closed).To(BeFalse())
			Expect(client.CallCount("close_plan")).To(BeZero())
		})

		It("should return a SubmissionError when closing fails", func() {
			client.WithPlan(77, 500, "Chrome")
			client.ClosePlanErr = errors.New("forbidden")
			buffer.Record("Chrome", models.CaseResult{CaseID: 1, StatusID: models.StatusPassed})

			_, err := newOrchestrator(newConfig(map[string]any{"plan.id": 77, "submission.close": true})).Synchronize(ctx, buffer, nil)

			Expect(srvErrors.IsSubmissionError(err)).To(BeTrue())
		})
	})

	Context("run mode", func() {
		// Given results under two labels in run mode
		// When the buffer is synchronized
		// Then one run receives every result and is closed
		It("should submit everything to a single run and close it", func() {
			buffer.Record("Chrome", models.CaseResult{CaseID: 4, StatusID: models.StatusFailed})
			buffer.Record("Firefox", models.CaseResult{CaseID: 4, StatusID: models.StatusPassed})
			buffer.Record("Firefox", models.CaseResult{CaseID: 8, StatusID: models.StatusPassed})
			cfg := newConfig(map[string]any{"plan.mode": "run", "submission.close": true})

			report, err := newOrchestrator(cfg).Synchronize(ctx, buffer, nil)

			Expect(err).NotTo(HaveOccurred())
			Expect(client.CallCount("add_plan")).To(BeZero())
			Expect(client.RunRequests).To(HaveLen(1))
			Expect(client.RunRequests[0].CaseIDs).To(Equal([]int64{4, 8}))
			Expect(client.Submissions).To(HaveLen(1))
			Expect(client.Submissions[0].RunID).To(Equal(report.RunID))
			Expect(client.Submissions[0].Results).To(Equal([]models.CaseResult{
				{CaseID: 4, StatusID: models.StatusPassed},
				{CaseID: 8, StatusID: models.StatusPassed},
			}))
			Expect(client.ClosedRuns).To(Equal([]int64{report.RunID}))
			Expect(report.Closed).To(BeTrue())
		})
	})
})
