package services_test

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kubev2v/testrail-reporter/internal/models"
	"github.com/kubev2v/testrail-reporter/internal/services"
	srvErrors "github.com/kubev2v/testrail-reporter/pkg/errors"
	"github.com/kubev2v/testrail-reporter/test"
)

var _ = Describe("PlanResolver", func() {
	var (
		ctx    context.Context
		client *test.MockTrackingClient
		buffer *services.ResultBuffer
		syncID uuid.UUID
	)

	BeforeEach(func() {
		ctx = context.Background()
		client = test.NewMockTrackingClient()
		buffer = services.NewResultBuffer()
		syncID = uuid.New()
	})

	Context("Validate", func() {
		It("should succeed for an accessible project", func() {
			r := services.NewPlanResolver(client, newConfig(nil), syncID)

			Expect(r.Validate(ctx, []string{"Chrome"})).To(Succeed())
			Expect(r.State()).To(Equal(services.PlanStateNoPlan))
			Expect(client.CallCount("get_configs")).To(Equal(1))
		})

		It("should fail when the project is not accessible", func() {
			client.GetProjectErr = srvErrors.NewUnauthorizedError(401, "get_project", "bad credentials")
			r := services.NewPlanResolver(client, newConfig(nil), syncID)

			err := r.Validate(ctx, []string{"Chrome"})

			Expect(srvErrors.IsValidationError(err)).To(BeTrue())
			Expect(srvErrors.IsUnauthorizedError(err)).To(BeTrue())
		})

		// Given a configured plan id that does not exist
		// When the begin phase validates
		// Then a ValidationError is returned and nothing is created
		It("should fail when the configured plan cannot be fetched", func() {
			r := services.NewPlanResolver(client, newConfig(map[string]any{"plan.id": 999}), syncID)

			err := r.Validate(ctx, []string{"Chrome"})

			Expect(srvErrors.IsValidationError(err)).To(BeTrue())
			Expect(srvErrors.IsResourceNotFoundError(err)).To(BeTrue())
			Expect(client.CallCount("add_plan")).To(BeZero())
			Expect(client.CallCount("add_run")).To(BeZero())
		})

		It("should attach an existing plan", func() {
			client.WithPlan(77, 500, "Chrome")
			r := services.NewPlanResolver(client, newConfig(map[string]any{"plan.id": 77}), syncID)

			Expect(r.Validate(ctx, []string{"Chrome"})).To(Succeed())
			Expect(r.State()).To(Equal(services.PlanStateAttached))
			Expect(r.Plan().ID).To(Equal(int64(77)))
		})

		It("should reject a project with several suites in single suite mode", func() {
			r := services.NewPlanResolver(client, newConfig(map[string]any{"testrail.singlesuite": true}), syncID)

			err := r.Validate(ctx, nil)

			Expect(srvErrors.IsValidationError(err)).To(BeTrue())
		})

		It("should fail when no label matches the config group", func() {
			r := services.NewPlanResolver(client, newConfig(nil), syncID)

			err := r.Validate(ctx, []string{"Safari"})

			Expect(srvErrors.IsValidationError(err)).To(BeTrue())
		})

		It("should fail when the config group does not exist", func() {
			r := services.NewPlanResolver(client, newConfig(map[string]any{"testrail.configgroup": "devices"}), syncID)

			err := r.Validate(ctx, []string{"Chrome"})

			Expect(srvErrors.IsValidationError(err)).To(BeTrue())
		})

		It("should skip plan checks in run mode", func() {
			r := services.NewPlanResolver(client, newConfig(map[string]any{"plan.mode": "run"}), syncID)

			Expect(r.Validate(ctx, nil)).To(Succeed())
			Expect(client.CallCount("get_configs")).To(BeZero())
		})
	})

	Context("Resolve", func() {
		// Given two labels known to the config group
		// When the plan is resolved
		// Then one plan with one entry and one run per label is created
		It("should create a plan with one run per configuration", func() {
			cfg := newConfig(map[string]any{"plan.tests": "smoke", "plan.environment": "staging", "plan.branch": "main"})
			r := services.NewPlanResolver(client, cfg, syncID).
				WithClock(func() time.Time { return time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC) })

			plan, err := r.Resolve(ctx, buffer, []string{"Chrome", "Firefox"})

			Expect(err).NotTo(HaveOccurred())
			Expect(r.State()).To(Equal(services.PlanStateCreated))
			Expect(plan.Runs()).To(HaveLen(2))
			Expect(client.PlanRequests).To(HaveLen(1))

			req := client.PlanRequests[0]
			Expect(req.Name).To(Equal("Generated on 2024-05-01 10:30:00 for smoke tests with staging backend"))
			Expect(req.Description).To(Equal("Branch: main\nSync: " + syncID.String()))
			Expect(req.Entries).To(HaveLen(1))
			Expect(req.Entries[0].SuiteID).To(Equal(int64(900)))
			Expect(req.Entries[0].ConfigIDs).To(Equal([]int64{21, 23}))
			Expect(req.Entries[0].Runs).To(HaveLen(2))
			Expect(req.Entries[0].Runs[0].IncludeAll).To(BeTrue())
		})

		It("should reuse the resolved plan", func() {
			r := services.NewPlanResolver(client, newConfig(nil), syncID)

			first, err := r.Resolve(ctx, buffer, []string{"Chrome"})
			Expect(err).NotTo(HaveOccurred())
			second, err := r.Resolve(ctx, buffer, []string{"Chrome"})
			Expect(err).NotTo(HaveOccurred())

			Expect(second).To(BeIdenticalTo(first))
			Expect(client.CallCount("add_plan")).To(Equal(1))
		})

		It("should scope runs to the recorded cases when include all is off", func() {
			buffer.Record("Chrome", models.CaseResult{CaseID: 9, StatusID: models.StatusPassed})
			buffer.Record("Chrome", models.CaseResult{CaseID: 5, StatusID: models.StatusPassed})
			buffer.Record("Firefox", models.CaseResult{CaseID: 7, StatusID: models.StatusPassed})
			r := services.NewPlanResolver(client, newConfig(map[string]any{"plan.includeall": false}), syncID)

			_, err := r.Resolve(ctx, buffer, []string{"Chrome", "Firefox"})

			Expect(err).NotTo(HaveOccurred())
			runs := client.PlanRequests[0].Entries[0].Runs
			Expect(runs[0].IncludeAll).To(BeFalse())
			Expect(runs[0].CaseIDs).To(Equal([]int64{5, 9}))
			Expect(runs[1].CaseIDs).To(Equal([]int64{7}))
		})

		// Given results recorded under a lower-case label
		// When the configured label differs only in case
		// Then the run is still scoped to those cases
		It("should scope runs to cases recorded under a differently cased label", func() {
			buffer.Record("chrome", models.CaseResult{CaseID: 42, StatusID: models.StatusPassed})
			r := services.NewPlanResolver(client, newConfig(map[string]any{"plan.includeall": false}), syncID)

			_, err := r.Resolve(ctx, buffer, []string{"Chrome"})

			Expect(err).NotTo(HaveOccurred())
			runs := client.PlanRequests[0].Entries[0].Runs
			Expect(runs).To(HaveLen(1))
			Expect(runs[0].CaseIDs).To(Equal([]int64{42}))
		})

		It("should only create runs for known configurations", func() {
			r := services.NewPlanResolver(client, newConfig(nil), syncID)

			plan, err := r.Resolve(ctx, buffer, []string{"chrome", "Safari"})

			Expect(err).NotTo(HaveOccurred())
			Expect(plan.Runs()).To(HaveLen(1))
			Expect(plan.Runs()[0].Config).To(Equal("Chrome"))
		})

		It("should use the configured plan name", func() {
			r := services.NewPlanResolver(client, newConfig(map[string]any{"plan.name": "Nightly"}), syncID)

			_, err := r.Resolve(ctx, buffer, []string{"Chrome"})

			Expect(err).NotTo(HaveOccurred())
			Expect(client.PlanRequests[0].Name).To(Equal("Nightly"))
		})

		It("should return a SubmissionError when the plan cannot be created", func() {
			client.AddPlanErr = errors.New("boom")
			r := services.NewPlanResolver(client, newConfig(nil), syncID)

			_, err := r.Resolve(ctx, buffer, []string{"Chrome"})

			Expect(srvErrors.IsSubmissionError(err)).To(BeTrue())
		})

		It("should return a SubmissionError when no run can be created", func() {
			r := services.NewPlanResolver(client, newConfig(nil), syncID)

			_, err := r.Resolve(ctx, buffer, []string{"Safari"})

			Expect(srvErrors.IsSubmissionError(err)).To(BeTrue())
			Expect(client.CallCount("add_plan")).To(BeZero())
		})
	})

	Context("ResolveSuiteID", func() {
		It("should find the suite by name", func() {
			r := services.NewPlanResolver(client, newConfig(map[string]any{"testrail.suitename": "smoke SUITE"}), syncID)

			id, err := r.ResolveSuiteID(ctx)

			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(Equal(int64(657)))
		})

		// Given a suite name missing from the project
		// When the suite id is resolved
		// Then the default suite id is used
		It("should fall back to the default suite id", func() {
			r := services.NewPlanResolver(client, newConfig(map[string]any{"testrail.suitename": "Unknown"}), syncID)

			id, err := r.ResolveSuiteID(ctx)

			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(Equal(int64(849)))
		})
	})

	Context("CreateRun", func() {
		It("should create a run scoped to the recorded cases", func() {
			buffer.Record("Chrome", models.CaseResult{CaseID: 9})
			buffer.Record("Firefox", models.CaseResult{CaseID: 5})
			buffer.Record("Firefox", models.CaseResult{CaseID: 9})
			r := services.NewPlanResolver(client, newConfig(map[string]any{"plan.mode": "run"}), syncID)

			run, err := r.CreateRun(ctx, buffer)

			Expect(err).NotTo(HaveOccurred())
			Expect(run.ID).NotTo(BeZero())
			Expect(client.RunRequests).To(HaveLen(1))
			Expect(client.RunRequests[0].IncludeAll).To(BeFalse())
			Expect(client.RunRequests[0].CaseIDs).To(Equal([]int64{5, 9}))
			Expect(client.RunRequests[0].SuiteID).To(Equal(int64(900)))
		})
	})

	Context("RunFor", func() {
		plan := &models.Plan{ID: 1, Entries: []models.PlanEntry{
			{Runs: []models.Run{{ID: 10, Config: "Chrome"}, {ID: 11, Config: "Firefox"}}},
			{Runs: []models.Run{{ID: 12, Config: "chrome"}}},
		}}

		It("should return the first run matching the label ignoring case", func() {
			run, err := services.RunFor(plan, "CHROME")

			Expect(err).NotTo(HaveOccurred())
			Expect(run.ID).To(Equal(int64(10)))
		})

		It("should return a ResolutionError for an unknown label", func() {
			_, err := services.RunFor(plan, "Safari")

			Expect(srvErrors.IsResolutionError(err)).To(BeTrue())
		})
	})
})
