package models_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kubev2v/testrail-reporter/internal/models"
	srvErrors "github.com/kubev2v/testrail-reporter/pkg/errors"
)

var _ = Describe("MapOutcome", func() {
	DescribeTable("should map every known outcome",
		func(outcome models.Outcome, expected models.Status) {
			status, err := models.MapOutcome(outcome)

			Expect(err).NotTo(HaveOccurred())
			Expect(status).To(Equal(expected))
		},
		Entry("passed", models.OutcomePassed, models.StatusPassed),
		Entry("failed", models.OutcomeFailed, models.StatusFailed),
		Entry("timed out", models.OutcomeTimedOut, models.StatusFailed),
		Entry("skipped", models.OutcomeSkipped, models.StatusUntested),
	)

	It("should return a MappingError for an unknown outcome", func() {
		_, err := models.MapOutcome("interrupted")

		Expect(srvErrors.IsMappingError(err)).To(BeTrue())
	})
})

var _ = Describe("ParseOutcome", func() {
	DescribeTable("should accept engine spellings",
		func(in string, expected models.Outcome) {
			o, err := models.ParseOutcome(in)

			Expect(err).NotTo(HaveOccurred())
			Expect(o).To(Equal(expected))
		},
		Entry("playwright passed", "passed", models.OutcomePassed),
		Entry("go test pass", "pass", models.OutcomePassed),
		Entry("go test fail", "fail", models.OutcomeFailed),
		Entry("playwright timedOut", "timedOut", models.OutcomeTimedOut),
		Entry("go test skip", "skip", models.OutcomeSkipped),
	)

	It("should reject unknown values", func() {
		_, err := models.ParseOutcome("interrupted")

		Expect(srvErrors.IsMappingError(err)).To(BeTrue())
	})
})

var _ = Describe("Status", func() {
	It("should name the statuses", func() {
		Expect(models.StatusPassed.String()).To(Equal("passed"))
		Expect(models.StatusUntested.String()).To(Equal("untested"))
		Expect(models.Status(42).String()).To(Equal("unknown"))
	})
})

var _ = Describe("Plan", func() {
	It("should list the runs of every entry", func() {
		plan := models.Plan{Entries: []models.PlanEntry{
			{Runs: []models.Run{{ID: 1}, {ID: 2}}},
			{Runs: []models.Run{{ID: 3}}},
		}}

		Expect(plan.Runs()).To(HaveLen(3))
		Expect(plan.Runs()[2].ID).To(Equal(int64(3)))
	})
})
