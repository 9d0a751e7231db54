package engine_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kubev2v/testrail-reporter/internal/engine"
	"github.com/kubev2v/testrail-reporter/internal/models"
)

var _ = Describe("Playwright", func() {
	var (
		ctx context.Context
		rec *recorder
	)

	BeforeEach(func() {
		ctx = context.Background()
		rec = &recorder{expected: 4}
	})

	replay := func(workers int) (models.RunStatus, error) {
		f, err := os.Open("testdata/playwright-report.json")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(f.Close)
		return engine.NewPlaywright(workers).Replay(ctx, f, rec)
	}

	// Given a report with two projects and three tests
	// When it is replayed
	// Then the projects become labels and every attempt is delivered
	It("should replay every attempt of every test", func() {
		status, err := replay(1)

		Expect(err).NotTo(HaveOccurred())
		Expect(rec.labels).To(Equal([]string{"Chrome", "Firefox"}))
		Expect(rec.total).To(Equal(3))
		Expect(rec.ends).To(HaveLen(4))
		Expect(rec.ended).To(BeTrue())
		Expect(rec.early).To(BeFalse())
		Expect(status).To(Equal(models.RunStatusFailed))
		Expect(rec.status).To(Equal(models.RunStatusFailed))
	})

	It("should deliver the attempts of a test in order", func() {
		_, err := replay(4)
		Expect(err).NotTo(HaveOccurred())

		var card []testEnd
		for _, e := range rec.endsFor("Chrome") {
			if e.tc.Title == "pays with card" {
				card = append(card, e)
			}
		}
		Expect(card).To(HaveLen(2))
		Expect(card[0].res.Outcome).To(Equal(models.OutcomeFailed))
		Expect(card[0].res.Retry).To(Equal(0))
		Expect(card[0].res.Duration).To(Equal(1200 * time.Millisecond))
		Expect(card[1].res.Outcome).To(Equal(models.OutcomePassed))
		Expect(card[1].res.Retry).To(Equal(1))
		Expect(rec.early).To(BeFalse())
	})

	It("should carry annotations and title paths", func() {
		_, err := replay(1)
		Expect(err).NotTo(HaveOccurred())

		firefox := rec.endsFor("Firefox")
		Expect(firefox).To(HaveLen(1))
		Expect(firefox[0].tc.Annotations).To(Equal([]models.Annotation{{Type: "testRailId", Description: "101"}}))
		Expect(firefox[0].tc.TitlePath).To(Equal([]string{"checkout.spec.ts", "pays with card"}))

		var coupon testEnd
		for _, e := range rec.endsFor("Chrome") {
			if strings.HasPrefix(e.tc.Title, "applies coupon") {
				coupon = e
			}
		}
		Expect(coupon.tc.TitlePath).To(Equal([]string{"checkout.spec.ts", "coupons", "applies coupon => 102 103"}))
		Expect(coupon.res.Outcome).To(Equal(models.OutcomeTimedOut))
	})

	It("should report a passed run", func() {
		report := `{"config":{"projects":[{"name":"Chrome"}]},"suites":[{"title":"a.spec.ts","specs":[{"title":"t => 1","tests":[{"projectName":"Chrome","status":"expected","results":[{"status":"passed","duration":10}]}]}]}]}`

		status, err := engine.NewPlaywright(1).Replay(ctx, strings.NewReader(report), rec)

		Expect(err).NotTo(HaveOccurred())
		Expect(status).To(Equal(models.RunStatusPassed))
	})

	It("should stop when OnBegin fails", func() {
		rec.beginErr = errors.New("plan not found")

		_, err := replay(1)

		Expect(err).To(MatchError("plan not found"))
		Expect(rec.ends).To(BeEmpty())
		Expect(rec.ended).To(BeFalse())
	})

	It("should reject a report that is not JSON", func() {
		_, err := engine.NewPlaywright(1).Replay(ctx, strings.NewReader("<html>"), rec)

		Expect(err).To(HaveOccurred())
		Expect(rec.ended).To(BeFalse())
	})
})
