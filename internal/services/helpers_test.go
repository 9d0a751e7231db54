package services_test

import (
	. "github.com/onsi/gomega"

	"github.com/kubev2v/testrail-reporter/internal/config"
)

// newConfig returns an enabled configuration pointing at a fake TestRail.
func newConfig(overrides map[string]any) *config.Configuration {
	v := config.NewViper("")
	v.Set("enabled", true)
	v.Set("testrail.host", "https://example.testrail.io")
	v.Set("testrail.username", "bot@example.com")
	v.Set("testrail.password", "secret")
	v.Set("testrail.suitename", "Regression suite")
	for k, val := range overrides {
		v.Set(k, val)
	}

	cfg, err := config.Load(v)
	Expect(err).NotTo(HaveOccurred())
	return cfg
}
