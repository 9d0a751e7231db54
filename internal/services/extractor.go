package services

import (
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/kubev2v/testrail-reporter/internal/config"
	"github.com/kubev2v/testrail-reporter/internal/models"
)

const (
	// CaseAnnotationType marks an annotation whose description is a TestRail case id.
	CaseAnnotationType = "testRailId"
	// TitleSeparator separates the test name from its case ids: "login works => 101 102".
	TitleSeparator = "=>"
)

// Extractor recovers TestRail case ids from a test.
type Extractor struct {
	mode config.ExtractMode
}

func NewExtractor(mode config.ExtractMode) *Extractor {
	if mode == "" {
		mode = config.ExtractModeAuto
	}
	return &Extractor{mode: mode}
}

// Extract returns the case ids of tc in declaration order. In auto mode the
// annotations win and the title is only used when they yield nothing.
func (e *Extractor) Extract(tc models.TestCase) []int64 {
	switch e.mode {
	case config.ExtractModeAnnotation:
		return ExtractFromAnnotations(tc.Annotations)
	case config.ExtractModeTitle:
		return ExtractFromTitle(tc.Title)
	default:
		if ids := ExtractFromAnnotations(tc.Annotations); len(ids) > 0 {
			return ids
		}
		return ExtractFromTitle(tc.Title)
	}
}

// ExtractFromAnnotations parses the description of every case annotation.
// Missing or non numeric descriptions are skipped.
func ExtractFromAnnotations(annotations []models.Annotation) []int64 {
	ids := []int64{}
	for _, a := range annotations {
		if a.Type != CaseAnnotationType {
			continue
		}
		id, ok := parseCaseID(a.Description)
		if !ok {
			zap.S().Named("extractor").Debugw("skipping annotation without a valid case id", "description", a.Description)
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// ExtractFromTitle parses the whitespace separated ids following the first
// TitleSeparator. A title without separator yields no ids.
func ExtractFromTitle(title string) []int64 {
	ids := []int64{}
	_, tail, found := strings.Cut(title, TitleSeparator)
	if !found {
		return ids
	}
	for _, token := range strings.Fields(tail) {
		id, ok := parseCaseID(token)
		if !ok {
			zap.S().Named("extractor").Debugw("skipping invalid case id token", "title", title, "token", token)
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// parseCaseID accepts "123" and the TestRail display form "C123".
func parseCaseID(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if len(s) > 1 && (s[0] == 'C' || s[0] == 'c') {
		s = s[1:]
	}
	if s == "" || s[0] == '+' || s[0] == '-' {
		return 0, false
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
