package services

import (
	"strings"
	"sync"

	"go.uber.org/zap"
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/kubev2v/testrail-reporter/internal/models"
)

type bufferedResult struct {
	label  string
	result models.CaseResult
}

// ResultBuffer collects case results while tests run. Record is safe for
// concurrent use; once sealed the buffer is read only.
type ResultBuffer struct {
	mu      sync.Mutex
	entries []bufferedResult
	sealed  bool
}

func NewResultBuffer() *ResultBuffer {
	return &ResultBuffer{}
}

// Record appends r under the configuration label.
func (b *ResultBuffer) Record(label string, r models.CaseResult) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sealed {
		zap.S().Named("result_buffer").Warnw("dropping result recorded after run end", "label", label, "case_id", r.CaseID)
		return
	}
	b.entries = append(b.entries, bufferedResult{label: label, result: r})
}

// Seal makes the buffer read only.
func (b *ResultBuffer) Seal() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sealed = true
}

func (b *ResultBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// DistinctCaseIDs returns every case id recorded so far.
func (b *ResultBuffer) DistinctCaseIDs() sets.Set[int64] {
	b.mu.Lock()
	defer b.mu.Unlock()

	ids := sets.New[int64]()
	for _, e := range b.entries {
		ids.Insert(e.result.CaseID)
	}
	return ids
}

// DistinctCaseIDsFor returns the case ids recorded under label. Labels match
// case-insensitively, like run lookup.
func (b *ResultBuffer) DistinctCaseIDsFor(label string) sets.Set[int64] {
	b.mu.Lock()
	defer b.mu.Unlock()

	ids := sets.New[int64]()
	for _, e := range b.entries {
		if strings.EqualFold(e.label, label) {
			ids.Insert(e.result.CaseID)
		}
	}
	return ids
}

// GroupByConfiguration returns the results of each label in recording order.
func (b *ResultBuffer) GroupByConfiguration() map[string][]models.CaseResult {
	b.mu.Lock()
	defer b.mu.Unlock()

	groups := make(map[string][]models.CaseResult)
	for _, e := range b.entries {
		groups[e.label] = append(groups[e.label], e.result)
	}
	return groups
}

// Dedupe keeps one result per case id. The last recorded result wins and takes
// the position where the case id first appeared.
func Dedupe(results []models.CaseResult) []models.CaseResult {
	index := make(map[int64]int, len(results))
	out := make([]models.CaseResult, 0, len(results))
	for _, r := range results {
		if i, ok := index[r.CaseID]; ok {
			out[i] = r
			continue
		}
		index[r.CaseID] = len(out)
		out = append(out, r)
	}
	return out
}
