package metrics

import (
	"fmt"
	"sync"
)

// Recorder aggregates call metrics for a run.
type Recorder struct {
	mu      sync.Mutex
	total   Usage
	byModel map[string]Usage
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		byModel: make(map[string]Usage),
	}
}

// RecordCall folds one call into the aggregates.
func (r *Recorder) RecordCall(m CallMetric) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.total.add(m)

	key := modelKey(m.Provider, m.Model)
	usage := r.byModel[key]
	usage.add(m)
	r.byModel[key] = usage
}

// Summary returns the aggregate usage across all recorded calls.
func (r *Recorder) Summary() Usage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.total
}

// ByModel returns usage grouped by provider/model.
func (r *Recorder) ByModel() map[string]Usage {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]Usage, len(r.byModel))
	for k, v := range r.byModel {
		out[k] = v
	}
	return out
}

// Reset clears all aggregates. Called at the start of each run so watch-mode
// reruns report per-run numbers.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.total = Usage{}
	r.byModel = make(map[string]Usage)
}

func modelKey(provider, model string) string {
	if model == "" {
		return provider
	}
	return fmt.Sprintf("%s/%s", provider, model)
}
