package pipeline

import "time"

// LayerState is the terminal state of one layer's ingestion.
type LayerState string

const (
	LayerDone   LayerState = "done"
	LayerFailed LayerState = "failed"
)

// LayerResult summarises one layer. Imported counts features persisted
// before a failure too.
type LayerResult struct {
	Layer    string
	Imported int
	Skipped  int
	Pages    int
	Err      error
}

// State returns LayerFailed when the layer stopped on an error.
func (r LayerResult) State() LayerState {
	if r.Err != nil {
		return LayerFailed
	}
	return LayerDone
}

// Report is the outcome of one ingestion run.
type Report struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Layers     []LayerResult
}

// Total is the number of features imported across all layers.
func (r Report) Total() int {
	n := 0
	for _, l := range r.Layers {
		n += l.Imported
	}
	return n
}

// Failed is the number of layers that ended in LayerFailed.
func (r Report) Failed() int {
	n := 0
	for _, l := range r.Layers {
		if l.State() == LayerFailed {
			n++
		}
	}
	return n
}

// AllFailed reports whether at least one layer ran and none succeeded.
func (r Report) AllFailed() bool {
	return len(r.Layers) > 0 && r.Failed() == len(r.Layers)
}

func (r Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
