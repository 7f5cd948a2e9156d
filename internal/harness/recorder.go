package harness

import "sync"

// recorder sits between one test and the shared reporter. It guarantees
// the test produces exactly one header and at most one failure.
type recorder struct {
	mu       sync.Mutex
	target   Reporter
	name     string
	header   bool
	failed   bool
	reason   string
	finished bool
}

var _ Reporter = (*recorder)(nil)

func newRecorder(target Reporter, name string) *recorder {
	return &recorder{target: target, name: name}
}

func (r *recorder) SetHeader(name, detail string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.header || r.finished {
		return
	}
	r.header = true
	r.target.SetHeader(name, detail)
}

func (r *recorder) LogResult(value string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finished {
		return
	}
	r.ensureHeader()
	r.target.LogResult(value)
}

func (r *recorder) TestHasFailed(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failed || r.finished {
		return
	}
	r.ensureHeader()
	r.failed = true
	r.reason = reason
	r.target.TestHasFailed(reason)
}

// Flush is owned by the runner; tests never flush.
func (r *recorder) Flush(RunSummary) error {
	return nil
}

// finish closes the record and returns its outcome. Calls arriving later,
// e.g. from a goroutine the test leaked, are dropped.
func (r *recorder) finish() (failed bool, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensureHeader()
	r.finished = true
	return r.failed, r.reason
}

func (r *recorder) ensureHeader() {
	if !r.header {
		r.header = true
		r.target.SetHeader(r.name, "")
	}
}
