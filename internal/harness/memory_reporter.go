package harness

import "sync"

// Record is one test's entry in a MemoryReporter.
type Record struct {
	Name   string
	Detail string
	Values []string
	Failed bool
	Reason string
}

// MemoryReporter keeps records in memory, for asserting on what tests
// reported.
type MemoryReporter struct {
	mu      sync.Mutex
	records []Record
	flushed []RunSummary
}

var _ Reporter = (*MemoryReporter)(nil)

// NewMemoryReporter creates an empty reporter.
func NewMemoryReporter() *MemoryReporter {
	return &MemoryReporter{}
}

func (m *MemoryReporter) SetHeader(name, detail string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, Record{Name: name, Detail: detail})
}

func (m *MemoryReporter) LogResult(value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := m.currentLocked()
	rec.Values = append(rec.Values, value)
}

func (m *MemoryReporter) TestHasFailed(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := m.currentLocked()
	rec.Failed = true
	rec.Reason = reason
}

func (m *MemoryReporter) Flush(summary RunSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flushed = append(m.flushed, summary)
	return nil
}

// Records returns a copy of the records so far.
func (m *MemoryReporter) Records() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Record, len(m.records))
	copy(out, m.records)
	return out
}

// Flushes returns the summaries passed to Flush.
func (m *MemoryReporter) Flushes() []RunSummary {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]RunSummary, len(m.flushed))
	copy(out, m.flushed)
	return out
}

// currentLocked returns the open record, creating an unnamed one when a
// value arrives before any header.
func (m *MemoryReporter) currentLocked() *Record {
	if len(m.records) == 0 {
		m.records = append(m.records, Record{})
	}
	return &m.records[len(m.records)-1]
}
