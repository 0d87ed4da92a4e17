// Package progress turns the fetcher's line-oriented diagnostic output into
// a timeline of ProgressRecord values.
package progress

import (
	"github.com/Belphemur/TubeMP3/internal/models"
)

// Sink receives every emitted record, in order
type Sink func(models.ProgressRecord)

// Machine tracks the progress of one orchestration call.
// It is driven by a single goroutine and is not safe for concurrent use.
type Machine struct {
	requestID string
	total     int
	sink      Sink

	current   int // 1-based index of the running item, 0 before the first one
	item      float64
	phase     models.Phase
	title     string
	completed int
	counted   bool // the running item is already included in completed

	lastOverall float64
}

// New creates a Machine for a request with totalItems items (1 for a single video)
func New(requestID string, totalItems int, sink Sink) *Machine {
	if totalItems < 1 {
		totalItems = 1
	}
	if sink == nil {
		sink = func(models.ProgressRecord) {}
	}
	return &Machine{
		requestID: requestID,
		total:     totalItems,
		sink:      sink,
		phase:     models.PhasePreparing,
	}
}

// Feed classifies one diagnostic line and emits a record when visible state changed.
// Unrecognised lines are ignored.
func (m *Machine) Feed(line string) bool {
	changed := false
	for _, r := range rules {
		if r.match(line) {
			changed = r.apply(m, line)
			break
		}
	}
	if m.title == "" {
		if title, ok := titleFromLine(line); ok {
			m.title = title
			changed = true
		}
	}
	if changed {
		m.emit()
	}
	return changed
}

// BeginItem starts item index (1-based). An unfinished previous item is
// counted as processed so the overall fraction keeps moving forward.
func (m *Machine) BeginItem(index int, title string) {
	if m.current > 0 {
		m.closeItem()
	}
	m.current = index
	m.item = 0
	m.phase = models.PhasePreparing
	m.title = title
	m.counted = false
	m.emit()
}

// Skip marks the running item as already present on disk
func (m *Machine) Skip(title string) {
	if title != "" {
		m.title = title
	}
	m.item = 100
	m.phase = models.PhaseSkipped
	m.closeItem()
	m.emit()
}

// FailItem marks the running item as processed without emitting.
// The next BeginItem or Finish reports the new position.
func (m *Machine) FailItem() {
	m.closeItem()
}

// Finish emits the terminal record: overall 100, phase Complete
func (m *Machine) Finish() {
	m.item = 100
	m.phase = models.PhaseComplete
	m.closeItem()
	m.lastOverall = 100
	m.sink(m.record(100))
}

// Snapshot returns the current record without emitting it
func (m *Machine) Snapshot() models.ProgressRecord {
	return m.record(m.overall())
}

func (m *Machine) closeItem() {
	if !m.counted {
		m.completed++
		m.counted = true
	}
}

// overall is (completed + item/100) / total * 100, clamped so it never
// decreases. An item already counted in completed contributes nothing more.
func (m *Machine) overall() float64 {
	var value float64
	if m.total == 1 {
		value = m.item
	} else {
		done := float64(m.completed)
		if !m.counted {
			done += m.item / 100
		}
		value = done / float64(m.total) * 100
	}
	value = clamp(value)
	if value < m.lastOverall {
		value = m.lastOverall
	}
	return value
}

func (m *Machine) emit() {
	overall := m.overall()
	m.lastOverall = overall
	m.sink(m.record(overall))
}

func (m *Machine) record(overall float64) models.ProgressRecord {
	return models.ProgressRecord{
		RequestID:       m.requestID,
		OverallFraction: overall,
		CurrentItem:     m.current,
		TotalItems:      m.total,
		ItemFraction:    m.item,
		Phase:           m.phase,
		CurrentTitle:    m.title,
	}
}
