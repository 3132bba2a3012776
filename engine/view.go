package engine

import (
	"sort"
	"time"
)

// ============================================================================
// RECORD VIEW — Zero-Copy Data Access Interface
// ============================================================================
// The engine reads telemetry through this interface and never mutates it.
//
// Implementations:
//   Dataset: the loaded, timestamp-ordered records (immutable)
//   SubView: filtered subset (indices into the dataset, zero-copy)
//
// Every derived structure (KPIs, series, summaries, correlation) is computed
// from a view on each request; nothing is cached between requests.
// ============================================================================

// RecordView provides indexed, read-only access to timestamp-ordered records.
type RecordView interface {
	Len() int
	Record(index int) Record
	Timestamp(index int) time.Time
	Status(index int) Status
	ErrorCode(index int) string
	Measure(index int, m Measure) float64
	MeasureKeys() []Measure // measures present in the source CSV
}

// ============================================================================
// DATASET — loaded once per session, shared read-only
// ============================================================================

// Dataset is the immutable, timestamp-ordered result of a load.
// Safe for concurrent readers; nothing writes to it after NewDataset returns.
type Dataset struct {
	source   string
	loadedAt time.Time
	records  []Record
	measures []Measure
}

// NewDataset copies records, orders them by timestamp (stable for ties) and
// freezes the result. measures lists the numeric columns present in the
// source; nil means production count, cycle time and every sensor parameter.
func NewDataset(source string, records []Record, measures []Measure) *Dataset {
	own := make([]Record, len(records))
	copy(own, records)
	sort.SliceStable(own, func(i, j int) bool {
		return own[i].Timestamp.Before(own[j].Timestamp)
	})

	if measures == nil {
		measures = append([]Measure{MeasureProduction, MeasureCycleTime}, sensorParams...)
	}
	ms := make([]Measure, len(measures))
	copy(ms, measures)

	return &Dataset{
		source:   source,
		loadedAt: time.Now(),
		records:  own,
		measures: ms,
	}
}

// Source returns where the dataset was loaded from.
func (d *Dataset) Source() string { return d.source }

// LoadedAt returns when the dataset was built.
func (d *Dataset) LoadedAt() time.Time { return d.loadedAt }

func (d *Dataset) Len() int { return len(d.records) }

func (d *Dataset) Record(i int) Record {
	if i < 0 || i >= len(d.records) {
		return Record{}
	}
	return d.records[i]
}

func (d *Dataset) Timestamp(i int) time.Time {
	if i < 0 || i >= len(d.records) {
		return time.Time{}
	}
	return d.records[i].Timestamp
}

func (d *Dataset) Status(i int) Status {
	if i < 0 || i >= len(d.records) {
		return ""
	}
	return d.records[i].Status
}

func (d *Dataset) ErrorCode(i int) string {
	if i < 0 || i >= len(d.records) {
		return ""
	}
	return d.records[i].ErrorCode
}

func (d *Dataset) Measure(i int, m Measure) float64 {
	if i < 0 || i >= len(d.records) {
		return 0
	}
	return m.Value(&d.records[i])
}

func (d *Dataset) MeasureKeys() []Measure { return d.measures }

// ============================================================================
// SUB VIEW — filtered subset (zero-copy)
// ============================================================================

// SubView is a filtered subset of a parent RecordView.
// Holds indices into the parent; no data copy. Nested sub-views are
// flattened onto the root so every access stays a single hop.
type SubView struct {
	parent  RecordView
	indices []int
}

func newSubView(parent RecordView, indices []int) RecordView {
	if sv, ok := parent.(*SubView); ok {
		mapped := make([]int, len(indices))
		for i, idx := range indices {
			mapped[i] = sv.indices[idx]
		}
		return &SubView{parent: sv.parent, indices: mapped}
	}
	return &SubView{parent: parent, indices: indices}
}

// Select returns the records of view for which keep returns true, in order.
func Select(view RecordView, keep func(i int) bool) RecordView {
	n := view.Len()
	indices := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if keep(i) {
			indices = append(indices, i)
		}
	}
	return newSubView(view, indices)
}

func (v *SubView) Len() int { return len(v.indices) }

func (v *SubView) Record(i int) Record {
	if i < 0 || i >= len(v.indices) {
		return Record{}
	}
	return v.parent.Record(v.indices[i])
}

func (v *SubView) Timestamp(i int) time.Time {
	if i < 0 || i >= len(v.indices) {
		return time.Time{}
	}
	return v.parent.Timestamp(v.indices[i])
}

func (v *SubView) Status(i int) Status {
	if i < 0 || i >= len(v.indices) {
		return ""
	}
	return v.parent.Status(v.indices[i])
}

func (v *SubView) ErrorCode(i int) string {
	if i < 0 || i >= len(v.indices) {
		return ""
	}
	return v.parent.ErrorCode(v.indices[i])
}

func (v *SubView) Measure(i int, m Measure) float64 {
	if i < 0 || i >= len(v.indices) {
		return 0
	}
	return v.parent.Measure(v.indices[i], m)
}

func (v *SubView) MeasureKeys() []Measure { return v.parent.MeasureKeys() }

// hasMeasure reports whether view's source carried column m.
func hasMeasure(view RecordView, m Measure) bool {
	for _, k := range view.MeasureKeys() {
		if k == m {
			return true
		}
	}
	return false
}
