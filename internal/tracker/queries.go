package tracker

import (
	"time"

	"foodsaver/internal/coach"
	"foodsaver/internal/freshness"
	"foodsaver/internal/metrics"
	"foodsaver/internal/models"
)

// Snapshot returns a copy of the whole state
func (t *Tracker) Snapshot() *models.State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.Clone()
}

// Items returns the active items classified at reference, soonest first
func (t *Tracker) Items(reference time.Time) []freshness.ItemView {
	return freshness.Annotate(t.Snapshot().Items, reference)
}

// Urgent returns the items expiring within two days, expired ones included
func (t *Tracker) Urgent(reference time.Time) []freshness.ItemView {
	return freshness.Urgent(t.Snapshot().Items, reference)
}

// StatusCounts tallies active items per status at reference
func (t *Tracker) StatusCounts(reference time.Time) freshness.StatusCounts {
	return freshness.Count(t.Snapshot().Items, reference)
}

// WasteLog returns the waste log, newest first
func (t *Tracker) WasteLog() []models.WasteRecord {
	return freshness.WasteNewestFirst(t.Snapshot().WasteLog)
}

// ConsumedLog returns the consumed log, newest first
func (t *Tracker) ConsumedLog() []models.ConsumedRecord {
	return freshness.ConsumedNewestFirst(t.Snapshot().ConsumedLog)
}

// Totals summarizes both logs
func (t *Tracker) Totals() metrics.Totals {
	s := t.Snapshot()
	return metrics.Summarize(s.WasteLog, s.ConsumedLog)
}

// TimeSeries buckets both logs by calendar day in the tracker's location
func (t *Tracker) TimeSeries() []metrics.DayBucket {
	s := t.Snapshot()
	return metrics.TimeSeries(s.WasteLog, s.ConsumedLog, t.loc)
}

// CategoryBreakdown returns each category's share of waste cost
func (t *Tracker) CategoryBreakdown() []metrics.Share {
	return metrics.CategoryBreakdown(t.Snapshot().WasteLog)
}

// ReasonBreakdown returns each reason's share of waste records
func (t *Tracker) ReasonBreakdown() []metrics.Share {
	return metrics.ReasonBreakdown(t.Snapshot().WasteLog)
}

// Advice picks a coach message for the state at reference
func (t *Tracker) Advice(reference time.Time) (coach.Kind, string) {
	s := t.Snapshot()
	totals := metrics.Summarize(s.WasteLog, s.ConsumedLog)
	urgent := freshness.Urgent(s.Items, reference)
	return t.coach.Advise(len(urgent), len(s.Items), len(s.WasteLog), totals.WastedCO2)
}
