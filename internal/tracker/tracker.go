// Package tracker owns the food inventory state and every operation that
// changes it.
//
// A Tracker is the only writer of its state. Each mutation validates its
// input, applies the change under one lock, and then saves the full document
// through the configured store.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"foodsaver/internal/coach"
	"foodsaver/internal/freshness"
	"foodsaver/internal/models"
	"foodsaver/internal/store"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Recorder receives metrics about tracker activity
type Recorder interface {
	RecordItemsAdded(n int)
	RecordInventory(counts freshness.StatusCounts)
	RecordWaste(r models.WasteRecord)
	RecordConsumed(r models.ConsumedRecord)
	RecordPersist(err error, took time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) RecordItemsAdded(int)                   {}
func (nopRecorder) RecordInventory(freshness.StatusCounts) {}
func (nopRecorder) RecordWaste(models.WasteRecord)         {}
func (nopRecorder) RecordConsumed(models.ConsumedRecord)   {}
func (nopRecorder) RecordPersist(error, time.Duration)     {}

// Tracker holds the inventory, waste log and consumed log
type Tracker struct {
	mu    sync.Mutex
	state *models.State
	store store.Store

	clock    func() time.Time
	newID    func() string
	loc      *time.Location
	strict   bool
	recorder Recorder
	coach    *coach.Coach
	logger   *logrus.Logger

	lastPersistErr error
}

// Option configures a Tracker
type Option func(*Tracker)

// WithClock sets the source of "now"
func WithClock(clock func() time.Time) Option {
	return func(t *Tracker) { t.clock = clock }
}

// WithIDGenerator sets the id source for items and records
func WithIDGenerator(newID func() string) Option {
	return func(t *Tracker) { t.newID = newID }
}

// WithLocation sets the time zone used for calendar days
func WithLocation(loc *time.Location) Option {
	return func(t *Tracker) { t.loc = loc }
}

// WithStrictWasteAmount rejects waste amounts larger than the item quantity
func WithStrictWasteAmount(strict bool) Option {
	return func(t *Tracker) { t.strict = strict }
}

// WithRecorder sets the metrics recorder
func WithRecorder(r Recorder) Option {
	return func(t *Tracker) { t.recorder = r }
}

// WithCoach sets the coach used for messages
func WithCoach(c *coach.Coach) Option {
	return func(t *Tracker) { t.coach = c }
}

// WithLogger sets the logger
func WithLogger(l *logrus.Logger) Option {
	return func(t *Tracker) { t.logger = l }
}

// New creates a tracker with an empty state. Call Load to read the stored
// document.
func New(st store.Store, opts ...Option) *Tracker {
	t := &Tracker{
		state:    models.NewState(),
		store:    st,
		clock:    time.Now,
		newID:    uuid.NewString,
		loc:      time.Local,
		recorder: nopRecorder{},
		logger:   logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.coach == nil {
		t.coach = coach.New(rand.NewSource(t.clock().UnixNano()))
	}
	return t
}

// Load replaces the in-memory state with the stored document. A corrupt
// document is logged and replaced by an empty state.
func (t *Tracker) Load(ctx context.Context) error {
	st, err := t.store.Load(ctx)
	switch {
	case errors.Is(err, store.ErrCorruptState):
		t.logger.WithError(err).Warn("Stored state is unreadable, starting empty")
		st = models.NewState()
	case err != nil:
		return fmt.Errorf("failed to load state: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = st
	t.recorder.RecordInventory(freshness.Count(t.state.Items, t.clock()))

	t.logger.WithFields(logrus.Fields{
		"items":    len(st.Items),
		"wasted":   len(st.WasteLog),
		"consumed": len(st.ConsumedLog),
	}).Info("State loaded")
	return nil
}

// Now returns the tracker clock's current instant
func (t *Tracker) Now() time.Time {
	return t.clock()
}

// Location returns the time zone used for calendar days
func (t *Tracker) Location() *time.Location {
	return t.loc
}

// Coach returns the tracker's coach
func (t *Tracker) Coach() *coach.Coach {
	return t.coach
}

// LastPersistError returns the error of the most recent save, if it failed
func (t *Tracker) LastPersistError() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastPersistErr
}

// persist saves a snapshot of the state. It must be called with t.mu held.
// A failed save leaves the in-memory state as the source of truth.
func (t *Tracker) persist(ctx context.Context) {
	// Saves outlive the request that triggered them.
	ctx = context.WithoutCancel(ctx)

	start := time.Now()
	err := t.store.Save(ctx, t.state.Clone())
	t.lastPersistErr = err
	t.recorder.RecordPersist(err, time.Since(start))
	t.recorder.RecordInventory(freshness.Count(t.state.Items, t.clock()))

	if err != nil {
		t.logger.WithError(err).Error("Failed to persist state")
	}
}
