package scanner

import (
	"context"
	"errors"
	"sync"
	"time"

	"foodsaver/internal/models"
	"foodsaver/internal/tracker"

	"github.com/sirupsen/logrus"
)

var (
	ErrBusy           = errors.New("a receipt scan is already in progress")
	ErrClosed         = errors.New("scanner session is closed")
	ErrNothingPending = errors.New("no scanned items to confirm")
)

// DefaultTimeout bounds a scan when the session has no explicit timeout
const DefaultTimeout = 90 * time.Second

// State is the lifecycle position of a session
type State string

const (
	StateIdle       State = "idle"
	StateProcessing State = "processing"
	StateReady      State = "ready"
	StateFailed     State = "failed"
	StateClosed     State = "closed"
)

// Importer adds confirmed drafts to the inventory
type Importer interface {
	ImportBatch(ctx context.Context, drafts []models.Draft) tracker.BatchResult
}

// Session runs at most one extraction at a time for a single client
type Session struct {
	mu         sync.Mutex
	extractor  Extractor
	clock      func() time.Time
	timeout    time.Duration
	recorder   Recorder
	logger     *logrus.Logger
	state      State
	generation uint64
	cancel     context.CancelFunc
	pending    []models.Draft
	results    chan Result
	wg         sync.WaitGroup
}

// Option configures a Session
type Option func(*Session)

// WithClock sets the source of the reference instant for expiration dates
func WithClock(clock func() time.Time) Option {
	return func(s *Session) { s.clock = clock }
}

// WithTimeout bounds each scan
func WithTimeout(d time.Duration) Option {
	return func(s *Session) { s.timeout = d }
}

// WithRecorder sets the extraction metrics sink
func WithRecorder(r Recorder) Option {
	return func(s *Session) { s.recorder = r }
}

// WithLogger sets the logger
func WithLogger(l *logrus.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// NewSession creates an idle session
func NewSession(extractor Extractor, opts ...Option) *Session {
	s := &Session{
		extractor: extractor,
		clock:     time.Now,
		timeout:   DefaultTimeout,
		recorder:  nopRecorder{},
		logger:    logrus.StandardLogger(),
		state:     StateIdle,
		results:   make(chan Result, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Results delivers finished scans. The channel is closed by Close.
func (s *Session) Results() <-chan Result {
	return s.results
}

// State returns the current lifecycle state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Pending returns the drafts of the last successful scan
func (s *Session) Pending() []models.Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Draft(nil), s.pending...)
}

// Start begins extracting image in the background. Pending drafts from an
// earlier scan are dropped.
func (s *Session) Start(ctx context.Context, image []byte, mimeType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateClosed:
		return ErrClosed
	case StateProcessing:
		return ErrBusy
	}

	s.generation++
	gen := s.generation
	reference := s.clock()

	var scanCtx context.Context
	var cancel context.CancelFunc
	if s.timeout > 0 {
		scanCtx, cancel = context.WithTimeout(ctx, s.timeout)
	} else {
		scanCtx, cancel = context.WithCancel(ctx)
	}

	s.cancel = cancel
	s.pending = nil
	s.state = StateProcessing

	s.wg.Add(1)
	go s.run(scanCtx, cancel, gen, image, mimeType, reference)
	return nil
}

func (s *Session) run(ctx context.Context, cancel context.CancelFunc, gen uint64, image []byte, mimeType string, reference time.Time) {
	defer s.wg.Done()
	defer cancel()

	result := Scan(ctx, s.extractor, image, mimeType, reference)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation || s.state == StateClosed {
		s.recorder.RecordExtraction(OutcomeDiscarded, result.Duration, len(result.Drafts))
		s.logger.WithField("generation", gen).Debug("Discarded late scan result")
		return
	}

	s.recorder.RecordExtraction(result.Outcome(), result.Duration, len(result.Drafts))
	s.cancel = nil
	if result.Err != nil {
		s.state = StateFailed
		s.logger.WithError(result.Err).Warn("Receipt scan failed")
	} else {
		s.state = StateReady
		s.pending = result.Drafts
		s.logger.WithFields(logrus.Fields{
			"items":    len(result.Drafts),
			"rejected": len(result.Rejected),
		}).Info("Receipt scan ready")
	}

	// keep only the newest result if the client has not read the last one
	select {
	case s.results <- result:
	default:
		select {
		case <-s.results:
		default:
		}
		s.results <- result
	}
}

// Cancel abandons the scan in flight, if any. Its result is never delivered.
func (s *Session) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateProcessing {
		return false
	}
	s.generation++
	s.cancel()
	s.cancel = nil
	s.state = StateIdle
	return true
}

// Confirm imports the pending drafts and clears them. A ready scan with no
// drafts imports nothing and succeeds.
func (s *Session) Confirm(ctx context.Context, importer Importer) (tracker.BatchResult, error) {
	s.mu.Lock()
	switch {
	case s.state == StateClosed:
		s.mu.Unlock()
		return tracker.BatchResult{}, ErrClosed
	case s.state != StateReady:
		s.mu.Unlock()
		return tracker.BatchResult{}, ErrNothingPending
	}
	drafts := s.pending
	s.pending = nil
	s.state = StateIdle
	s.mu.Unlock()

	return importer.ImportBatch(ctx, drafts), nil
}

// Close cancels any scan in flight and closes the results channel. It waits
// for the background extraction to return.
func (s *Session) Close() {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	s.generation++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.state = StateClosed
	s.pending = nil
	close(s.results)
	s.mu.Unlock()

	s.wg.Wait()
}
