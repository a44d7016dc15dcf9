// Bounded worker pool overlapping frame decoding with frame analysis
package scheduler

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"contour-extractor/internal/core"
	"contour-extractor/internal/metrics"
)

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("scheduler is closed")

// Task analyses one frame. It runs on a worker goroutine.
type Task func() ([]core.Measurement, error)

// DrainFunc receives every successful result on the producer goroutine,
// in completion order.
type DrainFunc func(Result) error

// Kind classifies a task failure.
type Kind int

const (
	KindFailed Kind = iota
	KindPanic
)

func (k Kind) String() string {
	switch k {
	case KindFailed:
		return "failed"
	case KindPanic:
		return "panic"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// TaskError describes a task that produced no measurements.
type TaskError struct {
	Kind  Kind
	Frame int64
	Err   error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("frame %d: task %s: %v", e.Frame, e.Kind, e.Err)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

// Result is the outcome of one task: measurements, or an error and nothing else.
type Result struct {
	ID           TaskID
	Frame        int64
	Measurements []core.Measurement
	Err          *TaskError
	Duration     time.Duration
}

func (r Result) OK() bool {
	return r.Err == nil
}

// Config sizes the pool. MaxInFlight <= 0 means 2 * Workers.
type Config struct {
	Workers     int
	MaxInFlight int
}

// Stats counts tasks over the scheduler's lifetime.
type Stats struct {
	Dispatched int64
	Collected  int64
	Failed     int64
}

type job struct {
	id    TaskID
	frame int64
	task  Task
}

// Scheduler runs tasks on a fixed pool of workers while keeping at most
// MaxInFlight tasks submitted but uncollected. Submit, Flush and Close
// must be called from a single producer goroutine; results are drained on
// that goroutine, which makes DrainFunc the only writer of the results.
type Scheduler struct {
	cfg     Config
	jobs    chan job
	results chan Result
	pending *PendingSet
	drain   DrainFunc
	logger  logrus.FieldLogger
	metrics *metrics.RunMetrics
	group   *errgroup.Group

	nextID   TaskID
	stats    Stats
	drainErr error
	closed   bool
}

// New starts the worker pool. drain may be nil. m may be nil.
func New(cfg Config, drain DrainFunc, logger logrus.FieldLogger, m *metrics.RunMetrics) *Scheduler {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = 2 * cfg.Workers
	}
	if drain == nil {
		drain = func(Result) error { return nil }
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if m == nil {
		m = metrics.New()
	}

	s := &Scheduler{
		cfg: cfg,
		// Both channels hold MaxInFlight entries, so neither the producer
		// nor a worker ever blocks on a send.
		jobs:    make(chan job, cfg.MaxInFlight),
		results: make(chan Result, cfg.MaxInFlight),
		pending: NewPendingSet(cfg.MaxInFlight),
		drain:   drain,
		logger:  logger,
		metrics: m,
		group:   &errgroup.Group{},
	}

	for i := 0; i < cfg.Workers; i++ {
		s.group.Go(func() error {
			for j := range s.jobs {
				s.results <- s.run(j)
			}
			return nil
		})
	}

	logger.WithFields(logrus.Fields{
		"workers":       cfg.Workers,
		"max_in_flight": cfg.MaxInFlight,
	}).Debug("Scheduler started")

	return s
}

// Submit dispatches task for frame. At capacity it first blocks until the
// earliest completion and drains everything that has completed by then.
// The returned error is the first DrainFunc error, if any.
func (s *Scheduler) Submit(frame int64, task Task) error {
	if s.closed {
		return ErrClosed
	}

	if s.pending.Full() {
		s.waitAny()
	}

	id := s.nextID
	s.nextID++

	if err := s.pending.Add(id, frame); err != nil {
		return fmt.Errorf("dispatch frame %d: %w", frame, err)
	}
	s.jobs <- job{id: id, frame: frame, task: task}

	s.stats.Dispatched++
	s.metrics.TasksDispatched.Inc()
	s.metrics.InFlight.Set(float64(s.pending.Len()))

	return s.drainErr
}

// Flush blocks until every pending task has been collected.
func (s *Scheduler) Flush() error {
	for s.pending.Len() > 0 {
		s.collect(<-s.results)
	}
	return s.drainErr
}

// Close flushes, stops the workers and waits for them to exit.
func (s *Scheduler) Close() error {
	if s.closed {
		return s.drainErr
	}

	err := s.Flush()
	close(s.jobs)
	_ = s.group.Wait()
	s.closed = true

	s.logger.WithFields(logrus.Fields{
		"dispatched": s.stats.Dispatched,
		"collected":  s.stats.Collected,
		"failed":     s.stats.Failed,
	}).Debug("Scheduler stopped")

	return err
}

// InFlight returns the number of tasks submitted but not yet collected.
func (s *Scheduler) InFlight() int {
	return s.pending.Len()
}

func (s *Scheduler) MaxInFlight() int {
	return s.pending.Cap()
}

// PendingFrames lists the frame indices of uncollected tasks in ascending order.
func (s *Scheduler) PendingFrames() []int64 {
	return s.pending.Frames()
}

func (s *Scheduler) Stats() Stats {
	return s.stats
}

// waitAny blocks for one result, then drains any others already waiting.
func (s *Scheduler) waitAny() {
	s.collect(<-s.results)

	for {
		select {
		case res := <-s.results:
			s.collect(res)
		default:
			return
		}
	}
}

func (s *Scheduler) collect(res Result) {
	entry, ok := s.pending.Remove(res.ID)
	if !ok {
		s.logger.WithField("task_id", res.ID).Warn("Collected a task that was not pending")
	}

	s.stats.Collected++
	s.metrics.InFlight.Set(float64(s.pending.Len()))
	s.metrics.AnalysisSeconds.Observe(res.Duration.Seconds())

	if !res.OK() {
		s.stats.Failed++
		s.metrics.TasksCollected.WithLabelValues(metrics.OutcomeFailed).Inc()
		s.logger.WithFields(logrus.Fields{
			"frame":   res.Frame,
			"task_id": res.ID,
			"kind":    res.Err.Kind.String(),
			"waited":  time.Since(entry.Dispatched).String(),
		}).WithError(res.Err.Err).Errorf("Frame %d generated an error", res.Frame)
		return
	}

	s.metrics.TasksCollected.WithLabelValues(metrics.OutcomeOK).Inc()

	if s.drainErr != nil {
		return
	}
	if err := s.drain(res); err != nil {
		s.drainErr = err
		s.logger.WithError(err).WithField("frame", res.Frame).Error("Draining results failed")
	}
}

func (s *Scheduler) run(j job) (res Result) {
	start := time.Now()
	res = Result{ID: j.id, Frame: j.frame}

	defer func() {
		if r := recover(); r != nil {
			res.Measurements = nil
			res.Err = &TaskError{Kind: KindPanic, Frame: j.frame, Err: fmt.Errorf("%v", r)}
		}
		res.Duration = time.Since(start)
	}()

	measurements, err := j.task()
	if err != nil {
		res.Err = &TaskError{Kind: KindFailed, Frame: j.frame, Err: err}
		return res
	}

	res.Measurements = measurements
	return res
}
