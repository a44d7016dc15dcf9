// Package pipeline drives a run: video files -> brightness gate ->
// scheduler -> analyzer -> sink.
//
// Runs and videos are traced through the global OpenTelemetry tracer
// provider. Nothing here installs one, so spans are no-ops unless the
// embedding program registers a provider with otel.SetTracerProvider.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"contour-extractor/internal/algorithms"
	"contour-extractor/internal/core"
	"contour-extractor/internal/io"
	"contour-extractor/internal/metrics"
	"contour-extractor/internal/scheduler"
)

var tracer = otel.Tracer("contour-extractor/internal/pipeline")

// FrameAnalyzer measures the regions of one frame. Implementations must be
// safe for concurrent use and must not retain the frame.
type FrameAnalyzer interface {
	Analyze(frame core.Frame, frameHeight int) ([]core.Measurement, error)
}

// Options configures a Runner. Zero values fall back to defaults.
type Options struct {
	Params   core.Params
	Logger   logrus.FieldLogger
	Metrics  *metrics.RunMetrics
	Open     io.OpenFunc
	Analyzer FrameAnalyzer
	Debug    bool
}

// Summary describes a finished run.
type Summary struct {
	RunID         string
	Videos        int
	VideosSkipped int
	FramesRead    int64
	FramesSkipped int64
	Dispatched    int64
	Collected     int64
	Failed        int64
	Regions       int
	Output        string
	Elapsed       time.Duration
}

// Runner processes the videos matching a pattern one at a time.
type Runner struct {
	params   core.Params
	logger   logrus.FieldLogger
	metrics  *metrics.RunMetrics
	open     io.OpenFunc
	analyzer FrameAnalyzer
	gate     algorithms.BrightnessGate
	debug    bool

	summary Summary
}

func NewRunner(opts Options) (*Runner, error) {
	if err := opts.Params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid parameters: %w", err)
	}

	r := &Runner{
		params:   opts.Params,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		open:     opts.Open,
		analyzer: opts.Analyzer,
		gate:     algorithms.NewBrightnessGate(opts.Params.BrightnessThreshold),
		debug:    opts.Debug,
	}

	if r.logger == nil {
		r.logger = logrus.StandardLogger()
	}
	if r.metrics == nil {
		r.metrics = metrics.New()
	}
	if r.open == nil {
		r.open = io.OpenCapture
	}
	if r.analyzer == nil {
		r.analyzer = algorithms.NewAnalyzerFromParams(opts.Params)
	}

	return r, nil
}

// Run is NewRunner followed by Runner.Run.
func Run(ctx context.Context, pattern string, opts Options) ([]core.Measurement, error) {
	r, err := NewRunner(opts)
	if err != nil {
		return nil, err
	}
	return r.Run(ctx, pattern)
}

// Run processes every video matching pattern and returns all measurements
// in the order they were written. A pattern with no matches is not an
// error: it is logged and yields an empty result without creating the
// output file. When ctx is cancelled, no further frames are read, pending
// tasks are drained, and the partial result is returned with ctx.Err().
func (r *Runner) Run(ctx context.Context, pattern string) ([]core.Measurement, error) {
	start := time.Now()
	r.summary = Summary{RunID: uuid.NewString()}
	log := r.logger.WithField("run_id", r.summary.RunID)

	ctx, span := tracer.Start(ctx, "pipeline.Run", trace.WithAttributes(
		attribute.String("pattern", pattern),
		attribute.String("run_id", r.summary.RunID),
	))
	defer span.End()

	videos, err := io.ExpandPattern(pattern)
	if err != nil {
		if errors.Is(err, io.ErrNoVideos) {
			log.Warnf("No videos found matching pattern: %s", pattern)
			return []core.Measurement{}, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "expand pattern")
		return nil, err
	}

	output := r.params.OutputPath()
	sink, err := io.CreateResultSink(output)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create output")
		return nil, err
	}
	r.summary.Output = output

	log.WithFields(logrus.Fields{
		"videos":        len(videos),
		"output":        output,
		"black":         r.params.Black,
		"min_area":      r.params.MinArea,
		"max_area":      r.params.MaxArea,
		"brightness":    r.params.BrightnessThreshold,
		"threads":       r.params.Threads,
		"max_in_flight": r.params.InFlightLimit(),
	}).Info("Starting contour extraction")

	sched := scheduler.New(scheduler.Config{
		Workers:     r.params.Threads,
		MaxInFlight: r.params.InFlightLimit(),
	}, func(res scheduler.Result) error {
		if err := sink.Append(res.Measurements); err != nil {
			return err
		}
		r.metrics.Regions.Add(float64(len(res.Measurements)))
		return nil
	}, log, r.metrics)

	var cumulative int64
	var runErr error
	for _, video := range videos {
		if ctx.Err() != nil {
			break
		}
		cumulative, runErr = r.processVideo(ctx, log, sched, video, cumulative)
		if runErr != nil {
			break
		}
	}

	schedErr := sched.Close()
	sinkErr := sink.Close()

	stats := sched.Stats()
	r.summary.Dispatched = stats.Dispatched
	r.summary.Collected = stats.Collected
	r.summary.Failed = stats.Failed
	r.summary.Regions = sink.Rows()
	r.summary.Elapsed = time.Since(start)

	log.WithFields(logrus.Fields{
		"videos":         r.summary.Videos,
		"videos_skipped": r.summary.VideosSkipped,
		"frames_read":    r.summary.FramesRead,
		"frames_skipped": r.summary.FramesSkipped,
		"tasks":          r.summary.Collected,
		"tasks_failed":   r.summary.Failed,
		"regions":        r.summary.Regions,
		"elapsed":        r.summary.Elapsed.String(),
	}).Info("Contour extraction finished")

	span.SetAttributes(
		attribute.Int64("frames_read", r.summary.FramesRead),
		attribute.Int("regions", r.summary.Regions),
	)

	err = firstError(runErr, schedErr, sinkErr, ctx.Err())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return sink.Results(), err
}

// Summary returns the figures of the last Run.
func (r *Runner) Summary() Summary {
	return r.summary
}

// processVideo reads one video to its end, dispatching every frame that
// passes the gate, then waits for all of them. It returns the updated
// cumulative frame index.
func (r *Runner) processVideo(ctx context.Context, log logrus.FieldLogger, sched *scheduler.Scheduler, video string, cumulative int64) (int64, error) {
	_, span := tracer.Start(ctx, "pipeline.processVideo", trace.WithAttributes(attribute.String("video", video)))
	defer span.End()

	vlog := log.WithField("video", video)

	src, err := io.OpenVideo(video, r.open)
	if err != nil {
		vlog.WithError(err).Warnf("Could not open video: %s", video)
		r.metrics.Videos.WithLabelValues(metrics.VideoUnopened).Inc()
		r.summary.VideosSkipped++
		return cumulative, nil
	}
	defer src.Close()

	var skipped int64
	for ctx.Err() == nil {
		frame, ok := src.Next(cumulative)
		if !ok {
			break
		}
		cumulative = frame.Index
		r.metrics.FramesRead.Inc()
		r.summary.FramesRead++

		if r.gate.ShouldSkip(frame.Mat) {
			frame.Close()
			skipped++
			r.metrics.FramesSkipped.Inc()
			r.summary.FramesSkipped++
			continue
		}

		// The task owns the frame from here on; it is closed once analysed.
		height := src.Height()
		err := sched.Submit(frame.Index, func() ([]core.Measurement, error) {
			defer frame.Close()
			return r.analyzer.Analyze(frame, height)
		})
		if err != nil {
			_ = sched.Flush()
			span.RecordError(err)
			return cumulative, err
		}
	}

	if ctx.Err() != nil {
		vlog.WithFields(logrus.Fields{
			"last_frame":     cumulative,
			"pending_frames": sched.PendingFrames(),
		}).Warn("Interrupted, draining pending frames")
		return cumulative, sched.Flush()
	}

	if src.FramesRead() == 0 {
		vlog.WithError(io.ErrEmptyVideo).Warnf("Could not read any frame from video: %s", src.Path())
		r.metrics.Videos.WithLabelValues(metrics.VideoEmpty).Inc()
		r.summary.VideosSkipped++
		return cumulative, nil
	}

	if err := sched.Flush(); err != nil {
		span.RecordError(err)
		return cumulative, err
	}

	r.metrics.Videos.WithLabelValues(metrics.VideoProcessed).Inc()
	r.summary.Videos++

	span.SetAttributes(
		attribute.Int64("frames", src.FramesRead()),
		attribute.Int64("skipped", skipped),
	)
	vlog.WithFields(logrus.Fields{
		"frames":     src.FramesRead(),
		"skipped":    skipped,
		"height":     src.Height(),
		"last_frame": cumulative,
	}).Info("Video processed")

	if r.debug {
		logMemoryUsage(vlog)
	}

	return cumulative, nil
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
