// Contour Extractor - particle measurements from video frames
// License: MIT

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"contour-extractor/internal/core"
	"contour-extractor/internal/metrics"
	"contour-extractor/internal/pipeline"
)

const (
	AppName    = "Contour Extractor"
	AppVersion = "1.0.0"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	defaults := core.DefaultParams()

	fs := flag.NewFlagSet("contour-extractor", flag.ContinueOnError)
	pattern := fs.String("pattern", "", "Glob pattern selecting the videos to process (or first positional argument)")
	black := fs.Int("black", defaults.Black, "Black point: intensities below it are clipped to zero")
	minArea := fs.Float64("min-area", defaults.MinArea, "Smallest contour area kept (inclusive)")
	maxArea := fs.Float64("max-area", defaults.MaxArea, "Largest contour area kept (inclusive)")
	brightness := fs.Float64("brightness", defaults.BrightnessThreshold, "Skip frames whose mean intensity exceeds this value")
	threads := fs.Int("threads", defaults.Threads, "Number of analysis workers")
	maxInFlight := fs.Int("max-in-flight", 0, "Frames submitted but not yet collected (0 = 2 x threads)")
	outfile := fs.String("outfile", defaults.Outfile, "Base output file name; results go to contours_<outfile>")
	metricsOut := fs.String("metrics-out", "", "Write run metrics in Prometheus text format to this file")
	debugMode := fs.Bool("debug", false, "Enable debug mode with verbose logging")

	if err := fs.Parse(args); err != nil {
		return 1
	}
	if *pattern == "" && fs.NArg() > 0 {
		*pattern = fs.Arg(0)
	}

	logger := initLogger(*debugMode)
	if *pattern == "" {
		logger.Error("No video pattern given")
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <pattern>\n", fs.Name())
		fs.PrintDefaults()
		return 1
	}

	logger.WithFields(logrus.Fields{
		"version":    AppVersion,
		"debug_mode": *debugMode,
	}).Infof("Starting %s", AppName)

	params := core.Params{
		Black:               *black,
		MinArea:             *minArea,
		MaxArea:             *maxArea,
		BrightnessThreshold: *brightness,
		Threads:             *threads,
		MaxInFlight:         *maxInFlight,
		Outfile:             *outfile,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runMetrics := metrics.New()
	runner, err := pipeline.NewRunner(pipeline.Options{
		Params:  params,
		Logger:  logger,
		Metrics: runMetrics,
		Debug:   *debugMode,
	})
	if err != nil {
		logger.WithError(err).Error("Invalid configuration")
		return 1
	}

	_, runErr := runner.Run(ctx, *pattern)

	if *metricsOut != "" {
		if err := runMetrics.WriteTextfile(*metricsOut); err != nil {
			logger.WithError(err).Error("Failed to write metrics")
		}
	}

	switch {
	case errors.Is(runErr, context.Canceled):
		logger.Warn("Interrupted")
		return 130
	case runErr != nil:
		logger.WithError(runErr).Error("Run failed")
		return 1
	}

	logger.Info("Application shutting down gracefully")
	return 0
}

// initLogger initializes the logger with appropriate level
func initLogger(debugMode bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	if debugMode {
		logger.SetLevel(logrus.DebugLevel)
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   true,
		})
		logger.Debug("Debug logging enabled")
	} else {
		logger.SetLevel(logrus.InfoLevel)
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	return logger
}
