// Run tunables with defaults and validation
package core

import (
	"fmt"
	"path/filepath"
)

const (
	DefaultBlack               = 110
	DefaultMinArea             = 1.5
	DefaultMaxArea             = 1000.0
	DefaultBrightnessThreshold = 200.0
	DefaultThreads             = 2
	DefaultOutfile             = "output.tab"

	// OutputPrefix is prepended to the base name of Outfile.
	OutputPrefix = "contours_"
)

// Params holds every tunable of a run
type Params struct {
	Black               int
	MinArea             float64
	MaxArea             float64
	BrightnessThreshold float64
	Threads             int
	MaxInFlight         int // 0 means 2 * Threads
	Outfile             string
}

// DefaultParams returns the defaults used when a tunable is not given
func DefaultParams() Params {
	return Params{
		Black:               DefaultBlack,
		MinArea:             DefaultMinArea,
		MaxArea:             DefaultMaxArea,
		BrightnessThreshold: DefaultBrightnessThreshold,
		Threads:             DefaultThreads,
		Outfile:             DefaultOutfile,
	}
}

func (p Params) Validate() error {
	if p.Black < 0 || p.Black > 255 {
		return fmt.Errorf("black must be between 0 and 255, got %d", p.Black)
	}

	if p.MinArea < 0 {
		return fmt.Errorf("minArea must not be negative, got %g", p.MinArea)
	}

	if p.MaxArea < p.MinArea {
		return fmt.Errorf("maxArea (%g) must not be less than minArea (%g)", p.MaxArea, p.MinArea)
	}

	if p.Threads < 1 {
		return fmt.Errorf("threads must be at least 1, got %d", p.Threads)
	}

	if p.MaxInFlight < 0 {
		return fmt.Errorf("maxInFlight must not be negative, got %d", p.MaxInFlight)
	}

	if p.Outfile == "" {
		return fmt.Errorf("outfile must not be empty")
	}

	return nil
}

// InFlightLimit returns MaxInFlight, or twice the worker count when unset.
func (p Params) InFlightLimit() int {
	if p.MaxInFlight > 0 {
		return p.MaxInFlight
	}
	return 2 * p.Threads
}

// OutputPath returns the path of the contour table: the base name of
// Outfile with OutputPrefix, in the same directory.
func (p Params) OutputPath() string {
	dir, base := filepath.Split(p.Outfile)
	return filepath.Join(dir, OutputPrefix+base)
}
