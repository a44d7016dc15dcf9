package algorithms

import (
	"gocv.io/x/gocv"
)

// BrightnessGate rejects globally overexposed frames before analysis.
type BrightnessGate struct {
	Threshold float64
}

func NewBrightnessGate(threshold float64) BrightnessGate {
	return BrightnessGate{Threshold: threshold}
}

// Brightness is the mean intensity of the raw frame over all of its channels.
func (g BrightnessGate) Brightness(mat gocv.Mat) float64 {
	if mat.Empty() {
		return 0
	}

	mean := mat.Mean()
	vals := []float64{mean.Val1, mean.Val2, mean.Val3, mean.Val4}

	channels := mat.Channels()
	if channels > len(vals) {
		channels = len(vals)
	}

	sum := 0.0
	for _, v := range vals[:channels] {
		sum += v
	}
	return sum / float64(channels)
}

// ShouldSkip reports whether the frame's brightness exceeds the threshold.
func (g BrightnessGate) ShouldSkip(mat gocv.Mat) bool {
	return g.Brightness(mat) > g.Threshold
}
