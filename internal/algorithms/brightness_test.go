package algorithms

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"gocv.io/x/gocv"
)

func TestBrightnessGate(t *testing.T) {
	gate := NewBrightnessGate(200)

	white := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 255, 255, 0), 8, 8, gocv.MatTypeCV8UC3)
	defer white.Close()
	assert.True(t, gate.ShouldSkip(white))

	dark := gocv.Zeros(8, 8, gocv.MatTypeCV8UC3)
	defer dark.Close()
	assert.False(t, gate.ShouldSkip(dark))

	// only blue saturated: mean over channels is 85
	blue := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 0, 0, 0), 8, 8, gocv.MatTypeCV8UC3)
	defer blue.Close()
	assert.InDelta(t, 85.0, gate.Brightness(blue), 0.001)
	assert.False(t, gate.ShouldSkip(blue))
}

func TestBrightnessGateIsStrict(t *testing.T) {
	mat := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(200, 200, 200, 0), 4, 4, gocv.MatTypeCV8UC3)
	defer mat.Close()

	assert.False(t, NewBrightnessGate(200).ShouldSkip(mat))
	assert.True(t, NewBrightnessGate(199.5).ShouldSkip(mat))
}

func TestBrightnessPartialFrame(t *testing.T) {
	mat := gocv.Zeros(10, 10, gocv.MatTypeCV8UC3)
	defer mat.Close()
	// top half white
	gocv.Rectangle(&mat, image.Rect(0, 0, 10, 5), color.RGBA{R: 255, G: 255, B: 255, A: 255}, -1)

	assert.InDelta(t, 127.5, NewBrightnessGate(0).Brightness(mat), 0.001)
}
