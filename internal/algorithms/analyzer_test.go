package algorithms

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"contour-extractor/internal/core"
)

var gray200 = color.RGBA{R: 200, G: 200, B: 200, A: 255}

func blankFrame(t *testing.T, rows, cols int) gocv.Mat {
	t.Helper()
	mat := gocv.Zeros(rows, cols, gocv.MatTypeCV8UC3)
	t.Cleanup(func() { mat.Close() })
	return mat
}

func frameOf(mat gocv.Mat, index int64) core.Frame {
	return core.Frame{Mat: mat, Index: index, LocalIndex: index, Video: "clip.avi"}
}

func TestAnalyzeSingleCircle(t *testing.T) {
	mat := blankFrame(t, 100, 120)
	gocv.Circle(&mat, image.Pt(50, 40), 10, gray200, -1)

	a := NewAnalyzer(core.DefaultBlack, core.DefaultMinArea, core.DefaultMaxArea)
	got, err := a.Analyze(frameOf(mat, 7), mat.Rows())
	require.NoError(t, err)
	require.Len(t, got, 1)

	m := got[0]
	assert.Equal(t, int64(7), m.Frame)
	assert.Equal(t, "clip.avi", m.Video)
	assert.InDelta(t, 50, m.CX, 1)
	assert.InDelta(t, 100-40, m.CY, 1)
	// The traced boundary runs through pixel centres, so the polygon is
	// smaller than the drawn disc by roughly half a pixel of radius.
	assert.InDelta(t, math.Pi*100, m.Area, 2*math.Pi*10)
	assert.Equal(t, 200.0, m.MinI)
	assert.Equal(t, 200.0, m.MaxI)
	assert.InDelta(t, 200.0, m.MeanI, 0.001)
}

func TestAnalyzeFlipsYAgainstGivenHeight(t *testing.T) {
	mat := blankFrame(t, 100, 120)
	gocv.Circle(&mat, image.Pt(30, 25), 6, gray200, -1)

	a := NewAnalyzer(core.DefaultBlack, core.DefaultMinArea, core.DefaultMaxArea)

	atNative, err := a.Analyze(frameOf(mat, 1), 100)
	require.NoError(t, err)
	atTall, err := a.Analyze(frameOf(mat, 1), 500)
	require.NoError(t, err)

	require.Len(t, atNative, 1)
	require.Len(t, atTall, 1)
	assert.Equal(t, 400, atTall[0].CY-atNative[0].CY)
	assert.Equal(t, atNative[0].CX, atTall[0].CX)
}

func TestAnalyzeAreaFilter(t *testing.T) {
	mat := blankFrame(t, 200, 200)
	gocv.Circle(&mat, image.Pt(150, 150), 8, gray200, -1)
	// speck: single pixel, zero contour area
	gocv.Rectangle(&mat, image.Rect(10, 10, 11, 11), gray200, -1)
	// blob: far above maxArea
	gocv.Rectangle(&mat, image.Rect(20, 20, 80, 80), gray200, -1)

	a := NewAnalyzer(core.DefaultBlack, core.DefaultMinArea, core.DefaultMaxArea)
	got, err := a.Analyze(frameOf(mat, 1), mat.Rows())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.InDelta(t, 150, got[0].CX, 1)
}

func TestAnalyzeAreaBoundsAreInclusive(t *testing.T) {
	mat := blankFrame(t, 60, 60)
	// 11x11 filled pixels; the traced polygon spans 10x10.
	gocv.Rectangle(&mat, image.Rect(10, 10, 21, 21), gray200, -1)

	exact, err := NewAnalyzer(core.DefaultBlack, 100, 100).Analyze(frameOf(mat, 1), 60)
	require.NoError(t, err)
	require.Len(t, exact, 1)
	assert.Equal(t, 100.0, exact[0].Area)
	assert.Equal(t, 15, exact[0].CX)
	assert.Equal(t, 60-15, exact[0].CY)

	above, err := NewAnalyzer(core.DefaultBlack, 100.5, 1000).Analyze(frameOf(mat, 1), 60)
	require.NoError(t, err)
	assert.Empty(t, above)

	below, err := NewAnalyzer(core.DefaultBlack, 1, 99.5).Analyze(frameOf(mat, 1), 60)
	require.NoError(t, err)
	assert.Empty(t, below)
}

func TestAnalyzeDropsZeroMomentContours(t *testing.T) {
	mat := blankFrame(t, 50, 50)
	// A one-pixel line has zero enclosed area; with minArea 0 it passes
	// the size filter and must still be dropped.
	gocv.Line(&mat, image.Pt(5, 5), image.Pt(30, 5), gray200, 1)
	gocv.Rectangle(&mat, image.Rect(40, 40, 41, 41), gray200, -1)

	got, err := NewAnalyzer(core.DefaultBlack, 0, 1000).Analyze(frameOf(mat, 1), 50)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestAnalyzeIgnoresRegionsBelowBlack(t *testing.T) {
	mat := blankFrame(t, 80, 80)
	gocv.Circle(&mat, image.Pt(40, 40), 10, color.RGBA{R: 100, G: 100, B: 100, A: 255}, -1)

	got, err := NewAnalyzer(core.DefaultBlack, core.DefaultMinArea, core.DefaultMaxArea).Analyze(frameOf(mat, 1), 80)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestAnalyzeMeasuresClippedIntensities(t *testing.T) {
	mat := blankFrame(t, 80, 80)
	gocv.Circle(&mat, image.Pt(40, 40), 12, gray200, -1)
	gocv.Circle(&mat, image.Pt(40, 40), 4, color.RGBA{R: 250, G: 250, B: 250, A: 255}, -1)

	got, err := NewAnalyzer(core.DefaultBlack, core.DefaultMinArea, core.DefaultMaxArea).Analyze(frameOf(mat, 1), 80)
	require.NoError(t, err)
	require.NotEmpty(t, got)

	// The outer contour encloses both intensities.
	outer := got[0]
	for _, m := range got[1:] {
		if m.Area > outer.Area {
			outer = m
		}
	}
	assert.Equal(t, 200.0, outer.MinI)
	assert.Equal(t, 250.0, outer.MaxI)
	assert.Greater(t, outer.MeanI, 200.0)
	assert.Less(t, outer.MeanI, 250.0)
}

func TestAnalyzeKeepsFirstChannelMean(t *testing.T) {
	mat := blankFrame(t, 80, 80)
	// BGR order: B=180, G=140, R=220
	gocv.Circle(&mat, image.Pt(40, 40), 10, color.RGBA{R: 220, G: 140, B: 180, A: 255}, -1)

	got, err := NewAnalyzer(core.DefaultBlack, core.DefaultMinArea, core.DefaultMaxArea).Analyze(frameOf(mat, 1), 80)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.InDelta(t, 180.0, got[0].MeanI, 0.001)
}

func TestAnalyzeRejectsEmptyFrame(t *testing.T) {
	mat := gocv.NewMat()
	defer mat.Close()

	_, err := NewAnalyzer(core.DefaultBlack, core.DefaultMinArea, core.DefaultMaxArea).Analyze(frameOf(mat, 3), 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPrecondition)
}

func TestAnalyzeAcceptsGrayscaleFrame(t *testing.T) {
	mat := gocv.Zeros(64, 64, gocv.MatTypeCV8UC1)
	defer mat.Close()
	gocv.Circle(&mat, image.Pt(20, 20), 6, gray200, -1)

	got, err := NewAnalyzer(core.DefaultBlack, core.DefaultMinArea, core.DefaultMaxArea).Analyze(frameOf(mat, 1), 64)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.InDelta(t, 20, got[0].CX, 1)
}

func TestAnalyzeMasksEachRegionSeparately(t *testing.T) {
	mat := blankFrame(t, 60, 100)
	gocv.Rectangle(&mat, image.Rect(10, 10, 20, 20), color.RGBA{R: 150, G: 150, B: 150, A: 255}, -1)
	gocv.Rectangle(&mat, image.Rect(60, 30, 70, 40), color.RGBA{R: 230, G: 230, B: 230, A: 255}, -1)

	got, err := NewAnalyzer(core.DefaultBlack, core.DefaultMinArea, core.DefaultMaxArea).Analyze(frameOf(mat, 1), 60)
	require.NoError(t, err)
	require.Len(t, got, 2)

	byIntensity := map[float64]core.Measurement{}
	for _, m := range got {
		assert.Equal(t, m.MinI, m.MaxI, "region at x=%d mixes intensities", m.CX)
		byIntensity[m.MinI] = m
	}
	require.Contains(t, byIntensity, 150.0)
	require.Contains(t, byIntensity, 230.0)
	assert.Less(t, byIntensity[150].CX, 30)
	assert.Greater(t, byIntensity[230].CX, 50)
	assert.InDelta(t, 230.0, byIntensity[230].MeanI, 1e-9)
}
