// Contour detection and per-region measurement for a single frame
package algorithms

import (
	"errors"
	"fmt"
	"image/color"

	"gocv.io/x/gocv"

	"contour-extractor/internal/core"
)

// ErrPrecondition marks frames the analyzer cannot work on at all.
var ErrPrecondition = errors.New("frame precondition violated")

var (
	maskOn  = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	maskOff = color.RGBA{}
)

// Analyzer turns one frame into region measurements. It holds no mutable
// state, so one Analyzer may serve every worker concurrently.
type Analyzer struct {
	black   int
	minArea float64
	maxArea float64
	table   []byte
}

// NewAnalyzer creates an analyzer for the given clip point and inclusive area bounds
func NewAnalyzer(black int, minArea, maxArea float64) *Analyzer {
	return &Analyzer{
		black:   black,
		minArea: minArea,
		maxArea: maxArea,
		table:   ClipTable(black),
	}
}

// NewAnalyzerFromParams is NewAnalyzer with the analysis fields of p.
func NewAnalyzerFromParams(p core.Params) *Analyzer {
	return NewAnalyzer(p.Black, p.MinArea, p.MaxArea)
}

// Analyze detects contours in frame and measures each one that passes the
// area filter. frameHeight flips the centroid Y into a bottom-left origin.
// The frame Mat is only read; the caller keeps ownership.
func (a *Analyzer) Analyze(frame core.Frame, frameHeight int) ([]core.Measurement, error) {
	if err := core.ValidateFrame(frame.Mat); err != nil {
		return nil, fmt.Errorf("%w: frame %d: %v", ErrPrecondition, frame.Index, err)
	}

	clipped, err := AdjustClip(frame.Mat, a.table)
	if err != nil {
		return nil, fmt.Errorf("clip frame %d: %w", frame.Index, err)
	}
	defer clipped.Close()

	gray, err := toGray(clipped)
	if err != nil {
		return nil, fmt.Errorf("grayscale frame %d: %w", frame.Index, err)
	}
	defer gray.Close()

	thresh := gocv.NewMat()
	defer thresh.Close()
	gocv.Threshold(gray, &thresh, float32(a.black), 255, gocv.ThresholdToZero)

	contours := gocv.FindContours(thresh, gocv.RetrievalTree, gocv.ChainApproxSimple)
	defer contours.Close()

	mask := gocv.Zeros(gray.Rows(), gray.Cols(), gocv.MatTypeCV8UC1)
	defer mask.Close()

	results := make([]core.Measurement, 0)

	for i := 0; i < contours.Size(); i++ {
		contour := contours.At(i)

		area := gocv.ContourArea(contour)
		if area < a.minArea || area > a.maxArea {
			continue
		}

		cx, cy, ok := ContourMoments(contour).Centroid()
		if !ok {
			continue
		}

		if err := gocv.DrawContours(&mask, contours, i, maskOn, -1); err != nil {
			return nil, fmt.Errorf("mask contour %d of frame %d: %w", i, frame.Index, err)
		}

		minI, maxI, _, _ := gocv.MinMaxLocWithMask(gray, mask)
		mean := frame.Mat.MeanWithMask(mask)

		// Clear exactly what was drawn so the mask is blank for the next contour.
		if err := gocv.DrawContours(&mask, contours, i, maskOff, -1); err != nil {
			return nil, fmt.Errorf("clear contour %d of frame %d: %w", i, frame.Index, err)
		}

		results = append(results, core.Measurement{
			Frame: frame.Index,
			CX:    cx,
			CY:    frameHeight - cy,
			Area:  area,
			MinI:  float64(minI),
			MaxI:  float64(maxI),
			MeanI: mean.Val1,
			Video: frame.Video,
		})
	}

	return results, nil
}

func toGray(src gocv.Mat) (gocv.Mat, error) {
	gray := gocv.NewMat()

	var err error
	switch src.Channels() {
	case 1:
		src.CopyTo(&gray)
	case 4:
		err = gocv.CvtColor(src, &gray, gocv.ColorBGRAToGray)
	default:
		err = gocv.CvtColor(src, &gray, gocv.ColorBGRToGray)
	}

	if err != nil {
		gray.Close()
		return gocv.NewMat(), err
	}
	return gray, nil
}
