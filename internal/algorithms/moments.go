package algorithms

import "gocv.io/x/gocv"

// Moments holds the spatial moments needed for the centroid.
type Moments struct {
	M00 float64
	M10 float64
	M01 float64
}

// ContourMoments computes the spatial moments of a contour with OpenCV.
// Degenerate contours (points, segments) have all-zero moments.
func ContourMoments(contour gocv.PointVector) Moments {
	if contour.Size() == 0 {
		return Moments{}
	}

	points := gocv.NewMatFromPointVector(contour, false)
	defer points.Close()

	m := gocv.Moments(points, false)
	return Moments{
		M00: m["m00"],
		M10: m["m10"],
		M01: m["m01"],
	}
}

// Centroid returns the centroid truncated toward zero. ok is false when M00 is zero.
func (m Moments) Centroid() (x, y int, ok bool) {
	if m.M00 == 0 {
		return 0, 0, false
	}
	return int(m.M10 / m.M00), int(m.M01 / m.M00), true
}
