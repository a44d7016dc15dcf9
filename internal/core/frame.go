// Decoded video frame and its position in the run
package core

import (
	"fmt"

	"gocv.io/x/gocv"
)

// Frame is one decoded image plus the indices assigned by the producer.
// Whoever holds a Frame owns its Mat and must Close it.
type Frame struct {
	Mat        gocv.Mat
	Index      int64 // cumulative, 1-based, strictly increasing across the run
	LocalIndex int64 // 1-based within Video
	Video      string
}

// Close releases the underlying Mat.
func (f *Frame) Close() error {
	return f.Mat.Close()
}

// ValidateFrame checks that a Mat is a non-empty 8-bit image with 1, 3 or 4 channels
func ValidateFrame(mat gocv.Mat) error {
	if mat.Empty() {
		return fmt.Errorf("frame is empty")
	}

	if mat.Cols() <= 0 || mat.Rows() <= 0 {
		return fmt.Errorf("invalid dimensions: %dx%d", mat.Cols(), mat.Rows())
	}

	channels := mat.Channels()
	if channels != 1 && channels != 3 && channels != 4 {
		return fmt.Errorf("unsupported channel count: %d", channels)
	}

	switch mat.Type() {
	case gocv.MatTypeCV8UC1, gocv.MatTypeCV8UC3, gocv.MatTypeCV8UC4:
	default:
		return fmt.Errorf("unsupported mat type: %v (want 8-bit)", mat.Type())
	}

	return nil
}
