// Black-point clipping through a lookup table
package algorithms

import (
	"fmt"

	"gocv.io/x/gocv"
)

// ClipTable returns a 256-entry lookup table mapping every intensity
// below black to 0 and leaving the rest unchanged.
func ClipTable(black int) []byte {
	if black < 0 {
		black = 0
	}
	if black > 256 {
		black = 256
	}

	table := make([]byte, 256)
	for i := black; i < 256; i++ {
		table[i] = byte(i)
	}
	return table
}

// AdjustClip applies table to every channel of src. The caller owns the result.
func AdjustClip(src gocv.Mat, table []byte) (gocv.Mat, error) {
	if len(table) != 256 {
		return gocv.NewMat(), fmt.Errorf("lookup table must have 256 entries, got %d", len(table))
	}

	lut, err := gocv.NewMatFromBytes(1, 256, gocv.MatTypeCV8U, table)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("build lookup table: %w", err)
	}
	defer lut.Close()

	dst := gocv.NewMat()
	if err := gocv.LUT(src, lut, &dst); err != nil {
		dst.Close()
		return gocv.NewMat(), fmt.Errorf("apply lookup table: %w", err)
	}
	return dst, nil
}
