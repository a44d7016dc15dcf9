// Per-region measurements emitted by the analyzer
package core

// Columns is the fixed column order of the output table.
var Columns = []string{"frame", "cX", "cY", "area", "minI", "maxI", "meanI", "video"}

// Measurement describes one detected region in one frame.
// CY uses a bottom-left origin: frameHeight - centroidY.
type Measurement struct {
	Frame int64
	CX    int
	CY    int
	Area  float64
	MinI  float64
	MaxI  float64
	MeanI float64
	Video string
}
