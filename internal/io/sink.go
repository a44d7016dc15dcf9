// Tab-separated contour table writer
package io

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"contour-extractor/internal/core"
)

// ResultSink appends measurement rows to the contour table and keeps every
// measurement it wrote, in write order. It is not safe for concurrent use;
// the scheduler drains into it from a single goroutine.
type ResultSink struct {
	path    string
	file    *os.File
	w       *bufio.Writer
	results []core.Measurement
	closed  bool
}

// CreateResultSink creates (or truncates) path and writes the header row.
func CreateResultSink(path string) (*ResultSink, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output %s: %w", path, err)
	}

	s := &ResultSink{
		path: path,
		file: file,
		w:    bufio.NewWriter(file),
	}

	if _, err := s.w.WriteString(strings.Join(core.Columns, "\t") + "\n"); err != nil {
		file.Close()
		return nil, fmt.Errorf("write header to %s: %w", path, err)
	}
	if err := s.w.Flush(); err != nil {
		file.Close()
		return nil, fmt.Errorf("write header to %s: %w", path, err)
	}

	return s, nil
}

// Append writes one row per measurement and flushes them to the file.
func (s *ResultSink) Append(measurements []core.Measurement) error {
	if s.closed {
		return fmt.Errorf("append to %s: sink is closed", s.path)
	}

	for _, m := range measurements {
		if _, err := s.w.WriteString(FormatRow(m)); err != nil {
			return fmt.Errorf("write row to %s: %w", s.path, err)
		}
		s.results = append(s.results, m)
	}

	if err := s.w.Flush(); err != nil {
		return fmt.Errorf("flush %s: %w", s.path, err)
	}
	return nil
}

// Results returns everything appended so far.
func (s *ResultSink) Results() []core.Measurement {
	return s.results
}

func (s *ResultSink) Rows() int {
	return len(s.results)
}

func (s *ResultSink) Path() string {
	return s.path
}

func (s *ResultSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	flushErr := s.w.Flush()
	closeErr := s.file.Close()
	if flushErr != nil {
		return fmt.Errorf("flush %s: %w", s.path, flushErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close %s: %w", s.path, closeErr)
	}
	return nil
}

// FormatRow renders m as one tab-separated line, newline included.
func FormatRow(m core.Measurement) string {
	fields := []string{
		strconv.FormatInt(m.Frame, 10),
		strconv.Itoa(m.CX),
		strconv.Itoa(m.CY),
		FormatFloat(m.Area),
		FormatFloat(m.MinI),
		FormatFloat(m.MaxI),
		FormatFloat(m.MeanI),
		m.Video,
	}
	return strings.Join(fields, "\t") + "\n"
}

// FormatFloat renders v in its shortest round-trip form. Integral values
// keep a trailing ".0"; very small or very large magnitudes switch to
// exponent notation.
func FormatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}

	abs := math.Abs(v)
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}

	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
