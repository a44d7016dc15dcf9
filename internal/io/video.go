// Sequential frame decoding from video files
package io

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"gocv.io/x/gocv"

	"contour-extractor/internal/core"
)

var (
	// ErrOpenVideo is returned when a container cannot be opened.
	ErrOpenVideo = errors.New("cannot open video")
	// ErrEmptyVideo reports a video that opened but yielded no frame.
	ErrEmptyVideo = errors.New("no frame could be read")
	// ErrNoVideos is returned when a pattern matches no files.
	ErrNoVideos = errors.New("no videos found")
)

// FrameReader is the decoding side of a video capture. *gocv.VideoCapture
// satisfies it.
type FrameReader interface {
	Read(m *gocv.Mat) bool
	Close() error
}

// OpenFunc opens a video file for reading.
type OpenFunc func(path string) (FrameReader, error)

// OpenCapture opens path with OpenCV's video capture.
func OpenCapture(path string) (FrameReader, error) {
	capture, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrOpenVideo, path, err)
	}

	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("%w: %s", ErrOpenVideo, path)
	}

	return capture, nil
}

// VideoSource reads the frames of one video in decode order and assigns
// their indices. The height of the first frame read is kept for the rest
// of the video.
type VideoSource struct {
	path   string
	reader FrameReader
	local  int64
	height int
	done   bool
}

func NewVideoSource(path string, reader FrameReader) *VideoSource {
	return &VideoSource{path: path, reader: reader}
}

// OpenVideo opens path with open and wraps it in a VideoSource.
func OpenVideo(path string, open OpenFunc) (*VideoSource, error) {
	if open == nil {
		open = OpenCapture
	}

	reader, err := open(path)
	if err != nil {
		if errors.Is(err, ErrOpenVideo) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrOpenVideo, path, err)
	}

	return NewVideoSource(path, reader), nil
}

// Next decodes the following frame. cumulative is the last index handed
// out in the run; the returned frame carries cumulative+1. ok is false at
// end of stream, including when the decoder fails mid-stream. On success
// the caller owns the frame's Mat.
func (vs *VideoSource) Next(cumulative int64) (frame core.Frame, ok bool) {
	if vs.done {
		return core.Frame{}, false
	}

	mat := gocv.NewMat()
	if !vs.reader.Read(&mat) || mat.Empty() {
		mat.Close()
		vs.done = true
		return core.Frame{}, false
	}

	if vs.local == 0 {
		vs.height = mat.Rows()
	}
	vs.local++

	return core.Frame{
		Mat:        mat,
		Index:      cumulative + 1,
		LocalIndex: vs.local,
		Video:      vs.path,
	}, true
}

func (vs *VideoSource) Path() string {
	return vs.path
}

// Height is the height of the first frame read, or 0 before any frame.
func (vs *VideoSource) Height() int {
	return vs.height
}

// FramesRead counts frames returned by Next.
func (vs *VideoSource) FramesRead() int64 {
	return vs.local
}

func (vs *VideoSource) Close() error {
	vs.done = true
	return vs.reader.Close()
}

// ExpandPattern returns the files matching a glob pattern, sorted.
func ExpandPattern(pattern string) ([]string, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("expand pattern %q: %w", pattern, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w matching pattern: %s", ErrNoVideos, pattern)
	}

	sort.Strings(matches)
	return matches, nil
}
