package pipeline

import (
	"runtime"

	"github.com/sirupsen/logrus"
)

const mb = 1024 * 1024

// logMemoryUsage reports heap figures after a video has been drained, to
// confirm frame buffers are not accumulating across videos.
func logMemoryUsage(log logrus.FieldLogger) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	log.WithFields(logrus.Fields{
		"alloc_mb":       float64(m.Alloc) / mb,
		"total_alloc_mb": float64(m.TotalAlloc) / mb,
		"sys_mb":         float64(m.Sys) / mb,
		"num_gc":         m.NumGC,
		"goroutines":     runtime.NumGoroutine(),
	}).Debug("Memory usage")
}
