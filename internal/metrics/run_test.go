package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersZeroedSeries(t *testing.T) {
	m := New()

	assert.Equal(t, 0.0, testutil.ToFloat64(m.FramesRead))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.TasksCollected.WithLabelValues(OutcomeFailed)))

	// 6 unlabelled series + 2 task outcomes + 3 video statuses
	n, err := testutil.GatherAndCount(m.Registry())
	require.NoError(t, err)
	assert.Equal(t, 11, n)
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.FramesRead.Add(12)
	m.FramesSkipped.Inc()
	m.TasksCollected.WithLabelValues(OutcomeOK).Add(11)

	path := filepath.Join(t.TempDir(), "contours.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	text := string(data)
	assert.True(t, strings.Contains(text, "contours_frames_read_total 12"))
	assert.True(t, strings.Contains(text, "contours_frames_skipped_total 1"))
	assert.True(t, strings.Contains(text, `contours_tasks_collected_total{outcome="ok"} 11`))
}

func TestWriteTextfileBadPath(t *testing.T) {
	err := New().WriteTextfile(filepath.Join(t.TempDir(), "missing", "dir", "x.prom"))
	assert.Error(t, err)
}
