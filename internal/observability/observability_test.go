package observability

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerTo_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, "warn", "json")

	logger.Info("hidden")
	logger.Warn("shown", "file", "a.PZ")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "shown", entry["msg"])
	assert.Equal(t, "a.PZ", entry["file"])
}

func TestNewLoggerTo_Text(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, "DEBUG", "TEXT")

	logger.Debug("details", "n", 3)
	assert.Contains(t, buf.String(), "msg=details")
	assert.Contains(t, buf.String(), "n=3")
}

func TestParseLevel_Unknown(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, "verbose", "text")

	logger.Debug("hidden")
	logger.Info("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestNewMetricsWith_Registers(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsWith(reg)

	m.ParseErrors.WithLabelValues("poles").Inc()
	m.SoftDefaults.WithLabelValues("depth").Add(2)
	m.FilesConsumed.Add(3)

	assert.InDelta(t, 1, testutil.ToFloat64(m.ParseErrors.WithLabelValues("poles")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.SoftDefaults.WithLabelValues("depth")), 0)

	n, err := testutil.GatherAndCount(reg, "pz_stationxml_files_consumed_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestNewMetricsForTesting_Independent(t *testing.T) {
	a := NewMetricsForTesting()
	b := NewMetricsForTesting()
	a.RecordsProduced.Inc()
	assert.InDelta(t, 0, testutil.ToFloat64(b.RecordsProduced), 0)
}
