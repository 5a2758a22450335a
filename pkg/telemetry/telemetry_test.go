package telemetry

import (
	"bytes"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerFormats(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(LoggerConfig{Level: "debug", Format: "json", Writer: &buf})
	require.NoError(t, err)
	logger.Debug("render finished", "template", "page")
	require.Contains(t, buf.String(), `"msg":"render finished"`)
	require.Contains(t, buf.String(), `"template":"page"`)

	buf.Reset()
	logger, err = NewLogger(LoggerConfig{Level: "warn", Writer: &buf})
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Warn("shown")
	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), "msg=shown")

	_, err = NewLogger(LoggerConfig{Level: "loud"})
	require.Error(t, err)
	_, err = NewLogger(LoggerConfig{Format: "xml"})
	require.Error(t, err)
}

func TestRenderMetrics(t *testing.T) {
	m := NewRenderMetrics("test", nil)
	m.RecordRender("page", OutcomeSuccess, 2*time.Millisecond)
	m.RecordRender("page", OutcomeSuccess, time.Millisecond)
	m.RecordRender("page", OutcomeError, time.Millisecond)
	m.RecordImport("lib.ftl")
	m.RecordNodeHandler("item")
	m.RecordNodeHandler(FallbackHandler)

	require.Equal(t, 2.0, testutil.ToFloat64(m.rendersTotal.WithLabelValues("page", OutcomeSuccess)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.rendersTotal.WithLabelValues("page", OutcomeError)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.importsTotal.WithLabelValues("lib.ftl")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.handlersTotal.WithLabelValues(FallbackHandler)))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.True(t, strings.Contains(rec.Body.String(), "test_renders_total"))
}

func TestNilRenderMetricsIsNoop(t *testing.T) {
	var m *RenderMetrics
	m.RecordRender("page", OutcomeSuccess, time.Second)
	m.RecordImport("lib")
	m.RecordNodeHandler("item")
	require.Nil(t, m.Registry())
}
