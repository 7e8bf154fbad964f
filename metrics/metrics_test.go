package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordObject(SourceFile, "mp3-frame")
	m.RecordObject(SourceFile, "mp3-frame")
	m.RecordOOB(SourceStream, 12)
	m.RecordOOB(SourceStream, 0)
	m.RecordDesync("overflow")
	m.RecordInjection(100, nil)
	m.RecordInjection(50, errors.New("boom"))
	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.objectsTotal.WithLabelValues(SourceFile, "mp3-frame")))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.oobBytesTotal.WithLabelValues(SourceStream)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.desyncsTotal.WithLabelValues("overflow")))
	assert.Equal(t, 100.0, testutil.ToFloat64(m.injectedBytes))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.injectionsTotal.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.streamSessions))
}
