package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordEvaluation(t *testing.T) {
	t.Parallel()
	m := New()

	m.RecordEvaluation("checkout-v2", true, "")
	m.RecordEvaluation("checkout-v2", true, "blue")
	m.RecordEvaluation("checkout-v2", false, "")

	assert.InDelta(t, 2, testutil.ToFloat64(m.EvaluationsTotal.WithLabelValues("checkout-v2", "yes")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.EvaluationsTotal.WithLabelValues("checkout-v2", "no")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.VariantsTotal.WithLabelValues("checkout-v2", "blue")), 0)
}

func TestRecordLoad(t *testing.T) {
	t.Parallel()
	m := New()

	m.RecordLoad(nil, 12)
	m.RecordLoad(errors.New("bad document"), 0)

	assert.InDelta(t, 1, testutil.ToFloat64(m.LoadsTotal.WithLabelValues("ok")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.LoadsTotal.WithLabelValues("error")), 0)
	assert.InDelta(t, 12, testutil.ToFloat64(m.ToggleCount), 0)
}

func TestRecordUpload(t *testing.T) {
	t.Parallel()
	m := New()

	m.RecordUpload(true)
	m.RecordUpload(false)
	m.RecordUpload(false)

	assert.InDelta(t, 1, testutil.ToFloat64(m.UploadsTotal.WithLabelValues("ok")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.UploadsTotal.WithLabelValues("error")), 0)
}

func TestHandler(t *testing.T) {
	t.Parallel()
	m := New()
	m.RecordEvaluation("checkout-v2", true, "")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `featurekit_evaluations_total{result="yes",toggle="checkout-v2"} 1`)
}
