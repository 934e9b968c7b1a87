package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordSession(t *testing.T) {
	before := testutil.ToFloat64(sessionsActive)

	RecordSessionStart()
	assert.Equal(t, before+1, testutil.ToFloat64(sessionsActive))

	stopped := testutil.ToFloat64(sessionsTotal.WithLabelValues("stopped"))
	RecordSessionEnd("stopped", 12)
	assert.Equal(t, before, testutil.ToFloat64(sessionsActive))
	assert.Equal(t, stopped+1, testutil.ToFloat64(sessionsTotal.WithLabelValues("stopped")))
}

func TestRecordFunctionCall(t *testing.T) {
	ok := testutil.ToFloat64(functionCallsTotal.WithLabelValues("transfer_funds", "success"))
	failed := testutil.ToFloat64(functionCallsTotal.WithLabelValues("transfer_funds", "error"))

	RecordFunctionCall("transfer_funds", "success", 0.01)
	RecordFunctionCall("transfer_funds", "error", 0.02)

	assert.Equal(t, ok+1, testutil.ToFloat64(functionCallsTotal.WithLabelValues("transfer_funds", "success")))
	assert.Equal(t, failed+1, testutil.ToFloat64(functionCallsTotal.WithLabelValues("transfer_funds", "error")))
}

func TestRecordFrameAndBargeIn(t *testing.T) {
	frames := testutil.ToFloat64(framesTotal.WithLabelValues(DirectionToAgent))
	bargeIns := testutil.ToFloat64(bargeInsTotal)

	RecordFrame(DirectionToAgent)
	RecordBargeIn()

	assert.Equal(t, frames+1, testutil.ToFloat64(framesTotal.WithLabelValues(DirectionToAgent)))
	assert.Equal(t, bargeIns+1, testutil.ToFloat64(bargeInsTotal))
}

func TestHandler(t *testing.T) {
	RecordBargeIn()
	srv := httptest.NewServer(Handler(NewRegistry()))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
