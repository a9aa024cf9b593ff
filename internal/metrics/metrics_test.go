package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRegisterIsIdempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		Register()
		Register()
	})
}

func TestCounters(t *testing.T) {
	Register()

	before := testutil.ToFloat64(submissions.WithLabelValues("success"))
	IncSubmission("success")
	IncSubmission("success")
	assert.Equal(t, before+2, testutil.ToFloat64(submissions.WithLabelValues("success")))

	beforeRetries := testutil.ToFloat64(conflictRetries)
	IncConflictRetry()
	assert.Equal(t, beforeRetries+1, testutil.ToFloat64(conflictRetries))

	beforeFailures := testutil.ToFloat64(notifyFailures)
	IncNotifyFailure()
	assert.Equal(t, beforeFailures+1, testutil.ToFloat64(notifyFailures))

	beforeHTTP := testutil.ToFloat64(httpRequests.WithLabelValues("submit"))
	IncHTTP("submit")
	assert.Equal(t, beforeHTTP+1, testutil.ToFloat64(httpRequests.WithLabelValues("submit")))
}
