package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(loginAttempts.WithLabelValues("pending"))
	LoginAttempt("pending")
	assert.Equal(t, before+1, testutil.ToFloat64(loginAttempts.WithLabelValues("pending")))

	beforeSynced := testutil.ToFloat64(recordsSynced)
	RecordsIngested(0, time.Now())
	RecordsIngested(3, time.Unix(1700000000, 0))
	assert.Equal(t, beforeSynced+3, testutil.ToFloat64(recordsSynced))
	assert.Equal(t, float64(1700000000), testutil.ToFloat64(lastSyncGauge))

	beforeReq := testutil.ToFloat64(httpRequests.WithLabelValues("unmatched", "404"))
	ObserveRequest("", 404, time.Millisecond)
	assert.Equal(t, beforeReq+1, testutil.ToFloat64(httpRequests.WithLabelValues("unmatched", "404")))

	beforeHit := testutil.ToFloat64(processCache.WithLabelValues("hit"))
	ProcessCacheLookup(true)
	assert.Equal(t, beforeHit+1, testutil.ToFloat64(processCache.WithLabelValues("hit")))
}
