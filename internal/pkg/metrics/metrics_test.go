package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordAuthAttempt(t *testing.T) {
	counter := AuthAttempts.WithLabelValues("login", "invalid_credentials")
	before := testutil.ToFloat64(counter)

	RecordAuthAttempt("login", "invalid_credentials")
	RecordAuthAttempt("login", "invalid_credentials")

	assert.Equal(t, before+2, testutil.ToFloat64(counter))
}

func TestRecordAuthzDenial(t *testing.T) {
	counter := AuthzDenials.WithLabelValues("forbidden")
	before := testutil.ToFloat64(counter)

	RecordAuthzDenial("forbidden")

	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestDBPool_NilPoolIsIgnored(t *testing.T) {
	assert.NotPanics(t, func() { RecordDBPoolMetrics(nil) })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	done := make(chan struct{})
	go func() {
		CollectDBPool(ctx, nil, time.Millisecond)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("CollectDBPool did not return for a nil pool")
	}
}
