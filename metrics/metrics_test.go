package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestObserveStage(t *testing.T) {
	before := StageCount(Stage("test_stage"))
	ObserveStage(Stage("test_stage"), time.Now().Add(-time.Second))
	require.Equal(t, before+1, StageCount(Stage("test_stage")))
	require.GreaterOrEqual(t, testutil.CollectAndCount(StageDuration, "avscene_stage_duration_seconds"), 1)
}

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(BoundariesDetectedTotal.WithLabelValues("test"))
	BoundariesDetectedTotal.WithLabelValues("test").Add(3)
	require.Equal(t, before+3, testutil.ToFloat64(BoundariesDetectedTotal.WithLabelValues("test")))
}
