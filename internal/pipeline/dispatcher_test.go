package pipeline

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"swapwatch/internal/metrics"
)

func TestDispatcherRecoversPanics(t *testing.T) {
	m := metrics.NewMetrics(prometheus.NewRegistry())
	d := NewDispatcher(nil, m)

	d.Go(StageNotify, "0xabc", func() error { panic("boom") })
	d.Go(StageNotify, "0xabc", func() error { return nil })
	d.Wait()

	require.Equal(t, 1.0, testutil.ToFloat64(m.ErrorsTotal.WithLabelValues(StageNotify)))
}

func TestDispatcherPrefersStageFromError(t *testing.T) {
	m := metrics.NewMetrics(prometheus.NewRegistry())
	d := NewDispatcher(nil, m)

	d.Go(StageDecode, "0xabc", func() error {
		return &StageError{Stage: StageLookup, TxHash: "0xabc", Err: errors.New("timeout")}
	})
	d.Go(StagePersist, "0xabc", func() error { return errors.New("read-only fs") })
	d.Wait()

	require.Equal(t, 0.0, testutil.ToFloat64(m.ErrorsTotal.WithLabelValues(StageDecode)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.ErrorsTotal.WithLabelValues(StageLookup)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.ErrorsTotal.WithLabelValues(StagePersist)))
}

func TestStageErrorUnwraps(t *testing.T) {
	cause := errors.New("cause")
	err := &StageError{Stage: StageDecode, TxHash: "0x1", Err: cause}
	require.ErrorIs(t, err, cause)
	require.Equal(t, "decode 0x1: cause", err.Error())
}
