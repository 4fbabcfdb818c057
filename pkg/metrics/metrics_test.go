package metrics_test

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Gunvolt24/datapipe/pkg/metrics"
)

func TestMustRegister_IsIdempotent(t *testing.T) {
	// Должно выполняться без паники даже при повторном вызове.
	metrics.MustRegister()
	metrics.MustRegister()

	// Уже зарегистрировано — повторная регистрация отвергается самим registry.
	var are prometheus.AlreadyRegisteredError
	if err := prometheus.Register(metrics.LoadCycles); !errors.As(err, &are) {
		t.Fatalf("want AlreadyRegisteredError, got %v", err)
	}
}

func TestQueueCounters_Inc(t *testing.T) {
	metrics.MustRegister()

	beforeReserved := testutil.ToFloat64(metrics.QueueMessagesReserved.WithLabelValues("purchase"))
	beforeFailed := testutil.ToFloat64(metrics.QueueReserveFailed.WithLabelValues("purchase"))

	metrics.QueueMessagesReserved.WithLabelValues("purchase").Add(3)
	metrics.QueueReserveFailed.WithLabelValues("purchase").Inc()

	if got := testutil.ToFloat64(metrics.QueueMessagesReserved.WithLabelValues("purchase")); got != beforeReserved+3 {
		t.Fatalf("QueueMessagesReserved: got=%v want=%v", got, beforeReserved+3)
	}
	if got := testutil.ToFloat64(metrics.QueueReserveFailed.WithLabelValues("purchase")); got != beforeFailed+1 {
		t.Fatalf("QueueReserveFailed: got=%v want=%v", got, beforeFailed+1)
	}
}

func TestLoadCycles_CountersByOutcome(t *testing.T) {
	metrics.MustRegister()

	okBefore := testutil.ToFloat64(metrics.LoadCycles.WithLabelValues("install", "success"))
	badBefore := testutil.ToFloat64(metrics.LoadCycles.WithLabelValues("install", "data_error"))

	metrics.LoadCycles.WithLabelValues("install", "success").Inc()
	metrics.LoadCycles.WithLabelValues("install", "success").Inc()

	if got := testutil.ToFloat64(metrics.LoadCycles.WithLabelValues("install", "success")); got != okBefore+2 {
		t.Fatalf("LoadCycles(success): got=%v want=%v", got, okBefore+2)
	}
	if got := testutil.ToFloat64(metrics.LoadCycles.WithLabelValues("install", "data_error")); got != badBefore {
		t.Fatalf("LoadCycles(data_error): got=%v want=%v", got, badBefore)
	}
}

func TestLoadCycleDuration_Observed(t *testing.T) {
	metrics.MustRegister()

	metrics.LoadCycleDuration.WithLabelValues("metrics_test").Observe(1.5)
	if n := testutil.CollectAndCount(metrics.LoadCycleDuration); n < 1 {
		t.Fatalf("LoadCycleDuration: want at least one series, got %d", n)
	}
}
