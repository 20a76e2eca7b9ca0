package monitoring

import (
	"strings"
	"testing"
)

func TestMetricsCountersAndExport(t *testing.T) {
	m := NewMetrics()
	m.IncrCounter("predictions_total", map[string]string{"outcome": "approved"})
	m.IncrCounter("predictions_total", map[string]string{"outcome": "approved"})
	m.IncrCounter("predictions_total", map[string]string{"outcome": "rejected"})
	m.SetGauge("ws_clients", 3)

	if got := m.Value("predictions_total", map[string]string{"outcome": "approved"}); got != 2 {
		t.Fatalf("expected 2, got %v", got)
	}
	if got := m.Value("missing", nil); got != 0 {
		t.Fatalf("expected 0, got %v", got)
	}

	out := m.ExportPrometheus()
	for _, want := range []string{
		"# TYPE predictions_total counter\n",
		`predictions_total{outcome="approved"} 2` + "\n",
		`predictions_total{outcome="rejected"} 1` + "\n",
		"ws_clients 3\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("export missing %q:\n%s", want, out)
		}
	}
	if strings.Count(out, "# TYPE predictions_total") != 1 {
		t.Errorf("type line repeated:\n%s", out)
	}
}
