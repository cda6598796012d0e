package monitoring

import (
	"testing"
	"time"
)

func TestRequestMetrics(t *testing.T) {
	m := NewRequestMetrics()
	m.Record("POST /predict", 200, 4*time.Millisecond)
	m.Record("POST /predict", 400, 2*time.Millisecond)
	m.Record("POST /predict", 500, 8*time.Millisecond)
	m.Record("GET /health", 200, time.Millisecond)

	snapshot := m.Snapshot()

	predict, ok := snapshot["POST /predict"]
	if !ok {
		t.Fatal("missing predict route")
	}
	if predict.Count != 3 {
		t.Fatalf("count = %d, want 3", predict.Count)
	}
	if predict.Errors != 1 {
		t.Fatalf("errors = %d, want 1 (4xx is not an error)", predict.Errors)
	}
	if predict.MaxMillis != 8 {
		t.Fatalf("max = %v, want 8ms", predict.MaxMillis)
	}

	if health := snapshot["GET /health"]; health.Count != 1 || health.Errors != 0 {
		t.Fatalf("unexpected health stats: %+v", health)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	m := NewRequestMetrics()
	m.Record("GET /ready", 503, time.Millisecond)

	first := m.Snapshot()
	m.Record("GET /ready", 200, time.Millisecond)

	if first["GET /ready"].Count != 1 {
		t.Fatal("snapshot mutated by later records")
	}
	if m.Snapshot()["GET /ready"].Count != 2 {
		t.Fatal("second record not counted")
	}
}
