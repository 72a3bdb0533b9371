package value

import (
	"testing"

	"github.com/pydron/pydron/internal/tick"
)

func TestRefWorkerTracking(t *testing.T) {
	id := NewID(tick.Start.Increment(1), "value")
	r := NewRef(id, true, "worker-a")

	if !r.HasWorker("worker-a") {
		t.Fatalf("expected worker-a to be present")
	}
	if r.HasWorker("worker-b") {
		t.Fatalf("worker-b should not be present yet")
	}

	r.AddWorker("worker-b")
	if !r.HasWorker("worker-b") {
		t.Fatalf("AddWorker did not register worker-b")
	}

	r.RemoveWorker("worker-a")
	if r.HasWorker("worker-a") {
		t.Fatalf("RemoveWorker did not remove worker-a")
	}

	workers := r.Workers()
	if len(workers) != 1 || workers[0] != "worker-b" {
		t.Fatalf("Workers() = %v, want [worker-b]", workers)
	}
}
