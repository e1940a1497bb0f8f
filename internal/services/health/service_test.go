package health

import (
	"context"
	"testing"
	"time"
)

func TestStatusWithoutDatabase(t *testing.T) {
	svc := NewService(nil)
	svc.now = func() time.Time { return svc.started.Add(90 * time.Second) }

	status := svc.Status(context.Background())
	if ok, _ := status["ok"].(bool); !ok {
		t.Fatalf("expected ok=true, got %+v", status)
	}
	if status["database"] != "memory" {
		t.Fatalf("expected database=memory, got %v", status["database"])
	}
	if status["uptimeSeconds"] != int64(90) {
		t.Fatalf("expected uptimeSeconds=90, got %v", status["uptimeSeconds"])
	}
}
