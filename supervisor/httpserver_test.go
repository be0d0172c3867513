package supervisor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/autoweb/agent/core"
	"github.com/autoweb/agent/graph"
	"github.com/autoweb/agent/nodes"
	"github.com/autoweb/agent/state"
)

func TestStatusServer_Healthz(t *testing.T) {
	srv := newStatusServer(":0", graph.NewInMemoryCheckpointer(), &core.NoOpLogger{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestStatusServer_StateMissingThreadID(t *testing.T) {
	srv := newStatusServer(":0", graph.NewInMemoryCheckpointer(), &core.NoOpLogger{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/state", nil)
	rec := httptest.NewRecorder()
	srv.engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestStatusServer_StateReturnsCheckpoint(t *testing.T) {
	cp := graph.NewInMemoryCheckpointer()
	if err := cp.Save(context.Background(), "thread-1", graph.Checkpoint{
		State: state.AgentState{UserTask: "do the thing"},
		Next:  nodes.NodePlanner,
	}); err != nil {
		t.Fatal(err)
	}
	srv := newStatusServer(":0", cp, &core.NoOpLogger{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/state?thread_id=thread-1", nil)
	rec := httptest.NewRecorder()
	srv.engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}
