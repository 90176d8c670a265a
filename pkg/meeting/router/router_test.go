package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/boardroomlabs/boardroom/pkg/core"
	"github.com/boardroomlabs/boardroom/pkg/core/types"
)

func card(id, endpoint string, capabilities ...string) types.AgentCard {
	return types.AgentCard{
		ID:           id,
		Name:         "Agent " + id,
		Capabilities: capabilities,
		Execution:    types.RemoteExecution{Kind: "http", Endpoint: endpoint},
	}
}

func TestRegisterRejectsEmptyID(t *testing.T) {
	r := New(nil, 0, nil)
	if err := r.Register(types.AgentCard{}); err == nil {
		t.Fatal("expected empty id to be rejected")
	}
	if err := r.Register(card("a", "http://example.invalid")); err != nil {
		t.Fatalf("Register: %v", err)
	}
}

func TestRegisterIsLastWriteWins(t *testing.T) {
	r := New(nil, 0, nil)
	_ = r.Register(card("a", "http://first.invalid"))
	_ = r.Register(card("a", "http://second.invalid"))

	got, ok := r.Get("a")
	if !ok {
		t.Fatal("card not found")
	}
	if got.Execution.Endpoint != "http://second.invalid" {
		t.Fatalf("endpoint = %q, want the second registration", got.Execution.Endpoint)
	}
}

func TestListIsSortedAndUnregisterRemoves(t *testing.T) {
	r := New(nil, 0, nil)
	_ = r.Register(card("c", "x"))
	_ = r.Register(card("a", "x"))
	_ = r.Register(card("b", "x"))

	list := r.List()
	if len(list) != 3 || list[0].ID != "a" || list[1].ID != "b" || list[2].ID != "c" {
		t.Fatalf("list = %v", list)
	}

	r.Unregister("b")
	r.Unregister("never-registered")
	if len(r.List()) != 2 {
		t.Fatalf("list after unregister = %v", r.List())
	}
}

func TestFindCapableAgents(t *testing.T) {
	r := New(nil, 0, nil)
	_ = r.Register(card("a", "x", "research", "summarize"))
	_ = r.Register(card("b", "x", "research"))
	_ = r.Register(card("c", "x"))

	got := r.FindCapableAgents("research")
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
		t.Fatalf("capable agents = %v", got)
	}
	if len(r.FindCapableAgents("unknown")) != 0 {
		t.Fatal("expected no agents for unknown capability")
	}
}

func TestRouteUnknownTargetFailsBeforeNetwork(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	r := New(srv.Client(), time.Second, nil)
	_, err := r.Route(context.Background(), "ghost", "task", nil)
	if !core.IsType(err, core.ErrNotFound) {
		t.Fatalf("err = %v, want not-found", err)
	}
	if calls.Load() != 0 {
		t.Fatal("unknown target must not reach the network")
	}
}

func TestRouteSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		var in DispatchRequest
		if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if in.TargetAgentID != "a" || in.Task != "summarize" {
			t.Errorf("unexpected request %+v", in)
		}
		_ = json.NewEncoder(w).Encode(DispatchResponse{
			Status: "success",
			Result: map[string]any{"summary": "done"},
		})
	}))
	defer srv.Close()

	r := New(srv.Client(), time.Second, nil)
	_ = r.Register(card("a", srv.URL))

	result, err := r.Route(context.Background(), "a", "summarize", map[string]any{"text": "hi"})
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if result["summary"] != "done" {
		t.Fatalf("result = %v", result)
	}
}

func TestRouteApplicationErrorSurfacesAsDelegationFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(DispatchResponse{Status: "error", Error: "agent exploded"})
	}))
	defer srv.Close()

	r := New(srv.Client(), time.Second, nil)
	_ = r.Register(card("a", srv.URL))

	_, err := r.Route(context.Background(), "a", "task", nil)
	if !core.IsType(err, core.ErrDelegation) {
		t.Fatalf("err = %v, want delegation error", err)
	}
}

func TestRouteNon2xxFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	r := New(srv.Client(), time.Second, nil)
	_ = r.Register(card("a", srv.URL))

	if _, err := r.Route(context.Background(), "a", "task", nil); err == nil {
		t.Fatal("expected non-2xx to fail")
	}
}

func TestRouteTimesOut(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	r := New(srv.Client(), 50*time.Millisecond, nil)
	_ = r.Register(card("slow", srv.URL))

	start := time.Now()
	_, err := r.Route(context.Background(), "slow", "task", nil)
	if err == nil {
		t.Fatal("expected timeout")
	}
	if time.Since(start) > 2*time.Second {
		t.Fatal("timeout took too long")
	}
}

func TestRouteMissingEndpointFails(t *testing.T) {
	r := New(nil, time.Second, nil)
	_ = r.Register(card("a", "   "))

	_, err := r.Route(context.Background(), "a", "task", nil)
	if !core.IsType(err, core.ErrConfig) {
		t.Fatalf("err = %v, want config error", err)
	}
}
