package tools

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/boardroomlabs/boardroom/pkg/core/types"
	"github.com/boardroomlabs/boardroom/pkg/meeting/router"
	"github.com/boardroomlabs/boardroom/pkg/meeting/store"
)

func newFileDispatcher(t *testing.T) (*Dispatcher, store.Store) {
	t.Helper()
	st := store.NewMemoryStore()
	d := NewDispatcher(nil)
	d.Register(NewCreateFileTool(st))
	d.Register(NewUpdateFileTool(st))
	d.Register(NewPresentFileTool())
	d.UpdateContext([]types.Persona{{ID: "alice", Name: "Alice"}}, nil)
	return d, st
}

func TestCreateFileToolReturnsPersistedFile(t *testing.T) {
	d, st := newFileDispatcher(t)

	result := d.Execute(context.Background(), "create_file", map[string]any{
		"agent_id": "alice",
		"name":     "plan.md",
		"type":     "doc",
		"content":  "step one",
	})
	if !result.Success {
		t.Fatalf("create_file failed: %s", result.Error)
	}
	file, ok := result.Data[DataKeyFile].(types.AgentFile)
	if !ok {
		t.Fatalf("data[%q] = %T, want AgentFile", DataKeyFile, result.Data[DataKeyFile])
	}
	if file.Name != "plan.md" || file.Content != "step one" || file.Type != types.FileDoc {
		t.Fatalf("file = %+v", file)
	}
	if len(file.Versions) != 1 || file.Versions[0].Author != "Alice" {
		t.Fatalf("versions = %+v, want one authored by the persona name", file.Versions)
	}

	stored, err := st.GetAgentFiles(context.Background(), "alice")
	if err != nil {
		t.Fatalf("GetAgentFiles: %v", err)
	}
	if len(stored) != 1 || stored[0].ID != file.ID || stored[0].Content != "step one" {
		t.Fatalf("stored = %+v", stored)
	}
}

func TestCreateFileToolRequiresName(t *testing.T) {
	d, _ := newFileDispatcher(t)

	result := d.Execute(context.Background(), "create_file", map[string]any{"agent_id": "alice", "name": "  "})
	if result.Success {
		t.Fatal("expected failure for blank name")
	}
}

func TestUpdateFileToolResolvesThroughContext(t *testing.T) {
	d, _ := newFileDispatcher(t)

	created := d.Execute(context.Background(), "create_file", map[string]any{
		"agent_id": "alice", "name": "plan.md", "type": "doc", "content": "v1",
	})
	file := created.Data[DataKeyFile].(types.AgentFile)
	d.UpdateContext([]types.Persona{{ID: "alice", Name: "Alice"}}, []types.AgentFile{file})

	result := d.Execute(context.Background(), "update_file", map[string]any{
		"agent_id": "alice", "name": "plan.md", "content": "v2",
	})
	if !result.Success {
		t.Fatalf("update_file failed: %s", result.Error)
	}
	updated := result.Data[DataKeyFile].(types.AgentFile)
	if updated.Content != "v2" || len(updated.Versions) != 2 {
		t.Fatalf("updated = %+v", updated)
	}
}

func TestUpdateFileToolFailsOnUnknownName(t *testing.T) {
	d, _ := newFileDispatcher(t)

	result := d.Execute(context.Background(), "update_file", map[string]any{
		"agent_id": "alice", "name": "missing.md", "content": "x",
	})
	if result.Success || !strings.Contains(result.Error, "missing.md") {
		t.Fatalf("result = %+v", result)
	}
}

func TestPresentFileToolMarksFileForPresentation(t *testing.T) {
	d, _ := newFileDispatcher(t)
	d.UpdateContext(nil, []types.AgentFile{{ID: "f1", Name: "plan.md"}})

	result := d.Execute(context.Background(), "present_file", map[string]any{"agent_id": "alice", "name": "plan.md"})
	if !result.Success {
		t.Fatalf("present_file failed: %s", result.Error)
	}
	if present, _ := result.Data[DataKeyPresent].(bool); !present {
		t.Fatalf("data = %v, want present flag", result.Data)
	}

	result = d.Execute(context.Background(), "present_file", map[string]any{"agent_id": "alice", "name": "ghost.md"})
	if result.Success {
		t.Fatal("expected failure for unknown file")
	}
}

func TestGenerateImageToolStoresBase64PNG(t *testing.T) {
	st := store.NewMemoryStore()
	d := NewDispatcher(nil)
	gen := ImageGeneratorFunc(func(_ context.Context, prompt string) ([]byte, error) {
		if prompt != "a whiteboard sketch" {
			t.Errorf("prompt = %q", prompt)
		}
		return []byte{0x89, 0x50, 0x4e, 0x47}, nil
	})
	d.Register(NewGenerateImageTool(st, gen))

	result := d.Execute(context.Background(), "generate_image", map[string]any{
		"agent_id": "alice",
		"prompt":   "a whiteboard sketch",
	})
	if !result.Success {
		t.Fatalf("generate_image failed: %s", result.Error)
	}
	file := result.Data[DataKeyFile].(types.AgentFile)
	if file.Name != "generated-image.png" || file.Type != types.FileImage {
		t.Fatalf("file = %+v", file)
	}
	decoded, err := base64.StdEncoding.DecodeString(file.Content)
	if err != nil || len(decoded) != 4 {
		t.Fatalf("content %q is not the base64 image data", file.Content)
	}
	if present, _ := result.Data[DataKeyPresent].(bool); !present {
		t.Fatal("generated images should be presented")
	}
}

func TestGenerateImageToolFailures(t *testing.T) {
	st := store.NewMemoryStore()
	d := NewDispatcher(nil)
	d.Register(NewGenerateImageTool(st, ImageGeneratorFunc(func(context.Context, string) ([]byte, error) {
		return nil, errors.New("quota exceeded")
	})))

	result := d.Execute(context.Background(), "generate_image", map[string]any{"prompt": ""})
	if result.Success {
		t.Fatal("expected failure for empty prompt")
	}

	result = d.Execute(context.Background(), "generate_image", map[string]any{"prompt": "x"})
	if result.Success || !strings.Contains(result.Error, "quota exceeded") {
		t.Fatalf("result = %+v", result)
	}
}

func TestDelegateTaskToolRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		var in router.DispatchRequest
		if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
			t.Errorf("decode: %v", err)
		}
		if in.Task == "fail" {
			_ = json.NewEncoder(w).Encode(router.DispatchResponse{Status: "error", Error: "remote refused"})
			return
		}
		_ = json.NewEncoder(w).Encode(router.DispatchResponse{
			Status: "success",
			Result: map[string]any{"summary": in.Input["topic"]},
		})
	}))
	defer srv.Close()

	rt := router.New(srv.Client(), time.Second, nil)
	_ = rt.Register(types.AgentCard{ID: "analyst", Execution: types.RemoteExecution{Kind: "http", Endpoint: srv.URL}})

	d := NewDispatcher(nil)
	d.Register(NewDelegateTaskTool(rt))

	result := d.Execute(context.Background(), "delegate_task", map[string]any{
		"target_agent_id": "analyst",
		"task":            "summarize",
		"input":           map[string]any{"topic": "q3"},
	})
	if !result.Success {
		t.Fatalf("delegate_task failed: %s", result.Error)
	}
	remote := result.Data["result"].(map[string]any)
	if remote["summary"] != "q3" {
		t.Fatalf("result = %v", remote)
	}

	// Remote failures become failure results the model can relay.
	result = d.Execute(context.Background(), "delegate_task", map[string]any{
		"target_agent_id": "analyst",
		"task":            "fail",
	})
	if result.Success || !strings.Contains(result.Error, "remote refused") {
		t.Fatalf("result = %+v", result)
	}
}

func TestDelegateTaskToolValidatesArgs(t *testing.T) {
	d := NewDispatcher(nil)
	d.Register(NewDelegateTaskTool(router.New(nil, time.Second, nil)))

	for _, args := range []map[string]any{
		{"task": "x"},
		{"target_agent_id": "a"},
	} {
		if result := d.Execute(context.Background(), "delegate_task", args); result.Success {
			t.Fatalf("args %v should fail", args)
		}
	}
}
