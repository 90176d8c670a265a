package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/boardroomlabs/boardroom/pkg/core/types"
	"github.com/boardroomlabs/boardroom/pkg/meeting/store"
)

// Result data keys the orchestrator inspects when committing tool results.
const (
	DataKeyFile    = "file"
	DataKeyPresent = "present"
	DataKeyMessage = "message"
)

// NewCreateFileTool builds the create_file handler. The handler persists
// through the store and returns the created file in the result's data
// payload; appending it to session state is the orchestrator's job.
func NewCreateFileTool(st store.Store) (Declaration, Handler) {
	decl := Declaration{
		Name:        "create_file",
		Description: "Create a new document, code file or sheet on behalf of a persona.",
		Params: []Param{
			{Name: "agent_id", Type: "string", Description: "Id of the originating persona", Required: true},
			{Name: "name", Type: "string", Description: "File name", Required: true},
			{Name: "type", Type: "string", Description: "One of doc, code, sheet, pdf", Required: true},
			{Name: "content", Type: "string", Description: "Full file content", Required: true},
		},
	}
	handler := func(ctx context.Context, args map[string]any, tc *Context) (types.ToolResult, error) {
		personaID := stringArg(args, "agent_id")
		name := strings.TrimSpace(stringArg(args, "name"))
		if name == "" {
			return types.ToolResult{}, fmt.Errorf("create_file: name is required")
		}
		author := authorLabel(tc, personaID)
		file, err := st.CreateFile(ctx, personaID, name, fileType(stringArg(args, "type")), stringArg(args, "content"), author)
		if err != nil {
			return types.ToolResult{}, fmt.Errorf("create_file: %w", err)
		}
		return types.OK(map[string]any{
			DataKeyFile:    file,
			DataKeyMessage: fmt.Sprintf("Created %s %q.", file.Type, file.Name),
		}), nil
	}
	return decl, handler
}

// NewUpdateFileTool builds the update_file handler; each edit appends a new
// version to the file's history.
func NewUpdateFileTool(st store.Store) (Declaration, Handler) {
	decl := Declaration{
		Name:        "update_file",
		Description: "Replace the content of an existing session file.",
		Params: []Param{
			{Name: "agent_id", Type: "string", Description: "Id of the originating persona", Required: true},
			{Name: "name", Type: "string", Description: "Name of the file to update", Required: true},
			{Name: "content", Type: "string", Description: "New full content", Required: true},
		},
	}
	handler := func(ctx context.Context, args map[string]any, tc *Context) (types.ToolResult, error) {
		name := strings.TrimSpace(stringArg(args, "name"))
		existing, ok := tc.FileByName(name)
		if !ok {
			return types.ToolResult{}, fmt.Errorf("update_file: no session file named %q", name)
		}
		author := authorLabel(tc, stringArg(args, "agent_id"))
		file, err := st.UpdateFile(ctx, existing.ID, stringArg(args, "content"), author)
		if err != nil {
			return types.ToolResult{}, fmt.Errorf("update_file: %w", err)
		}
		return types.OK(map[string]any{
			DataKeyFile:    file,
			DataKeyMessage: fmt.Sprintf("Updated %q (version %d).", file.Name, len(file.Versions)),
		}), nil
	}
	return decl, handler
}

// NewPresentFileTool builds the present_file handler. It looks the file up in
// the shared context and asks the orchestrator to surface it to the user.
func NewPresentFileTool() (Declaration, Handler) {
	decl := Declaration{
		Name:        "present_file",
		Description: "Present an existing session file to the user.",
		Params: []Param{
			{Name: "agent_id", Type: "string", Description: "Id of the originating persona", Required: true},
			{Name: "name", Type: "string", Description: "Name of the file to present", Required: true},
		},
	}
	handler := func(_ context.Context, args map[string]any, tc *Context) (types.ToolResult, error) {
		name := strings.TrimSpace(stringArg(args, "name"))
		file, ok := tc.FileByName(name)
		if !ok {
			return types.ToolResult{}, fmt.Errorf("present_file: no session file named %q", name)
		}
		return types.OK(map[string]any{
			DataKeyFile:    file,
			DataKeyPresent: true,
			DataKeyMessage: fmt.Sprintf("Presenting %q.", file.Name),
		}), nil
	}
	return decl, handler
}

func authorLabel(tc *Context, personaID string) string {
	if p, ok := tc.PersonaByID(personaID); ok {
		return p.Name
	}
	return personaID
}

func fileType(raw string) types.FileType {
	switch types.FileType(strings.ToLower(strings.TrimSpace(raw))) {
	case types.FileDoc, types.FileCode, types.FileImage, types.FileSheet, types.FilePDF:
		return types.FileType(strings.ToLower(strings.TrimSpace(raw)))
	default:
		return types.FileDoc
	}
}
