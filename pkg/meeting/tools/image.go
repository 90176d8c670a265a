package tools

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/boardroomlabs/boardroom/pkg/core/types"
	"github.com/boardroomlabs/boardroom/pkg/meeting/store"
)

// ImageGenerator produces image bytes for a text prompt. The production
// implementation is Gemini-backed; tests inject a stub.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string) ([]byte, error)
}

// ImageGeneratorFunc adapts a function to the ImageGenerator interface.
type ImageGeneratorFunc func(ctx context.Context, prompt string) ([]byte, error)

// Generate implements ImageGenerator.
func (f ImageGeneratorFunc) Generate(ctx context.Context, prompt string) ([]byte, error) {
	return f(ctx, prompt)
}

// NewGenerateImageTool builds the generate_image handler. The generated
// image is stored as an AgentFile whose content is base64 PNG data.
func NewGenerateImageTool(st store.Store, gen ImageGenerator) (Declaration, Handler) {
	decl := Declaration{
		Name:        "generate_image",
		Description: "Generate an image from a prompt and save it as a session file.",
		Params: []Param{
			{Name: "agent_id", Type: "string", Description: "Id of the originating persona", Required: true},
			{Name: "name", Type: "string", Description: "File name for the image", Required: true},
			{Name: "prompt", Type: "string", Description: "Image description", Required: true},
		},
	}
	handler := func(ctx context.Context, args map[string]any, tc *Context) (types.ToolResult, error) {
		if gen == nil {
			return types.ToolResult{}, fmt.Errorf("generate_image: no image generator is configured")
		}
		prompt := strings.TrimSpace(stringArg(args, "prompt"))
		if prompt == "" {
			return types.ToolResult{}, fmt.Errorf("generate_image: prompt is required")
		}
		name := strings.TrimSpace(stringArg(args, "name"))
		if name == "" {
			name = "generated-image.png"
		}

		data, err := gen.Generate(ctx, prompt)
		if err != nil {
			return types.ToolResult{}, fmt.Errorf("generate_image: %w", err)
		}

		personaID := stringArg(args, "agent_id")
		file, err := st.CreateFile(ctx, personaID, name, types.FileImage,
			base64.StdEncoding.EncodeToString(data), authorLabel(tc, personaID))
		if err != nil {
			return types.ToolResult{}, fmt.Errorf("generate_image: %w", err)
		}
		return types.OK(map[string]any{
			DataKeyFile:    file,
			DataKeyPresent: true,
			DataKeyMessage: fmt.Sprintf("Generated image %q.", file.Name),
		}), nil
	}
	return decl, handler
}
