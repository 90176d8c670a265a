package live

import (
	"context"
	"strings"

	"google.golang.org/genai"

	"github.com/boardroomlabs/boardroom/pkg/core"
)

// ImageGenerator renders images through the Imagen models exposed by the
// same genai client the live engine uses. It satisfies the tool layer's
// generator interface.
type ImageGenerator struct {
	client *genai.Client
	model  string
}

// ImageGenerator returns a generator bound to the engine's client.
func (e *GeminiEngine) ImageGenerator(model string) *ImageGenerator {
	if e == nil || e.client == nil {
		return nil
	}
	return &ImageGenerator{client: e.client, model: strings.TrimSpace(model)}
}

// Generate renders one image and returns its raw bytes.
func (g *ImageGenerator) Generate(ctx context.Context, prompt string) ([]byte, error) {
	if g == nil || g.client == nil {
		return nil, core.NewConfigError("image generator is not initialized")
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, core.NewConfigError("image prompt must not be empty")
	}

	resp, err := g.client.Models.GenerateImages(ctx, g.model, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
	})
	if err != nil {
		return nil, core.NewTransportError("generate image", err)
	}
	if resp == nil || len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil {
		return nil, core.NewTransportError("image model returned no images", nil)
	}
	return resp.GeneratedImages[0].Image.ImageBytes, nil
}
