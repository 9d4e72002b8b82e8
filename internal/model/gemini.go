package model

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/yogaaditandanu/medical-image-analysis/internal/config"
)

type GeminiClient struct {
	client *genai.Client
	model  string
}

func NewGeminiClient(ctx context.Context, cfg config.GeminiConfig) (*GeminiClient, error) {
	cl, err := genai.NewClient(ctx, option.WithAPIKey(strings.TrimSpace(cfg.APIKey)))
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &GeminiClient{
		client: cl,
		model:  strings.TrimSpace(cfg.Model),
	}, nil
}

func (g *GeminiClient) Analyze(ctx context.Context, prompt, imagePath string) (string, error) {
	img, err := os.ReadFile(imagePath)
	if err != nil {
		return "", fmt.Errorf("failed to read staged image: %w", err)
	}

	m := g.client.GenerativeModel(g.model)
	resp, err := m.GenerateContent(ctx,
		genai.Text(prompt),
		genai.ImageData("png", img),
	)
	if err != nil {
		return "", fmt.Errorf("gemini %s: %w", g.model, err)
	}

	txt := responseText(resp)
	if txt == "" {
		return "", ErrEmptyResponse
	}
	return txt, nil
}

func (g *GeminiClient) Close() error {
	return g.client.Close()
}

// responseText joins the text parts of the first candidate that has content.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, c := range resp.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		var b strings.Builder
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				b.WriteString(string(t))
			}
		}
		if b.Len() > 0 {
			return b.String()
		}
	}
	return ""
}
