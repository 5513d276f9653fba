package gemini

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"resume-match/internal/llm"
	"resume-match/internal/shared/telemetry"
)

// Client implements llm.Provider on the Gemini API. Uploaded files are sent
// inline so the model reads the original document.
type Client struct {
	client      *genai.Client
	model       string
	temperature float32
}

// NewClient constructs a Gemini client for the given API key.
func NewClient(ctx context.Context, apiKey, model string, temperature float32) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	return newClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}, model, temperature)
}

func newClient(ctx context.Context, cfg *genai.ClientConfig, model string, temperature float32) (*Client, error) {
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("LLM_MODEL is required for Gemini")
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &Client{client: client, model: model, temperature: temperature}, nil
}

func (c *Client) Name() string { return "gemini" }

// Generate performs one GenerateContent call in JSON mode. Parts are ordered
// instruction, resume, job description.
func (c *Client) Generate(ctx context.Context, req llm.Request) (string, error) {
	parts := []*genai.Part{genai.NewPartFromText(req.Instruction)}
	if req.ResumeFile != nil {
		parts = append(parts, genai.NewPartFromBytes(req.ResumeFile.Data, req.ResumeFile.MimeType))
	} else {
		parts = append(parts, genai.NewPartFromText(req.ResumeText))
	}
	parts = append(parts, genai.NewPartFromText(req.JobDescription))

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr(c.temperature),
	}
	if req.Schema != nil {
		config.ResponseSchema = toGenAISchema(req.Schema)
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, config)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("gemini response empty content")
	}

	fields := map[string]any{"provider": "gemini", "model": c.model}
	if resp.UsageMetadata != nil {
		fields["prompt_tokens"] = resp.UsageMetadata.PromptTokenCount
		fields["completion_tokens"] = resp.UsageMetadata.CandidatesTokenCount
		fields["total_tokens"] = resp.UsageMetadata.TotalTokenCount
	}
	telemetry.Info("llm.response", fields)
	return text, nil
}

func toGenAISchema(s *llm.Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Type:             toGenAIType(s.Type),
		Description:      s.Description,
		Required:         s.Required,
		PropertyOrdering: s.Order,
		Items:            toGenAISchema(s.Items),
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = toGenAISchema(prop)
		}
	}
	return out
}

func toGenAIType(t string) genai.Type {
	switch t {
	case llm.TypeObject:
		return genai.TypeObject
	case llm.TypeArray:
		return genai.TypeArray
	case llm.TypeInteger:
		return genai.TypeInteger
	default:
		return genai.TypeString
	}
}

var _ llm.Provider = (*Client)(nil)
