package openai

import (
	"encoding/json"
	"fmt"
	"strings"

	"resume-match/internal/llm"
)

// Message represents an OpenAI chat message.
type Message struct {
	Role    string
	Content string
}

const systemPrompt = "Respond with JSON only. No markdown. Never omit keys. Output must match this JSON schema exactly:\n%s"

// BuildMessages lays out the instruction, resume and job description the same
// way the multimodal providers order their parts.
func BuildMessages(instruction, resumeText, jobDescription string, schema *llm.Schema) ([]Message, error) {
	messages := make([]Message, 0, 3)
	if schema != nil {
		rendered, err := json.Marshal(jsonSchema(schema))
		if err != nil {
			return nil, fmt.Errorf("render schema: %w", err)
		}
		messages = append(messages, Message{Role: "system", Content: fmt.Sprintf(systemPrompt, rendered)})
	}
	messages = append(messages,
		Message{Role: "developer", Content: instruction},
		Message{Role: "user", Content: buildUserPrompt(resumeText, jobDescription)},
	)
	return messages, nil
}

func buildUserPrompt(resumeText, jobDescription string) string {
	jd := jobDescription
	if strings.TrimSpace(jd) == "" {
		jd = "N/A"
	}
	return fmt.Sprintf("Resume Text:\n%s\n\nJob Description:\n%s", resumeText, jd)
}

// jsonSchema converts the neutral schema to JSON Schema keywords.
func jsonSchema(s *llm.Schema) map[string]any {
	out := map[string]any{"type": s.Type}
	if s.Description != "" {
		out["description"] = s.Description
	}
	if len(s.Properties) > 0 {
		props := make(map[string]any, len(s.Properties))
		for name, prop := range s.Properties {
			props[name] = jsonSchema(prop)
		}
		out["properties"] = props
	}
	if s.Items != nil {
		out["items"] = jsonSchema(s.Items)
	}
	if len(s.Required) > 0 {
		out["required"] = s.Required
	}
	return out
}
