package openai

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"resume-match/internal/llm"
)

func withServer(t *testing.T, handler http.HandlerFunc) {
	t.Helper()
	oldURL := apiURL
	server := httptest.NewServer(handler)
	apiURL = server.URL
	t.Cleanup(func() {
		server.Close()
		apiURL = oldURL
	})
}

func TestNewClientRequiresKeyAndModel(t *testing.T) {
	if _, err := NewClient("", "gpt-4o-mini", 0.2); err == nil {
		t.Fatalf("expected missing key error")
	}
	if _, err := NewClient("key", " ", 0.2); err == nil {
		t.Fatalf("expected missing model error")
	}
}

func TestGenerateSendsSingleRequest(t *testing.T) {
	var mu sync.Mutex
	var calls int
	var lastBody map[string]any

	withServer(t, func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		mu.Lock()
		calls++
		lastBody = payload
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":" not json "}}],"usage":{"total_tokens":12}}`))
	})

	client, err := NewClient("test-key", "gpt-4o-mini", 0.2)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	schema := &llm.Schema{Type: llm.TypeObject, Properties: map[string]*llm.Schema{"matchScore": {Type: llm.TypeInteger}}, Required: []string{"matchScore"}}
	out, err := client.Generate(context.Background(), llm.Request{
		Instruction:    "coach",
		ResumeText:     "resume",
		JobDescription: "jd",
		Schema:         schema,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out != "not json" {
		t.Fatalf("expected raw trimmed content, got %q", out)
	}

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Fatalf("expected exactly one request, got %d", calls)
	}
	if temp, ok := lastBody["temperature"].(float64); !ok || temp < 0.19 || temp > 0.21 {
		t.Fatalf("expected temperature 0.2, got %v", lastBody["temperature"])
	}
	msgs, _ := lastBody["messages"].([]any)
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	system, _ := msgs[0].(map[string]any)["content"].(string)
	if !strings.Contains(system, `"matchScore"`) {
		t.Fatalf("expected schema in system prompt, got %q", system)
	}
}

func TestGenerateSurfacesProviderError(t *testing.T) {
	withServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited","type":"rate_limit"}}`))
	})

	client, _ := NewClient("test-key", "gpt-4o-mini", 0.2)
	_, err := client.Generate(context.Background(), llm.Request{ResumeText: "r", JobDescription: "j"})
	if err == nil || !strings.Contains(err.Error(), "rate limited") {
		t.Fatalf("expected provider error, got %v", err)
	}
}

func TestGenerateExtractsUploadedText(t *testing.T) {
	var userPrompt string
	withServer(t, func(w http.ResponseWriter, r *http.Request) {
		var payload chatRequest
		_ = json.NewDecoder(r.Body).Decode(&payload)
		userPrompt = payload.Messages[len(payload.Messages)-1].Content
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{}"}}]}`))
	})

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, _ := zw.Create("word/document.xml")
	_, _ = f.Write([]byte(`<w:document xmlns:w="x"><w:body><w:p><w:r><w:t>Staff Engineer</w:t></w:r></w:p></w:body></w:document>`))
	_ = zw.Close()

	client, _ := NewClient("test-key", "gpt-4o-mini", 0.2)
	_, err := client.Generate(context.Background(), llm.Request{
		ResumeFile:     &llm.File{Name: "cv.docx", MimeType: "application/zip", Data: buf.Bytes()},
		JobDescription: "jd",
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.Contains(userPrompt, "Staff Engineer") {
		t.Fatalf("expected extracted resume in prompt, got %q", userPrompt)
	}
}
