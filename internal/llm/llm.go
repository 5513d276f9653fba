package llm

import (
	"context"
	"errors"
)

// Provider abstracts LLM vendors for resume analysis. Generate performs exactly
// one model call and returns the raw response body.
type Provider interface {
	Generate(ctx context.Context, req Request) (string, error)
	Name() string
}

// File is an inline binary attachment with its declared mime type.
type File struct {
	Name     string
	MimeType string
	Data     []byte
}

// Request carries a single analysis request. Exactly one of ResumeText and
// ResumeFile is set.
type Request struct {
	Instruction    string
	ResumeText     string
	ResumeFile     *File
	JobDescription string
	Schema         *Schema
}

// Schema types.
const (
	TypeObject  = "object"
	TypeArray   = "array"
	TypeString  = "string"
	TypeInteger = "integer"
)

// Schema is a provider-neutral description of the expected JSON response.
type Schema struct {
	Type        string
	Description string
	Properties  map[string]*Schema
	Items       *Schema
	Required    []string
	// Order lists property names in the order providers should emit them.
	Order []string
}

// ErrNotConfigured is returned by the placeholder provider.
var ErrNotConfigured = errors.New("llm provider not configured")

// Unconfigured is used when no provider credentials are available.
type Unconfigured struct{}

// Generate returns ErrNotConfigured.
func (Unconfigured) Generate(ctx context.Context, req Request) (string, error) {
	_ = ctx
	_ = req
	return "", ErrNotConfigured
}

func (Unconfigured) Name() string { return "unconfigured" }
