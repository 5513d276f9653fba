package analysis

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"resume-match/internal/llm"
	"resume-match/internal/shared/metrics"
	"resume-match/internal/shared/telemetry"
)

// Client builds analysis requests and validates the model's responses. It
// performs exactly one provider call per Analyze and never retries.
type Client struct {
	provider llm.Provider
	metrics  metrics.Recorder
	now      func() time.Time
}

// NewClient constructs a Client. A nil recorder disables metrics.
func NewClient(provider llm.Provider, recorder metrics.Recorder) *Client {
	if provider == nil {
		provider = llm.Unconfigured{}
	}
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &Client{provider: provider, metrics: recorder, now: time.Now}
}

// Analyze sends the resume and job description to the model and returns the
// parsed result. Inputs are not validated here. Every failure satisfies
// errors.Is(err, ErrAnalysisFailed).
func (c *Client) Analyze(ctx context.Context, src ResumeSource, jobDescription string) (Result, error) {
	start := c.now()
	c.metrics.AnalysisStarted()

	result, err := c.analyze(ctx, src, jobDescription)
	elapsed := c.now().Sub(start)
	if err != nil {
		c.metrics.AnalysisFailed(elapsed)
		fields := map[string]any{"provider": c.provider.Name(), "duration_ms": elapsed.Milliseconds()}
		var aerr *Error
		if errors.As(err, &aerr) {
			fields["op"] = aerr.Op
			fields["error"] = sanitizeError(aerr.Cause())
		}
		telemetry.Warn("analysis.failed", fields)
		return Result{}, err
	}
	c.metrics.AnalysisCompleted(elapsed)
	telemetry.Info("analysis.completed", map[string]any{
		"provider":    c.provider.Name(),
		"duration_ms": elapsed.Milliseconds(),
		"match_score": result.MatchScore,
	})
	return result, nil
}

func (c *Client) analyze(ctx context.Context, src ResumeSource, jobDescription string) (Result, error) {
	req := llm.Request{
		Instruction:    Instruction,
		JobDescription: jobDescription,
		Schema:         ResponseSchema(),
	}
	if src.File != nil {
		data, err := base64.StdEncoding.DecodeString(src.File.Data)
		if err != nil {
			return Result{}, fail("decode_file", err)
		}
		req.ResumeFile = &llm.File{Name: src.File.Name, MimeType: src.File.MimeType, Data: data}
	} else {
		req.ResumeText = src.Text
	}

	raw, err := c.provider.Generate(ctx, req)
	if err != nil {
		return Result{}, fail("generate", err)
	}
	result, err := Parse([]byte(raw))
	if err != nil {
		return Result{}, fail("parse", err)
	}
	return result, nil
}

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	const maxLen = 500
	if len(msg) > maxLen {
		msg = msg[:maxLen]
	}
	return msg
}
