package main

// Analyze one resume against one job description:
//   go run ./cmd/analyze -resume cv.pdf -jd job.txt

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"resume-match/internal/analysis"
	"resume-match/internal/bootstrap"
	"resume-match/internal/extract"
	"resume-match/internal/share"
	"resume-match/internal/shared/config"
	"resume-match/internal/shared/telemetry"
	"resume-match/internal/shared/util"
)

type options struct {
	resumePath string
	resumeText string
	jdPath     string
	outPath    string
	provider   string
	model      string
	shareBase  string
}

func main() {
	cfg := config.Load()

	var opts options
	flag.StringVar(&opts.resumePath, "resume", "", "Path to resume file (pdf, docx or txt)")
	flag.StringVar(&opts.resumeText, "resume-text", "", "Resume text, used when -resume is empty")
	flag.StringVar(&opts.jdPath, "jd", "", "Path to job description file, or - for stdin")
	flag.StringVar(&opts.outPath, "out", "", "Path to write the JSON result (optional)")
	flag.StringVar(&opts.provider, "provider", cfg.LLMProvider, "LLM provider (gemini or openai)")
	flag.StringVar(&opts.model, "model", cfg.LLMModel, "LLM model")
	flag.StringVar(&opts.shareBase, "share-base", cfg.PublicBaseURL, "Page URL for the printed share link")
	flag.Parse()

	logger, err := telemetry.New(cfg.LogLevel, "dev")
	if err == nil {
		telemetry.SetGlobal(logger)
		defer func() { _ = logger.Sync() }()
	}

	if err := run(context.Background(), cfg, opts, os.Stdin, os.Stdout, os.Stderr); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, opts options, stdin io.Reader, stdout, stderr io.Writer) error {
	src, err := resumeSource(opts)
	if err != nil {
		return err
	}
	jd, err := readJobDescription(opts.jdPath, stdin)
	if err != nil {
		return err
	}

	cfg.LLMProvider = strings.ToLower(strings.TrimSpace(opts.provider))
	cfg.LLMModel = opts.model
	provider, err := bootstrap.BuildProvider(ctx, cfg)
	if err != nil {
		return err
	}

	result, err := analysis.NewClient(provider, nil).Analyze(ctx, src, jd)
	if err != nil {
		var aerr *analysis.Error
		if errors.As(err, &aerr) {
			return fmt.Errorf("%s: %v", aerr.Op, aerr.Cause())
		}
		return err
	}

	pretty, err := prettyJSON(result)
	if err != nil {
		return fmt.Errorf("format json: %w", err)
	}
	if opts.outPath != "" {
		if err := os.WriteFile(opts.outPath, pretty, 0o644); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	}
	if _, err := stdout.Write(pretty); err != nil {
		return fmt.Errorf("write stdout: %w", err)
	}

	if strings.TrimSpace(opts.shareBase) != "" {
		link, err := share.Encode(result, opts.shareBase)
		if err != nil {
			return fmt.Errorf("share link: %w", err)
		}
		_, _ = fmt.Fprintf(stderr, "share: %s\n", link)
	}
	return nil
}

func resumeSource(opts options) (analysis.ResumeSource, error) {
	if strings.TrimSpace(opts.resumePath) == "" {
		if strings.TrimSpace(opts.resumeText) == "" {
			return analysis.ResumeSource{}, errors.New("one of -resume or -resume-text is required")
		}
		return analysis.ResumeSource{Text: opts.resumeText}, nil
	}

	data, err := os.ReadFile(opts.resumePath)
	if err != nil {
		return analysis.ResumeSource{}, fmt.Errorf("read resume: %w", err)
	}
	name := util.DisplayFileName(opts.resumePath)
	return analysis.ResumeSource{File: &analysis.UploadedFile{
		Name:     name,
		MimeType: extract.NormalizeMimeType("", name, data),
		Data:     base64.StdEncoding.EncodeToString(data),
	}}, nil
}

func readJobDescription(path string, stdin io.Reader) (string, error) {
	var (
		data []byte
		err  error
	)
	switch strings.TrimSpace(path) {
	case "":
		return "", errors.New("-jd is required")
	case "-":
		data, err = io.ReadAll(stdin)
	default:
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read job description: %w", err)
	}
	jd := strings.TrimSpace(string(data))
	if jd == "" {
		return "", errors.New("job description is empty")
	}
	return jd, nil
}

func prettyJSON(result analysis.Result) ([]byte, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
