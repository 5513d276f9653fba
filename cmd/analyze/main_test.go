package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-match/internal/extract"
	"resume-match/internal/shared/config"
)

func TestResumeSourceFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cv.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 body"), 0o600))

	src, err := resumeSource(options{resumePath: path, resumeText: "ignored"})
	require.NoError(t, err)
	require.NotNil(t, src.File)
	assert.Equal(t, "cv.pdf", src.File.Name)
	assert.Equal(t, extract.MimePDF, src.File.MimeType)
	assert.Empty(t, src.Text)
}

func TestResumeSourceRequiresInput(t *testing.T) {
	_, err := resumeSource(options{})
	require.Error(t, err)

	src, err := resumeSource(options{resumeText: "Go developer"})
	require.NoError(t, err)
	assert.Equal(t, "Go developer", src.Text)
}

func TestReadJobDescription(t *testing.T) {
	_, err := readJobDescription("", nil)
	require.Error(t, err)

	jd, err := readJobDescription("-", strings.NewReader("  Backend role \n"))
	require.NoError(t, err)
	assert.Equal(t, "Backend role", jd)

	_, err = readJobDescription("-", strings.NewReader("   "))
	require.Error(t, err)
}

func TestRunWithoutProviderKeyFails(t *testing.T) {
	cfg := config.Config{Env: "dev"}
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), cfg, options{resumeText: "Go developer", jdPath: "-", provider: "gemini"},
		strings.NewReader("Backend role"), &stdout, &stderr)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "llm provider not configured")
	assert.Empty(t, stdout.String())
}
