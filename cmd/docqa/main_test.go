package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"doc-qa/internal/app"
	"doc-qa/internal/apperr"
	"doc-qa/internal/llm"
	"doc-qa/internal/qa"
	"doc-qa/internal/testutil"
)

func mockBuild(client llm.Client) buildFunc {
	return func() (app.Deps, error) {
		log := slog.New(slog.NewTextHandler(io.Discard, nil))
		return app.Deps{Log: log, LLM: client, QA: qa.NewService(client, nil, log)}, nil
	}
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func run(t *testing.T, build buildFunc, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	root := newRootCmd(build, out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestAskCommand(t *testing.T) {
	mockLLM := new(llm.MockClient)
	mockLLM.On("Model").Return("llama3").Maybe()
	mockLLM.On("Generate", mock.Anything, mock.MatchedBy(func(prompt string) bool {
		return strings.Contains(prompt, "Hiring paused") && strings.Contains(prompt, "Is hiring paused?")
	})).Return("Yes.", nil).Once()

	path := writeFile(t, "memo.docx", testutil.DOCX("Hiring paused"))
	out, err := run(t, mockBuild(mockLLM), "ask", "-q", "Is hiring paused?", path)

	require.NoError(t, err)
	assert.Equal(t, "Yes.\n", out)
	mockLLM.AssertExpectations(t)
}

func TestAskCommandErrors(t *testing.T) {
	t.Run("question flag required", func(t *testing.T) {
		_, err := run(t, mockBuild(new(llm.MockClient)), "ask", writeFile(t, "a.md", []byte("x")))
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := run(t, mockBuild(new(llm.MockClient)), "ask", "-q", "why?", filepath.Join(t.TempDir(), "nope.md"))
		assert.Error(t, err)
	})

	t.Run("unsupported format", func(t *testing.T) {
		mockLLM := new(llm.MockClient)
		mockLLM.On("Model").Return("llama3").Maybe()
		_, err := run(t, mockBuild(mockLLM), "ask", "-q", "why?", writeFile(t, "notes.txt", []byte("x")))
		assert.Equal(t, apperr.KindUnsupportedFormat, apperr.Kind(err))
		mockLLM.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
	})

	t.Run("build failure", func(t *testing.T) {
		build := func() (app.Deps, error) { return app.Deps{}, errors.New("bad config") }
		_, err := run(t, build, "ask", "-q", "why?", writeFile(t, "a.md", []byte("x")))
		assert.EqualError(t, err, "bad config")
	})
}

func TestExtractCommand(t *testing.T) {
	out, err := run(t, nil, "extract", writeFile(t, "notes.md", []byte("# Title\nBody")))
	require.NoError(t, err)
	assert.Equal(t, "# Title\nBody\n", out)

	_, err = run(t, nil, "extract", writeFile(t, "broken.pdf", []byte("junk")))
	assert.Equal(t, apperr.KindExtractionFailed, apperr.Kind(err))
}

func TestModelsCommand(t *testing.T) {
	mockLLM := new(llm.MockClient)
	mockLLM.On("Models", mock.Anything).Return([]string{"llama3:latest", "mistral:7b"}, nil).Once()

	out, err := run(t, mockBuild(mockLLM), "models")
	require.NoError(t, err)
	assert.Equal(t, "llama3:latest\nmistral:7b\n", out)
	mockLLM.AssertExpectations(t)
}
