package qa

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"doc-qa/internal/apperr"
	"doc-qa/internal/events"
	"doc-qa/internal/extract"
	"doc-qa/internal/llm"
	"doc-qa/internal/testutil"
)

func newTestService(l llm.Client, p events.Publisher) *Service {
	return NewService(l, p, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestAsk(t *testing.T) {
	tests := []struct {
		name        string
		uploads     []Upload
		question    string
		setup       func(*llm.MockClient, *events.MockPublisher)
		wantErrKind string
		check       func(*testing.T, Result)
	}{
		{
			name:     "markdown passes through verbatim",
			uploads:  []Upload{{Filename: "notes.md", Data: []byte("# Hello\nWorld")}},
			question: "What is this about?",
			setup: func(l *llm.MockClient, p *events.MockPublisher) {
				l.On("Model").Return("llama3")
				l.On("Generate", mock.Anything, mock.MatchedBy(func(prompt string) bool {
					return strings.Contains(prompt, "# Hello\nWorld") && strings.Contains(prompt, "What is this about?")
				})).Return("A greeting.", nil).Once()
				p.On("Publish", mock.Anything, mock.MatchedBy(func(ev events.AnswerEvent) bool {
					return ev.Outcome == events.OutcomeAnswered && ev.AnswerChars == len("A greeting.") &&
						len(ev.Documents) == 1 && ev.Documents[0] == "notes.md"
				})).Return(nil).Once()
			},
			check: func(t *testing.T, res Result) {
				assert.Equal(t, "A greeting.", res.Answer)
				assert.Equal(t, "llama3", res.Model)
				require.Len(t, res.Documents, 1)
				assert.Equal(t, extract.FormatMarkdown, res.Documents[0].Format)
			},
		},
		{
			name: "pdf and docx keep upload order",
			uploads: []Upload{
				{Filename: "report.pdf", Data: testutil.PDF("Revenue grew")},
				{Filename: "memo.docx", Data: testutil.DOCX("Hiring paused")},
			},
			question: "Summarise both",
			setup: func(l *llm.MockClient, p *events.MockPublisher) {
				l.On("Model").Return("llama3")
				l.On("Generate", mock.Anything, mock.MatchedBy(func(prompt string) bool {
					pdf := strings.Index(prompt, "Revenue grew")
					docx := strings.Index(prompt, "Hiring paused")
					q := strings.Index(prompt, "Summarise both")
					return pdf >= 0 && docx > pdf && q > docx
				})).Return("Both.", nil).Once()
				p.On("Publish", mock.Anything, mock.Anything).Return(nil).Once()
			},
			check: func(t *testing.T, res Result) {
				require.Len(t, res.Documents, 2)
				assert.Equal(t, "report.pdf", res.Documents[0].Filename)
				assert.Equal(t, "memo.docx", res.Documents[1].Filename)
			},
		},
		{
			name:     "no uploads",
			question: "anything?",
			setup: func(l *llm.MockClient, p *events.MockPublisher) {
				l.On("Model").Return("llama3")
				p.On("Publish", mock.Anything, mock.MatchedBy(func(ev events.AnswerEvent) bool {
					return ev.Outcome == events.OutcomeFailed && ev.ErrorKind == apperr.KindInvalidRequest
				})).Return(nil).Once()
			},
			wantErrKind: apperr.KindInvalidRequest,
		},
		{
			name:     "blank question",
			uploads:  []Upload{{Filename: "a.md", Data: []byte("text")}},
			question: "   ",
			setup: func(l *llm.MockClient, p *events.MockPublisher) {
				l.On("Model").Return("llama3")
				p.On("Publish", mock.Anything, mock.Anything).Return(nil).Once()
			},
			wantErrKind: apperr.KindInvalidRequest,
		},
		{
			name: "unsupported file stops before inference",
			uploads: []Upload{
				{Filename: "a.md", Data: []byte("fine")},
				{Filename: "notes.txt", Data: []byte("plain")},
			},
			question: "q",
			setup: func(l *llm.MockClient, p *events.MockPublisher) {
				l.On("Model").Return("llama3")
				p.On("Publish", mock.Anything, mock.Anything).Return(nil).Once()
			},
			wantErrKind: apperr.KindUnsupportedFormat,
		},
		{
			name: "corrupt file fails fast",
			uploads: []Upload{
				{Filename: "broken.pdf", Data: []byte("garbage")},
				{Filename: "a.md", Data: []byte("never read")},
			},
			question: "q",
			setup: func(l *llm.MockClient, p *events.MockPublisher) {
				l.On("Model").Return("llama3")
				p.On("Publish", mock.Anything, mock.MatchedBy(func(ev events.AnswerEvent) bool {
					return ev.ErrorKind == apperr.KindExtractionFailed
				})).Return(nil).Once()
			},
			wantErrKind: apperr.KindExtractionFailed,
		},
		{
			name:     "inference failure returns no answer",
			uploads:  []Upload{{Filename: "a.md", Data: []byte("text")}},
			question: "q",
			setup: func(l *llm.MockClient, p *events.MockPublisher) {
				l.On("Model").Return("llama3")
				l.On("Generate", mock.Anything, mock.Anything).
					Return("", &apperr.InferenceUnavailableError{Cause: errors.New("refused"), Unreachable: true}).Once()
				p.On("Publish", mock.Anything, mock.Anything).Return(nil).Once()
			},
			wantErrKind: apperr.KindInferenceUnavailable,
		},
		{
			name:     "event publish failure does not fail the request",
			uploads:  []Upload{{Filename: "a.md", Data: []byte("text")}},
			question: "q",
			setup: func(l *llm.MockClient, p *events.MockPublisher) {
				l.On("Model").Return("llama3")
				l.On("Generate", mock.Anything, mock.Anything).Return("answer", nil).Once()
				p.On("Publish", mock.Anything, mock.Anything).Return(errors.New("nats down")).Once()
			},
			check: func(t *testing.T, res Result) {
				assert.Equal(t, "answer", res.Answer)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockLLM := new(llm.MockClient)
			mockPub := new(events.MockPublisher)
			if tt.setup != nil {
				tt.setup(mockLLM, mockPub)
			}

			res, err := newTestService(mockLLM, mockPub).Ask(context.Background(), tt.uploads, tt.question)

			if tt.wantErrKind != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantErrKind, apperr.Kind(err))
				assert.Empty(t, res.Answer)
				if tt.wantErrKind == apperr.KindInferenceUnavailable {
					mockLLM.AssertNumberOfCalls(t, "Generate", 1)
				} else {
					mockLLM.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
				}
			} else {
				require.NoError(t, err)
			}
			if tt.check != nil {
				tt.check(t, res)
			}

			mockPub.AssertExpectations(t)
		})
	}
}

func TestAskWithoutPublisher(t *testing.T) {
	mockLLM := new(llm.MockClient)
	mockLLM.On("Model").Return("llama3")
	mockLLM.On("Generate", mock.Anything, mock.Anything).Return("ok", nil).Once()

	res, err := newTestService(mockLLM, nil).Ask(context.Background(), []Upload{{Filename: "a.md", Data: []byte("x")}}, "q")
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Answer)
	mockLLM.AssertExpectations(t)
}

func TestExtractAllOrder(t *testing.T) {
	svc := newTestService(new(llm.MockClient), nil)
	docs, err := svc.ExtractAll([]Upload{
		{Filename: "b.md", Data: []byte("second")},
		{Filename: "a.md", Data: []byte("first")},
	})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "second", docs[0].Text)
	assert.Equal(t, "first", docs[1].Text)
}

func TestExtractAllLogsContentType(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	svc := NewService(new(llm.MockClient), nil, log)

	_, err := svc.ExtractAll([]Upload{{Filename: "a.md", ContentType: "text/markdown", Data: []byte("x")}})
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "document extracted", entry["msg"])
	assert.Equal(t, "a.md", entry["filename"])
	assert.Equal(t, "text/markdown", entry["content_type"])
}
