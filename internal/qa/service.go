// Package qa runs the question pipeline: extract every upload in order,
// assemble one prompt, ask the model once.
package qa

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"doc-qa/internal/apperr"
	"doc-qa/internal/events"
	"doc-qa/internal/extract"
	"doc-qa/internal/llm"
	"doc-qa/internal/metrics"
	"doc-qa/internal/prompt"
)

// Upload is one file received from the caller.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Document is the extracted text of one upload.
type Document struct {
	Filename string         `json:"filename"`
	Format   extract.Format `json:"format"`
	Text     string         `json:"text"`
}

// Result is the outcome of a successful Ask.
type Result struct {
	Answer    string     `json:"answer"`
	Model     string     `json:"model"`
	Documents []Document `json:"documents"`
}

// Service is safe for concurrent use; it holds no per-request state.
type Service struct {
	llm    llm.Client
	events events.Publisher
	log    *slog.Logger
}

// NewService wires the pipeline. A nil publisher disables answer events.
func NewService(client llm.Client, pub events.Publisher, log *slog.Logger) *Service {
	if pub == nil {
		pub = events.NewNoOpPublisher()
	}
	return &Service{llm: client, events: pub, log: log}
}

// Ask answers question over uploads. The first failing upload aborts the
// request before any inference call.
func (s *Service) Ask(ctx context.Context, uploads []Upload, question string) (Result, error) {
	start := time.Now()
	question = strings.TrimSpace(question)

	res, err := s.ask(ctx, uploads, question)

	s.publish(ctx, uploads, question, res, err, time.Since(start))
	return res, err
}

func (s *Service) ask(ctx context.Context, uploads []Upload, question string) (Result, error) {
	if len(uploads) == 0 {
		return Result{}, apperr.InvalidRequest("at least one file is required")
	}
	if question == "" {
		return Result{}, apperr.InvalidRequest("question must not be empty")
	}

	docs, err := s.ExtractAll(uploads)
	if err != nil {
		return Result{}, err
	}

	sections := make([]prompt.Section, len(docs))
	for i, d := range docs {
		sections[i] = prompt.Section{Label: d.Filename, Text: d.Text}
	}
	p := prompt.Assemble(sections, question)

	model := s.llm.Model()
	log := s.log.With("model", model, "documents", len(docs), "prompt_chars", len(p))
	log.Debug("sending prompt to inference endpoint")

	inferStart := time.Now()
	answer, err := s.llm.Generate(ctx, p)
	metrics.ObserveInference(model, time.Since(inferStart), err)
	if err != nil {
		return Result{}, err
	}
	log.Info("question answered", "answer_chars", len(answer), "inference_ms", time.Since(inferStart).Milliseconds())

	return Result{Answer: answer, Model: model, Documents: docs}, nil
}

// ExtractAll extracts uploads sequentially, in upload order, stopping at the first failure.
func (s *Service) ExtractAll(uploads []Upload) ([]Document, error) {
	docs := make([]Document, 0, len(uploads))
	for _, u := range uploads {
		format, err := extract.ParseFormat(u.Filename)
		if err != nil {
			return nil, err
		}
		started := time.Now()
		text, err := extract.ExtractFormat(u.Data, u.Filename, format)
		metrics.ObserveExtraction(string(format), time.Since(started), err)
		if err != nil {
			return nil, err
		}
		s.log.Debug("document extracted",
			"filename", u.Filename,
			"content_type", u.ContentType,
			"format", format,
			"chars", len(text),
		)
		docs = append(docs, Document{Filename: u.Filename, Format: format, Text: text})
	}
	return docs, nil
}

func (s *Service) publish(ctx context.Context, uploads []Upload, question string, res Result, err error, elapsed time.Duration) {
	names := make([]string, len(uploads))
	for i, u := range uploads {
		names[i] = u.Filename
	}
	ev := events.AnswerEvent{
		Question:    question,
		Documents:   names,
		Model:       s.llm.Model(),
		Outcome:     events.OutcomeAnswered,
		AnswerChars: len(res.Answer),
		DurationMS:  elapsed.Milliseconds(),
	}
	if err != nil {
		ev.Outcome = events.OutcomeFailed
		ev.ErrorKind = apperr.Kind(err)
	}
	// The request context may already be cancelled; the event still goes out.
	if pubErr := s.events.Publish(context.WithoutCancel(ctx), ev); pubErr != nil {
		s.log.Warn("failed to publish answer event", "err", pubErr)
	}
}
