package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"doc-qa/internal/app"
	"doc-qa/internal/apperr"
	"doc-qa/internal/httputil"
	"doc-qa/internal/metrics"
	"doc-qa/internal/qa"
)

// askRequest is the validated form of POST /ask.
type askRequest struct {
	Question string      `form:"questions" validate:"required"`
	Files    []qa.Upload `form:"files" validate:"required,min=1"`
}

type documentInfo struct {
	Filename   string `json:"filename"`
	Format     string `json:"format"`
	Characters int    `json:"characters"`
}

type askResponse struct {
	Answer    string         `json:"answer"`
	Model     string         `json:"model"`
	Documents []documentInfo `json:"documents"`
}

const (
	llmHealthTimeout = 5 * time.Second
	// Headroom over the inference deadline for reading uploads and extraction.
	requestTimeoutSlack = 30 * time.Second
)

func main() {
	deps, err := app.Build()
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := fmt.Sprintf(":%d", deps.Config.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           newRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		deps.Log.Info("doc-qa listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// Shut down on signal or when the listener fails.
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), deps.Config.ShutdownTimeout)
		defer cancel()
		deps.Log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		deps.Log.Error("server stopped", "err", err)
	}
	if err := deps.Close(); err != nil {
		deps.Log.Warn("failed to close dependencies", "err", err)
	}
}

func newRouter(deps app.Deps) *chi.Mux {
	r := httputil.NewRouter(deps.Log, deps.Config.LLMTimeout+requestTimeoutSlack)

	ask := askHandler(deps)
	r.Post("/ask", ask)
	r.Post("/api/ask", ask)
	r.Get("/healthz", httputil.HealthHandler(deps.Log))
	r.Get("/health/llm", llmHealthHandler(deps))
	r.Handle("/metrics", metrics.Handler())
	return r
}

func askHandler(deps app.Deps) http.HandlerFunc {
	maxUploadSize := deps.Config.MaxUploadSize

	return func(w http.ResponseWriter, r *http.Request) {
		if maxUploadSize > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
		}
		req, err := readAskForm(r, maxUploadSize)
		if err != nil {
			httputil.WriteError(deps.Log, w, err)
			return
		}
		if err := httputil.Validator.Struct(&req); err != nil {
			httputil.ValidationError(deps.Log, w, err)
			return
		}

		res, err := deps.QA.Ask(r.Context(), req.Files, req.Question)
		if err != nil {
			httputil.WriteError(deps.Log.With("request_id", middleware.GetReqID(r.Context())), w, err)
			return
		}

		docs := make([]documentInfo, len(res.Documents))
		for i, d := range res.Documents {
			docs[i] = documentInfo{Filename: d.Filename, Format: string(d.Format), Characters: len([]rune(d.Text))}
		}
		httputil.WriteJSON(w, http.StatusOK, askResponse{
			Answer:    res.Answer,
			Model:     res.Model,
			Documents: docs,
		})
	}
}

func llmHealthHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), llmHealthTimeout)
		defer cancel()

		models, err := deps.LLM.Models(ctx)
		if err != nil {
			deps.Log.Warn("inference endpoint health check failed", "err", err)
			httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status":   "error",
				"provider": deps.Config.LLMProvider,
				"message":  err.Error(),
			})
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"status":   "ok",
			"provider": deps.Config.LLMProvider,
			"model":    deps.LLM.Model(),
			"models":   models,
		})
	}
}

// readAskForm streams the multipart body part by part, so uploads sent under
// "files" and "file" keep the order the client sent them in. "questions" wins
// over "question" when both are present.
func readAskForm(r *http.Request, maxUploadSize int64) (askRequest, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return askRequest{}, apperr.InvalidRequest("expected multipart/form-data with %q and %q fields: %v", "files", "questions", err)
	}

	var req askRequest
	var aliasQuestion string
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return askRequest{}, bodyError(err, maxUploadSize)
		}
		name, filename := part.FormName(), part.FileName()
		data, err := io.ReadAll(part)
		part.Close()
		if err != nil {
			return askRequest{}, bodyError(err, maxUploadSize)
		}

		switch {
		case (name == "files" || name == "file") && filename != "":
			req.Files = append(req.Files, qa.Upload{
				Filename:    filename,
				ContentType: part.Header.Get("Content-Type"),
				Data:        data,
			})
		case name == "questions" && strings.TrimSpace(req.Question) == "":
			req.Question = string(data)
		case name == "question" && strings.TrimSpace(aliasQuestion) == "":
			aliasQuestion = string(data)
		}
	}

	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		req.Question = strings.TrimSpace(aliasQuestion)
	}
	return req, nil
}

func bodyError(err error, maxUploadSize int64) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apperr.InvalidRequest("request body exceeds %d bytes", maxUploadSize)
	}
	return apperr.InvalidRequest("malformed multipart body: %v", err)
}
