package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"doc-qa/internal/apperr"
	"doc-qa/internal/metrics"
)

// Validator is shared by handlers; field names in messages come from `form` or `json` tags.
var Validator = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"form", "json"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return fld.Name
	})
	return v
}

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Filename  string `json:"filename,omitempty"`
	Extension string `json:"extension,omitempty"`
}

// NewRouter creates a chi router with standard middleware (RequestID, RealIP, metrics, Recoverer, Logger, Timeout).
func NewRouter(log *slog.Logger, timeout time.Duration) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(metrics.Middleware)
	r.Use(Recoverer(log))
	r.Use(RequestLogger(log))
	if timeout > 0 {
		r.Use(middleware.Timeout(timeout))
	}

	return r
}

// WriteJSON writes a JSON response with proper headers.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(body)
}

// HealthHandler returns a simple liveness endpoint.
func HealthHandler(log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("ok")); err != nil {
			log.Warn("healthz write failed", "err", err)
		}
	}
}

// RequestLogger is a lightweight HTTP logger that uses slog.
func RequestLogger(log *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

// Recoverer logs panics via slog while preserving chi's Recoverer behavior.
func Recoverer(log *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					log.Error("panic recovered", "panic", rec, "path", r.URL.Path, "method", r.Method, "request_id", middleware.GetReqID(r.Context()))
					WriteJSON(w, http.StatusInternalServerError, ErrorResponse{
						Error:   apperr.KindInternal,
						Message: http.StatusText(http.StatusInternalServerError),
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// WriteError maps a pipeline error onto its status and envelope. Client errors
// are logged at warn, server-side failures at error. Unknown errors are
// reported with a generic message.
func WriteError(log *slog.Logger, w http.ResponseWriter, err error) {
	status := apperr.Status(err)
	resp := ErrorResponse{Error: apperr.Kind(err), Message: err.Error()}

	var (
		unsupported *apperr.UnsupportedFormatError
		extraction  *apperr.ExtractionFailedError
	)
	switch {
	case errors.As(err, &unsupported):
		resp.Filename = unsupported.Filename
		resp.Extension = unsupported.Extension
	case errors.As(err, &extraction):
		resp.Filename = extraction.Filename
	}
	if resp.Error == apperr.KindInternal {
		resp.Message = "internal error"
	}

	if status >= http.StatusInternalServerError {
		log.Error("request failed", "kind", resp.Error, "status", status, "err", err)
	} else {
		log.Warn("request rejected", "kind", resp.Error, "status", status, "err", err)
	}
	WriteJSON(w, status, resp)
}

// ValidationError converts validator errors into an invalid_request response.
func ValidationError(log *slog.Logger, w http.ResponseWriter, err error) {
	WriteError(log, w, &apperr.InvalidRequestError{Reason: validationReason(err)})
}

func validationReason(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("field %q is required", fe.Field())
	case "min":
		return fmt.Sprintf("field %q needs at least %s value(s)", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("field %q failed %q validation", fe.Field(), fe.Tag())
	}
}
