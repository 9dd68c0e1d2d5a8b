package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"runtime/debug"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

// Common error types following RFC 7807
const (
	TypeValidation  = "/errors/validation"
	TypeNotFound    = "/errors/not-found"
	TypeRateLimit   = "/errors/rate-limit"
	TypeInternal    = "/errors/internal"
	TypeServiceDown = "/errors/service-unavailable"
	TypeTimeout     = "/errors/timeout"
	TypeConflict    = "/errors/conflict"
)

// Validation run error types
const (
	TypeConfigMissing     = "/errors/run/config-missing"
	TypePollTimeout       = "/errors/run/poll-timeout"
	TypeJobFailed         = "/errors/run/job-failed"
	TypeUnexpectedState   = "/errors/run/unexpected-terminal-state"
	TypeEmptyArtifact     = "/errors/artifact/empty"
	TypeMalformedArtifact = "/errors/artifact/malformed"
	TypeHeaderNotFound    = "/errors/artifact/header-not-found"
	TypeAutomation        = "/errors/run/automation"
	TypeStorage           = "/errors/storage"
)

// ErrorHandler provides centralized error handling
type ErrorHandler struct {
	logger       *slog.Logger
	includeStack bool
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *slog.Logger, includeStack bool) *ErrorHandler {
	return &ErrorHandler{
		logger:       logger.With(slog.String("component", "error_handler")),
		includeStack: includeStack,
	}
}

// HandleError converts any error to RFC 7807 format and responds
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	reqID := middleware.GetReqID(r.Context())

	h.logger.ErrorContext(r.Context(), "request failed",
		slog.String("error", err.Error()),
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)

	problem := h.ErrorToProblem(err, r)
	problem.WithExtension("trace_id", reqID)

	if h.includeStack {
		problem.WithExtension("stack", getStackTrace())
	}

	render.Render(w, r, problem)
}

// ErrorToProblem converts an error to RFC 7807 Problem Details
func (h *ErrorHandler) ErrorToProblem(err error, r *http.Request) *ProblemDetails {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewProblemDetails(
			http.StatusGatewayTimeout,
			TypeTimeout,
			"Request Timeout",
			"The request took too long to process and was cancelled",
			r.URL.Path,
		)
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return h.apiErrorToProblem(apiErr, r)
	}

	if appErr, ok := AsAppError(err); ok {
		return h.appErrorToProblem(appErr, r)
	}

	return NewProblemDetails(
		http.StatusInternalServerError,
		TypeInternal,
		"Internal Server Error",
		"An unexpected error occurred while processing your request",
		r.URL.Path,
	)
}

// appErrorToProblem maps the run taxonomy onto HTTP statuses
func (h *ErrorHandler) appErrorToProblem(appErr *AppError, r *http.Request) *ProblemDetails {
	status, problemType := StatusForType(appErr.Type)

	problem := NewProblemDetails(
		status,
		problemType,
		http.StatusText(status),
		appErr.Message,
		r.URL.Path,
	).WithExtension("error_type", string(appErr.Type))

	for k, v := range appErr.Context {
		problem.WithExtension(k, v)
	}
	if appErr.Cause != nil {
		problem.WithExtension("cause", appErr.Cause.Error())
	}
	return problem
}

// StatusForType returns the HTTP status and problem type for an ErrorType.
func StatusForType(t ErrorType) (int, string) {
	switch t {
	case ErrTypeValidation:
		return http.StatusBadRequest, TypeValidation
	case ErrTypeNotFound:
		return http.StatusNotFound, TypeNotFound
	case ErrTypeConflict:
		return http.StatusConflict, TypeConflict
	case ErrTypeStorage:
		return http.StatusInternalServerError, TypeStorage
	case ErrTypeConfigMissing:
		return http.StatusInternalServerError, TypeConfigMissing
	case ErrTypePollTimeout:
		return http.StatusGatewayTimeout, TypePollTimeout
	case ErrTypeJobFailed:
		return http.StatusBadGateway, TypeJobFailed
	case ErrTypeUnexpectedTerminalState:
		return http.StatusBadGateway, TypeUnexpectedState
	case ErrTypeEmptyArtifact:
		return http.StatusUnprocessableEntity, TypeEmptyArtifact
	case ErrTypeMalformedArtifact:
		return http.StatusUnprocessableEntity, TypeMalformedArtifact
	case ErrTypeHeaderNotFound:
		return http.StatusUnprocessableEntity, TypeHeaderNotFound
	case ErrTypeAutomation:
		return http.StatusBadGateway, TypeAutomation
	default:
		return http.StatusInternalServerError, TypeInternal
	}
}

// apiErrorToProblem converts APIError to ProblemDetails
func (h *ErrorHandler) apiErrorToProblem(apiErr *APIError, r *http.Request) *ProblemDetails {
	problemType := TypeInternal
	switch apiErr.ErrorCode {
	case "VALIDATION_FAILED", "INVALID_REQUEST":
		problemType = TypeValidation
	case "NOT_FOUND", "RUN_NOT_FOUND":
		problemType = TypeNotFound
	case "CONFLICT", "RUN_IN_PROGRESS":
		problemType = TypeConflict
	case "RATE_LIMIT_EXCEEDED":
		problemType = TypeRateLimit
	case "SERVICE_UNAVAILABLE":
		problemType = TypeServiceDown
	}

	problem := NewProblemDetails(
		apiErr.StatusCode,
		problemType,
		http.StatusText(apiErr.StatusCode),
		apiErr.Message,
		r.URL.Path,
	).WithExtension("error_code", apiErr.ErrorCode)

	if apiErr.Details != nil {
		problem.WithExtension("details", apiErr.Details)
	}

	return problem
}

// HandlePanic recovers from panics and returns RFC 7807 error
func (h *ErrorHandler) HandlePanic(w http.ResponseWriter, r *http.Request, recovered interface{}) {
	reqID := middleware.GetReqID(r.Context())

	h.logger.ErrorContext(r.Context(), "panic recovered",
		slog.Any("panic", recovered),
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("stack", string(debug.Stack())),
	)

	problem := NewProblemDetails(
		http.StatusInternalServerError,
		TypeInternal,
		"Internal Server Error",
		"An unexpected error occurred",
		r.URL.Path,
	).WithExtension("trace_id", reqID)

	if h.includeStack {
		problem.WithExtension("panic", fmt.Sprintf("%v", recovered))
		problem.WithExtension("stack", getStackTrace())
	}

	render.Render(w, r, problem)
}

// NotFound returns a standard 404 error
func (h *ErrorHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	problem := NewProblemDetails(
		http.StatusNotFound,
		TypeNotFound,
		"Not Found",
		"The requested resource was not found",
		r.URL.Path,
	).WithExtension("trace_id", middleware.GetReqID(r.Context()))

	render.Render(w, r, problem)
}

// MethodNotAllowed returns a standard 405 error
func (h *ErrorHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	problem := NewProblemDetails(
		http.StatusMethodNotAllowed,
		TypeInternal,
		"Method Not Allowed",
		fmt.Sprintf("Method %s is not allowed for this endpoint", r.Method),
		r.URL.Path,
	).WithExtension("trace_id", middleware.GetReqID(r.Context()))

	render.Render(w, r, problem)
}

func getStackTrace() string {
	buf := make([]byte, 1024*8)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}

// Middleware recovers panics into problem responses
func (h *ErrorHandler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				h.HandlePanic(w, r, err)
			}
		}()

		next.ServeHTTP(w, r)
	})
}
