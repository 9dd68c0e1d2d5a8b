package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"exportcheck/internal/customers"
	apierrors "exportcheck/internal/errors"
	"exportcheck/internal/middleware"
	"exportcheck/internal/operations"
	"exportcheck/internal/validation"
)

// Report download formats
const (
	FormatHTML = "html"
	FormatJSON = "json"
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"
)

var reportFormats = []string{FormatHTML, FormatJSON, FormatXLSX, FormatCSV}

var runStatuses = []string{
	string(operations.RunStatusPending),
	string(operations.RunStatusRunning),
	string(operations.RunStatusCompleted),
	string(operations.RunStatusFailed),
	string(operations.RunStatusCancelled),
}

// StartValidationRequest is the body of POST /api/validations
type StartValidationRequest struct {
	Customer    string `json:"customer" validate:"required,max=200"`
	ExportKind  string `json:"export_kind" validate:"required,max=64"`
	Environment string `json:"environment" validate:"required"`
}

// RunResponse is a run with links to its resources
type RunResponse struct {
	*operations.RunState
	Links map[string]string `json:"links"`
}

// RunListResponse is the body of GET /api/validations
type RunListResponse struct {
	Runs  []RunResponse `json:"runs"`
	Count int           `json:"count"`
}

// ValidationsHandler handles validation run requests
type ValidationsHandler struct {
	service   RunService
	customers *customers.List
	selector  *validation.ColumnSelector
	html      ReportRenderer
	validator *middleware.ValidationMiddleware
	query     *middleware.QueryParamValidator
	errors    *apierrors.ErrorHandler
	logger    *slog.Logger
	tracer    trace.Tracer
}

// NewValidationsHandler creates a handler. An empty or nil customer list
// accepts any customer name.
func NewValidationsHandler(service RunService, list *customers.List, selector *validation.ColumnSelector, html ReportRenderer, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *ValidationsHandler {
	if service == nil {
		panic("service cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if selector == nil {
		selector = validation.DefaultColumnSelector()
	}
	if errorHandler == nil {
		errorHandler = apierrors.NewErrorHandler(logger, false)
	}
	return &ValidationsHandler{
		service:   service,
		customers: list,
		selector:  selector,
		html:      html,
		validator: middleware.NewValidationMiddleware(logger, errorHandler),
		query:     middleware.NewQueryParamValidator(logger, errorHandler),
		errors:    errorHandler,
		logger:    logger.With(slog.String("handler", "validations")),
		tracer:    otel.Tracer("exportcheck/http"),
	}
}

// Routes returns a chi router for validation endpoints
func (h *ValidationsHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.With(
		middleware.ContentTypeValidator("application/json"),
		h.validator.ValidateRequest,
	).Post("/", h.StartValidation)
	r.Get("/", h.ListValidations)
	r.Get("/{id}", h.GetValidation)
	r.Delete("/{id}", h.CancelValidation)
	r.Get("/{id}/report", h.DownloadReport)

	return r
}

// StartValidation handles POST /api/validations
func (h *ValidationsHandler) StartValidation(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "validations_handler.start")
	defer span.End()

	var body StartValidationRequest
	if err := h.validator.DecodeAndValidate(r, &body); err != nil {
		span.RecordError(err)
		h.errors.HandleError(w, r, err)
		return
	}

	req, fieldErrs := h.toRunRequest(body)
	if len(fieldErrs) > 0 {
		h.errors.HandleError(w, r, apierrors.NewValidationErrors(fieldErrs))
		return
	}

	span.SetAttributes(
		attribute.String("export.kind", string(req.ExportKind)),
		attribute.String("environment", string(req.Environment)),
	)

	run, err := h.service.Submit(req)
	if err != nil {
		span.RecordError(err)
		h.logger.WarnContext(ctx, "validation run rejected",
			slog.String("error", err.Error()),
			slog.String("request_id", middleware.GetRequestID(ctx)))
		h.errors.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(ctx, "validation run accepted",
		slog.String("run_id", run.ID),
		slog.String("export_kind", string(req.ExportKind)),
		slog.String("environment", string(req.Environment)))

	w.Header().Set("Location", runPath(run.ID))
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, newRunResponse(run))
}

// toRunRequest normalizes the body against the known kinds, environments
// and customers
func (h *ValidationsHandler) toRunRequest(body StartValidationRequest) (validation.RunRequest, []apierrors.ValidationError) {
	var fieldErrs []apierrors.ValidationError

	env, err := validation.ParseEnvironment(body.Environment)
	if err != nil {
		fieldErrs = append(fieldErrs, apierrors.ValidationError{
			Field:   "environment",
			Message: "environment must be one of: CERT, PROD",
		})
	}

	kind := validation.ExportKind(strings.TrimSpace(body.ExportKind))
	if policy, ok := h.selector.Policy(kind); ok {
		kind = policy.Kind
	} else {
		fieldErrs = append(fieldErrs, apierrors.ValidationError{
			Field:   "export_kind",
			Message: fmt.Sprintf("export_kind must be one of: %s", joinKinds(h.selector.Kinds())),
		})
	}

	customer := strings.TrimSpace(body.Customer)
	if h.customers != nil && h.customers.Len() > 0 {
		if listed, ok := h.customers.Lookup(customer); ok {
			customer = listed
		} else {
			fieldErrs = append(fieldErrs, apierrors.ValidationError{
				Field:   "customer",
				Message: "customer is not in the customer list",
			})
		}
	}

	return validation.RunRequest{
		Customer:    customer,
		ExportKind:  kind,
		Environment: env,
	}, fieldErrs
}

// ListValidations handles GET /api/validations
func (h *ValidationsHandler) ListValidations(w http.ResponseWriter, r *http.Request) {
	status, ok := h.query.ValidateEnum(w, r, "status", runStatuses, "")
	if !ok {
		return
	}
	limit, ok := h.query.ValidateInt(w, r, "limit", 1, 500, 50)
	if !ok {
		return
	}

	runs, err := h.service.List(operations.RunFilter{
		Status:   operations.RunStatus(status),
		Customer: r.URL.Query().Get("customer"),
		Limit:    limit,
	})
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	resp := RunListResponse{Runs: make([]RunResponse, 0, len(runs)), Count: len(runs)}
	for _, run := range runs {
		resp.Runs = append(resp.Runs, newRunResponse(run))
	}
	render.JSON(w, r, resp)
}

// GetValidation handles GET /api/validations/{id}
func (h *ValidationsHandler) GetValidation(w http.ResponseWriter, r *http.Request) {
	run, err := h.service.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, newRunResponse(run))
}

// CancelValidation handles DELETE /api/validations/{id}
func (h *ValidationsHandler) CancelValidation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.Cancel(id); err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "validation run cancel requested", slog.String("run_id", id))
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, map[string]string{
		"id":     id,
		"status": "cancelling",
	})
}

// DownloadReport handles GET /api/validations/{id}/report?format=html|json|xlsx|csv
func (h *ValidationsHandler) DownloadReport(w http.ResponseWriter, r *http.Request) {
	format, ok := h.query.ValidateEnum(w, r, "format", reportFormats, FormatHTML)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	run, err := h.service.Get(id)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	report := run.GetReport()
	if report == nil {
		if !run.GetStatus().Terminal() {
			h.errors.HandleError(w, r, apierrors.NewConflictError(fmt.Sprintf("run %s has not finished", id)))
			return
		}
		h.errors.HandleError(w, r, apierrors.NewNotFoundError("report"))
		return
	}

	switch format {
	case FormatJSON:
		render.JSON(w, r, report)
	case FormatHTML:
		if h.html == nil {
			h.errors.HandleError(w, r, apierrors.NewNotFoundError("html report"))
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := h.html.Render(w, report); err != nil {
			h.logger.ErrorContext(r.Context(), "failed to render report",
				slog.String("run_id", id),
				slog.String("error", err.Error()))
		}
	default:
		path := reportFile(run, format)
		if path == "" {
			h.errors.HandleError(w, r, apierrors.NewNotFoundError(format+" report"))
			return
		}
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
		http.ServeFile(w, r, path)
	}
}

func reportFile(run *operations.RunState, format string) string {
	if run.Files == nil {
		return ""
	}
	switch format {
	case FormatXLSX:
		return run.Files.XLSX
	case FormatCSV:
		return run.Files.CSV
	}
	return ""
}

func runPath(id string) string {
	return "/api/validations/" + id
}

func newRunResponse(run *operations.RunState) RunResponse {
	self := runPath(run.ID)
	links := map[string]string{"self": self}
	if run.GetStatus().Terminal() {
		links["report"] = self + "/report"
	}
	return RunResponse{RunState: run, Links: links}
}

func joinKinds(kinds []validation.ExportKind) string {
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = string(k)
	}
	return strings.Join(out, ", ")
}
