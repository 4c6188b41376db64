package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	e "github.com/gartstein/companydir/internal/company/errors"
	"github.com/gartstein/companydir/internal/company/filter"
	"github.com/gartstein/companydir/internal/company/models"
	"github.com/gartstein/companydir/internal/company/validation"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const maxBodyBytes = 1 << 20

// CompanyController defines the business logic interface
// that the HTTP handlers will invoke.
type CompanyController interface {
	CreateCompany(ctx context.Context, in *models.CompanyInput) (*models.Company, error)
	GetCompany(ctx context.Context, id string) (*models.Company, error)
	UpdateCompany(ctx context.Context, id string, update *models.CompanyUpdate) (*models.Company, error)
	DeleteCompany(ctx context.Context, id string) error
	ListCompanies(ctx context.Context, spec filter.Spec) ([]*models.Company, error)
}

// CompanyHandler serves the /api/companies routes, mapping requests to a
// CompanyController.
type CompanyHandler struct {
	service   CompanyController
	validator *validation.Validator
	logger    *zap.Logger
}

// NewCompanyHandler constructs a new CompanyHandler with the given service and logger.
func NewCompanyHandler(service CompanyController, logger *zap.Logger) *CompanyHandler {
	return &CompanyHandler{
		service:   service,
		validator: validation.New(),
		logger:    logger.Named("http_handler"),
	}
}

// Register adds the company routes and the health check to mux.
func (h *CompanyHandler) Register(mux *runtime.ServeMux) error {
	routes := []struct {
		method  string
		pattern string
		handler runtime.HandlerFunc
	}{
		{http.MethodGet, "/api/companies", h.ListCompanies},
		{http.MethodPost, "/api/companies", h.CreateCompany},
		{http.MethodGet, "/api/companies/{id}", h.GetCompany},
		{http.MethodPut, "/api/companies/{id}", h.UpdateCompany},
		{http.MethodDelete, "/api/companies/{id}", h.DeleteCompany},
		{http.MethodGet, "/healthz", h.Health},
	}
	for _, route := range routes {
		if err := mux.HandlePath(route.method, route.pattern, route.handler); err != nil {
			return err
		}
	}
	return nil
}

// ListCompanies returns every company matching the query filters.
func (h *CompanyHandler) ListCompanies(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	companies, err := h.service.ListCompanies(r.Context(), filter.FromQuery(r.URL.Query()))
	if err != nil {
		h.fail(w, err, "Failed to fetch companies")
		return
	}
	if companies == nil {
		companies = []*models.Company{}
	}
	writeCacheable(w, r, companies)
}

// GetCompany fetches a Company by ID.
func (h *CompanyHandler) GetCompany(w http.ResponseWriter, r *http.Request, params map[string]string) {
	company, err := h.service.GetCompany(r.Context(), params["id"])
	if err != nil {
		h.fail(w, err, "Failed to fetch company")
		return
	}
	writeCacheable(w, r, company)
}

// CreateCompany validates the body and creates a new Company.
func (h *CompanyHandler) CreateCompany(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	body, ok := h.readBody(w, r)
	if !ok {
		return
	}

	in, err := h.validator.DecodeCreate(body)
	if err != nil {
		h.fail(w, err, "Failed to create company")
		return
	}

	created, err := h.service.CreateCompany(r.Context(), in)
	if err != nil {
		h.fail(w, err, "Failed to create company")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// UpdateCompany merges a partial payload into an existing Company.
func (h *CompanyHandler) UpdateCompany(w http.ResponseWriter, r *http.Request, params map[string]string) {
	body, ok := h.readBody(w, r)
	if !ok {
		return
	}

	update, err := h.validator.DecodeUpdate(body)
	if err != nil {
		h.fail(w, err, "Failed to update company")
		return
	}

	updated, err := h.service.UpdateCompany(r.Context(), params["id"], update)
	if err != nil {
		h.fail(w, err, "Failed to update company")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteCompany removes a Company given its ID.
func (h *CompanyHandler) DeleteCompany(w http.ResponseWriter, r *http.Request, params map[string]string) {
	if err := h.service.DeleteCompany(r.Context(), params["id"]); err != nil {
		h.fail(w, err, "Failed to delete company")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CompanyHandler) Health(w http.ResponseWriter, _ *http.Request, _ map[string]string) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *CompanyHandler) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large", nil)
			return nil, false
		}
		writeError(w, http.StatusBadRequest, "Failed to read request body", nil)
		return nil, false
	}
	return body, true
}

// fail writes the error response for err. Unexpected errors are logged and
// answered with fallback; their detail is never sent to the client.
func (h *CompanyHandler) fail(w http.ResponseWriter, err error, fallback string) {
	st := status.Convert(mapServiceError(err))
	httpStatus := runtime.HTTPStatusFromCode(st.Code())

	switch st.Code() {
	case codes.NotFound:
		writeError(w, httpStatus, "Company not found", nil)
	case codes.InvalidArgument:
		var verr *e.ValidationError
		var fields []e.FieldError
		if errors.As(err, &verr) {
			fields = verr.Fields
		}
		writeError(w, httpStatus, "Invalid company data", fields)
	default:
		h.logger.Error(fallback, zap.Error(err))
		writeError(w, httpStatus, fallback, nil)
	}
}

// mapServiceError maps domain errors to gRPC status codes.
func mapServiceError(err error) error {
	switch {
	case errors.Is(err, e.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, e.ErrInvalidInput):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, "internal server error")
	}
}
