package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gartstein/companydir/internal/company/controller"
	e "github.com/gartstein/companydir/internal/company/errors"
	"github.com/gartstein/companydir/internal/company/events"
	"github.com/gartstein/companydir/internal/company/filter"
	"github.com/gartstein/companydir/internal/company/memory"
	"github.com/gartstein/companydir/internal/company/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	techCorpJSON = `{"name":"TechCorp Inc","industry":"Technology","country":"United States","city":"San Francisco",` +
		`"employees":1250,"description":"Leading software development company specializing in cloud solutions."}`
	medHealthJSON = `{"name":"MedHealth Solutions","industry":"Healthcare","country":"United States","city":"Boston",` +
		`"employees":850,"description":"Innovative technology provider for hospitals and clinics."}`
)

// failingController returns the same error from every operation.
type failingController struct {
	err error
}

func (f *failingController) CreateCompany(context.Context, *models.CompanyInput) (*models.Company, error) {
	return nil, f.err
}

func (f *failingController) GetCompany(context.Context, string) (*models.Company, error) {
	return nil, f.err
}

func (f *failingController) UpdateCompany(context.Context, string, *models.CompanyUpdate) (*models.Company, error) {
	return nil, f.err
}

func (f *failingController) DeleteCompany(context.Context, string) error {
	return f.err
}

func (f *failingController) ListCompanies(context.Context, filter.Spec) ([]*models.Company, error) {
	return nil, f.err
}

func newTestServer(t *testing.T, service CompanyController, logger *zap.Logger) *httptest.Server {
	handler, err := NewHTTPHandler(NewCompanyHandler(service, logger), []string{"*"}, logger)
	require.NoError(t, err)
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func newServiceServer(t *testing.T) *httptest.Server {
	logger := zaptest.NewLogger(t)
	service := controller.NewCompanyService(memory.NewStore(), events.NopProducer{}, logger)
	return newTestServer(t, service, logger)
}

func do(t *testing.T, srv *httptest.Server, method, path, body string, headers ...string) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, srv.URL+path, reader)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func decodeCompany(t *testing.T, data []byte) *models.Company {
	t.Helper()
	var c models.Company
	require.NoError(t, json.Unmarshal(data, &c))
	return &c
}

func decodeList(t *testing.T, data []byte) []string {
	t.Helper()
	var companies []models.Company
	require.NoError(t, json.Unmarshal(data, &companies))
	names := make([]string, 0, len(companies))
	for _, c := range companies {
		names = append(names, c.Name)
	}
	return names
}

func decodeError(t *testing.T, data []byte) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(data, &body))
	return body
}

func TestCompanyHandler_ListScenario(t *testing.T) {
	srv := newServiceServer(t)

	resp, data := do(t, srv, http.MethodGet, "/api/companies", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, "[]", string(data))

	for _, payload := range []string{techCorpJSON, medHealthJSON} {
		resp, _ := do(t, srv, http.MethodPost, "/api/companies", payload)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"no filters", "", []string{"TechCorp Inc", "MedHealth Solutions"}},
		{"search matches description", "?search=technology", []string{"TechCorp Inc", "MedHealth Solutions"}},
		{"industry", "?industry=Technology", []string{"TechCorp Inc"}},
		{"all industries sentinel", "?industry=All+Industries", []string{"TechCorp Inc", "MedHealth Solutions"}},
		{"min employees", "?minEmployees=1000", []string{"TechCorp Inc"}},
		{"malformed bound is ignored", "?minEmployees=abc", []string{"TechCorp Inc", "MedHealth Solutions"}},
		{"combined", "?country=United+States&maxEmployees=900", []string{"MedHealth Solutions"}},
		{"no match", "?country=Germany", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, data := do(t, srv, http.MethodGet, "/api/companies"+tt.query, "")
			require.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
			assert.Equal(t, tt.want, decodeList(t, data))
		})
	}
}

func TestCompanyHandler_CreateCompany(t *testing.T) {
	srv := newServiceServer(t)

	t.Run("created", func(t *testing.T) {
		resp, data := do(t, srv, http.MethodPost, "/api/companies", techCorpJSON)
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		created := decodeCompany(t, data)
		assert.NotEmpty(t, created.ID)
		assert.Equal(t, "TechCorp Inc", created.Name)
		assert.Equal(t, 1250, created.Employees)
		assert.False(t, created.CreatedAt.IsZero())
		assert.Nil(t, created.LogoURL)
	})

	t.Run("client supplied id is ignored", func(t *testing.T) {
		payload := strings.Replace(techCorpJSON, "{", `{"id":"mine",`, 1)
		resp, data := do(t, srv, http.MethodPost, "/api/companies", payload)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		assert.NotEqual(t, "mine", decodeCompany(t, data).ID)
	})

	t.Run("every failing field is reported", func(t *testing.T) {
		resp, data := do(t, srv, http.MethodPost, "/api/companies",
			`{"industry":"Technology","country":"","city":"Paris","employees":0,"logoUrl":"not a url"}`)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)

		body := decodeError(t, data)
		assert.Equal(t, "Invalid company data", body.Message)
		fields := make([]string, 0, len(body.Errors))
		for _, fe := range body.Errors {
			fields = append(fields, fe.Field)
		}
		assert.ElementsMatch(t, []string{"name", "country", "employees", "logoUrl"}, fields)
	})

	t.Run("malformed body", func(t *testing.T) {
		resp, data := do(t, srv, http.MethodPost, "/api/companies", `{"name":`)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)

		body := decodeError(t, data)
		require.Len(t, body.Errors, 1)
		assert.Equal(t, "body", body.Errors[0].Field)
	})

	t.Run("body too large", func(t *testing.T) {
		logger := zaptest.NewLogger(t)
		service := controller.NewCompanyService(memory.NewStore(), events.NopProducer{}, logger)
		handler, err := NewHTTPHandler(NewCompanyHandler(service, logger), []string{"*"}, logger)
		require.NoError(t, err)

		payload := `{"name":"` + strings.Repeat("x", maxBodyBytes) + `"}`
		req := httptest.NewRequest(http.MethodPost, "/api/companies", strings.NewReader(payload))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})
}

func TestCompanyHandler_GetUpdateDelete(t *testing.T) {
	srv := newServiceServer(t)

	_, data := do(t, srv, http.MethodPost, "/api/companies",
		strings.Replace(techCorpJSON, "}", `,"logoUrl":"https://example.com/logo.png"}`, 1))
	created := decodeCompany(t, data)
	path := "/api/companies/" + created.ID

	t.Run("get", func(t *testing.T) {
		resp, data := do(t, srv, http.MethodGet, path, "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, created.ID, decodeCompany(t, data).ID)
	})

	t.Run("get unknown", func(t *testing.T) {
		resp, data := do(t, srv, http.MethodGet, "/api/companies/nonexistent-id", "")
		require.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "Company not found", decodeError(t, data).Message)
	})

	t.Run("partial update", func(t *testing.T) {
		resp, data := do(t, srv, http.MethodPut, path, `{"employees":1300,"logoUrl":""}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		updated := decodeCompany(t, data)
		assert.Equal(t, 1300, updated.Employees)
		assert.Equal(t, created.Name, updated.Name)
		assert.Nil(t, updated.LogoURL)
		assert.True(t, created.CreatedAt.Equal(updated.CreatedAt))
	})

	t.Run("invalid update", func(t *testing.T) {
		resp, data := do(t, srv, http.MethodPut, path, `{"name":"","employees":-1}`)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Len(t, decodeError(t, data).Errors, 2)
	})

	t.Run("update unknown", func(t *testing.T) {
		resp, _ := do(t, srv, http.MethodPut, "/api/companies/nonexistent-id", `{"employees":5}`)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("delete", func(t *testing.T) {
		resp, data := do(t, srv, http.MethodDelete, path, "")
		require.Equal(t, http.StatusNoContent, resp.StatusCode)
		assert.Empty(t, data)

		resp, _ = do(t, srv, http.MethodDelete, path, "")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)

		resp, _ = do(t, srv, http.MethodGet, path, "")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestCompanyHandler_ETag(t *testing.T) {
	srv := newServiceServer(t)
	do(t, srv, http.MethodPost, "/api/companies", techCorpJSON)

	resp, data := do(t, srv, http.MethodGet, "/api/companies", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	tag := resp.Header.Get("ETag")
	require.NotEmpty(t, tag)
	assert.Equal(t, etag(data), tag)

	resp, data = do(t, srv, http.MethodGet, "/api/companies", "", "If-None-Match", tag)
	assert.Equal(t, http.StatusNotModified, resp.StatusCode)
	assert.Empty(t, data)

	do(t, srv, http.MethodPost, "/api/companies", medHealthJSON)
	resp, _ = do(t, srv, http.MethodGet, "/api/companies", "", "If-None-Match", tag)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEqual(t, tag, resp.Header.Get("ETag"))
}

func TestCompanyHandler_StoreErrors(t *testing.T) {
	core, recorded := observer.New(zap.ErrorLevel)
	logger := zap.New(core)
	srv := newTestServer(t, &failingController{err: fmt.Errorf("failed to list companies: %w", errors.New("connection reset"))}, logger)

	tests := []struct {
		method  string
		path    string
		body    string
		message string
	}{
		{http.MethodGet, "/api/companies", "", "Failed to fetch companies"},
		{http.MethodGet, "/api/companies/abc", "", "Failed to fetch company"},
		{http.MethodPost, "/api/companies", techCorpJSON, "Failed to create company"},
		{http.MethodPut, "/api/companies/abc", `{"employees":3}`, "Failed to update company"},
		{http.MethodDelete, "/api/companies/abc", "", "Failed to delete company"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			resp, data := do(t, srv, tt.method, tt.path, tt.body)
			require.Equal(t, http.StatusInternalServerError, resp.StatusCode)

			body := decodeError(t, data)
			assert.Equal(t, tt.message, body.Message)
			assert.NotContains(t, string(data), "connection reset")
		})
	}
	assert.Equal(t, len(tests), recorded.Len())
}

func TestCompanyHandler_HealthAndRouting(t *testing.T) {
	srv := newServiceServer(t)

	resp, data := do(t, srv, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(data))

	resp, data = do(t, srv, http.MethodGet, "/api/unknown", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Not Found", decodeError(t, data).Message)
}

func TestCompanyHandler_CORSPreflight(t *testing.T) {
	srv := newServiceServer(t)

	resp, _ := do(t, srv, http.MethodOptions, "/api/companies", "",
		"Origin", "http://localhost:3000",
		"Access-Control-Request-Method", http.MethodPost,
	)
	assert.Less(t, resp.StatusCode, 300)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestMapServiceError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want codes.Code
	}{
		{"not found", e.ErrNotFound, codes.NotFound},
		{"wrapped not found", fmt.Errorf("lookup: %w", e.ErrNotFound), codes.NotFound},
		{"validation", &e.ValidationError{Fields: []e.FieldError{{Field: "name", Message: "is required"}}}, codes.InvalidArgument},
		{"canceled", context.Canceled, codes.Canceled},
		{"deadline", context.DeadlineExceeded, codes.DeadlineExceeded},
		{"store failure", errors.New("boom"), codes.Internal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, status.Code(mapServiceError(tt.err)))
		})
	}
}

func TestETagMatches(t *testing.T) {
	tag := `"00000000000000ff"`
	assert.False(t, etagMatches("", tag))
	assert.True(t, etagMatches(tag, tag))
	assert.True(t, etagMatches(`"other", `+tag, tag))
	assert.True(t, etagMatches(`W/`+tag, tag))
	assert.True(t, etagMatches("*", tag))
	assert.False(t, etagMatches(`"other"`, tag))
}
