package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gartstein/companydir/internal/company/controller"
	"github.com/gartstein/companydir/internal/company/events"
	"github.com/gartstein/companydir/internal/company/handlers"
	"github.com/gartstein/companydir/internal/company/memory"
	"github.com/gartstein/companydir/internal/company/models"
	"github.com/gartstein/companydir/internal/company/seed"
	"github.com/gartstein/companydir/internal/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
)

func setupServer(t *testing.T) (*httptest.Server, *bytes.Buffer) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	service := controller.NewCompanyService(memory.NewStore(), events.NopProducer{}, logger)
	_, err := seed.Seed(context.Background(), service, logger)
	require.NoError(t, err)

	handler, err := handlers.NewHTTPHandler(handlers.NewCompanyHandler(service, logger), []string{"*"}, logger)
	require.NoError(t, err)
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	out := &bytes.Buffer{}
	previous := stdout
	stdout = out
	t.Cleanup(func() { stdout = previous })
	return server, out
}

func TestListCmd(t *testing.T) {
	server, out := setupServer(t)
	globals := &Globals{}

	cmd := &ListCmd{Server: server.URL, MinEmployees: 2000, Page: 1, PerPage: 12}
	require.NoError(t, cmd.Run(context.Background(), globals))

	text := out.String()
	assert.Contains(t, text, "FinanceFlow")
	assert.Contains(t, text, "ManufacturePro")
	assert.NotContains(t, text, "TechCorp Inc")
	assert.Contains(t, text, "Page 1 of 1 (2 companies)")
}

func TestListCmdJSONPage(t *testing.T) {
	server, out := setupServer(t)

	cmd := &ListCmd{Server: server.URL, Page: 2, PerPage: 3, JSON: true}
	require.NoError(t, cmd.Run(context.Background(), &Globals{}))

	var page []*models.Company
	require.NoError(t, json.Unmarshal(out.Bytes(), &page))
	require.Len(t, page, 1)
	assert.Equal(t, "ManufacturePro", page[0].Name)
}

func TestCreateGetUpdateDelete(t *testing.T) {
	server, out := setupServer(t)
	ctx := context.Background()
	globals := &Globals{}

	create := &CreateCmd{
		Server:      server.URL,
		Name:        "GreenLeaf",
		Industry:    "Agriculture",
		Country:     "Canada",
		City:        "Toronto",
		Employees:   40,
		Description: "Vertical farms.",
	}
	require.NoError(t, create.Run(ctx, globals))
	assert.Contains(t, out.String(), "GreenLeaf")

	list := &ListCmd{Server: server.URL, Search: "vertical", Page: 1, PerPage: 12, JSON: true}
	out.Reset()
	require.NoError(t, list.Run(ctx, globals))
	var found []*models.Company
	require.NoError(t, json.Unmarshal(out.Bytes(), &found))
	require.Len(t, found, 1)
	id := found[0].ID

	update := &UpdateCmd{Server: server.URL, ID: id, Set: map[string]string{"employees": "55", "description": ""}}
	out.Reset()
	require.NoError(t, update.Run(ctx, globals))

	get := &GetCmd{Server: server.URL, ID: id, JSON: true}
	out.Reset()
	require.NoError(t, get.Run(ctx, globals))
	var got models.Company
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, 55, got.Employees)
	assert.Nil(t, got.Description)

	del := &DeleteCmd{Server: server.URL, ID: id}
	out.Reset()
	require.NoError(t, del.Run(ctx, globals))
	assert.Equal(t, "Deleted "+id+"\n", out.String())

	err := get.Run(ctx, globals)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404: Company not found")
}

func TestCreateCmdReportsValidation(t *testing.T) {
	server, _ := setupServer(t)

	cmd := &CreateCmd{Server: server.URL, Name: "X", Industry: "Technology", Country: "Canada", City: "Toronto", Employees: 0}
	err := cmd.Run(context.Background(), &Globals{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "employees")
}

func TestParseUpdate(t *testing.T) {
	update, err := parseUpdate(map[string]string{
		"name":        "Acme",
		"industry":    "Retail",
		"country":     "France",
		"city":        "Paris",
		"employees":   "12",
		"description": "",
		"logoUrl":     "https://example.com/a.png",
	})
	require.NoError(t, err)
	assert.Equal(t, &models.CompanyUpdate{
		Name:        utils.Ptr("Acme"),
		Industry:    utils.Ptr("Retail"),
		Country:     utils.Ptr("France"),
		City:        utils.Ptr("Paris"),
		Employees:   utils.Ptr(12),
		Description: utils.Ptr(""),
		LogoURL:     utils.Ptr("https://example.com/a.png"),
	}, update)

	_, err = parseUpdate(map[string]string{"employees": "many"})
	assert.EqualError(t, err, `employees must be an integer, got "many"`)

	_, err = parseUpdate(map[string]string{"ceo": "someone"})
	assert.EqualError(t, err, `unknown field "ceo"`)
}

func TestPrintEvent(t *testing.T) {
	out := &bytes.Buffer{}
	previous := stdout
	stdout = out
	defer func() { stdout = previous }()

	at := time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)
	require.NoError(t, printEvent(context.Background(), events.Event{
		Type:       events.CompanyDeleted,
		Company:    &models.Company{ID: "abc", Name: "Acme"},
		OccurredAt: at,
	}))
	require.NoError(t, printEvent(context.Background(), events.Event{Type: events.CompanyCreated, OccurredAt: at}))

	assert.Equal(t, "10:30:00\tcompany_deleted\tabc\tAcme\n10:30:00\tcompany_created\n", out.String())
}

func TestGlobalsLogger(t *testing.T) {
	logger := (&Globals{}).Logger()
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))

	debug := (&Globals{Debug: true}).Logger()
	assert.True(t, debug.Core().Enabled(zapcore.DebugLevel))
}
