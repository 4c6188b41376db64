// Package storetest is a conformance suite every company Repository
// implementation must pass, so filtering behaves identically regardless of
// the backing store.
package storetest

import (
	"context"
	"strings"
	"testing"
	"time"

	e "github.com/gartstein/companydir/internal/company/errors"
	"github.com/gartstein/companydir/internal/company/filter"
	"github.com/gartstein/companydir/internal/company/models"
	"github.com/gartstein/companydir/internal/pkg/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

// Repository mirrors controller.Repository so the suite does not depend on
// the service layer.
type Repository interface {
	CreateCompany(ctx context.Context, in *models.CompanyInput) (*models.Company, error)
	GetCompany(ctx context.Context, id string) (*models.Company, error)
	UpdateCompany(ctx context.Context, id string, update *models.CompanyUpdate) (*models.Company, error)
	DeleteCompany(ctx context.Context, id string) (bool, error)
	ListCompanies(ctx context.Context, spec filter.Spec) ([]*models.Company, error)
	Close() error
}

// Factory returns an empty repository for a single test.
type Factory func(t *testing.T) Repository

// Run executes the conformance suite against repositories built by factory.
func Run(t *testing.T, factory Factory) {
	suite.Run(t, &Suite{factory: factory})
}

// Suite holds the conformance tests.
type Suite struct {
	suite.Suite
	factory Factory
	repo    Repository
	ctx     context.Context
}

func (s *Suite) SetupTest() {
	s.ctx = context.Background()
	s.repo = s.factory(s.T())
}

func (s *Suite) TearDownTest() {
	s.NoError(s.repo.Close())
}

// TechCorp is the first scenario company.
func TechCorp() *models.CompanyInput {
	return &models.CompanyInput{
		Name:        "TechCorp Inc",
		Industry:    "Technology",
		Country:     "United States",
		City:        "San Francisco",
		Employees:   1250,
		Description: utils.Ptr("Leading software development company specializing in cloud solutions."),
	}
}

// MedHealth is the second scenario company.
func MedHealth() *models.CompanyInput {
	return &models.CompanyInput{
		Name:        "MedHealth Solutions",
		Industry:    "Healthcare",
		Country:     "United States",
		City:        "Boston",
		Employees:   850,
		Description: utils.Ptr("Innovative technology provider for hospitals and clinics."),
	}
}

func (s *Suite) create(in *models.CompanyInput) *models.Company {
	c, err := s.repo.CreateCompany(s.ctx, in)
	s.Require().NoError(err)
	s.Require().NotNil(c)
	return c
}

func (s *Suite) list(spec filter.Spec) []string {
	companies, err := s.repo.ListCompanies(s.ctx, spec)
	s.Require().NoError(err)
	names := make([]string, 0, len(companies))
	for _, c := range companies {
		names = append(names, c.Name)
	}
	return names
}

func (s *Suite) assertSameCompany(expected, actual *models.Company) {
	s.Equal(expected.ID, actual.ID)
	s.Equal(expected.Name, actual.Name)
	s.Equal(expected.Industry, actual.Industry)
	s.Equal(expected.Country, actual.Country)
	s.Equal(expected.City, actual.City)
	s.Equal(expected.Employees, actual.Employees)
	s.Equal(expected.Description, actual.Description)
	s.Equal(expected.LogoURL, actual.LogoURL)
	s.True(expected.CreatedAt.Equal(actual.CreatedAt), "createdAt %v != %v", expected.CreatedAt, actual.CreatedAt)
	s.True(expected.UpdatedAt.Equal(actual.UpdatedAt), "updatedAt %v != %v", expected.UpdatedAt, actual.UpdatedAt)
}

func (s *Suite) TestCreateReturnsPayloadWithUniqueID() {
	before := time.Now().Add(-time.Second)
	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		in := TechCorp()
		in.LogoURL = utils.Ptr("https://example.com/logo.png")
		c := s.create(in)

		s.NotEmpty(c.ID)
		s.False(seen[c.ID], "duplicate id %s", c.ID)
		seen[c.ID] = true

		s.Equal(in.Name, c.Name)
		s.Equal(in.Industry, c.Industry)
		s.Equal(in.Country, c.Country)
		s.Equal(in.City, c.City)
		s.Equal(in.Employees, c.Employees)
		s.Equal(*in.Description, *c.Description)
		s.Equal(*in.LogoURL, *c.LogoURL)
		s.True(c.CreatedAt.After(before))
	}
}

func (s *Suite) TestCreateStoresEmptyOptionalsAsAbsent() {
	in := MedHealth()
	in.Description = utils.Ptr("")
	in.LogoURL = utils.Ptr("")
	created := s.create(in)
	s.Nil(created.Description)
	s.Nil(created.LogoURL)

	fetched, err := s.repo.GetCompany(s.ctx, created.ID)
	s.Require().NoError(err)
	s.Nil(fetched.Description)
	s.Nil(fetched.LogoURL)
}

func (s *Suite) TestCreateDoesNotRetainPayload() {
	in := TechCorp()
	created := s.create(in)
	in.Name = "Mutated"
	*in.Description = "Mutated"

	fetched, err := s.repo.GetCompany(s.ctx, created.ID)
	s.Require().NoError(err)
	s.Equal("TechCorp Inc", fetched.Name)
	s.NotEqual("Mutated", *fetched.Description)
}

func (s *Suite) TestGetReturnsStoredRecord() {
	created := s.create(TechCorp())
	fetched, err := s.repo.GetCompany(s.ctx, created.ID)
	s.Require().NoError(err)
	s.assertSameCompany(created, fetched)
}

func (s *Suite) TestUnknownIDs() {
	s.create(TechCorp())
	for _, id := range []string{"nonexistent-id", uuid.NewString(), "64b7f0c2e1a2b3c4d5e6f708", ""} {
		_, err := s.repo.GetCompany(s.ctx, id)
		s.ErrorIs(err, e.ErrNotFound, "get %q", id)

		_, err = s.repo.UpdateCompany(s.ctx, id, &models.CompanyUpdate{Employees: utils.Ptr(10)})
		s.ErrorIs(err, e.ErrNotFound, "update %q", id)

		deleted, err := s.repo.DeleteCompany(s.ctx, id)
		s.NoError(err, "delete %q", id)
		s.False(deleted, "delete %q", id)
	}
	s.Equal([]string{"TechCorp Inc"}, s.list(filter.New()))
}

// TestIDLookupIsExact checks that only the id a store issued reaches the
// record, not other spellings the id format tolerates.
func (s *Suite) TestIDLookupIsExact() {
	created := s.create(TechCorp())

	variants := []string{"{" + created.ID + "}", "urn:uuid:" + created.ID, " " + created.ID}
	if upper := strings.ToUpper(created.ID); upper != created.ID {
		variants = append(variants, upper)
	}
	for _, id := range variants {
		_, err := s.repo.GetCompany(s.ctx, id)
		s.ErrorIs(err, e.ErrNotFound, "get %q", id)

		_, err = s.repo.UpdateCompany(s.ctx, id, &models.CompanyUpdate{Employees: utils.Ptr(10)})
		s.ErrorIs(err, e.ErrNotFound, "update %q", id)

		deleted, err := s.repo.DeleteCompany(s.ctx, id)
		s.NoError(err, "delete %q", id)
		s.False(deleted, "delete %q", id)
	}

	fetched, err := s.repo.GetCompany(s.ctx, created.ID)
	s.Require().NoError(err)
	s.assertSameCompany(created, fetched)
}

func (s *Suite) TestSearchFoldsNonASCII() {
	s.create(&models.CompanyInput{Name: "Écoles Müller", Industry: "Education", Country: "France", City: "Lyon", Employees: 300})
	s.create(&models.CompanyInput{Name: "Nordlicht", Industry: "Energy", Country: "Germany", City: "Kiel", Employees: 40,
		Description: utils.Ptr("WINDPARKS VOR DER KÜSTE")})
	s.create(TechCorp())

	s.Equal([]string{"Écoles Müller"}, s.list(filter.New(filter.WithSearch("écoles MÜLLER"))))
	s.Equal([]string{"Écoles Müller"}, s.list(filter.New(filter.WithSearch("ÉCOLES"))))
	s.Equal([]string{"Nordlicht"}, s.list(filter.New(filter.WithSearch("küste"))))
	s.Equal([]string{}, s.list(filter.New(filter.WithSearch("kuste"))))
}

func (s *Suite) TestUpdateMergesProvidedFields() {
	created := s.create(TechCorp())
	time.Sleep(5 * time.Millisecond)

	updated, err := s.repo.UpdateCompany(s.ctx, created.ID, &models.CompanyUpdate{
		Employees: utils.Ptr(10),
		City:      utils.Ptr("Austin"),
		LogoURL:   utils.Ptr("https://example.com/new.png"),
	})
	s.Require().NoError(err)
	s.Equal(created.ID, updated.ID)
	s.Equal(10, updated.Employees)
	s.Equal("Austin", updated.City)
	s.Equal("https://example.com/new.png", *updated.LogoURL)
	s.Equal(created.Name, updated.Name)
	s.Equal(created.Description, updated.Description)
	s.True(created.CreatedAt.Equal(updated.CreatedAt))
	s.True(updated.UpdatedAt.After(created.UpdatedAt))

	fetched, err := s.repo.GetCompany(s.ctx, created.ID)
	s.Require().NoError(err)
	s.assertSameCompany(updated, fetched)
}

func (s *Suite) TestUpdateClearsOptionalFields() {
	created := s.create(TechCorp())
	updated, err := s.repo.UpdateCompany(s.ctx, created.ID, &models.CompanyUpdate{Description: utils.Ptr("")})
	s.Require().NoError(err)
	s.Nil(updated.Description)

	fetched, err := s.repo.GetCompany(s.ctx, created.ID)
	s.Require().NoError(err)
	s.Nil(fetched.Description)
}

func (s *Suite) TestEmptyUpdateLeavesFieldsUnchanged() {
	created := s.create(TechCorp())
	updated, err := s.repo.UpdateCompany(s.ctx, created.ID, &models.CompanyUpdate{})
	s.Require().NoError(err)

	expected := created.Clone()
	expected.UpdatedAt = updated.UpdatedAt
	s.assertSameCompany(expected, updated)
	s.False(updated.UpdatedAt.Before(created.UpdatedAt))
}

func (s *Suite) TestDeleteIsIdempotent() {
	created := s.create(TechCorp())
	other := s.create(MedHealth())

	deleted, err := s.repo.DeleteCompany(s.ctx, created.ID)
	s.Require().NoError(err)
	s.True(deleted)

	deleted, err = s.repo.DeleteCompany(s.ctx, created.ID)
	s.Require().NoError(err)
	s.False(deleted)

	_, err = s.repo.GetCompany(s.ctx, created.ID)
	s.ErrorIs(err, e.ErrNotFound)

	_, err = s.repo.GetCompany(s.ctx, other.ID)
	s.NoError(err)
}

func (s *Suite) TestListScenario() {
	s.create(TechCorp())
	s.create(MedHealth())

	s.Equal([]string{"TechCorp Inc"}, s.list(filter.New(filter.WithMinEmployees(1000))))
	s.Equal([]string{"MedHealth Solutions"}, s.list(filter.New(filter.WithSearch("health"))))
	s.Equal([]string{"TechCorp Inc", "MedHealth Solutions"}, s.list(filter.New(filter.WithIndustry(filter.AllIndustries))))
}

func (s *Suite) TestListInsertionOrder() {
	names := []string{"Zeta", "Alpha", "Mu", "Beta"}
	for _, name := range names {
		in := TechCorp()
		in.Name = name
		s.create(in)
	}
	s.Equal(names, s.list(filter.New()))
}

func (s *Suite) TestListEmptyStore() {
	companies, err := s.repo.ListCompanies(s.ctx, filter.New())
	s.Require().NoError(err)
	s.NotNil(companies)
	s.Empty(companies)
}

func (s *Suite) TestFilterSemantics() {
	fixtures := []*models.CompanyInput{
		TechCorp(),
		MedHealth(),
		{Name: "FinanceFlow", Industry: "Finance", Country: "Canada", City: "Toronto", Employees: 2100},
		{Name: "100% Organic_Foods (C++)", Industry: "Retail", Country: "India", City: "Pune", Employees: 1000,
			Description: utils.Ptr("Farm [fresh] produce.")},
	}
	for _, in := range fixtures {
		s.create(in)
	}

	tests := []struct {
		name string
		spec filter.Spec
		want []string
	}{
		{"no constraints", filter.New(), []string{"TechCorp Inc", "MedHealth Solutions", "FinanceFlow", "100% Organic_Foods (C++)"}},
		{"search matches description", filter.New(filter.WithSearch("CLOUD")), []string{"TechCorp Inc"}},
		{"search matches name or description", filter.New(filter.WithSearch("tech")), []string{"TechCorp Inc", "MedHealth Solutions"}},
		{"search on record without description", filter.New(filter.WithSearch("flow")), []string{"FinanceFlow"}},
		{"search percent is literal", filter.New(filter.WithSearch("100%")), []string{"100% Organic_Foods (C++)"}},
		{"search underscore is literal", filter.New(filter.WithSearch("_")), []string{"100% Organic_Foods (C++)"}},
		{"search regex metacharacters are literal", filter.New(filter.WithSearch("(c++)")), []string{"100% Organic_Foods (C++)"}},
		{"search brackets are literal", filter.New(filter.WithSearch("[fresh]")), []string{"100% Organic_Foods (C++)"}},
		{"industry exact", filter.New(filter.WithIndustry("Finance")), []string{"FinanceFlow"}},
		{"industry case-sensitive", filter.New(filter.WithIndustry("finance")), []string{}},
		{"country exact", filter.New(filter.WithCountry("United States")), []string{"TechCorp Inc", "MedHealth Solutions"}},
		{"country sentinel", filter.New(filter.WithCountry(filter.AllLocations)), []string{"TechCorp Inc", "MedHealth Solutions", "FinanceFlow", "100% Organic_Foods (C++)"}},
		{"min inclusive", filter.New(filter.WithMinEmployees(1250)), []string{"TechCorp Inc", "FinanceFlow"}},
		{"max inclusive", filter.New(filter.WithMaxEmployees(1000)), []string{"MedHealth Solutions", "100% Organic_Foods (C++)"}},
		{"range", filter.New(filter.WithMinEmployees(900), filter.WithMaxEmployees(1300)), []string{"TechCorp Inc", "100% Organic_Foods (C++)"}},
		{"conjunction", filter.New(filter.WithIndustry("Technology"), filter.WithMinEmployees(1000)), []string{"TechCorp Inc"}},
		{"conjunction reordered", filter.New(filter.WithMinEmployees(1000), filter.WithIndustry("Technology")), []string{"TechCorp Inc"}},
		{"empty intersection", filter.New(filter.WithCountry("Canada"), filter.WithMaxEmployees(10)), []string{}},
		{"all constraints", filter.New(
			filter.WithSearch("solutions"),
			filter.WithIndustry("Healthcare"),
			filter.WithCountry("United States"),
			filter.WithMinEmployees(800),
			filter.WithMaxEmployees(900),
		), []string{"MedHealth Solutions"}},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.Equal(tt.want, s.list(tt.spec))
		})
	}
}
