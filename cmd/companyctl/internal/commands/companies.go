package commands

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/gartstein/companydir/internal/company/client"
	"github.com/gartstein/companydir/internal/company/filter"
	"github.com/gartstein/companydir/internal/company/models"
	"github.com/gartstein/companydir/internal/company/validation"
	"github.com/gartstein/companydir/internal/pkg/utils"
)

type ListCmd struct {
	Server       string `help:"Server URL" default:"http://localhost:5000" env:"COMPANY_SERVER"`
	Search       string `help:"Case-insensitive text to find in name or description"`
	Industry     string `help:"Exact industry"`
	Country      string `help:"Exact country"`
	MinEmployees int    `help:"Minimum employees (0 means no bound)" default:"0"`
	MaxEmployees int    `help:"Maximum employees (0 means no bound)" default:"0"`
	Page         int    `help:"Page number" default:"1"`
	PerPage      int    `help:"Companies per page" default:"12"`
	JSON         bool   `help:"Print JSON instead of a table"`
}

func (l *ListCmd) Run(ctx context.Context, _ *Globals) error {
	companies, err := client.New(l.Server).ListCompanies(ctx, l.spec())
	if err != nil {
		return fmt.Errorf("failed to list companies: %w", err)
	}

	page, window := client.PageOf(companies, l.Page, l.PerPage)
	if l.JSON {
		return printJSON(page)
	}

	printTable(page)
	fmt.Fprintf(stdout, "\nPage %d of %d (%d companies)\n", window.Page, window.TotalPages, len(companies))
	return nil
}

func (l *ListCmd) spec() filter.Spec {
	opts := []filter.Option{
		filter.WithSearch(l.Search),
		filter.WithIndustry(l.Industry),
		filter.WithCountry(l.Country),
	}
	if l.MinEmployees > 0 {
		opts = append(opts, filter.WithMinEmployees(l.MinEmployees))
	}
	if l.MaxEmployees > 0 {
		opts = append(opts, filter.WithMaxEmployees(l.MaxEmployees))
	}
	return filter.New(opts...)
}

type GetCmd struct {
	Server string `help:"Server URL" default:"http://localhost:5000" env:"COMPANY_SERVER"`
	ID     string `arg:"" help:"Company ID"`
	JSON   bool   `help:"Print JSON"`
}

func (g *GetCmd) Run(ctx context.Context, _ *Globals) error {
	company, err := client.New(g.Server).GetCompany(ctx, g.ID)
	if err != nil {
		return fmt.Errorf("failed to get company: %w", err)
	}
	if g.JSON {
		return printJSON(company)
	}
	printCompany(company)
	return nil
}

type CreateCmd struct {
	Server      string `help:"Server URL" default:"http://localhost:5000" env:"COMPANY_SERVER"`
	Name        string `help:"Company name" required:""`
	Industry    string `help:"Industry" required:""`
	Country     string `help:"Country" required:""`
	City        string `help:"City" required:""`
	Employees   int    `help:"Number of employees" required:""`
	Description string `help:"Free-form description"`
	LogoURL     string `help:"Logo URL" name:"logo-url"`
}

func (c *CreateCmd) Run(ctx context.Context, _ *Globals) error {
	in := &models.CompanyInput{
		Name:      c.Name,
		Industry:  c.Industry,
		Country:   c.Country,
		City:      c.City,
		Employees: c.Employees,
	}
	if c.Description != "" {
		in.Description = utils.Ptr(c.Description)
	}
	if c.LogoURL != "" {
		in.LogoURL = utils.Ptr(c.LogoURL)
	}

	created, err := client.New(c.Server).CreateCompany(ctx, in)
	if err != nil {
		return fmt.Errorf("failed to create company: %w", err)
	}
	printCompany(created)
	return nil
}

type UpdateCmd struct {
	Server string            `help:"Server URL" default:"http://localhost:5000" env:"COMPANY_SERVER"`
	ID     string            `arg:"" help:"Company ID"`
	Set    map[string]string `help:"Field to change as key=value, e.g. --set employees=1300. An empty value clears description or logoUrl." required:""`
}

func (u *UpdateCmd) Run(ctx context.Context, _ *Globals) error {
	update, err := parseUpdate(u.Set)
	if err != nil {
		return err
	}

	updated, err := client.New(u.Server).UpdateCompany(ctx, u.ID, update)
	if err != nil {
		return fmt.Errorf("failed to update company: %w", err)
	}
	printCompany(updated)
	return nil
}

// parseUpdate turns key=value pairs into a partial update. Keys use the
// JSON field names.
func parseUpdate(set map[string]string) (*models.CompanyUpdate, error) {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	update := &models.CompanyUpdate{}
	for _, key := range keys {
		value := set[key]
		switch key {
		case validation.FieldName:
			update.Name = utils.Ptr(value)
		case validation.FieldIndustry:
			update.Industry = utils.Ptr(value)
		case validation.FieldCountry:
			update.Country = utils.Ptr(value)
		case validation.FieldCity:
			update.City = utils.Ptr(value)
		case validation.FieldEmployees:
			n, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("employees must be an integer, got %q", value)
			}
			update.Employees = utils.Ptr(n)
		case validation.FieldDescription:
			update.Description = utils.Ptr(value)
		case validation.FieldLogoURL:
			update.LogoURL = utils.Ptr(value)
		default:
			return nil, fmt.Errorf("unknown field %q", key)
		}
	}
	return update, nil
}

type DeleteCmd struct {
	Server string `help:"Server URL" default:"http://localhost:5000" env:"COMPANY_SERVER"`
	ID     string `arg:"" help:"Company ID"`
}

func (d *DeleteCmd) Run(ctx context.Context, _ *Globals) error {
	if err := client.New(d.Server).DeleteCompany(ctx, d.ID); err != nil {
		return fmt.Errorf("failed to delete company: %w", err)
	}
	fmt.Fprintf(stdout, "Deleted %s\n", d.ID)
	return nil
}
