// Package seed fills an empty directory with demo companies.
package seed

import (
	"context"
	"fmt"

	"github.com/gartstein/companydir/internal/company/filter"
	"github.com/gartstein/companydir/internal/company/models"
	"github.com/gartstein/companydir/internal/pkg/utils"
	"go.uber.org/zap"
)

// Service is the subset of the company service seeding needs.
type Service interface {
	CreateCompany(ctx context.Context, in *models.CompanyInput) (*models.Company, error)
	ListCompanies(ctx context.Context, spec filter.Spec) ([]*models.Company, error)
}

// Companies returns the demo data set.
func Companies() []*models.CompanyInput {
	return []*models.CompanyInput{
		{
			Name:        "TechCorp Inc",
			Industry:    "Technology",
			Country:     "United States",
			City:        "San Francisco",
			Employees:   1250,
			Description: utils.Ptr("Leading software development company specializing in cloud solutions and enterprise applications."),
		},
		{
			Name:        "MedHealth Solutions",
			Industry:    "Healthcare",
			Country:     "United States",
			City:        "Boston",
			Employees:   850,
			Description: utils.Ptr("Innovative healthcare technology company providing digital solutions for hospitals and clinics worldwide."),
		},
		{
			Name:        "FinanceFlow",
			Industry:    "Finance",
			Country:     "United States",
			City:        "New York",
			Employees:   2100,
			Description: utils.Ptr("Premier financial services company offering innovative investment and wealth management solutions."),
		},
		{
			Name:        "ManufacturePro",
			Industry:    "Manufacturing",
			Country:     "United States",
			City:        "Detroit",
			Employees:   3400,
			Description: utils.Ptr("Advanced manufacturing solutions provider specializing in automotive and aerospace components."),
		},
	}
}

// Seed inserts the demo companies when the store is empty and returns how
// many were created. A store that already holds data is left untouched.
func Seed(ctx context.Context, svc Service, logger *zap.Logger) (int, error) {
	logger = logger.Named("seed")

	existing, err := svc.ListCompanies(ctx, filter.New())
	if err != nil {
		return 0, fmt.Errorf("failed to inspect store: %w", err)
	}
	if len(existing) > 0 {
		logger.Debug("Store already populated, skipping seed", zap.Int("companies", len(existing)))
		return 0, nil
	}

	created := 0
	for _, in := range Companies() {
		if _, err := svc.CreateCompany(ctx, in); err != nil {
			return created, fmt.Errorf("failed to seed %q: %w", in.Name, err)
		}
		created++
	}
	logger.Info("Seeded sample companies", zap.Int("companies", created))
	return created, nil
}
