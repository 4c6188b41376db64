// Package controller implements the core business logic (service layer)
// for managing Company entities, validating payloads, orchestrating
// repository operations and sending relevant events.
package controller

import (
	"context"
	"errors"
	"fmt"

	e "github.com/gartstein/companydir/internal/company/errors"
	"github.com/gartstein/companydir/internal/company/events"
	"github.com/gartstein/companydir/internal/company/filter"
	"github.com/gartstein/companydir/internal/company/models"
	"github.com/gartstein/companydir/internal/company/validation"
	"go.uber.org/zap"
)

type EventProducer interface {
	Produce(eventType events.EventType, company *models.Company)
}

// Repository defines the storage interface for Company objects. Every
// backend must produce the same observable filtering semantics.
type Repository interface {
	// CreateCompany assigns a fresh id and timestamps and stores the record.
	CreateCompany(ctx context.Context, in *models.CompanyInput) (*models.Company, error)
	// GetCompany returns e.ErrNotFound when id is unknown.
	GetCompany(ctx context.Context, id string) (*models.Company, error)
	// UpdateCompany merges the provided fields. It returns e.ErrNotFound
	// when id is unknown and never creates a record.
	UpdateCompany(ctx context.Context, id string, update *models.CompanyUpdate) (*models.Company, error)
	// DeleteCompany reports whether a record was actually removed.
	DeleteCompany(ctx context.Context, id string) (bool, error)
	// ListCompanies returns the records matching spec in insertion order.
	ListCompanies(ctx context.Context, spec filter.Spec) ([]*models.Company, error)
	Close() error
}

// CompanyService provides methods to manage companies via repository
// operations and event production.
type CompanyService struct {
	repo      Repository
	producer  EventProducer
	validator *validation.Validator
	logger    *zap.Logger
}

// NewCompanyService constructs a CompanyService with a repository,
// an event producer, and a logger.
func NewCompanyService(repo Repository, producer EventProducer, logger *zap.Logger) *CompanyService {
	return &CompanyService{
		repo:      repo,
		producer:  producer,
		validator: validation.New(),
		logger:    logger.Named("company_service"),
	}
}

// CreateCompany adds a new Company after validating input data and
// triggers an event.
func (s *CompanyService) CreateCompany(ctx context.Context, in *models.CompanyInput) (*models.Company, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: company data required", e.ErrInvalidInput)
	}
	if err := s.validator.ValidateCreate(in); err != nil {
		return nil, err
	}

	company, err := s.repo.CreateCompany(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("failed to create company: %w", err)
	}
	s.producer.Produce(events.CompanyCreated, company)
	return company, nil
}

// GetCompany retrieves a Company by ID, returning an error if not found.
func (s *CompanyService) GetCompany(ctx context.Context, id string) (*models.Company, error) {
	company, err := s.repo.GetCompany(ctx, id)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			s.logger.Debug("Company not found", zap.String("company_id", id))
			return nil, err
		}
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	return company, nil
}

// UpdateCompany merges the provided fields into an existing Company and
// returns the updated version.
func (s *CompanyService) UpdateCompany(ctx context.Context, id string, update *models.CompanyUpdate) (*models.Company, error) {
	if update == nil {
		update = &models.CompanyUpdate{}
	}
	if err := s.validator.ValidateUpdate(update); err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateCompany(ctx, id, update)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			s.logger.Debug("Company not found for update", zap.String("company_id", id))
			return nil, err
		}
		return nil, fmt.Errorf("failed to update company: %w", err)
	}
	s.producer.Produce(events.CompanyUpdated, updated)
	return updated, nil
}

// DeleteCompany removes a Company by ID and fires a deletion event.
func (s *CompanyService) DeleteCompany(ctx context.Context, id string) error {
	company, err := s.repo.GetCompany(ctx, id)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to get company for deletion: %w", err)
	}

	deleted, err := s.repo.DeleteCompany(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete company: %w", err)
	}
	if !deleted {
		// Removed concurrently between the lookup and the delete.
		return e.ErrNotFound
	}

	s.producer.Produce(events.CompanyDeleted, company)
	return nil
}

// ListCompanies returns the companies matching spec.
func (s *CompanyService) ListCompanies(ctx context.Context, spec filter.Spec) ([]*models.Company, error) {
	companies, err := s.repo.ListCompanies(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	return companies, nil
}
