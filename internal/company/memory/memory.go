// Package memory provides an in-process company store. Data lives for the
// lifetime of the process only.
package memory

import (
	"context"
	"sync"
	"time"

	e "github.com/gartstein/companydir/internal/company/errors"
	"github.com/gartstein/companydir/internal/company/filter"
	"github.com/gartstein/companydir/internal/company/models"
	"github.com/google/uuid"
)

// Store keeps companies in a map keyed by a random UUID, plus the insertion
// order used for listing.
type Store struct {
	mu sync.RWMutex

	companies map[string]*models.Company
	order     []string
	now       func() time.Time
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		companies: make(map[string]*models.Company),
		now:       models.Timestamp,
	}
}

// CreateCompany stores a copy of the payload under a fresh id.
func (s *Store) CreateCompany(_ context.Context, in *models.CompanyInput) (*models.Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	for s.companies[id] != nil {
		id = uuid.NewString()
	}

	company := models.NewCompany(id, in, s.now())
	s.companies[id] = company
	s.order = append(s.order, id)
	return company.Clone(), nil
}

// GetCompany retrieves a company by id.
func (s *Store) GetCompany(_ context.Context, id string) (*models.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	company, ok := s.companies[id]
	if !ok {
		return nil, e.ErrNotFound
	}
	return company.Clone(), nil
}

// UpdateCompany merges the provided fields into an existing company.
func (s *Store) UpdateCompany(_ context.Context, id string, update *models.CompanyUpdate) (*models.Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	company, ok := s.companies[id]
	if !ok {
		return nil, e.ErrNotFound
	}
	company.Apply(update, s.now())
	return company.Clone(), nil
}

// DeleteCompany removes a company, reporting whether it existed.
func (s *Store) DeleteCompany(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.companies[id]; !ok {
		return false, nil
	}
	delete(s.companies, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true, nil
}

// ListCompanies returns the companies matching spec in insertion order.
func (s *Store) ListCompanies(_ context.Context, spec filter.Spec) ([]*models.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Company, 0, len(s.order))
	for _, id := range s.order {
		company := s.companies[id]
		if spec.Match(company) {
			out = append(out, company.Clone())
		}
	}
	return out, nil
}

// Close is a no-op; nothing outlives the process.
func (s *Store) Close() error {
	return nil
}
