// Package filter holds the company filter specification and the evaluator
// that decides whether a record satisfies it.
//
// A Spec can only be built through New or FromQuery. Both normalize the
// "match-all" UI placeholders and empty strings to an absent constraint, so
// the evaluator and the store-specific query builders never see them.
package filter

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/gartstein/companydir/internal/company/models"
)

const (
	// AllIndustries is the placeholder industry meaning "no industry constraint".
	AllIndustries = "All Industries"
	// AllLocations is the placeholder country meaning "no country constraint".
	AllLocations = "All Locations"
)

// Query parameter names accepted by FromQuery.
const (
	ParamSearch       = "search"
	ParamIndustry     = "industry"
	ParamCountry      = "country"
	ParamMinEmployees = "minEmployees"
	ParamMaxEmployees = "maxEmployees"
)

// Spec is a set of optional constraints combined with logical AND.
// The zero value matches every company.
type Spec struct {
	search       *string
	industry     *string
	country      *string
	minEmployees *int
	maxEmployees *int
}

// Option sets one constraint on a Spec.
type Option func(*Spec)

// New builds a Spec from options. Option order does not matter.
func New(opts ...Option) Spec {
	var s Spec
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// WithSearch constrains name or description to contain text, case-insensitively.
func WithSearch(text string) Option {
	return func(s *Spec) {
		s.search = nonEmpty(text)
	}
}

// WithIndustry constrains industry to an exact value.
func WithIndustry(industry string) Option {
	return func(s *Spec) {
		if industry == AllIndustries {
			s.industry = nil
			return
		}
		s.industry = nonEmpty(industry)
	}
}

// WithCountry constrains country to an exact value.
func WithCountry(country string) Option {
	return func(s *Spec) {
		if country == AllLocations {
			s.country = nil
			return
		}
		s.country = nonEmpty(country)
	}
}

// WithMinEmployees sets an inclusive lower bound on the employee count.
func WithMinEmployees(n int) Option {
	return func(s *Spec) {
		s.minEmployees = &n
	}
}

// WithMaxEmployees sets an inclusive upper bound on the employee count.
func WithMaxEmployees(n int) Option {
	return func(s *Spec) {
		s.maxEmployees = &n
	}
}

// FromQuery parses listing query parameters. Numeric bounds that are not
// base-10 integers are ignored, as if they were not supplied.
func FromQuery(values url.Values) Spec {
	opts := []Option{
		WithSearch(values.Get(ParamSearch)),
		WithIndustry(values.Get(ParamIndustry)),
		WithCountry(values.Get(ParamCountry)),
	}
	if n, ok := parseInt(values.Get(ParamMinEmployees)); ok {
		opts = append(opts, WithMinEmployees(n))
	}
	if n, ok := parseInt(values.Get(ParamMaxEmployees)); ok {
		opts = append(opts, WithMaxEmployees(n))
	}
	return New(opts...)
}

// Query renders the Spec back into query parameters understood by FromQuery.
func (s Spec) Query() url.Values {
	values := url.Values{}
	if s.search != nil {
		values.Set(ParamSearch, *s.search)
	}
	if s.industry != nil {
		values.Set(ParamIndustry, *s.industry)
	}
	if s.country != nil {
		values.Set(ParamCountry, *s.country)
	}
	if s.minEmployees != nil {
		values.Set(ParamMinEmployees, strconv.Itoa(*s.minEmployees))
	}
	if s.maxEmployees != nil {
		values.Set(ParamMaxEmployees, strconv.Itoa(*s.maxEmployees))
	}
	return values
}

// Search returns the search text, if constrained.
func (s Spec) Search() (string, bool) { return get(s.search) }

// Industry returns the required industry, if constrained.
func (s Spec) Industry() (string, bool) { return get(s.industry) }

// Country returns the required country, if constrained.
func (s Spec) Country() (string, bool) { return get(s.country) }

// MinEmployees returns the inclusive lower bound, if constrained.
func (s Spec) MinEmployees() (int, bool) { return get(s.minEmployees) }

// MaxEmployees returns the inclusive upper bound, if constrained.
func (s Spec) MaxEmployees() (int, bool) { return get(s.maxEmployees) }

// IsEmpty reports whether the Spec has no active constraint.
func (s Spec) IsEmpty() bool {
	return s.search == nil && s.industry == nil && s.country == nil &&
		s.minEmployees == nil && s.maxEmployees == nil
}

// Match reports whether c satisfies every active constraint.
func (s Spec) Match(c *models.Company) bool {
	if s.search != nil {
		needle := strings.ToLower(*s.search)
		inName := strings.Contains(strings.ToLower(c.Name), needle)
		inDescription := c.Description != nil && strings.Contains(strings.ToLower(*c.Description), needle)
		if !inName && !inDescription {
			return false
		}
	}
	if s.industry != nil && c.Industry != *s.industry {
		return false
	}
	if s.country != nil && c.Country != *s.country {
		return false
	}
	if s.minEmployees != nil && c.Employees < *s.minEmployees {
		return false
	}
	if s.maxEmployees != nil && c.Employees > *s.maxEmployees {
		return false
	}
	return true
}

// Apply returns the companies matching s, preserving input order.
func (s Spec) Apply(companies []*models.Company) []*models.Company {
	out := make([]*models.Company, 0, len(companies))
	for _, c := range companies {
		if s.Match(c) {
			out = append(out, c)
		}
	}
	return out
}

func nonEmpty(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func parseInt(raw string) (int, bool) {
	if raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}

func get[T any](p *T) (T, bool) {
	if p == nil {
		var zero T
		return zero, false
	}
	return *p, true
}
