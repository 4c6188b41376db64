// Package models defines the core domain models for the Company entity.
// It includes definitions for Company, the create payload CompanyInput and
// the partial update payload CompanyUpdate.
package models

import (
	"time"
)

// Company defines the domain model for a company entity.
type Company struct {
	// ID is the store-assigned identifier, always serialized as a plain string.
	ID string `json:"id"`
	// Name is the company’s name.
	Name string `json:"name"`
	// Industry is the sector the company operates in, e.g. "Technology".
	Industry string `json:"industry"`
	// Country is where the company is located.
	Country string `json:"country"`
	// City is where the company is located.
	City string `json:"city"`
	// Employees is the number of employees in the company.
	Employees int `json:"employees"`
	// Description provides details about the company.
	Description *string `json:"description,omitempty"`
	// LogoURL points at the company logo.
	LogoURL *string `json:"logoUrl,omitempty"`
	// CreatedAt records the timestamp when the company was created.
	CreatedAt time.Time `json:"createdAt"`
	// UpdatedAt records the timestamp when the company was last updated.
	UpdatedAt time.Time `json:"updatedAt"`
}

// CompanyInput is the validated create payload: every field except the id
// and the timestamps.
type CompanyInput struct {
	Name        string  `json:"name" validate:"required"`
	Industry    string  `json:"industry" validate:"required"`
	Country     string  `json:"country" validate:"required"`
	City        string  `json:"city" validate:"required"`
	Employees   int     `json:"employees" validate:"gte=1"`
	Description *string `json:"description,omitempty"`
	LogoURL     *string `json:"logoUrl,omitempty" validate:"omitempty,url"`
}

// CompanyUpdate represents the fields that can be updated for a Company.
// Pointer types are used to allow partial updates.
type CompanyUpdate struct {
	Name        *string `json:"name,omitempty"`
	Industry    *string `json:"industry,omitempty"`
	Country     *string `json:"country,omitempty"`
	City        *string `json:"city,omitempty"`
	Employees   *int    `json:"employees,omitempty"`
	Description *string `json:"description,omitempty"`
	LogoURL     *string `json:"logoUrl,omitempty"`
}

// Timestamp returns the current time at the precision every store can
// persist exactly.
func Timestamp() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// NewCompany builds a stored record from a create payload. Empty optional
// strings are stored as absent.
func NewCompany(id string, in *CompanyInput, now time.Time) *Company {
	return &Company{
		ID:          id,
		Name:        in.Name,
		Industry:    in.Industry,
		Country:     in.Country,
		City:        in.City,
		Employees:   in.Employees,
		Description: optional(in.Description),
		LogoURL:     optional(in.LogoURL),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Apply merges the provided fields of u into c, leaving the rest untouched,
// and stamps UpdatedAt. An empty description or logo URL clears the field.
func (c *Company) Apply(u *CompanyUpdate, now time.Time) {
	if u.Name != nil {
		c.Name = *u.Name
	}
	if u.Industry != nil {
		c.Industry = *u.Industry
	}
	if u.Country != nil {
		c.Country = *u.Country
	}
	if u.City != nil {
		c.City = *u.City
	}
	if u.Employees != nil {
		c.Employees = *u.Employees
	}
	if u.Description != nil {
		c.Description = optional(u.Description)
	}
	if u.LogoURL != nil {
		c.LogoURL = optional(u.LogoURL)
	}
	c.UpdatedAt = now
}

// Clone returns a deep copy of c.
func (c *Company) Clone() *Company {
	clone := *c
	if c.Description != nil {
		d := *c.Description
		clone.Description = &d
	}
	if c.LogoURL != nil {
		l := *c.LogoURL
		clone.LogoURL = &l
	}
	return &clone
}

// IsEmpty reports whether the update carries no fields.
func (u *CompanyUpdate) IsEmpty() bool {
	return u.Name == nil && u.Industry == nil && u.Country == nil && u.City == nil &&
		u.Employees == nil && u.Description == nil && u.LogoURL == nil
}

func optional(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	v := *s
	return &v
}
