// Package validation turns raw create/update payloads into typed models,
// reporting every failing field at once.
package validation

import (
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	e "github.com/gartstein/companydir/internal/company/errors"
	"github.com/gartstein/companydir/internal/company/models"
)

// Payload field names, in the order errors are reported.
const (
	FieldName        = "name"
	FieldIndustry    = "industry"
	FieldCountry     = "country"
	FieldCity        = "city"
	FieldEmployees   = "employees"
	FieldDescription = "description"
	FieldLogoURL     = "logoUrl"
	FieldBody        = "body"
)

var fieldOrder = map[string]int{
	FieldBody:        0,
	FieldName:        1,
	FieldIndustry:    2,
	FieldCountry:     3,
	FieldCity:        4,
	FieldEmployees:   5,
	FieldDescription: 6,
	FieldLogoURL:     7,
}

var requiredStrings = []string{FieldName, FieldIndustry, FieldCountry, FieldCity}

// Validator checks company payloads.
type Validator struct {
	validate *validator.Validate
}

// New constructs a Validator reporting fields by their JSON names.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{validate: v}
}

// ValidateCreate checks a typed create payload.
func (v *Validator) ValidateCreate(in *models.CompanyInput) error {
	verr := &e.ValidationError{}
	v.checkCreate(in, verr)
	return finish(verr)
}

// ValidateUpdate checks a typed partial update payload. Absent fields pass.
func (v *Validator) ValidateUpdate(u *models.CompanyUpdate) error {
	verr := &e.ValidationError{}
	v.checkUpdate(u, verr)
	return finish(verr)
}

// DecodeCreate parses and validates a JSON create payload.
func (v *Validator) DecodeCreate(data []byte) (*models.CompanyInput, error) {
	d, err := newDecoder(data)
	if err != nil {
		return nil, err
	}

	in := &models.CompanyInput{}
	for _, field := range requiredStrings {
		if s := d.str(field, false); s != nil {
			*createString(in, field) = *s
		} else if !d.present(field) {
			d.verr.Add(field, "is required")
		}
	}
	if n := d.integer(FieldEmployees, false); n != nil {
		in.Employees = *n
	} else if !d.present(FieldEmployees) {
		d.verr.Add(FieldEmployees, "is required")
	}
	in.Description = d.str(FieldDescription, true)
	in.LogoURL = d.str(FieldLogoURL, true)

	v.checkCreate(in, d.verr)
	if err := finish(d.verr); err != nil {
		return nil, err
	}
	return in, nil
}

// DecodeUpdate parses and validates a JSON partial update payload.
func (v *Validator) DecodeUpdate(data []byte) (*models.CompanyUpdate, error) {
	d, err := newDecoder(data)
	if err != nil {
		return nil, err
	}

	u := &models.CompanyUpdate{
		Name:        d.str(FieldName, false),
		Industry:    d.str(FieldIndustry, false),
		Country:     d.str(FieldCountry, false),
		City:        d.str(FieldCity, false),
		Employees:   d.integer(FieldEmployees, false),
		Description: d.str(FieldDescription, true),
		LogoURL:     d.str(FieldLogoURL, true),
	}

	v.checkUpdate(u, d.verr)
	if err := finish(d.verr); err != nil {
		return nil, err
	}
	return u, nil
}

func (v *Validator) checkCreate(in *models.CompanyInput, verr *e.ValidationError) {
	// An empty logo URL is allowed and means "no logo".
	checked := *in
	if checked.LogoURL != nil && *checked.LogoURL == "" {
		checked.LogoURL = nil
	}
	err := v.validate.Struct(&checked)
	if err == nil {
		return
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		verr.Add(FieldBody, err.Error())
		return
	}
	for _, fe := range fieldErrs {
		if !verr.Has(fe.Field()) {
			verr.Add(fe.Field(), message(fe))
		}
	}
}

func (v *Validator) checkUpdate(u *models.CompanyUpdate, verr *e.ValidationError) {
	for _, field := range requiredStrings {
		if s := *updateString(u, field); s != nil {
			v.checkVar(verr, field, *s, "required")
		}
	}
	if u.Employees != nil {
		v.checkVar(verr, FieldEmployees, *u.Employees, "gte=1")
	}
	if u.LogoURL != nil && *u.LogoURL != "" {
		v.checkVar(verr, FieldLogoURL, *u.LogoURL, "url")
	}
}

func (v *Validator) checkVar(verr *e.ValidationError, field string, value any, tag string) {
	if verr.Has(field) {
		return
	}
	err := v.validate.Var(value, tag)
	if err == nil {
		return
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		verr.Add(field, message(fieldErrs[0]))
		return
	}
	verr.Add(field, err.Error())
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gte", "min":
		if fe.Kind() == reflect.String {
			return "must not be empty"
		}
		return "must be at least " + fe.Param()
	case "url":
		return "must be a valid URL"
	default:
		return "failed " + fe.Tag() + " validation"
	}
}

func finish(verr *e.ValidationError) error {
	sort.SliceStable(verr.Fields, func(i, j int) bool {
		return fieldOrder[verr.Fields[i].Field] < fieldOrder[verr.Fields[j].Field]
	})
	return verr.OrNil()
}

func createString(in *models.CompanyInput, field string) *string {
	switch field {
	case FieldName:
		return &in.Name
	case FieldIndustry:
		return &in.Industry
	case FieldCountry:
		return &in.Country
	default:
		return &in.City
	}
}

func updateString(u *models.CompanyUpdate, field string) **string {
	switch field {
	case FieldName:
		return &u.Name
	case FieldIndustry:
		return &u.Industry
	case FieldCountry:
		return &u.Country
	default:
		return &u.City
	}
}

// decoder reads individual payload fields, recording type mismatches
// instead of stopping at the first one.
type decoder struct {
	raw  map[string]json.RawMessage
	verr *e.ValidationError
}

func newDecoder(data []byte) (*decoder, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		verr := &e.ValidationError{}
		verr.Add(FieldBody, "must be a JSON object")
		return nil, verr
	}
	return &decoder{raw: raw, verr: &e.ValidationError{}}, nil
}

func (d *decoder) present(field string) bool {
	_, ok := d.raw[field]
	return ok
}

func (d *decoder) isNull(field string) bool {
	return string(d.raw[field]) == "null"
}

func (d *decoder) str(field string, nullable bool) *string {
	if !d.present(field) {
		return nil
	}
	if d.isNull(field) {
		if !nullable {
			d.verr.Add(field, "must be a string")
		}
		return nil
	}
	var s string
	if err := json.Unmarshal(d.raw[field], &s); err != nil {
		d.verr.Add(field, "must be a string")
		return nil
	}
	return &s
}

func (d *decoder) integer(field string, nullable bool) *int {
	if !d.present(field) {
		return nil
	}
	if d.isNull(field) {
		if !nullable {
			d.verr.Add(field, "must be a number")
		}
		return nil
	}
	var f float64
	if err := json.Unmarshal(d.raw[field], &f); err != nil {
		d.verr.Add(field, "must be a number")
		return nil
	}
	if f != math.Trunc(f) || f > math.MaxInt32 || f < math.MinInt32 {
		d.verr.Add(field, "must be an integer")
		return nil
	}
	n := int(f)
	return &n
}
