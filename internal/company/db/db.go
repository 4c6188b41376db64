// Package db implements the company repository on top of a relational
// database through GORM. PostgreSQL is used in production and SQLite in
// tests.
package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	dbmodels "github.com/gartstein/companydir/internal/company/db/models"
	e "github.com/gartstein/companydir/internal/company/errors"
	"github.com/gartstein/companydir/internal/company/filter"
	"github.com/gartstein/companydir/internal/company/models"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type Repository struct {
	db *gorm.DB
}

type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN renders the PostgreSQL connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// NewRepository connects to PostgreSQL and migrates the schema.
func NewRepository(cfg *Config) (*Repository, error) {
	return Open(postgres.Open(cfg.DSN()))
}

// Open connects through any GORM dialector and migrates the schema.
func Open(dialector gorm.Dialector) (*Repository, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&dbmodels.Company{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) CreateCompany(ctx context.Context, in *models.CompanyInput) (*models.Company, error) {
	company := models.NewCompany(uuid.NewString(), in, models.Timestamp())
	row := toRow(company)
	if result := r.db.WithContext(ctx).Create(row); result.Error != nil {
		return nil, result.Error
	}
	return company, nil
}

func (r *Repository) GetCompany(ctx context.Context, id string) (*models.Company, error) {
	publicID, ok := parsePublicID(id)
	if !ok {
		return nil, e.ErrNotFound
	}

	var row dbmodels.Company
	result := r.db.WithContext(ctx).First(&row, "public_id = ?", publicID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, result.Error
	}
	return toModel(&row), nil
}

// UpdateCompany reads the row and writes the merged fields in one
// transaction, so the folded search columns follow the new name and
// description.
func (r *Repository) UpdateCompany(ctx context.Context, id string, update *models.CompanyUpdate) (*models.Company, error) {
	publicID, ok := parsePublicID(id)
	if !ok {
		return nil, e.ErrNotFound
	}

	var updated *models.Company
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row dbmodels.Company
		if err := tx.First(&row, "public_id = ?", publicID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return e.ErrNotFound
			}
			return err
		}

		now := models.Timestamp()
		company := toModel(&row)
		company.Apply(update, now)

		values := assignments(update, now)
		values["name_lower"], values["description_lower"] = foldSearchText(company)
		if err := tx.Model(&dbmodels.Company{}).Where("seq = ?", row.Seq).Updates(values).Error; err != nil {
			return err
		}
		updated = company
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *Repository) DeleteCompany(ctx context.Context, id string) (bool, error) {
	publicID, ok := parsePublicID(id)
	if !ok {
		return false, nil
	}

	result := r.db.WithContext(ctx).Delete(&dbmodels.Company{}, "public_id = ?", publicID)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *Repository) ListCompanies(ctx context.Context, spec filter.Spec) ([]*models.Company, error) {
	var rows []dbmodels.Company
	result := applySpec(r.db.WithContext(ctx).Model(&dbmodels.Company{}), spec).
		Order("seq ASC").
		Find(&rows)
	if result.Error != nil {
		return nil, result.Error
	}

	companies := make([]*models.Company, 0, len(rows))
	for i := range rows {
		companies = append(companies, toModel(&rows[i]))
	}
	return companies, nil
}

func (r *Repository) Exec(ctx context.Context, query string, params ...interface{}) error {
	result := r.db.WithContext(ctx).Exec(query, params...)
	if result.Error != nil {
		return result.Error
	}
	return nil
}

func (r *Repository) Close() error {
	db, err := r.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}

const likeEscapeClause = "ESCAPE '\\'"

func applySpec(q *gorm.DB, spec filter.Spec) *gorm.DB {
	if search, ok := spec.Search(); ok {
		pattern := "%" + escapeLikePattern(strings.ToLower(search)) + "%"
		q = q.Where(
			fmt.Sprintf("(name_lower LIKE ? %[1]s OR description_lower LIKE ? %[1]s)", likeEscapeClause),
			pattern, pattern,
		)
	}
	if industry, ok := spec.Industry(); ok {
		q = q.Where("industry = ?", industry)
	}
	if country, ok := spec.Country(); ok {
		q = q.Where("country = ?", country)
	}
	if lo, ok := spec.MinEmployees(); ok {
		q = q.Where("employees >= ?", lo)
	}
	if hi, ok := spec.MaxEmployees(); ok {
		q = q.Where("employees <= ?", hi)
	}
	return q
}

func escapeLikePattern(value string) string {
	replacer := strings.NewReplacer(
		"\\", "\\\\",
		"%", "\\%",
		"_", "\\_",
	)
	return replacer.Replace(value)
}

// parsePublicID accepts only the canonical lower-case hyphenated form, the
// one CreateCompany hands out. Other spellings uuid.Parse tolerates (upper
// case, braces, urn prefix) are unknown ids.
func parsePublicID(id string) (uuid.UUID, bool) {
	publicID, err := uuid.Parse(id)
	if err != nil || publicID.String() != id {
		return uuid.Nil, false
	}
	return publicID, true
}

// foldSearchText lower-cases the searchable text in Go, matching the
// in-memory filter exactly.
func foldSearchText(c *models.Company) (string, *string) {
	name := strings.ToLower(c.Name)
	if c.Description == nil {
		return name, nil
	}
	description := strings.ToLower(*c.Description)
	return name, &description
}

// assignments converts a partial update into a column map. UpdatedAt is
// always stamped, so an empty update still refreshes it.
func assignments(u *models.CompanyUpdate, now time.Time) map[string]interface{} {
	values := map[string]interface{}{"updated_at": now}
	if u.Name != nil {
		values["name"] = *u.Name
	}
	if u.Industry != nil {
		values["industry"] = *u.Industry
	}
	if u.Country != nil {
		values["country"] = *u.Country
	}
	if u.City != nil {
		values["city"] = *u.City
	}
	if u.Employees != nil {
		values["employees"] = *u.Employees
	}
	if u.Description != nil {
		values["description"] = nullable(*u.Description)
	}
	if u.LogoURL != nil {
		values["logo_url"] = nullable(*u.LogoURL)
	}
	return values
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func toRow(c *models.Company) *dbmodels.Company {
	nameLower, descriptionLower := foldSearchText(c)
	return &dbmodels.Company{
		PublicID:    uuid.MustParse(c.ID),
		Name:        c.Name,
		Industry:    c.Industry,
		Country:     c.Country,
		City:        c.City,
		Employees:   c.Employees,
		Description: c.Description,
		LogoURL:     c.LogoURL,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,

		NameLower:        nameLower,
		DescriptionLower: descriptionLower,
	}
}

func toModel(row *dbmodels.Company) *models.Company {
	return &models.Company{
		ID:          row.PublicID.String(),
		Name:        row.Name,
		Industry:    row.Industry,
		Country:     row.Country,
		City:        row.City,
		Employees:   row.Employees,
		Description: row.Description,
		LogoURL:     row.LogoURL,
		CreatedAt:   row.CreatedAt.UTC(),
		UpdatedAt:   row.UpdatedAt.UTC(),
	}
}
