// Package models contains the persistence models for the relational store,
// configured to work using GORM as the ORM.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Company represents a company row in the database.
// Seq is an internal auto-increment key that preserves insertion order;
// PublicID is the identifier exposed to clients. NameLower and
// DescriptionLower hold the Unicode lower-cased text that search matches
// against, since SQL LOWER() only folds ASCII on some databases.
type Company struct {
	Seq         uint64    `gorm:"primaryKey;autoIncrement"`
	PublicID    uuid.UUID `gorm:"type:uuid;uniqueIndex;not null"`
	Name        string    `gorm:"not null"`
	Industry    string    `gorm:"index;not null"`
	Country     string    `gorm:"index;not null"`
	City        string    `gorm:"not null"`
	Employees   int       `gorm:"check:employees >= 1"`
	Description *string
	LogoURL     *string
	CreatedAt   time.Time
	UpdatedAt   time.Time

	NameLower        string `gorm:"not null;default:''"`
	DescriptionLower *string
}
