package models

import "time"

// IdentifierCounter stores the last serial issued for a numbering scope.
// Scope is the rendered identifier prefix including its trailing separator,
// e.g. "1403-12345-" or "REF-2025-".
type IdentifierCounter struct {
	Scope      string    `gorm:"primaryKey;size:100" json:"scope"`
	LastSerial uint64    `gorm:"not null;default:0" json:"lastSerial"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// TableName specifies the table name.
func (IdentifierCounter) TableName() string {
	return "identifier_counters"
}
