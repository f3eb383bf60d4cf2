package models

import "time"

// Entreprise is the tenant. Every other collection is partitioned by
// EntrepriseID; nothing is ever read or written across tenants.
type Entreprise struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
