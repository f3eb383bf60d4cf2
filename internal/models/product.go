package models

import "time"

// Product catalogue. Stock is the quantity entered when the product was
// registered; the remaining quantity is always derived from delivered orders
// (see services.ComputeRemaining) and never written back here.
type Product struct {
	ID            uint       `gorm:"primaryKey"`
	EntrepriseID  uint       `gorm:"not null;index"`
	Entreprise    Entreprise `gorm:"foreignKey:EntrepriseID"`
	Name          string     `gorm:"not null"`
	Category      string     // ex: fruits, légumes, épicerie
	Unit          string     // ex: pièce, kg, litre
	PurchasePrice float64    `gorm:"not null"`
	SalePrice     float64    `gorm:"not null"`
	Stock         float64    `gorm:"not null"` // stock initial
	MinStock      float64    // seuil d'alerte stock bas
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
