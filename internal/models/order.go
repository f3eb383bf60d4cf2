package models

import "time"

type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusConfirmed OrderStatus = "confirmed"
	StatusDelivered OrderStatus = "delivered"
	StatusCancelled OrderStatus = "cancelled"
)

// ValidStatus reports whether s is one of the four known statuses.
func ValidStatus(s OrderStatus) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

type HistoryAction string

const (
	ActionCreated   HistoryAction = "created"
	ActionPending   HistoryAction = "pending"
	ActionConfirmed HistoryAction = "confirmed"
	ActionDelivered HistoryAction = "delivered"
	ActionCancelled HistoryAction = "cancelled"
	ActionModified  HistoryAction = "modified"
)

// Order is a customer order for a single product. ProductName and UnitPrice
// are copied from the product at creation so that later catalogue edits do
// not change what was actually charged; TotalPrice is computed once at
// creation and never recomputed from the product.
type Order struct {
	ID           uint    `gorm:"primaryKey"`
	PublicID     string  `gorm:"size:36;uniqueIndex;not null"` // identifiant exposé aux clients (uuid)
	EntrepriseID uint    `gorm:"not null;index;index:idx_orders_entreprise_number,unique,priority:1"`
	Number       string  `gorm:"size:20;not null;index:idx_orders_entreprise_number,unique,priority:2"` // ex: CMD-2024-007
	ProductID    uint    `gorm:"not null;index"`
	Product      Product `gorm:"foreignKey:ProductID"`
	ProductName  string  `gorm:"not null"` // dénormalisé à la création
	Quantity     float64 `gorm:"not null"` // unités fractionnaires permises (ex: kg)
	UnitPrice    float64 `gorm:"not null"` // prix figé à la création
	TotalPrice   float64 `gorm:"not null"` // Quantity * UnitPrice, figé
	OrderDate    time.Time
	DeliveryDate *time.Time
	Status       OrderStatus `gorm:"size:16;not null;index"`
	Notes        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// OrderHistory is the append-only audit trail: one entry per order creation
// and per status change. Entries are never updated or deleted on their own;
// they only disappear when their order is deleted (cascade).
type OrderHistory struct {
	ID             uint          `gorm:"primaryKey"`
	PublicID       string        `gorm:"size:36;uniqueIndex;not null"`
	EntrepriseID   uint          `gorm:"not null;index"`
	OrderID        uint          `gorm:"not null;index"`
	ProductID      uint          `gorm:"not null;index"`
	Action         HistoryAction `gorm:"size:16;not null"`
	PreviousStatus OrderStatus   `gorm:"size:16"` // vide pour l'action created
	NewStatus      OrderStatus   `gorm:"size:16"`
	Quantity       float64       `gorm:"not null"` // quantité de la commande au moment de l'action
	Timestamp      time.Time     `gorm:"not null;index"`
	Notes          string
}

// OrderCounter backs order numbering: one row per (entreprise, year),
// incremented inside the order-creation transaction. The unique index keeps
// two concurrent first-orders of a year from both inserting seq=1.
type OrderCounter struct {
	ID           uint `gorm:"primaryKey"`
	EntrepriseID uint `gorm:"not null;index:idx_counters_entreprise_year,unique,priority:1"`
	Year         int  `gorm:"not null;index:idx_counters_entreprise_year,unique,priority:2"`
	Seq          int  `gorm:"not null"`
}
