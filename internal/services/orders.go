package services

import (
	"fmt"
	"time"

	"github.com/diewo77/stock-app/internal/models"
	"github.com/diewo77/stock-app/internal/store"
)

var (
	ErrQuantityNotPositive  = fmt.Errorf("%w: quantity must be positive", store.ErrInvalid)
	ErrBadInitialStatus     = fmt.Errorf("%w: initial status must be pending or confirmed", store.ErrInvalid)
	ErrUnknownStatus        = fmt.Errorf("%w: unknown status", store.ErrInvalid)
	ErrTransitionNotAllowed = fmt.Errorf("%w: status transition not allowed", store.ErrInvalid)
)

// allowedTransitions is only consulted in strict mode: pending and confirmed
// move between each other, confirmed reaches delivered, and anything can be
// cancelled. Delivered orders can still be cancelled (manual correction).
var allowedTransitions = map[models.OrderStatus]map[models.OrderStatus]bool{
	models.StatusPending:   {models.StatusConfirmed: true, models.StatusCancelled: true},
	models.StatusConfirmed: {models.StatusPending: true, models.StatusDelivered: true, models.StatusCancelled: true},
	models.StatusDelivered: {models.StatusCancelled: true},
	models.StatusCancelled: {},
}

// OrderService owns the order lifecycle. Every mutation is one transaction
// covering both the order write and its history entry, so an order can never
// exist without its audit trail (and vice versa).
type OrderService struct {
	store *store.Store
	// strict rejects transitions outside allowedTransitions. The default is
	// permissive, matching the historical behavior where any status could be
	// set from any other (used for manual corrections).
	strict bool
}

func NewOrderService(st *store.Store, strictTransitions bool) *OrderService {
	return &OrderService{store: st, strict: strictTransitions}
}

type CreateOrderInput struct {
	ProductID    uint
	Quantity     float64
	UnitPrice    float64 // 0 means "use the product's current sale price"
	OrderDate    time.Time
	DeliveryDate *time.Time
	Status       models.OrderStatus // pending when empty
	Notes        string
}

// Create validates the input, assigns the next order number and writes the
// order together with its "created" history entry.
func (s *OrderService) Create(entrepriseID uint, in CreateOrderInput) (*models.Order, error) {
	if in.Quantity <= 0 {
		return nil, ErrQuantityNotPositive
	}
	if in.Status == "" {
		in.Status = models.StatusPending
	}
	if in.Status != models.StatusPending && in.Status != models.StatusConfirmed {
		return nil, ErrBadInitialStatus
	}
	now := time.Now()
	if in.OrderDate.IsZero() {
		in.OrderDate = now
	}

	var order models.Order
	err := s.store.WithTx(entrepriseID, func(tx *store.Tx) error {
		product, err := tx.ProductByID(entrepriseID, in.ProductID)
		if err != nil {
			return err
		}
		number, err := nextOrderNumber(tx, entrepriseID, now)
		if err != nil {
			return err
		}
		unitPrice := in.UnitPrice
		if unitPrice == 0 {
			unitPrice = product.SalePrice
		}
		order = models.Order{
			EntrepriseID: entrepriseID,
			Number:       number,
			ProductID:    product.ID,
			ProductName:  product.Name,
			Quantity:     in.Quantity,
			UnitPrice:    unitPrice,
			TotalPrice:   in.Quantity * unitPrice,
			OrderDate:    in.OrderDate,
			DeliveryDate: in.DeliveryDate,
			Status:       in.Status,
			Notes:        in.Notes,
		}
		if err := tx.InsertOrder(&order); err != nil {
			return err
		}
		return tx.InsertHistory(&models.OrderHistory{
			EntrepriseID: entrepriseID,
			OrderID:      order.ID,
			ProductID:    order.ProductID,
			Action:       models.ActionCreated,
			NewStatus:    order.Status,
			Quantity:     order.Quantity,
			Timestamp:    now,
		})
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateStatus transitions the order and appends the matching history entry.
// Reaching delivered stamps DeliveryDate in the same update.
func (s *OrderService) UpdateStatus(entrepriseID uint, publicID string, newStatus models.OrderStatus, notes string) (*models.Order, error) {
	if !models.ValidStatus(newStatus) {
		return nil, ErrUnknownStatus
	}
	var updated models.Order
	err := s.store.WithTx(entrepriseID, func(tx *store.Tx) error {
		order, err := tx.OrderByPublicID(entrepriseID, publicID)
		if err != nil {
			return err
		}
		if s.strict && !allowedTransitions[order.Status][newStatus] {
			return fmt.Errorf("%w: %s -> %s", ErrTransitionNotAllowed, order.Status, newStatus)
		}
		now := time.Now()
		fields := map[string]any{"status": newStatus, "notes": notes}
		if newStatus == models.StatusDelivered {
			fields["delivery_date"] = now
		}
		if err := tx.UpdateOrderFields(order.ID, fields); err != nil {
			return err
		}
		if err := tx.InsertHistory(&models.OrderHistory{
			EntrepriseID:   entrepriseID,
			OrderID:        order.ID,
			ProductID:      order.ProductID,
			Action:         models.HistoryAction(newStatus),
			PreviousStatus: order.Status,
			NewStatus:      newStatus,
			Quantity:       order.Quantity,
			Timestamp:      now,
			Notes:          notes,
		}); err != nil {
			return err
		}
		updated, err = tx.OrderByPublicID(entrepriseID, publicID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

type UpdateOrderInput struct {
	Quantity     *float64
	OrderDate    *time.Time
	DeliveryDate *time.Time
	Notes        *string
}

// Update edits order fields outside the status flow and records a "modified"
// history entry with the quantity as it stands after the edit. A quantity
// change also refreshes TotalPrice against the frozen unit price, so the
// price actually charged still reflects what is being ordered.
func (s *OrderService) Update(entrepriseID uint, publicID string, in UpdateOrderInput) (*models.Order, error) {
	if in.Quantity != nil && *in.Quantity <= 0 {
		return nil, ErrQuantityNotPositive
	}
	var updated models.Order
	err := s.store.WithTx(entrepriseID, func(tx *store.Tx) error {
		order, err := tx.OrderByPublicID(entrepriseID, publicID)
		if err != nil {
			return err
		}
		fields := map[string]any{}
		quantity := order.Quantity
		if in.Quantity != nil {
			quantity = *in.Quantity
			fields["quantity"] = quantity
			fields["total_price"] = quantity * order.UnitPrice
		}
		if in.OrderDate != nil {
			fields["order_date"] = *in.OrderDate
		}
		if in.DeliveryDate != nil {
			fields["delivery_date"] = *in.DeliveryDate
		}
		if in.Notes != nil {
			fields["notes"] = *in.Notes
		}
		if len(fields) == 0 {
			updated = order
			return nil
		}
		if err := tx.UpdateOrderFields(order.ID, fields); err != nil {
			return err
		}
		if err := tx.InsertHistory(&models.OrderHistory{
			EntrepriseID: entrepriseID,
			OrderID:      order.ID,
			ProductID:    order.ProductID,
			Action:       models.ActionModified,
			Quantity:     quantity,
			Timestamp:    time.Now(),
		}); err != nil {
			return err
		}
		updated, err = tx.OrderByPublicID(entrepriseID, publicID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes the order and cascades to its history entries in the same
// transaction, so no orphaned audit rows are left behind.
func (s *OrderService) Delete(entrepriseID uint, publicID string) error {
	return s.store.WithTx(entrepriseID, func(tx *store.Tx) error {
		order, err := tx.OrderByPublicID(entrepriseID, publicID)
		if err != nil {
			return err
		}
		if err := tx.DeleteHistoryForOrder(order.ID); err != nil {
			return err
		}
		return tx.DeleteOrder(order.ID)
	})
}
