// Package store is the narrow persistence layer: tenant-scoped reads,
// transactional writes and per-tenant change notification over the two
// collections the dashboard mirrors, orders and orderHistory.
package store

import (
	"errors"
	"fmt"

	"github.com/diewo77/stock-app/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Every operation reports failures through one of these classes so callers
// can react without inspecting driver errors.
var (
	ErrNotFound    = errors.New("not_found")
	ErrInvalid     = errors.New("invalid")
	ErrUnavailable = errors.New("unavailable")
)

type Collection string

const (
	CollectionOrders  Collection = "orders"
	CollectionHistory Collection = "orderHistory"
)

type Store struct {
	db  *gorm.DB
	bus *bus
}

func New(db *gorm.DB) *Store { return &Store{db: db, bus: newBus()} }

func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

// Orders returns the tenant's full order set, newest first. This is the
// snapshot the live mirror swaps in whenever the orders collection changes.
func (s *Store) Orders(entrepriseID uint) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.Where("entreprise_id = ?", entrepriseID).
		Order("created_at desc, id desc").
		Find(&orders).Error
	if err != nil {
		return nil, classify(err)
	}
	return orders, nil
}

// OrdersForProduct returns all orders referencing the product, any status.
func (s *Store) OrdersForProduct(entrepriseID, productID uint) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.Where("entreprise_id = ? AND product_id = ?", entrepriseID, productID).
		Order("created_at desc, id desc").
		Find(&orders).Error
	if err != nil {
		return nil, classify(err)
	}
	return orders, nil
}

// History returns the tenant's audit trail, newest first.
func (s *Store) History(entrepriseID uint) ([]models.OrderHistory, error) {
	var entries []models.OrderHistory
	err := s.db.Where("entreprise_id = ?", entrepriseID).
		Order("timestamp desc, id desc").
		Find(&entries).Error
	if err != nil {
		return nil, classify(err)
	}
	return entries, nil
}

// HistoryForProduct returns the audit entries for one product, newest first.
func (s *Store) HistoryForProduct(entrepriseID, productID uint) ([]models.OrderHistory, error) {
	var entries []models.OrderHistory
	err := s.db.Where("entreprise_id = ? AND product_id = ?", entrepriseID, productID).
		Order("timestamp desc, id desc").
		Find(&entries).Error
	if err != nil {
		return nil, classify(err)
	}
	return entries, nil
}

func (s *Store) OrderByPublicID(entrepriseID uint, publicID string) (models.Order, error) {
	var o models.Order
	err := s.db.Where("entreprise_id = ? AND public_id = ?", entrepriseID, publicID).
		First(&o).Error
	if err != nil {
		return models.Order{}, classify(err)
	}
	return o, nil
}

func (s *Store) ProductByID(entrepriseID, productID uint) (models.Product, error) {
	var p models.Product
	err := s.db.Where("entreprise_id = ? AND id = ?", entrepriseID, productID).
		First(&p).Error
	if err != nil {
		return models.Product{}, classify(err)
	}
	return p, nil
}

func (s *Store) Products(entrepriseID uint) ([]models.Product, error) {
	var products []models.Product
	err := s.db.Where("entreprise_id = ?", entrepriseID).
		Order("name asc").
		Find(&products).Error
	if err != nil {
		return nil, classify(err)
	}
	return products, nil
}

// Tx groups writes that must land together (order + history entry). Touched
// collections are remembered so subscribers are notified exactly once per
// collection, and only after commit.
type Tx struct {
	db      *gorm.DB
	touched map[Collection]bool
}

// WithTx runs fn inside a database transaction scoped to one tenant and, on
// commit, publishes a change notification for every touched collection.
// Nothing is published when fn returns an error (the transaction rolls back).
func (s *Store) WithTx(entrepriseID uint, fn func(tx *Tx) error) error {
	t := &Tx{touched: map[Collection]bool{}}
	err := s.db.Transaction(func(db *gorm.DB) error {
		t.db = db
		return fn(t)
	})
	if err != nil {
		return err
	}
	for col := range t.touched {
		s.bus.publish(entrepriseID, col)
	}
	return nil
}

func (t *Tx) OrderByPublicID(entrepriseID uint, publicID string) (models.Order, error) {
	var o models.Order
	err := t.db.Where("entreprise_id = ? AND public_id = ?", entrepriseID, publicID).
		First(&o).Error
	if err != nil {
		return models.Order{}, classify(err)
	}
	return o, nil
}

func (t *Tx) ProductByID(entrepriseID, productID uint) (models.Product, error) {
	var p models.Product
	err := t.db.Where("entreprise_id = ? AND id = ?", entrepriseID, productID).
		First(&p).Error
	if err != nil {
		return models.Product{}, classify(err)
	}
	return p, nil
}

func (t *Tx) InsertOrder(o *models.Order) error {
	if o.PublicID == "" {
		o.PublicID = uuid.NewString()
	}
	if err := t.db.Create(o).Error; err != nil {
		return classify(err)
	}
	t.touched[CollectionOrders] = true
	return nil
}

func (t *Tx) UpdateOrderFields(orderID uint, fields map[string]any) error {
	res := t.db.Model(&models.Order{}).Where("id = ?", orderID).Updates(fields)
	if res.Error != nil {
		return classify(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	t.touched[CollectionOrders] = true
	return nil
}

func (t *Tx) DeleteOrder(orderID uint) error {
	res := t.db.Delete(&models.Order{}, orderID)
	if res.Error != nil {
		return classify(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	t.touched[CollectionOrders] = true
	return nil
}

func (t *Tx) InsertHistory(h *models.OrderHistory) error {
	if h.PublicID == "" {
		h.PublicID = uuid.NewString()
	}
	if err := t.db.Create(h).Error; err != nil {
		return classify(err)
	}
	t.touched[CollectionHistory] = true
	return nil
}

// DeleteHistoryForOrder removes the order's audit entries. Only called from
// order deletion; history is otherwise append-only.
func (t *Tx) DeleteHistoryForOrder(orderID uint) error {
	res := t.db.Where("order_id = ?", orderID).Delete(&models.OrderHistory{})
	if res.Error != nil {
		return classify(res.Error)
	}
	if res.RowsAffected > 0 {
		t.touched[CollectionHistory] = true
	}
	return nil
}

// NextSequence increments and returns the per-(entreprise, year) order
// sequence. The UPDATE takes a row lock, so concurrent creators serialize
// here instead of computing the same number from a stale count.
func (t *Tx) NextSequence(entrepriseID uint, year int) (int, error) {
	res := t.db.Model(&models.OrderCounter{}).
		Where("entreprise_id = ? AND year = ?", entrepriseID, year).
		Update("seq", gorm.Expr("seq + 1"))
	if res.Error != nil {
		return 0, classify(res.Error)
	}
	if res.RowsAffected == 0 {
		c := models.OrderCounter{EntrepriseID: entrepriseID, Year: year, Seq: 1}
		if err := t.db.Create(&c).Error; err != nil {
			// Unique index on (entreprise_id, year): a concurrent first insert
			// aborts this transaction instead of handing out a duplicate seq.
			return 0, classify(err)
		}
		return 1, nil
	}
	var c models.OrderCounter
	err := t.db.Where("entreprise_id = ? AND year = ?", entrepriseID, year).
		First(&c).Error
	if err != nil {
		return 0, classify(err)
	}
	return c.Seq, nil
}

// Watch subscribes to change notifications for one tenant. The channel
// coalesces: it carries which collection changed, not every individual write,
// and subscribers are expected to requery the full snapshot. The returned
// cancel func detaches the subscription and closes the channel.
func (s *Store) Watch(entrepriseID uint) (<-chan Collection, func()) {
	return s.bus.subscribe(entrepriseID)
}
