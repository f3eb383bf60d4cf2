package services

import (
	"errors"
	"fmt"
	"testing"
	"time"

	appdb "github.com/diewo77/stock-app/internal/db"
	"github.com/diewo77/stock-app/internal/models"
	"github.com/diewo77/stock-app/internal/store"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	// Unique in-memory database per test to avoid cross-test collisions.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	dbConn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := appdb.AutoMigrate(dbConn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return dbConn
}

func seedTenantAndProduct(t *testing.T, dbConn *gorm.DB) (models.Entreprise, models.Product) {
	t.Helper()
	ent := models.Entreprise{Name: "Maraîcher Diouf"}
	if err := dbConn.Create(&ent).Error; err != nil {
		t.Fatalf("entreprise: %v", err)
	}
	product := models.Product{
		EntrepriseID:  ent.ID,
		Name:          "Tomates",
		Category:      "légumes",
		Unit:          "kg",
		PurchasePrice: 1.2,
		SalePrice:     2.5,
		Stock:         100,
		MinStock:      10,
	}
	if err := dbConn.Create(&product).Error; err != nil {
		t.Fatalf("product: %v", err)
	}
	return ent, product
}

func newOrderFixtures(t *testing.T) (*store.Store, *OrderService, *StockService, models.Entreprise, models.Product) {
	t.Helper()
	dbConn := setupServiceDB(t)
	ent, product := seedTenantAndProduct(t, dbConn)
	st := store.New(dbConn)
	return st, NewOrderService(st, false), NewStockService(st), ent, product
}

func TestCreateOrderAssignsSequentialNumbers(t *testing.T) {
	_, svc, _, ent, product := newOrderFixtures(t)

	first, err := svc.Create(ent.ID, CreateOrderInput{ProductID: product.ID, Quantity: 3})
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	second, err := svc.Create(ent.ID, CreateOrderInput{ProductID: product.ID, Quantity: 5})
	if err != nil {
		t.Fatalf("create second: %v", err)
	}

	year := time.Now().Year()
	if want := FormatOrderNumber(year, 1); first.Number != want {
		t.Fatalf("first number: got %s want %s", first.Number, want)
	}
	if want := FormatOrderNumber(year, 2); second.Number != want {
		t.Fatalf("second number: got %s want %s", second.Number, want)
	}

	// Another tenant starts its own sequence at 1.
	other, otherProduct := seedOtherTenant(t)
	third, err := svc.Create(other.ID, CreateOrderInput{ProductID: otherProduct.ID, Quantity: 1})
	if err != nil {
		t.Fatalf("create for other tenant: %v", err)
	}
	if want := FormatOrderNumber(year, 1); third.Number != want {
		t.Fatalf("other tenant number: got %s want %s", third.Number, want)
	}
}

// seedOtherTenant opens a second handle on the test's shared in-memory
// database and seeds an unrelated tenant.
func seedOtherTenant(t *testing.T) (models.Entreprise, models.Product) {
	t.Helper()
	dbConn := setupHandle(t)
	ent := models.Entreprise{Name: "Autre Entreprise"}
	if err := dbConn.Create(&ent).Error; err != nil {
		t.Fatalf("entreprise: %v", err)
	}
	product := models.Product{EntrepriseID: ent.ID, Name: "Pommes", Unit: "kg", PurchasePrice: 1.8, SalePrice: 3.2, Stock: 50}
	if err := dbConn.Create(&product).Error; err != nil {
		t.Fatalf("product: %v", err)
	}
	return ent, product
}

func TestCreateOrderWritesCreatedHistoryEntry(t *testing.T) {
	st, svc, _, ent, product := newOrderFixtures(t)

	order, err := svc.Create(ent.ID, CreateOrderInput{ProductID: product.ID, Quantity: 3, Status: models.StatusConfirmed, Notes: "livraison mardi"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	entries, err := st.HistoryForProduct(ent.ID, product.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly one history entry, got %d", len(entries))
	}
	h := entries[0]
	if h.Action != models.ActionCreated {
		t.Fatalf("action: got %s", h.Action)
	}
	if h.OrderID != order.ID {
		t.Fatalf("order id: got %d want %d", h.OrderID, order.ID)
	}
	if h.PreviousStatus != "" || h.NewStatus != models.StatusConfirmed {
		t.Fatalf("statuses: got prev=%q new=%q", h.PreviousStatus, h.NewStatus)
	}
	if h.Quantity != 3 {
		t.Fatalf("quantity snapshot: got %v", h.Quantity)
	}
}

func TestCreateOrderValidation(t *testing.T) {
	_, svc, _, ent, product := newOrderFixtures(t)

	if _, err := svc.Create(ent.ID, CreateOrderInput{ProductID: product.ID, Quantity: 0}); !errors.Is(err, store.ErrInvalid) {
		t.Fatalf("zero quantity: got %v", err)
	}
	if _, err := svc.Create(ent.ID, CreateOrderInput{ProductID: product.ID, Quantity: -2}); !errors.Is(err, ErrQuantityNotPositive) {
		t.Fatalf("negative quantity: got %v", err)
	}
	if _, err := svc.Create(ent.ID, CreateOrderInput{ProductID: 9999, Quantity: 1}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("unknown product: got %v", err)
	}
	if _, err := svc.Create(ent.ID, CreateOrderInput{ProductID: product.ID, Quantity: 1, Status: models.StatusDelivered}); !errors.Is(err, ErrBadInitialStatus) {
		t.Fatalf("delivered as initial status: got %v", err)
	}
}

func TestCreateOrderFreezesPrice(t *testing.T) {
	st, svc, _, ent, product := newOrderFixtures(t)

	order, err := svc.Create(ent.ID, CreateOrderInput{ProductID: product.ID, Quantity: 4})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if order.UnitPrice != product.SalePrice {
		t.Fatalf("unit price not copied from product: got %v", order.UnitPrice)
	}
	if order.TotalPrice != 4*product.SalePrice {
		t.Fatalf("total price: got %v want %v", order.TotalPrice, 4*product.SalePrice)
	}
	if order.ProductName != product.Name {
		t.Fatalf("product name not denormalized: got %q", order.ProductName)
	}

	// Raising the catalogue price later must not touch the order.
	dbConn := setupHandle(t)
	if err := dbConn.Model(&models.Product{}).Where("id = ?", product.ID).Update("sale_price", 99.0).Error; err != nil {
		t.Fatalf("update price: %v", err)
	}
	reread, err := st.OrderByPublicID(ent.ID, order.PublicID)
	if err != nil {
		t.Fatalf("reread: %v", err)
	}
	if reread.UnitPrice != product.SalePrice || reread.TotalPrice != 4*product.SalePrice {
		t.Fatalf("price not frozen: unit=%v total=%v", reread.UnitPrice, reread.TotalPrice)
	}
}

func setupHandle(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	dbConn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	return dbConn
}

func TestDeliveryScenario(t *testing.T) {
	st, svc, stock, ent, product := newOrderFixtures(t)

	// stock=100 kg, order qty=30 pending: pending orders reserve nothing.
	order, err := svc.Create(ent.ID, CreateOrderInput{ProductID: product.ID, Quantity: 30})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	info, err := stock.RemainingStock(ent.ID, product.ID)
	if err != nil {
		t.Fatalf("remaining: %v", err)
	}
	if info.RemainingStock != 100 {
		t.Fatalf("pending order must not reduce stock: got %v", info.RemainingStock)
	}
	stats, err := stock.StatsForProduct(ent.ID, product.ID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.PendingQuantity != 30 {
		t.Fatalf("pending quantity: got %v", stats.PendingQuantity)
	}

	// Deliver: stock drops, pending clears, delivery date stamped.
	updated, err := svc.UpdateStatus(ent.ID, order.PublicID, models.StatusDelivered, "")
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if updated.DeliveryDate == nil {
		t.Fatalf("delivery date not stamped")
	}
	info, err = stock.RemainingStock(ent.ID, product.ID)
	if err != nil {
		t.Fatalf("remaining after delivery: %v", err)
	}
	if info.RemainingStock != 70 || info.DeliveredQuantity != 30 {
		t.Fatalf("after delivery: remaining=%v delivered=%v", info.RemainingStock, info.DeliveredQuantity)
	}
	stats, err = stock.StatsForProduct(ent.ID, product.ID)
	if err != nil {
		t.Fatalf("stats after delivery: %v", err)
	}
	if stats.DeliveredQuantity != 30 || stats.PendingQuantity != 0 {
		t.Fatalf("stats after delivery: %+v", stats)
	}

	entries, err := st.HistoryForProduct(ent.ID, product.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(entries))
	}
	// Newest first.
	h := entries[0]
	if h.Action != models.ActionDelivered || h.PreviousStatus != models.StatusPending || h.NewStatus != models.StatusDelivered {
		t.Fatalf("delivery entry: %+v", h)
	}
	if h.Quantity != 30 {
		t.Fatalf("delivery entry quantity: got %v", h.Quantity)
	}
}

func TestCancelDeliveredOrderRestoresRemaining(t *testing.T) {
	_, svc, stock, ent, product := newOrderFixtures(t)

	order, err := svc.Create(ent.ID, CreateOrderInput{ProductID: product.ID, Quantity: 30})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.UpdateStatus(ent.ID, order.PublicID, models.StatusDelivered, ""); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if _, err := svc.UpdateStatus(ent.ID, order.PublicID, models.StatusCancelled, "erreur de saisie"); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	info, err := stock.RemainingStock(ent.ID, product.ID)
	if err != nil {
		t.Fatalf("remaining: %v", err)
	}
	if info.RemainingStock != 100 {
		t.Fatalf("cancelled order still decrements stock: got %v", info.RemainingStock)
	}
	stats, err := stock.StatsForProduct(ent.ID, product.ID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	// Cancelled orders stay inside the demand totals.
	if stats.TotalQuantity != 30 || stats.TotalOrders != 1 {
		t.Fatalf("cancelled order dropped from totals: %+v", stats)
	}
	if stats.DeliveredQuantity != 0 || stats.PendingQuantity != 0 {
		t.Fatalf("cancelled order still counted by status: %+v", stats)
	}
}

func TestUpdateStatusUnknownOrder(t *testing.T) {
	_, svc, _, ent, _ := newOrderFixtures(t)
	if _, err := svc.UpdateStatus(ent.ID, "missing-id", models.StatusConfirmed, ""); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("got %v", err)
	}
	if _, err := svc.UpdateStatus(ent.ID, "missing-id", "shipped", ""); !errors.Is(err, ErrUnknownStatus) {
		t.Fatalf("got %v", err)
	}
}

func TestStrictTransitions(t *testing.T) {
	st, _, _, ent, product := newOrderFixtures(t)
	strict := NewOrderService(st, true)

	order, err := strict.Create(ent.ID, CreateOrderInput{ProductID: product.ID, Quantity: 2})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := strict.UpdateStatus(ent.ID, order.PublicID, models.StatusDelivered, ""); !errors.Is(err, ErrTransitionNotAllowed) {
		t.Fatalf("pending->delivered should be rejected in strict mode: %v", err)
	}
	if _, err := strict.UpdateStatus(ent.ID, order.PublicID, models.StatusConfirmed, ""); err != nil {
		t.Fatalf("pending->confirmed: %v", err)
	}
	if _, err := strict.UpdateStatus(ent.ID, order.PublicID, models.StatusDelivered, ""); err != nil {
		t.Fatalf("confirmed->delivered: %v", err)
	}
	if _, err := strict.UpdateStatus(ent.ID, order.PublicID, models.StatusPending, ""); !errors.Is(err, ErrTransitionNotAllowed) {
		t.Fatalf("delivered->pending should be rejected in strict mode: %v", err)
	}
	// Cancellation stays possible for manual correction.
	if _, err := strict.UpdateStatus(ent.ID, order.PublicID, models.StatusCancelled, ""); err != nil {
		t.Fatalf("delivered->cancelled: %v", err)
	}
}

func TestUpdateOrderQuantityKeepsUnitPrice(t *testing.T) {
	st, svc, _, ent, product := newOrderFixtures(t)

	order, err := svc.Create(ent.ID, CreateOrderInput{ProductID: product.ID, Quantity: 4})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	qty := 6.0
	updated, err := svc.Update(ent.ID, order.PublicID, UpdateOrderInput{Quantity: &qty})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Quantity != 6 {
		t.Fatalf("quantity: got %v", updated.Quantity)
	}
	if updated.UnitPrice != order.UnitPrice {
		t.Fatalf("unit price changed: got %v", updated.UnitPrice)
	}
	if updated.TotalPrice != 6*order.UnitPrice {
		t.Fatalf("total price: got %v want %v", updated.TotalPrice, 6*order.UnitPrice)
	}

	entries, err := st.HistoryForProduct(ent.ID, product.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(entries) != 2 || entries[0].Action != models.ActionModified {
		t.Fatalf("expected a modified entry on top, got %+v", entries)
	}
	if entries[0].Quantity != 6 {
		t.Fatalf("modified entry snapshots new quantity: got %v", entries[0].Quantity)
	}
}

func TestDeleteOrderCascadesHistory(t *testing.T) {
	st, svc, _, ent, product := newOrderFixtures(t)

	order, err := svc.Create(ent.ID, CreateOrderInput{ProductID: product.ID, Quantity: 2})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.UpdateStatus(ent.ID, order.PublicID, models.StatusConfirmed, ""); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if err := svc.Delete(ent.ID, order.PublicID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	orders, err := st.Orders(ent.ID)
	if err != nil {
		t.Fatalf("orders: %v", err)
	}
	if len(orders) != 0 {
		t.Fatalf("order not deleted: %d left", len(orders))
	}
	entries, err := st.History(ent.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("history orphaned after delete: %d entries left", len(entries))
	}

	if err := svc.Delete(ent.ID, order.PublicID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("second delete: got %v", err)
	}
}
