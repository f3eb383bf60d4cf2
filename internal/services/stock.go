package services

import (
	"github.com/diewo77/stock-app/internal/models"
	"github.com/diewo77/stock-app/internal/store"
)

// OrderStats are the per-product aggregates shown on the product cards.
// TotalQuantity and TotalValue deliberately sum over every status, cancelled
// included - that is how the dashboard has always counted "demand". Only the
// delivered/pending figures filter by status.
type OrderStats struct {
	TotalOrders       int     `json:"totalOrders"`
	TotalQuantity     float64 `json:"totalQuantity"`
	TotalValue        float64 `json:"totalValue"`
	DeliveredQuantity float64 `json:"deliveredQuantity"`
	PendingQuantity   float64 `json:"pendingQuantity"`
}

// ComputeStats aggregates the product's orders. Pure: same input, same output.
func ComputeStats(orders []models.Order, productID uint) OrderStats {
	var stats OrderStats
	for _, o := range orders {
		if o.ProductID != productID {
			continue
		}
		stats.TotalOrders++
		stats.TotalQuantity += o.Quantity
		stats.TotalValue += o.TotalPrice
		switch o.Status {
		case models.StatusDelivered:
			stats.DeliveredQuantity += o.Quantity
		case models.StatusPending, models.StatusConfirmed:
			stats.PendingQuantity += o.Quantity
		}
	}
	return stats
}

// StockInfo is the derived stock position: only delivered orders decrement
// stock, pending/confirmed orders reserve nothing, and the result never goes
// below zero.
type StockInfo struct {
	RemainingStock    float64 `json:"remainingStock"`
	DeliveredQuantity float64 `json:"deliveredQuantity"`
}

func ComputeRemaining(product models.Product, orders []models.Order) StockInfo {
	var delivered float64
	for _, o := range orders {
		if o.ProductID == product.ID && o.Status == models.StatusDelivered {
			delivered += o.Quantity
		}
	}
	remaining := product.Stock - delivered
	if remaining < 0 {
		remaining = 0
	}
	return StockInfo{RemainingStock: remaining, DeliveredQuantity: delivered}
}

// StockReportRow is one product line of the stock report page.
type StockReportRow struct {
	ProductID      uint    `json:"productId"`
	ProductName    string  `json:"productName"`
	Unit           string  `json:"unit"`
	InitialStock   float64 `json:"initialStock"`
	QuantitySold   float64 `json:"quantitySold"`
	RemainingStock float64 `json:"remainingStock"`
	StockValue     float64 `json:"stockValue"`    // remaining * purchase price
	PurchaseValue  float64 `json:"purchaseValue"` // initial stock * purchase price
	SalesValue     float64 `json:"salesValue"`    // total order value, any status
	Margin         float64 `json:"margin"`        // sales value - sold * purchase price
	LowStock       bool    `json:"lowStock"`
}

// StockReportSummary totals the report across products.
type StockReportSummary struct {
	TotalInitialStock   float64 `json:"totalInitialStock"`
	TotalRemainingStock float64 `json:"totalRemainingStock"`
	TotalPurchaseValue  float64 `json:"totalPurchaseValue"`
	TotalSalesValue     float64 `json:"totalSalesValue"`
	TotalMargin         float64 `json:"totalMargin"`
}

// StockService answers request-scoped reconciliation queries straight from
// the store; live consumers compute the same figures from a repository
// session with the pure functions above.
type StockService struct {
	store *store.Store
}

func NewStockService(st *store.Store) *StockService { return &StockService{store: st} }

func (s *StockService) StatsForProduct(entrepriseID, productID uint) (OrderStats, error) {
	// Product must exist; stats for an unknown product would silently be zero.
	if _, err := s.store.ProductByID(entrepriseID, productID); err != nil {
		return OrderStats{}, err
	}
	orders, err := s.store.OrdersForProduct(entrepriseID, productID)
	if err != nil {
		return OrderStats{}, err
	}
	return ComputeStats(orders, productID), nil
}

func (s *StockService) RemainingStock(entrepriseID, productID uint) (StockInfo, error) {
	product, err := s.store.ProductByID(entrepriseID, productID)
	if err != nil {
		return StockInfo{}, err
	}
	orders, err := s.store.OrdersForProduct(entrepriseID, productID)
	if err != nil {
		return StockInfo{}, err
	}
	return ComputeRemaining(product, orders), nil
}

// Report builds the per-product stock report and its summary for the tenant.
func (s *StockService) Report(entrepriseID uint) ([]StockReportRow, StockReportSummary, error) {
	products, err := s.store.Products(entrepriseID)
	if err != nil {
		return nil, StockReportSummary{}, err
	}
	orders, err := s.store.Orders(entrepriseID)
	if err != nil {
		return nil, StockReportSummary{}, err
	}
	rows := make([]StockReportRow, 0, len(products))
	var summary StockReportSummary
	for _, p := range products {
		stats := ComputeStats(orders, p.ID)
		info := ComputeRemaining(p, orders)
		row := StockReportRow{
			ProductID:      p.ID,
			ProductName:    p.Name,
			Unit:           p.Unit,
			InitialStock:   p.Stock,
			QuantitySold:   stats.DeliveredQuantity,
			RemainingStock: info.RemainingStock,
			StockValue:     info.RemainingStock * p.PurchasePrice,
			PurchaseValue:  p.Stock * p.PurchasePrice,
			SalesValue:     stats.TotalValue,
			Margin:         stats.TotalValue - stats.DeliveredQuantity*p.PurchasePrice,
			LowStock:       info.RemainingStock <= p.MinStock,
		}
		rows = append(rows, row)
		summary.TotalInitialStock += row.InitialStock
		summary.TotalRemainingStock += row.RemainingStock
		summary.TotalPurchaseValue += row.PurchaseValue
		summary.TotalSalesValue += row.SalesValue
		summary.TotalMargin += row.Margin
	}
	return rows, summary, nil
}
