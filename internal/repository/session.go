// Package repository maintains the live, tenant-scoped mirror of the orders
// and orderHistory collections. A Session is created when a dashboard session
// opens and closed when it ends; while open it keeps both collections in sync
// with the store and serves read-only views to the rest of the app.
package repository

import (
	"log"
	"sync"

	"github.com/diewo77/stock-app/internal/models"
	"github.com/diewo77/stock-app/internal/store"
)

type Session struct {
	store        *store.Store
	entrepriseID uint

	mu      sync.RWMutex
	orders  []models.Order
	history []models.OrderHistory

	changed chan struct{}
	cancel  func()
	done    chan struct{}
	once    sync.Once
}

// Open loads the initial snapshots, attaches the live subscription and starts
// the consumer goroutine. The caller owns the session and must Close it.
func Open(st *store.Store, entrepriseID uint) (*Session, error) {
	orders, err := st.Orders(entrepriseID)
	if err != nil {
		return nil, err
	}
	history, err := st.History(entrepriseID)
	if err != nil {
		return nil, err
	}
	ch, cancel := st.Watch(entrepriseID)
	s := &Session{
		store:        st,
		entrepriseID: entrepriseID,
		orders:       orders,
		history:      history,
		changed:      make(chan struct{}, 1),
		cancel:       cancel,
		done:         make(chan struct{}),
	}
	go s.run(ch)
	return s, nil
}

// run consumes change ticks until the subscription is cancelled. Each tick
// names a collection; the corresponding snapshot is requeried in full and
// swapped in atomically, never merged partially.
func (s *Session) run(ch <-chan store.Collection) {
	defer close(s.done)
	for col := range ch {
		switch col {
		case store.CollectionOrders:
			orders, err := s.store.Orders(s.entrepriseID)
			if err != nil {
				log.Printf("repository: requery orders entreprise=%d: %v", s.entrepriseID, err)
				continue
			}
			s.mu.Lock()
			s.orders = orders
			s.mu.Unlock()
		case store.CollectionHistory:
			history, err := s.store.History(s.entrepriseID)
			if err != nil {
				log.Printf("repository: requery history entreprise=%d: %v", s.entrepriseID, err)
				continue
			}
			s.mu.Lock()
			s.history = history
			s.mu.Unlock()
		}
		select {
		case s.changed <- struct{}{}:
		default:
		}
	}
}

// Changed returns a coalesced tick channel: at most one pending tick, fired
// after a snapshot swap. Consumers re-read the views on each tick.
func (s *Session) Changed() <-chan struct{} { return s.changed }

// Orders returns a copy of the current order snapshot, newest first.
func (s *Session) Orders() []models.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Order, len(s.orders))
	copy(out, s.orders)
	return out
}

// History returns a copy of the current audit snapshot, newest first.
func (s *Session) History() []models.OrderHistory {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.OrderHistory, len(s.history))
	copy(out, s.history)
	return out
}

// OrdersForProduct returns the product's orders, any status, in mirror order.
func (s *Session) OrdersForProduct(productID uint) []models.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Order
	for _, o := range s.orders {
		if o.ProductID == productID {
			out = append(out, o)
		}
	}
	return out
}

// HistoryForProduct returns the product's audit entries in mirror order.
func (s *Session) HistoryForProduct(productID uint) []models.OrderHistory {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.OrderHistory
	for _, h := range s.history {
		if h.ProductID == productID {
			out = append(out, h)
		}
	}
	return out
}

// Close detaches the subscription and waits for the consumer goroutine to
// stop, so no callback can fire after Close returns. Safe to call twice.
func (s *Session) Close() {
	s.once.Do(func() {
		s.cancel()
		<-s.done
	})
}
