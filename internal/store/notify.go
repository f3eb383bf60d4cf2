package store

import "sync"

// bus fans out "collection changed" ticks to per-tenant subscribers. Sends
// are non-blocking: a subscriber that has not drained its channel simply
// misses the duplicate tick, which is fine because every tick means "requery
// the full snapshot", not "apply this event".
type bus struct {
	mu     sync.Mutex
	nextID int
	subs   map[uint]map[int]chan Collection
}

func newBus() *bus {
	return &bus{subs: make(map[uint]map[int]chan Collection)}
}

func (b *bus) subscribe(entrepriseID uint) (<-chan Collection, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	ch := make(chan Collection, 8)
	if b.subs[entrepriseID] == nil {
		b.subs[entrepriseID] = make(map[int]chan Collection)
	}
	b.subs[entrepriseID][id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if m := b.subs[entrepriseID]; m != nil {
			if _, ok := m[id]; ok {
				delete(m, id)
				close(ch)
			}
			if len(m) == 0 {
				delete(b.subs, entrepriseID)
			}
		}
	}
	return ch, cancel
}

func (b *bus) publish(entrepriseID uint, col Collection) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs[entrepriseID] {
		select {
		case ch <- col:
		default:
		}
	}
}
