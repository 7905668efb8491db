package subs

import "sync"

// Manager owns one connection's SymbolTable and the set of live
// Subscriptions built against it.
type Manager struct {
	Table *SymbolTable

	mu   sync.RWMutex
	subs map[*Subscription]bool
}

func NewManager(cacheEnabled bool) *Manager {
	return &Manager{Table: NewSymbolTable(cacheEnabled), subs: map[*Subscription]bool{}}
}

// NewSubscription creates a Subscription bound to this manager's
// table and tracks it.
func (m *Manager) NewSubscription(types EventType) *Subscription {
	s := NewSubscription(m.Table, types)
	m.mu.Lock()
	m.subs[s] = true
	m.mu.Unlock()
	return s
}

// Close detaches s from this manager; its symbols remain acquired
// until the caller also calls s.RemoveSymbols for them.
func (m *Manager) Close(s *Subscription) {
	m.mu.Lock()
	delete(m.subs, s)
	m.mu.Unlock()
}

// Subscriptions returns every live Subscription tracked by this
// manager. The connection engine calls this after a reconnect to
// replay each one's symbols as fresh ADD frames against the new
// socket; the returned slice is a snapshot and safe to range over
// without holding m's lock.
func (m *Manager) Subscriptions() []*Subscription {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Subscription, 0, len(m.subs))
	for s := range m.subs {
		out = append(out, s)
	}
	return out
}

// Dispatch fans ev out to every tracked Subscription, and — unless
// caching is disabled — records it as that symbol's last event first
// so listeners registered after this call still see it on demand via
// GetLastEvent.
func (m *Manager) Dispatch(ev Event, rawOrderSource string) {
	if m.Table.CacheEnabled() {
		if sd, ok := m.Table.Lookup(ev.Symbol); ok {
			sd.SetLastEvent(ev)
		}
	}
	m.mu.RLock()
	subs := make([]*Subscription, 0, len(m.subs))
	for s := range m.subs {
		subs = append(subs, s)
	}
	m.mu.RUnlock()
	for _, s := range subs {
		s.Dispatch(ev, rawOrderSource, false)
	}
}

// GetLastEvent returns the most recent event of type t for symbol, if
// the last-event cache is enabled and has one.
func (m *Manager) GetLastEvent(symbol string, t EventType) (Event, bool) {
	if !m.Table.CacheEnabled() {
		return Event{}, false
	}
	sd, ok := m.Table.Lookup(symbol)
	if !ok {
		return Event{}, false
	}
	return sd.LastEvent(t)
}
