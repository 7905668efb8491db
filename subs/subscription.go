package subs

import "sync"

// Listener is the plain event-listener contract: one callback invoked
// per matching event.
type Listener interface {
	OnEvent(ev Event)
}

// ListenerFunc adapts a plain function to Listener.
type ListenerFunc func(ev Event)

func (f ListenerFunc) OnEvent(ev Event) { f(ev) }

// ListenerParams carries the extra context the V2 listener contract
// gets that the plain one doesn't: which Subscription the event
// arrived through (useful when one listener is registered on several
// Subscriptions), whether this delivery is a replay from the
// last-event cache rather than a live server push, and the event's
// transaction/snapshot-lifecycle flags.
type ListenerParams struct {
	Subscription  *Subscription
	FromCache     bool
	TxPending     bool
	SnapshotBegin bool
	SnapshotEnd   bool
	SnapshotSnip  bool
	RemoveEvent   bool
}

// ListenerV2 is the richer listener contract: callers that need to
// distinguish cache replays from live events, or disambiguate which
// Subscription delivered an event, implement this instead of Listener.
type ListenerV2 interface {
	OnEventV2(ev Event, params ListenerParams)
}

type ListenerV2Func func(ev Event, params ListenerParams)

func (f ListenerV2Func) OnEventV2(ev Event, params ListenerParams) { f(ev, params) }

// Subscription is a named grouping of event types, symbols, and
// listeners. A connection may have many live Subscriptions sharing the
// same underlying SymbolTable.
type Subscription struct {
	table *SymbolTable

	mu         sync.RWMutex
	eventTypes EventType
	symbols    map[string]bool
	orderSrc   OrderSourceSet // nil: no filtering (Order events only)
	snapshot   bool
	history    bool
	timeFloor  int64 // "subscribe from" floor for history subscriptions

	listeners   map[Listener]bool
	listenersV2 map[ListenerV2]bool
}

func NewSubscription(table *SymbolTable, types EventType) *Subscription {
	return &Subscription{
		table:       table,
		eventTypes:  types,
		symbols:     map[string]bool{},
		listeners:   map[Listener]bool{},
		listenersV2: map[ListenerV2]bool{},
	}
}

func (s *Subscription) EventTypes() EventType {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.eventTypes
}

// SetOrderSources narrows this subscription's accepted Order sources
// to exactly names (raw source tags and/or the special synthetic
// group tags from specialSources). Passing no names reverts to
// accepting every source: an Order subscription that hasn't called
// this accepts the full source roster plus every synthetic group,
// which is observably the same as "no filter" since this core has no
// local notion of a published-source roster to narrow against.
func (s *Subscription) SetOrderSources(names ...string) {
	s.mu.Lock()
	s.orderSrc = NewOrderSourceSet(names...)
	s.mu.Unlock()
}

func (s *Subscription) SetSnapshot(on bool) {
	s.mu.Lock()
	s.snapshot = on
	s.mu.Unlock()
}

// SetHistory marks this as a historical (time-series) subscription
// with the given "subscribe from" time floor: ADD frames go out as
// HISTORY_ADD carrying the floor instead of TICKER_ADD.
func (s *Subscription) SetHistory(timeFloor int64) {
	s.mu.Lock()
	s.history = true
	s.timeFloor = timeFloor
	s.mu.Unlock()
}

// History returns whether this is a historical subscription, and its
// time floor if so.
func (s *Subscription) History() (bool, int64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history, s.timeFloor
}

// AddSymbols adds symbols to this subscription, acquiring each in the
// shared SymbolTable. Returns the symbols that were newly added to the
// table (refs went 0->1) so the caller can queue a server ADD frame
// only for genuinely new interest.
func (s *Subscription) AddSymbols(symbols ...string) (newToServer []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sym := range symbols {
		if s.symbols[sym] {
			continue
		}
		s.symbols[sym] = true
		if sd := s.table.Acquire(sym); sd.refs == 1 {
			newToServer = append(newToServer, sym)
		}
	}
	return newToServer
}

// RemoveSymbols removes symbols from this subscription, releasing each
// in the shared table, returning the symbols whose table refcount hit
// zero (the caller should then queue a server REMOVE frame).
func (s *Subscription) RemoveSymbols(symbols ...string) (goneFromServer []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sym := range symbols {
		if !s.symbols[sym] {
			continue
		}
		delete(s.symbols, sym)
		if s.table.Release(sym) {
			goneFromServer = append(goneFromServer, sym)
		}
	}
	return goneFromServer
}

func (s *Subscription) Symbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.symbols))
	for sym := range s.symbols {
		out = append(out, sym)
	}
	return out
}

func (s *Subscription) hasSymbol(symbol string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.symbols["*"] {
		return true
	}
	return s.symbols[symbol]
}

func (s *Subscription) AddListener(l Listener) {
	s.mu.Lock()
	s.listeners[l] = true
	s.mu.Unlock()
}

func (s *Subscription) RemoveListener(l Listener) {
	s.mu.Lock()
	delete(s.listeners, l)
	s.mu.Unlock()
}

func (s *Subscription) AddListenerV2(l ListenerV2) {
	s.mu.Lock()
	s.listenersV2[l] = true
	s.mu.Unlock()
}

func (s *Subscription) RemoveListenerV2(l ListenerV2) {
	s.mu.Lock()
	delete(s.listenersV2, l)
	s.mu.Unlock()
}

// accepts reports whether ev matches this subscription's event-type
// mask, symbol set, and (for Order events) order-source filter.
func (s *Subscription) accepts(ev Event, rawOrderSource string) bool {
	s.mu.RLock()
	types := s.eventTypes
	filter := s.orderSrc
	s.mu.RUnlock()
	if types&ev.Type == 0 {
		return false
	}
	if !s.hasSymbol(ev.Symbol) {
		return false
	}
	if ev.Type == EventOrder {
		return filter.Matches(rawOrderSource)
	}
	return true
}

// Dispatch delivers ev to every listener registered on s if s's filters
// match. It does not touch the last-event cache (Manager.Dispatch
// does); fromCache only marks the delivery as a replay for V2
// listeners. rawOrderSource is only consulted for EventOrder events.
func (s *Subscription) Dispatch(ev Event, rawOrderSource string, fromCache bool) {
	if !s.accepts(ev, rawOrderSource) {
		return
	}
	s.mu.RLock()
	ls := make([]Listener, 0, len(s.listeners))
	for l := range s.listeners {
		ls = append(ls, l)
	}
	lv2 := make([]ListenerV2, 0, len(s.listenersV2))
	for l := range s.listenersV2 {
		lv2 = append(lv2, l)
	}
	s.mu.RUnlock()
	for _, l := range ls {
		l.OnEvent(ev)
	}
	for _, l := range lv2 {
		l.OnEventV2(ev, ListenerParams{
			Subscription:  s,
			FromCache:     fromCache,
			TxPending:     ev.Flags&EventFlagTxPending != 0,
			SnapshotBegin: ev.Flags&EventFlagSnapshotBegin != 0,
			SnapshotEnd:   ev.Flags&EventFlagSnapshotEnd != 0,
			SnapshotSnip:  ev.Flags&EventFlagSnapshotSnip != 0,
			RemoveEvent:   ev.Flags&EventFlagRemoveEvent != 0,
		})
	}
}

// ReplayLastEvents delivers the cached last event (if any) for every
// symbol/type this subscription covers, used right after a listener is
// registered so it sees current state without waiting for the next
// server push.
func (s *Subscription) ReplayLastEvents() {
	if !s.table.CacheEnabled() {
		return
	}
	s.mu.RLock()
	symbols := make([]string, 0, len(s.symbols))
	for sym := range s.symbols {
		symbols = append(symbols, sym)
	}
	types := s.eventTypes
	s.mu.RUnlock()
	for _, sym := range symbols {
		sd, ok := s.table.Lookup(sym)
		if !ok {
			continue
		}
		for t := EventQuote; t <= EventTimeAndSale; t <<= 1 {
			if types&t == 0 {
				continue
			}
			if ev, ok := sd.LastEvent(t); ok {
				s.Dispatch(ev, "", true)
			}
		}
	}
}
