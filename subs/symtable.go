// Package subs implements the per-connection subscription manager: a
// refcounted symbol table, Subscription objects grouping symbols/event
// types/listeners, and event dispatch with order-source filtering and
// an optional last-event cache. The symbol table is sharded by hash so
// concurrently subscribing goroutines don't contend on one lock.
package subs

import (
	"sync"

	"github.com/feedcore/client/cmn/cos"
)

const symTableShards = 16

// SymbolData is the refcounted per-symbol state shared by every
// Subscription that currently includes the symbol: its last event per
// type (when the cache is enabled) and how many subscriptions
// reference it, so the connection knows when it can tell the server to
// stop sending a symbol.
type SymbolData struct {
	mu        sync.RWMutex
	Symbol    string
	refs      int
	lastEvent map[EventType]Event
}

func (sd *SymbolData) SetLastEvent(ev Event) {
	sd.mu.Lock()
	if sd.lastEvent == nil {
		sd.lastEvent = map[EventType]Event{}
	}
	sd.lastEvent[ev.Type] = ev
	sd.mu.Unlock()
}

func (sd *SymbolData) LastEvent(t EventType) (Event, bool) {
	sd.mu.RLock()
	defer sd.mu.RUnlock()
	ev, ok := sd.lastEvent[t]
	return ev, ok
}

// SymbolTable is the connection-wide registry of SymbolData, sharded
// by cos.SymbolHash64 to spread lock contention across concurrently
// subscribing goroutines.
type SymbolTable struct {
	shards [symTableShards]struct {
		mu   sync.Mutex
		data map[string]*SymbolData
	}
	cacheEnabled bool
}

func NewSymbolTable(cacheEnabled bool) *SymbolTable {
	t := &SymbolTable{cacheEnabled: cacheEnabled}
	for i := range t.shards {
		t.shards[i].data = map[string]*SymbolData{}
	}
	return t
}

func (t *SymbolTable) shardFor(symbol string) *struct {
	mu   sync.Mutex
	data map[string]*SymbolData
} {
	idx := cos.SymbolHash64(symbol) % uint64(symTableShards)
	return &t.shards[idx]
}

// Acquire returns the SymbolData for symbol, creating it with refs=1
// if absent, or incrementing refs if present.
func (t *SymbolTable) Acquire(symbol string) *SymbolData {
	sh := t.shardFor(symbol)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sd, ok := sh.data[symbol]
	if !ok {
		sd = &SymbolData{Symbol: symbol}
		sh.data[symbol] = sd
	}
	sd.refs++
	return sd
}

// Release decrements symbol's refcount, removing it from the table
// (and returning true) once it drops to zero — the caller should then
// tell the server to stop streaming the symbol.
func (t *SymbolTable) Release(symbol string) (removed bool) {
	sh := t.shardFor(symbol)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sd, ok := sh.data[symbol]
	if !ok {
		return false
	}
	sd.refs--
	if sd.refs <= 0 {
		delete(sh.data, symbol)
		return true
	}
	return false
}

// Lookup returns symbol's SymbolData without changing its refcount.
func (t *SymbolTable) Lookup(symbol string) (*SymbolData, bool) {
	sh := t.shardFor(symbol)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sd, ok := sh.data[symbol]
	return sd, ok
}

// CacheEnabled reports whether last-event caching is active for this
// table (config.Subscriptions.DisableLastEventStorage inverted).
func (t *SymbolTable) CacheEnabled() bool { return t.cacheEnabled }
