package subs_test

import (
	"github.com/feedcore/client/subs"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Manager refcounted subscriptions", func() {
	var mgr *subs.Manager

	BeforeEach(func() {
		mgr = subs.NewManager(true)
	})

	It("reports a symbol as newly acquired only the first time any subscription adds it", func() {
		a := mgr.NewSubscription(subs.EventTrade)
		b := mgr.NewSubscription(subs.EventTrade)

		Expect(a.AddSymbols("IBM")).To(Equal([]string{"IBM"}))
		Expect(b.AddSymbols("IBM")).To(BeEmpty(), "second subscriber shares the existing table entry")
	})

	It("reports a symbol as released only once every subscription has dropped it", func() {
		a := mgr.NewSubscription(subs.EventTrade)
		b := mgr.NewSubscription(subs.EventTrade)
		a.AddSymbols("IBM")
		b.AddSymbols("IBM")

		Expect(a.RemoveSymbols("IBM")).To(BeEmpty(), "b still holds a reference")
		Expect(b.RemoveSymbols("IBM")).To(Equal([]string{"IBM"}))
	})

	It("dispatches an event only to subscriptions whose type mask and symbol set match", func() {
		trades := mgr.NewSubscription(subs.EventTrade)
		trades.AddSymbols("IBM")
		quotes := mgr.NewSubscription(subs.EventQuote)
		quotes.AddSymbols("IBM")

		var tradeSeen, quoteSeen int
		trades.AddListener(subs.ListenerFunc(func(subs.Event) { tradeSeen++ }))
		quotes.AddListener(subs.ListenerFunc(func(subs.Event) { quoteSeen++ }))

		mgr.Dispatch(subs.Event{Type: subs.EventTrade, Symbol: "IBM", Fields: map[string]any{"Price": 1.0}}, "")
		Expect(tradeSeen).To(Equal(1))
		Expect(quoteSeen).To(Equal(0))
	})

	It("does not dispatch to a subscription for a symbol it never added", func() {
		trades := mgr.NewSubscription(subs.EventTrade)
		trades.AddSymbols("IBM")

		var seen int
		trades.AddListener(subs.ListenerFunc(func(subs.Event) { seen++ }))
		mgr.Dispatch(subs.Event{Type: subs.EventTrade, Symbol: "AAPL"}, "")
		Expect(seen).To(Equal(0))
	})

	It("caches the last event per symbol/type and serves it via GetLastEvent", func() {
		trades := mgr.NewSubscription(subs.EventTrade)
		trades.AddSymbols("IBM")
		mgr.Dispatch(subs.Event{Type: subs.EventTrade, Symbol: "IBM", Fields: map[string]any{"Price": 42.0}}, "")

		ev, ok := mgr.GetLastEvent("IBM", subs.EventTrade)
		Expect(ok).To(BeTrue())
		Expect(ev.Fields["Price"]).To(Equal(42.0))
	})

	It("never caches when the manager was built with caching disabled", func() {
		noCache := subs.NewManager(false)
		trades := noCache.NewSubscription(subs.EventTrade)
		trades.AddSymbols("IBM")
		noCache.Dispatch(subs.Event{Type: subs.EventTrade, Symbol: "IBM"}, "")

		_, ok := noCache.GetLastEvent("IBM", subs.EventTrade)
		Expect(ok).To(BeFalse())
	})

	It("stops dispatching to a subscription once it is closed", func() {
		trades := mgr.NewSubscription(subs.EventTrade)
		trades.AddSymbols("IBM")
		var seen int
		trades.AddListener(subs.ListenerFunc(func(subs.Event) { seen++ }))

		mgr.Close(trades)
		mgr.Dispatch(subs.Event{Type: subs.EventTrade, Symbol: "IBM"}, "")
		Expect(seen).To(Equal(0))
	})

	It("exposes an event's transaction/snapshot flags to V2 listeners only", func() {
		trades := mgr.NewSubscription(subs.EventTrade)
		trades.AddSymbols("IBM")

		var params subs.ListenerParams
		trades.AddListenerV2(subs.ListenerV2Func(func(_ subs.Event, p subs.ListenerParams) { params = p }))

		ev := subs.Event{
			Type:   subs.EventTrade,
			Symbol: "IBM",
			Flags:  subs.EventFlagSnapshotBegin | subs.EventFlagTxPending,
		}
		mgr.Dispatch(ev, "")

		Expect(params.SnapshotBegin).To(BeTrue())
		Expect(params.TxPending).To(BeTrue())
		Expect(params.SnapshotEnd).To(BeFalse())
		Expect(params.SnapshotSnip).To(BeFalse())
		Expect(params.RemoveEvent).To(BeFalse())
		Expect(params.FromCache).To(BeFalse())
	})
})

var _ = Describe("wildcard and replay", func() {
	It("dispatches every symbol to a subscription holding the wildcard", func() {
		mgr := subs.NewManager(false)
		all := mgr.NewSubscription(subs.EventTrade)
		all.AddSymbols("*")

		var symbols []string
		all.AddListener(subs.ListenerFunc(func(ev subs.Event) { symbols = append(symbols, ev.Symbol) }))
		mgr.Dispatch(subs.Event{Type: subs.EventTrade, Symbol: "IBM"}, "")
		mgr.Dispatch(subs.Event{Type: subs.EventTrade, Symbol: "MSFT"}, "")
		Expect(symbols).To(Equal([]string{"IBM", "MSFT"}))
	})

	It("replays cached last events to a late listener, marked FromCache", func() {
		mgr := subs.NewManager(true)
		trades := mgr.NewSubscription(subs.EventTrade)
		trades.AddSymbols("IBM")
		mgr.Dispatch(subs.Event{Type: subs.EventTrade, Symbol: "IBM", Fields: map[string]any{"Price": 7.0}}, "")

		var replayed []subs.ListenerParams
		trades.AddListenerV2(subs.ListenerV2Func(func(_ subs.Event, p subs.ListenerParams) {
			replayed = append(replayed, p)
		}))
		trades.ReplayLastEvents()
		Expect(replayed).To(HaveLen(1))
		Expect(replayed[0].FromCache).To(BeTrue())
	})

	It("replays nothing when the cache is disabled", func() {
		mgr := subs.NewManager(false)
		trades := mgr.NewSubscription(subs.EventTrade)
		trades.AddSymbols("IBM")
		mgr.Dispatch(subs.Event{Type: subs.EventTrade, Symbol: "IBM"}, "")

		var count int
		trades.AddListener(subs.ListenerFunc(func(subs.Event) { count++ }))
		trades.ReplayLastEvents()
		Expect(count).To(BeZero())
	})
})

var _ = Describe("Order source filtering", func() {
	It("accepts everything when no filter has been set", func() {
		var s subs.OrderSourceSet
		Expect(s.Matches("NYSE")).To(BeTrue())
		Expect(s.Matches("COMPOSITE_ASK")).To(BeTrue())
	})

	It("matches a raw filter only against the exact source name", func() {
		f := subs.NewOrderSourceSet("NYSE")
		Expect(f.Matches("NYSE")).To(BeTrue())
		Expect(f.Matches("NASDAQ")).To(BeFalse())
	})

	It("matches a synthetic sub-side source against its accepted parent group", func() {
		f := subs.NewOrderSourceSet("COMPOSITE")
		Expect(f.Matches("COMPOSITE_ASK")).To(BeTrue())
		Expect(f.Matches("COMPOSITE_BID")).To(BeTrue())
		Expect(f.Matches("REGIONAL_ASK")).To(BeFalse())
	})

	It("recognizes the closed set of special source tags", func() {
		Expect(subs.IsSpecialSource("AGGREGATE_BID")).To(BeTrue())
		Expect(subs.IsSpecialSource("NYSE")).To(BeFalse())
	})

	It("dispatches Order events only to subscriptions whose accepted sources match", func() {
		mgr := subs.NewManager(false)
		narrow := mgr.NewSubscription(subs.EventOrder)
		narrow.AddSymbols("IBM")
		narrow.SetOrderSources("COMPOSITE")

		var seen []string
		narrow.AddListener(subs.ListenerFunc(func(ev subs.Event) { seen = append(seen, ev.Symbol) }))

		mgr.Dispatch(subs.Event{Type: subs.EventOrder, Symbol: "IBM"}, "COMPOSITE_BID")
		mgr.Dispatch(subs.Event{Type: subs.EventOrder, Symbol: "IBM"}, "REGIONAL_BID")
		Expect(seen).To(Equal([]string{"IBM"}))
	})
})
