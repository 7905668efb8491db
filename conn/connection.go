// Package conn implements the connection engine: address resolution
// and shuffled dialing, the reader and task-runner goroutines,
// heartbeat scheduling, reconnect-with-backoff, and the send mutex
// serializing every outbound frame. It is the glue layer binding wire,
// addr, taskqueue, records, subs, and protocol into the single
// long-lived Connection.
//
// Two goroutines per connection: the reader owns all inbound work and
// never writes to the socket; the task runner writes all outbound
// frames under the send mutex, and caller goroutines only enqueue
// tasks. Mutexes never nest in reverse: subscription mutex before
// send mutex is the only legal composition.
package conn

import (
	"context"
	"math/rand"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/feedcore/client/addr"
	"github.com/feedcore/client/cmn"
	"github.com/feedcore/client/cmn/cos"
	"github.com/feedcore/client/codec"
	"github.com/feedcore/client/config"
	"github.com/feedcore/client/log"
	"github.com/feedcore/client/protocol"
	"github.com/feedcore/client/records"
	"github.com/feedcore/client/runtime"
	"github.com/feedcore/client/stats"
	"github.com/feedcore/client/subs"
	"github.com/feedcore/client/taskqueue"
	"github.com/feedcore/client/wire"
)

// libraryVersion is sent as the "version" DESCRIBE_PROTOCOL property.
const libraryVersion = "feedcore-client/1.0"

// ReconnectTimeout sets the reconnect backoff window: a redial waits
// until a random point between ReconnectTimeout and 2*ReconnectTimeout
// after the last successful dial, or a random [0, ReconnectTimeout]
// once that much time has already passed (see backoffSleep). A var so
// tests can shrink the backoff window.
var ReconnectTimeout = 10 * time.Second

// idleTimeout/smallTimeout are the task-runner loop's two sleep
// durations: idleTimeout when the task queue is empty, smallTimeout
// between passes over a non-empty queue.
const (
	idleTimeout  = 100 * time.Millisecond
	smallTimeout = 25 * time.Millisecond
)

// readChunkSize is the reader goroutine's per-Read buffer size.
const readChunkSize = 1024

// State is a Connection's lifecycle stage.
type State int32

const (
	StateConnecting State = iota
	StateLive
	StateReconnecting
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateLive:
		return "live"
	case StateReconnecting:
		return "reconnecting"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Connection is the root aggregate: one resolved
// address set, a nullable socket, a task queue, a subscription
// manager, a record registry, framing state, protocol state, two
// goroutines (reader, task-runner), a heartbeat deadline, a send
// mutex, and the DESCRIBE_PROTOCOL property map.
type Connection struct {
	id  string
	log log.Logger
	rt  *runtime.Runtime
	cfg *config.Config

	addrList string
	addrs    []addr.Address
	dialer   TransportDialer

	props    map[string]string
	registry *records.Registry
	localRec []protocol.RecordDescriptor

	Subs *subs.Manager
	Tq   *taskqueue.Queue

	Stats *stats.Tracker

	stateVal atomic.Int32

	sendMu sync.Mutex
	sock   net.Conn

	reader *wire.Reader

	hs     hsGuard
	recMap atomic.Pointer[protocol.RecordMap]

	cctx *runtime.Context

	heartbeatDeadline int64 // mono.NanoTime() deadline; task-runner goroutine only

	stopCh   cos.StopCh
	eg       errgroup.Group // reader + task-runner goroutines, joined together on Close
	lastErr  *cos.LastError
	lastDial time.Time

	// inOwnLoop is set for the duration of each reader/task-runner loop
	// iteration's fault-handling path, so Close can tell it's being
	// called from within one of those goroutines (which must never
	// block joining itself) and defer the actual teardown instead.
	inOwnLoop atomic.Bool

	closeOnce sync.Once
}

// Option configures optional Connection construction parameters.
type Option func(*Connection)

func WithLogger(l log.Logger) Option          { return func(c *Connection) { c.log = l } }
func WithConfig(cfg *config.Config) Option    { return func(c *Connection) { c.cfg = cfg } }
func WithRuntime(rt *runtime.Runtime) Option  { return func(c *Connection) { c.rt = rt } }
func WithDialer(d TransportDialer) Option     { return func(c *Connection) { c.dialer = d } }
func WithRegistry(r *records.Registry) Option { return func(c *Connection) { c.registry = r } }
func WithStats(t *stats.Tracker) Option       { return func(c *Connection) { c.Stats = t } }

// WithProperty adds (or overrides) one DESCRIBE_PROTOCOL client
// property beyond the built-in "version" and "opt".
func WithProperty(key, value string) Option {
	return func(c *Connection) { c.props[key] = value }
}

// Dial parses addrList, resolves and connects to one of its
// endpoints, performs the DESCRIBE_PROTOCOL / DESCRIBE_RECORDS
// handshake, and starts the reader and task-runner goroutines. It
// blocks until the first socket connects; the handshake itself
// completes asynchronously (see HandshakeState).
func Dial(ctx context.Context, addrList string, opts ...Option) (*Connection, error) {
	addrs, err := addr.Parse(addrList)
	if err != nil {
		return nil, err
	}
	c := &Connection{
		addrList: addrList,
		addrs:    addrs,
		props:    map[string]string{"version": libraryVersion, "opt": "hs"},
		lastErr:  cos.NewLastError(),
	}
	for _, o := range opts {
		o(c)
	}
	if c.log == nil && c.rt != nil {
		c.log = c.rt.Logger
	}
	if c.log == nil {
		c.log = log.Discard{}
	}
	if c.rt == nil {
		c.rt = runtime.New(c.log)
	}
	if c.cfg == nil {
		c.cfg = config.Default()
	}
	if c.dialer == nil {
		c.dialer = DefaultDialer{}
	}
	if c.registry == nil {
		c.registry = records.DefaultRegistry()
	}
	if c.Stats == nil {
		c.Stats = stats.Noop()
	}
	c.id = cos.GenConnID()
	c.localRec = localRecordDescriptors(c.registry)
	c.stopCh.Init()
	cmn.Rom.Set(c.cfg)

	c.stateVal.Store(int32(StateConnecting))
	c.cctx = runtime.NewContext(c.subsystems(ctx))
	if err := c.cctx.Init(); err != nil {
		return nil, errors.Wrapf(err, "conn: dial %s", addrList)
	}
	c.stateVal.Store(int32(StateLive))
	c.lastDial = time.Now()

	// Installation order matters: task-runner first so it's ready to
	// serve DESCRIBE_PROTOCOL the instant it's enqueued, then the
	// reader. Both run under the same errgroup so Close can join them
	// with one Wait instead of tracking two waitgroup slots by hand.
	c.eg.Go(func() error { c.taskRunnerLoop(); return nil })
	c.eg.Go(func() error { c.readerLoop(); return nil })

	c.enqueueHandshake()
	return c, nil
}

// dialOnce performs one resolve+shuffle+connect attempt across every
// address in c.addrs: each address is resolved to its A/AAAA records,
// the combined candidate list is shuffled, and candidates are tried in
// order until one connects.
func (c *Connection) dialOnce(ctx context.Context) error {
	type candidate struct {
		a  addr.Address
		ip net.IP
	}
	var candidates []candidate
	for _, a := range c.addrs {
		ips, err := net.DefaultResolver.LookupIPAddr(ctx, a.Host)
		if err != nil {
			c.logf("resolve %s: %v", a.Host, err)
			continue
		}
		for _, ip := range ips {
			candidates = append(candidates, candidate{a: a, ip: ip.IP})
		}
	}
	if len(candidates) == 0 {
		return cos.NewErr(cos.HostNotFound, "no address in %q resolved", c.addrList)
	}
	rand.Shuffle(len(candidates), func(i, j int) { candidates[i], candidates[j] = candidates[j], candidates[i] })

	var lastErr error
	for _, cd := range candidates {
		dialAddr := cd.a
		dialAddr.Host = cd.ip.String()
		conn, err := c.dialer.Dial(ctx, dialAddr)
		if err != nil {
			lastErr = err
			continue
		}
		c.sendMu.Lock()
		c.sock = conn
		c.sendMu.Unlock()
		c.reader = wire.NewReader(nil, 0)
		return nil
	}
	if lastErr == nil {
		lastErr = cos.NewErr(cos.GenericSocket, "all candidates failed")
	}
	return lastErr
}

// reconnect is the reconnect branch the reader goroutine enters on any
// socket or protocol fault: close the socket, clear negotiated state,
// backoff and redial (again after every failed dial, until one succeeds
// or the connection is closed), then resend the handshake and replay
// every live subscription.
func (c *Connection) reconnect() error {
	if !cmn.Rom.ReestablishConnections() {
		return errors.New("conn: reestablishConnections disabled")
	}
	c.stateVal.Store(int32(StateReconnecting))
	c.Stats.Reconnects.Inc()

	c.sendMu.Lock()
	if c.sock != nil {
		_ = c.sock.Close()
		c.sock = nil
	}
	c.sendMu.Unlock()
	if c.reader != nil {
		c.reader.Close()
	}
	c.hs.reset()
	c.recMap.Store(nil)

	ctx := context.Background()
	for {
		c.backoffSleep()
		if c.stopCh.IsClosed() {
			return errors.New("conn: closed while reconnecting")
		}
		err := c.dialOnce(ctx)
		if err == nil {
			break
		}
		c.logf("%v", errors.Wrap(err, "conn: reconnect"))
	}
	c.lastDial = time.Now()
	c.stateVal.Store(int32(StateLive))
	c.enqueueHandshake()
	c.resubscribeAll()
	return nil
}

// backoffSleep waits a randomized fraction of [ReconnectTimeout,
// 2*ReconnectTimeout] remaining since the last successful dial, an
// age-relative jitter so a reconnect right after a long-lived
// connection drops waits less than one right after a flapping dial.
func (c *Connection) backoffSleep() {
	age := time.Since(c.lastDial)
	remaining := ReconnectTimeout - age
	if remaining < 0 {
		remaining = 0
	}
	jitterSpan := ReconnectTimeout
	sleep := remaining + time.Duration(rand.Int63n(int64(jitterSpan)+1))
	if sleep <= 0 {
		return
	}
	select {
	case <-time.After(sleep):
	case <-c.stopCh.Listen():
	}
}

// ID returns this connection's short, log-friendly identifier.
func (c *Connection) ID() string { return c.id }

// State reports the connection's current lifecycle stage.
func (c *Connection) State() State { return State(c.stateVal.Load()) }

// Close tears the connection down: signals both goroutines,
// closes the socket (unblocking the reader), joins, and deinitializes
// every subsystem. If invoked while the reader goroutine is inside
// dispatch or fault handling (a listener callback calling Close, or
// the engine reacting to its own fatal condition), the teardown is
// deferred onto the shared Runtime's close queue instead, so the
// goroutine never joins itself; any outside Close drains that queue
// first.
func (c *Connection) Close() {
	if c.inOwnLoop.Load() {
		c.rt.DeferClose(c.doClose)
		return
	}
	c.rt.Drain()
	c.doClose()
}

func (c *Connection) doClose() {
	c.closeOnce.Do(func() {
		c.stateVal.Store(int32(StateClosing))
		// signal and join first: the reader unblocks on the socket close,
		// the task runner on the stop channel; only then is it safe to
		// tear subsystems down underneath them
		c.stopCh.Close()
		c.sendMu.Lock()
		if c.sock != nil {
			_ = c.sock.Close()
		}
		c.sendMu.Unlock()
		_ = c.eg.Wait()
		c.cctx.Deinit()
		c.stateVal.Store(int32(StateClosed))
	})
}

// subsystems is the connection context's fixed init vector: each slot
// brings up (and, through its Deinit, releases) one subsystem, in the
// documented order. The four domain-view slots (record-transcoder
// through regional-book) stay nil here — out of scope, their positions
// reserved.
func (c *Connection) subsystems(ctx context.Context) [runtime.NumSubsystems]runtime.Subsystem {
	var v [runtime.NumSubsystems]runtime.Subsystem
	for id := runtime.SubsystemNetwork; id < runtime.NumSubsystems; id++ {
		v[id] = runtime.Subsystem{ID: id}
	}
	v[runtime.SubsystemNetwork].Init = func() (any, error) {
		return nil, c.dialOnce(ctx)
	}
	v[runtime.SubsystemNetwork].Deinit = func(any) {
		c.sendMu.Lock()
		if c.sock != nil {
			_ = c.sock.Close()
			c.sock = nil
		}
		c.sendMu.Unlock()
	}
	v[runtime.SubsystemDataStructures].Init = func() (any, error) {
		c.Tq = taskqueue.New()
		return c.Tq, nil
	}
	v[runtime.SubsystemDataStructures].Deinit = func(any) { c.Tq.Destroy() }
	v[runtime.SubsystemBufferedInput].Init = func() (any, error) {
		// the framing reader itself is created by dialOnce (and again on
		// every reconnect); this slot owns its final release
		return c.reader, nil
	}
	v[runtime.SubsystemBufferedInput].Deinit = func(any) {
		if c.reader != nil {
			c.reader.Close()
		}
	}
	v[runtime.SubsystemRecordBuffers].Deinit = func(any) { c.recMap.Store(nil) }
	v[runtime.SubsystemServerMsgProcessor].Deinit = func(any) { c.hs.reset() }
	v[runtime.SubsystemEventSubscription].Init = func() (any, error) {
		c.Subs = subs.NewManager(!c.cfg.Subscriptions.DisableLastEventStorage)
		return c.Subs, nil
	}
	return v
}

func (c *Connection) logf(format string, args ...any) {
	c.log.Infof("[%s] "+format, append([]any{c.id}, args...)...)
}

// localServerID resolves a record name to the id this client itself
// advertises for it, used as the wire record id when a legacy peer
// never sends DESCRIBE_RECORDS.
func (c *Connection) localServerID(name string) (int32, bool) {
	for _, d := range c.localRec {
		if d.Name == name {
			return d.ServerID, true
		}
	}
	return 0, false
}

func localRecordDescriptors(reg *records.Registry) []protocol.RecordDescriptor {
	names := []string{"Quote", "Trade", "Order", "Summary", "Profile", "TimeAndSale"}
	descs := make([]protocol.RecordDescriptor, 0, len(names))
	for i, name := range names {
		schema, ok := reg.Lookup(name)
		if !ok {
			continue
		}
		fields := make([]records.ServerField, len(schema.Fields))
		for j, f := range schema.Fields {
			fields[j] = records.ServerField{Name: f.Name, Serialization: f.Spec.Serialization, Presentation: wirePresentationFor(f.Spec.Presentation)}
		}
		descs = append(descs, protocol.RecordDescriptor{ServerID: int32(i), Name: name, Fields: fields})
	}
	return descs
}

// wirePresentationFor maps this client's local presentation taxonomy
// down to what the wire can actually carry: only "decimal-from-int" is
// a presentation the wire itself distinguishes, so PresTime/PresFlags
// (relabelings this client applies after decoding a plain int) both
// advertise as WirePresPlain.
func wirePresentationFor(p codec.PresKind) codec.WirePresentation {
	if p == codec.PresDecimal {
		return codec.WirePresDecimal
	}
	return codec.WirePresPlain
}
