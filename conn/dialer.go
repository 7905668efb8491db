package conn

import (
	"context"
	"fmt"
	"net"

	"github.com/feedcore/client/addr"
)

// TransportDialer opens the raw byte-stream connection for one
// resolved Address, including whatever codec chain (tls+, gzip+) the
// address carries. TLS/gzip implementation stays out of the core: the
// engine only recognizes a codec chain's presence via addr.Parse and
// routes to whatever TransportDialer the caller supplied, never
// terminating TLS or inflating gzip itself.
type TransportDialer interface {
	Dial(ctx context.Context, a addr.Address) (net.Conn, error)
}

// DefaultDialer is a plain TCP TransportDialer. It refuses any address
// carrying a codec chain (tls+, gzip+): those require a pluggable
// TransportDialer a caller supplies via WithDialer, since implementing
// transport codecs is out of scope for the core.
type DefaultDialer struct {
	// Dialer is the underlying net.Dialer used for plain (no codec
	// chain) addresses. The zero value is a reasonable default.
	Dialer net.Dialer
}

func (d DefaultDialer) Dial(ctx context.Context, a addr.Address) (net.Conn, error) {
	if len(a.Codecs) > 0 {
		return nil, fmt.Errorf("conn: address %s:%d requires codec chain %v but no TransportDialer was configured (see WithDialer)", a.Host, a.Port, a.Codecs)
	}
	return d.Dialer.DialContext(ctx, "tcp", net.JoinHostPort(a.Host, fmt.Sprintf("%d", a.Port)))
}
