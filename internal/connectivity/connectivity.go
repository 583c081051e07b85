// Package connectivity reports whether the analysis service is reachable.
// The answer is taken fresh on every call so callers can check at the
// moment of dispatch.
package connectivity

import (
	"context"
	"net"
	"sync/atomic"
	"time"
)

// Checker reports the current online/offline signal.
type Checker interface {
	Online(ctx context.Context) bool
}

// Static is a switchable signal, used for --offline and in tests.
type Static struct {
	online atomic.Bool
}

// NewStatic creates a signal with the given initial value.
func NewStatic(online bool) *Static {
	s := &Static{}
	s.online.Store(online)
	return s
}

func (s *Static) Online(context.Context) bool { return s.online.Load() }

// Set flips the signal.
func (s *Static) Set(online bool) { s.online.Store(online) }

// Probe dials a TCP address each time it is asked.
type Probe struct {
	Addr    string
	Timeout time.Duration
}

// Online reports whether a TCP connection to Addr can be opened.
func (p Probe) Online(ctx context.Context) bool {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", p.Addr)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}
