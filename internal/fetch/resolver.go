package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"time"
)

// RoundRobinResolver resolves hostnames against an explicit list of DNS
// servers, rotating through them with an atomic counter so concurrent Fetch
// calls never lose updates. Anti-filtering DNS services frequently answer
// for hosts the system resolver cannot reach.
type RoundRobinResolver struct {
	servers []string
	timeout time.Duration
	next    atomic.Uint64
}

// NewRoundRobinResolver builds a resolver over the given "ip:port" server
// list. Servers without a port get :53 appended.
func NewRoundRobinResolver(servers []string, timeout time.Duration) *RoundRobinResolver {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	normalized := make([]string, 0, len(servers))
	for _, s := range servers {
		if _, _, err := net.SplitHostPort(s); err != nil {
			s = net.JoinHostPort(s, "53")
		}
		normalized = append(normalized, s)
	}
	return &RoundRobinResolver{servers: normalized, timeout: timeout}
}

// Resolve returns an IPv4 (preferred) or IPv6 literal for host, asking the
// next DNS server in the rotation.
func (r *RoundRobinResolver) Resolve(ctx context.Context, host string) (string, error) {
	if len(r.servers) == 0 {
		return "", errors.New("no dns servers configured")
	}
	server := r.pick()
	resolver := &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, _ string) (net.Conn, error) {
			d := net.Dialer{Timeout: r.timeout}
			return d.DialContext(ctx, network, server)
		},
	}

	addrs, err := resolver.LookupIPAddr(ctx, host)
	if err != nil {
		return "", fmt.Errorf("resolve %s via %s: %w", host, server, err)
	}
	if len(addrs) == 0 {
		return "", fmt.Errorf("resolve %s via %s: no addresses", host, server)
	}
	for _, a := range addrs {
		if v4 := a.IP.To4(); v4 != nil {
			return v4.String(), nil
		}
	}
	return addrs[0].IP.String(), nil
}

// pick advances the rotation and returns the next server address.
func (r *RoundRobinResolver) pick() string {
	n := r.next.Add(1) - 1
	return r.servers[n%uint64(len(r.servers))]
}
