package weburl

import (
	"context"
	"fmt"
	"net"
)

// StaticResolver answers lookups from a fixed host to address table.
// Hosts missing from the table fail to resolve. It is meant for tests and for
// pinning the regulator host in offline environments.
type StaticResolver map[string][]string

// LookupIPAddr implements Resolver.
func (r StaticResolver) LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, ok := r[host]
	if !ok {
		return nil, &net.DNSError{Err: "no such host", Name: host, IsNotFound: true}
	}
	addrs := make([]net.IPAddr, 0, len(entries))
	for _, entry := range entries {
		ip := net.ParseIP(entry)
		if ip == nil {
			return nil, fmt.Errorf("static resolver: invalid address %q for %s", entry, host)
		}
		addrs = append(addrs, net.IPAddr{IP: ip})
	}
	return addrs, nil
}
