package mcp

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/c360studio/edgarbridge/source/weburl"
)

// maxRedirects bounds redirect chains from the MCP server.
const maxRedirects = 5

// newHTTPClient builds the client shared by every request of one Client.
// The dialer only connects to loopback addresses, and redirects must stay
// within the local-service policy.
func newHTTPClient(timeout time.Duration, validator *weburl.Validator) *http.Client {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	loopbackDialContext := func(ctx context.Context, network, addr string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, fmt.Errorf("invalid address: %w", err)
		}

		ips, err := net.DefaultResolver.LookupIPAddr(ctx, host)
		if err != nil {
			return nil, fmt.Errorf("DNS lookup failed: %w", err)
		}

		for _, ipAddr := range ips {
			if !ipAddr.IP.IsLoopback() {
				return nil, fmt.Errorf("connection to non-loopback address %s is not allowed", ipAddr.IP)
			}
		}

		for _, ipAddr := range ips {
			conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(ipAddr.IP.String(), port))
			if err == nil {
				return conn, nil
			}
		}

		return nil, fmt.Errorf("failed to connect to any resolved address for %s", host)
	}

	transport := &http.Transport{
		DialContext:           loopbackDialContext,
		ResponseHeaderTimeout: timeout,
		MaxIdleConns:          4,
		IdleConnTimeout:       90 * time.Second,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("too many redirects (max %d)", maxRedirects)
			}
			policy := weburl.LocalServicePolicy()
			if err := validator.Validate(req.Context(), req.URL.String(), policy).Err(req.URL.String(), policy); err != nil {
				return fmt.Errorf("redirect blocked: %w", err)
			}
			return nil
		},
	}
}
