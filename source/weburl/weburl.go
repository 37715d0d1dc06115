package weburl

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"path"
	"strings"
)

// Reason classifies why a URL was rejected.
type Reason string

// Rejection reasons. The string values are stable and appear in logs and
// metric labels.
const (
	ReasonNone                  Reason = ""
	ReasonMalformedURL          Reason = "malformed_url"
	ReasonSchemeNotAllowed      Reason = "scheme_not_allowed"
	ReasonHostNotAllowed        Reason = "host_not_allowed"
	ReasonDNSResolutionFailed   Reason = "dns_resolution_failed"
	ReasonUnsafeResolvedAddress Reason = "unsafe_resolved_address"
)

// Result is the outcome of a validation.
// Exactly one of Canonical and Reason is set.
type Result struct {
	// Canonical is the normalized URL, set only when the URL was accepted.
	Canonical string

	// Reason is set only when the URL was rejected.
	Reason Reason

	// Detail is a human-readable explanation of the rejection.
	Detail string
}

// OK reports whether the URL was accepted.
func (r Result) OK() bool {
	return r.Reason == ReasonNone
}

// Err converts a rejected Result into a *RejectedError. It returns nil for an
// accepted Result.
func (r Result) Err(rawURL string, policy Policy) error {
	if r.OK() {
		return nil
	}
	return &RejectedError{URL: rawURL, Policy: policy.Name, Reason: r.Reason, Detail: r.Detail}
}

func accepted(canonical string) Result {
	return Result{Canonical: canonical}
}

func rejected(reason Reason, format string, args ...any) Result {
	return Result{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// RejectedError reports a URL that failed validation.
type RejectedError struct {
	URL    string
	Policy string
	Reason Reason
	Detail string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("url %q rejected by %s policy: %s: %s", e.URL, e.Policy, e.Reason, e.Detail)
}

// Resolver looks up the addresses of a hostname. *net.Resolver satisfies it.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// Validator checks URLs against a Policy.
// It holds no mutable state and is safe for concurrent use.
type Validator struct {
	resolver Resolver
}

// NewValidator creates a Validator. A nil resolver uses net.DefaultResolver.
func NewValidator(resolver Resolver) *Validator {
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	return &Validator{resolver: resolver}
}

// Validate checks rawURL against policy using the system resolver.
func Validate(ctx context.Context, rawURL string, policy Policy) Result {
	return NewValidator(nil).Validate(ctx, rawURL, policy)
}

// Validate checks rawURL against policy and returns the canonical form or the
// first failing check. It never returns an error.
func (v *Validator) Validate(ctx context.Context, rawURL string, policy Policy) Result {
	if strings.TrimSpace(rawURL) == "" {
		return rejected(ReasonMalformedURL, "empty URL")
	}
	if strings.ContainsAny(rawURL, " \t\r\n\\") {
		return rejected(ReasonMalformedURL, "URL contains whitespace or backslash")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rejected(ReasonMalformedURL, "cannot parse URL: %v", err)
	}
	if parsed.Scheme == "" {
		return rejected(ReasonMalformedURL, "URL has no scheme")
	}

	scheme := strings.ToLower(parsed.Scheme)
	if !policy.allowsScheme(scheme) {
		return rejected(ReasonSchemeNotAllowed, "scheme %q is not allowed", scheme)
	}

	if parsed.Opaque != "" {
		return rejected(ReasonMalformedURL, "URL has no authority component")
	}
	if parsed.User != nil {
		return rejected(ReasonMalformedURL, "URL must not carry user info")
	}

	host := normalizeHost(parsed.Hostname())
	if host == "" {
		return rejected(ReasonHostNotAllowed, "URL has no host")
	}
	if !policy.allowsHost(host) {
		return rejected(ReasonHostNotAllowed, "host %q is not allowed", host)
	}

	port := parsed.Port()
	if !policy.allowsPort(port) {
		return rejected(ReasonHostNotAllowed, "port %q is not allowed", port)
	}

	if policy.ResolveAndCheckIP {
		if res := v.checkResolved(ctx, host); !res.OK() {
			return res
		}
	}

	return accepted(canonicalize(parsed, scheme, host, port))
}

// checkResolved resolves host and rejects it if any address is not public.
// Checking every address blocks DNS rebinding through a mixed answer set.
func (v *Validator) checkResolved(ctx context.Context, host string) Result {
	if ip := net.ParseIP(host); ip != nil {
		if IsPrivateIP(ip) {
			return rejected(ReasonUnsafeResolvedAddress, "address %s is not publicly routable", ip)
		}
		return Result{}
	}

	addrs, err := v.resolver.LookupIPAddr(ctx, host)
	if err != nil {
		return rejected(ReasonDNSResolutionFailed, "resolve %s: %v", host, err)
	}
	if len(addrs) == 0 {
		return rejected(ReasonDNSResolutionFailed, "resolve %s: no addresses", host)
	}

	for _, addr := range addrs {
		if IsPrivateIP(addr.IP) {
			return rejected(ReasonUnsafeResolvedAddress, "%s resolves to %s which is not publicly routable", host, addr.IP)
		}
	}
	return Result{}
}

func normalizeHost(host string) string {
	return strings.TrimSuffix(strings.ToLower(host), ".")
}

var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
}

// canonicalize rebuilds the URL from its parsed components so the result
// parses back to itself.
func canonicalize(parsed *url.URL, scheme, host, port string) string {
	hostport := host
	if strings.Contains(host, ":") {
		hostport = "[" + host + "]"
	}
	if port != "" && defaultPorts[scheme] != port {
		hostport += ":" + port
	}

	p := parsed.Path
	if p != "" {
		p = path.Clean(p)
		if p == "/" || p == "." {
			p = ""
		}
	}

	out := url.URL{
		Scheme:   scheme,
		Host:     hostport,
		Path:     p,
		RawQuery: parsed.RawQuery,
	}
	return out.String()
}

// ExtractDomain extracts the domain name from a URL.
// Returns an empty string if the URL is invalid.
func ExtractDomain(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return normalizeHost(parsed.Hostname())
}
