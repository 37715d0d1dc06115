// Package weburl classifies outbound URLs as allowed or rejected before any
// network hop is made on their behalf.
//
// # Overview
//
// Every URL the bridge touches passes through a Validator together with a
// Policy. Two policies exist:
//
//   - LocalServicePolicy: the MCP server itself. Only http/https on the
//     literal loopback hosts localhost, 127.0.0.1 and ::1. No DNS lookup.
//   - PublicRegulatorPolicy: SEC pages. Only https on www.sec.gov, and every
//     address the hostname resolves to must be publicly routable.
//
// # Validation
//
// Validate never returns an error. A malformed or disallowed URL is a normal
// outcome described by a Result:
//
//	res := v.Validate(ctx, raw, weburl.PublicRegulatorPolicy())
//	if !res.OK() {
//	    logger.Warn("navigation blocked", "reason", res.Reason, "detail", res.Detail)
//	    return false
//	}
//	navigate(res.Canonical)
//
// Steps run in order and stop at the first failure: parse (malformed_url),
// scheme (scheme_not_allowed), host and port (host_not_allowed), resolution
// (dns_resolution_failed, unsafe_resolved_address).
//
// Hostname allow-listing alone is not enough: an allowed name can still
// resolve to an internal address after a DNS rebinding. Policies with
// ResolveAndCheckIP look at every resolved address.
//
// # Canonical form
//
// Accepted URLs are re-serialized from their parsed components: lowercase
// scheme and host, default port dropped, path cleaned with no trailing slash,
// query kept, fragment dropped. Canonicalization is idempotent, so callers can
// append path segments to a canonical base deterministically.
//
// # IP address classes
//
// IsPrivateIP reports addresses that are not globally routable unicast:
//
//   - IPv4 private, loopback, link-local, multicast, broadcast, 0.0.0.0/8
//   - CGNAT (100.64.0.0/10) and the IETF documentation/benchmark blocks
//   - Reserved 240.0.0.0/4
//   - IPv6 loopback, unspecified, link-local, multicast, unique local
//     (fc00::/7), deprecated site-local (fec0::/10), documentation
//   - 6to4, Teredo and local-use NAT64 prefixes
//
// IPv4-mapped, IPv4-compatible and NAT64 (64:ff9b::/96) addresses are
// unwrapped and the embedded IPv4 address is checked again.
package weburl
