package weburl

import "net"

// Pre-compiled CIDR networks for ranges that are not publicly routable but
// are not covered by the net.IP predicates.
// These are parsed once at package initialization.
var (
	nonPublicV4 []*net.IPNet
	nonPublicV6 []*net.IPNet

	v4compat *net.IPNet // ::/96 - deprecated IPv4-compatible
	nat64    *net.IPNet // 64:ff9b::/96 - NAT64 well-known prefix
)

func init() {
	nonPublicV4 = mustParseCIDRs(
		"0.0.0.0/8",       // "this" network
		"100.64.0.0/10",   // carrier-grade NAT
		"192.0.0.0/24",    // IETF protocol assignments
		"192.0.2.0/24",    // TEST-NET-1
		"192.88.99.0/24",  // 6to4 relay anycast
		"198.18.0.0/15",   // benchmarking
		"198.51.100.0/24", // TEST-NET-2
		"203.0.113.0/24",  // TEST-NET-3
		"240.0.0.0/4",     // reserved, includes broadcast
	)

	nonPublicV6 = mustParseCIDRs(
		"100::/64",       // discard-only
		"2001::/23",      // IETF protocol assignments, includes Teredo
		"2001:db8::/32",  // documentation
		"2002::/16",      // 6to4
		"3fff::/20",      // documentation
		"64:ff9b:1::/48", // local-use NAT64
		"fc00::/7",       // unique local
		"fec0::/10",      // deprecated site-local
	)

	v4compat = mustParseCIDRs("::/96")[0]
	nat64 = mustParseCIDRs("64:ff9b::/96")[0]
}

func mustParseCIDRs(cidrs ...string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, cidr := range cidrs {
		_, n, err := net.ParseCIDR(cidr)
		if err != nil {
			panic("invalid CIDR " + cidr + ": " + err.Error())
		}
		nets = append(nets, n)
	}
	return nets
}

// IsPrivateIP reports whether ip is anything other than a globally routable
// unicast address. A nil or malformed ip is treated as private.
// IPv4-mapped, IPv4-compatible and NAT64 addresses are judged by the IPv4
// address they embed.
func IsPrivateIP(ip net.IP) bool {
	if len(ip) != net.IPv4len && len(ip) != net.IPv6len {
		return true
	}

	// To4 unwraps ::ffff:a.b.c.d
	if v4 := ip.To4(); v4 != nil {
		return isPrivateIPv4(v4)
	}

	if embedded := embeddedIPv4(ip); embedded != nil {
		return isPrivateIPv4(embedded)
	}

	if ip.IsLoopback() || ip.IsUnspecified() || ip.IsPrivate() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() ||
		ip.IsInterfaceLocalMulticast() || ip.IsMulticast() || !ip.IsGlobalUnicast() {
		return true
	}

	return containedIn(nonPublicV6, ip)
}

func isPrivateIPv4(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsUnspecified() || ip.IsPrivate() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() ||
		ip.IsMulticast() || !ip.IsGlobalUnicast() {
		return true
	}
	return containedIn(nonPublicV4, ip)
}

// embeddedIPv4 returns the IPv4 address carried in the low 32 bits of an
// IPv4-compatible or NAT64 address, or nil.
func embeddedIPv4(ip net.IP) net.IP {
	ip16 := ip.To16()
	if ip16 == nil {
		return nil
	}
	if v4compat.Contains(ip16) || nat64.Contains(ip16) {
		return net.IPv4(ip16[12], ip16[13], ip16[14], ip16[15]).To4()
	}
	return nil
}

func containedIn(nets []*net.IPNet, ip net.IP) bool {
	for _, n := range nets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}
