package weburl

import "strings"

// RegulatorHost is the only hostname PublicRegulatorPolicy accepts.
const RegulatorHost = "www.sec.gov"

// Policy names, used in logs and metric labels.
const (
	PolicyLocalService    = "local-service"
	PolicyPublicRegulator = "public-regulator"
)

// Policy describes which URLs a Validator accepts.
// Policies are values; the constructors return fresh slices on every call.
type Policy struct {
	// Name identifies the policy in logs and metrics.
	Name string

	// Schemes lists allowed schemes, lowercase.
	Schemes []string

	// Hosts lists allowed hostnames, lowercase, matched exactly.
	Hosts []string

	// Ports lists allowed explicit ports. Empty allows any port.
	// A URL without an explicit port always passes this check.
	Ports []string

	// ResolveAndCheckIP resolves the hostname and rejects the URL if any
	// resolved address is not publicly routable.
	ResolveAndCheckIP bool
}

// LocalServicePolicy permits only the loopback MCP server.
func LocalServicePolicy() Policy {
	return Policy{
		Name:    PolicyLocalService,
		Schemes: []string{"http", "https"},
		Hosts:   []string{"localhost", "127.0.0.1", "::1"},
	}
}

// PublicRegulatorPolicy permits only https://www.sec.gov with every resolved
// address checked.
func PublicRegulatorPolicy() Policy {
	return Policy{
		Name:              PolicyPublicRegulator,
		Schemes:           []string{"https"},
		Hosts:             []string{RegulatorHost},
		Ports:             []string{"443"},
		ResolveAndCheckIP: true,
	}
}

// WithoutResolution returns a copy of p that skips DNS resolution.
// Use it only for URLs that are filtered but never dereferenced.
func (p Policy) WithoutResolution() Policy {
	p.ResolveAndCheckIP = false
	return p
}

func (p Policy) allowsScheme(scheme string) bool {
	return containsFold(p.Schemes, scheme)
}

func (p Policy) allowsHost(host string) bool {
	return containsFold(p.Hosts, host)
}

func (p Policy) allowsPort(port string) bool {
	if port == "" || len(p.Ports) == 0 {
		return true
	}
	for _, allowed := range p.Ports {
		if allowed == port {
			return true
		}
	}
	return false
}

func containsFold(list []string, s string) bool {
	for _, item := range list {
		if strings.EqualFold(item, s) {
			return true
		}
	}
	return false
}
