package conn

import (
	"net"
	"strings"
)

const defaultPort = "27017"

// Endpoint represents the location of a network resource or service.
type Endpoint string

// Canonicalize takes an endpoint and applies some transformations to it.
func (ep Endpoint) Canonicalize() Endpoint {
	s := strings.ToLower(string(ep))
	if !strings.Contains(s, "sock") {
		_, _, err := net.SplitHostPort(s)
		if err != nil && strings.Contains(err.Error(), "missing port in address") {
			s += ":" + defaultPort
		}
	}

	return Endpoint(s)
}

// Host returns the host part of the endpoint.
func (ep Endpoint) Host() string {
	host, _, err := net.SplitHostPort(string(ep))
	if err != nil {
		return string(ep)
	}
	return host
}
