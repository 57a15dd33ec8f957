// Package ipchecker guards the operational stats endpoint. It resolves
// the caller's address from the proxy headers the deployment sets and
// answers whether that address falls inside the operator's trusted subnet.
package ipchecker

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

// IPChecker decides whether a request originates from the trusted subnet.
// The zero subnet means no caller is trusted.
type IPChecker struct {
	trustedNet *net.IPNet
}

// New builds a checker for the given CIDR (e.g. "10.0.0.0/8"). An empty
// string yields a disabled checker that trusts nobody; a malformed CIDR
// is a configuration error.
func New(trustedSubnet string) (*IPChecker, error) {
	if trustedSubnet == "" {
		return &IPChecker{}, nil
	}

	_, trustedNet, err := net.ParseCIDR(trustedSubnet)
	if err != nil {
		return nil, fmt.Errorf("parse trusted subnet %q: %w", trustedSubnet, err)
	}

	return &IPChecker{trustedNet: trustedNet}, nil
}

// Disabled reports whether the checker was built without a subnet.
func (checker *IPChecker) Disabled() bool {
	return checker.trustedNet == nil
}

// Trusted reports whether ip belongs to the trusted subnet.
func (checker *IPChecker) Trusted(ip net.IP) bool {
	return ip != nil && checker.trustedNet != nil && checker.trustedNet.Contains(ip)
}

// ClientIP resolves the caller's address: X-Real-IP first, then the first
// hop of X-Forwarded-For, then the connection's RemoteAddr.
func (checker *IPChecker) ClientIP(request *http.Request) (net.IP, error) {
	if ip := net.ParseIP(request.Header.Get("X-Real-IP")); ip != nil {
		return ip, nil
	}

	if forwarded := request.Header.Get("X-Forwarded-For"); forwarded != "" {
		firstHop := strings.TrimSpace(strings.Split(forwarded, ",")[0])
		ip := net.ParseIP(firstHop)
		if ip == nil {
			return nil, fmt.Errorf("unparseable X-Forwarded-For hop %q", firstHop)
		}

		return ip, nil
	}

	host, _, err := net.SplitHostPort(request.RemoteAddr)
	if err != nil {
		return nil, fmt.Errorf("split remote address %q: %w", request.RemoteAddr, err)
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return nil, fmt.Errorf("unparseable remote address %q", host)
	}

	return ip, nil
}
