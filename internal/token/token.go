// Package token holds the process-lifetime shared secret and the network
// origin trust rules used to authenticate clients.
package token

import (
	"crypto/subtle"
	"net"
	"strings"

	"github.com/google/uuid"
)

// Authority owns the single auth token generated at startup and answers
// whether a candidate token or a network origin should be trusted.
// The token never rotates; it lives exactly as long as the process.
type Authority struct {
	secret          string
	trustedPrefixes []string
}

// NewAuthority generates a fresh secret and records the address prefixes
// (for example "172.") that are granted implicit trust on connect.
// Loopback origins are always trusted regardless of the prefix list.
func NewAuthority(trustedPrefixes []string) *Authority {
	return &Authority{
		secret:          uuid.NewString(),
		trustedPrefixes: append([]string(nil), trustedPrefixes...),
	}
}

// Token returns the process-lifetime secret.
func (a *Authority) Token() string {
	return a.secret
}

// Validate reports whether candidate equals the secret. The comparison is
// constant-time; not strictly required on a trusted LAN, but free to have.
func (a *Authority) Validate(candidate string) bool {
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(a.secret)) == 1
}

// IsLoopback reports whether addr (an IP or "ip:port" pair) resolves to a
// loopback address: 127.x.x.x or ::1.
func (a *Authority) IsLoopback(addr string) bool {
	ip := parseHost(addr)
	return ip != nil && ip.IsLoopback()
}

// IsTrustedOrigin reports whether addr qualifies for implicit authentication:
// loopback, or matching one of the configured trusted prefixes. The prefix
// match exists for containerized deployments where the peer shows up on the
// bridge network rather than loopback.
func (a *Authority) IsTrustedOrigin(addr string) bool {
	ip := parseHost(addr)
	if ip == nil {
		return false
	}
	if ip.IsLoopback() {
		return true
	}
	ipStr := ip.String()
	for _, prefix := range a.trustedPrefixes {
		if prefix != "" && strings.HasPrefix(ipStr, prefix) {
			return true
		}
	}
	return false
}

func parseHost(addr string) net.IP {
	host := addr
	if h, _, err := net.SplitHostPort(addr); err == nil {
		host = h
	}
	return net.ParseIP(host)
}
