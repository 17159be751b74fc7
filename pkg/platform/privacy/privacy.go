// Package privacy holds helpers that keep personal data out of logs.
package privacy

import (
	"net/netip"
	"strings"
)

// AnonymizeIP reduces an IP address to its network prefix (/24 for IPv4, /48
// for IPv6) so logs can correlate traffic without storing the full address.
func AnonymizeIP(ip string) string {
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return ""
	}
	bits := 24
	if addr.Is6() && !addr.Is4In6() {
		bits = 48
	}
	prefix, err := addr.Unmap().Prefix(bits)
	if err != nil {
		return ""
	}
	return prefix.String()
}

// ShortenAddress keeps the first and last eight characters of a wallet address.
func ShortenAddress(address string) string {
	if len(address) <= 16 {
		return address
	}
	return address[:8] + "..." + address[len(address)-8:]
}
