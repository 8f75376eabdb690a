package dnsbl

import (
	"net"
	"strconv"
	"strings"
)

// reverseQueryName builds the DNSBL query name for an IP address: the four
// address bytes in reverse order as decimal octets for IPv4, or all 32
// nibbles low-nibble-first, last-byte-first as single hex digits for IPv6,
// followed by the list zone.
func reverseQueryName(ip net.IP, zone string) string {
	var b strings.Builder

	if v4 := ip.To4(); v4 != nil {
		for i := 3; i >= 0; i-- {
			b.WriteString(strconv.Itoa(int(v4[i])))
			b.WriteByte('.')
		}
	} else {
		v6 := ip.To16()
		for i := 15; i >= 0; i-- {
			b.WriteByte(hexDigit(v6[i] & 0xf))
			b.WriteByte('.')
			b.WriteByte(hexDigit(v6[i] >> 4))
			b.WriteByte('.')
		}
	}

	b.WriteString(zone)
	return b.String()
}

func hexDigit(n byte) byte {
	const digits = "0123456789abcdef"
	return digits[n]
}

// isExemptAddr reports whether an address must never be queried against a
// public reputation service: loopback, link-local, private/site-local and
// multicast ranges.
func isExemptAddr(ip net.IP) bool {
	return ip.IsLoopback() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsPrivate() ||
		ip.IsMulticast() ||
		ip.IsUnspecified() ||
		isSiteLocalV6(ip)
}

// isSiteLocalV6 matches the deprecated IPv6 site-local range fec0::/10,
// which net.IP.IsPrivate does not classify.
func isSiteLocalV6(ip net.IP) bool {
	if ip.To4() != nil {
		return false
	}
	v6 := ip.To16()
	return v6 != nil && v6[0] == 0xfe && v6[1]&0xc0 == 0xc0
}
