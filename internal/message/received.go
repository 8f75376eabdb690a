// Package message deals with the parts of a mail message the reputation
// checker consumes: the Received trace headers added by each relay hop.
package message

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Unfold collapses RFC 5322 header folding (CRLF or LF followed by
// whitespace) into a single line.
func Unfold(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	for i := 0; i < len(value); i++ {
		c := value[i]
		if c == '\r' || c == '\n' {
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// RelayHost extracts the candidate relay hostname from an ordered list of
// raw Received header values. The last element is the most recent hop; its
// "from <host>" clause names the relay that handed the message to us.
// Returns ok=false when no hostname can be extracted.
func RelayHost(received []string) (string, bool) {
	if len(received) == 0 {
		return "", false
	}

	line := Unfold(received[len(received)-1])
	line = norm.NFC.String(line)

	words := strings.Fields(line)
	for i := 0; i < len(words)-1; i++ {
		if strings.EqualFold(words[i], "from") {
			host := strings.ToLower(words[i+1])
			if host != "" {
				return host, true
			}
		}
	}

	return "", false
}
