package util

import (
	"net/mail"
	"strings"
)

// SenderAddress isolates the bare email address from a raw From header,
// either `Name <addr>` or a bare `addr`. Returns "" when nothing that looks
// like an address is present.
func SenderAddress(from string) string {
	from = strings.TrimSpace(from)
	if from == "" {
		return ""
	}

	if parsed, err := mail.ParseAddress(from); err == nil {
		return strings.ToLower(parsed.Address)
	}

	if open := strings.LastIndex(from, "<"); open >= 0 {
		if close := strings.Index(from[open:], ">"); close > 0 {
			addr := strings.TrimSpace(from[open+1 : open+close])
			if strings.Contains(addr, "@") {
				return strings.ToLower(addr)
			}
		}
	}

	if strings.Contains(from, "@") {
		return strings.ToLower(strings.Trim(from, `"' `))
	}
	return ""
}
