package export

import (
	"strings"
)

// WebEditorURL is the diagrams.net editor entry point for raw XML.
const WebEditorURL = "https://app.diagrams.net/#R"

const upperHex = "0123456789ABCDEF"

// WebURL returns a diagrams.net link that opens xml directly.
func WebURL(xml string) string {
	return WebEditorURL + encodeURIComponent(xml)
}

// encodeURIComponent escapes everything except A-Z a-z 0-9 - _ . ! ~ * ' ( ),
// the set diagrams.net decodes with decodeURIComponent.
func encodeURIComponent(s string) string {
	var b strings.Builder
	b.Grow(len(s) * 3)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if unreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperHex[c>>4])
		b.WriteByte(upperHex[c&15])
	}
	return b.String()
}

func unreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}
