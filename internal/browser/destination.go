package browser

import (
	"net/url"
	"strings"
)

// hostSuffixes are spoken TLD words we can join onto a hostname.
var hostSuffixes = map[string]bool{
	"com": true, "org": true, "net": true, "io": true, "dev": true,
	"gov": true, "edu": true, "co": true, "uk": true, "de": true,
}

// spokenToHost reconstructs a hostname from speech: "example dot com"
// and "example com" both become "example.com". Returns "" when the
// words don't look like a hostname.
func spokenToHost(spoken string) string {
	words := strings.Fields(strings.ToLower(spoken))
	var cleaned []string
	for _, w := range words {
		if w == "dot" {
			continue
		}
		cleaned = append(cleaned, w)
	}
	if len(cleaned) < 2 {
		if len(cleaned) == 1 && strings.Contains(cleaned[0], ".") {
			return cleaned[0]
		}
		return ""
	}
	if !hostSuffixes[cleaned[len(cleaned)-1]] {
		return ""
	}
	return strings.Join(cleaned, ".")
}

func queryEscape(s string) string {
	return url.QueryEscape(s)
}
