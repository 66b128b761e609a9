package engine

import (
	"regexp"
	"strings"

	"github.com/anatolykoptev/go-kit/strutil"
	"golang.org/x/net/html"
)

// UserAgentChrome is the fallback browser User-Agent for pages that reject bots.
const UserAgentChrome = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// TruncationMarker is appended to text cut by TruncateRunes callers.
const TruncationMarker = "..."

var htmlTagRe = regexp.MustCompile(`<[^>]+>`)

// CleanHTML strips HTML tags and trims whitespace.
func CleanHTML(s string) string {
	return strings.TrimSpace(htmlTagRe.ReplaceAllString(s, ""))
}

// CollapseSpace replaces runs of whitespace (including newlines) with one space.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// CaptionText normalizes one caption cue: entities decoded (YouTube double-escapes
// them in XML), tags stripped, whitespace collapsed.
func CaptionText(s string) string {
	return CollapseSpace(CleanHTML(html.UnescapeString(s)))
}

// TruncateRunes caps s at limit runes, appending suffix if truncated.
// Pass suffix="" for no suffix. Safe for UTF-8 (Cyrillic, CJK, emoji).
func TruncateRunes(s string, limit int, suffix string) string {
	return strutil.TruncateWith(s, limit, suffix)
}
