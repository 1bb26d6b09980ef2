package translator

import (
	"regexp"
	"strings"
)

// Schemes understood by Parse, plus the aliases seen in the wild. A link runs
// until whitespace, a quote or an angle bracket.
var linkPattern = regexp.MustCompile(`(?i)\b(?:vmess|vless|trojan|ss|shadowsocks|hysteria2|hy2)://[^\s"'<>]+`)

// ExtractLinks finds every share link inside free text (chat dumps, decoded
// subscriptions) in order of appearance. Repeats are dropped.
func ExtractLinks(text string) []string {
	matches := linkPattern.FindAllString(text, -1)
	links := make([]string, 0, len(matches))
	seen := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		m = trimLinkTail(m)
		if m == "" {
			continue
		}
		if _, dup := seen[m]; dup {
			continue
		}
		seen[m] = struct{}{}
		links = append(links, m)
	}
	return links
}

// trimLinkTail drops sentence punctuation glued to the end of a link. A closing
// parenthesis stays when the link itself opened one.
func trimLinkTail(link string) string {
	for link != "" {
		last := link[len(link)-1]
		switch {
		case strings.IndexByte(".,;:!?", last) >= 0:
		case last == ')' && strings.Count(link, "(") < strings.Count(link, ")"):
		default:
			return link
		}
		link = link[:len(link)-1]
	}
	return link
}
