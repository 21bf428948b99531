// Package tags extracts @mention tokens from message text.
package tags

import "regexp"

// A mention starts the text or follows whitespace.
var mentionPattern = regexp.MustCompile(`(?:^|\s)@([\p{L}\p{N}_-]+)`)

// Extract returns the distinct mention tokens in text, in order of first appearance,
// without the leading '@'. It never returns nil.
func Extract(text string) []string {
	matches := mentionPattern.FindAllStringSubmatch(text, -1)
	out := make([]string, 0, len(matches))
	seen := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		tag := m[1]
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
