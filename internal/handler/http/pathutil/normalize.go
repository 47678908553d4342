// Package pathutil parses path ids and folds dynamic paths into route
// templates for metric labels and span names.
package pathutil

import (
	"regexp"
	"strings"
)

type pathPattern struct {
	pattern  *regexp.Regexp
	template string
}

// Most specific first.
var pathPatterns = []pathPattern{
	{pattern: regexp.MustCompile(`^/api/admin/addons/\d+/events$`), template: "/api/admin/addons/:id/events"},
	{pattern: regexp.MustCompile(`^/api/admin/addons/\d+$`), template: "/api/admin/addons/:id"},
}

// NormalizePath strips the query string and a trailing slash, then maps
// known id-bearing paths to their template:
//
//	NormalizePath("/api/admin/addons/12")        // "/api/admin/addons/:id"
//	NormalizePath("/api/admin/addons/12/events") // "/api/admin/addons/:id/events"
//	NormalizePath("/api/admin/addons/providers") // unchanged
func NormalizePath(path string) string {
	if idx := strings.IndexByte(path, '?'); idx != -1 {
		path = path[:idx]
	}
	if len(path) > 1 && path[len(path)-1] == '/' {
		path = path[:len(path)-1]
	}
	for _, p := range pathPatterns {
		if p.pattern.MatchString(path) {
			return p.template
		}
	}
	return path
}
