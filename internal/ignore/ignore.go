// Package ignore compiles a client's exclude-pattern list into a matcher.
//
// Pattern syntax: "*" matches one path segment (no "/"),
// "**" matches any prefix including "/", and literal characters are matched
// verbatim with "." escaped. Patterns are anchored at the start of the path.
// This is a narrow subset of gitignore, so it is compiled down to
// gitignore-style lines and handed to a gitignore matcher.
package ignore

import (
	"path/filepath"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
)

// List matches vault-relative paths against a set of configured exclude globs.
type List struct {
	matcher *gitignore.GitIgnore
}

// Compile builds a List from the client's configured exclude patterns. An
// empty pattern set matches nothing.
func Compile(patterns []string) *List {
	if len(patterns) == 0 {
		return &List{}
	}
	lines := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if p == "" {
			continue
		}
		lines = append(lines, toGitignoreLine(p))
	}
	if len(lines) == 0 {
		return &List{}
	}
	return &List{matcher: gitignore.CompileIgnoreLines(lines...)}
}

// ShouldIgnore reports whether the vault-relative path matches any configured
// exclude pattern.
func (l *List) ShouldIgnore(path string) bool {
	if l == nil || l.matcher == nil {
		return false
	}
	norm := filepath.ToSlash(path)
	return l.matcher.MatchesPath(norm)
}

// toGitignoreLine anchors the pattern at path-start, since this package's
// pattern grammar (unlike plain gitignore) is always anchored; a leading "/"
// in gitignore syntax means exactly that.
func toGitignoreLine(pattern string) string {
	if strings.HasPrefix(pattern, "/") {
		return pattern
	}
	return "/" + pattern
}
