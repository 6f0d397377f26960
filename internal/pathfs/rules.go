package pathfs

import (
	"path/filepath"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// Rule is one include or exclude glob pattern as written in configuration.
type Rule struct {
	Pattern string
	Exclude bool
}

// compiledRule pairs a Rule with its specificity (the number of non-wildcard
// path segments, used to break ties between an include and an exclude that
// both match).
type compiledRule struct {
	Rule
	specificity int
	matcher     *ignore.GitIgnore
}

// CompiledRules is a compiled, ordered set of include/exclude glob patterns.
// Matching follows a fixed cascade: a path is
// included unless an exclude pattern matches; if both an include and an
// exclude pattern match, the one with greater specificity (more literal path
// segments) wins, and an exclude wins ties — explicit excludes beat includes
// at equal specificity.
type CompiledRules struct {
	rules []compiledRule
}

// Compile builds a CompiledRules from the given rule list. Patterns use
// gitignore glob syntax (`*`, `**`, `/` anchoring). A malformed pattern is
// dropped rather than failing the whole set.
func Compile(rules []Rule) *CompiledRules {
	cr := &CompiledRules{}

	for _, r := range rules {
		m := ignore.CompileIgnoreLines(r.Pattern)
		if m == nil {
			continue
		}

		cr.rules = append(cr.rules, compiledRule{
			Rule:        r,
			specificity: specificityOf(r.Pattern),
			matcher:     m,
		})
	}

	return cr
}

// specificityOf counts the non-wildcard path segments in pattern, used to
// resolve include/exclude ties by longest-prefix-wins.
func specificityOf(pattern string) int {
	segments := strings.Split(strings.Trim(pattern, "/"), "/")

	n := 0

	for _, seg := range segments {
		if seg == "" || strings.ContainsAny(seg, "*?[") {
			continue
		}

		n++
	}

	return n
}

// Apply evaluates path (forward-slashed; the crawler passes absolute
// paths) against the compiled rule set and reports whether it should be
// included. Patterns are matched by go-gitignore against path as given,
// not against a path relative to a scan root. isDir
// controls whether path is matched with a trailing slash, as go-gitignore
// requires for directory-only patterns.
func (cr *CompiledRules) Apply(path string, isDir bool) bool {
	if cr == nil || len(cr.rules) == 0 {
		return true
	}

	matchPath := filepath.ToSlash(path)
	if isDir {
		matchPath += "/"
	}

	var (
		bestSpecificity = -1
		bestExclude     = false
		matched         = false
	)

	for _, r := range cr.rules {
		if !r.matcher.MatchesPath(matchPath) {
			continue
		}

		matched = true

		switch {
		case r.specificity > bestSpecificity:
			bestSpecificity = r.specificity
			bestExclude = r.Exclude
		case r.specificity == bestSpecificity && r.Exclude:
			// Explicit excludes beat includes at equal specificity.
			bestExclude = true
		}
	}

	if !matched {
		return true
	}

	return !bestExclude
}
