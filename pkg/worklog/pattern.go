package worklog

import "strings"

// patternEscaper rewrites every pattern metacharacter in one pass, so a
// backslash inserted for %/_ is never itself re-escaped.
var patternEscaper = strings.NewReplacer(
	`\`, `\\`,
	`%`, `\%`,
	`_`, `\_`,
)

// EscapePattern neutralizes LIKE wildcards in a user search term and wraps
// it for substring matching. The parameterized query already prevents SQL
// injection; this prevents a term like "100%" from matching more rows than
// the literal text. Fragments using the result must carry ESCAPE '\'.
func EscapePattern(term string) string {
	return "%" + patternEscaper.Replace(term) + "%"
}
