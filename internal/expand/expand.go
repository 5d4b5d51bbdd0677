// Package expand substitutes ${name} placeholders in a string, used by
// config.Load to resolve ${env.VAR} references in a loaded YAML config
// before it is unmarshaled.
package expand

import (
	"regexp"
)

var re = regexp.MustCompile(`\$\{([a-zA-Z0-9_.-]+)\}`)

// Expand replaces every ${name} occurrence in v with mapping(name).
func Expand(v string, mapping func(string) string) string {
	return re.ReplaceAllStringFunc(v, func(s string) string {
		return mapping(s[2 : len(s)-1])
	})
}
