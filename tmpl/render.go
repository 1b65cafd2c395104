// Package tmpl renders template file sets and merges them into a file tree.
package tmpl

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// ErrUnresolvedPlaceholder indicates a placeholder with no matching variable.
var ErrUnresolvedPlaceholder = errors.New("unresolved placeholder")

var placeholderRe = regexp.MustCompile(`<%=\s*([A-Za-z_$][A-Za-z0-9_$]*)\s*%>`)

// Variables maps placeholder identifiers to their values.
type Variables map[string]string

// Render substitutes every <%= identifier %> token in text. All missing
// identifiers are reported in one error.
func Render(text string, vars Variables) (string, error) {
	var missing []string
	seen := make(map[string]bool)

	out := placeholderRe.ReplaceAllStringFunc(text, func(token string) string {
		name := placeholderRe.FindStringSubmatch(token)[1]
		if v, ok := vars[name]; ok {
			return v
		}
		if !seen[name] {
			seen[name] = true
			missing = append(missing, name)
		}
		return token
	})

	if len(missing) > 0 {
		sort.Strings(missing)
		return "", fmt.Errorf("%s: %w", strings.Join(missing, ", "), ErrUnresolvedPlaceholder)
	}
	return out, nil
}

// Placeholders lists the distinct identifiers referenced by text, sorted.
func Placeholders(text string) []string {
	seen := make(map[string]bool)
	var names []string
	for _, m := range placeholderRe.FindAllStringSubmatch(text, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	sort.Strings(names)
	return names
}
