// Package render substitutes a field mapping into a story template.
// Templates are opaque documents with named placeholders; rendering is
// deterministic, side-effect-free, and performs no I/O.
package render

import (
	"regexp"
	"strings"

	"github.com/suvichaar/storygen/internal/assemble"
)

// placeholder matches both observed template dialects: the raw
// double-brace token {{name}} and the template-engine tag {{ name }}.
var placeholder = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

// Render substitutes every known placeholder in the template with its
// mapped value in a single pass. Placeholders absent from the mapping
// are left verbatim; substituted values are never re-expanded.
func Render(template string, fields assemble.FieldMapping) string {
	return placeholder.ReplaceAllStringFunc(template, func(tok string) string {
		name := strings.TrimSpace(tok[2 : len(tok)-2])
		if value, ok := fields[name]; ok {
			return value
		}
		return tok
	})
}
