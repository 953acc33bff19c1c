package prompt

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/alanyang/promptledger/internal/domain/apperr"
)

var placeholder = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_.-]*)\s*\}\}`)

// Render substitutes {{key}} placeholders in content with values from input.
// A placeholder with no matching key is a validation error; unused input keys
// are ignored.
func Render(content string, input map[string]any) (string, error) {
	var missing []string
	out := placeholder.ReplaceAllStringFunc(content, func(m string) string {
		key := placeholder.FindStringSubmatch(m)[1]
		v, ok := input[key]
		if !ok {
			missing = append(missing, key)
			return m
		}
		return fmt.Sprint(v)
	})
	if len(missing) > 0 {
		return "", apperr.Validation("missing input for %s", strings.Join(missing, ", "))
	}
	return out, nil
}
