package writer

import (
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Scalar renders s as a single-line YAML scalar, quoting only when the
// plain form would change meaning.
func Scalar(s string) string {
	out, err := yaml.Marshal(s)
	if err != nil {
		return Quote(s)
	}
	text := strings.TrimSuffix(string(out), "\n")
	if strings.Contains(text, "\n") {
		return Quote(s)
	}
	return text
}

// Quote always renders s as a double-quoted YAML scalar.
func Quote(s string) string {
	return strconv.Quote(s)
}
