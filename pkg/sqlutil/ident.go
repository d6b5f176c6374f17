package sqlutil

import (
	"fmt"
	"regexp"
	"strings"
)

var identRe = regexp.MustCompile(`^[A-Za-z0-9_\.]+$`)

// QuoteIdent validates and quotes an SQL identifier (optionally
// schema-qualified) for the pgx driver, the only sink driver this engine
// runs. It supports dot-separated identifiers like schema.table. The driver
// argument is kept so call sites read the same as the teacher's
// multi-driver quoting helper; any value other than "pgx" is rejected.
func QuoteIdent(driver, name string) (string, error) {
	if driver != "pgx" {
		return "", fmt.Errorf("unsupported driver: %s", driver)
	}
	if name == "" {
		return "", fmt.Errorf("empty identifier")
	}
	if !identRe.MatchString(name) {
		return "", fmt.Errorf("invalid identifier: %s", name)
	}
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = "\"" + p + "\""
	}
	return strings.Join(parts, "."), nil
}

// Placeholder returns the pgx positional placeholder for a 1-based index.
func Placeholder(driver string, index int) string {
	return fmt.Sprintf("$%d", index)
}
