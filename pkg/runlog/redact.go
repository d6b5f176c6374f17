package runlog

import (
	"reflect"
	"regexp"
)

// sensitiveKeyPattern matches field names the engine must never log in the
// clear (spec §4.5). Case-insensitive, generalized from the teacher's
// substring-match redactData (pkg/engine/engine.go) into the exact pattern
// the spec names.
var sensitiveKeyPattern = regexp.MustCompile(`(?i)key|token|password|secret|credential|auth`)

// maxFieldStringLen is the truncation threshold for string values (spec
// §4.5: "string values longer than 1000 chars are truncated with an
// ellipsis").
const maxFieldStringLen = 1000

// Redact walks fields, replacing sensitive keys with a placeholder,
// truncating long strings, and reducing circular structures to a fixed
// marker value.
func Redact(fields map[string]any) map[string]any {
	if fields == nil {
		return nil
	}
	return redactMap(fields, map[uintptr]bool{})
}

func redactMap(m map[string]any, seen map[uintptr]bool) map[string]any {
	if ptr, ok := pointerOf(m); ok {
		if seen[ptr] {
			return map[string]any{"error": "circular"}
		}
		seen = withVisited(seen, ptr)
	}

	out := make(map[string]any, len(m))
	for k, v := range m {
		if sensitiveKeyPattern.MatchString(k) {
			out[k] = "[REDACTED]"
			continue
		}
		out[k] = redactValue(v, seen)
	}
	return out
}

func redactValue(v any, seen map[uintptr]bool) any {
	switch val := v.(type) {
	case map[string]any:
		return redactMap(val, seen)
	case []any:
		if ptr, ok := pointerOf(val); ok {
			if seen[ptr] {
				return []any{"circular"}
			}
			seen = withVisited(seen, ptr)
		}
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = redactValue(item, seen)
		}
		return out
	case string:
		if len(val) > maxFieldStringLen {
			return val[:maxFieldStringLen] + "..."
		}
		return val
	default:
		return val
	}
}

func withVisited(seen map[uintptr]bool, ptr uintptr) map[uintptr]bool {
	next := make(map[uintptr]bool, len(seen)+1)
	for k := range seen {
		next[k] = true
	}
	next[ptr] = true
	return next
}

// pointerOf returns the underlying data pointer of a map or slice, used to
// detect structures that reference themselves.
func pointerOf(v any) (uintptr, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice:
		if rv.IsNil() {
			return 0, false
		}
		return rv.Pointer(), true
	default:
		return 0, false
	}
}
