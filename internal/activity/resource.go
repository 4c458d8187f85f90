package activity

import (
	"strconv"
	"strings"
)

// Lookup resolves a dotted path inside a resource payload. Numeric segments
// index into lists: "args.0.readable". ok is false when any segment is
// missing.
func Lookup(resource map[string]any, path string) (any, bool) {
	if resource == nil || path == "" {
		return nil, false
	}
	var cur any = resource
	for _, seg := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			next, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = next
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

// LookupString resolves path and renders scalar values as strings, so a
// correlation key compares equal whether it was decoded as a number or text.
func LookupString(resource map[string]any, path string) (string, bool) {
	v, ok := Lookup(resource, path)
	if !ok || v == nil {
		return "", false
	}
	switch val := v.(type) {
	case string:
		return val, true
	case bool:
		return strconv.FormatBool(val), true
	case int:
		return strconv.Itoa(val), true
	case int64:
		return strconv.FormatInt(val, 10), true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case interface{ String() string }:
		return val.String(), true
	default:
		return "", false
	}
}
