package assemble

import (
	"sort"
	"strconv"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/oplens/internal/signature"
)

// FunctionMarker is the "$type" value of a captured function reference.
const FunctionMarker = "function"

// UnknownName is used when a function has neither a declared nor an
// inferred name.
const UnknownName = "unknown"

// FunctionInfo describes a user-defined callback found in a resource.
//
// Before merging an entry has one PropertyPath; merged entries list every
// path in PropertyPaths instead.
type FunctionInfo struct {
	Name          string   `json:"name"`
	Location      string   `json:"location"`
	PropertyPath  string   `json:"propertyPath,omitempty"`
	PropertyPaths []string `json:"propertyPaths,omitempty"`
	Arguments     []any    `json:"arguments,omitempty"`
}

// ExtractFunctions finds user-defined function references in a resource
// payload. Paths start with "resource"; map keys are visited in sorted order.
// Functions located in library code are skipped, as are functions without a
// location: without one the library check cannot run and Merge has no key to
// group by, so the entry could not be told apart from runtime internals.
func ExtractFunctions(table *signature.Table, resource map[string]any) []FunctionInfo {
	var out []FunctionInfo
	walkFunctions(table, resource, "resource", &out)
	return out
}

func walkFunctions(table *signature.Table, node any, path string, out *[]FunctionInfo) {
	switch val := node.(type) {
	case map[string]any:
		if fn, ok := asFunction(val, path); ok {
			if fn.Location != "" && !table.IsLibrary(fn.Location) {
				*out = append(*out, fn)
			}
			return
		}
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			walkFunctions(table, val[k], path+"."+k, out)
		}
	case []any:
		for i, elem := range val {
			walkFunctions(table, elem, path+"."+strconv.Itoa(i), out)
		}
	}
}

func asFunction(m map[string]any, path string) (FunctionInfo, bool) {
	if t, _ := m["$type"].(string); t != FunctionMarker {
		return FunctionInfo{}, false
	}
	fn := FunctionInfo{
		Name:         UnknownName,
		PropertyPath: path,
	}
	if name, _ := m["name"].(string); name != "" {
		fn.Name = name
	} else if inferred, _ := m["inferredName"].(string); inferred != "" {
		fn.Name = inferred
	}
	fn.Location, _ = m["location"].(string)
	if args, ok := m["arguments"].([]any); ok && len(args) > 0 {
		fn.Arguments = args
	}
	return fn, true
}

// Separate moves every role-local callback to op.UserFunctions, prefixing
// each property path with the role name.
func Separate(op *Operation) {
	var lifted []FunctionInfo
	for i := range op.Roles {
		rec := &op.Roles[i]
		for _, fn := range rec.UserFunctions {
			if fn.PropertyPath != "" {
				fn.PropertyPath = rec.Role + "." + fn.PropertyPath
			}
			if len(fn.PropertyPaths) > 0 {
				paths := make([]string, len(fn.PropertyPaths))
				for j, p := range fn.PropertyPaths {
					paths[j] = rec.Role + "." + p
				}
				fn.PropertyPaths = paths
			}
			lifted = append(lifted, fn)
		}
		rec.UserFunctions = nil
	}
	op.UserFunctions = append(op.UserFunctions, lifted...)
}

// Merge collapses functions sharing a source location (compared after NFC
// normalisation) into one entry. Property paths are unioned in order of
// appearance; a missing name or argument list is filled from a duplicate
// that has one. Merging an already merged list returns it unchanged.
func Merge(fns []FunctionInfo) []FunctionInfo {
	if fns == nil {
		return nil
	}
	index := make(map[string]int)
	out := make([]FunctionInfo, 0, len(fns))

	for _, fn := range fns {
		key := norm.NFC.String(fn.Location)
		i, seen := index[key]
		if !seen {
			index[key] = len(out)
			out = append(out, FunctionInfo{
				Name:          fn.Name,
				Location:      fn.Location,
				PropertyPaths: appendPaths(nil, fn),
				Arguments:     fn.Arguments,
			})
			continue
		}
		merged := &out[i]
		merged.PropertyPaths = appendPaths(merged.PropertyPaths, fn)
		if merged.Name == UnknownName || merged.Name == "" {
			if fn.Name != "" && fn.Name != UnknownName {
				merged.Name = fn.Name
			}
		}
		if len(merged.Arguments) == 0 && len(fn.Arguments) > 0 {
			merged.Arguments = fn.Arguments
		}
	}
	return out
}

func appendPaths(dst []string, fn FunctionInfo) []string {
	add := func(p string) {
		if p == "" {
			return
		}
		for _, existing := range dst {
			if existing == p {
				return
			}
		}
		dst = append(dst, p)
	}
	for _, p := range fn.PropertyPaths {
		add(p)
	}
	add(fn.PropertyPath)
	return dst
}
