package template

import (
	"embed"
	"fmt"
	"sort"
	"strings"
)

//go:embed builtin/*.json
var builtinFS embed.FS

// Builtin returns an embedded template document by name.
func Builtin(name string) ([]byte, error) {
	data, err := builtinFS.ReadFile("builtin/" + name + ".json")
	if err != nil {
		return nil, fmt.Errorf("builtin template %q not found (available: %s): %w",
			name, strings.Join(BuiltinNames(), ", "), err)
	}
	return data, nil
}

// BuiltinNames returns the names of all embedded documents, sorted.
func BuiltinNames() []string {
	entries, _ := builtinFS.ReadDir("builtin")
	var names []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".json") {
			names = append(names, strings.TrimSuffix(e.Name(), ".json"))
		}
	}
	sort.Strings(names)
	return names
}
