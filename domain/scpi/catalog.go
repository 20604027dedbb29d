package scpi

import "strings"

// Catalog maps base command names (no query marker) to their definitions.
// Catalogs are built once and must not be mutated afterwards; the validation
// engine shares a catalog across concurrent callers without locking.
type Catalog map[string]CommandDefinition

// BaseName strips one trailing query marker from a command token.
func BaseName(command string) string {
	return strings.TrimSuffix(command, "?")
}

// IsQuery reports whether a command token requests the query form.
func IsQuery(command string) bool {
	return strings.HasSuffix(command, "?")
}

// Merge overlays device entries on top of the common catalog. Same-named
// entries replace the common one wholesale, not field by field. The result
// is a fresh map; neither input is modified.
func Merge(common, device Catalog) Catalog {
	out := make(Catalog, len(common)+len(device))
	for name, def := range common {
		out[name] = def
	}
	for name, def := range device {
		out[name] = def
	}
	return out
}
