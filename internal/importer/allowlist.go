package importer

import "sort"

// TableAllowlist is the static set of tables the pipeline may write to.
// It is built once at startup from configuration and is immutable afterwards,
// so lookups need no locking.
type TableAllowlist struct {
	set   map[string]struct{}
	names []string
}

// NewTableAllowlist builds an allow-list from the configured table names.
// Blank names are ignored; duplicates collapse.
func NewTableAllowlist(tables []string) *TableAllowlist {
	a := &TableAllowlist{set: make(map[string]struct{}, len(tables))}
	for _, name := range tables {
		if name == "" {
			continue
		}
		if _, exists := a.set[name]; exists {
			continue
		}
		a.set[name] = struct{}{}
		a.names = append(a.names, name)
	}
	sort.Strings(a.names)
	return a
}

// Contains reports whether table is allow-listed.
func (a *TableAllowlist) Contains(table string) bool {
	_, ok := a.set[table]
	return ok
}

// Tables returns all allow-listed table names, sorted for consistent ordering.
func (a *TableAllowlist) Tables() []string {
	out := make([]string, len(a.names))
	copy(out, a.names)
	return out
}

// Size returns the number of allow-listed tables.
func (a *TableAllowlist) Size() int {
	return len(a.set)
}
