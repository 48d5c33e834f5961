package rewriter

import (
	"github.com/capbase/resolverguard/internal/util"
)

// Change records what a guard did to one resolver.
type Change struct {
	Resource  string   `json:"resource"`
	TypeName  string   `json:"typeName"`
	FieldName string   `json:"fieldName,omitempty"`
	Guard     string   `json:"guard"`
	Fields    []string `json:"fields,omitempty"`
	Unchanged []string `json:"unchanged,omitempty"`
	Skipped   []string `json:"skipped,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// Report summarizes a rewrite.
type Report struct {
	Mode    Mode     `json:"mode"`
	Scanned int      `json:"scanned"`
	Changes []Change `json:"changes"`
}

func (r *Report) add(c Change) {
	r.Changes = append(r.Changes, c)
}

// FieldsChanged counts mapping template fields that were written.
func (r *Report) FieldsChanged() int {
	n := 0
	for _, c := range r.Changes {
		n += len(c.Fields)
	}
	return n
}

// Resources returns the names of matched resources, in visiting order, without repeats.
func (r *Report) Resources() []string {
	names := make([]string, 0, len(r.Changes))
	for _, c := range r.Changes {
		names = append(names, c.Resource)
	}
	return util.UniqueStrings(names)
}

// ForResource returns the changes recorded for the named resource.
func (r *Report) ForResource(name string) []Change {
	var result []Change
	for _, c := range r.Changes {
		if c.Resource == name {
			result = append(result, c)
		}
	}
	return result
}
