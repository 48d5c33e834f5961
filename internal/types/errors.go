package types

import "fmt"

// MalformedResourceError reports a selected resolver that lacks a mapping
// template field the guard needs to extend.
type MalformedResourceError struct {
	Resource string
	Field    string
	Reason   string
}

func (e *MalformedResourceError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("resource %q: malformed field %s", e.Resource, e.Field)
	}
	return fmt.Sprintf("resource %q: %s: %s", e.Resource, e.Field, e.Reason)
}
